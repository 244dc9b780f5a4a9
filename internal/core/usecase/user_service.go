package usecase

import (
	"context"

	"github.com/atvirokodosprendimai/stockapi/internal/core/domain"
	"github.com/atvirokodosprendimai/stockapi/internal/core/ports"
	"golang.org/x/crypto/bcrypt"
)

type UserService struct {
	repo ports.UserRepository
}

func NewUserService(repo ports.UserRepository) *UserService {
	return &UserService{repo: repo}
}

// UserPatch is the service-level partial update; Password arrives in clear
// and is hashed here before it reaches the repository.
type UserPatch struct {
	Username *string
	Password *string
}

func (s *UserService) Create(ctx context.Context, username, password string, roleIDs []int64, meta domain.MutationMeta) (domain.User, error) {
	if meta.ActorID <= 0 {
		return domain.User{}, domain.ErrMissingActor
	}
	user := domain.User{Username: username, PasswordHash: password}
	if err := user.Validate(); err != nil {
		return domain.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, err
	}
	user.PasswordHash = string(hash)

	return s.repo.Create(ctx, user, roleIDs, meta.Normalize())
}

func (s *UserService) Get(ctx context.Context, id int64) (domain.User, error) {
	if id <= 0 {
		return domain.User{}, domain.Validationf("invalid user id")
	}
	return s.repo.Get(ctx, id)
}

func (s *UserService) List(ctx context.Context, req domain.PageRequest) (domain.Page[domain.User], error) {
	if !req.Valid() {
		return domain.EmptyPage[domain.User](req.Page), nil
	}
	users, total, err := s.repo.List(ctx, req)
	if err != nil {
		return domain.Page[domain.User]{}, err
	}
	return domain.NewPage(users, total, req), nil
}

func (s *UserService) Update(ctx context.Context, id int64, patch UserPatch, roleIDs []int64, meta domain.MutationMeta) (domain.User, error) {
	if meta.ActorID <= 0 {
		return domain.User{}, domain.ErrMissingActor
	}
	if id <= 0 {
		return domain.User{}, domain.Validationf("invalid user id")
	}
	if patch.Username != nil && *patch.Username == "" {
		return domain.User{}, domain.Validationf("username is required")
	}

	update := domain.UserUpdate{Username: patch.Username}
	if patch.Password != nil {
		if *patch.Password == "" {
			return domain.User{}, domain.Validationf("password is required")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*patch.Password), bcrypt.DefaultCost)
		if err != nil {
			return domain.User{}, err
		}
		hashed := string(hash)
		update.PasswordHash = &hashed
	}

	return s.repo.Update(ctx, id, update, roleIDs, meta.Normalize())
}

func (s *UserService) Delete(ctx context.Context, id int64, meta domain.MutationMeta) (bool, error) {
	if meta.ActorID <= 0 {
		return false, domain.ErrMissingActor
	}
	if id <= 0 {
		return false, domain.Validationf("invalid user id")
	}
	return s.repo.Delete(ctx, id, meta.Normalize())
}
