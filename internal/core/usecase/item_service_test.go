package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/atvirokodosprendimai/stockapi/internal/core/domain"
)

type stubItemRepo struct {
	createFn func(ctx context.Context, item domain.Item, meta domain.MutationMeta) (domain.Item, error)
	getFn    func(ctx context.Context, id int64) (domain.Item, error)
	listFn   func(ctx context.Context, req domain.PageRequest) ([]domain.Item, int64, error)
	updateFn func(ctx context.Context, id int64, patch domain.ItemUpdate, meta domain.MutationMeta) (domain.Item, error)
	deleteFn func(ctx context.Context, id int64, meta domain.MutationMeta) (bool, error)
}

func (s *stubItemRepo) Create(ctx context.Context, item domain.Item, meta domain.MutationMeta) (domain.Item, error) {
	return s.createFn(ctx, item, meta)
}

func (s *stubItemRepo) Get(ctx context.Context, id int64) (domain.Item, error) {
	return s.getFn(ctx, id)
}

func (s *stubItemRepo) List(ctx context.Context, req domain.PageRequest) ([]domain.Item, int64, error) {
	return s.listFn(ctx, req)
}

func (s *stubItemRepo) Update(ctx context.Context, id int64, patch domain.ItemUpdate, meta domain.MutationMeta) (domain.Item, error) {
	return s.updateFn(ctx, id, patch, meta)
}

func (s *stubItemRepo) Delete(ctx context.Context, id int64, meta domain.MutationMeta) (bool, error) {
	return s.deleteFn(ctx, id, meta)
}

func TestItemServiceCreateAppliesDefaults(t *testing.T) {
	var got domain.Item
	repo := &stubItemRepo{
		createFn: func(_ context.Context, item domain.Item, meta domain.MutationMeta) (domain.Item, error) {
			if meta.OccurredAt.IsZero() {
				t.Fatal("meta was not normalized")
			}
			got = item
			item.ID = 1
			return item, nil
		},
	}
	service := NewItemService(repo)

	_, err := service.Create(context.Background(), domain.Item{
		Name:         "Pen",
		DepartmentID: 2,
	}, domain.MutationMeta{ActorID: 1})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if got.Quantity != 1 {
		t.Fatalf("expected default quantity 1, got %d", got.Quantity)
	}
	if got.Unit != domain.UnitPiece {
		t.Fatalf("expected default unit, got %q", got.Unit)
	}
}

func TestItemServiceCreateRequiresActor(t *testing.T) {
	service := NewItemService(&stubItemRepo{})

	_, err := service.Create(context.Background(), domain.Item{
		Name:         "Pen",
		DepartmentID: 2,
	}, domain.MutationMeta{})
	if !errors.Is(err, domain.ErrMissingActor) {
		t.Fatalf("expected ErrMissingActor, got %v", err)
	}
}

func TestItemServiceCreateRejectsInvalidItem(t *testing.T) {
	service := NewItemService(&stubItemRepo{})

	_, err := service.Create(context.Background(), domain.Item{
		Name: "Pen",
	}, domain.MutationMeta{ActorID: 1})
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error for missing department, got %v", err)
	}

	_, err = service.Create(context.Background(), domain.Item{
		Name:         "Pen",
		Unit:         "box",
		DepartmentID: 2,
	}, domain.MutationMeta{ActorID: 1})
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error for bad unit, got %v", err)
	}
}

func TestItemServiceListGuardsPageRequest(t *testing.T) {
	called := false
	repo := &stubItemRepo{
		listFn: func(_ context.Context, _ domain.PageRequest) ([]domain.Item, int64, error) {
			called = true
			return nil, 0, nil
		},
	}
	service := NewItemService(repo)

	page, err := service.List(context.Background(), domain.PageRequest{Page: 0, PageSize: 20})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if called {
		t.Fatal("repository consulted for an invalid page request")
	}
	if len(page.Data) != 0 || page.Total != 0 {
		t.Fatalf("expected empty page, got %+v", page)
	}
}

func TestItemServiceListBuildsPage(t *testing.T) {
	repo := &stubItemRepo{
		listFn: func(_ context.Context, req domain.PageRequest) ([]domain.Item, int64, error) {
			if req.Offset() != 20 {
				t.Fatalf("unexpected offset %d", req.Offset())
			}
			return []domain.Item{{ID: 21}}, 41, nil
		},
	}
	service := NewItemService(repo)

	page, err := service.List(context.Background(), domain.PageRequest{Page: 2, PageSize: 20})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 41 || page.TotalPages != 3 || page.CurrentPage != 2 {
		t.Fatalf("unexpected page math: %+v", page)
	}
}

func TestItemServiceUpdateValidatesPatch(t *testing.T) {
	service := NewItemService(&stubItemRepo{})
	meta := domain.MutationMeta{ActorID: 1}

	empty := ""
	if _, err := service.Update(context.Background(), 5, domain.ItemUpdate{Name: &empty}, meta); !domain.IsValidation(err) {
		t.Fatalf("expected validation error for empty name, got %v", err)
	}

	zero := 0
	if _, err := service.Update(context.Background(), 5, domain.ItemUpdate{Quantity: &zero}, meta); !domain.IsValidation(err) {
		t.Fatalf("expected validation error for zero quantity, got %v", err)
	}

	bad := int64(-1)
	patch := domain.ItemUpdate{CategoryID: domain.OptionalRef{Set: true, ID: &bad}}
	if _, err := service.Update(context.Background(), 5, patch, meta); !domain.IsValidation(err) {
		t.Fatalf("expected validation error for negative category, got %v", err)
	}
}

func TestItemServiceDeletePropagatesResult(t *testing.T) {
	repo := &stubItemRepo{
		deleteFn: func(_ context.Context, id int64, _ domain.MutationMeta) (bool, error) {
			return id == 5, nil
		},
	}
	service := NewItemService(repo)
	meta := domain.MutationMeta{ActorID: 1}

	deleted, err := service.Delete(context.Background(), 5, meta)
	if err != nil || !deleted {
		t.Fatalf("expected deleted=true, got %v %v", deleted, err)
	}
	deleted, err = service.Delete(context.Background(), 6, meta)
	if err != nil || deleted {
		t.Fatalf("expected deleted=false, got %v %v", deleted, err)
	}
}
