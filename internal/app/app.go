package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/atvirokodosprendimai/stockapi/internal/adapters/httpapi"
	sqliteadapter "github.com/atvirokodosprendimai/stockapi/internal/adapters/sqlite"
	"github.com/atvirokodosprendimai/stockapi/internal/adapters/sqlite/gormsqlite"
	"github.com/atvirokodosprendimai/stockapi/internal/core/domain"
	"github.com/atvirokodosprendimai/stockapi/internal/core/usecase"
	"github.com/atvirokodosprendimai/stockapi/migrations"
)

type Config struct {
	Addr          string
	DBPath        string
	JWTSecret     string
	JWTIssuer     string
	TokenTTL      time.Duration
	AdminUsername string
	AdminPassword string
}

func NewServer(ctx context.Context, cfg Config) (*http.Server, io.Closer, error) {
	if cfg.JWTSecret == "" {
		return nil, nil, fmt.Errorf("jwt secret is required")
	}

	db, err := gormsqlite.Open(cfg.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open sqlite: %w", err)
	}

	writeSQLDB, err := db.WriteSQLDB()
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("resolve writer sql db: %w", err)
	}

	migrateCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := migrations.Up(migrateCtx, writeSQLDB); err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	changeLog := sqliteadapter.NewChangeLogStore(domain.DefaultChangeRegistry())
	itemRepo := sqliteadapter.NewItemRepository(db, changeLog)
	categoryRepo := sqliteadapter.NewCategoryRepository(db, changeLog)
	departmentRepo := sqliteadapter.NewDepartmentRepository(db, changeLog)
	userRepo := sqliteadapter.NewUserRepository(db, changeLog)
	roleRepo := sqliteadapter.NewRoleRepository(db, changeLog)

	authService := usecase.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTIssuer, cfg.TokenTTL)
	itemService := usecase.NewItemService(itemRepo)
	categoryService := usecase.NewCategoryService(categoryRepo)
	departmentService := usecase.NewDepartmentService(departmentRepo)
	userService := usecase.NewUserService(userRepo)
	roleService := usecase.NewRoleService(roleRepo)

	if cfg.AdminUsername != "" && cfg.AdminPassword != "" {
		seedCtx, seedCancel := context.WithTimeout(ctx, 10*time.Second)
		err := seed(seedCtx, userRepo, roleRepo, cfg.AdminUsername, cfg.AdminPassword)
		seedCancel()
		if err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("seed admin: %w", err)
		}
	}

	handler := httpapi.NewHandler(authService, itemService, categoryService, departmentService, userService, roleService)

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	return server, db, nil
}
