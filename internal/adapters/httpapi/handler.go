package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/atvirokodosprendimai/stockapi/internal/core/domain"
	"github.com/atvirokodosprendimai/stockapi/internal/core/usecase"
)

type ctxKey string

const (
	timeFormat             = "2006-01-02T15:04:05.999999999Z07:00"
	actorIDCtxKey   ctxKey = "actor_id"
	maxJSONBodySize        = 1 << 20

	defaultPageSize = 20
	maxPageSize     = 100
)

type Handler struct {
	auth        *usecase.AuthService
	items       *usecase.ItemService
	categories  *usecase.CategoryService
	departments *usecase.DepartmentService
	users       *usecase.UserService
	roles       *usecase.RoleService
}

func NewHandler(
	auth *usecase.AuthService,
	items *usecase.ItemService,
	categories *usecase.CategoryService,
	departments *usecase.DepartmentService,
	users *usecase.UserService,
	roles *usecase.RoleService,
) *Handler {
	return &Handler{
		auth:        auth,
		items:       items,
		categories:  categories,
		departments: departments,
		users:       users,
		roles:       roles,
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(metricsMiddleware)

	r.Get("/healthz", h.healthz)
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/auth/login", h.login)

	r.Group(func(pr chi.Router) {
		pr.Use(h.requireAuth)

		pr.Get("/auth/validate", h.validateToken)
		pr.Get("/auth/me", h.me)

		pr.Get("/v1/items", h.listItems)
		pr.Post("/v1/items", h.createItem)
		pr.Get("/v1/items/{id}", h.getItem)
		pr.Put("/v1/items/{id}", h.updateItem)
		pr.Delete("/v1/items/{id}", h.deleteItem)

		pr.Get("/v1/categories", h.listCategories)
		pr.Post("/v1/categories", h.createCategory)
		pr.Get("/v1/categories/{id}", h.getCategory)
		pr.Put("/v1/categories/{id}", h.renameCategory)
		pr.Delete("/v1/categories/{id}", h.deleteCategory)

		pr.Get("/v1/departments", h.listDepartments)
		pr.Post("/v1/departments", h.createDepartment)
		pr.Get("/v1/departments/{id}", h.getDepartment)
		pr.Put("/v1/departments/{id}", h.renameDepartment)
		pr.Delete("/v1/departments/{id}", h.deleteDepartment)

		pr.Get("/v1/users", h.listUsers)
		pr.Post("/v1/users", h.createUser)
		pr.Get("/v1/users/{id}", h.getUser)
		pr.Put("/v1/users/{id}", h.updateUser)
		pr.Delete("/v1/users/{id}", h.deleteUser)

		pr.Get("/v1/roles", h.listRoles)
		pr.Post("/v1/roles", h.createRole)
		pr.Get("/v1/roles/{id}", h.getRole)
		pr.Put("/v1/roles/{id}", h.updateRole)
		pr.Delete("/v1/roles/{id}", h.deleteRole)
	})

	return r
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	raw, ok := readBody(w, r, "login")
	if !ok {
		return
	}
	var req loginRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	token, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (h *Handler) validateToken(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"valid":  true,
		"userId": actorFromContext(r.Context()),
	})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.Get(r.Context(), actorFromContext(r.Context()))
	if err != nil {
		handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(strings.ToLower(auth), "bearer ") {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		userID, err := h.auth.ValidateToken(strings.TrimSpace(auth[7:]))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		ctx := context.WithValue(r.Context(), actorIDCtxKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func actorFromContext(ctx context.Context) int64 {
	id, _ := ctx.Value(actorIDCtxKey).(int64)
	return id
}

func actorMeta(ctx context.Context) domain.MutationMeta {
	return domain.MutationMeta{ActorID: actorFromContext(ctx)}
}

// readBody caps, reads and schema-checks the request body. On failure the
// error response has already been written.
func readBody(w http.ResponseWriter, r *http.Request, schema string) ([]byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodySize)
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return nil, false
	}
	if err := validateBody(schema, raw); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return raw, true
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func parsePage(w http.ResponseWriter, r *http.Request) (domain.PageRequest, bool) {
	req := domain.PageRequest{Page: 1, PageSize: defaultPageSize}

	if raw := r.URL.Query().Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			writeError(w, http.StatusBadRequest, "page must be a positive integer")
			return domain.PageRequest{}, false
		}
		req.Page = page
	}
	if raw := r.URL.Query().Get("pageSize"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 1 {
			writeError(w, http.StatusBadRequest, "pageSize must be a positive integer")
			return domain.PageRequest{}, false
		}
		if size > maxPageSize {
			size = maxPageSize
		}
		req.PageSize = size
	}

	return req, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		log.Printf("encode json response: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(data, '\n')); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}

func handleDomainError(w http.ResponseWriter, err error) {
	switch {
	case domain.IsValidation(err),
		errors.Is(err, domain.ErrMissingActor),
		errors.Is(err, domain.ErrInvalidOperation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, usecase.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
