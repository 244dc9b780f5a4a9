package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/atvirokodosprendimai/stockapi/internal/core/domain"
)

// Departments and categories share the same surface: a name and timestamps.

type nameRequest struct {
	Name string `json:"name"`
}

type namedResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

func toDepartmentResponse(dept domain.Department) namedResponse {
	return namedResponse{
		ID:        dept.ID,
		Name:      dept.Name,
		CreatedAt: dept.CreatedAt.UTC().Format(timeFormat),
		UpdatedAt: dept.UpdatedAt.UTC().Format(timeFormat),
	}
}

func toCategoryResponse(cat domain.Category) namedResponse {
	return namedResponse{
		ID:        cat.ID,
		Name:      cat.Name,
		CreatedAt: cat.CreatedAt.UTC().Format(timeFormat),
		UpdatedAt: cat.UpdatedAt.UTC().Format(timeFormat),
	}
}

func decodeNameRequest(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw, ok := readBody(w, r, "named")
	if !ok {
		return "", false
	}
	var req nameRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return "", false
	}
	return req.Name, true
}

func (h *Handler) createDepartment(w http.ResponseWriter, r *http.Request) {
	name, ok := decodeNameRequest(w, r)
	if !ok {
		return
	}

	dept, err := h.departments.Create(r.Context(), domain.Department{Name: name}, actorMeta(r.Context()))
	if err != nil {
		handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toDepartmentResponse(dept))
}

func (h *Handler) getDepartment(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	dept, err := h.departments.Get(r.Context(), id)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toDepartmentResponse(dept))
}

func (h *Handler) listDepartments(w http.ResponseWriter, r *http.Request) {
	req, ok := parsePage(w, r)
	if !ok {
		return
	}

	page, err := h.departments.List(r.Context(), req)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toPageResponse(page, toDepartmentResponse))
}

func (h *Handler) renameDepartment(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	name, ok := decodeNameRequest(w, r)
	if !ok {
		return
	}

	dept, err := h.departments.Rename(r.Context(), id, name, actorMeta(r.Context()))
	if err != nil {
		handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toDepartmentResponse(dept))
}

func (h *Handler) deleteDepartment(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	deleted, err := h.departments.Delete(r.Context(), id, actorMeta(r.Context()))
	if err != nil {
		handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"deleted": deleted})
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	name, ok := decodeNameRequest(w, r)
	if !ok {
		return
	}

	cat, err := h.categories.Create(r.Context(), domain.Category{Name: name}, actorMeta(r.Context()))
	if err != nil {
		handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toCategoryResponse(cat))
}

func (h *Handler) getCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	cat, err := h.categories.Get(r.Context(), id)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toCategoryResponse(cat))
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	req, ok := parsePage(w, r)
	if !ok {
		return
	}

	page, err := h.categories.List(r.Context(), req)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toPageResponse(page, toCategoryResponse))
}

func (h *Handler) renameCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	name, ok := decodeNameRequest(w, r)
	if !ok {
		return
	}

	cat, err := h.categories.Rename(r.Context(), id, name, actorMeta(r.Context()))
	if err != nil {
		handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toCategoryResponse(cat))
}

func (h *Handler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	deleted, err := h.categories.Delete(r.Context(), id, actorMeta(r.Context()))
	if err != nil {
		handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"deleted": deleted})
}
