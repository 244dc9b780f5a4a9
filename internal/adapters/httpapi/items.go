package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/atvirokodosprendimai/stockapi/internal/core/domain"
)

type createItemRequest struct {
	Name         string  `json:"name"`
	Quantity     *int    `json:"quantity"`
	Unit         *string `json:"unit"`
	CategoryID   *int64  `json:"categoryId"`
	DepartmentID int64   `json:"departmentId"`
}

// updateItemRequest keeps categoryId as raw JSON so an explicit null (detach
// the category) can be told apart from an absent key (leave it alone).
type updateItemRequest struct {
	Name         *string         `json:"name"`
	Quantity     *int            `json:"quantity"`
	Unit         *string         `json:"unit"`
	CategoryID   json.RawMessage `json:"categoryId"`
	DepartmentID *int64          `json:"departmentId"`
}

type itemResponse struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Quantity     int    `json:"quantity"`
	Unit         string `json:"unit"`
	CategoryID   *int64 `json:"categoryId"`
	DepartmentID int64  `json:"departmentId"`
	CreatedAt    string `json:"createdAt"`
	UpdatedAt    string `json:"updatedAt"`
}

func toItemResponse(item domain.Item) itemResponse {
	return itemResponse{
		ID:           item.ID,
		Name:         item.Name,
		Quantity:     item.Quantity,
		Unit:         string(item.Unit),
		CategoryID:   item.CategoryID,
		DepartmentID: item.DepartmentID,
		CreatedAt:    item.CreatedAt.UTC().Format(timeFormat),
		UpdatedAt:    item.UpdatedAt.UTC().Format(timeFormat),
	}
}

type pageResponse[T any] struct {
	Data        []T   `json:"data"`
	Total       int64 `json:"total"`
	TotalPages  int   `json:"totalPages"`
	CurrentPage int   `json:"currentPage"`
}

func toPageResponse[D, T any](page domain.Page[D], convert func(D) T) pageResponse[T] {
	data := make([]T, 0, len(page.Data))
	for _, entry := range page.Data {
		data = append(data, convert(entry))
	}
	return pageResponse[T]{
		Data:        data,
		Total:       page.Total,
		TotalPages:  page.TotalPages,
		CurrentPage: page.CurrentPage,
	}
}

func (h *Handler) createItem(w http.ResponseWriter, r *http.Request) {
	raw, ok := readBody(w, r, "item_create")
	if !ok {
		return
	}
	var req createItemRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	item := domain.Item{
		Name:         req.Name,
		CategoryID:   req.CategoryID,
		DepartmentID: req.DepartmentID,
	}
	if req.Quantity != nil {
		item.Quantity = *req.Quantity
	}
	if req.Unit != nil {
		item.Unit = domain.UnitType(*req.Unit)
	}

	created, err := h.items.Create(r.Context(), item, actorMeta(r.Context()))
	if err != nil {
		handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toItemResponse(created))
}

func (h *Handler) getItem(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	item, err := h.items.Get(r.Context(), id)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toItemResponse(item))
}

func (h *Handler) listItems(w http.ResponseWriter, r *http.Request) {
	req, ok := parsePage(w, r)
	if !ok {
		return
	}

	page, err := h.items.List(r.Context(), req)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toPageResponse(page, toItemResponse))
}

func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	raw, ok := readBody(w, r, "item_update")
	if !ok {
		return
	}
	var req updateItemRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	patch := domain.ItemUpdate{
		Name:         req.Name,
		Quantity:     req.Quantity,
		DepartmentID: req.DepartmentID,
	}
	if req.Unit != nil {
		unit := domain.UnitType(*req.Unit)
		patch.Unit = &unit
	}
	if len(req.CategoryID) > 0 {
		patch.CategoryID.Set = true
		if string(req.CategoryID) != "null" {
			var categoryID int64
			if err := json.Unmarshal(req.CategoryID, &categoryID); err != nil {
				writeError(w, http.StatusBadRequest, "categoryId must be an integer or null")
				return
			}
			patch.CategoryID.ID = &categoryID
		}
	}

	updated, err := h.items.Update(r.Context(), id, patch, actorMeta(r.Context()))
	if err != nil {
		handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toItemResponse(updated))
}

func (h *Handler) deleteItem(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	deleted, err := h.items.Delete(r.Context(), id, actorMeta(r.Context()))
	if err != nil {
		handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"deleted": deleted})
}
