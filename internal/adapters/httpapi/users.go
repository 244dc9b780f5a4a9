package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/atvirokodosprendimai/stockapi/internal/core/domain"
	"github.com/atvirokodosprendimai/stockapi/internal/core/usecase"
)

type createUserRequest struct {
	Username string  `json:"username"`
	Password string  `json:"password"`
	RoleIDs  []int64 `json:"roleIds"`
}

// updateUserRequest: a nil RoleIDs slice leaves memberships alone, an empty
// one revokes every role.
type updateUserRequest struct {
	Username *string `json:"username"`
	Password *string `json:"password"`
	RoleIDs  []int64 `json:"roleIds"`
}

type userResponse struct {
	ID        int64          `json:"id"`
	Username  string         `json:"username"`
	Roles     []roleResponse `json:"roles"`
	CreatedAt string         `json:"createdAt"`
	UpdatedAt string         `json:"updatedAt"`
}

type createRoleRequest struct {
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	PermissionIDs []int64 `json:"permissionIds"`
}

type updateRoleRequest struct {
	Name          *string `json:"name"`
	Description   *string `json:"description"`
	PermissionIDs []int64 `json:"permissionIds"`
}

type roleResponse struct {
	ID          int64                `json:"id"`
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Permissions []permissionResponse `json:"permissions"`
	CreatedAt   string               `json:"createdAt"`
	UpdatedAt   string               `json:"updatedAt"`
}

type permissionResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func toUserResponse(user domain.User) userResponse {
	roles := make([]roleResponse, 0, len(user.Roles))
	for _, role := range user.Roles {
		roles = append(roles, toRoleResponse(role))
	}
	return userResponse{
		ID:        user.ID,
		Username:  user.Username,
		Roles:     roles,
		CreatedAt: user.CreatedAt.UTC().Format(timeFormat),
		UpdatedAt: user.UpdatedAt.UTC().Format(timeFormat),
	}
}

func toRoleResponse(role domain.Role) roleResponse {
	perms := make([]permissionResponse, 0, len(role.Permissions))
	for _, perm := range role.Permissions {
		perms = append(perms, permissionResponse{ID: perm.ID, Name: perm.Name, Description: perm.Description})
	}
	return roleResponse{
		ID:          role.ID,
		Name:        role.Name,
		Description: role.Description,
		Permissions: perms,
		CreatedAt:   role.CreatedAt.UTC().Format(timeFormat),
		UpdatedAt:   role.UpdatedAt.UTC().Format(timeFormat),
	}
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	raw, ok := readBody(w, r, "user_create")
	if !ok {
		return
	}
	var req createUserRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	user, err := h.users.Create(r.Context(), req.Username, req.Password, req.RoleIDs, actorMeta(r.Context()))
	if err != nil {
		handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toUserResponse(user))
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	user, err := h.users.Get(r.Context(), id)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	req, ok := parsePage(w, r)
	if !ok {
		return
	}

	page, err := h.users.List(r.Context(), req)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toPageResponse(page, toUserResponse))
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	raw, ok := readBody(w, r, "user_update")
	if !ok {
		return
	}
	var req updateUserRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	patch := usecase.UserPatch{Username: req.Username, Password: req.Password}
	user, err := h.users.Update(r.Context(), id, patch, req.RoleIDs, actorMeta(r.Context()))
	if err != nil {
		handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	deleted, err := h.users.Delete(r.Context(), id, actorMeta(r.Context()))
	if err != nil {
		handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"deleted": deleted})
}

func (h *Handler) createRole(w http.ResponseWriter, r *http.Request) {
	raw, ok := readBody(w, r, "role_create")
	if !ok {
		return
	}
	var req createRoleRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	role, err := h.roles.Create(r.Context(), domain.Role{
		Name:        req.Name,
		Description: req.Description,
	}, req.PermissionIDs, actorMeta(r.Context()))
	if err != nil {
		handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toRoleResponse(role))
}

func (h *Handler) getRole(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	role, err := h.roles.Get(r.Context(), id)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toRoleResponse(role))
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	req, ok := parsePage(w, r)
	if !ok {
		return
	}

	page, err := h.roles.List(r.Context(), req)
	if err != nil {
		handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toPageResponse(page, toRoleResponse))
}

func (h *Handler) updateRole(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	raw, ok := readBody(w, r, "role_update")
	if !ok {
		return
	}
	var req updateRoleRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	patch := domain.RoleUpdate{Name: req.Name, Description: req.Description}
	role, err := h.roles.Update(r.Context(), id, patch, req.PermissionIDs, actorMeta(r.Context()))
	if err != nil {
		handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toRoleResponse(role))
}

func (h *Handler) deleteRole(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	deleted, err := h.roles.Delete(r.Context(), id, actorMeta(r.Context()))
	if err != nil {
		handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"deleted": deleted})
}
