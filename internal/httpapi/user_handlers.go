package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"kintai.org/internal/audit"
	"kintai.org/internal/payroll"
)

// The user endpoints answer in an envelope ({success, message, data})
// while the rest of the API returns records directly. Clients depend on
// the difference, so it stays.

func respondData(w http.ResponseWriter, code int, message string, data any) {
	writeJSON(w, code, map[string]any{
		"success": true,
		"message": message,
		"data":    data,
	})
}

func respondFailure(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{
		"success": false,
		"error":   msg,
	})
}

func (a *API) handleUserServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, payroll.ErrInvalidInput):
		respondFailure(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, payroll.ErrConflict):
		respondFailure(w, http.StatusConflict, err.Error())
	case errors.Is(err, payroll.ErrNotFound):
		respondFailure(w, http.StatusNotFound, err.Error())
	default:
		msg := "internal error"
		if a.env == "development" {
			msg = err.Error()
		}
		respondFailure(w, http.StatusInternalServerError, msg)
	}
}

func (a *API) handleUsersCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listUsers(w, r)
	case http.MethodPost:
		a.createUser(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleUserResource(w http.ResponseWriter, r *http.Request) {
	id, rest := resourceID(r.URL.Path, "/api/users/")
	if id == "" {
		respondFailure(w, http.StatusNotFound, "resource not found")
		return
	}

	if rest == "roles" {
		a.handleUserRoles(w, r, id)
		return
	}
	if rest != "" {
		respondFailure(w, http.StatusNotFound, "resource not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		a.getUser(w, r, id)
	case http.MethodPut:
		a.updateUser(w, r, id)
	case http.MethodDelete:
		a.deleteUser(w, r, id)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut, http.MethodDelete)
	}
}

func (a *API) listUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := payroll.ListUsersOptions{
		Search:    q.Get("search"),
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			respondFailure(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		opts.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			respondFailure(w, http.StatusBadRequest, "offset must be an integer")
			return
		}
		opts.Offset = n
	}

	page, err := a.svc.ListUsers(r.Context(), opts)
	if err != nil {
		a.handleUserServiceError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, "Users retrieved", page)
}

func (a *API) createUser(w http.ResponseWriter, r *http.Request) {
	var req payroll.NewUser
	if err := decodeJSON(w, r, &req); err != nil {
		respondFailure(w, http.StatusBadRequest, err.Error())
		return
	}
	u, err := a.svc.CreateUser(r.Context(), req)
	if err != nil {
		a.handleUserServiceError(w, r, err)
		return
	}
	ctx := audit.WithRequestID(r.Context(), RequestIDFromContext(r.Context()))
	_ = audit.LogEvent(ctx, "user.created", map[string]any{"user": u.ObjectID})
	respondData(w, http.StatusCreated, "User created", u)
}

func (a *API) getUser(w http.ResponseWriter, r *http.Request, id string) {
	u, err := a.svc.GetUser(r.Context(), id)
	if err != nil {
		a.handleUserServiceError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, "User retrieved", u)
}

func (a *API) updateUser(w http.ResponseWriter, r *http.Request, id string) {
	var req payroll.UserUpdate
	if err := decodeJSON(w, r, &req); err != nil {
		respondFailure(w, http.StatusBadRequest, err.Error())
		return
	}
	u, err := a.svc.UpdateUser(r.Context(), id, req)
	if err != nil {
		a.handleUserServiceError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, "User updated", u)
}

func (a *API) deleteUser(w http.ResponseWriter, r *http.Request, id string) {
	if err := a.svc.DeleteUser(r.Context(), id); err != nil {
		a.handleUserServiceError(w, r, err)
		return
	}
	respondData(w, http.StatusOK, "User deleted", nil)
}

type assignRoleRequest struct {
	RoleID string `json:"roleId"`
}

// handleUserRoles serves /api/users/{id}/roles: POST links a role,
// GET lists the user's role names.
func (a *API) handleUserRoles(w http.ResponseWriter, r *http.Request, userID string) {
	switch r.Method {
	case http.MethodPost:
		var req assignRoleRequest
		if err := decodeJSON(w, r, &req); err != nil {
			respondFailure(w, http.StatusBadRequest, err.Error())
			return
		}
		if req.RoleID == "" {
			respondFailure(w, http.StatusBadRequest, "roleId is required")
			return
		}
		if err := a.svc.AssignRole(r.Context(), userID, req.RoleID); err != nil {
			a.handleUserServiceError(w, r, err)
			return
		}
		respondData(w, http.StatusOK, "Role assigned", nil)
	case http.MethodGet:
		names, err := a.svc.RoleNamesForUser(r.Context(), userID)
		if err != nil {
			a.handleUserServiceError(w, r, err)
			return
		}
		if names == nil {
			names = []string{}
		}
		respondData(w, http.StatusOK, "Roles retrieved", names)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}
