package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"kintai.org/internal/audit"
	"kintai.org/internal/auth"
	"kintai.org/internal/payroll"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// handleLogin exchanges credentials for a bearer token. Unknown user
// and wrong password answer with the same message so the endpoint does
// not leak which usernames exist.
func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"message": err.Error(),
		})
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"message": "username and password are required",
		})
		return
	}

	u, err := a.svc.FindUserForAuth(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, payroll.ErrNotFound) {
			a.loginRejected(w)
			return
		}
		a.handleServiceError(w, r, err)
		return
	}
	if err := auth.VerifyPassword(u.PasswordHash, req.Password); err != nil {
		a.loginRejected(w)
		return
	}

	roles, err := a.svc.RoleNamesForUser(r.Context(), u.ObjectID)
	if err != nil {
		a.handleServiceError(w, r, err)
		return
	}
	token, err := auth.GenerateToken(u.ObjectID, u.Username, roles, auth.DefaultTokenTTL)
	if err != nil {
		a.handleServiceError(w, r, err)
		return
	}

	ctx := audit.WithRequestID(r.Context(), RequestIDFromContext(r.Context()))
	ctx = auth.ContextWithUser(ctx, u.ObjectID, u.Username, roles)
	_ = audit.LogEvent(ctx, "auth.login", nil)

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Login successful",
		"token":   token,
		"user": map[string]any{
			"objectid": u.ObjectID,
			"username": u.Username,
			"email":    u.Email,
			"roles":    roles,
		},
	})
}

func (a *API) loginRejected(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, map[string]any{
		"success": false,
		"message": "Invalid username or password",
	})
}
