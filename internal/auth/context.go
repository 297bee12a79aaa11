package auth

import (
	"context"
	"strings"
)

type ctxKey string

const (
	userIDKey   ctxKey = "auth_user_id"
	usernameKey ctxKey = "auth_username"
	rolesKey    ctxKey = "auth_roles"
)

// ContextWithUser stores the authenticated identity in the context.
func ContextWithUser(ctx context.Context, userID, username string, roles []string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, strings.TrimSpace(userID))
	if username = strings.TrimSpace(username); username != "" {
		ctx = context.WithValue(ctx, usernameKey, username)
	}
	if len(roles) > 0 {
		ctx = context.WithValue(ctx, rolesKey, dedupeRoles(roles))
	}
	return ctx
}

// UserIDFromContext extracts the authenticated user's objectid.
func UserIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(userIDKey).(string)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}

// UsernameFromContext extracts the authenticated username.
func UsernameFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(usernameKey).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// RolesFromContext returns the role names attached to the context.
func RolesFromContext(ctx context.Context) []string {
	v, ok := ctx.Value(rolesKey).([]string)
	if !ok || len(v) == 0 {
		return nil
	}
	out := make([]string, len(v))
	copy(out, v)
	return out
}

// HasAnyRole reports whether the context holds at least one of the
// required roles. An empty required set always passes.
func HasAnyRole(ctx context.Context, required ...string) bool {
	if len(required) == 0 {
		return true
	}
	held := RolesFromContext(ctx)
	for _, want := range required {
		for _, have := range held {
			if have == want {
				return true
			}
		}
	}
	return false
}
