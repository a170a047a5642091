package auth

import (
	"context"
	"net/http"

	"fillsession/pkg/config"
)

type ctxOwnerKey struct{}
type ctxRoleKey struct{}

// Roles resolved from API keys. Frontend callers must additionally prove
// the owner identity with an HMAC signature; backend/admin callers are
// trusted to assert it.
const (
	RoleFrontend = "frontend"
	RoleBackend  = "backend"
	RoleAdmin    = "admin"
)

// OwnerIDFromContext returns the verified owner id, or "".
func OwnerIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxOwnerKey{}).(string); ok {
		return v
	}
	return ""
}

// RoleFromContext returns the resolved caller role, or "".
func RoleFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxRoleKey{}).(string); ok {
		return v
	}
	return ""
}

func withOwner(ctx context.Context, owner string) context.Context {
	return context.WithValue(ctx, ctxOwnerKey{}, owner)
}

func withRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, ctxRoleKey{}, role)
}

// ResolveRole maps the X-API-Key header onto a caller role using the
// configured key sets. Requests without a recognized key are rejected.
func ResolveRole(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("X-API-Key")
		var role string
		switch {
		case keyIn(key, config.GetAdminKeys()):
			role = RoleAdmin
		case keyIn(key, config.GetBackendKeys()):
			role = RoleBackend
		case keyIn(key, config.GetFrontendKeys()):
			role = RoleFrontend
		default:
			http.Error(w, `{"error":"missing or unknown api key"}`, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(withRole(r.Context(), role)))
	})
}

func keyIn(key string, set map[string]struct{}) bool {
	if key == "" {
		return false
	}
	_, ok := set[key]
	return ok
}
