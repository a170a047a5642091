package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"fillsession/pkg/config"
	"fillsession/pkg/logger"
)

// RequireSignedOwner verifies the HMAC signature headers and injects the
// verified owner id into the request context. Backend and admin callers
// may assert X-User-ID without a signature; frontend callers must sign.
func RequireSignedOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role := RoleFromContext(r.Context())
		userID := strings.TrimSpace(r.Header.Get("X-User-ID"))
		sig := strings.TrimSpace(r.Header.Get("X-User-Signature"))

		if (role == RoleBackend || role == RoleAdmin) && sig == "" {
			if userID == "" {
				http.Error(w, `{"error":"x-user-id required"}`, http.StatusBadRequest)
				return
			}
			next.ServeHTTP(w, r.WithContext(withOwner(r.Context(), userID)))
			return
		}

		if sig == "" || userID == "" {
			logger.Warn("missing_signature_headers", "path", r.URL.Path, "remote", r.RemoteAddr)
			http.Error(w, `{"error":"missing signature headers"}`, http.StatusUnauthorized)
			return
		}

		keys := config.GetSigningKeys()
		if len(keys) == 0 {
			logger.Error("no_signing_keys_configured")
			http.Error(w, `{"error":"server misconfigured: no signing secrets available"}`, http.StatusInternalServerError)
			return
		}
		if !verifySignature(keys, userID, sig) {
			logger.Warn("invalid_signature", "path", r.URL.Path, "user", userID)
			http.Error(w, `{"error":"invalid signature"}`, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(withOwner(r.Context(), userID)))
	})
}

// verifySignature accepts a signature produced with any configured key so
// keys can be rotated without cutting off in-flight clients.
func verifySignature(keys map[string]struct{}, userID, sig string) bool {
	provided, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	for k := range keys {
		mac := hmac.New(sha256.New, []byte(k))
		mac.Write([]byte(userID))
		if hmac.Equal(mac.Sum(nil), provided) {
			return true
		}
	}
	return false
}

// SignOwner computes the hex HMAC-SHA256 signature for an owner id.
// Exported for test servers and trusted tooling.
func SignOwner(key, userID string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(userID))
	return hex.EncodeToString(mac.Sum(nil))
}
