package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"fillsession/pkg/config"
)

func setupKeys(t *testing.T) {
	t.Helper()
	config.SetRuntime(&config.RuntimeConfig{
		BackendKeys:  map[string]struct{}{"backend-secret": {}},
		FrontendKeys: map[string]struct{}{"frontend-secret": {}},
		AdminKeys:    map[string]struct{}{"admin-secret": {}},
		SigningKeys:  map[string]struct{}{"signsecret": {}},
	})
	t.Cleanup(func() { config.SetRuntime(&config.RuntimeConfig{}) })
}

func echoOwner() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(OwnerIDFromContext(r.Context())))
	})
}

func do(t *testing.T, h http.Handler, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("GET", "/v1/sessions", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestResolveRole_UnknownKeyRejected(t *testing.T) {
	setupKeys(t)
	h := ResolveRole(echoOwner())
	if rec := do(t, h, nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no key: expected 401, got %d", rec.Code)
	}
	if rec := do(t, h, map[string]string{"X-API-Key": "nope"}); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad key: expected 401, got %d", rec.Code)
	}
}

func TestRequireSignedOwner_FrontendNeedsSignature(t *testing.T) {
	setupKeys(t)
	h := ResolveRole(RequireSignedOwner(echoOwner()))

	rec := do(t, h, map[string]string{
		"X-API-Key": "frontend-secret",
		"X-User-ID": "alice",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unsigned frontend: expected 401, got %d", rec.Code)
	}

	rec = do(t, h, map[string]string{
		"X-API-Key":        "frontend-secret",
		"X-User-ID":        "alice",
		"X-User-Signature": SignOwner("signsecret", "alice"),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("signed frontend: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != "alice" {
		t.Fatalf("owner not injected: %q", rec.Body.String())
	}

	rec = do(t, h, map[string]string{
		"X-API-Key":        "frontend-secret",
		"X-User-ID":        "alice",
		"X-User-Signature": SignOwner("wrongkey", "alice"),
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong key signature: expected 401, got %d", rec.Code)
	}
}

func TestRequireSignedOwner_BackendMayAssert(t *testing.T) {
	setupKeys(t)
	h := ResolveRole(RequireSignedOwner(echoOwner()))

	rec := do(t, h, map[string]string{
		"X-API-Key": "backend-secret",
		"X-User-ID": "bob",
	})
	if rec.Code != http.StatusOK || rec.Body.String() != "bob" {
		t.Fatalf("backend assert failed: %d %q", rec.Code, rec.Body.String())
	}

	rec = do(t, h, map[string]string{"X-API-Key": "backend-secret"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("backend without user id: expected 400, got %d", rec.Code)
	}
}

func TestRequireSignedOwner_SignedBackendStillVerified(t *testing.T) {
	setupKeys(t)
	h := ResolveRole(RequireSignedOwner(echoOwner()))
	rec := do(t, h, map[string]string{
		"X-API-Key":        "backend-secret",
		"X-User-ID":        "bob",
		"X-User-Signature": "deadbeef",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad signature must fail even for backend, got %d", rec.Code)
	}
}

func TestRateLimitByOwner(t *testing.T) {
	setupKeys(t)
	h := RateLimitByOwner(1, 2)(echoOwner())
	req := httptest.NewRequest("GET", "/v1/sessions", nil)
	req = req.WithContext(withOwner(req.Context(), "alice"))

	var limited bool
	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code == http.StatusTooManyRequests {
			limited = true
		}
	}
	if !limited {
		t.Fatalf("burst of 5 with burst=2 never rate limited")
	}
}
