package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fleetward/control-plane/internal/auth"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireUserRejectsMissingAuthorizationHeader(t *testing.T) {
	signer := auth.NewJWTSigner("test-secret", 24)
	h := RequireUser(signer)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/endpoints", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with no Authorization header, got %d", rec.Code)
	}
}

func TestRequireUserRejectsMalformedToken(t *testing.T) {
	signer := auth.NewJWTSigner("test-secret", 24)
	h := RequireUser(signer)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/endpoints", nil)
	req.Header.Set("Authorization", "Bearer not-a-real-token")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a malformed token, got %d", rec.Code)
	}
}

func TestRequireUserAcceptsValidToken(t *testing.T) {
	signer := auth.NewJWTSigner("test-secret", 24)
	h := RequireUser(signer)(okHandler())

	tok, err := signer.Mint(auth.Principal{Role: "admin"})
	if err != nil {
		t.Fatalf("failed to mint test token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/endpoints", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for a valid token, got %d", rec.Code)
	}
}

func TestExtractBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, ok := extractBearerToken(req); ok {
		t.Fatalf("expected no token extracted with no Authorization header")
	}

	req.Header.Set("Authorization", "Basic deadbeef")
	if _, ok := extractBearerToken(req); ok {
		t.Fatalf("expected no token extracted for a non-Bearer scheme")
	}

	req.Header.Set("Authorization", "Bearer abc123")
	tok, ok := extractBearerToken(req)
	if !ok || tok != "abc123" {
		t.Fatalf("expected to extract token %q, got %q (ok=%v)", "abc123", tok, ok)
	}
}
