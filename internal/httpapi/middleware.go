package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/fleetward/control-plane/internal/apperr"
	"github.com/fleetward/control-plane/internal/auth"
	"github.com/fleetward/control-plane/internal/service"
	"github.com/fleetward/control-plane/internal/store"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type ctxKey int

const (
	ctxKeyCorrelationID ctxKey = iota
	ctxKeyPrincipal
	ctxKeyEndpoint
)

// CorrelationMiddleware assigns a request-scoped correlation id — reusing
// X-Correlation-ID if the caller supplied one — and enriches the request's
// logger with it for the lifetime of the request.
func CorrelationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cid := r.Header.Get("X-Correlation-ID")
		if cid == "" {
			cid = uuid.NewString()
		}
		w.Header().Set("X-Correlation-ID", cid)

		logger := log.With().Str("correlation_id", cid).Logger()
		ctx := logger.WithContext(r.Context())
		ctx = context.WithValue(ctx, ctxKeyCorrelationID, cid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractBearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return "", false
	}
	return strings.TrimPrefix(h, "Bearer "), true
}

// RequireUser verifies the session JWT and stores the resulting
// Principal in the request context. Any verification failure collapses
// to a single 401 — the client never learns which step failed.
func RequireUser(signer auth.JWTSigner) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok, ok := extractBearerToken(r)
			if !ok {
				writeError(w, r, apperr.Unauthorized())
				return
			}
			principal, err := signer.Verify(tok)
			if err != nil {
				writeError(w, r, apperr.TokenInvalid())
				return
			}
			logger := zerolog.Ctx(r.Context()).With().Str("user_id", principal.UserID.String()).Str("org_id", principal.OrgID.String()).Logger()
			ctx := logger.WithContext(r.Context())
			ctx = context.WithValue(ctx, ctxKeyPrincipal, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAgent resolves the bearer token to an endpoint record and
// stores it in the request context. Unknown hash -> 401, the agent's
// signal to re-enroll.
func RequireAgent(endpoints *store.EndpointRepo) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok, ok := extractBearerToken(r)
			if !ok {
				writeError(w, r, apperr.Unauthorized())
				return
			}
			hash := auth.HashBearerToken(tok)
			ep, err := service.Authenticate(r.Context(), endpoints, hash)
			if err != nil {
				writeError(w, r, err)
				return
			}
			logger := zerolog.Ctx(r.Context()).With().Str("endpoint_id", ep.ID.String()).Logger()
			ctx := logger.WithContext(r.Context())
			ctx = context.WithValue(ctx, ctxKeyEndpoint, ep)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func principalFromContext(ctx context.Context) (auth.Principal, bool) {
	p, ok := ctx.Value(ctxKeyPrincipal).(auth.Principal)
	return p, ok
}

func endpointFromContext(ctx context.Context) (*store.Endpoint, bool) {
	ep, ok := ctx.Value(ctxKeyEndpoint).(*store.Endpoint)
	return ep, ok
}
