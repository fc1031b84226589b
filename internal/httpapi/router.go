package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
)

// Routes builds the full HTTP handler: ambient middleware, then the
// three authentication surfaces (public, agent, user), all mounted
// under /api/v1.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(CorrelationMiddleware)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Correlation-ID"},
		AllowCredentials: false,
	})
	r.Use(c.Handler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Public: no authentication.
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/register", s.handleRegisterOrg)
		r.Post("/personal/enroll", s.handlePersonalEnroll)
		r.Post("/agent/register", s.handleLegacyRegister)
		r.Post("/agent/enroll", s.handleOrgEnroll)

		// Agent: bearer token = endpoint's rotating secret.
		r.Group(func(r chi.Router) {
			r.Use(RequireAgent(s.Endpoints))
			r.Post("/agent/heartbeat", s.handleHeartbeat)
			r.Post("/agent/sync/baseline", s.handleSyncBaseline)
			r.Post("/agent/sync/incidents", s.handleSyncIncidents)
			r.Get("/agent/policy", s.handleAgentPolicy)
		})

		// User: bearer token = session JWT.
		r.Group(func(r chi.Router) {
			r.Use(RequireUser(s.Signer))

			r.Get("/endpoints", s.handleListEndpoints)
			r.Get("/endpoints/{id}", s.handleGetEndpoint)
			r.Delete("/endpoints/{id}", s.handleDeleteEndpoint)

			r.Get("/incidents", s.handleListIncidents)
			r.Get("/incidents/{id}", s.handleGetIncident)
			r.Patch("/incidents/{id}", s.handleUpdateIncident)

			r.Get("/policies", s.handleListPolicies)
			r.Post("/policies", s.handleCreatePolicy)
			r.Get("/policies/{id}", s.handleGetPolicy)
			r.Put("/policies/{id}", s.handleUpdatePolicy)

			r.Get("/tokens", s.handleListTokens)
			r.Post("/tokens", s.handleCreateToken)
			r.Get("/tokens/{id}", s.handleGetToken)
			r.Delete("/tokens/{id}", s.handleRevokeToken)

			r.Get("/organization", s.handleGetOrganization)

			r.Get("/reports/executive", s.handleExecutiveReport)
			r.Get("/reports/compliance", s.handleComplianceReport)
		})
	})

	return r
}
