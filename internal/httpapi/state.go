// Package httpapi wires the HTTP transport: routing, middleware, and
// request/response translation for the service layer in internal/service.
package httpapi

import (
	"encoding/json"
	"net"
	"net/http"

	"github.com/fleetward/control-plane/internal/apperr"
	"github.com/fleetward/control-plane/internal/auth"
	"github.com/fleetward/control-plane/internal/service"
	"github.com/fleetward/control-plane/internal/store"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Server holds every dependency a handler might need. No module-level
// mutable singleton — every handler closes over this one value.
type Server struct {
	DB *pgxpool.Pool

	Signer      auth.JWTSigner
	AgentSecret string

	Orgs      *store.OrganizationRepo
	Users     *store.UserRepo
	Endpoints *store.EndpointRepo

	Enrollment    *service.EnrollmentService
	Heartbeat     *service.HeartbeatService
	Sync          *service.SyncService
	Policies      *service.PolicyService
	Tokens        *service.TokenService
	Reports       *service.ReportService
	Organizations *service.OrganizationService
	EndpointAdmin *service.EndpointAdminService
	IncidentAdmin *service.IncidentAdminService
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	apperr.WriteHTTP(w, r, err)
}

func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperr.Validation("Malformed request body")
	}
	return nil
}

// clientIP strips the port from r.RemoteAddr so it binds cleanly to
// the audit log's INET column; addresses with no port (or bearing a
// proxy value the standard library can't split) pass through as-is.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
