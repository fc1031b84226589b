package httpapi

import (
	"context"
	"os"
	"testing"

	"github.com/fleetward/control-plane/internal/auth"
	"github.com/fleetward/control-plane/internal/db"
	"github.com/fleetward/control-plane/internal/service"
	"github.com/fleetward/control-plane/internal/store"
	"github.com/jackc/pgx/v5/pgxpool"
)

// getTestDB connects to TEST_DATABASE_URL and resets every fleet table.
// Tests that need a live Postgres skip themselves when it is unset.
func getTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration tests")
	}

	pool, err := db.Open(context.Background(), dbURL)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}
	if err := db.Migrate(context.Background(), pool); err != nil {
		t.Fatalf("failed to apply schema: %v", err)
	}

	for _, table := range []string{
		"heartbeat_history", "audit_log", "incidents", "baselines",
		"policies", "organization_tokens", "endpoints", "users", "organizations",
	} {
		if _, err := pool.Exec(context.Background(), "DELETE FROM "+table); err != nil {
			t.Fatalf("failed to clean table %s: %v", table, err)
		}
	}

	return pool
}

func newTestServer(pool *pgxpool.Pool) *Server {
	orgs := store.NewOrganizationRepo(pool)
	users := store.NewUserRepo(pool)
	endpoints := store.NewEndpointRepo(pool)
	tokens := store.NewTokenRepo(pool)
	policies := store.NewPolicyRepo(pool)
	baselines := store.NewBaselineRepo(pool)
	incidents := store.NewIncidentRepo(pool)
	heartbeats := store.NewHeartbeatRepo(pool)
	audit := store.NewAuditRepo(pool)

	signer := auth.NewJWTSigner("test-jwt-secret", 24)

	return &Server{
		DB: pool, Signer: signer, AgentSecret: "test-agent-secret",
		Orgs: orgs, Users: users, Endpoints: endpoints,
		Enrollment: &service.EnrollmentService{
			DB: pool, Orgs: orgs, Users: users, Endpoints: endpoints,
			Tokens: tokens, Audit: audit, Signer: signer, AgentSecret: "test-agent-secret",
		},
		Heartbeat: &service.HeartbeatService{
			Endpoints: endpoints, Policies: policies, History: heartbeats, Queue: service.NoopCommandQueue{},
		},
		Sync:          &service.SyncService{Baselines: baselines, Incidents: incidents, Endpoints: endpoints},
		Policies:      &service.PolicyService{Policies: policies, Audit: audit},
		Tokens:        &service.TokenService{Orgs: orgs, Tokens: tokens, Audit: audit},
		Reports:       &service.ReportService{Endpoints: endpoints, Incidents: incidents},
		Organizations: &service.OrganizationService{Orgs: orgs},
		EndpointAdmin: &service.EndpointAdminService{Endpoints: endpoints, Audit: audit},
		IncidentAdmin: &service.IncidentAdminService{Incidents: incidents, Endpoints: endpoints, Audit: audit},
	}
}
