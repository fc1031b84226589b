// Package store implements the repository layer: one file per entity,
// each a thin wrapper over hand-written SQL against pgx. Repositories
// accept a Querier so callers can run a sequence of statements inside a
// single transaction where an invariant requires it (see the Tokens
// try-use + endpoint upsert pairing in the enrollment service).
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is satisfied by both *pgxpool.Pool and pgx.Tx, letting repo
// methods run standalone or inside a caller-managed transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// Organization is a tenancy root: billing tier and device quota.
type Organization struct {
	ID         uuid.UUID
	Name       string
	LicenseKey string
	Tier       string
	MaxAgents  int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// User is a human principal scoped to an organization.
type User struct {
	ID           uuid.UUID
	OrgID        uuid.UUID
	Email        string
	PasswordHash string
	Name         *string
	Role         string
	IsActive     bool
	LastLogin    *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Endpoint is a hardware-id-bound agent record.
type Endpoint struct {
	ID              uuid.UUID
	OrgID           uuid.UUID
	Hwid            string
	Hostname        string
	OSType          *string
	OSVersion       *string
	AgentVersion    *string
	IPAddress       *string
	TokenHash       *string
	LastHeartbeat   *time.Time
	Status          string
	BaselineHash    *string
	BaselineVersion int
	PolicyVersion   int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OrganizationToken is an org-scoped enrollment secret.
type OrganizationToken struct {
	ID         uuid.UUID
	OrgID      uuid.UUID
	TokenValue string
	Name       string
	ExpiresAt  *time.Time
	MaxUses    *int
	UsesCount  int
	IsActive   bool
	CreatedBy  *uuid.UUID
	RevokedAt  *time.Time
	CreatedAt  time.Time
}

// Policy is a versioned per-tenant configuration document.
type Policy struct {
	ID          uuid.UUID
	OrgID       uuid.UUID
	Name        string
	Description *string
	Config      json.RawMessage
	Version     int
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Baseline is the per-endpoint behavioral model, one row per endpoint.
type Baseline struct {
	ID             uuid.UUID
	EndpointID     uuid.UUID
	MeanValues     json.RawMessage
	VarianceValues json.RawMessage
	SampleCount    int64
	Version        int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Incident is a detection event with a client-chosen idempotency key.
type Incident struct {
	ID              uuid.UUID
	EndpointID      uuid.UUID
	Severity        string
	Title           string
	Description     *string
	MitreTechniques json.RawMessage
	ThreatClass     *string
	Confidence      *float32
	Status          string
	AssignedTo      *uuid.UUID
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ResolvedAt      *time.Time
}

// IncidentFilter narrows IncidentRepo.ListByOrg.
type IncidentFilter struct {
	Status     string
	Severity   string
	EndpointID *uuid.UUID
	Limit      int64
	Offset     int64
}

// HeartbeatSample is one append-only row of agent resource metrics.
type HeartbeatSample struct {
	ID            int64
	EndpointID    uuid.UUID
	CPUUsage      *float32
	MemoryUsage   *float32
	DiskUsage     *float32
	IncidentCount *int
	ProcessCount  *int
	RecordedAt    time.Time
}

// AuditLogEntry is an append-only record of an admin-authorized mutation.
type AuditLogEntry struct {
	ID           int64
	OrgID        uuid.UUID
	UserID       *uuid.UUID
	Action       string
	ResourceType string
	ResourceID   *uuid.UUID
	Details      json.RawMessage
	IPAddress    string
	CreatedAt    time.Time
}
