package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// IncidentRepo persists Incident rows, keyed by the client-chosen id.
type IncidentRepo struct {
	DB Querier
}

func NewIncidentRepo(db Querier) *IncidentRepo { return &IncidentRepo{DB: db} }

const incidentColumns = `id, endpoint_id, severity, title, description, mitre_techniques, threat_class, confidence, status, assigned_to, created_at, updated_at, resolved_at`

// Create inserts a new incident, or — if id already exists — updates
// severity/title/description/updated_at only. The client-chosen id is
// the idempotency key: re-sending the same batch is safe.
func (r *IncidentRepo) Create(ctx context.Context, id, endpointID uuid.UUID, severity, title string, description *string, mitre json.RawMessage, threatClass *string, confidence *float32, createdAt time.Time) (*Incident, error) {
	row := r.DB.QueryRow(ctx, `
		INSERT INTO incidents (id, endpoint_id, severity, title, description, mitre_techniques, threat_class, confidence, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
		    severity = EXCLUDED.severity,
		    title = EXCLUDED.title,
		    description = EXCLUDED.description,
		    updated_at = NOW()
		RETURNING `+incidentColumns,
		id, endpointID, severity, title, description, mitre, threatClass, confidence, createdAt)
	return scanIncident(row)
}

func (r *IncidentRepo) FindByID(ctx context.Context, id uuid.UUID) (*Incident, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+incidentColumns+` FROM incidents WHERE id = $1`, id)
	inc, err := scanIncident(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return inc, err
}

// ListByOrg lists incidents for endpoints owned by orgID, tenant-scoped
// via the endpoint join, optionally filtered by status/severity/endpoint.
func (r *IncidentRepo) ListByOrg(ctx context.Context, orgID uuid.UUID, f IncidentFilter) ([]*Incident, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT i.id, i.endpoint_id, i.severity, i.title, i.description, i.mitre_techniques,
		       i.threat_class, i.confidence, i.status, i.assigned_to, i.created_at, i.updated_at, i.resolved_at
		FROM incidents i
		JOIN endpoints e ON i.endpoint_id = e.id
		WHERE e.org_id = $1
		  AND ($2 = '' OR i.status = $2)
		  AND ($3 = '' OR i.severity = $3)
		  AND ($4::uuid IS NULL OR i.endpoint_id = $4)
		ORDER BY i.created_at DESC
		LIMIT $5 OFFSET $6
	`
	rows, err := r.DB.Query(ctx, query, orgID, f.Status, f.Severity, f.EndpointID, limit, f.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Incident
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inc)
	}
	return out, rows.Err()
}

func (r *IncidentRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string, assignedTo *uuid.UUID) (*Incident, error) {
	row := r.DB.QueryRow(ctx, `
		UPDATE incidents
		SET status = $2, assigned_to = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING `+incidentColumns,
		id, status, assignedTo)
	inc, err := scanIncident(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return inc, err
}

// CountBySeverity returns the count of currently-open incidents grouped
// by severity, for the executive report.
func (r *IncidentRepo) CountBySeverity(ctx context.Context, orgID uuid.UUID) (map[string]int64, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT i.severity, COUNT(*)
		FROM incidents i
		JOIN endpoints e ON i.endpoint_id = e.id
		WHERE e.org_id = $1 AND i.status = 'open'
		GROUP BY i.severity
	`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var severity string
		var count int64
		if err := rows.Scan(&severity, &count); err != nil {
			return nil, err
		}
		out[severity] = count
	}
	return out, rows.Err()
}

func scanIncident(row scannable) (*Incident, error) {
	var i Incident
	if err := row.Scan(&i.ID, &i.EndpointID, &i.Severity, &i.Title, &i.Description, &i.MitreTechniques,
		&i.ThreatClass, &i.Confidence, &i.Status, &i.AssignedTo, &i.CreatedAt, &i.UpdatedAt, &i.ResolvedAt); err != nil {
		return nil, err
	}
	return &i, nil
}
