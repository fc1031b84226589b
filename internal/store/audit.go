package store

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
)

// AuditRepo appends to the audit_log table. Append-only, no read API in
// v1 — it exists so admin actions are actually backed by a record.
type AuditRepo struct {
	DB Querier
}

func NewAuditRepo(db Querier) *AuditRepo { return &AuditRepo{DB: db} }

func (r *AuditRepo) Record(ctx context.Context, orgID uuid.UUID, userID *uuid.UUID, action, resourceType string, resourceID *uuid.UUID, details json.RawMessage, ip string) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO audit_log (org_id, user_id, action, resource_type, resource_id, details, ip_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, orgID, userID, action, resourceType, resourceID, details, ip)
	return err
}
