package service

import (
	"context"
	"encoding/json"

	"github.com/fleetward/control-plane/internal/apperr"
	"github.com/fleetward/control-plane/internal/store"
	"github.com/google/uuid"
)

// PolicyService provides admin CRUD plus the agent-facing
// current-policy lookup.
type PolicyService struct {
	Policies *store.PolicyRepo
	Audit    *store.AuditRepo
}

func (s *PolicyService) Create(ctx context.Context, orgID, createdBy uuid.UUID, name string, description *string, config json.RawMessage, ip string) (*store.Policy, error) {
	p, err := s.Policies.Create(ctx, orgID, name, description, config)
	if err != nil {
		return nil, apperr.Database(err)
	}
	_ = s.Audit.Record(ctx, orgID, &createdBy, "policy.create", "policy", &p.ID, nil, ip)
	return p, nil
}

func (s *PolicyService) List(ctx context.Context, orgID uuid.UUID) ([]*store.Policy, error) {
	ps, err := s.Policies.ListByOrg(ctx, orgID)
	if err != nil {
		return nil, apperr.Database(err)
	}
	return ps, nil
}

// Get fetches a policy and enforces the strict org_id post-check: a
// policy id from another tenant is Forbidden, not NotFound, matching
// the cross-tenant-read invariant.
func (s *PolicyService) Get(ctx context.Context, orgID, id uuid.UUID) (*store.Policy, error) {
	p, err := s.Policies.FindByID(ctx, id)
	if err != nil {
		return nil, apperr.Database(err)
	}
	if p == nil {
		return nil, apperr.NotFound("Policy not found")
	}
	if p.OrgID != orgID {
		return nil, apperr.Forbidden()
	}
	return p, nil
}

func (s *PolicyService) Update(ctx context.Context, orgID, id, updatedBy uuid.UUID, name, description *string, config json.RawMessage, isActive *bool, ip string) (*store.Policy, error) {
	if _, err := s.Get(ctx, orgID, id); err != nil {
		return nil, err
	}
	p, err := s.Policies.Update(ctx, id, name, description, config, isActive)
	if err != nil {
		return nil, apperr.Database(err)
	}
	if p == nil {
		return nil, apperr.NotFound("Policy not found")
	}
	_ = s.Audit.Record(ctx, orgID, &updatedBy, "policy.update", "policy", &p.ID, nil, ip)
	return p, nil
}

// GetActive returns the org's current policy, or nil if none is active.
func (s *PolicyService) GetActive(ctx context.Context, orgID uuid.UUID) (*store.Policy, error) {
	p, err := s.Policies.GetActive(ctx, orgID)
	if err != nil {
		return nil, apperr.Database(err)
	}
	return p, nil
}
