package service

import (
	"context"

	"github.com/fleetward/control-plane/internal/apperr"
	"github.com/fleetward/control-plane/internal/store"
	"github.com/google/uuid"
)

// IncidentAdminService implements the dashboard's incident list/get/update
// surface for an organization's incidents.
type IncidentAdminService struct {
	Incidents *store.IncidentRepo
	Endpoints *store.EndpointRepo
	Audit     *store.AuditRepo
}

func (s *IncidentAdminService) List(ctx context.Context, orgID uuid.UUID, f store.IncidentFilter) ([]*store.Incident, error) {
	incs, err := s.Incidents.ListByOrg(ctx, orgID, f)
	if err != nil {
		return nil, apperr.Database(err)
	}
	return incs, nil
}

// Get fetches one incident, tenant-scoped via its endpoint's org_id.
func (s *IncidentAdminService) Get(ctx context.Context, orgID, id uuid.UUID) (*store.Incident, error) {
	inc, err := s.Incidents.FindByID(ctx, id)
	if err != nil {
		return nil, apperr.Database(err)
	}
	if inc == nil {
		return nil, apperr.NotFound("Incident not found")
	}
	ep, err := s.Endpoints.FindByID(ctx, inc.EndpointID)
	if err != nil {
		return nil, apperr.Database(err)
	}
	if ep == nil || ep.OrgID != orgID {
		return nil, apperr.Forbidden()
	}
	return inc, nil
}

// UpdateStatus patches status/assigned_to after confirming tenant scope.
func (s *IncidentAdminService) UpdateStatus(ctx context.Context, orgID, id, actingUser uuid.UUID, status string, assignedTo *uuid.UUID, ip string) (*store.Incident, error) {
	if _, err := s.Get(ctx, orgID, id); err != nil {
		return nil, err
	}
	inc, err := s.Incidents.UpdateStatus(ctx, id, status, assignedTo)
	if err != nil {
		return nil, apperr.Database(err)
	}
	if inc == nil {
		return nil, apperr.NotFound("Incident not found")
	}
	_ = s.Audit.Record(ctx, orgID, &actingUser, "incident.update_status", "incident", &inc.ID, nil, ip)
	return inc, nil
}
