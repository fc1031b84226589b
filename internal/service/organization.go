package service

import (
	"context"

	"github.com/fleetward/control-plane/internal/apperr"
	"github.com/fleetward/control-plane/internal/auth"
	"github.com/fleetward/control-plane/internal/store"
	"github.com/google/uuid"
)

// OrganizationService exposes the dashboard's read-only view of the
// caller's own organization. Creation happens as a side effect of
// RegisterOrg/PersonalEnroll — there is no standalone admin create path.
type OrganizationService struct {
	Orgs *store.OrganizationRepo
}

func (s *OrganizationService) Get(ctx context.Context, orgID uuid.UUID) (*store.Organization, error) {
	org, err := s.Orgs.FindByID(ctx, orgID)
	if err != nil {
		return nil, apperr.Database(err)
	}
	if org == nil {
		return nil, apperr.NotFound("Organization not found")
	}
	return org, nil
}

// RequireAdmin is the explicit RBAC check used inside handlers — not a
// per-route annotation — so that audit logging of the denial is uniform
// regardless of which endpoint triggered it.
func RequireAdmin(p auth.Principal) error {
	if p.Role != "admin" {
		return apperr.Forbidden()
	}
	return nil
}
