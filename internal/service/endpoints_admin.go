package service

import (
	"context"

	"github.com/fleetward/control-plane/internal/apperr"
	"github.com/fleetward/control-plane/internal/page"
	"github.com/fleetward/control-plane/internal/store"
	"github.com/google/uuid"
)

// EndpointAdminService implements the dashboard's read/delete surface
// over endpoints, always tenant-scoped.
type EndpointAdminService struct {
	Endpoints *store.EndpointRepo
	Audit     *store.AuditRepo
}

// EndpointPage is one keyset page of endpoints plus the cursor to fetch
// the next one. NextCursor is empty once the page comes up short of
// limit — there is nothing further to fetch.
type EndpointPage struct {
	Endpoints  []*store.Endpoint
	NextCursor string
}

func (s *EndpointAdminService) List(ctx context.Context, orgID uuid.UUID, after *page.Cursor, limit int64) (*EndpointPage, error) {
	eps, err := s.Endpoints.ListByOrg(ctx, orgID, after, limit)
	if err != nil {
		return nil, apperr.Database(err)
	}

	out := &EndpointPage{Endpoints: eps}
	if int64(len(eps)) == limit && len(eps) > 0 {
		last := eps[len(eps)-1]
		out.NextCursor = page.EncodeCursor(page.Cursor{Ms: last.CreatedAt.UnixMilli(), UID: last.ID})
	}
	return out, nil
}

// Get enforces the org_id post-check: an endpoint from another tenant
// is Forbidden, never leaked as NotFound or served.
func (s *EndpointAdminService) Get(ctx context.Context, orgID, id uuid.UUID) (*store.Endpoint, error) {
	ep, err := s.Endpoints.FindByID(ctx, id)
	if err != nil {
		return nil, apperr.Database(err)
	}
	if ep == nil {
		return nil, apperr.NotFound("Endpoint not found")
	}
	if ep.OrgID != orgID {
		return nil, apperr.Forbidden()
	}
	return ep, nil
}

// Delete removes the endpoint, cascading to its incidents/baseline. The
// org_id filter is part of the delete predicate, not a post-check.
func (s *EndpointAdminService) Delete(ctx context.Context, orgID, id uuid.UUID, actingUser uuid.UUID, ip string) error {
	ok, err := s.Endpoints.Delete(ctx, id, orgID)
	if err != nil {
		return apperr.Database(err)
	}
	if !ok {
		return apperr.NotFound("Endpoint not found")
	}
	_ = s.Audit.Record(ctx, orgID, &actingUser, "endpoint.delete", "endpoint", &id, nil, ip)
	return nil
}
