package service

import (
	"context"
	"time"

	"github.com/fleetward/control-plane/internal/apperr"
	"github.com/fleetward/control-plane/internal/auth"
	"github.com/fleetward/control-plane/internal/store"
	"github.com/fleetward/control-plane/internal/tenancy"
	"github.com/google/uuid"
)

// TokenService manages the enrollment-token registry for an organization.
type TokenService struct {
	Orgs   *store.OrganizationRepo
	Tokens *store.TokenRepo
	Audit  *store.AuditRepo
}

// TokenInfo is the redacted view returned by List/Get — the full token
// value is returned only once, from Create.
type TokenInfo struct {
	ID        uuid.UUID
	Name      string
	Preview   string
	UsesCount int
	MaxUses   *int
	ExpiresAt *time.Time
	IsActive  bool
	CreatedAt time.Time
}

// CreateResult additionally carries the plaintext token, valid only in
// the Create response.
type CreateResult struct {
	TokenInfo
	Token string
}

// Create mints a new enrollment token. Only organization-tier orgs may
// mint tokens; the caller is expected to have already checked this via
// the org row, but Create re-verifies to keep the invariant enforced at
// a single point.
func (s *TokenService) Create(ctx context.Context, orgID uuid.UUID, createdBy uuid.UUID, name, ip string, expiresInDays *int64, maxUses *int) (*CreateResult, error) {
	org, err := s.Orgs.FindByID(ctx, orgID)
	if err != nil {
		return nil, apperr.Database(err)
	}
	if org == nil || !tenancy.CanMintEnrollmentTokens(tenancy.ParseTier(org.Tier)) {
		return nil, apperr.Forbidden()
	}

	value := auth.NewEnrollmentToken(orgID)

	var expiresAt *time.Time
	if expiresInDays != nil {
		t := time.Now().UTC().AddDate(0, 0, int(*expiresInDays))
		expiresAt = &t
	}

	tok, err := s.Tokens.Create(ctx, orgID, value, name, expiresAt, maxUses, &createdBy)
	if err != nil {
		return nil, apperr.Database(err)
	}
	_ = s.Audit.Record(ctx, orgID, &createdBy, "token.create", "organization_token", &tok.ID, nil, ip)

	return &CreateResult{TokenInfo: toInfo(tok), Token: value}, nil
}

func (s *TokenService) List(ctx context.Context, orgID uuid.UUID) ([]TokenInfo, error) {
	toks, err := s.Tokens.ListByOrg(ctx, orgID)
	if err != nil {
		return nil, apperr.Database(err)
	}
	out := make([]TokenInfo, 0, len(toks))
	for _, t := range toks {
		out = append(out, toInfo(t))
	}
	return out, nil
}

func (s *TokenService) Get(ctx context.Context, orgID, id uuid.UUID) (*TokenInfo, error) {
	t, err := s.Tokens.FindByID(ctx, id)
	if err != nil {
		return nil, apperr.Database(err)
	}
	if t == nil || t.OrgID != orgID {
		return nil, apperr.NotFound("Token not found")
	}
	info := toInfo(t)
	return &info, nil
}

// Revoke sets a token inactive. Terminal — a revoked token can never be
// reactivated.
func (s *TokenService) Revoke(ctx context.Context, orgID, id, revokedBy uuid.UUID, ip string) error {
	t, err := s.Tokens.FindByID(ctx, id)
	if err != nil {
		return apperr.Database(err)
	}
	if t == nil || t.OrgID != orgID {
		return apperr.NotFound("Token not found")
	}
	ok, err := s.Tokens.Revoke(ctx, id)
	if err != nil {
		return apperr.Database(err)
	}
	if !ok {
		return apperr.NotFound("Token not found")
	}
	_ = s.Audit.Record(ctx, orgID, &revokedBy, "token.revoke", "organization_token", &id, nil, ip)
	return nil
}

func toInfo(t *store.OrganizationToken) TokenInfo {
	return TokenInfo{
		ID:        t.ID,
		Name:      t.Name,
		Preview:   auth.TokenPreview(t.TokenValue),
		UsesCount: t.UsesCount,
		MaxUses:   t.MaxUses,
		ExpiresAt: t.ExpiresAt,
		IsActive:  t.IsActive,
		CreatedAt: t.CreatedAt,
	}
}
