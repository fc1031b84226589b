package store

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// OrganizationRepo persists Organization rows.
type OrganizationRepo struct {
	DB Querier
}

func NewOrganizationRepo(db Querier) *OrganizationRepo { return &OrganizationRepo{DB: db} }

// Create inserts a new organization with a generated license key.
func (r *OrganizationRepo) Create(ctx context.Context, name, tier string, maxAgents int) (*Organization, error) {
	licenseKey := "FW-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])

	row := r.DB.QueryRow(ctx, `
		INSERT INTO organizations (name, license_key, max_agents, tier)
		VALUES ($1, $2, $3, $4)
		RETURNING id, name, license_key, max_agents, tier, created_at, updated_at
	`, name, licenseKey, maxAgents, tier)

	return scanOrganization(row)
}

func (r *OrganizationRepo) FindByID(ctx context.Context, id uuid.UUID) (*Organization, error) {
	row := r.DB.QueryRow(ctx, `
		SELECT id, name, license_key, max_agents, tier, created_at, updated_at
		FROM organizations WHERE id = $1
	`, id)
	return scanOrganization(row)
}

// CountEndpoints returns the current device count for the org.
func (r *OrganizationRepo) CountEndpoints(ctx context.Context, orgID uuid.UUID) (int64, error) {
	var count int64
	err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM endpoints WHERE org_id = $1`, orgID).Scan(&count)
	return count, err
}

func scanOrganization(row pgx.Row) (*Organization, error) {
	var o Organization
	if err := row.Scan(&o.ID, &o.Name, &o.LicenseKey, &o.MaxAgents, &o.Tier, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	return &o, nil
}
