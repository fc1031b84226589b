package store

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PolicyRepo persists Policy rows.
type PolicyRepo struct {
	DB Querier
}

func NewPolicyRepo(db Querier) *PolicyRepo { return &PolicyRepo{DB: db} }

const policyColumns = `id, org_id, name, description, config, version, is_active, created_at, updated_at`

func (r *PolicyRepo) Create(ctx context.Context, orgID uuid.UUID, name string, description *string, config json.RawMessage) (*Policy, error) {
	row := r.DB.QueryRow(ctx, `
		INSERT INTO policies (org_id, name, description, config)
		VALUES ($1, $2, $3, $4)
		RETURNING `+policyColumns,
		orgID, name, description, config)
	return scanPolicy(row)
}

func (r *PolicyRepo) FindByID(ctx context.Context, id uuid.UUID) (*Policy, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+policyColumns+` FROM policies WHERE id = $1`, id)
	p, err := scanPolicy(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return p, err
}

func (r *PolicyRepo) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]*Policy, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+policyColumns+` FROM policies WHERE org_id = $1 ORDER BY created_at DESC`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Policy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetActive returns the highest-version active policy for the org, the
// "current" policy agents are expected to run.
func (r *PolicyRepo) GetActive(ctx context.Context, orgID uuid.UUID) (*Policy, error) {
	row := r.DB.QueryRow(ctx, `
		SELECT `+policyColumns+` FROM policies
		WHERE org_id = $1 AND is_active = true
		ORDER BY version DESC
		LIMIT 1
	`, orgID)
	p, err := scanPolicy(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return p, err
}

// Update patches the given fields and always bumps version by one.
// nil pointers leave the corresponding column unchanged.
func (r *PolicyRepo) Update(ctx context.Context, id uuid.UUID, name, description *string, config json.RawMessage, isActive *bool) (*Policy, error) {
	row := r.DB.QueryRow(ctx, `
		UPDATE policies
		SET name = COALESCE($2, name),
		    description = COALESCE($3, description),
		    config = COALESCE($4, config),
		    is_active = COALESCE($5, is_active),
		    version = version + 1,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING `+policyColumns,
		id, name, description, config, isActive)
	p, err := scanPolicy(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return p, err
}

func scanPolicy(row scannable) (*Policy, error) {
	var p Policy
	if err := row.Scan(&p.ID, &p.OrgID, &p.Name, &p.Description, &p.Config, &p.Version, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}
