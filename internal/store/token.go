package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TokenRepo persists OrganizationToken rows.
type TokenRepo struct {
	DB Querier
}

func NewTokenRepo(db Querier) *TokenRepo { return &TokenRepo{DB: db} }

const tokenColumns = `id, org_id, token_value, name, expires_at, max_uses, uses_count, is_active, created_by, revoked_at, created_at`

func (r *TokenRepo) Create(ctx context.Context, orgID uuid.UUID, tokenValue, name string, expiresAt *time.Time, maxUses *int, createdBy *uuid.UUID) (*OrganizationToken, error) {
	row := r.DB.QueryRow(ctx, `
		INSERT INTO organization_tokens (org_id, token_value, name, expires_at, max_uses, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+tokenColumns,
		orgID, tokenValue, name, expiresAt, maxUses, createdBy)
	return scanToken(row)
}

func (r *TokenRepo) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]*OrganizationToken, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+tokenColumns+` FROM organization_tokens WHERE org_id = $1 ORDER BY created_at DESC`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*OrganizationToken
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *TokenRepo) FindByID(ctx context.Context, id uuid.UUID) (*OrganizationToken, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+tokenColumns+` FROM organization_tokens WHERE id = $1`, id)
	t, err := scanToken(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return t, err
}

func (r *TokenRepo) FindByValue(ctx context.Context, value string) (*OrganizationToken, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+tokenColumns+` FROM organization_tokens WHERE token_value = $1`, value)
	t, err := scanToken(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return t, err
}

// TryUse is the single atomic admission check for org-enroll: it
// increments uses_count iff the token is active, unexpired, and under
// its use cap. The conditional UPDATE...RETURNING is the only statement
// allowed to mutate uses_count.
func (r *TokenRepo) TryUse(ctx context.Context, tokenID uuid.UUID) (bool, error) {
	row := r.DB.QueryRow(ctx, `
		UPDATE organization_tokens
		SET uses_count = uses_count + 1
		WHERE id = $1
		  AND (max_uses IS NULL OR uses_count < max_uses)
		  AND is_active = true
		  AND (expires_at IS NULL OR expires_at > NOW())
		RETURNING id
	`, tokenID)
	var got uuid.UUID
	err := row.Scan(&got)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

// Release reverses a TryUse when an enrollment that consumed the token
// is subsequently rejected (e.g. for a quota overflow), so a rejected
// enrollment never leaves uses_count incremented.
func (r *TokenRepo) Release(ctx context.Context, tokenID uuid.UUID) error {
	_, err := r.DB.Exec(ctx, `UPDATE organization_tokens SET uses_count = uses_count - 1 WHERE id = $1`, tokenID)
	return err
}

func (r *TokenRepo) Revoke(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.DB.Exec(ctx, `UPDATE organization_tokens SET is_active = false, revoked_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func scanToken(row scannable) (*OrganizationToken, error) {
	var t OrganizationToken
	if err := row.Scan(&t.ID, &t.OrgID, &t.TokenValue, &t.Name, &t.ExpiresAt, &t.MaxUses, &t.UsesCount,
		&t.IsActive, &t.CreatedBy, &t.RevokedAt, &t.CreatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}
