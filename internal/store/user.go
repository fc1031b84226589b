package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// UserRepo persists User rows.
type UserRepo struct {
	DB Querier
}

func NewUserRepo(db Querier) *UserRepo { return &UserRepo{DB: db} }

// Create inserts a new user with an already-hashed password.
func (r *UserRepo) Create(ctx context.Context, orgID uuid.UUID, email, passwordHash string, name *string, role string) (*User, error) {
	row := r.DB.QueryRow(ctx, `
		INSERT INTO users (org_id, email, password_hash, name, role)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, org_id, email, password_hash, name, role, is_active, last_login, created_at, updated_at
	`, orgID, email, passwordHash, name, role)
	return scanUser(row)
}

// FindByEmail looks up an active user by case-insensitive email.
func (r *UserRepo) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := r.DB.QueryRow(ctx, `
		SELECT id, org_id, email, password_hash, name, role, is_active, last_login, created_at, updated_at
		FROM users WHERE lower(email) = lower($1) AND is_active = true
	`, email)
	u, err := scanUser(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

func (r *UserRepo) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	row := r.DB.QueryRow(ctx, `
		SELECT id, org_id, email, password_hash, name, role, is_active, last_login, created_at, updated_at
		FROM users WHERE id = $1
	`, id)
	return scanUser(row)
}

func (r *UserRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID) error {
	_, err := r.DB.Exec(ctx, `UPDATE users SET last_login = NOW() WHERE id = $1`, id)
	return err
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.OrgID, &u.Email, &u.PasswordHash, &u.Name, &u.Role, &u.IsActive, &u.LastLogin, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}
