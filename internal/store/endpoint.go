package store

import (
	"context"
	"time"

	"github.com/fleetward/control-plane/internal/page"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// EndpointRepo persists Endpoint rows. Enrollment is modeled as two
// explicit steps (FindByOrgAndHwid then Insert or RotateToken) rather
// than a single upsert statement, because a fresh insert must pass a
// device-quota check the caller performs in between.
type EndpointRepo struct {
	DB Querier
}

func NewEndpointRepo(db Querier) *EndpointRepo { return &EndpointRepo{DB: db} }

const endpointColumns = `id, org_id, hwid, hostname, os_type, os_version, agent_version, ip_address,
	token_hash, last_heartbeat, status, baseline_hash, baseline_version, policy_version, created_at, updated_at`

func (r *EndpointRepo) FindByOrgAndHwid(ctx context.Context, orgID uuid.UUID, hwid string) (*Endpoint, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+endpointColumns+` FROM endpoints WHERE org_id = $1 AND hwid = $2`, orgID, hwid)
	e, err := scanEndpoint(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return e, err
}

func (r *EndpointRepo) FindByID(ctx context.Context, id uuid.UUID) (*Endpoint, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+endpointColumns+` FROM endpoints WHERE id = $1`, id)
	e, err := scanEndpoint(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return e, err
}

func (r *EndpointRepo) FindByTokenHash(ctx context.Context, tokenHash string) (*Endpoint, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+endpointColumns+` FROM endpoints WHERE token_hash = $1`, tokenHash)
	e, err := scanEndpoint(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return e, err
}

// Insert creates a new endpoint row for a hwid not previously seen in the org.
func (r *EndpointRepo) Insert(ctx context.Context, orgID uuid.UUID, hwid, hostname string, osType, osVersion, agentVersion *string, tokenHash string) (*Endpoint, error) {
	row := r.DB.QueryRow(ctx, `
		INSERT INTO endpoints (org_id, hwid, hostname, os_type, os_version, agent_version, token_hash, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'online')
		RETURNING `+endpointColumns,
		orgID, hwid, hostname, osType, osVersion, agentVersion, tokenHash)
	return scanEndpoint(row)
}

// RotateToken re-enrolls an existing (org_id, hwid) endpoint: a fresh
// bearer token invalidates the previous one (token_hash is unique), and
// the latest hostname/OS metadata overwrites the stored values.
func (r *EndpointRepo) RotateToken(ctx context.Context, id uuid.UUID, hostname string, osType, osVersion, agentVersion *string, tokenHash string) (*Endpoint, error) {
	row := r.DB.QueryRow(ctx, `
		UPDATE endpoints
		SET token_hash = $2, hostname = $3, os_type = $4, os_version = $5, agent_version = $6,
		    status = 'online', updated_at = NOW()
		WHERE id = $1
		RETURNING `+endpointColumns,
		id, tokenHash, hostname, osType, osVersion, agentVersion)
	return scanEndpoint(row)
}

// UpdateHeartbeat refreshes liveness fields and the endpoint's last-known
// policy version, as reported by the agent in the heartbeat body.
func (r *EndpointRepo) UpdateHeartbeat(ctx context.Context, id uuid.UUID, ipAddress *string, agentVersion string, knownPolicyVersion int) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE endpoints
		SET last_heartbeat = NOW(),
		    status = 'online',
		    ip_address = COALESCE($2, ip_address),
		    agent_version = $3,
		    policy_version = $4,
		    updated_at = NOW()
		WHERE id = $1
	`, id, ipAddress, agentVersion, knownPolicyVersion)
	return err
}

// UpdateBaseline keeps the endpoint row's baseline summary in sync after
// a baseline upsert.
func (r *EndpointRepo) UpdateBaseline(ctx context.Context, id uuid.UUID, hash string, version int) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE endpoints SET baseline_hash = $2, baseline_version = $3, updated_at = NOW() WHERE id = $1
	`, id, hash, version)
	return err
}

// ListByOrg returns up to limit endpoints ordered by creation, newest
// first, as a keyset page. With after == nil it returns the first page;
// otherwise it returns rows strictly older than the cursor's
// (created_at, id) position. created_at is used as the ordering key
// rather than last_heartbeat because it never mutates once a row
// exists, which is what makes a keyset cursor stable across pages.
func (r *EndpointRepo) ListByOrg(ctx context.Context, orgID uuid.UUID, after *page.Cursor, limit int64) ([]*Endpoint, error) {
	var rows pgx.Rows
	var err error
	if after == nil {
		rows, err = r.DB.Query(ctx, `
			SELECT `+endpointColumns+` FROM endpoints
			WHERE org_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		`, orgID, limit)
	} else {
		rows, err = r.DB.Query(ctx, `
			SELECT `+endpointColumns+` FROM endpoints
			WHERE org_id = $1 AND (created_at, id) < ($2, $3)
			ORDER BY created_at DESC, id DESC
			LIMIT $4
		`, orgID, time.UnixMilli(after.Ms).UTC(), after.UID, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Endpoint
	for rows.Next() {
		e, err := scanEndpoint(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Delete removes an endpoint. org_id is part of the predicate so a
// cross-tenant id never deletes anything.
func (r *EndpointRepo) Delete(ctx context.Context, id, orgID uuid.UUID) (bool, error) {
	tag, err := r.DB.Exec(ctx, `DELETE FROM endpoints WHERE id = $1 AND org_id = $2`, id, orgID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// CountByOrg returns the total number of endpoints in the org.
func (r *EndpointRepo) CountByOrg(ctx context.Context, orgID uuid.UUID) (int64, error) {
	var n int64
	err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM endpoints WHERE org_id = $1`, orgID).Scan(&n)
	return n, err
}

// CountOnline returns the number of endpoints in the org whose status is online.
func (r *EndpointRepo) CountOnline(ctx context.Context, orgID uuid.UUID) (int64, error) {
	var n int64
	err := r.DB.QueryRow(ctx, `SELECT COUNT(*) FROM endpoints WHERE org_id = $1 AND status = 'online'`, orgID).Scan(&n)
	return n, err
}

type scannable interface {
	Scan(dest ...interface{}) error
}

func scanEndpoint(row scannable) (*Endpoint, error) {
	var e Endpoint
	if err := row.Scan(&e.ID, &e.OrgID, &e.Hwid, &e.Hostname, &e.OSType, &e.OSVersion, &e.AgentVersion,
		&e.IPAddress, &e.TokenHash, &e.LastHeartbeat, &e.Status, &e.BaselineHash, &e.BaselineVersion,
		&e.PolicyVersion, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}
