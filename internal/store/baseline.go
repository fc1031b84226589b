package store

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// BaselineRepo persists Baseline rows — one per endpoint, upserted.
type BaselineRepo struct {
	DB Querier
}

func NewBaselineRepo(db Querier) *BaselineRepo { return &BaselineRepo{DB: db} }

const baselineColumns = `id, endpoint_id, mean_values, variance_values, sample_count, version, created_at, updated_at`

// Upsert inserts or overwrites the single baseline row for an endpoint.
func (r *BaselineRepo) Upsert(ctx context.Context, endpointID uuid.UUID, mean, variance json.RawMessage, sampleCount int64, version int) (*Baseline, error) {
	row := r.DB.QueryRow(ctx, `
		INSERT INTO baselines (endpoint_id, mean_values, variance_values, sample_count, version)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (endpoint_id) DO UPDATE SET
		    mean_values = EXCLUDED.mean_values,
		    variance_values = EXCLUDED.variance_values,
		    sample_count = EXCLUDED.sample_count,
		    version = EXCLUDED.version,
		    updated_at = NOW()
		RETURNING `+baselineColumns,
		endpointID, mean, variance, sampleCount, version)
	return scanBaseline(row)
}

func (r *BaselineRepo) FindByEndpoint(ctx context.Context, endpointID uuid.UUID) (*Baseline, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+baselineColumns+` FROM baselines WHERE endpoint_id = $1`, endpointID)
	b, err := scanBaseline(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return b, err
}

func scanBaseline(row scannable) (*Baseline, error) {
	var b Baseline
	if err := row.Scan(&b.ID, &b.EndpointID, &b.MeanValues, &b.VarianceValues, &b.SampleCount, &b.Version, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}
