package store

import (
	"context"

	"github.com/google/uuid"
)

// HeartbeatRepo appends to the heartbeat_history time series.
type HeartbeatRepo struct {
	DB Querier
}

func NewHeartbeatRepo(db Querier) *HeartbeatRepo { return &HeartbeatRepo{DB: db} }

// Record appends one sample. This table is append-only; retention is an
// operational concern handled outside the core.
func (r *HeartbeatRepo) Record(ctx context.Context, endpointID uuid.UUID, cpu, mem, disk *float32, incidentCount, processCount *int) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO heartbeat_history (endpoint_id, cpu_usage, memory_usage, disk_usage, incident_count, process_count)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, endpointID, cpu, mem, disk, incidentCount, processCount)
	return err
}
