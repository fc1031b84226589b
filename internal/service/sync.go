package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fleetward/control-plane/internal/apperr"
	"github.com/fleetward/control-plane/internal/store"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// SyncService handles idempotent baseline and incident
// ingestion from agents.
type SyncService struct {
	Baselines *store.BaselineRepo
	Incidents *store.IncidentRepo
	Endpoints *store.EndpointRepo
}

// BaselineInput mirrors the agent-supplied sync payload.
type BaselineInput struct {
	BaselineHash   string
	MeanValues     json.RawMessage
	VarianceValues json.RawMessage
	SampleCount    int64
	Version        int
}

// SyncBaseline upserts the endpoint's single baseline row, then keeps
// the endpoint's baseline_hash/baseline_version in sync.
func (s *SyncService) SyncBaseline(ctx context.Context, endpoint *store.Endpoint, in BaselineInput) (*store.Baseline, error) {
	b, err := s.Baselines.Upsert(ctx, endpoint.ID, in.MeanValues, in.VarianceValues, in.SampleCount, in.Version)
	if err != nil {
		return nil, apperr.Database(err)
	}
	if err := s.Endpoints.UpdateBaseline(ctx, endpoint.ID, in.BaselineHash, in.Version); err != nil {
		return nil, apperr.Database(err)
	}
	return b, nil
}

// IncidentInput mirrors one entry of the agent-supplied incident batch.
type IncidentInput struct {
	ID              uuid.UUID
	Severity        string
	Title           string
	Description     *string
	MitreTechniques json.RawMessage
	ThreatClass     *string
	Confidence      *float32
	CreatedAtUnix   int64
}

// SyncIncidents inserts or updates each incident by its client-chosen id.
// Partial failure is tolerated: successes are committed independently,
// failures are counted and logged, never aborting the whole batch.
func (s *SyncService) SyncIncidents(ctx context.Context, endpoint *store.Endpoint, items []IncidentInput) (syncedCount int) {
	for _, it := range items {
		createdAt := time.Unix(it.CreatedAtUnix, 0).UTC()
		if _, err := s.Incidents.Create(ctx, it.ID, endpoint.ID, it.Severity, it.Title, it.Description, it.MitreTechniques, it.ThreatClass, it.Confidence, createdAt); err != nil {
			log.Error().Err(err).Str("incident_id", it.ID.String()).Msg("failed to sync incident")
			continue
		}
		syncedCount++
	}
	return syncedCount
}
