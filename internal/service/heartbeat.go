package service

import (
	"context"

	"github.com/fleetward/control-plane/internal/apperr"
	"github.com/fleetward/control-plane/internal/store"
)

// HeartbeatService handles agent heartbeats: liveness tracking, metric history,
// and policy-update signalling for agent-authenticated polling.
type HeartbeatService struct {
	Endpoints *store.EndpointRepo
	Policies  *store.PolicyRepo
	History   *store.HeartbeatRepo
	Queue     CommandQueue
}

// HeartbeatInput carries the agent-supplied metrics and its last-known
// policy version. KnownPolicyVersion is read from the request body, not
// derived from the endpoint's baseline — the source conflated the two.
type HeartbeatInput struct {
	CPUUsage           *float32
	MemoryUsage        *float32
	DiskUsage          *float32
	IncidentCount      *int
	ProcessCount       *int
	AgentVersion       string
	ForwardedIP        *string
	KnownPolicyVersion int
}

// HeartbeatResult is returned to the agent each poll.
type HeartbeatResult struct {
	PolicyVersion   int
	HasPolicyUpdate bool
	Commands        []Command
}

func (s *HeartbeatService) Process(ctx context.Context, endpoint *store.Endpoint, in HeartbeatInput) (*HeartbeatResult, error) {
	if err := s.Endpoints.UpdateHeartbeat(ctx, endpoint.ID, in.ForwardedIP, in.AgentVersion, in.KnownPolicyVersion); err != nil {
		return nil, apperr.Database(err)
	}

	if err := s.History.Record(ctx, endpoint.ID, in.CPUUsage, in.MemoryUsage, in.DiskUsage, in.IncidentCount, in.ProcessCount); err != nil {
		return nil, apperr.Database(err)
	}

	active, err := s.Policies.GetActive(ctx, endpoint.OrgID)
	if err != nil {
		return nil, apperr.Database(err)
	}

	version := 0
	hasUpdate := false
	if active != nil {
		version = active.Version
		hasUpdate = active.Version > in.KnownPolicyVersion
	}

	return &HeartbeatResult{
		PolicyVersion:   version,
		HasPolicyUpdate: hasUpdate,
		Commands:        s.Queue.Pop(endpoint.ID),
	}, nil
}

// Authenticate resolves the bearer token's SHA-256 hash to an endpoint.
// Unknown hash is always a 401 "re-enroll needed" signal, never
// distinguished from "server down" at this layer.
func Authenticate(ctx context.Context, endpoints *store.EndpointRepo, tokenHash string) (*store.Endpoint, error) {
	ep, err := endpoints.FindByTokenHash(ctx, tokenHash)
	if err != nil {
		return nil, apperr.Database(err)
	}
	if ep == nil {
		return nil, apperr.Unauthorized()
	}
	return ep, nil
}
