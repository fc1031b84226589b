package service

import "github.com/google/uuid"

// CommandType discriminates the tagged-union command shape delivered to
// agents via heartbeat polling.
type CommandType string

const (
	CommandUpdatePolicy       CommandType = "update_policy"
	CommandCollectDiagnostics CommandType = "collect_diagnostics"
	CommandRestartService     CommandType = "restart_service"
	CommandUpdateAgent        CommandType = "update_agent"
)

// Command is the wire shape of one queued instruction. Fields not
// applicable to Type are omitted on the wire via omitempty. Delivery is
// at-least-once; agents must apply commands idempotently.
type Command struct {
	Type     CommandType `json:"type"`
	Version  int         `json:"version,omitempty"`
	URL      string      `json:"url,omitempty"`
	Checksum string      `json:"checksum,omitempty"`
}

// CommandQueue pops at most one pending command per agent per heartbeat.
// It gives the heartbeat handler a seam for a future real queue.
type CommandQueue interface {
	Pop(endpointID uuid.UUID) []Command
}

// NoopCommandQueue always returns no commands. There is no persisted
// queue in v1; the response shape is defined so agents can be built
// against it ahead of a real implementation.
type NoopCommandQueue struct{}

func (NoopCommandQueue) Pop(uuid.UUID) []Command { return nil }
