package service

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
)

func TestNoopCommandQueueReturnsNone(t *testing.T) {
	var q NoopCommandQueue
	if cmds := q.Pop(uuid.New()); cmds != nil {
		t.Errorf("Pop() = %v, want nil", cmds)
	}
}

func TestCommandJSONShape(t *testing.T) {
	c := Command{Type: CommandUpdateAgent, URL: "https://example.test/agent.bin", Checksum: "abc123"}
	b, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if decoded["type"] != "update_agent" {
		t.Errorf("type = %v, want update_agent", decoded["type"])
	}
	if _, ok := decoded["version"]; ok {
		t.Error("version should be omitted when zero")
	}
	if decoded["url"] != "https://example.test/agent.bin" {
		t.Errorf("url = %v", decoded["url"])
	}
}
