package service

import (
	"testing"

	"github.com/google/uuid"
)

func TestQuotaMessage(t *testing.T) {
	got := quotaMessage(1, 1)
	want := "Device limit reached (1/1). Upgrade to add more devices."
	if got != want {
		t.Errorf("quotaMessage() = %q, want %q", got, want)
	}
}

func TestSecurityScore(t *testing.T) {
	tests := []struct {
		name                          string
		total, critical, high, medium int64
		want                          int
	}{
		{"no endpoints", 0, 5, 5, 5, 100},
		{"no incidents", 10, 0, 0, 0, 100},
		{"one critical per endpoint", 1, 1, 0, 0, 90},
		{"clips at zero", 1, 100, 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := securityScore(tt.total, tt.critical, tt.high, tt.medium); got != tt.want {
				t.Errorf("securityScore(%d,%d,%d,%d) = %d, want %d", tt.total, tt.critical, tt.high, tt.medium, got, tt.want)
			}
		})
	}
}

func TestComplianceIsStatic(t *testing.T) {
	var s ReportService
	checks := s.Compliance(nil, uuid.Nil)
	if len(checks) != 3 {
		t.Fatalf("Compliance() returned %d checks, want 3", len(checks))
	}
	wantControls := map[string]bool{"A.12.4.1": true, "A.12.4.3": true, "A.16.1.2": true}
	for _, c := range checks {
		if !wantControls[c.Control] {
			t.Errorf("unexpected control %q", c.Control)
		}
		if c.Status != "compliant" {
			t.Errorf("control %q status = %q, want compliant", c.Control, c.Status)
		}
	}
}
