package service

import (
	"context"

	"github.com/fleetward/control-plane/internal/apperr"
	"github.com/fleetward/control-plane/internal/store"
	"github.com/google/uuid"
)

// ReportService builds the executive security posture and compliance reports.
type ReportService struct {
	Endpoints *store.EndpointRepo
	Incidents *store.IncidentRepo
}

// ExecutiveReport summarizes fleet health and open-incident exposure.
type ExecutiveReport struct {
	TotalEndpoints  int64 `json:"total_endpoints"`
	OnlineEndpoints int64 `json:"online_endpoints"`
	OpenCritical    int64 `json:"open_critical"`
	OpenHigh        int64 `json:"open_high"`
	OpenMedium      int64 `json:"open_medium"`
	OpenLow         int64 `json:"open_low"`
	SecurityScore   int   `json:"security_score"`
}

// Executive computes the per-org executive report. The security score
// is max(0, 100 - (10*critical + 5*high + 2*medium) / total_endpoints),
// with score 100 when the org has no endpoints.
func (s *ReportService) Executive(ctx context.Context, orgID uuid.UUID) (*ExecutiveReport, error) {
	totalEndpoints, err := s.Endpoints.CountByOrg(ctx, orgID)
	if err != nil {
		return nil, apperr.Database(err)
	}
	online, err := s.Endpoints.CountOnline(ctx, orgID)
	if err != nil {
		return nil, apperr.Database(err)
	}

	bySeverity, err := s.Incidents.CountBySeverity(ctx, orgID)
	if err != nil {
		return nil, apperr.Database(err)
	}

	critical := bySeverity["critical"]
	high := bySeverity["high"]
	medium := bySeverity["medium"]
	low := bySeverity["low"]

	score := securityScore(totalEndpoints, critical, high, medium)

	return &ExecutiveReport{
		TotalEndpoints:  totalEndpoints,
		OnlineEndpoints: online,
		OpenCritical:    critical,
		OpenHigh:        high,
		OpenMedium:      medium,
		OpenLow:         low,
		SecurityScore:   score,
	}, nil
}

// securityScore implements max(0, 100 - (10*critical + 5*high + 2*medium) / total),
// scoring 100 when there are no endpoints to weigh the count against.
func securityScore(total, critical, high, medium int64) int {
	if total == 0 {
		return 100
	}
	score := int(100 - (10*critical+5*high+2*medium)/total)
	if score < 0 {
		score = 0
	}
	return score
}

// ComplianceCheck is one static control verdict in the compliance report.
type ComplianceCheck struct {
	Control string `json:"control"`
	Name    string `json:"name"`
	Status  string `json:"status"`
}

// Compliance returns a fixed list of control checks. This is a
// placeholder contract, not an algorithm — every org gets the same
// static verdicts.
func (s *ReportService) Compliance(ctx context.Context, orgID uuid.UUID) []ComplianceCheck {
	return []ComplianceCheck{
		{Control: "A.12.4.1", Name: "Event Logging", Status: "compliant"},
		{Control: "A.12.4.3", Name: "Administrator Logs", Status: "compliant"},
		{Control: "A.16.1.2", Name: "Incident Reporting", Status: "compliant"},
	}
}
