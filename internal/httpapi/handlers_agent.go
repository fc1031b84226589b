package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/fleetward/control-plane/internal/apperr"
	"github.com/fleetward/control-plane/internal/service"
	"github.com/google/uuid"
)

type legacyRegisterRequest struct {
	RegistrationKey string  `json:"registration_key"`
	Hostname        string  `json:"hostname"`
	OSType          *string `json:"os_type"`
	OSVersion       *string `json:"os_version"`
	AgentVersion    *string `json:"agent_version"`
}

type agentEnrollResponse struct {
	AgentID    string `json:"agent_id"`
	AgentToken string `json:"agent_token"`
	OrgID      string `json:"org_id"`
	OrgName    string `json:"org_name"`
}

func (s *Server) handleLegacyRegister(w http.ResponseWriter, r *http.Request) {
	var req legacyRegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.RegistrationKey == "" || req.Hostname == "" {
		writeError(w, r, apperr.Validation("registration_key and hostname are required"))
		return
	}

	result, err := s.Enrollment.LegacyRegister(r.Context(), req.RegistrationKey, req.Hostname, req.OSType, req.OSVersion, req.AgentVersion)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, agentEnrollResponse{
		AgentID: result.AgentID.String(), AgentToken: result.AgentToken,
		OrgID: result.OrgID.String(), OrgName: result.OrgName,
	})
}

type orgEnrollRequest struct {
	Token        string  `json:"token"`
	Hwid         string  `json:"hwid"`
	Hostname     string  `json:"hostname"`
	OSType       *string `json:"os_type"`
	OSVersion    *string `json:"os_version"`
	AgentVersion *string `json:"agent_version"`
}

func (s *Server) handleOrgEnroll(w http.ResponseWriter, r *http.Request) {
	var req orgEnrollRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Token == "" || req.Hwid == "" || req.Hostname == "" {
		writeError(w, r, apperr.Validation("token, hwid and hostname are required"))
		return
	}

	result, err := s.Enrollment.OrgEnroll(r.Context(), service.OrgEnrollInput{
		TokenValue:   req.Token,
		Hwid:         req.Hwid,
		Hostname:     req.Hostname,
		OSType:       req.OSType,
		OSVersion:    req.OSVersion,
		AgentVersion: req.AgentVersion,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, agentEnrollResponse{
		AgentID: result.AgentID.String(), AgentToken: result.AgentToken,
		OrgID: result.OrgID.String(), OrgName: result.OrgName,
	})
}

type heartbeatRequest struct {
	CPUUsage           *float32 `json:"cpu_usage"`
	MemoryUsage        *float32 `json:"memory_usage"`
	DiskUsage          *float32 `json:"disk_usage"`
	IncidentCount      *int     `json:"incident_count"`
	ProcessCount       *int     `json:"process_count"`
	AgentVersion       string   `json:"agent_version"`
	KnownPolicyVersion int      `json:"known_policy_version"`
}

type heartbeatResponse struct {
	PolicyVersion   int               `json:"policy_version"`
	HasPolicyUpdate bool              `json:"has_policy_update"`
	Commands        []service.Command `json:"commands"`
}

func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	endpoint, ok := endpointFromContext(r.Context())
	if !ok {
		writeError(w, r, apperr.Unauthorized())
		return
	}
	var req heartbeatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	var forwardedIP *string
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		forwardedIP = &ip
	}

	result, err := s.Heartbeat.Process(r.Context(), endpoint, toHeartbeatInput(req, forwardedIP))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, heartbeatResponse{
		PolicyVersion:   result.PolicyVersion,
		HasPolicyUpdate: result.HasPolicyUpdate,
		Commands:        result.Commands,
	})
}

func toHeartbeatInput(req heartbeatRequest, forwardedIP *string) service.HeartbeatInput {
	return service.HeartbeatInput{
		CPUUsage:           req.CPUUsage,
		MemoryUsage:        req.MemoryUsage,
		DiskUsage:          req.DiskUsage,
		IncidentCount:      req.IncidentCount,
		ProcessCount:       req.ProcessCount,
		AgentVersion:       req.AgentVersion,
		ForwardedIP:        forwardedIP,
		KnownPolicyVersion: req.KnownPolicyVersion,
	}
}

type syncBaselineRequest struct {
	BaselineHash   string          `json:"baseline_hash"`
	MeanValues     json.RawMessage `json:"mean_values"`
	VarianceValues json.RawMessage `json:"variance_values"`
	SampleCount    int64           `json:"sample_count"`
	Version        int             `json:"version"`
}

func (s *Server) handleSyncBaseline(w http.ResponseWriter, r *http.Request) {
	endpoint, ok := endpointFromContext(r.Context())
	if !ok {
		writeError(w, r, apperr.Unauthorized())
		return
	}
	var req syncBaselineRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	if _, err := s.Sync.SyncBaseline(r.Context(), endpoint, service.BaselineInput{
		BaselineHash:   req.BaselineHash,
		MeanValues:     req.MeanValues,
		VarianceValues: req.VarianceValues,
		SampleCount:    req.SampleCount,
		Version:        req.Version,
	}); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "synced"})
}

type syncIncidentItem struct {
	ID              uuid.UUID       `json:"id"`
	Severity        string          `json:"severity"`
	Title           string          `json:"title"`
	Description     *string         `json:"description"`
	MitreTechniques json.RawMessage `json:"mitre_techniques"`
	ThreatClass     *string         `json:"threat_class"`
	Confidence      *float32        `json:"confidence"`
	CreatedAt       int64           `json:"created_at"`
}

type syncIncidentsRequest struct {
	Incidents []syncIncidentItem `json:"incidents"`
}

func (s *Server) handleSyncIncidents(w http.ResponseWriter, r *http.Request) {
	endpoint, ok := endpointFromContext(r.Context())
	if !ok {
		writeError(w, r, apperr.Unauthorized())
		return
	}
	var req syncIncidentsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	items := make([]service.IncidentInput, 0, len(req.Incidents))
	for _, it := range req.Incidents {
		items = append(items, service.IncidentInput{
			ID:              it.ID,
			Severity:        it.Severity,
			Title:           it.Title,
			Description:     it.Description,
			MitreTechniques: it.MitreTechniques,
			ThreatClass:     it.ThreatClass,
			Confidence:      it.Confidence,
			CreatedAtUnix:   it.CreatedAt,
		})
	}

	synced := s.Sync.SyncIncidents(r.Context(), endpoint, items)
	writeJSON(w, http.StatusOK, syncIncidentsResponse{
		SyncedCount: synced,
		ServerTime:  time.Now().UTC().Format(time.RFC3339Nano),
	})
}

type syncIncidentsResponse struct {
	SyncedCount int    `json:"synced_count"`
	ServerTime  string `json:"server_time"`
}

type policyResponse struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Version int             `json:"version"`
	Config  json.RawMessage `json:"config"`
}

func (s *Server) handleAgentPolicy(w http.ResponseWriter, r *http.Request) {
	endpoint, ok := endpointFromContext(r.Context())
	if !ok {
		writeError(w, r, apperr.Unauthorized())
		return
	}
	p, err := s.Policies.GetActive(r.Context(), endpoint.OrgID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if p == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, policyResponse{ID: p.ID.String(), Name: p.Name, Version: p.Version, Config: p.Config})
}
