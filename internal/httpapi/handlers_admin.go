package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/fleetward/control-plane/internal/apperr"
	"github.com/fleetward/control-plane/internal/page"
	"github.com/fleetward/control-plane/internal/service"
	"github.com/fleetward/control-plane/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func parseID(r *http.Request, param string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		return uuid.UUID{}, apperr.Validation("invalid id")
	}
	return id, nil
}

func queryLimit(r *http.Request, def int64) int64 {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// --- Endpoints ---

type endpointView struct {
	ID            string  `json:"id"`
	Hwid          string  `json:"hwid"`
	Hostname      string  `json:"hostname"`
	OSType        *string `json:"os_type"`
	OSVersion     *string `json:"os_version"`
	AgentVersion  *string `json:"agent_version"`
	Status        string  `json:"status"`
	LastHeartbeat *string `json:"last_heartbeat"`
	PolicyVersion int     `json:"policy_version"`
	CreatedAt     string  `json:"created_at"`
}

func toEndpointView(e *store.Endpoint) endpointView {
	v := endpointView{
		ID: e.ID.String(), Hwid: e.Hwid, Hostname: e.Hostname,
		OSType: e.OSType, OSVersion: e.OSVersion, AgentVersion: e.AgentVersion,
		Status: e.Status, PolicyVersion: e.PolicyVersion,
		CreatedAt: e.CreatedAt.UTC().Format(rfc3339),
	}
	if e.LastHeartbeat != nil {
		s := e.LastHeartbeat.UTC().Format(rfc3339)
		v.LastHeartbeat = &s
	}
	return v
}

const rfc3339 = "2006-01-02T15:04:05Z07:00"

type endpointListResponse struct {
	Items      []endpointView `json:"items"`
	NextCursor string         `json:"next_cursor"`
}

func (s *Server) handleListEndpoints(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFromContext(r.Context())
	if !ok {
		writeError(w, r, apperr.Unauthorized())
		return
	}

	var after *page.Cursor
	if c := r.URL.Query().Get("cursor"); c != "" {
		decoded, valid := page.DecodeCursor(c)
		if !valid {
			writeError(w, r, apperr.Validation("invalid cursor"))
			return
		}
		after = &decoded
	}

	result, err := s.EndpointAdmin.List(r.Context(), p.OrgID, after, queryLimit(r, 100))
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]endpointView, 0, len(result.Endpoints))
	for _, e := range result.Endpoints {
		out = append(out, toEndpointView(e))
	}
	writeJSON(w, http.StatusOK, endpointListResponse{Items: out, NextCursor: result.NextCursor})
}

func (s *Server) handleGetEndpoint(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFromContext(r.Context())
	if !ok {
		writeError(w, r, apperr.Unauthorized())
		return
	}
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	ep, err := s.EndpointAdmin.Get(r.Context(), p.OrgID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEndpointView(ep))
}

func (s *Server) handleDeleteEndpoint(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFromContext(r.Context())
	if !ok {
		writeError(w, r, apperr.Unauthorized())
		return
	}
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.EndpointAdmin.Delete(r.Context(), p.OrgID, id, p.UserID, clientIP(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Incidents ---

type incidentView struct {
	ID          string  `json:"id"`
	EndpointID  string  `json:"endpoint_id"`
	Severity    string  `json:"severity"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	Status      string  `json:"status"`
	AssignedTo  *string `json:"assigned_to"`
	CreatedAt   string  `json:"created_at"`
}

func toIncidentView(i *store.Incident) incidentView {
	v := incidentView{
		ID: i.ID.String(), EndpointID: i.EndpointID.String(), Severity: i.Severity,
		Title: i.Title, Description: i.Description, Status: i.Status,
		CreatedAt: i.CreatedAt.UTC().Format(rfc3339),
	}
	if i.AssignedTo != nil {
		s := i.AssignedTo.String()
		v.AssignedTo = &s
	}
	return v
}

func (s *Server) handleListIncidents(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFromContext(r.Context())
	if !ok {
		writeError(w, r, apperr.Unauthorized())
		return
	}
	q := r.URL.Query()
	f := store.IncidentFilter{
		Status:   q.Get("status"),
		Severity: q.Get("severity"),
		Limit:    queryLimit(r, 50),
	}
	if v := q.Get("endpoint_id"); v != "" {
		if id, err := uuid.Parse(v); err == nil {
			f.EndpointID = &id
		}
	}
	incs, err := s.IncidentAdmin.List(r.Context(), p.OrgID, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]incidentView, 0, len(incs))
	for _, i := range incs {
		out = append(out, toIncidentView(i))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetIncident(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFromContext(r.Context())
	if !ok {
		writeError(w, r, apperr.Unauthorized())
		return
	}
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	inc, err := s.IncidentAdmin.Get(r.Context(), p.OrgID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toIncidentView(inc))
}

type updateIncidentRequest struct {
	Status     string     `json:"status"`
	AssignedTo *uuid.UUID `json:"assigned_to"`
}

func (s *Server) handleUpdateIncident(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFromContext(r.Context())
	if !ok {
		writeError(w, r, apperr.Unauthorized())
		return
	}
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req updateIncidentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Status == "" {
		writeError(w, r, apperr.Validation("status is required"))
		return
	}
	inc, err := s.IncidentAdmin.UpdateStatus(r.Context(), p.OrgID, id, p.UserID, req.Status, req.AssignedTo, clientIP(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toIncidentView(inc))
}

// --- Policies ---

type policyCreateRequest struct {
	Name        string          `json:"name"`
	Description *string         `json:"description"`
	Config      json.RawMessage `json:"config"`
}

type policyUpdateRequest struct {
	Name        *string         `json:"name"`
	Description *string         `json:"description"`
	Config      json.RawMessage `json:"config"`
	IsActive    *bool           `json:"is_active"`
}

func toPolicyView(p *store.Policy) policyResponse {
	return policyResponse{ID: p.ID.String(), Name: p.Name, Version: p.Version, Config: p.Config}
}

func (s *Server) handleListPolicies(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFromContext(r.Context())
	if !ok {
		writeError(w, r, apperr.Unauthorized())
		return
	}
	ps, err := s.Policies.List(r.Context(), p.OrgID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]policyResponse, 0, len(ps))
	for _, pol := range ps {
		out = append(out, toPolicyView(pol))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreatePolicy(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFromContext(r.Context())
	if !ok {
		writeError(w, r, apperr.Unauthorized())
		return
	}
	if err := service.RequireAdmin(p); err != nil {
		writeError(w, r, err)
		return
	}
	var req policyCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Name == "" {
		writeError(w, r, apperr.Validation("name is required"))
		return
	}
	pol, err := s.Policies.Create(r.Context(), p.OrgID, p.UserID, req.Name, req.Description, req.Config, clientIP(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPolicyView(pol))
}

func (s *Server) handleGetPolicy(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFromContext(r.Context())
	if !ok {
		writeError(w, r, apperr.Unauthorized())
		return
	}
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	pol, err := s.Policies.Get(r.Context(), p.OrgID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPolicyView(pol))
}

func (s *Server) handleUpdatePolicy(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFromContext(r.Context())
	if !ok {
		writeError(w, r, apperr.Unauthorized())
		return
	}
	if err := service.RequireAdmin(p); err != nil {
		writeError(w, r, err)
		return
	}
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req policyUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	pol, err := s.Policies.Update(r.Context(), p.OrgID, id, p.UserID, req.Name, req.Description, req.Config, req.IsActive, clientIP(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPolicyView(pol))
}

// --- Tokens ---

type tokenCreateRequest struct {
	Name          string `json:"name"`
	ExpiresInDays *int64 `json:"expires_in_days"`
	MaxUses       *int   `json:"max_uses"`
}

func (s *Server) handleListTokens(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFromContext(r.Context())
	if !ok {
		writeError(w, r, apperr.Unauthorized())
		return
	}
	toks, err := s.Tokens.List(r.Context(), p.OrgID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toks)
}

func (s *Server) handleCreateToken(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFromContext(r.Context())
	if !ok {
		writeError(w, r, apperr.Unauthorized())
		return
	}
	if err := service.RequireAdmin(p); err != nil {
		writeError(w, r, err)
		return
	}
	var req tokenCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Name == "" {
		writeError(w, r, apperr.Validation("name is required"))
		return
	}
	result, err := s.Tokens.Create(r.Context(), p.OrgID, p.UserID, req.Name, clientIP(r), req.ExpiresInDays, req.MaxUses)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) handleGetToken(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFromContext(r.Context())
	if !ok {
		writeError(w, r, apperr.Unauthorized())
		return
	}
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	tok, err := s.Tokens.Get(r.Context(), p.OrgID, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tok)
}

func (s *Server) handleRevokeToken(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFromContext(r.Context())
	if !ok {
		writeError(w, r, apperr.Unauthorized())
		return
	}
	if err := service.RequireAdmin(p); err != nil {
		writeError(w, r, err)
		return
	}
	id, err := parseID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.Tokens.Revoke(r.Context(), p.OrgID, id, p.UserID, clientIP(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Organization ---

type organizationView struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	LicenseKey string `json:"license_key"`
	Tier       string `json:"tier"`
	MaxAgents  int    `json:"max_agents"`
}

func (s *Server) handleGetOrganization(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFromContext(r.Context())
	if !ok {
		writeError(w, r, apperr.Unauthorized())
		return
	}
	org, err := s.Organizations.Get(r.Context(), p.OrgID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, organizationView{
		ID: org.ID.String(), Name: org.Name, LicenseKey: org.LicenseKey,
		Tier: org.Tier, MaxAgents: org.MaxAgents,
	})
}

// --- Reports ---

func (s *Server) handleExecutiveReport(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFromContext(r.Context())
	if !ok {
		writeError(w, r, apperr.Unauthorized())
		return
	}
	report, err := s.Reports.Executive(r.Context(), p.OrgID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleComplianceReport(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFromContext(r.Context())
	if !ok {
		writeError(w, r, apperr.Unauthorized())
		return
	}
	writeJSON(w, http.StatusOK, s.Reports.Compliance(r.Context(), p.OrgID))
}
