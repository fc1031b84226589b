package httpapi

import (
	"net/http"

	"github.com/fleetward/control-plane/internal/apperr"
	"github.com/fleetward/control-plane/internal/service"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string   `json:"token"`
	User  userView `json:"user"`
}

type userView struct {
	ID    string  `json:"id"`
	OrgID string  `json:"org_id"`
	Email string  `json:"email"`
	Name  *string `json:"name"`
	Role  string  `json:"role"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, r, apperr.Validation("email and password are required"))
		return
	}

	result, err := s.Enrollment.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{
		Token: result.Token,
		User: userView{
			ID:    result.User.ID.String(),
			OrgID: result.User.OrgID.String(),
			Email: result.User.Email,
			Name:  result.User.Name,
			Role:  result.User.Role,
		},
	})
}

type registerOrgRequest struct {
	OrgName  string `json:"org_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Tier     string `json:"tier"`
}

func (s *Server) handleRegisterOrg(w http.ResponseWriter, r *http.Request) {
	var req registerOrgRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.OrgName == "" || req.Email == "" || req.Password == "" {
		writeError(w, r, apperr.Validation("org_name, email and password are required"))
		return
	}
	if req.Tier == "" {
		req.Tier = "organization"
	}

	result, err := s.Enrollment.RegisterOrg(r.Context(), req.OrgName, req.Email, req.Password, req.Tier)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, authResponse{
		Token: result.Token,
		User: userView{
			ID:    result.User.ID.String(),
			OrgID: result.User.OrgID.String(),
			Email: result.User.Email,
			Name:  result.User.Name,
			Role:  result.User.Role,
		},
	})
}

type personalEnrollRequest struct {
	Email        string  `json:"email"`
	Password     string  `json:"password"`
	Hwid         string  `json:"hwid"`
	Hostname     string  `json:"hostname"`
	OSType       *string `json:"os_type"`
	OSVersion    *string `json:"os_version"`
	AgentVersion *string `json:"agent_version"`
	Name         *string `json:"name"`
}

type personalEnrollResponse struct {
	UserID     string `json:"user_id"`
	JWT        string `json:"jwt"`
	AgentID    string `json:"agent_id"`
	AgentToken string `json:"agent_token"`
	OrgID      string `json:"org_id"`
	OrgName    string `json:"org_name"`
	Tier       string `json:"tier"`
	IsNewUser  bool   `json:"is_new_user"`
}

func (s *Server) handlePersonalEnroll(w http.ResponseWriter, r *http.Request) {
	var req personalEnrollRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Email == "" || req.Password == "" || req.Hwid == "" || req.Hostname == "" {
		writeError(w, r, apperr.Validation("email, password, hwid and hostname are required"))
		return
	}

	result, err := s.Enrollment.PersonalEnroll(r.Context(), service.PersonalEnrollInput{
		Email:        req.Email,
		Password:     req.Password,
		Hwid:         req.Hwid,
		Hostname:     req.Hostname,
		OSType:       req.OSType,
		OSVersion:    req.OSVersion,
		AgentVersion: req.AgentVersion,
		Name:         req.Name,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, personalEnrollResponse{
		UserID:     result.UserID.String(),
		JWT:        result.JWT,
		AgentID:    result.AgentID.String(),
		AgentToken: result.AgentToken,
		OrgID:      result.OrgID.String(),
		OrgName:    result.OrgName,
		Tier:       result.Tier,
		IsNewUser:  result.IsNewUser,
	})
}
