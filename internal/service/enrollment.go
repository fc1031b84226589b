package service

import (
	"context"
	"fmt"

	"github.com/fleetward/control-plane/internal/apperr"
	"github.com/fleetward/control-plane/internal/auth"
	"github.com/fleetward/control-plane/internal/store"
	"github.com/fleetward/control-plane/internal/tenancy"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EnrollmentService implements login, org registration, and the two
// agent-enrollment flows: personal-enroll and
// org-token enroll, plus the legacy shared-secret register path.
type EnrollmentService struct {
	DB          *pgxpool.Pool
	Orgs        *store.OrganizationRepo
	Users       *store.UserRepo
	Endpoints   *store.EndpointRepo
	Tokens      *store.TokenRepo
	Audit       *store.AuditRepo
	Signer      auth.JWTSigner
	AgentSecret string
}

// LoginResult is the shape returned by Login.
type LoginResult struct {
	Token string
	User  *store.User
}

// Login verifies credentials and mints a session token. It does not
// distinguish "no such user" from "wrong password" in its error, and
// always performs the password-verify step so the two cases share
// latency.
func (s *EnrollmentService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.Users.FindByEmail(ctx, email)
	if err != nil {
		return nil, apperr.Database(err)
	}

	var storedHash string
	if user != nil {
		storedHash = user.PasswordHash
	}
	ok, err := auth.VerifyPasswordTimingSafe(password, storedHash)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if user == nil || !ok {
		return nil, apperr.InvalidCredentials()
	}

	if err := s.Users.UpdateLastLogin(ctx, user.ID); err != nil {
		return nil, apperr.Database(err)
	}

	tok, err := s.Signer.Mint(auth.Principal{UserID: user.ID, OrgID: user.OrgID, Role: user.Role})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &LoginResult{Token: tok, User: user}, nil
}

// RegisterOrg creates a brand-new organization and its first admin user.
// Used by the standalone dashboard sign-up path (distinct from personal
// auto-enroll, which creates the org as a side effect of the first agent
// install).
func (s *EnrollmentService) RegisterOrg(ctx context.Context, orgName, email, password, tier string) (*LoginResult, error) {
	existing, err := s.Users.FindByEmail(ctx, email)
	if err != nil {
		return nil, apperr.Database(err)
	}
	if existing != nil {
		return nil, apperr.AlreadyExists("An account with that email already exists")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	org, err := s.Orgs.Create(ctx, orgName, tier, 10)
	if err != nil {
		return nil, apperr.Database(err)
	}

	user, err := s.Users.Create(ctx, org.ID, email, hash, nil, "admin")
	if err != nil {
		return nil, apperr.Database(err)
	}

	tok, err := s.Signer.Mint(auth.Principal{UserID: user.ID, OrgID: org.ID, Role: user.Role})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &LoginResult{Token: tok, User: user}, nil
}

// PersonalEnrollInput carries the agent-supplied fields for personal-enroll.
type PersonalEnrollInput struct {
	Email        string
	Password     string
	Hwid         string
	Hostname     string
	OSType       *string
	OSVersion    *string
	AgentVersion *string
	Name         *string
}

// PersonalEnrollResult is the shape returned to the agent/desktop app.
type PersonalEnrollResult struct {
	UserID     uuid.UUID
	JWT        string
	AgentID    uuid.UUID
	AgentToken string
	OrgID      uuid.UUID
	OrgName    string
	Tier       string
	IsNewUser  bool
}

// PersonalEnroll implements the single opinionated desktop flow: it
// branches on whether a user with the given email exists.
func (s *EnrollmentService) PersonalEnroll(ctx context.Context, in PersonalEnrollInput) (*PersonalEnrollResult, error) {
	user, err := s.Users.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, apperr.Database(err)
	}

	if user != nil {
		return s.personalEnrollExisting(ctx, user, in)
	}
	return s.personalEnrollNew(ctx, in)
}

func (s *EnrollmentService) personalEnrollExisting(ctx context.Context, user *store.User, in PersonalEnrollInput) (*PersonalEnrollResult, error) {
	ok, err := auth.VerifyPassword(in.Password, user.PasswordHash)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if !ok {
		return nil, apperr.InvalidCredentials()
	}

	org, err := s.Orgs.FindByID(ctx, user.OrgID)
	if err != nil {
		return nil, apperr.Database(err)
	}
	tier := tenancy.ParseTier(org.Tier)
	if !tenancy.AllowsPersonalEnroll(tier) {
		return nil, apperr.Forbidden()
	}

	endpoint, err := s.Endpoints.FindByOrgAndHwid(ctx, org.ID, in.Hwid)
	if err != nil {
		return nil, apperr.Database(err)
	}

	if endpoint == nil {
		count, err := s.Orgs.CountEndpoints(ctx, org.ID)
		if err != nil {
			return nil, apperr.Database(err)
		}
		max := tenancy.MaxDevices(tier, org.MaxAgents)
		if count >= int64(max) {
			return nil, apperr.Validation(quotaMessage(count, max))
		}
	}

	agentToken := auth.NewAgentToken()
	tokenHash := auth.HashBearerToken(agentToken)

	if endpoint == nil {
		endpoint, err = s.Endpoints.Insert(ctx, org.ID, in.Hwid, in.Hostname, in.OSType, in.OSVersion, in.AgentVersion, tokenHash)
	} else {
		endpoint, err = s.Endpoints.RotateToken(ctx, endpoint.ID, in.Hostname, in.OSType, in.OSVersion, in.AgentVersion, tokenHash)
	}
	if err != nil {
		return nil, apperr.Database(err)
	}

	if err := s.Users.UpdateLastLogin(ctx, user.ID); err != nil {
		return nil, apperr.Database(err)
	}

	jwt, err := s.Signer.Mint(auth.Principal{UserID: user.ID, OrgID: org.ID, Role: user.Role})
	if err != nil {
		return nil, apperr.Internal(err)
	}

	return &PersonalEnrollResult{
		UserID: user.ID, JWT: jwt, AgentID: endpoint.ID, AgentToken: agentToken,
		OrgID: org.ID, OrgName: org.Name, Tier: org.Tier, IsNewUser: false,
	}, nil
}

func (s *EnrollmentService) personalEnrollNew(ctx context.Context, in PersonalEnrollInput) (*PersonalEnrollResult, error) {
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	org, err := s.Orgs.Create(ctx, fmt.Sprintf("Personal - %s", in.Email), string(tenancy.PersonalFree), 1)
	if err != nil {
		return nil, apperr.Database(err)
	}

	user, err := s.Users.Create(ctx, org.ID, in.Email, hash, in.Name, "admin")
	if err != nil {
		return nil, apperr.Database(err)
	}

	agentToken := auth.NewAgentToken()
	tokenHash := auth.HashBearerToken(agentToken)
	endpoint, err := s.Endpoints.Insert(ctx, org.ID, in.Hwid, in.Hostname, in.OSType, in.OSVersion, in.AgentVersion, tokenHash)
	if err != nil {
		return nil, apperr.Database(err)
	}

	jwt, err := s.Signer.Mint(auth.Principal{UserID: user.ID, OrgID: org.ID, Role: user.Role})
	if err != nil {
		return nil, apperr.Internal(err)
	}

	return &PersonalEnrollResult{
		UserID: user.ID, JWT: jwt, AgentID: endpoint.ID, AgentToken: agentToken,
		OrgID: org.ID, OrgName: org.Name, Tier: string(tenancy.PersonalFree), IsNewUser: true,
	}, nil
}

func quotaMessage(current int64, max int) string {
	return fmt.Sprintf("Device limit reached (%d/%d). Upgrade to add more devices.", current, max)
}

// OrgEnrollInput carries the agent-supplied fields for org-token enroll.
type OrgEnrollInput struct {
	TokenValue   string
	Hwid         string
	Hostname     string
	OSType       *string
	OSVersion    *string
	AgentVersion *string
}

// OrgEnrollResult is the shape returned to a headless agent.
type OrgEnrollResult struct {
	AgentID    uuid.UUID
	AgentToken string
	OrgID      uuid.UUID
	OrgName    string
}

// OrgEnroll implements the headless-agent flow. Token try-use, the
// post-use quota re-check, and the endpoint insert-or-rotate all run
// inside one transaction so a quota-rejected enrollment never leaves
// uses_count incremented.
func (s *EnrollmentService) OrgEnroll(ctx context.Context, in OrgEnrollInput) (*OrgEnrollResult, error) {
	tok, err := s.Tokens.FindByValue(ctx, in.TokenValue)
	if err != nil {
		return nil, apperr.Database(err)
	}
	if tok == nil {
		return nil, apperr.Unauthorized()
	}

	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return nil, apperr.Database(err)
	}
	defer tx.Rollback(ctx)

	tokens := store.NewTokenRepo(tx)
	orgs := store.NewOrganizationRepo(tx)
	endpoints := store.NewEndpointRepo(tx)

	used, err := tokens.TryUse(ctx, tok.ID)
	if err != nil {
		return nil, apperr.Database(err)
	}
	if !used {
		return nil, apperr.Unauthorized()
	}

	org, err := orgs.FindByID(ctx, tok.OrgID)
	if err != nil {
		return nil, apperr.Database(err)
	}
	tier := tenancy.ParseTier(org.Tier)

	endpoint, err := endpoints.FindByOrgAndHwid(ctx, org.ID, in.Hwid)
	if err != nil {
		return nil, apperr.Database(err)
	}

	if endpoint == nil {
		count, err := orgs.CountEndpoints(ctx, org.ID)
		if err != nil {
			return nil, apperr.Database(err)
		}
		max := tenancy.MaxDevices(tier, org.MaxAgents)
		if count >= int64(max) {
			// The token must not be consumed by a rejected enrollment.
			if err := tokens.Release(ctx, tok.ID); err != nil {
				return nil, apperr.Database(err)
			}
			if err := tx.Commit(ctx); err != nil {
				return nil, apperr.Database(err)
			}
			return nil, apperr.Validation(quotaMessage(count, max))
		}
	}

	agentToken := auth.NewAgentToken()
	tokenHash := auth.HashBearerToken(agentToken)

	if endpoint == nil {
		endpoint, err = endpoints.Insert(ctx, org.ID, in.Hwid, in.Hostname, in.OSType, in.OSVersion, in.AgentVersion, tokenHash)
	} else {
		endpoint, err = endpoints.RotateToken(ctx, endpoint.ID, in.Hostname, in.OSType, in.OSVersion, in.AgentVersion, tokenHash)
	}
	if err != nil {
		return nil, apperr.Database(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperr.Database(err)
	}

	return &OrgEnrollResult{AgentID: endpoint.ID, AgentToken: agentToken, OrgID: org.ID, OrgName: org.Name}, nil
}

// defaultOrgName names the built-in organization legacy-register maps
// unrecognized agents into.
const defaultOrgName = "Default Organization"

// LegacyRegister implements the pre-token compatibility flow: accepted
// only when registrationKey matches the server-configured shared secret.
func (s *EnrollmentService) LegacyRegister(ctx context.Context, registrationKey, hostname string, osType, osVersion, agentVersion *string) (*OrgEnrollResult, error) {
	if registrationKey != s.AgentSecret {
		return nil, apperr.Unauthorized()
	}

	org, err := s.findOrCreateDefaultOrg(ctx)
	if err != nil {
		return nil, err
	}

	agentToken := auth.NewAgentToken()
	tokenHash := auth.HashBearerToken(agentToken)
	endpoint, err := s.Endpoints.Insert(ctx, org.ID, uuid.NewString(), hostname, osType, osVersion, agentVersion, tokenHash)
	if err != nil {
		return nil, apperr.Database(err)
	}

	return &OrgEnrollResult{AgentID: endpoint.ID, AgentToken: agentToken, OrgID: org.ID, OrgName: org.Name}, nil
}

func (s *EnrollmentService) findOrCreateDefaultOrg(ctx context.Context) (*store.Organization, error) {
	var id uuid.UUID
	err := s.DB.QueryRow(ctx, `SELECT id FROM organizations WHERE name = $1 LIMIT 1`, defaultOrgName).Scan(&id)
	if err == nil {
		return s.Orgs.FindByID(ctx, id)
	}
	org, err := s.Orgs.Create(ctx, defaultOrgName, string(tenancy.Organization), 1000)
	if err != nil {
		return nil, apperr.Database(err)
	}
	return org, nil
}
