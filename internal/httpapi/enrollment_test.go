package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}, bearer string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// TestPersonalEnrollCreatesOrgAndEndpoint covers the personal-free signup
// flow: a brand-new email enrolls its first device and gets back a
// usable session JWT plus an agent token for the new endpoint.
func TestPersonalEnrollCreatesOrgAndEndpoint(t *testing.T) {
	pool := getTestDB(t)
	defer pool.Close()
	h := newTestServer(pool).Routes()

	rec := doJSON(t, h, http.MethodPost, "/api/v1/personal/enroll", personalEnrollRequest{
		Email: "alice@example.com", Password: "correcthorsebatterystaple",
		Hwid: "hwid-laptop-1", Hostname: "alices-macbook",
	}, "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp personalEnrollResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !resp.IsNewUser {
		t.Fatalf("expected is_new_user=true for first enrollment")
	}
	if resp.Tier != "personal_free" {
		t.Fatalf("expected personal_free tier, got %q", resp.Tier)
	}
	if resp.JWT == "" || resp.AgentToken == "" {
		t.Fatalf("expected non-empty jwt and agent_token")
	}
}

// TestPersonalEnrollSameHwidReauthenticates covers re-running personal
// enroll for the same user/hwid: it must reuse the existing endpoint
// rather than creating a second one, and must still issue a session.
func TestPersonalEnrollSameHwidReauthenticates(t *testing.T) {
	pool := getTestDB(t)
	defer pool.Close()
	h := newTestServer(pool).Routes()

	req := personalEnrollRequest{
		Email: "bob@example.com", Password: "correcthorsebatterystaple",
		Hwid: "hwid-laptop-2", Hostname: "bobs-thinkpad",
	}

	first := doJSON(t, h, http.MethodPost, "/api/v1/personal/enroll", req, "")
	if first.Code != http.StatusOK {
		t.Fatalf("first enroll: expected 200, got %d: %s", first.Code, first.Body.String())
	}
	var firstResp personalEnrollResponse
	if err := json.Unmarshal(first.Body.Bytes(), &firstResp); err != nil {
		t.Fatalf("failed to decode first response: %v", err)
	}

	second := doJSON(t, h, http.MethodPost, "/api/v1/personal/enroll", req, "")
	if second.Code != http.StatusOK {
		t.Fatalf("second enroll: expected 200, got %d: %s", second.Code, second.Body.String())
	}
	var secondResp personalEnrollResponse
	if err := json.Unmarshal(second.Body.Bytes(), &secondResp); err != nil {
		t.Fatalf("failed to decode second response: %v", err)
	}

	if secondResp.IsNewUser {
		t.Fatalf("expected is_new_user=false on re-enroll of existing user")
	}
	if secondResp.AgentID != firstResp.AgentID {
		t.Fatalf("expected same endpoint id on re-enroll of same hwid, got %s vs %s", secondResp.AgentID, firstResp.AgentID)
	}
	if secondResp.AgentToken == firstResp.AgentToken {
		t.Fatalf("expected a freshly rotated agent token on re-enroll")
	}
}

// TestPersonalEnrollSecondDeviceHitsQuota covers the personal_free
// single-device cap: enrolling a second distinct hwid for the same
// account must be rejected with the device-limit message.
func TestPersonalEnrollSecondDeviceHitsQuota(t *testing.T) {
	pool := getTestDB(t)
	defer pool.Close()
	h := newTestServer(pool).Routes()

	base := personalEnrollRequest{
		Email: "carol@example.com", Password: "correcthorsebatterystaple",
		Hwid: "hwid-desktop-1", Hostname: "carols-desktop",
	}
	first := doJSON(t, h, http.MethodPost, "/api/v1/personal/enroll", base, "")
	if first.Code != http.StatusOK {
		t.Fatalf("first enroll: expected 200, got %d: %s", first.Code, first.Body.String())
	}

	base.Hwid = "hwid-laptop-3"
	base.Hostname = "carols-laptop"
	second := doJSON(t, h, http.MethodPost, "/api/v1/personal/enroll", base, "")
	if second.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for quota rejection, got %d: %s", second.Code, second.Body.String())
	}

	var body map[string]interface{}
	if err := json.Unmarshal(second.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	msg, _ := body["error"].(string)
	want := "Device limit reached (1/1). Upgrade to add more devices."
	if msg != want {
		t.Fatalf("expected message %q, got %q (body: %s)", want, msg, second.Body.String())
	}
}

// TestCrossTenantEndpointGetIsForbidden covers tenant isolation: a user
// from one organization must not be able to fetch an endpoint that
// belongs to a different organization, even by guessing its id.
func TestCrossTenantEndpointGetIsForbidden(t *testing.T) {
	pool := getTestDB(t)
	defer pool.Close()
	h := newTestServer(pool).Routes()

	ownerEnroll := doJSON(t, h, http.MethodPost, "/api/v1/personal/enroll", personalEnrollRequest{
		Email: "owner@example.com", Password: "correcthorsebatterystaple",
		Hwid: "hwid-owner", Hostname: "owner-box",
	}, "")
	if ownerEnroll.Code != http.StatusOK {
		t.Fatalf("owner enroll: expected 200, got %d: %s", ownerEnroll.Code, ownerEnroll.Body.String())
	}
	var owner personalEnrollResponse
	if err := json.Unmarshal(ownerEnroll.Body.Bytes(), &owner); err != nil {
		t.Fatalf("failed to decode owner response: %v", err)
	}

	intruderEnroll := doJSON(t, h, http.MethodPost, "/api/v1/personal/enroll", personalEnrollRequest{
		Email: "intruder@example.com", Password: "correcthorsebatterystaple",
		Hwid: "hwid-intruder", Hostname: "intruder-box",
	}, "")
	if intruderEnroll.Code != http.StatusOK {
		t.Fatalf("intruder enroll: expected 200, got %d: %s", intruderEnroll.Code, intruderEnroll.Body.String())
	}
	var intruder personalEnrollResponse
	if err := json.Unmarshal(intruderEnroll.Body.Bytes(), &intruder); err != nil {
		t.Fatalf("failed to decode intruder response: %v", err)
	}

	rec := doJSON(t, h, http.MethodGet, "/api/v1/endpoints/"+owner.AgentID, nil, intruder.JWT)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for cross-tenant endpoint access, got %d: %s", rec.Code, rec.Body.String())
	}
}

// TestOrgEnrollConcurrentTokenUseRespectsMaxUses covers the org-token
// try-use race: an enrollment token capped at two uses must accept
// exactly two enrollments and reject any further attempt.
func TestOrgEnrollConcurrentTokenUseRespectsMaxUses(t *testing.T) {
	pool := getTestDB(t)
	defer pool.Close()
	srv := newTestServer(pool)
	h := srv.Routes()

	regRec := doJSON(t, h, http.MethodPost, "/api/v1/auth/register", registerOrgRequest{
		OrgName: "Acme Corp", Email: "admin@acme.example", Password: "correcthorsebatterystaple",
	}, "")
	if regRec.Code != http.StatusCreated {
		t.Fatalf("org register: expected 201, got %d: %s", regRec.Code, regRec.Body.String())
	}
	var reg authResponse
	if err := json.Unmarshal(regRec.Body.Bytes(), &reg); err != nil {
		t.Fatalf("failed to decode register response: %v", err)
	}

	maxUses := 2
	tokRec := doJSON(t, h, http.MethodPost, "/api/v1/tokens", tokenCreateRequest{
		Name: "fleet rollout", MaxUses: &maxUses,
	}, reg.Token)
	if tokRec.Code != http.StatusCreated {
		t.Fatalf("token create: expected 201, got %d: %s", tokRec.Code, tokRec.Body.String())
	}
	var created struct {
		Token string
	}
	if err := json.Unmarshal(tokRec.Body.Bytes(), &created); err != nil {
		t.Fatalf("failed to decode token create response: %v", err)
	}

	results := make([]int, 3)
	for i := 0; i < 3; i++ {
		rec := doJSON(t, h, http.MethodPost, "/api/v1/agent/enroll", orgEnrollRequest{
			Token: created.Token, Hwid: "hwid-org-" + string(rune('a'+i)), Hostname: "org-box",
		}, "")
		results[i] = rec.Code
	}

	successCount := 0
	for _, code := range results {
		if code == http.StatusOK {
			successCount++
		}
	}
	if successCount != 2 {
		t.Fatalf("expected exactly 2 of 3 org-enroll attempts to succeed with max_uses=2, got %d (codes: %v)", successCount, results)
	}
}

func TestHealthEndpoint(t *testing.T) {
	pool := getTestDB(t)
	defer pool.Close()
	h := newTestServer(pool).Routes()

	rec := doJSON(t, h, http.MethodGet, "/api/v1/health", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("expected status ok, got %v", body["status"])
	}
}
