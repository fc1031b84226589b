package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// HashBearerToken returns the hex-encoded SHA-256 digest of a plaintext
// bearer token. Endpoints are looked up by this hash; the plaintext is
// never persisted.
func HashBearerToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// NewAgentToken generates a fresh high-entropy bearer token for an
// endpoint. Returned exactly once, at enrollment or rotation.
func NewAgentToken() string {
	return uuid.NewString()
}

// NewEnrollmentToken generates an org-scoped enrollment-token literal of
// the form ORG_<8 hex of org id>_<8 hex of fresh random>. The prefix is a
// human affordance only — try-use matches the full string.
func NewEnrollmentToken(orgID uuid.UUID) string {
	orgPrefix := strings.ReplaceAll(orgID.String(), "-", "")[:8]
	randSuffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return "ORG_" + orgPrefix + "_" + randSuffix
}

// TokenPreview redacts a secret value to first8…last4 for list/get
// responses. Values of 16 characters or fewer are redacted entirely.
func TokenPreview(token string) string {
	if len(token) <= 16 {
		return strings.Repeat("*", len(token))
	}
	return token[:8] + "..." + token[len(token)-4:]
}
