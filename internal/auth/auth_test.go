package auth

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("p@ssw0rd!")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=") {
		t.Errorf("hash = %q, want PHC argon2id prefix", hash)
	}

	ok, err := VerifyPassword("p@ssw0rd!", hash)
	if err != nil {
		t.Fatalf("VerifyPassword() error = %v", err)
	}
	if !ok {
		t.Error("VerifyPassword() = false, want true for correct password")
	}

	ok, err = VerifyPassword("wrong-password", hash)
	if err != nil {
		t.Fatalf("VerifyPassword() error = %v", err)
	}
	if ok {
		t.Error("VerifyPassword() = true, want false for wrong password")
	}
}

func TestVerifyPasswordMalformedHash(t *testing.T) {
	if _, err := VerifyPassword("anything", "not-a-phc-string"); err == nil {
		t.Error("VerifyPassword() on malformed hash should error, not report wrong-password")
	}
}

func TestVerifyPasswordTimingSafeMissingUser(t *testing.T) {
	ok, err := VerifyPasswordTimingSafe("anything", "")
	if err != nil {
		t.Fatalf("VerifyPasswordTimingSafe() error = %v", err)
	}
	if ok {
		t.Error("VerifyPasswordTimingSafe() with no stored hash must never report success")
	}
}

func TestHashBearerToken(t *testing.T) {
	got := HashBearerToken("my-secret-token")
	if len(got) != 64 {
		t.Errorf("HashBearerToken() len = %d, want 64 (hex sha256)", len(got))
	}
	if HashBearerToken("my-secret-token") != got {
		t.Error("HashBearerToken() must be deterministic")
	}
	if HashBearerToken("other-token") == got {
		t.Error("HashBearerToken() collided for distinct inputs")
	}
}

func TestNewEnrollmentTokenShape(t *testing.T) {
	orgID := uuid.New()
	tok := NewEnrollmentToken(orgID)
	if !strings.HasPrefix(tok, "ORG_") {
		t.Errorf("token = %q, want ORG_ prefix", tok)
	}
	parts := strings.Split(tok, "_")
	if len(parts) != 3 {
		t.Fatalf("token = %q, want 3 underscore-delimited parts", tok)
	}
	if len(parts[1]) != 8 || len(parts[2]) != 8 {
		t.Errorf("token = %q, want 8 hex chars in each suffix", tok)
	}
}

func TestTokenPreview(t *testing.T) {
	short := TokenPreview("abc123")
	if short != strings.Repeat("*", len("abc123")) {
		t.Errorf("TokenPreview(short) = %q, want fully redacted", short)
	}
	long := TokenPreview("ORG_deadbeef_cafef00d")
	if !strings.HasPrefix(long, "ORG_deadb") || !strings.HasSuffix(long, "f00d") {
		t.Errorf("TokenPreview(long) = %q, want first8...last4 shape", long)
	}
}

func TestJWTRoundTrip(t *testing.T) {
	signer := NewJWTSigner("test-secret", 24)
	p := Principal{UserID: uuid.New(), OrgID: uuid.New(), Role: "admin"}

	tok, err := signer.Mint(p)
	if err != nil {
		t.Fatalf("Mint() error = %v", err)
	}

	got, err := signer.Verify(tok)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if got != p {
		t.Errorf("Verify() = %+v, want %+v", got, p)
	}
}

func TestJWTVerifyRejectsTamperedSecret(t *testing.T) {
	signer := NewJWTSigner("test-secret", 24)
	other := NewJWTSigner("different-secret", 24)
	tok, err := signer.Mint(Principal{UserID: uuid.New(), OrgID: uuid.New(), Role: "viewer"})
	if err != nil {
		t.Fatalf("Mint() error = %v", err)
	}
	if _, err := other.Verify(tok); err != ErrInvalidToken {
		t.Errorf("Verify() with wrong secret = %v, want ErrInvalidToken", err)
	}
}

func TestJWTVerifyRejectsGarbage(t *testing.T) {
	signer := NewJWTSigner("test-secret", 24)
	if _, err := signer.Verify("not-a-jwt"); err != ErrInvalidToken {
		t.Errorf("Verify() of garbage = %v, want ErrInvalidToken", err)
	}
}
