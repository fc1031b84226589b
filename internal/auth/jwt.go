package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Principal is the authenticated identity carried by a verified user JWT.
type Principal struct {
	UserID uuid.UUID
	OrgID  uuid.UUID
	Role   string
}

type userClaims struct {
	Org  string `json:"org"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// JWTSigner mints and verifies user session tokens with a symmetric
// secret and a fixed lifetime.
type JWTSigner struct {
	secret     []byte
	expiration time.Duration
}

// NewJWTSigner builds a signer with the given secret and token lifetime.
func NewJWTSigner(secret string, expirationHours int) JWTSigner {
	return JWTSigner{secret: []byte(secret), expiration: time.Duration(expirationHours) * time.Hour}
}

// Mint signs a new session token for the given principal.
func (s JWTSigner) Mint(p Principal) (string, error) {
	now := time.Now().UTC()
	claims := userClaims{
		Org:  p.OrgID.String(),
		Role: p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiration)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(s.secret)
}

// ErrInvalidToken is returned for any verification failure — expired,
// malformed, or forged. The caller never learns which, to avoid leaking
// signal to an attacker.
var ErrInvalidToken = errors.New("invalid token")

// Verify parses and validates a session token, returning the embedded
// Principal. Any failure — signature, expiry, or shape — collapses to
// ErrInvalidToken.
func (s JWTSigner) Verify(tokenStr string) (Principal, error) {
	var claims userClaims
	tok, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil || !tok.Valid {
		return Principal{}, ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Principal{}, ErrInvalidToken
	}
	orgID, err := uuid.Parse(claims.Org)
	if err != nil {
		return Principal{}, ErrInvalidToken
	}
	return Principal{UserID: userID, OrgID: orgID, Role: claims.Role}, nil
}
