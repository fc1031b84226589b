package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// argon2 parameters. Chosen to match the interactive-login profile
// recommended for argon2id: 64 MiB memory, 1 iteration, 4-way parallelism.
const (
	argonMemoryKiB = 64 * 1024
	argonTime      = 1
	argonThreads   = 4
	argonKeyLen    = 32
	saltLen        = 16
)

// HashPassword derives a self-describing argon2id hash string for the
// given plaintext password. The returned string embeds the algorithm,
// version, and parameters, so verification never needs out-of-band
// configuration.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	hash := argon2.IDKey([]byte(password), salt, argonTime, argonMemoryKiB, argonThreads, argonKeyLen)
	return encodePHC(salt, hash), nil
}

// dummyHash is a fixed, precomputed argon2id string verified against on a
// login attempt for an email that does not exist, so failure latency does
// not distinguish "no such user" from "wrong password".
var dummyHash = mustHash("fleetward-dummy-password-for-timing-parity")

func mustHash(pw string) string {
	h, err := HashPassword(pw)
	if err != nil {
		panic(err)
	}
	return h
}

// VerifyPassword reparses the stored PHC-format hash and checks password
// against it in constant time. A malformed stored hash is an internal
// error, never reported as "wrong password".
func VerifyPassword(password, stored string) (bool, error) {
	salt, hash, mem, iter, par, err := decodePHC(stored)
	if err != nil {
		return false, err
	}
	candidate := argon2.IDKey([]byte(password), salt, iter, mem, par, uint32(len(hash)))
	return subtle.ConstantTimeCompare(candidate, hash) == 1, nil
}

// VerifyPasswordTimingSafe runs the same argon2 work whether or not the
// user exists, by verifying against dummyHash when userStoredHash is
// empty. The boolean result is meaningless in that case — callers must
// still reject login when the user was not found.
func VerifyPasswordTimingSafe(password, userStoredHash string) (bool, error) {
	if userStoredHash == "" {
		_, err := VerifyPassword(password, dummyHash)
		return false, err
	}
	return VerifyPassword(password, userStoredHash)
}

func encodePHC(salt, hash []byte) string {
	b64 := base64.RawStdEncoding
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemoryKiB, argonTime, argonThreads,
		b64.EncodeToString(salt), b64.EncodeToString(hash))
}

func decodePHC(s string) (salt, hash []byte, mem uint32, iter uint32, par uint8, err error) {
	parts := strings.Split(s, "$")
	// ["", "argon2id", "v=19", "m=..,t=..,p=..", "<salt>", "<hash>"]
	if len(parts) != 6 || parts[1] != "argon2id" {
		return nil, nil, 0, 0, 0, fmt.Errorf("malformed password hash")
	}
	var version int
	if _, err = fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, nil, 0, 0, 0, fmt.Errorf("malformed password hash version: %w", err)
	}
	var m, t int
	var p int
	if _, err = fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &m, &t, &p); err != nil {
		return nil, nil, 0, 0, 0, fmt.Errorf("malformed password hash params: %w", err)
	}
	b64 := base64.RawStdEncoding
	salt, err = b64.DecodeString(parts[4])
	if err != nil {
		return nil, nil, 0, 0, 0, fmt.Errorf("malformed password hash salt: %w", err)
	}
	hash, err = b64.DecodeString(parts[5])
	if err != nil {
		return nil, nil, 0, 0, 0, fmt.Errorf("malformed password hash digest: %w", err)
	}
	return salt, hash, uint32(m), uint32(t), uint8(p), nil
}
