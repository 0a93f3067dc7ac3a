// Package auth — password hashing utilities.
//
// WHY ARGON2ID?
// Argon2id is a memory-hard password hash: every guess costs the attacker
// both CPU time and tens of megabytes of RAM, which defeats GPU farms far
// better than CPU-only hashes. It also has no input length cap, which
// matters here because we hash password + salt + pepper together, easily
// longer than bcrypt's 72-byte limit.
//
// Hash format (PHC-style, self-describing so parameters can be raised later
// without invalidating stored hashes):
//
//	argon2id$v=19$m=65536,t=3,p=2$<base64 salt>$<base64 key>
//
// The argon2 salt embedded here is internal to the digest. It is separate
// from the per-user Salt column, which is mixed into the plaintext before
// hashing (see service.AccountService).
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	argon2Variant = "argon2id"
	argon2Version = "v=19"
)

var errInvalidHash = errors.New("auth: invalid password hash format")

// Argon2Params are the argon2id cost parameters.
type Argon2Params struct {
	Memory      uint32 // KiB
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultArgon2Params takes roughly 50–100ms on a modern server.
var DefaultArgon2Params = Argon2Params{
	Memory:      64 * 1024,
	Iterations:  3,
	Parallelism: 2,
	SaltLength:  16,
	KeyLength:   32,
}

// PasswordHasher hashes and verifies passwords. The service depends on this
// interface so tests can swap in cheaper parameters or a failing fake.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(digest, plaintext string) (bool, error)
}

// PasswordService provides argon2id hashing and verification.
//
// It's a struct (not free functions) so that the cost can be injected
// in tests — small parameters make tests run in milliseconds.
type PasswordService struct {
	params Argon2Params
}

var _ PasswordHasher = (*PasswordService)(nil)

// NewPasswordService creates a PasswordService with DefaultArgon2Params.
func NewPasswordService() *PasswordService {
	return &PasswordService{params: DefaultArgon2Params}
}

// NewPasswordServiceForTest creates a PasswordService with the cheapest
// parameters argon2 allows. Do NOT use in production.
func NewPasswordServiceForTest() *PasswordService {
	return &PasswordService{params: Argon2Params{
		Memory:      8,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  8,
		KeyLength:   16,
	}}
}

// Hash derives an argon2id key for plaintext under a fresh random salt and
// returns the encoded digest.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	salt := make([]byte, p.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("auth: generating salt: %w", err)
	}

	key := argon2.IDKey([]byte(plaintext), salt, p.params.Iterations, p.params.Memory, p.params.Parallelism, p.params.KeyLength)

	return strings.Join([]string{
		argon2Variant,
		argon2Version,
		fmt.Sprintf("m=%d,t=%d,p=%d", p.params.Memory, p.params.Iterations, p.params.Parallelism),
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	}, "$"), nil
}

// Verify reports whether plaintext matches digest. The key comparison is
// constant-time. A malformed digest returns an error, never a match.
func (p *PasswordService) Verify(digest, plaintext string) (bool, error) {
	params, salt, want, err := decodeDigest(digest)
	if err != nil {
		return false, err
	}

	got := argon2.IDKey([]byte(plaintext), salt, params.Iterations, params.Memory, params.Parallelism, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

func decodeDigest(digest string) (Argon2Params, []byte, []byte, error) {
	parts := strings.Split(digest, "$")
	if len(parts) != 5 || parts[0] != argon2Variant || parts[1] != argon2Version {
		return Argon2Params{}, nil, nil, errInvalidHash
	}

	var params Argon2Params
	for _, kv := range strings.Split(parts[2], ",") {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			return Argon2Params{}, nil, nil, errInvalidHash
		}
		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return Argon2Params{}, nil, nil, fmt.Errorf("auth: parsing %s: %w", key, err)
		}
		switch key {
		case "m":
			params.Memory = uint32(n)
		case "t":
			params.Iterations = uint32(n)
		case "p":
			if n == 0 || n > 255 {
				return Argon2Params{}, nil, nil, errInvalidHash
			}
			params.Parallelism = uint8(n)
		default:
			return Argon2Params{}, nil, nil, errInvalidHash
		}
	}
	if params.Memory == 0 || params.Iterations == 0 || params.Parallelism == 0 {
		return Argon2Params{}, nil, nil, errInvalidHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[3])
	if err != nil {
		return Argon2Params{}, nil, nil, fmt.Errorf("auth: decoding salt: %w", err)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return Argon2Params{}, nil, nil, fmt.Errorf("auth: decoding key: %w", err)
	}
	if len(key) == 0 {
		return Argon2Params{}, nil, nil, errInvalidHash
	}

	return params, salt, key, nil
}

// NewSalt returns a random URL-safe string of n characters, used as the
// per-user salt column.
func NewSalt(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("auth: generating salt: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf)[:n], nil
}
