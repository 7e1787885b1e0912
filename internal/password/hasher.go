// Package password hashes and verifies user passwords.
//
// New hashes use Argon2id in the PHC string format:
//
//	$argon2id$v=19$m=<mem>,t=<iter>,p=<par>$<salt_b64>$<key_b64>
//
// Verification also accepts bcrypt hashes so rows seeded by other tooling
// keep working.
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidHash reports a malformed or unsupported encoded hash.
var ErrInvalidHash = errors.New("invalid password hash")

// Params controls Argon2id cost. MemoryKiB is in KiB as argon2.IDKey expects.
type Params struct {
	MemoryKiB   uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultParams is a baseline suitable for interactive logins.
func DefaultParams() Params {
	return Params{
		MemoryKiB:   64 * 1024,
		Iterations:  3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Hasher produces and checks password hashes. It holds no mutable state.
type Hasher struct {
	params Params
	dummy  string
}

// NewHasher builds a Hasher; zero fields in params fall back to DefaultParams.
func NewHasher(params Params) *Hasher {
	def := DefaultParams()
	if params.MemoryKiB == 0 {
		params.MemoryKiB = def.MemoryKiB
	}
	if params.Iterations == 0 {
		params.Iterations = def.Iterations
	}
	if params.Parallelism == 0 {
		params.Parallelism = def.Parallelism
	}
	if params.SaltLength == 0 {
		params.SaltLength = def.SaltLength
	}
	if params.KeyLength == 0 {
		params.KeyLength = def.KeyLength
	}
	h := &Hasher{params: params}
	// Verified against when a username is unknown so both failure paths cost
	// the same. The salt is fixed so building it cannot fail.
	salt := make([]byte, params.SaltLength)
	for i := range salt {
		salt[i] = byte(i)
	}
	h.dummy = h.encode(salt, argon2.IDKey([]byte("dummy-password-for-timing"), salt, params.Iterations, params.MemoryKiB, params.Parallelism, params.KeyLength))
	return h
}

// Hash returns a salted Argon2id hash of plain.
func (h *Hasher) Hash(plain string) (string, error) {
	salt := make([]byte, h.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("password: salt: %w", err)
	}
	key := argon2.IDKey([]byte(plain), salt, h.params.Iterations, h.params.MemoryKiB, h.params.Parallelism, h.params.KeyLength)
	return h.encode(salt, key), nil
}

func (h *Hasher) encode(salt, key []byte) string {
	b64 := base64.RawStdEncoding
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.MemoryKiB,
		h.params.Iterations,
		h.params.Parallelism,
		b64.EncodeToString(salt),
		b64.EncodeToString(key),
	)
}

// Verify reports whether plain matches encoded. Malformed hashes never match.
func (h *Hasher) Verify(plain, encoded string) bool {
	if isBcrypt(encoded) {
		return bcrypt.CompareHashAndPassword([]byte(encoded), []byte(plain)) == nil
	}
	params, salt, expected, err := decode(encoded)
	if err != nil || !h.withinBounds(params) {
		return false
	}
	key := argon2.IDKey([]byte(plain), salt, params.Iterations, params.MemoryKiB, params.Parallelism, uint32(len(expected)))
	return subtle.ConstantTimeCompare(key, expected) == 1
}

// VerifyDummy burns the same work as a real verification and always fails.
func (h *Hasher) VerifyDummy(plain string) bool {
	_ = h.Verify(plain, h.dummy)
	return false
}

// withinBounds refuses stored params far above the configured cost.
func (h *Hasher) withinBounds(got Params) bool {
	if got.MemoryKiB > h.params.MemoryKiB*2 || got.Iterations > h.params.Iterations*2 {
		return false
	}
	if uint32(got.Parallelism) > uint32(h.params.Parallelism)*2 {
		return false
	}
	return got.SaltLength >= 8 && got.SaltLength <= 64 && got.KeyLength >= 16 && got.KeyLength <= 128
}

func isBcrypt(encoded string) bool {
	return strings.HasPrefix(encoded, "$2a$") || strings.HasPrefix(encoded, "$2b$") || strings.HasPrefix(encoded, "$2y$")
}

func decode(encoded string) (Params, []byte, []byte, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return Params{}, nil, nil, ErrInvalidHash
	}
	if parts[2] != fmt.Sprintf("v=%d", argon2.Version) {
		return Params{}, nil, nil, ErrInvalidHash
	}
	var mem, iter, par uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &iter, &par); err != nil {
		return Params{}, nil, nil, ErrInvalidHash
	}
	if mem == 0 || iter == 0 || par == 0 || par > 255 {
		return Params{}, nil, nil, ErrInvalidHash
	}
	b64 := base64.RawStdEncoding
	salt, err := b64.DecodeString(parts[4])
	if err != nil {
		return Params{}, nil, nil, ErrInvalidHash
	}
	key, err := b64.DecodeString(parts[5])
	if err != nil {
		return Params{}, nil, nil, ErrInvalidHash
	}
	return Params{
		MemoryKiB:   mem,
		Iterations:  iter,
		Parallelism: uint8(par),
		SaltLength:  uint32(len(salt)),
		KeyLength:   uint32(len(key)),
	}, salt, key, nil
}
