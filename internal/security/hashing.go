package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2id defaults per the OWASP recommendation. Parameters are embedded in
// every hash, so they can be raised later without invalidating stored hashes.
const (
	defaultArgonMemory  uint32 = 64 * 1024 // KiB
	defaultArgonTime    uint32 = 3
	defaultArgonThreads uint8  = 1

	argonKeyLen  = 32
	argonSaltLen = 16
)

// ErrInvalidHash is returned when a stored hash is not a parseable Argon2id
// PHC string.
var ErrInvalidHash = errors.New("invalid password hash")

// Hasher hashes and verifies passwords with Argon2id. Callers must not log or
// persist plaintext passwords.
type Hasher struct {
	memory  uint32
	time    uint32
	threads uint8
}

// NewHasher returns a Hasher with the given Argon2id parameters; zero values
// fall back to the defaults.
func NewHasher(memory, time uint32, threads uint8) *Hasher {
	if memory == 0 {
		memory = defaultArgonMemory
	}
	if time == 0 {
		time = defaultArgonTime
	}
	if threads == 0 {
		threads = defaultArgonThreads
	}
	return &Hasher{memory: memory, time: time, threads: threads}
}

// Hash derives an Argon2id hash of password with a fresh random salt and
// returns it in PHC string format:
// $argon2id$v=19$m=65536,t=3,p=1$<salt>$<hash>
func (h *Hasher) Hash(password string) (string, error) {
	salt := make([]byte, argonSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, h.time, h.memory, h.threads, argonKeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.memory, h.time, h.threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify checks password against an encoded PHC hash using the parameters
// embedded in the hash, and compares in constant time. Returns (false, nil)
// on mismatch and an error only for unparseable hashes.
func (h *Hasher) Verify(encoded, password string) (bool, error) {
	salt, key, p, err := decodePHC(encoded)
	if err != nil {
		return false, err
	}
	candidate := argon2.IDKey([]byte(password), salt, p.time, p.memory, p.threads, uint32(len(key)))
	return subtle.ConstantTimeCompare(key, candidate) == 1, nil
}

type argonParams struct {
	memory  uint32
	time    uint32
	threads uint8
}

func decodePHC(encoded string) (salt, key []byte, p argonParams, err error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return nil, nil, p, ErrInvalidHash
	}
	if parts[1] != "argon2id" {
		return nil, nil, p, fmt.Errorf("%w: unsupported algorithm %q", ErrInvalidHash, parts[1])
	}
	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return nil, nil, p, fmt.Errorf("%w: %v", ErrInvalidHash, err)
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.time, &p.threads); err != nil {
		return nil, nil, p, fmt.Errorf("%w: %v", ErrInvalidHash, err)
	}
	salt, err = base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, nil, p, fmt.Errorf("%w: %v", ErrInvalidHash, err)
	}
	key, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, nil, p, fmt.Errorf("%w: %v", ErrInvalidHash, err)
	}
	return salt, key, p, nil
}
