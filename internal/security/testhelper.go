package security

import "time"

// Test secrets for unit tests only. Do not use in production.
const (
	testAccessSecret  = "test-access-secret-0123456789abcdef"
	testRefreshSecret = "test-refresh-secret-0123456789abcdef"
)

// NewTestTokenCodec returns a TokenCodec with embedded test secrets and short
// lifetimes. For unit tests only.
func NewTestTokenCodec() *TokenCodec {
	return NewTokenCodec([]byte(testAccessSecret), []byte(testRefreshSecret), 15*time.Minute, 24*time.Hour)
}

// NewTestHasher returns a Hasher with parameters cheap enough for tests.
func NewTestHasher() *Hasher {
	return NewHasher(8*1024, 1, 1)
}
