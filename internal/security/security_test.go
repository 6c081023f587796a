package security

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastParams = ArgonParams{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLen: 16, KeyLen: 32}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("vino-tinto", fastParams)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=8192,t=1,p=1$"))

	ok, err := VerifyPassword("vino-tinto", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword("vino-blanco", hash)
	require.NoError(t, err)
	assert.False(t, ok)

	other, err := HashPassword("vino-tinto", fastParams)
	require.NoError(t, err)
	assert.NotEqual(t, hash, other, "salts differ")
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	_, err := HashPassword("", fastParams)
	assert.Error(t, err)
}

func TestVerifyPasswordMalformedHash(t *testing.T) {
	for _, encoded := range []string{"", "plain", "$argon2i$v=19$m=1,t=1,p=1$c2FsdA$aGFzaA", "$argon2id$v=19$m=x,t=1,p=1$c2FsdA$aGFzaA"} {
		_, err := VerifyPassword("x", encoded)
		assert.ErrorIs(t, err, ErrInvalidHash, encoded)
	}
}

func TestOpaqueToken(t *testing.T) {
	token, digest, err := NewOpaqueToken()
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, digest, DigestToken(token))
	assert.NotEqual(t, token, digest)
}

func TestSessionTokenRoundTrip(t *testing.T) {
	cfg := TokenConfig{Secret: "s3cret", Issuer: "puerto-real", TTL: time.Hour}
	now := time.Now()

	signed, expiresAt, err := MintSessionToken(cfg, now, 42, "ana@puertoreal.com")
	require.NoError(t, err)
	assert.WithinDuration(t, now.Add(time.Hour), expiresAt, time.Second)

	claims, err := ParseSessionToken(cfg, signed)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "ana@puertoreal.com", claims.Email)
	assert.Equal(t, "42", claims.Subject)
}

func TestSessionTokenRejections(t *testing.T) {
	cfg := TokenConfig{Secret: "s3cret", Issuer: "puerto-real", TTL: time.Hour}

	expired, _, err := MintSessionToken(cfg, time.Now().Add(-2*time.Hour), 1, "a@b.c")
	require.NoError(t, err)
	_, err = ParseSessionToken(cfg, expired)
	assert.Error(t, err)

	valid, _, err := MintSessionToken(cfg, time.Now(), 1, "a@b.c")
	require.NoError(t, err)
	_, err = ParseSessionToken(TokenConfig{Secret: "other", Issuer: "puerto-real"}, valid)
	assert.Error(t, err)
	_, err = ParseSessionToken(TokenConfig{Secret: "s3cret", Issuer: "someone-else"}, valid)
	assert.Error(t, err)

	_, _, err = MintSessionToken(TokenConfig{TTL: time.Hour}, time.Now(), 1, "a@b.c")
	assert.Error(t, err)
}
