package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastParams = Params{Time: 1, MemKiB: 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

func TestHasher_RoundTrip(t *testing.T) {
	h := NewHasher(fastParams)

	encoded, err := h.Hash("correct-horse-battery-staple")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$m=1024,t=1,p=1$"))

	ok, err := h.Verify("correct-horse-battery-staple", encoded)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify("wrong", encoded)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHasher_UniqueSalts(t *testing.T) {
	h := NewHasher(fastParams)

	a, err := h.Hash("same")
	require.NoError(t, err)
	b, err := h.Hash("same")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestHasher_VerifyUsesStoredParams(t *testing.T) {
	encoded, err := NewHasher(fastParams).Hash("pw")
	require.NoError(t, err)

	ok, err := NewHasher(DefaultParams).Verify("pw", encoded)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHasher_VerifyMalformed(t *testing.T) {
	h := NewHasher(fastParams)

	for _, encoded := range []string{
		"",
		"plain",
		"$bcrypt$v=19$m=1,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=18$m=1024,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$garbage$c2FsdA$a2V5",
		"$argon2id$v=19$m=1024,t=1,p=1$!!!$a2V5",
	} {
		_, err := h.Verify("pw", encoded)
		assert.ErrorIs(t, err, ErrInvalidHash, encoded)
	}
}
