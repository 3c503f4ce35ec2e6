package hash

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword_RoundTrip(t *testing.T) {
	t.Parallel()

	h, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)

	assert.True(t, CheckPassword(h, "correct horse battery staple"))
	assert.False(t, CheckPassword(h, "wrong password"))
	assert.False(t, CheckPassword(h, ""))
}

func TestHashPassword_Salted(t *testing.T) {
	t.Parallel()

	a, err := HashPassword("same-password")
	require.NoError(t, err)
	b, err := HashPassword("same-password")
	require.NoError(t, err)

	// per-hash salt means two hashes of the same input differ
	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(a, "$2"))
}

func TestCheckPassword_GarbageHash(t *testing.T) {
	t.Parallel()

	assert.False(t, CheckPassword("not-a-bcrypt-hash", "anything"))
	assert.False(t, CheckPassword("", "anything"))
}
