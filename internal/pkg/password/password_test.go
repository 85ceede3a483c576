package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashAndMatches(t *testing.T) {
	hash, err := Hash("s3cret")
	require.NoError(t, err)
	require.NotEqual(t, "s3cret", hash)

	ok, err := Matches(hash, "s3cret")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = Matches(hash, "wrong")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMatches_MalformedHash(t *testing.T) {
	ok, err := Matches("not-a-bcrypt-hash", "x")
	require.Error(t, err)
	require.False(t, ok)
}

func TestHash_TooLong(t *testing.T) {
	_, err := Hash(strings.Repeat("a", MaxBytes+1))
	require.ErrorIs(t, err, ErrTooLong)

	hash, err := Hash(strings.Repeat("a", MaxBytes))
	require.NoError(t, err)
	require.NotEmpty(t, hash)
}
