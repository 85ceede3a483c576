package jwt

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParse(t *testing.T) {
	secret := []byte("test-secret")
	token, issued, err := GenerateToken(Principal{UserID: "u1", Username: "alice", Verified: true, Accepting: false}, secret, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, issued.ID)

	claims, err := ParseToken(token, secret)
	require.NoError(t, err)
	require.Equal(t, "u1", claims.UserID)
	require.Equal(t, "alice", claims.Username)
	require.True(t, claims.Verified)
	require.False(t, claims.Accepting)
	require.Equal(t, issued.ID, claims.ID)
}

func TestParseToken_WrongSecret(t *testing.T) {
	token, _, err := GenerateToken(Principal{UserID: "u1"}, []byte("a"), time.Hour)
	require.NoError(t, err)
	_, err = ParseToken(token, []byte("b"))
	require.Error(t, err)
}

func TestParseToken_Expired(t *testing.T) {
	token, _, err := GenerateToken(Principal{UserID: "u1"}, []byte("a"), -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(token, []byte("a"))
	require.Error(t, err)
}

func TestParseToken_RejectsOtherAlgorithms(t *testing.T) {
	claims := &Claims{UserID: "u1"}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS512, claims)
	signed, err := token.SignedString([]byte("a"))
	require.NoError(t, err)
	_, err = ParseToken(signed, []byte("a"))
	require.Error(t, err)
}
