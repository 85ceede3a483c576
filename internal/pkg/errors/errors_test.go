package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidationErrorMatchesInvalid(t *testing.T) {
	err := fmt.Errorf("sign up: %w", &ValidationError{Fields: map[string]string{
		"username": "Username must be at least 2 characters",
		"email":    "Invalid email address",
	}})
	require.True(t, errors.Is(err, ErrInvalid))
	require.Equal(t, "Invalid email address,Username must be at least 2 characters", UserMessage(err))
}

func TestWithMessage(t *testing.T) {
	err := fmt.Errorf("lookup: %w", WithMessage(ErrNotFound, "User not found"))
	require.True(t, IsNotFound(err))
	require.False(t, IsConflict(err))
	require.Equal(t, "User not found", UserMessage(err))
	require.Equal(t, "", UserMessage(ErrInternal))
}

func TestInternal(t *testing.T) {
	cause := errors.New("connection reset")
	err := Internal("find account", cause)
	require.ErrorIs(t, err, ErrInternal)
	require.ErrorIs(t, err, cause)
	require.Equal(t, "find account: internal: connection reset", err.Error())
	require.Equal(t, "", UserMessage(err))
}
