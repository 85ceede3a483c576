package dbutil

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func TestFinalize(t *testing.T) {
	query, args := Finalize("SELECT version FROM schema_migrations WHERE (version=?) LIMIT ?", []interface{}{"001", 1})
	require.Equal(t, "SELECT version FROM schema_migrations WHERE (version=$1) LIMIT $2", query)
	require.Equal(t, []interface{}{"001", 1}, args)

	query, args = Finalize("SELECT id FROM accounts WHERE username=? OR email=?", []interface{}{"x", "x"})
	require.Equal(t, "SELECT id FROM accounts WHERE username=$1 OR email=$2", query)
	require.Len(t, args, 2)
}

func TestErrorCodes(t *testing.T) {
	unique := fmt.Errorf("insert: %w", &pq.Error{Code: "23505"})
	fk := &pq.Error{Code: "23503"}
	require.True(t, IsConflict(unique))
	require.False(t, IsConflict(fk))
	require.True(t, IsForeignKeyViolation(fk))
	require.False(t, IsConflict(errors.New("boom")))
}
