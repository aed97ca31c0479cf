package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

func TestRetryableConflict(t *testing.T) {
	cases := []struct {
		code      string
		retryable bool
	}{
		{"40001", true},  // serialization_failure
		{"40P01", true},  // deadlock_detected
		{"23505", true},  // unique_violation on the payment id
		{"23502", false}, // not_null_violation
		{"42601", false}, // syntax_error
	}
	for _, tc := range cases {
		t.Run(tc.code, func(t *testing.T) {
			err := fmt.Errorf("insert payment: %w", &pgconn.PgError{Code: tc.code})
			require.Equal(t, tc.retryable, retryableConflict(err))
		})
	}
}

func TestRetryableConflictNonPostgresError(t *testing.T) {
	require.False(t, retryableConflict(errors.New("connection refused")))
	require.False(t, retryableConflict(nil))
}
