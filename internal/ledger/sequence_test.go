package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNextPaymentID(t *testing.T) {
	tests := []struct {
		name string
		last string
		want string
	}{
		{"empty ledger", "", "PY0001"},
		{"increments", "PY0007", "PY0008"},
		{"keeps padding", "PY0042", "PY0043"},
		{"crosses hundred", "PY0099", "PY0100"},
		{"widens past four digits", "PY9999", "PY10000"},
		{"already wide", "PY10041", "PY10042"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextPaymentID(tt.last)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestNextPaymentIDMalformed(t *testing.T) {
	// A malformed highest identifier must fail the operation. Guessing
	// (e.g. restarting at PY0001) could mint a duplicate.
	for _, last := range []string{"XX0001", "PYabcd", "PY", "0007", "PY-1"} {
		_, err := NextPaymentID(last)
		require.Error(t, err, "last=%q", last)
	}
}

func TestSequenceRangeCoversIdentifiers(t *testing.T) {
	lo, hi := SequenceRange()
	for _, id := range []string{"PY0001", "PY9999", "PY10000"} {
		require.GreaterOrEqual(t, id, lo)
		require.Less(t, id, hi)
	}
}
