package ledger

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	idPrefix  = "PY"
	idPadding = 4
)

// SequenceRange returns the half-open key range covering every payment
// identifier in the PY namespace. Stores use it as the filter for the
// highest-identifier query so the result is a plain index range scan.
func SequenceRange() (lo, hi string) {
	return idPrefix, idPrefix + "Z"
}

// NextPaymentID derives the identifier following last in the PY namespace.
// An empty last means the ledger holds no entries yet and yields PY0001.
// Identifiers are zero-padded to at least four digits and simply widen past
// PY9999.
//
// A last value that does not parse is an error: guessing an identifier here
// could collide with an existing ledger entry, so the caller must abort the
// enclosing atomic unit instead.
func NextPaymentID(last string) (string, error) {
	if last == "" {
		return formatPaymentID(1), nil
	}
	suffix, ok := strings.CutPrefix(last, idPrefix)
	if !ok {
		return "", fmt.Errorf("payment id %q: missing %q prefix", last, idPrefix)
	}
	n, err := strconv.ParseInt(suffix, 10, 64)
	if err != nil {
		return "", fmt.Errorf("payment id %q: non-numeric suffix", last)
	}
	if n < 0 {
		return "", fmt.Errorf("payment id %q: negative suffix", last)
	}
	return formatPaymentID(n + 1), nil
}

func formatPaymentID(n int64) string {
	return fmt.Sprintf("%s%0*d", idPrefix, idPadding, n)
}
