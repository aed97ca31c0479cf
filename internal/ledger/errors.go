package ledger

import "errors"

var (
	// ErrBillingNotFound means the event references a billing record that
	// does not exist. This is a hard error: the notification is about
	// billing state we have never seen, so nothing is written.
	ErrBillingNotFound = errors.New("billing record not found")

	// ErrPaymentNotFound means no ledger entry carries the identifier.
	ErrPaymentNotFound = errors.New("payment record not found")

	// ErrAlreadyProcessed is the duplicate short-circuit. It is a
	// control-flow outcome, not a failure: the ledger already holds a paid
	// record for the billing reference and the store is untouched.
	ErrAlreadyProcessed = errors.New("payment already recorded")

	// ErrConflict is returned after the store has exhausted its bounded
	// retries of a conflicting atomic unit.
	ErrConflict = errors.New("transaction conflict")
)
