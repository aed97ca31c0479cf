package ledger

import "context"

// Tx is the view of the store inside one atomic unit. It is the complete
// set of operations the Writer may perform; no other code path mutates
// payments or billings.
type Tx interface {
	// GetBilling returns ErrBillingNotFound when the reference is unknown.
	GetBilling(ctx context.Context, billID string) (*BillingRecord, error)

	// LastPaymentID returns the highest identifier in the PY namespace,
	// or "" when the ledger is empty.
	LastPaymentID(ctx context.Context) (string, error)

	// PaidPaymentExists reports whether a paid ledger entry already
	// references the given billing record.
	PaidPaymentExists(ctx context.Context, billingID string) (bool, error)

	InsertPayment(ctx context.Context, p *PaymentRecord) error
	MarkBillingPaid(ctx context.Context, billID string) error
}

// Store is the durable document store. RunAtomic executes fn as one
// all-or-nothing unit: every read inside fn observes a state consistent
// with the eventual commit, and a conflicting concurrent unit causes a
// bounded store-managed retry of fn. fn must therefore be safe to re-run.
type Store interface {
	RunAtomic(ctx context.Context, fn func(Tx) error) error

	GetBilling(ctx context.Context, billID string) (*BillingRecord, error)
	GetPayment(ctx context.Context, payID string) (*PaymentRecord, error)
	ListPayments(ctx context.Context, billingID string) ([]PaymentRecord, error)
}
