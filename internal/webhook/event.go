package webhook

type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
)

// PaymentEvent is a parsed, authenticated payment-outcome notification.
// Transports verify the delivery signature and normalize their payload into
// this shape before anything touches the ledger.
type PaymentEvent struct {
	// ID is the provider-assigned notification identifier, used only for
	// the advisory dedup fast path.
	ID          string
	Outcome     Outcome
	BillingID   string
	AmountMinor int64
	Method      string
	Reason      string
	ProviderRef string
}
