package ledger

import "time"

type BillingStatus string

const (
	BillingPending BillingStatus = "pending"
	BillingPaid    BillingStatus = "paid"
)

type PaymentStatus string

const (
	PaymentPaid   PaymentStatus = "paid"
	PaymentFailed PaymentStatus = "failed"
)

// BillingRecord is an amount owed by a user. Records are created by the
// billing workflow upstream of this service; the only mutation allowed here
// is the pending->paid status flip performed by the Writer.
type BillingRecord struct {
	BillID      string        `json:"billID"`
	Amount      float64       `json:"billAmt"`
	Status      BillingStatus `json:"billStatus"`
	ProviderRef string        `json:"providerRef,omitempty"`
}

// PaymentRecord is one immutable ledger entry. Amounts are stored in major
// currency units. Records are never updated or deleted after insert.
type PaymentRecord struct {
	PayID       string        `json:"payID"`
	Status      PaymentStatus `json:"payStatus"`
	Amount      float64       `json:"payAmt"`
	Method      string        `json:"payMethod"`
	CreatedAt   time.Time     `json:"payCreatedAt"`
	AdminRemark string        `json:"adminRemark"`
	MediaProof  string        `json:"payMediaProof"`
	ProviderID  string        `json:"providerID"`
	BillingID   string        `json:"billingID"`
}
