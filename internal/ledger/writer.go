package ledger

import (
	"context"
	"fmt"
)

// Writer commits payment outcomes to the ledger. All of its work happens
// inside a single Store.RunAtomic unit per outcome: the duplicate check,
// the billing lookup, the identifier allocation and the writes either all
// apply or none do. Two racing writers are serialized by the store's
// conflict detection on the identifier range they both read.
type Writer struct {
	Store Store
}

// SuccessInput describes one successful payment outcome.
type SuccessInput struct {
	BillingID   string
	AmountMinor int64
	Method      string
	ProviderID  string
	Remark      string

	// UseBillingAmount takes the amount from the billing record instead
	// of AmountMinor. The manual confirmation flow has no trustworthy
	// amount of its own, so it charges exactly what is owed.
	UseBillingAmount bool
}

// FailureInput describes one failed payment attempt. The billing record is
// left pending so the payment can be retried.
type FailureInput struct {
	BillingID   string
	AmountMinor int64
	Method      string
	Reason      string
	ProviderID  string

	UseBillingAmount bool
}

// RecordSuccess writes the paid ledger entry for a billing reference and
// flips the billing record to paid, as one atomic unit. It returns the new
// payment identifier, ErrAlreadyProcessed when a paid entry already exists
// (nothing written), or ErrBillingNotFound when the reference is unknown.
func (w *Writer) RecordSuccess(ctx context.Context, in SuccessInput) (string, error) {
	var payID string
	err := w.Store.RunAtomic(ctx, func(tx Tx) error {
		dup, err := tx.PaidPaymentExists(ctx, in.BillingID)
		if err != nil {
			return fmt.Errorf("duplicate check: %w", err)
		}
		if dup {
			return ErrAlreadyProcessed
		}

		billing, err := tx.GetBilling(ctx, in.BillingID)
		if err != nil {
			return err
		}
		amount := minorToMajor(in.AmountMinor)
		if in.UseBillingAmount {
			amount = billing.Amount
		}

		id, err := w.nextID(ctx, tx)
		if err != nil {
			return err
		}

		p := &PaymentRecord{
			PayID:       id,
			Status:      PaymentPaid,
			Amount:      amount,
			Method:      in.Method,
			AdminRemark: in.Remark,
			ProviderID:  in.ProviderID,
			BillingID:   in.BillingID,
		}
		if err := tx.InsertPayment(ctx, p); err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}
		if err := tx.MarkBillingPaid(ctx, in.BillingID); err != nil {
			return fmt.Errorf("mark billing paid: %w", err)
		}
		payID = id
		return nil
	})
	if err != nil {
		return "", err
	}
	return payID, nil
}

// RecordFailure appends a failed ledger entry for a billing reference. A
// billing reference may accumulate any number of failed entries; only a
// prior paid entry blocks the write (ErrAlreadyProcessed), since a failure
// notification for a settled bill is stale by definition. The billing
// record is never touched on this path.
func (w *Writer) RecordFailure(ctx context.Context, in FailureInput) (string, error) {
	var payID string
	err := w.Store.RunAtomic(ctx, func(tx Tx) error {
		paid, err := tx.PaidPaymentExists(ctx, in.BillingID)
		if err != nil {
			return fmt.Errorf("duplicate check: %w", err)
		}
		if paid {
			return ErrAlreadyProcessed
		}

		amount := minorToMajor(in.AmountMinor)
		if in.UseBillingAmount {
			billing, err := tx.GetBilling(ctx, in.BillingID)
			if err != nil {
				return err
			}
			amount = billing.Amount
		}

		id, err := w.nextID(ctx, tx)
		if err != nil {
			return err
		}

		p := &PaymentRecord{
			PayID:       id,
			Status:      PaymentFailed,
			Amount:      amount,
			Method:      in.Method,
			AdminRemark: in.Reason,
			ProviderID:  in.ProviderID,
			BillingID:   in.BillingID,
		}
		if err := tx.InsertPayment(ctx, p); err != nil {
			return fmt.Errorf("insert payment: %w", err)
		}
		payID = id
		return nil
	})
	if err != nil {
		return "", err
	}
	return payID, nil
}

// nextID allocates the next identifier inside the unit that consumes it.
// Taking the read anywhere else reopens the race where two writers both see
// the same highest identifier.
func (w *Writer) nextID(ctx context.Context, tx Tx) (string, error) {
	last, err := tx.LastPaymentID(ctx)
	if err != nil {
		return "", fmt.Errorf("last payment id: %w", err)
	}
	return NextPaymentID(last)
}

func minorToMajor(minor int64) float64 {
	return float64(minor) / 100
}
