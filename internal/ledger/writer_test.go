package ledger_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"handypay/internal/ledger"
	"handypay/internal/store"
)

func newWriter() (*ledger.Writer, *store.Memory) {
	mem := store.NewMemory()
	return &ledger.Writer{Store: mem}, mem
}

func TestRecordSuccessFirstPayment(t *testing.T) {
	w, mem := newWriter()
	mem.SeedBilling(ledger.BillingRecord{BillID: "B1", Amount: 50, Status: ledger.BillingPending})

	payID, err := w.RecordSuccess(context.Background(), ledger.SuccessInput{
		BillingID:   "B1",
		AmountMinor: 5000,
		Method:      "Credit Card",
	})
	require.NoError(t, err)
	require.Equal(t, "PY0001", payID)

	p, err := mem.GetPayment(context.Background(), "PY0001")
	require.NoError(t, err)
	require.Equal(t, ledger.PaymentPaid, p.Status)
	require.Equal(t, 50.00, p.Amount)
	require.Equal(t, "B1", p.BillingID)
	require.False(t, p.CreatedAt.IsZero())

	b, err := mem.GetBilling(context.Background(), "B1")
	require.NoError(t, err)
	require.Equal(t, ledger.BillingPaid, b.Status)
}

func TestRecordSuccessContinuesSequence(t *testing.T) {
	w, mem := newWriter()
	mem.SeedBilling(ledger.BillingRecord{BillID: "B1", Status: ledger.BillingPending})
	mem.SeedPayment(ledger.PaymentRecord{PayID: "PY0007", Status: ledger.PaymentPaid, BillingID: "B0"})

	payID, err := w.RecordSuccess(context.Background(), ledger.SuccessInput{BillingID: "B1", AmountMinor: 100})
	require.NoError(t, err)
	require.Equal(t, "PY0008", payID)
}

func TestRecordSuccessIsIdempotent(t *testing.T) {
	w, mem := newWriter()
	mem.SeedBilling(ledger.BillingRecord{BillID: "B1", Status: ledger.BillingPending})

	in := ledger.SuccessInput{BillingID: "B1", AmountMinor: 5000, Method: "Credit Card"}
	_, err := w.RecordSuccess(context.Background(), in)
	require.NoError(t, err)

	// Replaying the identical event is a no-op against store state.
	_, err = w.RecordSuccess(context.Background(), in)
	require.ErrorIs(t, err, ledger.ErrAlreadyProcessed)

	payments, err := mem.ListPayments(context.Background(), "B1")
	require.NoError(t, err)
	require.Len(t, payments, 1)
}

func TestRecordSuccessUnknownBilling(t *testing.T) {
	w, mem := newWriter()

	_, err := w.RecordSuccess(context.Background(), ledger.SuccessInput{BillingID: "missing", AmountMinor: 100})
	require.ErrorIs(t, err, ledger.ErrBillingNotFound)

	payments, err := mem.ListPayments(context.Background(), "missing")
	require.NoError(t, err)
	require.Empty(t, payments)
}

func TestRecordSuccessUsesBillingAmount(t *testing.T) {
	w, mem := newWriter()
	mem.SeedBilling(ledger.BillingRecord{BillID: "B1", Amount: 120.50, Status: ledger.BillingPending})

	payID, err := w.RecordSuccess(context.Background(), ledger.SuccessInput{
		BillingID:        "B1",
		Method:           "Online Banking",
		UseBillingAmount: true,
	})
	require.NoError(t, err)

	p, err := mem.GetPayment(context.Background(), payID)
	require.NoError(t, err)
	require.Equal(t, 120.50, p.Amount)
}

func TestRecordSuccessMalformedLedgerIDFailsClosed(t *testing.T) {
	w, mem := newWriter()
	mem.SeedBilling(ledger.BillingRecord{BillID: "B1", Status: ledger.BillingPending})
	mem.SeedPayment(ledger.PaymentRecord{PayID: "PY00AB", Status: ledger.PaymentPaid, BillingID: "B0"})

	_, err := w.RecordSuccess(context.Background(), ledger.SuccessInput{BillingID: "B1", AmountMinor: 100})
	require.Error(t, err)

	// Nothing was written and the billing record is untouched.
	payments, listErr := mem.ListPayments(context.Background(), "B1")
	require.NoError(t, listErr)
	require.Empty(t, payments)
	b, getErr := mem.GetBilling(context.Background(), "B1")
	require.NoError(t, getErr)
	require.Equal(t, ledger.BillingPending, b.Status)
}

func TestRecordFailureLeavesBillingPending(t *testing.T) {
	w, mem := newWriter()
	mem.SeedBilling(ledger.BillingRecord{BillID: "B1", Amount: 50, Status: ledger.BillingPending})

	payID, err := w.RecordFailure(context.Background(), ledger.FailureInput{
		BillingID:   "B1",
		AmountMinor: 5000,
		Method:      "Credit Card",
		Reason:      "card declined",
	})
	require.NoError(t, err)
	require.Equal(t, "PY0001", payID)

	p, err := mem.GetPayment(context.Background(), payID)
	require.NoError(t, err)
	require.Equal(t, ledger.PaymentFailed, p.Status)
	require.Equal(t, "card declined", p.AdminRemark)

	b, err := mem.GetBilling(context.Background(), "B1")
	require.NoError(t, err)
	require.Equal(t, ledger.BillingPending, b.Status)
}

func TestRecordFailureAllowsRetries(t *testing.T) {
	w, mem := newWriter()
	mem.SeedBilling(ledger.BillingRecord{BillID: "B1", Status: ledger.BillingPending})

	// A billing reference may accumulate several failed attempts.
	for i := 0; i < 3; i++ {
		_, err := w.RecordFailure(context.Background(), ledger.FailureInput{BillingID: "B1", AmountMinor: 100, Reason: "declined"})
		require.NoError(t, err)
	}
	payments, err := mem.ListPayments(context.Background(), "B1")
	require.NoError(t, err)
	require.Len(t, payments, 3)
	require.Equal(t, "PY0001", payments[0].PayID)
	require.Equal(t, "PY0003", payments[2].PayID)
}

func TestRecordFailureBlockedAfterPaid(t *testing.T) {
	w, mem := newWriter()
	mem.SeedBilling(ledger.BillingRecord{BillID: "B1", Status: ledger.BillingPending})

	_, err := w.RecordSuccess(context.Background(), ledger.SuccessInput{BillingID: "B1", AmountMinor: 100})
	require.NoError(t, err)

	// A failure notification for a settled bill is stale.
	_, err = w.RecordFailure(context.Background(), ledger.FailureInput{BillingID: "B1", AmountMinor: 100, Reason: "late"})
	require.ErrorIs(t, err, ledger.ErrAlreadyProcessed)
}

func TestConcurrentDistinctReferences(t *testing.T) {
	w, mem := newWriter()
	const n = 25
	ids := make([]string, n)
	for i := 0; i < n; i++ {
		mem.SeedBilling(ledger.BillingRecord{BillID: billingID(i), Status: ledger.BillingPending})
	}

	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i], errs[i] = w.RecordSuccess(context.Background(), ledger.SuccessInput{
				BillingID:   billingID(i),
				AmountMinor: 100,
			})
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		require.NoError(t, err, "billing %s", billingID(i))
	}

	// Exactly n distinct identifiers, gapless from the start of the
	// sequence.
	seen := make(map[string]bool, n)
	for _, id := range ids {
		require.False(t, seen[id], "duplicate identifier %s", id)
		seen[id] = true
	}
	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("PY%04d", i)
		_, err := mem.GetPayment(context.Background(), id)
		require.NoError(t, err, "missing identifier %s", id)
	}
}

func TestConcurrentSameReference(t *testing.T) {
	w, mem := newWriter()
	mem.SeedBilling(ledger.BillingRecord{BillID: "B1", Status: ledger.BillingPending})

	const n = 10
	results := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := w.RecordSuccess(context.Background(), ledger.SuccessInput{BillingID: "B1", AmountMinor: 100})
			results[i] = err
		}(i)
	}
	wg.Wait()

	var committed, duplicates int
	for _, err := range results {
		switch {
		case err == nil:
			committed++
		default:
			require.ErrorIs(t, err, ledger.ErrAlreadyProcessed)
			duplicates++
		}
	}
	require.Equal(t, 1, committed)
	require.Equal(t, n-1, duplicates)

	payments, err := mem.ListPayments(context.Background(), "B1")
	require.NoError(t, err)
	require.Len(t, payments, 1)
}

func TestConcurrentPairAfterExistingSequence(t *testing.T) {
	w, mem := newWriter()
	mem.SeedPayment(ledger.PaymentRecord{PayID: "PY0010", Status: ledger.PaymentPaid, BillingID: "B0"})
	mem.SeedBilling(ledger.BillingRecord{BillID: "B1", Status: ledger.BillingPending})
	mem.SeedBilling(ledger.BillingRecord{BillID: "B2", Status: ledger.BillingPending})

	var wg sync.WaitGroup
	ids := make([]string, 2)
	errs := make([]error, 2)
	for i, billing := range []string{"B1", "B2"} {
		wg.Add(1)
		go func(i int, billing string) {
			defer wg.Done()
			ids[i], errs[i] = w.RecordSuccess(context.Background(), ledger.SuccessInput{BillingID: billing, AmountMinor: 100})
		}(i, billing)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	require.ElementsMatch(t, []string{"PY0011", "PY0012"}, ids)
}

func billingID(i int) string {
	return fmt.Sprintf("B%02d", i)
}
