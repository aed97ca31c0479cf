package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sethvargo/go-retry"

	"handypay/internal/ledger"
)

// maxConflictRetries bounds how often a conflicting atomic unit is re-run
// before the conflict is surfaced to the caller.
const maxConflictRetries = 4

// Postgres is the production ledger.Store. Atomic units run as serializable
// transactions; serialization failures and unique-key collisions on the
// payment identifier are retried with backoff, which is what serializes
// concurrent writers racing on the identifier sequence.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (s *Postgres) RunAtomic(ctx context.Context, fn func(ledger.Tx) error) error {
	backoff := retry.WithMaxRetries(maxConflictRetries, retry.NewFibonacci(10*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := s.runOnce(ctx, fn); err != nil {
			if retryableConflict(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		return nil
	})
	if err != nil && retryableConflict(err) {
		return fmt.Errorf("%w: %v", ledger.ErrConflict, err)
	}
	return err
}

func (s *Postgres) runOnce(ctx context.Context, fn func(ledger.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// retryableConflict matches serialization failures, deadlocks and the
// unique-violation backstop on the payment-id primary key.
func retryableConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "40001", "40P01", "23505":
		return true
	}
	return false
}

func (s *Postgres) GetBilling(ctx context.Context, billID string) (*ledger.BillingRecord, error) {
	return scanBilling(s.pool.QueryRow(ctx,
		"SELECT bill_id, bill_amt, bill_status, COALESCE(provider_ref, '') FROM billings WHERE bill_id=$1", billID), billID)
}

func (s *Postgres) GetPayment(ctx context.Context, payID string) (*ledger.PaymentRecord, error) {
	row := s.pool.QueryRow(ctx,
		"SELECT pay_id, pay_status, pay_amt, pay_method, pay_created_at, admin_remark, pay_media_proof, provider_id, billing_id FROM payments WHERE pay_id=$1", payID)
	p, err := scanPayment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("payment %s: %w", payID, ledger.ErrPaymentNotFound)
	}
	return p, err
}

func (s *Postgres) ListPayments(ctx context.Context, billingID string) ([]ledger.PaymentRecord, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT pay_id, pay_status, pay_amt, pay_method, pay_created_at, admin_remark, pay_media_proof, provider_id, billing_id FROM payments WHERE billing_id=$1 ORDER BY pay_id", billingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ledger.PaymentRecord
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) GetBilling(ctx context.Context, billID string) (*ledger.BillingRecord, error) {
	return scanBilling(t.tx.QueryRow(ctx,
		"SELECT bill_id, bill_amt, bill_status, COALESCE(provider_ref, '') FROM billings WHERE bill_id=$1", billID), billID)
}

func (t *pgTx) LastPaymentID(ctx context.Context) (string, error) {
	lo, hi := ledger.SequenceRange()
	var last string
	err := t.tx.QueryRow(ctx,
		"SELECT pay_id FROM payments WHERE pay_id >= $1 AND pay_id < $2 ORDER BY pay_id DESC LIMIT 1", lo, hi).Scan(&last)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return last, nil
}

func (t *pgTx) PaidPaymentExists(ctx context.Context, billingID string) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM payments WHERE billing_id=$1 AND pay_status=$2)",
		billingID, ledger.PaymentPaid).Scan(&exists)
	return exists, err
}

func (t *pgTx) InsertPayment(ctx context.Context, p *ledger.PaymentRecord) error {
	// pay_created_at is assigned by the database at commit time, not at
	// event-receipt time.
	return t.tx.QueryRow(ctx,
		`INSERT INTO payments (pay_id, pay_status, pay_amt, pay_method, pay_created_at, admin_remark, pay_media_proof, provider_id, billing_id)
		 VALUES ($1, $2, $3, $4, now(), $5, $6, $7, $8)
		 RETURNING pay_created_at`,
		p.PayID, p.Status, p.Amount, p.Method, p.AdminRemark, p.MediaProof, p.ProviderID, p.BillingID,
	).Scan(&p.CreatedAt)
}

func (t *pgTx) MarkBillingPaid(ctx context.Context, billID string) error {
	tag, err := t.tx.Exec(ctx,
		"UPDATE billings SET bill_status=$1 WHERE bill_id=$2", ledger.BillingPaid, billID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("billing %s: %w", billID, ledger.ErrBillingNotFound)
	}
	return nil
}

func scanBilling(row pgx.Row, billID string) (*ledger.BillingRecord, error) {
	var b ledger.BillingRecord
	err := row.Scan(&b.BillID, &b.Amount, &b.Status, &b.ProviderRef)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("billing %s: %w", billID, ledger.ErrBillingNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func scanPayment(row pgx.Row) (*ledger.PaymentRecord, error) {
	var p ledger.PaymentRecord
	err := row.Scan(&p.PayID, &p.Status, &p.Amount, &p.Method, &p.CreatedAt,
		&p.AdminRemark, &p.MediaProof, &p.ProviderID, &p.BillingID)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
