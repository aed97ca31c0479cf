package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"handypay/internal/ledger"
)

// Memory is a mutex-serialized in-memory ledger.Store. RunAtomic holds the
// write lock for the whole unit and stages mutations in a shadow set, so an
// aborted unit leaves no partial state. Used by tests and local runs.
type Memory struct {
	mu       sync.RWMutex
	billings map[string]*ledger.BillingRecord
	payments map[string]*ledger.PaymentRecord
}

func NewMemory() *Memory {
	return &Memory{
		billings: make(map[string]*ledger.BillingRecord),
		payments: make(map[string]*ledger.PaymentRecord),
	}
}

// SeedBilling installs a billing record, standing in for the upstream
// billing workflow that owns record creation.
func (m *Memory) SeedBilling(b ledger.BillingRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.billings[b.BillID] = &b
}

// SeedPayment installs a ledger entry directly, bypassing the Writer.
func (m *Memory) SeedPayment(p ledger.PaymentRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments[p.PayID] = &p
}

func (m *Memory) RunAtomic(ctx context.Context, fn func(ledger.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memTx{store: m}
	if err := fn(tx); err != nil {
		return err
	}
	tx.apply(time.Now().UTC())
	return nil
}

func (m *Memory) GetBilling(ctx context.Context, billID string) (*ledger.BillingRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.billings[billID]
	if !ok {
		return nil, fmt.Errorf("billing %s: %w", billID, ledger.ErrBillingNotFound)
	}
	cp := *b
	return &cp, nil
}

func (m *Memory) GetPayment(ctx context.Context, payID string) (*ledger.PaymentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.payments[payID]
	if !ok {
		return nil, fmt.Errorf("payment %s: %w", payID, ledger.ErrPaymentNotFound)
	}
	cp := *p
	return &cp, nil
}

func (m *Memory) ListPayments(ctx context.Context, billingID string) ([]ledger.PaymentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ledger.PaymentRecord
	for _, p := range m.payments {
		if p.BillingID == billingID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PayID < out[j].PayID })
	return out, nil
}

// memTx stages writes until the unit succeeds. Reads observe committed
// state plus the unit's own staged writes. RunAtomic already holds the
// store lock, so methods access the maps directly.
type memTx struct {
	store    *Memory
	inserted []*ledger.PaymentRecord
	paid     []string
}

func (t *memTx) GetBilling(ctx context.Context, billID string) (*ledger.BillingRecord, error) {
	b, ok := t.store.billings[billID]
	if !ok {
		return nil, fmt.Errorf("billing %s: %w", billID, ledger.ErrBillingNotFound)
	}
	cp := *b
	for _, id := range t.paid {
		if id == billID {
			cp.Status = ledger.BillingPaid
		}
	}
	return &cp, nil
}

func (t *memTx) LastPaymentID(ctx context.Context) (string, error) {
	lo, hi := ledger.SequenceRange()
	last := ""
	consider := func(id string) {
		if id >= lo && id < hi && id > last {
			last = id
		}
	}
	for id := range t.store.payments {
		consider(id)
	}
	for _, p := range t.inserted {
		consider(p.PayID)
	}
	return last, nil
}

func (t *memTx) PaidPaymentExists(ctx context.Context, billingID string) (bool, error) {
	for _, p := range t.store.payments {
		if p.BillingID == billingID && p.Status == ledger.PaymentPaid {
			return true, nil
		}
	}
	for _, p := range t.inserted {
		if p.BillingID == billingID && p.Status == ledger.PaymentPaid {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) InsertPayment(ctx context.Context, p *ledger.PaymentRecord) error {
	if _, exists := t.store.payments[p.PayID]; exists {
		return fmt.Errorf("payment %s already exists", p.PayID)
	}
	for _, staged := range t.inserted {
		if staged.PayID == p.PayID {
			return fmt.Errorf("payment %s already exists", p.PayID)
		}
	}
	cp := *p
	t.inserted = append(t.inserted, &cp)
	return nil
}

func (t *memTx) MarkBillingPaid(ctx context.Context, billID string) error {
	if _, ok := t.store.billings[billID]; !ok {
		return fmt.Errorf("billing %s: %w", billID, ledger.ErrBillingNotFound)
	}
	t.paid = append(t.paid, billID)
	return nil
}

func (t *memTx) apply(committedAt time.Time) {
	for _, p := range t.inserted {
		p.CreatedAt = committedAt
		t.store.payments[p.PayID] = p
	}
	for _, id := range t.paid {
		t.store.billings[id].Status = ledger.BillingPaid
	}
}
