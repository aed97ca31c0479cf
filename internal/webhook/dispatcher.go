package webhook

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"

	"handypay/internal/ledger"
	"handypay/internal/metrics"
)

// DedupCache is the advisory notification-level dedup fast path. It may
// lose entries at any time; the ledger's in-transaction duplicate check is
// the authority for business-level idempotence.
type DedupCache interface {
	// Seen reports whether id was already marked.
	Seen(ctx context.Context, id string) bool
	// Mark records id. The dispatcher marks only after an outcome is
	// durably settled: marking a notification whose commit then fails
	// would make the cache swallow its redelivery.
	Mark(ctx context.Context, id string)
}

// Dispatcher maps one trusted PaymentEvent to exactly one Writer invocation
// or to a no-op.
//
// Handle returns an error only for transient failures, where the transport
// must answer with a retryable status so the processor redelivers. Every
// permanent outcome, including duplicates, missing billing references and
// unknown billing records, returns nil: redelivering those can never
// succeed, so the processor must be told to stop.
type Dispatcher struct {
	Writer *ledger.Writer
	Cache  DedupCache // optional
}

func (d *Dispatcher) Handle(ctx context.Context, source string, evt PaymentEvent) error {
	metrics.EventsReceived.WithLabelValues(source).Inc()

	if evt.BillingID == "" {
		log.Printf("%s: notification %s carries no billing reference, ignoring", source, evt.ID)
		return nil
	}
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if d.Cache != nil && d.Cache.Seen(ctx, evt.ID) {
		log.Printf("%s: notification %s already seen, skipping", source, evt.ID)
		metrics.DuplicatesSkipped.Inc()
		return nil
	}

	switch evt.Outcome {
	case OutcomeSucceeded:
		payID, err := d.Writer.RecordSuccess(ctx, ledger.SuccessInput{
			BillingID:   evt.BillingID,
			AmountMinor: evt.AmountMinor,
			Method:      evt.Method,
			ProviderID:  evt.ProviderRef,
		})
		switch {
		case errors.Is(err, ledger.ErrAlreadyProcessed):
			log.Printf("%s: billing %s already settled, skipping", source, evt.BillingID)
			metrics.DuplicatesSkipped.Inc()
			d.mark(ctx, evt.ID)
			return nil
		case errors.Is(err, ledger.ErrBillingNotFound):
			log.Printf("%s: notification %s references unknown billing %s, dropping", source, evt.ID, evt.BillingID)
			return nil
		case err != nil:
			metrics.ProcessingErrors.Inc()
			return err
		}
		log.Printf("%s: recorded %s for billing %s", source, payID, evt.BillingID)
		metrics.PaymentsRecorded.WithLabelValues(string(ledger.PaymentPaid)).Inc()
		d.mark(ctx, evt.ID)
		return nil

	case OutcomeFailed:
		payID, err := d.Writer.RecordFailure(ctx, ledger.FailureInput{
			BillingID:   evt.BillingID,
			AmountMinor: evt.AmountMinor,
			Method:      evt.Method,
			Reason:      evt.Reason,
			ProviderID:  evt.ProviderRef,
		})
		switch {
		case errors.Is(err, ledger.ErrAlreadyProcessed):
			log.Printf("%s: billing %s already settled, ignoring stale failure", source, evt.BillingID)
			metrics.DuplicatesSkipped.Inc()
			d.mark(ctx, evt.ID)
			return nil
		case err != nil:
			metrics.ProcessingErrors.Inc()
			return err
		}
		log.Printf("%s: recorded failed attempt %s for billing %s", source, payID, evt.BillingID)
		metrics.PaymentsRecorded.WithLabelValues(string(ledger.PaymentFailed)).Inc()
		d.mark(ctx, evt.ID)
		return nil
	}

	log.Printf("%s: unrecognized outcome %q for notification %s, ignoring", source, evt.Outcome, evt.ID)
	return nil
}

// mark flags a settled notification in the advisory cache. Never called
// before the atomic unit returns: a failed commit must leave the id unseen
// so the redelivery re-enters the pipeline.
func (d *Dispatcher) mark(ctx context.Context, id string) {
	if d.Cache != nil {
		d.Cache.Mark(ctx, id)
	}
}
