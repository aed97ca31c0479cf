package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const signatureTolerance = 5 * time.Minute

// StripeHandler terminates the card-network webhook: it verifies the
// Stripe-Signature header against the raw body, maps the intent events to
// PaymentEvents and reproduces the retry-control contract (2xx = stop,
// 5xx = redeliver).
func StripeHandler(secret string, d *Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "cannot read body", http.StatusBadRequest)
			return
		}
		if err := verifyStripeSignature(r.Header.Get("Stripe-Signature"), body, secret, time.Now()); err != nil {
			log.Printf("stripe: signature verification failed: %v", err)
			http.Error(w, "invalid signature", http.StatusBadRequest)
			return
		}

		var se stripeEvent
		if err := json.Unmarshal(body, &se); err != nil {
			http.Error(w, "malformed event", http.StatusBadRequest)
			return
		}

		evt := PaymentEvent{
			ID:          se.ID,
			BillingID:   se.Data.Object.Metadata["billingID"],
			AmountMinor: se.Data.Object.Amount,
			Method:      "Credit Card",
			ProviderRef: se.Data.Object.ID,
		}
		switch se.Type {
		case "payment_intent.succeeded":
			evt.Outcome = OutcomeSucceeded
		case "payment_intent.payment_failed":
			evt.Outcome = OutcomeFailed
			if se.Data.Object.LastPaymentError != nil {
				evt.Reason = se.Data.Object.LastPaymentError.Message
			}
		default:
			writeReceived(w)
			return
		}

		if err := d.Handle(r.Context(), "stripe", evt); err != nil {
			log.Printf("stripe: processing notification %s: %v", se.ID, err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeReceived(w)
	}
}

type stripeEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID               string            `json:"id"`
			Amount           int64             `json:"amount"`
			Metadata         map[string]string `json:"metadata"`
			LastPaymentError *struct {
				Message string `json:"message"`
			} `json:"last_payment_error"`
		} `json:"object"`
	} `json:"data"`
}

// verifyStripeSignature checks a "t=<unix>,v1=<hex>" header: v1 must be the
// HMAC-SHA256 of "<t>.<body>" under the endpoint secret and t must be
// within the tolerance window.
func verifyStripeSignature(header string, body []byte, secret string, now time.Time) error {
	var ts string
	var sigs [][]byte
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			ts = v
		case "v1":
			sig, err := hex.DecodeString(v)
			if err == nil {
				sigs = append(sigs, sig)
			}
		}
	}
	if ts == "" || len(sigs) == 0 {
		return fmt.Errorf("missing timestamp or signature")
	}
	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return fmt.Errorf("bad timestamp %q", ts)
	}
	if age := now.Sub(time.Unix(unix, 0)); age > signatureTolerance || age < -signatureTolerance {
		return fmt.Errorf("timestamp outside tolerance")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%s.%s", ts, body)
	expected := mac.Sum(nil)
	for _, sig := range sigs {
		if hmac.Equal(sig, expected) {
			return nil
		}
	}
	return fmt.Errorf("no matching signature")
}

func writeReceived(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"received": true})
}
