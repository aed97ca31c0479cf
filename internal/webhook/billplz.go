package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
)

// BillplzHandler terminates the redirect-processor callback. The body is
// form-encoded; X-Signature carries the hex HMAC-SHA256 of the raw body
// under the shared signature key. The billing reference travels in
// reference_1.
func BillplzHandler(signatureKey string, d *Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "cannot read body", http.StatusBadRequest)
			return
		}

		mac := hmac.New(sha256.New, []byte(signatureKey))
		mac.Write(body)
		expected := hex.EncodeToString(mac.Sum(nil))
		if !hmac.Equal([]byte(expected), []byte(r.Header.Get("X-Signature"))) {
			log.Printf("billplz: x-signature mismatch")
			http.Error(w, "invalid signature", http.StatusBadRequest)
			return
		}

		form, err := url.ParseQuery(string(body))
		if err != nil {
			http.Error(w, "malformed callback", http.StatusBadRequest)
			return
		}

		amount, _ := strconv.ParseInt(form.Get("amount"), 10, 64)
		evt := PaymentEvent{
			ID:          form.Get("id"),
			BillingID:   form.Get("reference_1"),
			AmountMinor: amount,
			Method:      "Online Banking",
			ProviderRef: form.Get("id"),
		}
		if form.Get("paid") == "true" {
			evt.Outcome = OutcomeSucceeded
		} else {
			evt.Outcome = OutcomeFailed
			evt.Reason = "payment not completed"
		}

		if err := d.Handle(r.Context(), "billplz", evt); err != nil {
			log.Printf("billplz: processing callback %s: %v", evt.ID, err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, "callback processed")
	}
}
