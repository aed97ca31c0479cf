// Package api exposes the user-triggered flows: creating a checkout with
// either processor and the manual confirm/fail fallbacks used when a
// callback never arrives. Every ledger mutation still goes through the
// Writer, so the manual paths share the webhook paths' idempotence.
package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"handypay/internal/ledger"
	"handypay/internal/provider"
)

type Handler struct {
	Writer  *ledger.Writer
	Store   ledger.Store
	Stripe  *provider.StripeClient
	Billplz *provider.BillplzClient
}

type createIntentRequest struct {
	Amount            int64  `json:"amount"`
	Currency          string `json:"currency"`
	PaymentMethodType string `json:"paymentMethodType"`
	BillingID         string `json:"billingID"`
}

func (h *Handler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	var req createIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Amount <= 0 || req.PaymentMethodType == "" || req.BillingID == "" {
		http.Error(w, "amount, payment method type and billing ID are required", http.StatusBadRequest)
		return
	}

	intent, err := h.Stripe.CreateIntent(r.Context(), provider.IntentRequest{
		AmountMinor:       req.Amount,
		Currency:          req.Currency,
		PaymentMethodType: req.PaymentMethodType,
		BillingID:         req.BillingID,
		UserID:            UserID(r.Context()),
	})
	if err != nil {
		log.Printf("api: create intent for billing %s: %v", req.BillingID, err)
		http.Error(w, "failed to create payment intent", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"clientSecret": intent.ClientSecret})
}

type createBillRequest struct {
	Amount        int64  `json:"amount"`
	BillingID     string `json:"billingID"`
	CustomerEmail string `json:"customerEmail"`
	CustomerName  string `json:"customerName"`
	Description   string `json:"description"`
}

func (h *Handler) CreateBill(w http.ResponseWriter, r *http.Request) {
	var req createBillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Amount <= 0 || req.BillingID == "" || req.CustomerEmail == "" || req.CustomerName == "" {
		http.Error(w, "all fields are required", http.StatusBadRequest)
		return
	}

	bill, err := h.Billplz.CreateBill(r.Context(), provider.BillRequest{
		BillingID:   req.BillingID,
		AmountMinor: req.Amount,
		Email:       req.CustomerEmail,
		Name:        req.CustomerName,
		Description: req.Description,
	})
	if err != nil {
		log.Printf("api: create bill for billing %s: %v", req.BillingID, err)
		http.Error(w, "failed to create bill", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": bill.URL, "billId": bill.ID})
}

type manualPaymentRequest struct {
	BillID        string `json:"billId"`
	TransactionID string `json:"transactionId"`
	BillingID     string `json:"billingID"`
	Reason        string `json:"reason"`
}

// ConfirmPayment settles a billing record from the redirect flow when the
// user returns before the callback lands. The amount is taken from the
// billing record itself.
func (h *Handler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	var req manualPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.BillID == "" || req.BillingID == "" {
		http.Error(w, "billId and billingID are required", http.StatusBadRequest)
		return
	}

	payID, err := h.Writer.RecordSuccess(r.Context(), ledger.SuccessInput{
		BillingID:        req.BillingID,
		Method:           "Online Banking",
		ProviderID:       req.TransactionID,
		UseBillingAmount: true,
	})
	switch {
	case errors.Is(err, ledger.ErrAlreadyProcessed):
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "already processed"})
		return
	case errors.Is(err, ledger.ErrBillingNotFound):
		http.Error(w, "billing record not found", http.StatusNotFound)
		return
	case err != nil:
		log.Printf("api: confirm payment for billing %s: %v", req.BillingID, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "paymentID": payID})
}

// LogFailure records a failed attempt reported by the client. The billing
// record stays pending and the user may retry.
func (h *Handler) LogFailure(w http.ResponseWriter, r *http.Request) {
	var req manualPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.BillID == "" || req.BillingID == "" {
		http.Error(w, "billId and billingID are required", http.StatusBadRequest)
		return
	}
	reason := req.Reason
	if reason == "" {
		reason = "payment not completed"
	}

	payID, err := h.Writer.RecordFailure(r.Context(), ledger.FailureInput{
		BillingID:        req.BillingID,
		Method:           "Online Banking",
		Reason:           reason,
		ProviderID:       req.TransactionID,
		UseBillingAmount: true,
	})
	switch {
	case errors.Is(err, ledger.ErrAlreadyProcessed):
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "already processed"})
		return
	case errors.Is(err, ledger.ErrBillingNotFound):
		http.Error(w, "billing record not found", http.StatusNotFound)
		return
	case err != nil:
		log.Printf("api: log failure for billing %s: %v", req.BillingID, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "paymentID": payID})
}

// GetPayment returns one ledger entry.
func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	p, err := h.Store.GetPayment(r.Context(), r.PathValue("id"))
	if errors.Is(err, ledger.ErrPaymentNotFound) {
		http.Error(w, "payment not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// ListPayments returns every ledger entry for a billing reference,
// ordered by identifier.
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.Store.ListPayments(r.Context(), r.PathValue("id"))
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if payments == nil {
		payments = []ledger.PaymentRecord{}
	}
	writeJSON(w, http.StatusOK, payments)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
