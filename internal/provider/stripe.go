// Package provider holds the outbound REST clients for the two payment
// processors. Calls are single-shot: retrying a bill or intent creation is
// the caller's business, not this package's.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const stripeAPIURL = "https://api.stripe.com"

// StripeClient creates payment intents. The billing reference rides along
// in the intent metadata so the webhook can route the outcome back to the
// right billing record.
type StripeClient struct {
	BaseURL    string
	SecretKey  string
	HTTPClient *http.Client
}

func NewStripeClient(secretKey string) *StripeClient {
	return &StripeClient{
		BaseURL:    stripeAPIURL,
		SecretKey:  secretKey,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type IntentRequest struct {
	AmountMinor       int64
	Currency          string
	PaymentMethodType string
	BillingID         string
	UserID            string
}

type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
}

func (c *StripeClient) CreateIntent(ctx context.Context, in IntentRequest) (*Intent, error) {
	currency := in.Currency
	if currency == "" {
		currency = "myr"
	}
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(in.AmountMinor, 10))
	form.Set("currency", currency)
	form.Set("payment_method_types[]", in.PaymentMethodType)
	form.Set("metadata[billingID]", in.BillingID)
	form.Set("metadata[userId]", in.UserID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.BaseURL+"/v1/payment_intents", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("create intent: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apiError("stripe", resp)
	}
	var intent Intent
	if err := json.NewDecoder(resp.Body).Decode(&intent); err != nil {
		return nil, fmt.Errorf("decode intent: %w", err)
	}
	return &intent, nil
}

func apiError(name string, resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("%s api: status %d: %s", name, resp.StatusCode, strings.TrimSpace(string(snippet)))
}
