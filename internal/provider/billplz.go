package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// BillplzClient creates bills against the Billplz v3 API. The secret key is
// sent as the basic-auth user with an empty password; reference_1 carries
// the billing reference back through the callback.
type BillplzClient struct {
	BaseURL      string
	SecretKey    string
	CollectionID string
	CallbackURL  string
	RedirectURL  string
	HTTPClient   *http.Client
}

func NewBillplzClient(baseURL, secretKey, collectionID, callbackURL, redirectURL string) *BillplzClient {
	return &BillplzClient{
		BaseURL:      baseURL,
		SecretKey:    secretKey,
		CollectionID: collectionID,
		CallbackURL:  callbackURL,
		RedirectURL:  redirectURL,
		HTTPClient:   &http.Client{Timeout: 10 * time.Second},
	}
}

type BillRequest struct {
	BillingID   string
	AmountMinor int64
	Email       string
	Name        string
	Description string
}

type Bill struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

func (c *BillplzClient) CreateBill(ctx context.Context, in BillRequest) (*Bill, error) {
	description := in.Description
	if description == "" {
		description = fmt.Sprintf("Payment for Bill %s", in.BillingID)
	}
	payload, err := json.Marshal(map[string]any{
		"collection_id":     c.CollectionID,
		"email":             in.Email,
		"name":              in.Name,
		"amount":            in.AmountMinor,
		"callback_url":      c.CallbackURL,
		"redirect_url":      c.RedirectURL,
		"description":       description,
		"reference_1_label": "Billing ID",
		"reference_1":       in.BillingID,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.BaseURL+"/api/v3/bills", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.SecretKey, "")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("create bill: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apiError("billplz", resp)
	}
	var bill Bill
	if err := json.NewDecoder(resp.Body).Decode(&bill); err != nil {
		return nil, fmt.Errorf("decode bill: %w", err)
	}
	return &bill, nil
}
