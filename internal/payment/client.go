// Package payment wraps the external payment gateway's HTTP API: card
// payment intents, redirect-based e-wallet sources, and payments created
// against those sources. All amounts are in minor currency units.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Intent statuses returned by the gateway.
const (
	IntentStatusSucceeded             = "succeeded"
	IntentStatusAwaitingPaymentMethod = "awaiting_payment_method"
	IntentStatusAwaitingNextAction    = "awaiting_next_action"
	IntentStatusProcessing            = "processing"
)

// Payment statuses returned by the gateway.
const (
	PaymentStatusPaid      = "paid"
	PaymentStatusFailed    = "failed"
	PaymentStatusCancelled = "cancelled"
)

// Client talks to the payment gateway. The secret key is sent as HTTP
// basic auth; baseURL is overridable for tests.
type Client struct {
	httpClient *http.Client
	baseURL    string
	secretKey  string
}

// NewClient creates a gateway client.
func NewClient(httpClient *http.Client, baseURL, secretKey string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		secretKey:  secretKey,
	}
}

// PaymentIntent is the gateway-side card payment object.
type PaymentIntent struct {
	ID            string
	Status        string
	ClientKey     string
	NextActionURL string
}

// Source is the gateway-side redirect authorization object for e-wallets.
type Source struct {
	ID          string
	Status      string
	CheckoutURL string
}

// Payment is the gateway-side capture created against a source.
type Payment struct {
	ID       string
	Status   string
	SourceID string
}

// GatewayError is a non-2xx response from the gateway.
type GatewayError struct {
	StatusCode int
	Detail     string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway error (%d): %s", e.StatusCode, e.Detail)
}

// apiEnvelope mirrors the gateway's {"data": {...}} wire format.
type apiEnvelope struct {
	Data apiResource `json:"data"`
}

type apiResource struct {
	ID         string        `json:"id"`
	Attributes apiAttributes `json:"attributes"`
}

type apiAttributes struct {
	Status     string            `json:"status"`
	ClientKey  string            `json:"client_key,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	NextAction *struct {
		Redirect struct {
			URL string `json:"url"`
		} `json:"redirect"`
	} `json:"next_action,omitempty"`
	Redirect *struct {
		CheckoutURL string `json:"checkout_url"`
		Success     string `json:"success"`
		Failed      string `json:"failed"`
	} `json:"redirect,omitempty"`
	Source *struct {
		ID string `json:"id"`
	} `json:"source,omitempty"`
}

type apiErrorBody struct {
	Errors []struct {
		Code   string `json:"code"`
		Detail string `json:"detail"`
	} `json:"errors"`
}

// CreateIntentParams are the inputs for a card payment intent.
type CreateIntentParams struct {
	Amount      int64
	Currency    string
	Description string
	OrderID     string
}

// CreatePaymentIntent creates a card payment intent. The order id rides
// in the metadata so webhooks can be traced back to the order.
func (c *Client) CreatePaymentIntent(ctx context.Context, params CreateIntentParams) (*PaymentIntent, error) {
	body := map[string]any{
		"data": map[string]any{
			"attributes": map[string]any{
				"amount":                 params.Amount,
				"currency":               params.Currency,
				"payment_method_allowed": []string{"card"},
				"description":            params.Description,
				"metadata":               map[string]string{"order_id": params.OrderID},
			},
		},
	}

	var out apiEnvelope
	if err := c.do(ctx, http.MethodPost, "/payment_intents", body, &out); err != nil {
		return nil, err
	}
	return intentFromResource(out.Data), nil
}

// AttachPaymentIntent attaches a client-collected payment method to an intent.
func (c *Client) AttachPaymentIntent(ctx context.Context, intentID, paymentMethodID, returnURL string) (*PaymentIntent, error) {
	body := map[string]any{
		"data": map[string]any{
			"attributes": map[string]any{
				"payment_method": paymentMethodID,
				"return_url":     returnURL,
			},
		},
	}

	var out apiEnvelope
	if err := c.do(ctx, http.MethodPost, "/payment_intents/"+intentID+"/attach", body, &out); err != nil {
		return nil, err
	}
	return intentFromResource(out.Data), nil
}

// RetrievePaymentIntent fetches the current state of an intent.
func (c *Client) RetrievePaymentIntent(ctx context.Context, intentID string) (*PaymentIntent, error) {
	var out apiEnvelope
	if err := c.do(ctx, http.MethodGet, "/payment_intents/"+intentID, nil, &out); err != nil {
		return nil, err
	}
	return intentFromResource(out.Data), nil
}

// CreateSourceParams are the inputs for an e-wallet redirect source.
type CreateSourceParams struct {
	Amount     int64
	Currency   string
	SourceType string
	SuccessURL string
	FailedURL  string
}

// CreateSource creates a redirect-based source for e-wallet checkout.
func (c *Client) CreateSource(ctx context.Context, params CreateSourceParams) (*Source, error) {
	body := map[string]any{
		"data": map[string]any{
			"attributes": map[string]any{
				"amount":   params.Amount,
				"currency": params.Currency,
				"type":     params.SourceType,
				"redirect": map[string]string{
					"success": params.SuccessURL,
					"failed":  params.FailedURL,
				},
			},
		},
	}

	var out apiEnvelope
	if err := c.do(ctx, http.MethodPost, "/sources", body, &out); err != nil {
		return nil, err
	}
	return sourceFromResource(out.Data), nil
}

// CreatePayment captures a payment against a chargeable source.
func (c *Client) CreatePayment(ctx context.Context, sourceID string, amount int64, currency, description string) (*Payment, error) {
	body := map[string]any{
		"data": map[string]any{
			"attributes": map[string]any{
				"amount":      amount,
				"currency":    currency,
				"description": description,
				"source": map[string]string{
					"id":   sourceID,
					"type": "source",
				},
			},
		},
	}

	var out apiEnvelope
	if err := c.do(ctx, http.MethodPost, "/payments", body, &out); err != nil {
		return nil, err
	}
	return paymentFromResource(out.Data), nil
}

func intentFromResource(res apiResource) *PaymentIntent {
	intent := &PaymentIntent{
		ID:        res.ID,
		Status:    res.Attributes.Status,
		ClientKey: res.Attributes.ClientKey,
	}
	if res.Attributes.NextAction != nil {
		intent.NextActionURL = res.Attributes.NextAction.Redirect.URL
	}
	return intent
}

func sourceFromResource(res apiResource) *Source {
	source := &Source{
		ID:     res.ID,
		Status: res.Attributes.Status,
	}
	if res.Attributes.Redirect != nil {
		source.CheckoutURL = res.Attributes.Redirect.CheckoutURL
	}
	return source
}

func paymentFromResource(res apiResource) *Payment {
	p := &Payment{
		ID:     res.ID,
		Status: res.Attributes.Status,
	}
	if res.Attributes.Source != nil {
		p.SourceID = res.Attributes.Source.ID
	}
	return p
}

func (c *Client) do(ctx context.Context, method, path string, body any, out *apiEnvelope) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.SetBasicAuth(c.secretKey, "")
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errBody apiErrorBody
		detail := "unknown error"
		if json.Unmarshal(payload, &errBody) == nil && len(errBody.Errors) > 0 {
			detail = errBody.Errors[0].Detail
		}
		return &GatewayError{StatusCode: resp.StatusCode, Detail: detail}
	}

	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
