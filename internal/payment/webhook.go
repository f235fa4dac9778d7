package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// Webhook event types the reconciler acts on. Anything else is
// acknowledged and ignored.
const (
	EventPaymentPaid   = "payment.paid"
	EventPaymentFailed = "payment.failed"
)

// WebhookEvent is a parsed gateway webhook delivery.
type WebhookEvent struct {
	ID         string
	Type       string
	ResourceID string
	Status     string
	Metadata   map[string]string
}

// VerifySignature checks the HMAC-SHA256 signature header against the raw
// request body. The header carries one or more candidate signatures in
// the form "v1=<hex>[,v1=<hex>...]" (multiple during secret rotation);
// any match passes.
func VerifySignature(payload []byte, header, secret string) bool {
	if header == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := mac.Sum(nil)

	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		value, ok := strings.CutPrefix(part, "v1=")
		if !ok {
			continue
		}
		candidate, err := hex.DecodeString(value)
		if err != nil {
			continue
		}
		if hmac.Equal(candidate, expected) {
			return true
		}
	}
	return false
}

// SignPayload computes the v1 signature header value for a payload.
// Used by tests to produce valid deliveries.
func SignPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "v1=" + hex.EncodeToString(mac.Sum(nil))
}

// webhookEnvelope mirrors the gateway's event wire format: an event
// resource whose attributes embed the affected payment resource.
type webhookEnvelope struct {
	Data struct {
		ID         string `json:"id"`
		Attributes struct {
			Type string `json:"type"`
			Data struct {
				ID         string `json:"id"`
				Attributes struct {
					Status   string            `json:"status"`
					Metadata map[string]string `json:"metadata"`
				} `json:"attributes"`
			} `json:"data"`
		} `json:"attributes"`
	} `json:"data"`
}

// ParseWebhookEvent decodes a raw webhook body.
func ParseWebhookEvent(payload []byte) (*WebhookEvent, error) {
	var env webhookEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("decode webhook: %w", err)
	}
	if env.Data.Attributes.Type == "" {
		return nil, fmt.Errorf("decode webhook: missing event type")
	}

	return &WebhookEvent{
		ID:         env.Data.ID,
		Type:       env.Data.Attributes.Type,
		ResourceID: env.Data.Attributes.Data.ID,
		Status:     env.Data.Attributes.Data.Attributes.Status,
		Metadata:   env.Data.Attributes.Data.Attributes.Metadata,
	}, nil
}
