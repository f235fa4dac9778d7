package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "likha/internal/errors"
	"likha/internal/identity"
	"likha/internal/models"
	"likha/internal/services"
)

// --- mock payment service ---

type mockPaymentService struct {
	createCardFn    func(owner identity.Identity, orderID string) (*services.CardPaymentResult, error)
	confirmCardFn   func(owner identity.Identity, orderID, paymentMethodID string) (*services.CardPaymentResult, error)
	createEWalletFn func(owner identity.Identity, orderID, walletType string) (*services.EWalletPaymentResult, error)
	handleWebhookFn func(payload []byte, signatureHeader string) error
}

func (m *mockPaymentService) CreateCardPayment(_ context.Context, owner identity.Identity, orderID string) (*services.CardPaymentResult, error) {
	if m.createCardFn != nil {
		return m.createCardFn(owner, orderID)
	}
	return &services.CardPaymentResult{OrderID: orderID, IntentID: "pi_1"}, nil
}

func (m *mockPaymentService) ConfirmCardPayment(_ context.Context, owner identity.Identity, orderID, paymentMethodID string) (*services.CardPaymentResult, error) {
	if m.confirmCardFn != nil {
		return m.confirmCardFn(owner, orderID, paymentMethodID)
	}
	return &services.CardPaymentResult{OrderID: orderID, PaymentStatus: models.PaymentStatusPaid}, nil
}

func (m *mockPaymentService) GetCardPaymentStatus(_ context.Context, owner identity.Identity, orderID string) (*services.CardPaymentResult, error) {
	return &services.CardPaymentResult{OrderID: orderID, PaymentStatus: models.PaymentStatusPending}, nil
}

func (m *mockPaymentService) CreateEWalletPayment(_ context.Context, owner identity.Identity, orderID, walletType string) (*services.EWalletPaymentResult, error) {
	if m.createEWalletFn != nil {
		return m.createEWalletFn(owner, orderID, walletType)
	}
	return &services.EWalletPaymentResult{OrderID: orderID, SourceID: "src_1"}, nil
}

func (m *mockPaymentService) CompleteEWalletPayment(_ context.Context, owner identity.Identity, orderID string) (*services.EWalletPaymentResult, error) {
	return &services.EWalletPaymentResult{OrderID: orderID}, nil
}

func (m *mockPaymentService) HandleWebhook(payload []byte, signatureHeader string) error {
	if m.handleWebhookFn != nil {
		return m.handleWebhookFn(payload, signatureHeader)
	}
	return nil
}

var _ services.PaymentServicer = (*mockPaymentService)(nil)

func setupPaymentRouter(paymentSvc services.PaymentServicer) *gin.Engine {
	r := gin.New()
	handler := NewPaymentHandler(paymentSvc)
	r.POST("/orders/:orderId/payments/card", handler.CreateCardPayment)
	r.GET("/orders/:orderId/payments/card", handler.GetCardPaymentStatus)
	r.POST("/orders/:orderId/payments/card/confirm", handler.ConfirmCardPayment)
	r.POST("/orders/:orderId/payments/ewallet", handler.CreateEWalletPayment)
	r.POST("/webhooks/payments", handler.Webhook)
	return r
}

var guestHeader = map[string]string{"X-Guest-Token": "tok-1"}

func TestPaymentHandler_ConfirmCardPayment(t *testing.T) {
	t.Run("returns the settled result", func(t *testing.T) {
		r := setupPaymentRouter(&mockPaymentService{})

		rec := doRequestWithHeaders(r, "POST", "/orders/ORD-1/payments/card/confirm",
			`{"payment_method_id":"pm_1"}`, guestHeader)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		if result["payment_status"] != "paid" {
			t.Errorf("expected paid, got %v", result["payment_status"])
		}
	})

	t.Run("decline returns 402 with the retry result", func(t *testing.T) {
		paymentSvc := &mockPaymentService{
			confirmCardFn: func(_ identity.Identity, orderID, _ string) (*services.CardPaymentResult, error) {
				return &services.CardPaymentResult{OrderID: orderID, RequiresRetry: true}, apperrors.ErrPaymentRetry
			},
		}
		r := setupPaymentRouter(paymentSvc)

		rec := doRequestWithHeaders(r, "POST", "/orders/ORD-1/payments/card/confirm",
			`{"payment_method_id":"pm_1"}`, guestHeader)

		if rec.Code != http.StatusPaymentRequired {
			t.Fatalf("expected 402, got %d", rec.Code)
		}
		result := parseJSON(t, rec)
		errObj := result["error"].(map[string]interface{})
		if errObj["code"] != "PAYMENT_RETRY" {
			t.Errorf("expected PAYMENT_RETRY, got %v", errObj["code"])
		}
		retry := result["result"].(map[string]interface{})
		if retry["requires_retry"] != true {
			t.Errorf("expected retry result in the envelope, got %v", retry)
		}
	})

	t.Run("returns 400 without a payment method id", func(t *testing.T) {
		r := setupPaymentRouter(&mockPaymentService{})

		rec := doRequestWithHeaders(r, "POST", "/orders/ORD-1/payments/card/confirm",
			`{}`, guestHeader)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestPaymentHandler_GetCardPaymentStatus(t *testing.T) {
	t.Run("returns the current payment state", func(t *testing.T) {
		r := setupPaymentRouter(&mockPaymentService{})

		rec := doRequestWithHeaders(r, "GET", "/orders/ORD-1/payments/card", "", guestHeader)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		if result["payment_status"] != "pending" {
			t.Errorf("expected pending, got %v", result["payment_status"])
		}
	})

	t.Run("requires an identity", func(t *testing.T) {
		r := setupPaymentRouter(&mockPaymentService{})

		rec := doRequest(r, "GET", "/orders/ORD-1/payments/card", "")

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})
}

func TestPaymentHandler_CreateEWalletPayment(t *testing.T) {
	t.Run("rejects unknown wallet type at binding", func(t *testing.T) {
		r := setupPaymentRouter(&mockPaymentService{})

		rec := doRequestWithHeaders(r, "POST", "/orders/ORD-1/payments/ewallet",
			`{"wallet_type":"dogecoin-wallet"}`, guestHeader)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("passes the wallet type through", func(t *testing.T) {
		var gotWallet string
		paymentSvc := &mockPaymentService{
			createEWalletFn: func(_ identity.Identity, orderID, walletType string) (*services.EWalletPaymentResult, error) {
				gotWallet = walletType
				return &services.EWalletPaymentResult{OrderID: orderID, CheckoutURL: "https://gw/checkout"}, nil
			},
		}
		r := setupPaymentRouter(paymentSvc)

		rec := doRequestWithHeaders(r, "POST", "/orders/ORD-1/payments/ewallet",
			`{"wallet_type":"gcash"}`, guestHeader)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotWallet != "gcash" {
			t.Errorf("expected gcash, got %q", gotWallet)
		}
	})
}

func TestPaymentHandler_Webhook(t *testing.T) {
	t.Run("passes raw body and signature header through", func(t *testing.T) {
		var gotPayload []byte
		var gotHeader string
		paymentSvc := &mockPaymentService{
			handleWebhookFn: func(payload []byte, signatureHeader string) error {
				gotPayload = payload
				gotHeader = signatureHeader
				return nil
			},
		}
		r := setupPaymentRouter(paymentSvc)

		rec := doRequestWithHeaders(r, "POST", "/webhooks/payments",
			`{"data":{"id":"evt_1"}}`,
			map[string]string{"X-Webhook-Signature": "v1=abc"})

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if string(gotPayload) != `{"data":{"id":"evt_1"}}` {
			t.Errorf("body was not passed through verbatim: %s", gotPayload)
		}
		if gotHeader != "v1=abc" {
			t.Errorf("unexpected signature header %q", gotHeader)
		}
	})

	t.Run("maps invalid signature to 401", func(t *testing.T) {
		paymentSvc := &mockPaymentService{
			handleWebhookFn: func([]byte, string) error {
				return apperrors.ErrInvalidSignature
			},
		}
		r := setupPaymentRouter(paymentSvc)

		rec := doRequest(r, "POST", "/webhooks/payments", `{}`)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("webhook needs no identity", func(t *testing.T) {
		// Gateway deliveries carry neither a session nor a guest token.
		r := setupPaymentRouter(&mockPaymentService{})

		rec := doRequest(r, "POST", "/webhooks/payments", `{"data":{}}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})
}
