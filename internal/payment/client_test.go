package payment

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCreatePaymentIntent(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		var gotAuth, gotPath string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			gotPath = r.URL.Path
			fmt.Fprint(w, `{"data":{"id":"pi_1","attributes":{"status":"awaiting_payment_method","client_key":"pi_1_ck"}}}`)
		}))
		defer server.Close()

		client := NewClient(server.Client(), server.URL, "sk_test_123")
		intent, err := client.CreatePaymentIntent(context.Background(), CreateIntentParams{
			Amount:   15800,
			Currency: "PHP",
			OrderID:  "ORD-20260101-0001",
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if intent.ID != "pi_1" || intent.ClientKey != "pi_1_ck" {
			t.Errorf("unexpected intent: %+v", intent)
		}
		if gotPath != "/payment_intents" {
			t.Errorf("unexpected path %s", gotPath)
		}

		expectedAuth := "Basic " + base64.StdEncoding.EncodeToString([]byte("sk_test_123:"))
		if gotAuth != expectedAuth {
			t.Errorf("expected basic auth with the secret key, got %q", gotAuth)
		}
	})

	t.Run("gateway_error_decoded", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusPaymentRequired)
			fmt.Fprint(w, `{"errors":[{"code":"card_declined","detail":"The card was declined."}]}`)
		}))
		defer server.Close()

		client := NewClient(server.Client(), server.URL, "sk_test_123")
		_, err := client.CreatePaymentIntent(context.Background(), CreateIntentParams{Amount: 100, Currency: "PHP"})

		var gwErr *GatewayError
		if !errors.As(err, &gwErr) {
			t.Fatalf("expected *GatewayError, got %T: %v", err, err)
		}
		if gwErr.StatusCode != http.StatusPaymentRequired {
			t.Errorf("expected 402, got %d", gwErr.StatusCode)
		}
		if !strings.Contains(gwErr.Detail, "declined") {
			t.Errorf("expected decline detail, got %q", gwErr.Detail)
		}
	})
}

func TestAttachPaymentIntent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/payment_intents/pi_1/attach" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"data":{"id":"pi_1","attributes":{"status":"awaiting_next_action","next_action":{"redirect":{"url":"https://gateway.test/3ds"}}}}}`)
	}))
	defer server.Close()

	client := NewClient(server.Client(), server.URL, "sk_test_123")
	intent, err := client.AttachPaymentIntent(context.Background(), "pi_1", "pm_1", "https://app.test/return")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if intent.Status != IntentStatusAwaitingNextAction {
		t.Errorf("expected awaiting_next_action, got %s", intent.Status)
	}
	if intent.NextActionURL != "https://gateway.test/3ds" {
		t.Errorf("expected 3DS url, got %q", intent.NextActionURL)
	}
}

func TestRetrievePaymentIntent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/payment_intents/pi_1" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		fmt.Fprint(w, `{"data":{"id":"pi_1","attributes":{"status":"succeeded"}}}`)
	}))
	defer server.Close()

	client := NewClient(server.Client(), server.URL, "sk_test_123")
	intent, err := client.RetrievePaymentIntent(context.Background(), "pi_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if intent.Status != IntentStatusSucceeded {
		t.Errorf("expected succeeded, got %s", intent.Status)
	}
}

func TestCreateSource(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"id":"src_1","attributes":{"status":"pending","redirect":{"checkout_url":"https://gateway.test/checkout","success":"s","failed":"f"}}}}`)
	}))
	defer server.Close()

	client := NewClient(server.Client(), server.URL, "sk_test_123")
	source, err := client.CreateSource(context.Background(), CreateSourceParams{
		Amount:     15800,
		Currency:   "PHP",
		SourceType: "gcash",
		SuccessURL: "https://app.test/success",
		FailedURL:  "https://app.test/failed",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if source.ID != "src_1" || source.CheckoutURL != "https://gateway.test/checkout" {
		t.Errorf("unexpected source: %+v", source)
	}
}

func TestCreatePayment(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"id":"pay_1","attributes":{"status":"paid","source":{"id":"src_1"}}}}`)
	}))
	defer server.Close()

	client := NewClient(server.Client(), server.URL, "sk_test_123")
	captured, err := client.CreatePayment(context.Background(), "src_1", 15800, "PHP", "Order ORD-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if captured.Status != PaymentStatusPaid || captured.SourceID != "src_1" {
		t.Errorf("unexpected payment: %+v", captured)
	}
}
