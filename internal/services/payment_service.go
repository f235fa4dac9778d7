package services

import (
	"context"
	"errors"
	"fmt"

	"likha/internal/config"
	apperrors "likha/internal/errors"
	"likha/internal/identity"
	"likha/internal/logger"
	"likha/internal/models"
	"likha/internal/payment"
)

const paymentCurrency = "PHP"

// paymentService reconciles order payment state with the external
// gateway. It never mutates an order on a gateway failure: the order
// stays payable and the caller can retry.
type paymentService struct {
	gateway       *payment.Client
	orders        OrderServicer
	webhookSecret string
	appBaseURL    string
}

// NewPaymentService creates a new PaymentServicer.
func NewPaymentService(gateway *payment.Client, orders OrderServicer, cfg *config.Config) PaymentServicer {
	return &paymentService{
		gateway:       gateway,
		orders:        orders,
		webhookSecret: cfg.PaymentWebhookSecret,
		appBaseURL:    cfg.AppBaseURL,
	}
}

// CreateCardPayment creates a gateway payment intent for a pending
// order and records the intent id as the order's transaction id.
func (s *paymentService) CreateCardPayment(ctx context.Context, owner identity.Identity, orderID string) (*CardPaymentResult, error) {
	order, err := s.payableOrder(owner, orderID, models.PaymentMethodCard)
	if err != nil {
		return nil, err
	}

	intent, err := s.gateway.CreatePaymentIntent(ctx, payment.CreateIntentParams{
		Amount:      order.Total,
		Currency:    paymentCurrency,
		Description: "Order " + order.OrderID,
		OrderID:     order.OrderID,
	})
	if err != nil {
		return nil, gatewayError(err)
	}

	if err := s.orders.SetTransactionID(order.OrderID, intent.ID); err != nil {
		return nil, err
	}

	return &CardPaymentResult{
		OrderID:       order.OrderID,
		IntentID:      intent.ID,
		ClientKey:     intent.ClientKey,
		PaymentStatus: models.PaymentStatusPending,
	}, nil
}

// ConfirmCardPayment attaches the client-collected payment method to the
// order's intent and maps the gateway outcome onto the order:
// succeeded marks the order paid, awaiting_payment_method means the
// attempt failed and a new method is needed, awaiting_next_action hands
// back a 3DS redirect, processing stays pending for the webhook to
// settle.
func (s *paymentService) ConfirmCardPayment(ctx context.Context, owner identity.Identity, orderID, paymentMethodID string) (*CardPaymentResult, error) {
	order, err := s.payableOrder(owner, orderID, models.PaymentMethodCard)
	if err != nil {
		return nil, err
	}
	if order.TransactionID == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidOrderStatus, "no payment intent exists for this order")
	}

	returnURL := fmt.Sprintf("%s/orders/%s/payment/complete", s.appBaseURL, order.OrderID)
	intent, err := s.gateway.AttachPaymentIntent(ctx, order.TransactionID, paymentMethodID, returnURL)
	if err != nil {
		return nil, gatewayError(err)
	}

	result := &CardPaymentResult{
		OrderID:  order.OrderID,
		IntentID: intent.ID,
	}

	switch intent.Status {
	case payment.IntentStatusSucceeded:
		if _, err := s.orders.MarkAsPaid(order.OrderID, intent.ID); err != nil {
			return nil, err
		}
		result.PaymentStatus = models.PaymentStatusPaid
		return result, nil

	case payment.IntentStatusAwaitingNextAction:
		result.PaymentStatus = models.PaymentStatusPending
		result.RedirectURL = intent.NextActionURL
		result.Pending = true
		return result, nil

	case payment.IntentStatusProcessing:
		result.PaymentStatus = models.PaymentStatusPending
		result.Pending = true
		return result, nil

	case payment.IntentStatusAwaitingPaymentMethod:
		// The attempt was declined; the intent is reusable with a
		// different payment method, so the order is not failed yet.
		result.PaymentStatus = models.PaymentStatusPending
		result.RequiresRetry = true
		return result, apperrors.ErrPaymentRetry

	default:
		// Any status outside the documented set is terminal for this
		// attempt: the order's payment is failed, not left dangling.
		if err := s.orders.MarkPaymentFailed(order.OrderID); err != nil {
			return nil, err
		}
		return nil, apperrors.WithMessage(apperrors.ErrPaymentGateway,
			"unexpected intent status: "+intent.Status)
	}
}

// GetCardPaymentStatus polls the gateway for the order's intent state
// and settles the order when the intent finished out of band, e.g. a
// processing intent that completed before its webhook arrived.
func (s *paymentService) GetCardPaymentStatus(ctx context.Context, owner identity.Identity, orderID string) (*CardPaymentResult, error) {
	order, err := s.orders.GetOrder(owner, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentMethod != models.PaymentMethodCard {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidPaymentMethod,
			"order was placed with payment method "+string(order.PaymentMethod))
	}
	if order.Status == models.OrderStatusCancelled {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidOrderStatus, "order has been cancelled")
	}

	result := &CardPaymentResult{OrderID: order.OrderID, IntentID: order.TransactionID}
	if order.PaymentStatus == models.PaymentStatusPaid {
		result.PaymentStatus = models.PaymentStatusPaid
		return result, nil
	}
	if order.TransactionID == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidOrderStatus, "no payment intent exists for this order")
	}

	intent, err := s.gateway.RetrievePaymentIntent(ctx, order.TransactionID)
	if err != nil {
		return nil, gatewayError(err)
	}

	switch intent.Status {
	case payment.IntentStatusSucceeded:
		if _, err := s.orders.MarkAsPaid(order.OrderID, intent.ID); err != nil {
			return nil, err
		}
		result.PaymentStatus = models.PaymentStatusPaid

	case payment.IntentStatusAwaitingNextAction:
		result.PaymentStatus = models.PaymentStatusPending
		result.RedirectURL = intent.NextActionURL
		result.Pending = true

	case payment.IntentStatusAwaitingPaymentMethod:
		result.PaymentStatus = models.PaymentStatusPending
		result.RequiresRetry = true

	case payment.IntentStatusProcessing:
		result.PaymentStatus = models.PaymentStatusPending
		result.Pending = true

	default:
		if err := s.orders.MarkPaymentFailed(order.OrderID); err != nil {
			return nil, err
		}
		result.PaymentStatus = models.PaymentStatusFailed
	}
	return result, nil
}

// CreateEWalletPayment creates a redirect source for an e-wallet
// checkout and hands back the hosted checkout URL.
func (s *paymentService) CreateEWalletPayment(ctx context.Context, owner identity.Identity, orderID, walletType string) (*EWalletPaymentResult, error) {
	switch walletType {
	case "gcash", "grab_pay", "paymaya":
	default:
		return nil, apperrors.WithMessage(apperrors.ErrInvalidPaymentMethod,
			"unsupported wallet type: "+walletType)
	}

	order, err := s.payableOrder(owner, orderID, models.PaymentMethodEWallet)
	if err != nil {
		return nil, err
	}

	source, err := s.gateway.CreateSource(ctx, payment.CreateSourceParams{
		Amount:     order.Total,
		Currency:   paymentCurrency,
		SourceType: walletType,
		SuccessURL: fmt.Sprintf("%s/orders/%s/payment/success", s.appBaseURL, order.OrderID),
		FailedURL:  fmt.Sprintf("%s/orders/%s/payment/failed", s.appBaseURL, order.OrderID),
	})
	if err != nil {
		return nil, gatewayError(err)
	}

	if err := s.orders.SetTransactionID(order.OrderID, source.ID); err != nil {
		return nil, err
	}

	return &EWalletPaymentResult{
		OrderID:       order.OrderID,
		SourceID:      source.ID,
		CheckoutURL:   source.CheckoutURL,
		PaymentStatus: models.PaymentStatusPending,
		Pending:       true,
	}, nil
}

// CompleteEWalletPayment captures a payment against the order's source
// after the buyer returns from the hosted checkout. Paid settles the
// order, failed or cancelled marks the payment failed, anything else
// stays pending for the webhook.
func (s *paymentService) CompleteEWalletPayment(ctx context.Context, owner identity.Identity, orderID string) (*EWalletPaymentResult, error) {
	order, err := s.orders.GetOrder(owner, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == models.OrderStatusCancelled {
		// The buyer cancelled between redirect and return; capturing
		// now would move money for an order whose stock is already
		// restored.
		return nil, apperrors.WithMessage(apperrors.ErrInvalidOrderStatus, "order has been cancelled")
	}
	if order.PaymentStatus == models.PaymentStatusPaid {
		return &EWalletPaymentResult{
			OrderID:       order.OrderID,
			SourceID:      order.TransactionID,
			PaymentStatus: models.PaymentStatusPaid,
		}, nil
	}
	if order.TransactionID == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidOrderStatus, "no payment source exists for this order")
	}

	captured, err := s.gateway.CreatePayment(ctx, order.TransactionID, order.Total,
		paymentCurrency, "Order "+order.OrderID)
	if err != nil {
		return nil, gatewayError(err)
	}

	result := &EWalletPaymentResult{
		OrderID:  order.OrderID,
		SourceID: order.TransactionID,
	}

	switch captured.Status {
	case payment.PaymentStatusPaid:
		if _, err := s.orders.MarkAsPaid(order.OrderID, captured.ID); err != nil {
			return nil, err
		}
		result.PaymentStatus = models.PaymentStatusPaid
		return result, nil

	case payment.PaymentStatusFailed, payment.PaymentStatusCancelled:
		if err := s.orders.MarkPaymentFailed(order.OrderID); err != nil {
			return nil, err
		}
		result.PaymentStatus = models.PaymentStatusFailed
		return result, apperrors.ErrPaymentFailed

	default:
		result.PaymentStatus = models.PaymentStatusPending
		result.Pending = true
		return result, nil
	}
}

// HandleWebhook verifies, parses, and applies a gateway webhook
// delivery. Deliveries for unknown orders and unrecognized event types
// are acknowledged without effect so the gateway stops retrying them.
func (s *paymentService) HandleWebhook(payload []byte, signatureHeader string) error {
	if s.webhookSecret != "" && !payment.VerifySignature(payload, signatureHeader, s.webhookSecret) {
		return apperrors.ErrInvalidSignature
	}

	event, err := payment.ParseWebhookEvent(payload)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInvalidInput, err)
	}

	switch event.Type {
	case payment.EventPaymentPaid, payment.EventPaymentFailed:
	default:
		return nil
	}

	order, err := s.lookupOrder(event)
	if err != nil {
		if errors.Is(err, apperrors.ErrOrderNotFound) {
			logger.Get().Warnw("webhook for unknown order",
				"event_id", event.ID, "event_type", event.Type, "resource_id", event.ResourceID)
			return nil
		}
		return err
	}

	switch event.Type {
	case payment.EventPaymentPaid:
		_, err = s.orders.MarkAsPaid(order.OrderID, event.ResourceID)
		return err
	case payment.EventPaymentFailed:
		return s.orders.MarkPaymentFailed(order.OrderID)
	}
	return nil
}

// lookupOrder resolves a webhook event to an order: first by the
// order id carried in the gateway metadata, then by transaction id.
func (s *paymentService) lookupOrder(event *payment.WebhookEvent) (*models.Order, error) {
	if orderID := event.Metadata["order_id"]; orderID != "" {
		order, err := s.orders.GetOrderByOrderID(orderID)
		if err == nil {
			return order, nil
		}
	}
	return s.orders.GetOrderByTransactionID(event.ResourceID)
}

// payableOrder loads the order and checks it can accept a payment
// attempt with the given method.
func (s *paymentService) payableOrder(owner identity.Identity, orderID string, method models.PaymentMethod) (*models.Order, error) {
	order, err := s.orders.GetOrder(owner, orderID)
	if err != nil {
		return nil, err
	}
	if order.PaymentMethod != method {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidPaymentMethod,
			"order was placed with payment method "+string(order.PaymentMethod))
	}
	if order.Status == models.OrderStatusCancelled {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidOrderStatus, "order has been cancelled")
	}
	if order.PaymentStatus == models.PaymentStatusPaid {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidOrderStatus, "order is already paid")
	}
	return order, nil
}

func gatewayError(err error) error {
	var gwErr *payment.GatewayError
	if errors.As(err, &gwErr) {
		return apperrors.Wrap(apperrors.WithMessage(apperrors.ErrPaymentGateway, gwErr.Detail), err)
	}
	return apperrors.Wrap(apperrors.ErrPaymentGateway, err)
}
