package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "likha/internal/errors"
	"likha/internal/services"
)

// webhookSignatureHeader carries the gateway's HMAC signature over the
// raw webhook body.
const webhookSignatureHeader = "X-Webhook-Signature"

// PaymentHandler handles payment checkout and webhook requests
type PaymentHandler struct {
	paymentService services.PaymentServicer
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(paymentService services.PaymentServicer) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// ConfirmCardRequest carries the client-collected payment method id
type ConfirmCardRequest struct {
	PaymentMethodID string `json:"payment_method_id" binding:"required"`
}

// EWalletRequest selects the wallet provider for a redirect checkout
type EWalletRequest struct {
	WalletType string `json:"wallet_type" binding:"required,ewallet_type"`
}

// CreateCardPayment starts a card payment for an order
// @Summary     Start a card payment
// @Description Create a gateway payment intent for the order
// @Tags        payments
// @Produce     json
// @Param       orderId path string true "Order ID (ORD-...)"
// @Success     200 {object} services.CardPaymentResult "Payment intent created"
// @Failure     404 {object} ErrorResponse "Order not found"
// @Failure     409 {object} ErrorResponse "Order not payable"
// @Failure     502 {object} ErrorResponse "Gateway error"
// @Router      /orders/{orderId}/payments/card [post]
func (h *PaymentHandler) CreateCardPayment(c *gin.Context) {
	owner, err := getIdentity(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.paymentService.CreateCardPayment(c.Request.Context(), owner, c.Param("orderId"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ConfirmCardPayment attaches a payment method and settles the intent
// @Summary     Confirm a card payment
// @Description Attach the client-collected payment method; may settle, require 3DS redirect, or request a retry
// @Tags        payments
// @Accept      json
// @Produce     json
// @Param       orderId path string true "Order ID (ORD-...)"
// @Param       request body ConfirmCardRequest true "Payment method id"
// @Success     200 {object} services.CardPaymentResult "Payment outcome"
// @Failure     402 {object} ErrorResponse "Payment declined, retry with another method"
// @Failure     404 {object} ErrorResponse "Order not found"
// @Failure     502 {object} ErrorResponse "Gateway error"
// @Router      /orders/{orderId}/payments/card/confirm [post]
func (h *PaymentHandler) ConfirmCardPayment(c *gin.Context) {
	owner, err := getIdentity(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ConfirmCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.paymentService.ConfirmCardPayment(c.Request.Context(), owner, c.Param("orderId"), req.PaymentMethodID)
	if err != nil {
		// A retryable decline still carries the result so the client
		// can prompt for a different payment method.
		if result != nil && result.RequiresRetry {
			c.JSON(apperrors.ErrPaymentRetry.StatusCode, gin.H{
				"error": gin.H{
					"code":    apperrors.ErrPaymentRetry.Code,
					"message": apperrors.ErrPaymentRetry.Message,
				},
				"result": result,
			})
			return
		}
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetCardPaymentStatus polls the gateway for the order's intent state
// @Summary     Get card payment status
// @Description Poll the payment intent; settles the order if the intent completed before its webhook
// @Tags        payments
// @Produce     json
// @Param       orderId path string true "Order ID (ORD-...)"
// @Success     200 {object} services.CardPaymentResult "Current payment state"
// @Failure     404 {object} ErrorResponse "Order not found"
// @Failure     409 {object} ErrorResponse "No intent or order cancelled"
// @Failure     502 {object} ErrorResponse "Gateway error"
// @Router      /orders/{orderId}/payments/card [get]
func (h *PaymentHandler) GetCardPaymentStatus(c *gin.Context) {
	owner, err := getIdentity(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.paymentService.GetCardPaymentStatus(c.Request.Context(), owner, c.Param("orderId"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// CreateEWalletPayment starts a redirect e-wallet checkout
// @Summary     Start an e-wallet payment
// @Description Create a gateway redirect source and return the hosted checkout URL
// @Tags        payments
// @Accept      json
// @Produce     json
// @Param       orderId path string true "Order ID (ORD-...)"
// @Param       request body EWalletRequest true "Wallet type"
// @Success     200 {object} services.EWalletPaymentResult "Checkout URL"
// @Failure     400 {object} ErrorResponse "Unsupported wallet type"
// @Failure     404 {object} ErrorResponse "Order not found"
// @Failure     502 {object} ErrorResponse "Gateway error"
// @Router      /orders/{orderId}/payments/ewallet [post]
func (h *PaymentHandler) CreateEWalletPayment(c *gin.Context) {
	owner, err := getIdentity(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req EWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.paymentService.CreateEWalletPayment(c.Request.Context(), owner, c.Param("orderId"), req.WalletType)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// CompleteEWalletPayment settles an e-wallet payment after redirect
// @Summary     Complete an e-wallet payment
// @Description Capture the payment against the order's source after the buyer returns from checkout
// @Tags        payments
// @Produce     json
// @Param       orderId path string true "Order ID (ORD-...)"
// @Success     200 {object} services.EWalletPaymentResult "Payment outcome"
// @Failure     402 {object} ErrorResponse "Payment failed"
// @Failure     404 {object} ErrorResponse "Order not found"
// @Failure     502 {object} ErrorResponse "Gateway error"
// @Router      /orders/{orderId}/payments/ewallet/complete [post]
func (h *PaymentHandler) CompleteEWalletPayment(c *gin.Context) {
	owner, err := getIdentity(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.paymentService.CompleteEWalletPayment(c.Request.Context(), owner, c.Param("orderId"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// Webhook ingests gateway payment events
// @Summary     Payment gateway webhook
// @Description Verify the signature over the raw body and reconcile the referenced order
// @Tags        payments
// @Accept      json
// @Produce     json
// @Success     200 {object} MessageResponse "Event processed"
// @Failure     400 {object} ErrorResponse "Malformed event"
// @Failure     401 {object} ErrorResponse "Invalid signature"
// @Router      /webhooks/payments [post]
func (h *PaymentHandler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInvalidInput, err))
		return
	}

	if err := h.paymentService.HandleWebhook(payload, c.GetHeader(webhookSignatureHeader)); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}
