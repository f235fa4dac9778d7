// Package errors provides custom error types for the Likha API.
// All service-layer errors should use AppError to ensure consistent,
// secure error responses that never leak internal details to clients.
package errors

import "net/http"

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// Authentication & authorization errors.
var (
	ErrUnauthorized       = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrInvalidCredentials = &AppError{Code: "INVALID_CREDENTIALS", Message: "Invalid email or password", StatusCode: http.StatusUnauthorized}
	ErrForbidden          = &AppError{Code: "FORBIDDEN", Message: "Access denied", StatusCode: http.StatusForbidden}
	ErrAccountLocked      = &AppError{Code: "ACCOUNT_LOCKED", Message: "Too many failed login attempts. Please try again later.", StatusCode: http.StatusForbidden}
	ErrEmailNotVerified   = &AppError{Code: "EMAIL_NOT_VERIFIED", Message: "Please verify your email address before logging in", StatusCode: http.StatusForbidden}
	ErrCSRFMismatch       = &AppError{Code: "CSRF_MISMATCH", Message: "Invalid or missing CSRF token", StatusCode: http.StatusForbidden}
	ErrWeakPassword       = &AppError{Code: "WEAK_PASSWORD", Message: "Password is too weak", StatusCode: http.StatusBadRequest}
)

// Rate limiting errors.
var (
	ErrRateLimited = &AppError{Code: "RATE_LIMITED", Message: "Too many requests. Please try again later.", StatusCode: http.StatusTooManyRequests}
)

// Token errors. Each code is distinct so the client can branch its UI:
// invalid means "check your link", expired means "request a new one",
// used means "this link was already redeemed".
var (
	ErrInvalidToken = &AppError{Code: "INVALID_TOKEN", Message: "Invalid or unrecognized token", StatusCode: http.StatusBadRequest}
	ErrTokenExpired = &AppError{Code: "TOKEN_EXPIRED", Message: "This token has expired. Please request a new one.", StatusCode: http.StatusBadRequest}
	ErrTokenUsed    = &AppError{Code: "TOKEN_USED", Message: "This token has already been used", StatusCode: http.StatusBadRequest}
)

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// User errors.
var (
	ErrUserNotFound    = &AppError{Code: "USER_NOT_FOUND", Message: "User not found", StatusCode: http.StatusNotFound}
	ErrDuplicateEmail  = &AppError{Code: "DUPLICATE_EMAIL", Message: "A user with this email already exists", StatusCode: http.StatusConflict}
	ErrAlreadyVerified = &AppError{Code: "ALREADY_VERIFIED", Message: "This email address is already verified", StatusCode: http.StatusConflict}
)

// Product errors.
var (
	ErrProductNotFound    = &AppError{Code: "PRODUCT_NOT_FOUND", Message: "Product not found", StatusCode: http.StatusNotFound}
	ErrProductUnavailable = &AppError{Code: "PRODUCT_UNAVAILABLE", Message: "This product is no longer available", StatusCode: http.StatusConflict}
	ErrInsufficientStock  = &AppError{Code: "INSUFFICIENT_STOCK", Message: "Not enough stock for the requested quantity", StatusCode: http.StatusConflict}
)

// Cart errors.
var (
	ErrCartEmpty        = &AppError{Code: "CART_EMPTY", Message: "Your cart is empty", StatusCode: http.StatusBadRequest}
	ErrCartItemNotFound = &AppError{Code: "CART_ITEM_NOT_FOUND", Message: "Item not found in cart", StatusCode: http.StatusNotFound}
)

// Order errors.
var (
	ErrOrderNotFound       = &AppError{Code: "ORDER_NOT_FOUND", Message: "Order not found", StatusCode: http.StatusNotFound}
	ErrOrderNotCancellable = &AppError{Code: "ORDER_NOT_CANCELLABLE", Message: "Delivered orders cannot be cancelled", StatusCode: http.StatusConflict}
	ErrInvalidOrderStatus  = &AppError{Code: "INVALID_ORDER_STATUS", Message: "Unsupported order status", StatusCode: http.StatusBadRequest}
)

// Payment errors.
var (
	ErrPaymentGateway       = &AppError{Code: "PAYMENT_GATEWAY_ERROR", Message: "The payment provider could not be reached. Please try again.", StatusCode: http.StatusBadGateway}
	ErrPaymentRetry         = &AppError{Code: "PAYMENT_RETRY", Message: "Payment was not completed. Please try another payment method.", StatusCode: http.StatusPaymentRequired}
	ErrPaymentFailed        = &AppError{Code: "PAYMENT_FAILED", Message: "Payment failed", StatusCode: http.StatusPaymentRequired}
	ErrInvalidSignature     = &AppError{Code: "INVALID_SIGNATURE", Message: "Webhook signature verification failed", StatusCode: http.StatusUnauthorized}
	ErrInvalidPaymentMethod = &AppError{Code: "INVALID_PAYMENT_METHOD", Message: "Unsupported payment method", StatusCode: http.StatusBadRequest}
)

// Email errors.
var (
	ErrEmailSendFailed = &AppError{Code: "EMAIL_SEND_FAILED", Message: "Failed to send email. Please try again later.", StatusCode: http.StatusInternalServerError}
)
