package services

import (
	"context"
	"time"

	"likha/internal/identity"
	"likha/internal/models"
	"likha/internal/pagination"
)

// RateLimitResult reports the outcome of a throttling check.
type RateLimitResult struct {
	Allowed   bool      `json:"allowed"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
	Message   string    `json:"message,omitempty"`
}

// RateLimitServicer enforces per-key, per-endpoint attempt budgets.
type RateLimitServicer interface {
	Check(ctx context.Context, key, endpoint string) RateLimitResult
	Reset(ctx context.Context, key, endpoint string)
}

// LockoutStatus reports an account's lockout state.
type LockoutStatus struct {
	IsLocked       bool
	FailedAttempts int
	LockedUntil    *time.Time
}

// RegisterInput carries a validated registration command.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// AuthServicer defines the contract for the authentication and
// account-security pipeline.
type AuthServicer interface {
	Register(ctx context.Context, input RegisterInput, clientKey string) (*models.User, string, error)
	Login(ctx context.Context, email, password, clientKey string) (*models.User, error)
	VerifyEmail(token string) (*models.User, error)
	ResendVerification(ctx context.Context, email, clientKey string) (string, error)
	ForgotPassword(ctx context.Context, email, clientKey string) (string, error)
	ResetPassword(token, newPassword string) error
	GetUserByID(id uint) (*models.User, error)

	CheckAccountLockout(email string) LockoutStatus
	RecordFailedLogin(email string)
	ResetFailedLogins(email string)
}

// ProductInput carries a validated product create/update command.
type ProductInput struct {
	Name        string
	Description string
	Category    string
	Price       int64
	Stock       int
	ImageURL    string
}

// ProductFilter holds optional filters for listing products.
type ProductFilter struct {
	Category *string
	SellerID *uint
	Search   *string
}

// ProductServicer defines the contract for the product catalog.
type ProductServicer interface {
	CreateProduct(sellerID uint, sellerName string, input ProductInput) (*models.Product, error)
	UpdateProduct(sellerID, productID uint, input ProductInput) (*models.Product, error)
	GetProductByID(productID uint) (*models.Product, error)
	ListProducts(page pagination.PageRequest, filter ProductFilter) (*pagination.PageResponse[models.Product], error)
}

// CartServicer defines the contract for the cart aggregate.
type CartServicer interface {
	GetCart(owner identity.Identity) (*models.Cart, error)
	AddItem(owner identity.Identity, productID uint, quantity int) (*models.Cart, error)
	UpdateQuantity(owner identity.Identity, productID uint, quantity int) (*models.Cart, error)
	RemoveItem(owner identity.Identity, productID uint) (*models.Cart, error)
	Clear(owner identity.Identity) error
	MergeGuestCart(guest, user identity.Identity) (*models.Cart, error)
}

// ShippingAddress is the delivery destination frozen onto an order.
type ShippingAddress struct {
	Name    string
	Phone   string
	Line1   string
	City    string
	Postal  string
	Country string
}

// OrderServicer defines the contract for the order state machine.
type OrderServicer interface {
	CreateOrder(owner identity.Identity, shipping ShippingAddress, method models.PaymentMethod) (*models.Order, error)
	GetOrders(owner identity.Identity, page pagination.PageRequest) (*pagination.PageResponse[models.Order], error)
	GetOrder(owner identity.Identity, orderID string) (*models.Order, error)
	GetOrderByOrderID(orderID string) (*models.Order, error)
	GetOrderByTransactionID(transactionID string) (*models.Order, error)
	MarkAsPaid(orderID, transactionID string) (*models.Order, error)
	MarkPaymentFailed(orderID string) error
	SetTransactionID(orderID, transactionID string) error
	CancelOrder(owner identity.Identity, orderID string) (*models.Order, error)
	UpdateStatus(orderID string, status models.OrderStatus, trackingNumber, notes string) (*models.Order, error)
	ConfirmReceived(owner identity.Identity, orderID string) (*models.Order, error)
}

// CardPaymentResult is returned by the card payment flow.
type CardPaymentResult struct {
	OrderID       string               `json:"order_id"`
	IntentID      string               `json:"intent_id"`
	ClientKey     string               `json:"client_key,omitempty"`
	PaymentStatus models.PaymentStatus `json:"payment_status"`
	RedirectURL   string               `json:"redirect_url,omitempty"`
	RequiresRetry bool                 `json:"requires_retry,omitempty"`
	Pending       bool                 `json:"pending,omitempty"`
}

// EWalletPaymentResult is returned by the e-wallet payment flow.
type EWalletPaymentResult struct {
	OrderID       string               `json:"order_id"`
	SourceID      string               `json:"source_id"`
	CheckoutURL   string               `json:"checkout_url,omitempty"`
	PaymentStatus models.PaymentStatus `json:"payment_status"`
	Pending       bool                 `json:"pending,omitempty"`
}

// PaymentServicer reconciles the order state machine with the external
// payment gateway.
type PaymentServicer interface {
	CreateCardPayment(ctx context.Context, owner identity.Identity, orderID string) (*CardPaymentResult, error)
	ConfirmCardPayment(ctx context.Context, owner identity.Identity, orderID, paymentMethodID string) (*CardPaymentResult, error)
	GetCardPaymentStatus(ctx context.Context, owner identity.Identity, orderID string) (*CardPaymentResult, error)
	CreateEWalletPayment(ctx context.Context, owner identity.Identity, orderID, walletType string) (*EWalletPaymentResult, error)
	CompleteEWalletPayment(ctx context.Context, owner identity.Identity, orderID string) (*EWalletPaymentResult, error)
	HandleWebhook(payload []byte, signatureHeader string) error
}

// NotificationServicer appends and reads per-identity notifications.
type NotificationServicer interface {
	Notify(ownerKey, notificationType, title, description, metadata string)
	GetNotifications(owner identity.Identity, page pagination.PageRequest) (*pagination.PageResponse[models.Notification], error)
	MarkRead(owner identity.Identity, notificationID uint) error
}
