package models

import "time"

// OrderStatus is the fulfillment lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// PaymentStatus is the payment sub-state of an order.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// PaymentMethod identifies how the buyer pays.
type PaymentMethod string

const (
	PaymentMethodCard    PaymentMethod = "card"
	PaymentMethodEWallet PaymentMethod = "ewallet"
	PaymentMethodCOD     PaymentMethod = "cod"
)

// Order is an immutable snapshot of cart contents plus mutable lifecycle
// state. Item prices are frozen at creation time and never follow live
// product price changes.
type Order struct {
	Base
	OrderID  string      `gorm:"uniqueIndex;not null" json:"order_id"`
	OwnerKey string      `gorm:"index;not null" json:"-"`
	Items    []OrderItem `gorm:"foreignKey:OrderRef;constraint:OnDelete:CASCADE" json:"items"`

	// Shipping
	ShippingName    string `json:"shipping_name"`
	ShippingPhone   string `json:"shipping_phone"`
	ShippingLine1   string `json:"shipping_line1"`
	ShippingCity    string `json:"shipping_city"`
	ShippingPostal  string `json:"shipping_postal"`
	ShippingCountry string `json:"shipping_country"`

	// Payment
	PaymentMethod PaymentMethod `gorm:"not null" json:"payment_method"`
	PaymentStatus PaymentStatus `gorm:"not null;default:pending" json:"payment_status"`
	TransactionID string        `gorm:"index" json:"transaction_id,omitempty"`
	PaidAt        *time.Time    `json:"paid_at,omitempty"`

	// Totals in minor units
	Subtotal    int64 `json:"subtotal"`
	ShippingFee int64 `json:"shipping_fee"`
	Total       int64 `json:"total"`

	Status         OrderStatus `gorm:"not null;default:pending" json:"status"`
	TrackingNumber string      `json:"tracking_number,omitempty"`
	Notes          string      `json:"notes,omitempty"`
}

// OrderItem is a frozen product line on an order.
type OrderItem struct {
	Base
	OrderRef   uint   `gorm:"index;not null" json:"-"`
	ProductID  uint   `gorm:"index;not null" json:"product_id"`
	Name       string `json:"name"`
	UnitPrice  int64  `json:"unit_price"`
	Quantity   int    `gorm:"not null" json:"quantity"`
	ImageURL   string `json:"image_url"`
	SellerName string `json:"seller_name"`
}

// OrderCounter assigns the per-day sequence number embedded in the
// human-readable order id. Incremented atomically inside the order
// creation transaction so concurrent checkouts cannot collide.
type OrderCounter struct {
	Day       string `gorm:"primaryKey;size:8"`
	Seq       int    `gorm:"not null;default:0"`
	UpdatedAt time.Time
}
