package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "likha/internal/errors"
	"likha/internal/events"
	"likha/internal/identity"
	"likha/internal/models"
	"likha/internal/pagination"
)

// flatShippingFee is the delivery charge in minor units applied to every
// order. Free shipping tiers are a storefront concern, not modeled here.
const flatShippingFee int64 = 5800

// orderService drives the order/payment state machine.
type orderService struct {
	db            *gorm.DB
	notifications NotificationServicer
	publisher     events.Publisher
	now           func() time.Time
}

// NewOrderService creates a new OrderServicer.
func NewOrderService(db *gorm.DB, notifications NotificationServicer, publisher events.Publisher) OrderServicer {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &orderService{
		db:            db,
		notifications: notifications,
		publisher:     publisher,
		now:           time.Now,
	}
}

// CreateOrder snapshots the identity's cart into an order. Stock is
// validated against the live product and decremented here — checkout is
// a reservation, not a post-payment decrement — and the whole flow
// (stock check, decrement, order insert, counter increment, cart clear)
// runs in a single database transaction.
func (s *orderService) CreateOrder(owner identity.Identity, shipping ShippingAddress, method models.PaymentMethod) (*models.Order, error) {
	switch method {
	case models.PaymentMethodCard, models.PaymentMethodEWallet, models.PaymentMethodCOD:
	default:
		return nil, apperrors.ErrInvalidPaymentMethod
	}
	if shipping.Name == "" || shipping.Line1 == "" || shipping.City == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "shipping name, address, and city are required")
	}

	var order *models.Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var cart models.Cart
		err := tx.Preload("Items").Where("owner_key = ?", owner.Key()).First(&cart).Error
		if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && len(cart.Items) == 0) {
			return apperrors.ErrCartEmpty
		}
		if err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		var subtotal int64
		orderItems := make([]models.OrderItem, 0, len(cart.Items))
		for _, item := range cart.Items {
			var product models.Product
			if err := tx.First(&product, item.ProductID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperrors.WithMessage(apperrors.ErrProductUnavailable, item.Name+" is no longer available")
				}
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			if !product.IsActive {
				return apperrors.WithMessage(apperrors.ErrProductUnavailable, product.Name+" is no longer available")
			}

			// Conditional decrement: the WHERE clause guards against a
			// concurrent checkout draining the same stock.
			result := tx.Model(&models.Product{}).
				Where("id = ? AND stock >= ?", product.ID, item.Quantity).
				Update("stock", gorm.Expr("stock - ?", item.Quantity))
			if result.Error != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
			}
			if result.RowsAffected == 0 {
				return apperrors.WithMessage(apperrors.ErrInsufficientStock,
					fmt.Sprintf("Not enough stock for %s", product.Name))
			}

			subtotal += product.Price * int64(item.Quantity)
			orderItems = append(orderItems, models.OrderItem{
				ProductID:  product.ID,
				Name:       product.Name,
				UnitPrice:  product.Price,
				Quantity:   item.Quantity,
				ImageURL:   product.ImageURL,
				SellerName: product.SellerName,
			})
		}

		orderID, err := s.nextOrderID(tx)
		if err != nil {
			return err
		}

		order = &models.Order{
			OrderID:         orderID,
			OwnerKey:        owner.Key(),
			Items:           orderItems,
			ShippingName:    shipping.Name,
			ShippingPhone:   shipping.Phone,
			ShippingLine1:   shipping.Line1,
			ShippingCity:    shipping.City,
			ShippingPostal:  shipping.Postal,
			ShippingCountry: shipping.Country,
			PaymentMethod:   method,
			PaymentStatus:   models.PaymentStatusPending,
			Subtotal:        subtotal,
			ShippingFee:     flatShippingFee,
			Total:           subtotal + flatShippingFee,
			Status:          models.OrderStatusPending,
		}
		if err := tx.Create(order).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		if err := tx.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifications.Notify(owner.Key(), "order_created",
		"Order placed",
		fmt.Sprintf("Your order %s has been placed.", order.OrderID),
		order.OrderID)
	s.publisher.Publish(events.TopicOrders, order.OrderID, events.TypeOrderCreated, map[string]any{
		"order_id": order.OrderID,
		"total":    order.Total,
		"method":   string(order.PaymentMethod),
	})
	return order, nil
}

// nextOrderID assigns a date-sequenced, human-readable id
// (ORD-YYYYMMDD-NNNN) from an atomically incremented per-day counter row.
func (s *orderService) nextOrderID(tx *gorm.DB) (string, error) {
	day := s.now().Format("20060102")

	// Upsert: two first checkouts of the day can race past an
	// update-then-insert, and the loser's insert must fold into an
	// increment instead of failing the checkout on the primary key.
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "day"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"seq": gorm.Expr("order_counters.seq + 1")}),
	}).Create(&models.OrderCounter{Day: day, Seq: 1}).Error
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var counter models.OrderCounter
	if err := tx.Where("day = ?", day).First(&counter).Error; err != nil {
		return "", apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return fmt.Sprintf("ORD-%s-%04d", day, counter.Seq), nil
}

// GetOrders returns the identity's orders, newest first.
func (s *orderService) GetOrders(owner identity.Identity, page pagination.PageRequest) (*pagination.PageResponse[models.Order], error) {
	page.Defaults()

	base := s.db.Model(&models.Order{}).Where("owner_key = ?", owner.Key())

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var orders []models.Order
	if err := base.Preload("Items").
		Scopes(pagination.Paginate(page)).
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(orders, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetOrder fetches one order, enforcing ownership.
func (s *orderService) GetOrder(owner identity.Identity, orderID string) (*models.Order, error) {
	var order models.Order
	err := s.db.Preload("Items").
		Where("order_id = ? AND owner_key = ?", orderID, owner.Key()).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrOrderNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &order, nil
}

// GetOrderByOrderID fetches one order without ownership scoping. For
// webhook and administrative paths that carry no session identity.
func (s *orderService) GetOrderByOrderID(orderID string) (*models.Order, error) {
	var order models.Order
	err := s.db.Preload("Items").
		Where("order_id = ?", orderID).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrOrderNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &order, nil
}

// GetOrderByTransactionID resolves a gateway transaction id back to its
// order. Used by the webhook path, which has no session identity.
func (s *orderService) GetOrderByTransactionID(transactionID string) (*models.Order, error) {
	if transactionID == "" {
		return nil, apperrors.ErrOrderNotFound
	}
	var order models.Order
	err := s.db.Preload("Items").
		Where("transaction_id = ?", transactionID).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrOrderNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &order, nil
}

// MarkAsPaid applies a payment confirmation. Idempotent: a second call
// for an already-paid order only refreshes the transaction id and fires
// no side effects. The first application promotes pending orders to
// processing.
func (s *orderService) MarkAsPaid(orderID, transactionID string) (*models.Order, error) {
	var order models.Order
	if err := s.db.Where("order_id = ?", orderID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrOrderNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if order.PaymentStatus == models.PaymentStatusPaid {
		if transactionID != "" && order.TransactionID != transactionID {
			if err := s.db.Model(&order).Update("transaction_id", transactionID).Error; err != nil {
				return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			order.TransactionID = transactionID
		}
		return &order, nil
	}

	paidAt := s.now()
	updates := map[string]any{
		"payment_status": models.PaymentStatusPaid,
		"paid_at":        paidAt,
	}
	if transactionID != "" {
		updates["transaction_id"] = transactionID
	}
	if order.Status == models.OrderStatusPending {
		updates["status"] = models.OrderStatusProcessing
	}
	if err := s.db.Model(&order).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	order.PaymentStatus = models.PaymentStatusPaid
	order.PaidAt = &paidAt
	if transactionID != "" {
		order.TransactionID = transactionID
	}
	if order.Status == models.OrderStatusPending {
		order.Status = models.OrderStatusProcessing
	}

	s.notifications.Notify(order.OwnerKey, "payment_confirmed",
		"Payment received",
		fmt.Sprintf("Payment for order %s has been confirmed.", order.OrderID),
		order.OrderID)
	s.publisher.Publish(events.TopicOrders, order.OrderID, events.TypeOrderPaid, map[string]any{
		"order_id":       order.OrderID,
		"transaction_id": order.TransactionID,
	})
	return &order, nil
}

// MarkPaymentFailed records a failed payment attempt. A paid order is
// never reverted: once money has moved, only an explicit cancellation
// may flip the payment state.
func (s *orderService) MarkPaymentFailed(orderID string) error {
	var order models.Order
	if err := s.db.Where("order_id = ?", orderID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrOrderNotFound
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if order.PaymentStatus == models.PaymentStatusPaid {
		return nil
	}
	if err := s.db.Model(&order).Update("payment_status", models.PaymentStatusFailed).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// SetTransactionID stores the gateway-side id (intent or source) on the
// order so asynchronous confirmations can find it later.
func (s *orderService) SetTransactionID(orderID, transactionID string) error {
	result := s.db.Model(&models.Order{}).
		Where("order_id = ?", orderID).
		Update("transaction_id", transactionID)
	if result.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrOrderNotFound
	}
	return nil
}

// CancelOrder cancels a non-delivered order. A paid order's payment is
// marked refunded (refund execution is the gateway's job) and the
// reserved stock is restored, all in one transaction with the status
// change.
func (s *orderService) CancelOrder(owner identity.Identity, orderID string) (*models.Order, error) {
	order, err := s.GetOrder(owner, orderID)
	if err != nil {
		return nil, err
	}

	if order.Status == models.OrderStatusDelivered {
		return nil, apperrors.ErrOrderNotCancellable
	}
	if order.Status == models.OrderStatusCancelled {
		return order, nil
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{"status": models.OrderStatusCancelled}
		if order.PaymentStatus == models.PaymentStatusPaid {
			updates["payment_status"] = models.PaymentStatusRefunded
		}
		if err := tx.Model(order).Updates(updates).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		for _, item := range order.Items {
			if err := tx.Model(&models.Product{}).
				Where("id = ?", item.ProductID).
				Update("stock", gorm.Expr("stock + ?", item.Quantity)).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	order.Status = models.OrderStatusCancelled
	if order.PaymentStatus == models.PaymentStatusPaid {
		order.PaymentStatus = models.PaymentStatusRefunded
	}

	s.notifications.Notify(order.OwnerKey, "order_cancelled",
		"Order cancelled",
		fmt.Sprintf("Order %s has been cancelled.", order.OrderID),
		order.OrderID)
	s.publisher.Publish(events.TopicOrders, order.OrderID, events.TypeOrderCancelled, map[string]any{
		"order_id": order.OrderID,
		"refunded": order.PaymentStatus == models.PaymentStatusRefunded,
	})
	return order, nil
}

// UpdateStatus is the administrative mutation: status, tracking number,
// and notes, with no guard beyond the status being a known value.
func (s *orderService) UpdateStatus(orderID string, status models.OrderStatus, trackingNumber, notes string) (*models.Order, error) {
	switch status {
	case models.OrderStatusPending, models.OrderStatusProcessing,
		models.OrderStatusShipped, models.OrderStatusDelivered,
		models.OrderStatusCancelled:
	default:
		return nil, apperrors.ErrInvalidOrderStatus
	}

	var order models.Order
	if err := s.db.Where("order_id = ?", orderID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrOrderNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	updates := map[string]any{"status": status}
	if trackingNumber != "" {
		updates["tracking_number"] = trackingNumber
	}
	if notes != "" {
		updates["notes"] = notes
	}
	if err := s.db.Model(&order).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	order.Status = status
	if trackingNumber != "" {
		order.TrackingNumber = trackingNumber
	}
	if notes != "" {
		order.Notes = notes
	}
	return &order, nil
}

// ConfirmReceived lets the buyer mark a shipped order as delivered.
func (s *orderService) ConfirmReceived(owner identity.Identity, orderID string) (*models.Order, error) {
	order, err := s.GetOrder(owner, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != models.OrderStatusShipped {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidOrderStatus, "Only shipped orders can be confirmed as received")
	}

	if err := s.db.Model(order).Update("status", models.OrderStatusDelivered).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	order.Status = models.OrderStatusDelivered
	return order, nil
}
