package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "likha/internal/errors"
	"likha/internal/identity"
	"likha/internal/models"
	"likha/internal/pagination"
	"likha/internal/services"
)

// --- mock order service ---

type mockOrderService struct {
	createOrderFn     func(owner identity.Identity, shipping services.ShippingAddress, method models.PaymentMethod) (*models.Order, error)
	getOrdersFn       func(owner identity.Identity, page pagination.PageRequest) (*pagination.PageResponse[models.Order], error)
	getOrderFn        func(owner identity.Identity, orderID string) (*models.Order, error)
	cancelOrderFn     func(owner identity.Identity, orderID string) (*models.Order, error)
	updateStatusFn    func(orderID string, status models.OrderStatus, trackingNumber, notes string) (*models.Order, error)
	confirmReceivedFn func(owner identity.Identity, orderID string) (*models.Order, error)
}

func (m *mockOrderService) CreateOrder(owner identity.Identity, shipping services.ShippingAddress, method models.PaymentMethod) (*models.Order, error) {
	if m.createOrderFn != nil {
		return m.createOrderFn(owner, shipping, method)
	}
	return &models.Order{OrderID: "ORD-20260101-0001", OwnerKey: owner.Key(), PaymentMethod: method}, nil
}

func (m *mockOrderService) GetOrders(owner identity.Identity, page pagination.PageRequest) (*pagination.PageResponse[models.Order], error) {
	if m.getOrdersFn != nil {
		return m.getOrdersFn(owner, page)
	}
	resp := pagination.NewPageResponse([]models.Order{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockOrderService) GetOrder(owner identity.Identity, orderID string) (*models.Order, error) {
	if m.getOrderFn != nil {
		return m.getOrderFn(owner, orderID)
	}
	return &models.Order{OrderID: orderID, OwnerKey: owner.Key()}, nil
}

func (m *mockOrderService) GetOrderByOrderID(orderID string) (*models.Order, error) {
	return &models.Order{OrderID: orderID}, nil
}

func (m *mockOrderService) GetOrderByTransactionID(transactionID string) (*models.Order, error) {
	return &models.Order{TransactionID: transactionID}, nil
}

func (m *mockOrderService) MarkAsPaid(orderID, transactionID string) (*models.Order, error) {
	return &models.Order{OrderID: orderID, PaymentStatus: models.PaymentStatusPaid}, nil
}

func (m *mockOrderService) MarkPaymentFailed(string) error { return nil }

func (m *mockOrderService) SetTransactionID(string, string) error { return nil }

func (m *mockOrderService) CancelOrder(owner identity.Identity, orderID string) (*models.Order, error) {
	if m.cancelOrderFn != nil {
		return m.cancelOrderFn(owner, orderID)
	}
	return &models.Order{OrderID: orderID, Status: models.OrderStatusCancelled}, nil
}

func (m *mockOrderService) UpdateStatus(orderID string, status models.OrderStatus, trackingNumber, notes string) (*models.Order, error) {
	if m.updateStatusFn != nil {
		return m.updateStatusFn(orderID, status, trackingNumber, notes)
	}
	return &models.Order{OrderID: orderID, Status: status}, nil
}

func (m *mockOrderService) ConfirmReceived(owner identity.Identity, orderID string) (*models.Order, error) {
	if m.confirmReceivedFn != nil {
		return m.confirmReceivedFn(owner, orderID)
	}
	return &models.Order{OrderID: orderID, Status: models.OrderStatusDelivered}, nil
}

var _ services.OrderServicer = (*mockOrderService)(nil)

func setupOrderRouter(orderSvc services.OrderServicer, authSvc services.AuthServicer) *gin.Engine {
	r := gin.New()
	handler := NewOrderHandler(orderSvc, authSvc)
	guest := r.Group("")
	guest.POST("/orders", handler.CreateOrder)
	guest.GET("/orders", handler.ListOrders)
	guest.GET("/orders/:orderId", handler.GetOrder)
	guest.POST("/orders/:orderId/cancel", handler.CancelOrder)
	seller := r.Group("", injectSession(1, "seller@example.com"))
	seller.PUT("/orders/:orderId/status", handler.UpdateStatus)
	return r
}

const checkoutBody = `{
	"payment_method": "card",
	"shipping_name": "Maria Santos",
	"shipping_line1": "123 Mabini St",
	"shipping_city": "Quezon City"
}`

func TestOrderHandler_CreateOrder(t *testing.T) {
	t.Run("returns 201 with the created order", func(t *testing.T) {
		var gotMethod models.PaymentMethod
		orderSvc := &mockOrderService{
			createOrderFn: func(owner identity.Identity, shipping services.ShippingAddress, method models.PaymentMethod) (*models.Order, error) {
				gotMethod = method
				return &models.Order{OrderID: "ORD-20260101-0001", OwnerKey: owner.Key(), Total: 15800}, nil
			},
		}
		r := setupOrderRouter(orderSvc, &mockAuthService{})

		rec := doRequestWithHeaders(r, "POST", "/orders", checkoutBody,
			map[string]string{"X-Guest-Token": "tok-1"})

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotMethod != models.PaymentMethodCard {
			t.Errorf("expected card method, got %s", gotMethod)
		}
		result := parseJSON(t, rec)
		if result["order_id"] != "ORD-20260101-0001" {
			t.Errorf("unexpected order id: %v", result["order_id"])
		}
	})

	t.Run("rejects unknown payment method at binding", func(t *testing.T) {
		r := setupOrderRouter(&mockOrderService{}, &mockAuthService{})

		rec := doRequestWithHeaders(r, "POST", "/orders",
			`{"payment_method":"bitcoin","shipping_name":"M","shipping_line1":"x","shipping_city":"QC"}`,
			map[string]string{"X-Guest-Token": "tok-1"})

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("maps empty cart to 400", func(t *testing.T) {
		orderSvc := &mockOrderService{
			createOrderFn: func(identity.Identity, services.ShippingAddress, models.PaymentMethod) (*models.Order, error) {
				return nil, apperrors.ErrCartEmpty
			},
		}
		r := setupOrderRouter(orderSvc, &mockAuthService{})

		rec := doRequestWithHeaders(r, "POST", "/orders", checkoutBody,
			map[string]string{"X-Guest-Token": "tok-1"})

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		result := parseJSON(t, rec)
		errObj := result["error"].(map[string]interface{})
		if errObj["code"] != "CART_EMPTY" {
			t.Errorf("expected CART_EMPTY, got %v", errObj["code"])
		}
	})
}

func TestOrderHandler_UpdateStatus(t *testing.T) {
	t.Run("allows sellers", func(t *testing.T) {
		authSvc := &mockAuthService{
			getUserByIDFn: func(id uint) (*models.User, error) {
				return &models.User{Base: models.Base{ID: id}, IsSeller: true}, nil
			},
		}
		r := setupOrderRouter(&mockOrderService{}, authSvc)

		rec := doRequest(r, "PUT", "/orders/ORD-20260101-0001/status",
			`{"status":"shipped","tracking_number":"TRK-42"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("rejects non-sellers with 403", func(t *testing.T) {
		authSvc := &mockAuthService{
			getUserByIDFn: func(id uint) (*models.User, error) {
				return &models.User{Base: models.Base{ID: id}}, nil
			},
		}
		r := setupOrderRouter(&mockOrderService{}, authSvc)

		rec := doRequest(r, "PUT", "/orders/ORD-20260101-0001/status",
			`{"status":"shipped"}`)

		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
	})

	t.Run("rejects unknown status at binding", func(t *testing.T) {
		authSvc := &mockAuthService{
			getUserByIDFn: func(id uint) (*models.User, error) {
				return &models.User{Base: models.Base{ID: id}, IsSeller: true}, nil
			},
		}
		r := setupOrderRouter(&mockOrderService{}, authSvc)

		rec := doRequest(r, "PUT", "/orders/ORD-20260101-0001/status",
			`{"status":"teleported"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestOrderHandler_CancelOrder(t *testing.T) {
	t.Run("maps delivered order to 409", func(t *testing.T) {
		orderSvc := &mockOrderService{
			cancelOrderFn: func(identity.Identity, string) (*models.Order, error) {
				return nil, apperrors.ErrOrderNotCancellable
			},
		}
		r := setupOrderRouter(orderSvc, &mockAuthService{})

		rec := doRequestWithHeaders(r, "POST", "/orders/ORD-20260101-0001/cancel", "",
			map[string]string{"X-Guest-Token": "tok-1"})

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
	})
}
