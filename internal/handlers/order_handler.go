package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "likha/internal/errors"
	"likha/internal/models"
	"likha/internal/pagination"
	"likha/internal/services"
)

// OrderHandler handles order lifecycle requests
type OrderHandler struct {
	orderService services.OrderServicer
	authService  services.AuthServicer
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService services.OrderServicer, authService services.AuthServicer) *OrderHandler {
	return &OrderHandler{orderService: orderService, authService: authService}
}

// CreateOrderRequest represents the checkout payload
type CreateOrderRequest struct {
	PaymentMethod string `json:"payment_method" binding:"required,payment_method"`

	ShippingName    string `json:"shipping_name" binding:"required,max=200"`
	ShippingPhone   string `json:"shipping_phone" binding:"max=30"`
	ShippingLine1   string `json:"shipping_line1" binding:"required,max=300"`
	ShippingCity    string `json:"shipping_city" binding:"required,max=100"`
	ShippingPostal  string `json:"shipping_postal" binding:"max=20"`
	ShippingCountry string `json:"shipping_country" binding:"max=100"`
}

// UpdateStatusRequest represents the administrative status mutation payload
type UpdateStatusRequest struct {
	Status         string `json:"status" binding:"required,order_status"`
	TrackingNumber string `json:"tracking_number" binding:"max=100"`
	Notes          string `json:"notes" binding:"max=1000"`
}

// CreateOrder converts the cart into an order
// @Summary     Place an order
// @Description Snapshot the cart into an order, reserving stock; the cart is emptied on success
// @Tags        orders
// @Accept      json
// @Produce     json
// @Param       request body CreateOrderRequest true "Payment method and shipping address"
// @Success     201 {object} models.Order "Created order"
// @Failure     400 {object} ErrorResponse "Invalid input or empty cart"
// @Failure     409 {object} ErrorResponse "Insufficient stock"
// @Router      /orders [post]
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	owner, err := getIdentity(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	order, err := h.orderService.CreateOrder(owner, services.ShippingAddress{
		Name:    req.ShippingName,
		Phone:   req.ShippingPhone,
		Line1:   req.ShippingLine1,
		City:    req.ShippingCity,
		Postal:  req.ShippingPostal,
		Country: req.ShippingCountry,
	}, models.PaymentMethod(req.PaymentMethod))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, order)
}

// ListOrders returns the identity's orders
// @Summary     List orders
// @Tags        orders
// @Produce     json
// @Param       page query int false "Page number"
// @Param       page_size query int false "Page size"
// @Success     200 {object} pagination.PageResponse[models.Order] "Order page"
// @Router      /orders [get]
func (h *OrderHandler) ListOrders(c *gin.Context) {
	owner, err := getIdentity(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.orderService.GetOrders(owner, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetOrder returns one of the identity's orders
// @Summary     Get an order
// @Tags        orders
// @Produce     json
// @Param       orderId path string true "Order ID (ORD-...)"
// @Success     200 {object} models.Order "Order"
// @Failure     404 {object} ErrorResponse "Order not found"
// @Router      /orders/{orderId} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	owner, err := getIdentity(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	order, err := h.orderService.GetOrder(owner, c.Param("orderId"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// CancelOrder cancels a non-delivered order
// @Summary     Cancel an order
// @Description Cancel an order; paid orders are marked refunded and reserved stock is restored
// @Tags        orders
// @Produce     json
// @Param       orderId path string true "Order ID (ORD-...)"
// @Success     200 {object} models.Order "Cancelled order"
// @Failure     404 {object} ErrorResponse "Order not found"
// @Failure     409 {object} ErrorResponse "Order already delivered"
// @Router      /orders/{orderId}/cancel [post]
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	owner, err := getIdentity(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	order, err := h.orderService.CancelOrder(owner, c.Param("orderId"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// ConfirmReceived marks a shipped order as delivered
// @Summary     Confirm order received
// @Tags        orders
// @Produce     json
// @Param       orderId path string true "Order ID (ORD-...)"
// @Success     200 {object} models.Order "Delivered order"
// @Failure     404 {object} ErrorResponse "Order not found"
// @Failure     409 {object} ErrorResponse "Order not in shipped state"
// @Router      /orders/{orderId}/received [post]
func (h *OrderHandler) ConfirmReceived(c *gin.Context) {
	owner, err := getIdentity(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	order, err := h.orderService.ConfirmReceived(owner, c.Param("orderId"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// UpdateStatus is the seller/administrative order mutation
// @Summary     Update order status
// @Description Set the fulfillment status, tracking number, and notes (seller only)
// @Tags        orders
// @Accept      json
// @Produce     json
// @Param       orderId path string true "Order ID (ORD-...)"
// @Param       request body UpdateStatusRequest true "New status"
// @Success     200 {object} models.Order "Updated order"
// @Failure     400 {object} ErrorResponse "Invalid status"
// @Failure     403 {object} ErrorResponse "Not a seller"
// @Failure     404 {object} ErrorResponse "Order not found"
// @Router      /orders/{orderId}/status [put]
// @Security    BearerAuth
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	user, err := h.authService.GetUserByID(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	if !user.IsSeller {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrForbidden, "Seller account required"))
		return
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	order, err := h.orderService.UpdateStatus(c.Param("orderId"),
		models.OrderStatus(req.Status), req.TrackingNumber, req.Notes)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, order)
}
