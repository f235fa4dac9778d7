package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "likha/internal/errors"
	"likha/internal/services"
)

// CartHandler handles cart requests for both sessions and guests.
type CartHandler struct {
	cartService services.CartServicer
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(cartService services.CartServicer) *CartHandler {
	return &CartHandler{cartService: cartService}
}

// AddItemRequest represents the add-to-cart payload
type AddItemRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required,min=1"`
}

// UpdateQuantityRequest represents the quantity update payload
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1"`
}

// GetCart returns the identity's cart
// @Summary     Get the cart
// @Description Get the session's cart, or the guest cart named by X-Guest-Token
// @Tags        cart
// @Produce     json
// @Success     200 {object} models.Cart "Cart"
// @Failure     401 {object} ErrorResponse "No session and no guest token"
// @Router      /cart [get]
func (h *CartHandler) GetCart(c *gin.Context) {
	owner, err := getIdentity(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	cart, err := h.cartService.GetCart(owner)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, cart)
}

// AddItem adds a product to the cart
// @Summary     Add an item to the cart
// @Tags        cart
// @Accept      json
// @Produce     json
// @Param       request body AddItemRequest true "Product and quantity"
// @Success     200 {object} models.Cart "Updated cart"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Product not found"
// @Failure     409 {object} ErrorResponse "Insufficient stock"
// @Router      /cart/items [post]
func (h *CartHandler) AddItem(c *gin.Context) {
	owner, err := getIdentity(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	cart, err := h.cartService.AddItem(owner, req.ProductID, req.Quantity)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, cart)
}

// UpdateQuantity sets a cart line's quantity
// @Summary     Update a cart item's quantity
// @Tags        cart
// @Accept      json
// @Produce     json
// @Param       productId path int true "Product ID"
// @Param       request body UpdateQuantityRequest true "New quantity"
// @Success     200 {object} models.Cart "Updated cart"
// @Failure     404 {object} ErrorResponse "Item not in cart"
// @Failure     409 {object} ErrorResponse "Insufficient stock"
// @Router      /cart/items/{productId} [put]
func (h *CartHandler) UpdateQuantity(c *gin.Context) {
	owner, err := getIdentity(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	productID, err := parsePathID(c, "productId")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	cart, err := h.cartService.UpdateQuantity(owner, productID, req.Quantity)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, cart)
}

// RemoveItem removes a product line from the cart
// @Summary     Remove a cart item
// @Tags        cart
// @Produce     json
// @Param       productId path int true "Product ID"
// @Success     200 {object} models.Cart "Updated cart"
// @Failure     404 {object} ErrorResponse "Item not in cart"
// @Router      /cart/items/{productId} [delete]
func (h *CartHandler) RemoveItem(c *gin.Context) {
	owner, err := getIdentity(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	productID, err := parsePathID(c, "productId")
	if err != nil {
		respondWithError(c, err)
		return
	}

	cart, err := h.cartService.RemoveItem(owner, productID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, cart)
}

// ClearCart empties the cart
// @Summary     Clear the cart
// @Tags        cart
// @Produce     json
// @Success     200 {object} MessageResponse "Cart cleared"
// @Router      /cart [delete]
func (h *CartHandler) ClearCart(c *gin.Context) {
	owner, err := getIdentity(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	if err := h.cartService.Clear(owner); err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Cart cleared"})
}
