package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "likha/internal/errors"
	"likha/internal/models"
	"likha/internal/pagination"
	"likha/internal/services"
)

// ProductHandler handles catalog requests
type ProductHandler struct {
	productService services.ProductServicer
	authService    services.AuthServicer
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(productService services.ProductServicer, authService services.AuthServicer) *ProductHandler {
	return &ProductHandler{productService: productService, authService: authService}
}

// ProductRequest represents a product create/update payload
type ProductRequest struct {
	Name        string `json:"name" binding:"required,max=200"`
	Description string `json:"description" binding:"max=2000"`
	Category    string `json:"category" binding:"max=100"`
	Price       int64  `json:"price" binding:"required,gt=0"`
	Stock       int    `json:"stock" binding:"min=0"`
	ImageURL    string `json:"image_url" binding:"omitempty,url,max=500"`
}

// ListQuery holds the catalog listing filters
type ListQuery struct {
	pagination.PageRequest
	Category *string `form:"category"`
	SellerID *uint   `form:"seller_id"`
	Search   *string `form:"search"`
}

// ListProducts returns a catalog page
// @Summary     List products
// @Description List active products with optional category, seller, and search filters
// @Tags        products
// @Produce     json
// @Param       page query int false "Page number"
// @Param       page_size query int false "Page size"
// @Param       category query string false "Filter by category"
// @Param       seller_id query int false "Filter by seller"
// @Param       search query string false "Name substring search"
// @Success     200 {object} pagination.PageResponse[models.Product] "Product page"
// @Failure     400 {object} ErrorResponse "Invalid query"
// @Router      /products [get]
func (h *ProductHandler) ListProducts(c *gin.Context) {
	var query ListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.productService.ListProducts(query.PageRequest, services.ProductFilter{
		Category: query.Category,
		SellerID: query.SellerID,
		Search:   query.Search,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetProduct returns one product
// @Summary     Get a product
// @Tags        products
// @Produce     json
// @Param       id path int true "Product ID"
// @Success     200 {object} models.Product "Product"
// @Failure     404 {object} ErrorResponse "Product not found"
// @Router      /products/{id} [get]
func (h *ProductHandler) GetProduct(c *gin.Context) {
	productID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	product, err := h.productService.GetProductByID(productID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

// CreateProduct creates a listing for the authenticated seller
// @Summary     Create a product
// @Tags        products
// @Accept      json
// @Produce     json
// @Param       request body ProductRequest true "Product data"
// @Success     201 {object} models.Product "Created product"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Not a seller"
// @Router      /products [post]
// @Security    BearerAuth
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	seller, err := h.requireSeller(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	sellerName := seller.FirstName
	if seller.LastName != "" {
		sellerName += " " + seller.LastName
	}

	product, err := h.productService.CreateProduct(seller.ID, sellerName, services.ProductInput{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Price:       req.Price,
		Stock:       req.Stock,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, product)
}

// UpdateProduct updates one of the seller's listings
// @Summary     Update a product
// @Tags        products
// @Accept      json
// @Produce     json
// @Param       id path int true "Product ID"
// @Param       request body ProductRequest true "Product data"
// @Success     200 {object} models.Product "Updated product"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Product not found or not owned"
// @Router      /products/{id} [put]
// @Security    BearerAuth
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	seller, err := h.requireSeller(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	productID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	product, err := h.productService.UpdateProduct(seller.ID, productID, services.ProductInput{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Price:       req.Price,
		Stock:       req.Stock,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) requireSeller(c *gin.Context) (*models.User, error) {
	userID, err := getUserID(c)
	if err != nil {
		return nil, err
	}
	user, err := h.authService.GetUserByID(userID)
	if err != nil {
		return nil, err
	}
	if !user.IsSeller {
		return nil, apperrors.WithMessage(apperrors.ErrForbidden, "Seller account required")
	}
	return user, nil
}
