package services

import (
	"errors"

	"gorm.io/gorm"

	apperrors "likha/internal/errors"
	"likha/internal/models"
	"likha/internal/pagination"
)

// productService handles catalog business logic.
type productService struct {
	db *gorm.DB
}

// NewProductService creates a new ProductServicer.
func NewProductService(db *gorm.DB) ProductServicer {
	return &productService{db: db}
}

// CreateProduct creates a listing for a seller.
func (s *productService) CreateProduct(sellerID uint, sellerName string, input ProductInput) (*models.Product, error) {
	if input.Name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "product name is required")
	}
	if input.Price <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "price must be greater than zero")
	}
	if input.Stock < 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "stock cannot be negative")
	}

	product := &models.Product{
		SellerID:    sellerID,
		SellerName:  sellerName,
		Name:        input.Name,
		Description: input.Description,
		Category:    input.Category,
		Price:       input.Price,
		Stock:       input.Stock,
		ImageURL:    input.ImageURL,
		IsActive:    true,
	}
	if err := s.db.Create(product).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return product, nil
}

// UpdateProduct updates a listing owned by the seller.
func (s *productService) UpdateProduct(sellerID, productID uint, input ProductInput) (*models.Product, error) {
	var product models.Product
	if err := s.db.Where("id = ? AND seller_id = ?", productID, sellerID).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrProductNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if input.Price <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "price must be greater than zero")
	}
	if input.Stock < 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "stock cannot be negative")
	}

	product.Name = input.Name
	product.Description = input.Description
	product.Category = input.Category
	product.Price = input.Price
	product.Stock = input.Stock
	product.ImageURL = input.ImageURL

	if err := s.db.Save(&product).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &product, nil
}

// GetProductByID retrieves a product by id.
func (s *productService) GetProductByID(productID uint) (*models.Product, error) {
	var product models.Product
	if err := s.db.First(&product, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrProductNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &product, nil
}

// ListProducts returns a paginated, filtered catalog page.
func (s *productService) ListProducts(page pagination.PageRequest, filter ProductFilter) (*pagination.PageResponse[models.Product], error) {
	page.Defaults()

	base := s.db.Model(&models.Product{}).Where("is_active = ?", true)
	if filter.Category != nil {
		base = base.Where("category = ?", *filter.Category)
	}
	if filter.SellerID != nil {
		base = base.Where("seller_id = ?", *filter.SellerID)
	}
	if filter.Search != nil {
		base = base.Where("name LIKE ?", "%"+*filter.Search+"%")
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var products []models.Product
	if err := base.Scopes(pagination.Paginate(page)).
		Order("created_at DESC").
		Find(&products).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(products, page.Page, page.PageSize, totalItems)
	return &result, nil
}
