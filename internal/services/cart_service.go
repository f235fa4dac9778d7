package services

import (
	"errors"

	"gorm.io/gorm"

	apperrors "likha/internal/errors"
	"likha/internal/identity"
	"likha/internal/models"
)

// cartService handles the per-identity cart aggregate.
type cartService struct {
	db *gorm.DB
}

// NewCartService creates a new CartServicer.
func NewCartService(db *gorm.DB) CartServicer {
	return &cartService{db: db}
}

// GetCart finds the identity's cart, creating it lazily on first access.
func (s *cartService) GetCart(owner identity.Identity) (*models.Cart, error) {
	return s.findOrCreate(s.db, owner)
}

func (s *cartService) findOrCreate(db *gorm.DB, owner identity.Identity) (*models.Cart, error) {
	if owner.IsZero() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "cart owner is required")
	}

	var cart models.Cart
	err := db.Preload("Items").Where("owner_key = ?", owner.Key()).First(&cart).Error
	if err == nil {
		return &cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	cart = models.Cart{OwnerKey: owner.Key(), Items: []models.CartItem{}}
	if err := db.Create(&cart).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &cart, nil
}

// AddItem adds a product to the cart, merging quantity into an existing
// line if the product is already present. Price, image, and stock are
// snapshotted from the live product; stock is re-validated at checkout.
func (s *cartService) AddItem(owner identity.Identity, productID uint, quantity int) (*models.Cart, error) {
	if quantity < 1 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "quantity must be at least 1")
	}

	var product models.Product
	if err := s.db.First(&product, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrProductNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if !product.IsActive {
		return nil, apperrors.ErrProductUnavailable
	}

	cart, err := s.GetCart(owner)
	if err != nil {
		return nil, err
	}

	var existing *models.CartItem
	for i := range cart.Items {
		if cart.Items[i].ProductID == productID {
			existing = &cart.Items[i]
			break
		}
	}

	newQuantity := quantity
	if existing != nil {
		newQuantity += existing.Quantity
	}
	if newQuantity > product.Stock {
		return nil, apperrors.WithMessage(apperrors.ErrInsufficientStock,
			"Only "+product.Name+" stock available: requested quantity exceeds it")
	}

	if existing != nil {
		existing.Quantity = newQuantity
		existing.UnitPrice = product.Price
		existing.MaxStock = product.Stock
		if err := s.db.Save(existing).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	} else {
		item := models.CartItem{
			CartID:     cart.ID,
			ProductID:  product.ID,
			Name:       product.Name,
			UnitPrice:  product.Price,
			Quantity:   quantity,
			ImageURL:   product.ImageURL,
			SellerName: product.SellerName,
			MaxStock:   product.Stock,
		}
		if err := s.db.Create(&item).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	return s.GetCart(owner)
}

// UpdateQuantity sets an item's quantity, validated against the product's
// live stock.
func (s *cartService) UpdateQuantity(owner identity.Identity, productID uint, quantity int) (*models.Cart, error) {
	if quantity < 1 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "quantity must be at least 1")
	}

	cart, err := s.GetCart(owner)
	if err != nil {
		return nil, err
	}

	var item *models.CartItem
	for i := range cart.Items {
		if cart.Items[i].ProductID == productID {
			item = &cart.Items[i]
			break
		}
	}
	if item == nil {
		return nil, apperrors.ErrCartItemNotFound
	}

	var product models.Product
	if err := s.db.First(&product, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrProductNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if quantity > product.Stock {
		return nil, apperrors.ErrInsufficientStock
	}

	item.Quantity = quantity
	item.MaxStock = product.Stock
	if err := s.db.Save(item).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return s.GetCart(owner)
}

// RemoveItem removes a product line from the cart.
func (s *cartService) RemoveItem(owner identity.Identity, productID uint) (*models.Cart, error) {
	cart, err := s.GetCart(owner)
	if err != nil {
		return nil, err
	}

	result := s.db.Where("cart_id = ? AND product_id = ?", cart.ID, productID).
		Delete(&models.CartItem{})
	if result.Error != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperrors.ErrCartItemNotFound
	}

	return s.GetCart(owner)
}

// Clear removes all items from the identity's cart.
func (s *cartService) Clear(owner identity.Identity) error {
	cart, err := s.GetCart(owner)
	if err != nil {
		return err
	}
	if err := s.db.Where("cart_id = ?", cart.ID).Delete(&models.CartItem{}).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// MergeGuestCart combines the guest cart's items into the user's cart,
// summing quantities per product, then discards the guest cart. Runs in
// one transaction so a concurrent request cannot resurrect the guest
// cart after deletion.
func (s *cartService) MergeGuestCart(guest, user identity.Identity) (*models.Cart, error) {
	if !guest.IsGuest() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "merge source must be a guest identity")
	}
	if user.IsGuest() || user.IsZero() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "merge target must be an authenticated identity")
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var guestCart models.Cart
		err := tx.Preload("Items").Where("owner_key = ?", guest.Key()).First(&guestCart).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Nothing to merge.
			return nil
		}
		if err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		userCart, err := s.findOrCreate(tx, user)
		if err != nil {
			return err
		}

		byProduct := make(map[uint]*models.CartItem, len(userCart.Items))
		for i := range userCart.Items {
			byProduct[userCart.Items[i].ProductID] = &userCart.Items[i]
		}

		for _, guestItem := range guestCart.Items {
			if existing, ok := byProduct[guestItem.ProductID]; ok {
				existing.Quantity += guestItem.Quantity
				if err := tx.Save(existing).Error; err != nil {
					return apperrors.Wrap(apperrors.ErrInternalServer, err)
				}
				continue
			}
			merged := models.CartItem{
				CartID:     userCart.ID,
				ProductID:  guestItem.ProductID,
				Name:       guestItem.Name,
				UnitPrice:  guestItem.UnitPrice,
				Quantity:   guestItem.Quantity,
				ImageURL:   guestItem.ImageURL,
				SellerName: guestItem.SellerName,
				MaxStock:   guestItem.MaxStock,
			}
			if err := tx.Create(&merged).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}

		if err := tx.Where("cart_id = ?", guestCart.ID).Delete(&models.CartItem{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Unscoped().Delete(&guestCart).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetCart(user)
}
