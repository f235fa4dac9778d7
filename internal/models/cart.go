package models

// Cart holds one identity's pending line items. OwnerKey is the tagged
// identity key ("user:<email>" or "guest:<token>"), so one cart exists
// per identity and guest carts can never collide with user carts.
type Cart struct {
	Base
	OwnerKey string     `gorm:"uniqueIndex;not null" json:"owner_key"`
	Items    []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items"`
}

// CartItem is a single product line in a cart. Price and stock are
// snapshots taken when the item was added; the authoritative values live
// on the product and are re-checked at checkout.
type CartItem struct {
	Base
	CartID     uint   `gorm:"index;not null" json:"-"`
	ProductID  uint   `gorm:"index;not null" json:"product_id"`
	Name       string `json:"name"`
	UnitPrice  int64  `json:"unit_price"`
	Quantity   int    `gorm:"not null" json:"quantity"`
	ImageURL   string `json:"image_url"`
	SellerName string `json:"seller_name"`
	MaxStock   int    `json:"max_stock"`
}

// Subtotal returns the cart's total in minor units using snapshot prices.
func (c *Cart) Subtotal() int64 {
	var total int64
	for _, item := range c.Items {
		total += item.UnitPrice * int64(item.Quantity)
	}
	return total
}
