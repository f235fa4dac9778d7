package models

// Product is a seller's listing. Price is in minor currency units
// (centavos), matching everything money-related in the API.
type Product struct {
	Base
	SellerID    uint   `gorm:"index;not null" json:"seller_id"`
	SellerName  string `json:"seller_name"`
	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`
	Category    string `gorm:"index" json:"category"`
	Price       int64  `gorm:"not null" json:"price"`
	Stock       int    `gorm:"not null;default:0" json:"stock"`
	ImageURL    string `json:"image_url"`
	IsActive    bool   `gorm:"default:true" json:"is_active"`
}
