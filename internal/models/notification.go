package models

// Notification is an append-only per-identity record produced as a side
// effect of order and account actions.
type Notification struct {
	Base
	OwnerKey    string `gorm:"index;not null" json:"-"`
	Type        string `gorm:"not null" json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Metadata    string `json:"metadata,omitempty"`
	Read        bool   `gorm:"default:false" json:"read"`
}
