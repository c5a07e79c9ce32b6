package models

import "time"

type OrderItem struct {
	ID      uint `gorm:"primaryKey" json:"id"`
	OrderID uint `gorm:"not null;index" json:"order_id"`
	// Omitting Order field from JSON to avoid recursive nesting
	Order      Order   `gorm:"foreignKey:OrderID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	MenuItemID uint    `gorm:"not null" json:"menu_item_id"`
	DishName   string  `gorm:"type:varchar(150);not null" json:"dish_name"`
	Quantity   int     `gorm:"not null" json:"quantity"`
	UnitPrice  float64 `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	Subtotal   float64 `gorm:"type:decimal(10,2);not null" json:"subtotal"`
	Notes      *string `gorm:"type:text" json:"notes,omitempty"`
	Variant    *string `gorm:"type:varchar(100)" json:"variant,omitempty"`
	// Customizations holds the serialized add-on list (name + price pairs).
	Customizations *string   `gorm:"type:text" json:"customizations,omitempty"`
	CreatedAt      time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null" json:"updated_at"`
}
