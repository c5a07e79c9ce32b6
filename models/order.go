package models

import "time"

type Order struct {
	ID uint `gorm:"primaryKey" json:"id"`
	// OrderNumber is the human-readable daily identifier, e.g. "R12/07.03.25/K3ZP".
	// Uniqueness is ultimately enforced by the unique index, not by the generator.
	OrderNumber        string      `gorm:"type:varchar(50);not null;uniqueIndex" json:"order_number"`
	TableID            uint        `gorm:"not null;index" json:"table_id"`
	Table              Table       `gorm:"foreignKey:TableID" json:"table"`
	CustomerName       *string     `gorm:"type:varchar(100)" json:"customer_name,omitempty"`
	Subtotal           float64     `gorm:"type:decimal(10,2);not null;default:0.00" json:"subtotal"`
	TipPercentage      float64     `gorm:"type:decimal(5,2);not null;default:0.00" json:"tip_percentage"`
	TipAmount          float64     `gorm:"type:decimal(10,2);not null;default:0.00" json:"tip_amount"`
	Total              float64     `gorm:"type:decimal(10,2);not null;default:0.00" json:"total"`
	ConfirmationMethod string      `gorm:"type:varchar(20);not null;default:'mesa'" json:"confirmation_method"`
	Status             string      `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	CreatedAt          time.Time   `gorm:"not null" json:"created_at"`
	UpdatedAt          time.Time   `gorm:"not null" json:"updated_at"`
	OrderItems         []OrderItem `gorm:"foreignKey:OrderID" json:"order_items"`
}
