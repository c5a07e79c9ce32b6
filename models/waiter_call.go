package models

import "time"

// Tipo values follow the staff dashboard's vocabulary.
const (
	WaiterCallGeneral = "General"
	WaiterCallBill    = "Cuenta"

	WaiterCallPending = "Pendiente"
)

type WaiterCall struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TableID   uint      `gorm:"not null;index" json:"table_id"`
	Table     Table     `gorm:"foreignKey:TableID" json:"table"`
	Tipo      string    `gorm:"type:varchar(20);not null" json:"tipo"`
	Status    string    `gorm:"type:varchar(20);not null;default:'Pendiente'" json:"status"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}
