package database

import (
	"gorm.io/gorm"

	"github.com/qrmesa/mesa-orders/models"
	"github.com/qrmesa/mesa-orders/utils"
)

// Migrate creates the store schema. The unique index on
// orders.order_number (declared on the model) is the authoritative
// backstop for the read-then-increment order number generator:
// concurrent submissions may compute the same sequence, but two rows
// can never carry the same final number.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Table{},
		&models.Order{},
		&models.OrderItem{},
		&models.WaiterCall{},
		&models.SimpleRating{},
	)
	if err != nil {
		return err
	}

	if !db.Migrator().HasIndex(&models.Order{}, "OrderNumber") {
		utils.ErrorLogger.Errorf("Unique index on orders.order_number is missing; duplicate order numbers will not be rejected")
	}

	utils.InfoLogger.Println("AutoMigrate completed.")
	return nil
}
