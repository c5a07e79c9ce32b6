package services

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/qrmesa/mesa-orders/models"
	"github.com/qrmesa/mesa-orders/utils"
)

const suffixAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// OrderNumberGenerator produces order numbers of the shape
// <TypeLetter><Sequence>/<DD.MM.YY>/<Suffix>, unique per (type, day)
// in the common case.
type OrderNumberGenerator struct {
	DB *gorm.DB
	// Now is swappable for date-sensitive tests.
	Now func() time.Time
}

func NewOrderNumberGenerator(db *gorm.DB) *OrderNumberGenerator {
	return &OrderNumberGenerator{DB: db, Now: time.Now}
}

// Generate issues the next number for today's orders of the given
// type. This is read-then-increment, not atomic: two concurrent
// submissions can compute the same sequence. The random suffix and
// the unique index on orders.order_number are the backstops.
func (g *OrderNumberGenerator) Generate(orderType string) string {
	now := g.Now()
	dateStr := now.Format("02.01.06")

	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	endOfDay := startOfDay.Add(24*time.Hour - time.Second)

	var numbers []string
	err := g.DB.Model(&models.Order{}).
		Where("created_at BETWEEN ? AND ?", startOfDay, endOfDay).
		Where("order_number LIKE ?", orderType+"%").
		Pluck("order_number", &numbers).Error
	if err != nil {
		// Never block an order on sequence lookup trouble; a
		// timestamp sequence keeps the format intact.
		utils.ErrorLogger.Errorf("Order number lookup failed, falling back to timestamp sequence: %v", err)
		return fmt.Sprintf("%s%d/%s/%s", orderType, now.UnixMilli(), dateStr, randomSuffix())
	}

	maxSeq := 0
	for _, number := range numbers {
		first := number
		if idx := strings.Index(number, "/"); idx >= 0 {
			first = number[:idx]
		}
		digits := digitRun.FindString(first)
		if digits == "" {
			continue
		}
		if seq, convErr := strconv.Atoi(digits); convErr == nil && seq > maxSeq {
			maxSeq = seq
		}
	}

	return fmt.Sprintf("%s%d/%s/%s", orderType, maxSeq+1, dateStr, randomSuffix())
}

func randomSuffix() string {
	b := make([]byte, 4)
	for i := range b {
		b[i] = suffixAlphabet[rand.Intn(len(suffixAlphabet))]
	}
	return string(b)
}
