package services

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/qrmesa/mesa-orders/models"
	"github.com/qrmesa/mesa-orders/utils"
)

func setupOrderNumberDB(t *testing.T) *gorm.DB {
	t.Helper()
	utils.InitLogger()

	db, err := gorm.Open(sqlite.Open("file:ordernumber_test?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open in-memory sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.Table{}, &models.Order{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	db.Exec("DELETE FROM orders")
	return db
}

func seedOrder(t *testing.T, db *gorm.DB, number string, createdAt time.Time) {
	t.Helper()
	err := db.Create(&models.Order{
		OrderNumber: number,
		TableID:     1,
		Status:      "pending",
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}).Error
	if err != nil {
		t.Fatalf("failed to seed order %s: %v", number, err)
	}
}

func TestGenerateFirstOrderOfDay(t *testing.T) {
	db := setupOrderNumberDB(t)
	gen := NewOrderNumberGenerator(db)
	gen.Now = func() time.Time {
		return time.Date(2025, 3, 7, 13, 30, 0, 0, time.Local)
	}

	number := gen.Generate(utils.OrderTypeRestaurant)
	assert.Regexp(t, regexp.MustCompile(`^R1/07\.03\.25/[0-9A-Z]{4}$`), number)
}

func TestGenerateIncrementsMaxSequence(t *testing.T) {
	db := setupOrderNumberDB(t)
	now := time.Date(2025, 3, 7, 13, 30, 0, 0, time.Local)

	seedOrder(t, db, "R3/07.03.25/AAAA", now.Add(-2*time.Hour))
	seedOrder(t, db, "R11/07.03.25/BBBB", now.Add(-time.Hour))
	seedOrder(t, db, "O25/07.03.25/CCCC", now.Add(-time.Hour))

	gen := NewOrderNumberGenerator(db)
	gen.Now = func() time.Time { return now }

	number := gen.Generate(utils.OrderTypeRestaurant)
	assert.Regexp(t, regexp.MustCompile(`^R12/07\.03\.25/[0-9A-Z]{4}$`), number)
}

func TestGenerateSequencesArePerType(t *testing.T) {
	db := setupOrderNumberDB(t)
	now := time.Date(2025, 3, 7, 13, 30, 0, 0, time.Local)

	seedOrder(t, db, "R5/07.03.25/AAAA", now.Add(-time.Hour))

	gen := NewOrderNumberGenerator(db)
	gen.Now = func() time.Time { return now }

	assert.True(t, strings.HasPrefix(gen.Generate(utils.OrderTypeOnline), "O1/"))
	assert.True(t, strings.HasPrefix(gen.Generate(utils.OrderTypeCamarero), "C1/"))
}

func TestGenerateIgnoresOtherDays(t *testing.T) {
	db := setupOrderNumberDB(t)
	now := time.Date(2025, 3, 7, 13, 30, 0, 0, time.Local)

	seedOrder(t, db, "R40/06.03.25/AAAA", now.Add(-24*time.Hour))

	gen := NewOrderNumberGenerator(db)
	gen.Now = func() time.Time { return now }

	number := gen.Generate(utils.OrderTypeRestaurant)
	assert.True(t, strings.HasPrefix(number, "R1/"), "got %s", number)
}

func TestGenerateFallsBackOnQueryError(t *testing.T) {
	// No orders table at all: the lookup fails and the generator must
	// still produce a well-formed number instead of blocking.
	utils.InitLogger()
	db, err := gorm.Open(sqlite.Open("file:ordernumber_broken?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open in-memory sqlite: %v", err)
	}

	gen := NewOrderNumberGenerator(db)
	number := gen.Generate(utils.OrderTypeRestaurant)
	assert.Regexp(t, regexp.MustCompile(`^R\d+/\d{2}\.\d{2}\.\d{2}/[0-9A-Z]{4}$`), number)
}

func TestRandomSuffixAlphabet(t *testing.T) {
	seen := regexp.MustCompile(`^[0-9A-Z]{4}$`)
	for i := 0; i < 100; i++ {
		assert.Regexp(t, seen, randomSuffix())
	}
}
