package services

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"gorm.io/gorm"

	"github.com/qrmesa/mesa-orders/models"
	"github.com/qrmesa/mesa-orders/utils"
)

var ErrTableNotFound = errors.New("table not found")

var digitRun = regexp.MustCompile(`\d+`)

// NormalizeTableLabel reduces a free-form table label to its digit run
// and the standard stored form. Historical rows use several formats,
// so both are needed for lookups.
func NormalizeTableLabel(input string) (std, numberOnly string) {
	raw := strings.TrimSpace(input)
	numberOnly = raw
	if m := digitRun.FindString(raw); m != "" {
		numberOnly = m
	}
	std = "Mesa: " + numberOnly
	return std, numberOnly
}

// CandidateLabels lists the stored formats a table identifier may
// appear under, in lookup order.
func CandidateLabels(tableID string) []string {
	return []string{
		fmt.Sprintf("Mesa: %s", tableID),
		fmt.Sprintf("Mesa %s", tableID),
		tableID,
		fmt.Sprintf("Table %s", tableID),
		fmt.Sprintf("Table: %s", tableID),
	}
}

type TableResolver struct {
	DB *gorm.DB
}

func NewTableResolver(db *gorm.DB) *TableResolver {
	return &TableResolver{DB: db}
}

// ResolveByTableID maps a token's table identifier to the canonical
// active table record, trying each candidate label format in order.
// Candidates are queried sequentially so the diagnostic log stays
// ordered.
func (r *TableResolver) ResolveByTableID(tableID string) (*models.Table, error) {
	for _, label := range CandidateLabels(tableID) {
		var table models.Table
		err := r.DB.Where("table_number = ? AND is_active = ?", label, true).First(&table).Error
		if err == nil {
			utils.InfoLogger.Printf("Resolved table %q via format %q (id=%d)", tableID, label, table.ID)
			return &table, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	r.logActiveTables(tableID)
	return nil, ErrTableNotFound
}

// ResolveByLabel looks up a user-supplied label, trying the standard
// form and then the bare number. The active flag is left to the
// caller so an inactive table can be reported distinctly from a
// missing one.
func (r *TableResolver) ResolveByLabel(label string) (*models.Table, error) {
	std, numberOnly := NormalizeTableLabel(label)
	for _, candidate := range []string{std, numberOnly} {
		var table models.Table
		err := r.DB.Where("table_number = ?", candidate).First(&table).Error
		if err == nil {
			return &table, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	return nil, ErrTableNotFound
}

// logActiveTables dumps up to ten active tables when resolution
// fails. A miss here almost always means the QR worker and the tables
// table disagree on label format.
func (r *TableResolver) logActiveTables(tableID string) {
	var tables []models.Table
	if err := r.DB.Where("is_active = ?", true).Limit(10).Find(&tables).Error; err != nil {
		utils.ErrorLogger.Errorf("Could not list active tables: %v", err)
		return
	}
	utils.ErrorLogger.Errorf("Table %q not found with any known format; active tables:", tableID)
	for _, t := range tables {
		utils.ErrorLogger.Errorf("  id=%d table_number=%q", t.ID, t.TableNumber)
	}
}
