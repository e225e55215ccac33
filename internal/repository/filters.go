package repository

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Page selects a window of a listing. A zero Limit returns every row.
type Page struct {
	Page  int
	Limit int
}

func (p Page) scope(db *gorm.DB) *gorm.DB {
	if p.Limit <= 0 {
		return db
	}
	page := p.Page
	if page < 1 {
		page = 1
	}
	return db.Offset((page - 1) * p.Limit).Limit(p.Limit)
}

type ProductFilter struct {
	Page
	Search   string
	Unit     string
	Active   *bool
	LowStock bool
}

type CustomerFilter struct {
	Page
	Search string
	Zone   string
	City   string
	Active *bool
}

type OrderFilter struct {
	Page
	CustomerID *uint
	Status     string
	From       *time.Time
	To         *time.Time // exclusive
	Search     string
}

type ReturnFilter struct {
	Page
	CustomerID *uint
	Status     string
	Reason     string
	From       *time.Time
	To         *time.Time // exclusive
	Search     string
}

func likePattern(s string) string {
	return "%" + s + "%"
}

// parseDecimal reads aggregate columns cast to text. Empty input (no rows) yields zero.
func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
