package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Units of measure
const (
	UnitPiece   = "unidad"
	UnitKilo    = "kg"
	UnitBox     = "caja"
	UnitPackage = "paquete"
	UnitLiter   = "litro"
)

// Units lists the accepted units of measure in display order.
var Units = []string{UnitPiece, UnitKilo, UnitBox, UnitPackage, UnitLiter}

// IsValidUnit reports whether unit is an accepted unit of measure.
func IsValidUnit(unit string) bool {
	for _, u := range Units {
		if u == unit {
			return true
		}
	}
	return false
}

const DefaultStockMinimum = 5

// Stock states reported by the low-stock listing
const (
	StockStateOK         = "ok"
	StockStateLow        = "low"
	StockStateOutOfStock = "out_of_stock"
)

// Product represents an item in the inventory
type Product struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	Code         *string         `gorm:"type:varchar(20);uniqueIndex" json:"code"`
	Name         string          `gorm:"type:varchar(150);not null;index" json:"name"`
	Description  string          `gorm:"type:text" json:"description"`
	Unit         string          `gorm:"type:varchar(20);not null;default:'unidad'" json:"unit"`
	SalePrice    decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"sale_price"`
	StockOnHand  int             `gorm:"type:int;not null;default:0" json:"stock_on_hand"`
	StockMinimum int             `gorm:"type:int;not null;default:5" json:"stock_minimum"`
	Active       bool            `gorm:"not null;index" json:"active"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// IsLowStock reports stock at or below the configured minimum.
func (p Product) IsLowStock() bool {
	return p.StockOnHand <= p.StockMinimum
}

// StockState classifies the product for the low-stock listing.
func (p Product) StockState() string {
	switch {
	case p.StockOnHand == 0:
		return StockStateOutOfStock
	case p.IsLowStock():
		return StockStateLow
	default:
		return StockStateOK
	}
}
