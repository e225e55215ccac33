package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const OrderNumberPrefix = "PED"

// MaxAmount is the largest magnitude a decimal(10,2) column stores.
var MaxAmount = decimal.RequireFromString("99999999.99")

// FitsAmount reports whether d can be stored in a decimal(10,2) column.
func FitsAmount(d decimal.Decimal) bool {
	return d.Abs().LessThanOrEqual(MaxAmount)
}

// OrderStatus constants
const (
	OrderStatusPending   = "pending"
	OrderStatusDelivered = "delivered"
	OrderStatusCancelled = "cancelled"
)

// IsValidOrderStatus reports whether status belongs to the order lifecycle.
func IsValidOrderStatus(status string) bool {
	switch status {
	case OrderStatusPending, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// Order is a customer purchase with owned line items
type Order struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	OrderNumber  string          `gorm:"type:varchar(20);uniqueIndex;not null" json:"order_number"`
	CustomerID   uint            `gorm:"not null;index" json:"customer_id"`
	Customer     *Customer       `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	CreatedByID  uint            `gorm:"not null;index" json:"created_by_id"`
	CreatedBy    *User           `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`
	OrderedAt    time.Time       `gorm:"not null;index" json:"ordered_at"`
	Subtotal     decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"subtotal"`
	Discount     decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"discount"`
	Total        decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"total"`
	Status       string          `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Notes        string          `gorm:"type:text" json:"notes"`
	DeliveryDate *time.Time      `gorm:"type:date" json:"delivery_date"`
	Lines        []OrderLine     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"lines"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// OrderLine is one product on an order. UnitPrice is a snapshot taken when the line is written.
type OrderLine struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	OrderID   uint            `gorm:"not null;index" json:"order_id"`
	ProductID uint            `gorm:"not null;index" json:"product_id"`
	Product   *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Quantity  decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	Subtotal  decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"subtotal"`
}

// NewOrderLine builds a line with its subtotal already computed.
func NewOrderLine(productID uint, quantity, unitPrice decimal.Decimal) OrderLine {
	return OrderLine{
		ProductID: productID,
		Quantity:  quantity,
		UnitPrice: unitPrice,
		Subtotal:  quantity.Mul(unitPrice).Round(2),
	}
}

// IsEditable reports whether lines may be replaced or the order deleted.
func (o *Order) IsEditable() bool {
	return o.Status == OrderStatusPending
}

// RecalculateTotals sets Subtotal to the sum of line subtotals and Total to Subtotal minus Discount.
func (o *Order) RecalculateTotals() {
	subtotal := decimal.Zero
	for _, line := range o.Lines {
		subtotal = subtotal.Add(line.Subtotal)
	}
	o.Subtotal = subtotal.Round(2)
	o.Total = o.Subtotal.Sub(o.Discount).Round(2)
}
