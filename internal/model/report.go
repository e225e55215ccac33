package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatistics aggregates order counts per status and the delivered amount
type OrderStatistics struct {
	Total          int64           `json:"total"`
	Pending        int64           `json:"pending"`
	Delivered      int64           `json:"delivered"`
	Cancelled      int64           `json:"cancelled"`
	DeliveredTotal decimal.Decimal `json:"delivered_total"`
}

// ReturnStatistics aggregates return counts per status and per reason
type ReturnStatistics struct {
	Total       int64            `json:"total"`
	Pending     int64            `json:"pending"`
	Compensated int64            `json:"compensated"`
	ByReason    map[string]int64 `json:"by_reason"`
}

// CustomerStatistics summarizes a single customer's activity
type CustomerStatistics struct {
	Orders         int64           `json:"orders"`
	Returns        int64           `json:"returns"`
	DeliveredTotal decimal.Decimal `json:"delivered_total"`
	LastOrder      *Order          `json:"last_order"`
}

// CustomerCounts is the customer population split by active flag
type CustomerCounts struct {
	Total    int64 `json:"total"`
	Active   int64 `json:"active"`
	Inactive int64 `json:"inactive"`
}

// ProductSales ranks a product by accumulated ordered quantity
type ProductSales struct {
	Product       Product         `json:"product"`
	TotalQuantity decimal.Decimal `json:"total_quantity"`
	TotalValue    decimal.Decimal `json:"total_value"`
}

// DateRange is an optional half-open interval [From, To)
type DateRange struct {
	From *time.Time
	To   *time.Time
}

// DaySummaryItem is one product line inside a customer's block of the day summary
type DaySummaryItem struct {
	OrderNumber string          `json:"order_number"`
	ProductName string          `json:"product_name"`
	Quantity    decimal.Decimal `json:"quantity"`
	Unit        string          `json:"unit"`
}

// CustomerDaySummary groups one customer's orders of the day
type CustomerDaySummary struct {
	CustomerID   uint             `json:"customer_id"`
	CustomerName string           `json:"customer_name"`
	Items        []DaySummaryItem `json:"items"`
	Total        decimal.Decimal  `json:"total"`
}

// DaySummary is the dispatch sheet of a single Bolivia calendar day
type DaySummary struct {
	Date       time.Time            `json:"date"`
	Customers  []CustomerDaySummary `json:"customers"`
	Orders     int                  `json:"orders"`
	GrandTotal decimal.Decimal      `json:"grand_total"`
}
