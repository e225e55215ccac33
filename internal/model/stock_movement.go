package model

import (
	"time"

	"github.com/google/uuid"
)

// Stock directions
const (
	StockIn  = "in"
	StockOut = "out"
)

// Stock movement sources
const (
	MovementOrderCreate     = "order_create"
	MovementOrderEdit       = "order_edit"
	MovementOrderCancel     = "order_cancel"
	MovementOrderReactivate = "order_reactivate"
	MovementOrderDelete     = "order_delete"
	MovementReturnCreate    = "return_create"
	MovementReturnEdit      = "return_edit"
	MovementReturnDelete    = "return_delete"
	MovementManual          = "manual"
)

// StockMovement records one ledger adjustment with the stock level on both sides of it
type StockMovement struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ProductID   uint      `gorm:"not null;index" json:"product_id"`
	Direction   string    `gorm:"type:varchar(10);not null" json:"direction"`
	Quantity    int       `gorm:"type:int;not null" json:"quantity"`
	StockBefore int       `gorm:"type:int;not null" json:"stock_before"`
	StockAfter  int       `gorm:"type:int;not null" json:"stock_after"`
	Source      string    `gorm:"type:varchar(30);not null;index" json:"source"`
	Reference   string    `gorm:"type:varchar(30);index" json:"reference"` // document number, empty for manual adjustments
	UserID      *uint     `gorm:"index" json:"user_id"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}
