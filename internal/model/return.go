package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const ReturnNumberPrefix = "DEV"

// ReturnStatus constants
const (
	ReturnStatusPending     = "pending"
	ReturnStatusCompensated = "compensated"
)

// Return reasons
const (
	ReturnReasonExpired       = "expired"
	ReturnReasonBadCondition  = "bad_condition"
	ReturnReasonDeliveryError = "delivery_error"
	ReturnReasonOther         = "other"
)

// ReturnReason pairs a reason value with its display label.
type ReturnReason struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// ReturnReasons is the catalogue offered to clients.
var ReturnReasons = []ReturnReason{
	{Value: ReturnReasonExpired, Label: "Expired product"},
	{Value: ReturnReasonBadCondition, Label: "Bad condition"},
	{Value: ReturnReasonDeliveryError, Label: "Delivery error"},
	{Value: ReturnReasonOther, Label: "Other"},
}

// IsValidReturnReason reports whether reason is in the catalogue.
func IsValidReturnReason(reason string) bool {
	for _, r := range ReturnReasons {
		if r.Value == reason {
			return true
		}
	}
	return false
}

// Return records goods a customer handed back, optionally linked to the order they came from
// and, once settled, to the order that compensated them.
type Return struct {
	ID                  uint         `gorm:"primaryKey" json:"id"`
	ReturnNumber        string       `gorm:"type:varchar(20);uniqueIndex;not null" json:"return_number"`
	OriginOrderID       *uint        `gorm:"index" json:"origin_order_id"`
	OriginOrder         *Order       `gorm:"foreignKey:OriginOrderID" json:"origin_order,omitempty"`
	CustomerID          uint         `gorm:"not null;index" json:"customer_id"`
	Customer            *Customer    `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	CreatedByID         uint         `gorm:"not null;index" json:"created_by_id"`
	CreatedBy           *User        `gorm:"foreignKey:CreatedByID" json:"created_by,omitempty"`
	ReturnedAt          time.Time    `gorm:"not null;index" json:"returned_at"`
	Reason              string       `gorm:"type:varchar(30);not null;index" json:"reason"`
	ReasonDetail        string       `gorm:"type:text" json:"reason_detail"`
	Status              string       `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	CompensationOrderID *uint        `gorm:"index" json:"compensation_order_id"`
	CompensationOrder   *Order       `gorm:"foreignKey:CompensationOrderID" json:"compensation_order,omitempty"`
	CompensatedAt       *time.Time   `json:"compensated_at"`
	Notes               string       `gorm:"type:text" json:"notes"`
	Lines               []ReturnLine `gorm:"foreignKey:ReturnID;constraint:OnDelete:CASCADE" json:"lines"`
	CreatedAt           time.Time    `json:"created_at"`
	UpdatedAt           time.Time    `json:"updated_at"`
}

// ReturnLine is one returned product and its optional replacement
type ReturnLine struct {
	ID                   uint            `gorm:"primaryKey" json:"id"`
	ReturnID             uint            `gorm:"not null;index" json:"return_id"`
	ProductID            uint            `gorm:"not null;index" json:"product_id"`
	Product              *Product        `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Quantity             decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"quantity"`
	ReplacementProductID *uint           `gorm:"index" json:"replacement_product_id"`
	ReplacementProduct   *Product        `gorm:"foreignKey:ReplacementProductID" json:"replacement_product,omitempty"`
	Note                 string          `gorm:"type:text" json:"note"`
}

// IsEditable reports whether the return may still be edited or deleted.
func (r *Return) IsEditable() bool {
	return r.Status == ReturnStatusPending
}
