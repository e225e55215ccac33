package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionCreateProduct  = "CREATE_PRODUCT"
	ActionUpdateProduct  = "UPDATE_PRODUCT"
	ActionDeleteProduct  = "DELETE_PRODUCT"
	ActionAdjustStock    = "ADJUST_STOCK"
	ActionToggleProduct  = "TOGGLE_PRODUCT"
	ActionCreateCustomer = "CREATE_CUSTOMER"
	ActionUpdateCustomer = "UPDATE_CUSTOMER"
	ActionDeleteCustomer = "DELETE_CUSTOMER"
	ActionToggleCustomer = "TOGGLE_CUSTOMER"

	ActionCreateOrder       = "CREATE_ORDER"
	ActionUpdateOrder       = "UPDATE_ORDER"
	ActionChangeOrderStatus = "CHANGE_ORDER_STATUS"
	ActionDeleteOrder       = "DELETE_ORDER"

	ActionCreateReturn     = "CREATE_RETURN"
	ActionUpdateReturn     = "UPDATE_RETURN"
	ActionCompensateReturn = "COMPENSATE_RETURN"
	ActionDeleteReturn     = "DELETE_RETURN"

	ActionCreateUser = "CREATE_USER"
	ActionUpdateUser = "UPDATE_USER"
	ActionDeleteUser = "DELETE_USER"
	ActionToggleUser = "TOGGLE_USER"
)

// AuditLog tracks Who, What, and When for critical system changes
type AuditLog struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     *uint     `gorm:"index" json:"user_id"`
	User       *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Action     string    `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string    `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName string    `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    string    `gorm:"type:jsonb" json:"details"` // serialized JSON payload of the action
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}
