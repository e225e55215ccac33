package model

import (
	"regexp"
	"time"
)

const DefaultCity = "La Paz"

var mobilePattern = regexp.MustCompile(`^[67]\d{7}$`)

// IsValidMobile reports whether mobile is a Bolivian cell number: eight digits starting with 6 or 7.
func IsValidMobile(mobile string) bool {
	return mobilePattern.MatchString(mobile)
}

// Customer is a shop or person that places orders and returns goods
type Customer struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(150);not null;index" json:"name"`
	Mobile    string    `gorm:"type:varchar(20)" json:"mobile"`
	Address   string    `gorm:"type:text" json:"address"`
	Zone      string    `gorm:"type:varchar(100);index" json:"zone"`
	City      string    `gorm:"type:varchar(100);not null;default:'La Paz'" json:"city"`
	Active    bool      `gorm:"not null;index" json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
