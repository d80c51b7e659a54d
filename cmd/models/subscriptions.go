package models

import (
	"time"

	"gorm.io/gorm"
)

type Subscription struct {
	gorm.Model
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	Plan      string    `gorm:"size:50" json:"plan"`
	Status    string    `gorm:"size:20" json:"status"`
	PaymentID string    `gorm:"size:100" json:"payment_id"`
	OrderID   string    `gorm:"size:100" json:"order_id"`
	Signature string    `gorm:"size:255" json:"-"`
	Verified  bool      `gorm:"default:false" json:"verified"`
	StartsAt  time.Time `json:"starts_at"`
	ExpiresAt time.Time `gorm:"index" json:"expires_at"`

	User User `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"user,omitempty"`
}
