package models

import (
	"time"

	"github.com/google/uuid"
)

// Order status constants
const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusCancelled = "cancelled"
	OrderStatusRefunded  = "refunded"
)

// Order is the slice of the checkout record this service reads; rows are
// written by the PayPal capture flow.
type Order struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID        *uuid.UUID `gorm:"type:uuid;index" json:"user_id,omitempty"`
	Email         string     `gorm:"type:text;index" json:"email"`
	Status        string     `gorm:"type:text;not null;default:'pending'" json:"status"`
	TotalCents    int64      `json:"total_cents"`
	DiscountCode  *string    `gorm:"type:text" json:"discount_code,omitempty"`
	PaypalOrderID *string    `gorm:"type:text" json:"paypal_order_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
