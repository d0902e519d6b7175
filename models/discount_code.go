package models

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// First-time customer promotion, evaluated against order history instead of a row.
const (
	NewCustomerCode       = "NEW20"
	NewCustomerPromoID    = "NEW20_PROMO"
	NewCustomerPercentage = 20
)

type DiscountCode struct {
	ID                  uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Code                string         `gorm:"type:text;not null;uniqueIndex" json:"code"`
	DiscountPercentage  *int           `json:"discount_percentage,omitempty"`
	DiscountAmountCents *int64         `json:"discount_amount_cents,omitempty"`
	Used                bool           `gorm:"not null;default:false" json:"used"`
	UsedAt              *time.Time     `json:"used_at,omitempty"`
	UsedByUserID        *uuid.UUID     `gorm:"type:uuid" json:"used_by_user_id,omitempty"` // first redeeming user only
	UsedByEmail         pq.StringArray `gorm:"type:text[];not null;default:'{}'" json:"used_by_email"`
	UseCount            int            `gorm:"not null;default:0" json:"use_count"`
	OrderID             *string        `gorm:"type:text" json:"order_id,omitempty"`
	ExpiresAt           *time.Time     `json:"expires_at,omitempty"`
	SingleUse           bool           `gorm:"not null;default:true" json:"single_use"` // informational, one use per identity always applies
	MaxTotalUses        *int           `json:"max_total_uses,omitempty"`
	CartID              *uuid.UUID     `gorm:"type:uuid;index" json:"cart_id,omitempty"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
}

// NormalizeCode upper-cases and trims a code as typed by a shopper.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// NormalizeEmail lower-cases and trims an address for identity comparisons.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Validate checks the shape of a code before it is stored.
func (d *DiscountCode) Validate() error {
	if d.Code == "" {
		return errors.New("code is required")
	}
	hasPercent := d.DiscountPercentage != nil
	hasAmount := d.DiscountAmountCents != nil
	if hasPercent == hasAmount {
		return errors.New("exactly one of discount_percentage or discount_amount_cents must be set")
	}
	if hasPercent && (*d.DiscountPercentage <= 0 || *d.DiscountPercentage > 100) {
		return errors.New("discount_percentage must be between 1 and 100")
	}
	if hasAmount && *d.DiscountAmountCents <= 0 {
		return errors.New("discount_amount_cents must be positive")
	}
	if d.MaxTotalUses != nil && *d.MaxTotalUses <= 0 {
		return errors.New("max_total_uses must be positive")
	}
	return nil
}

// UsedBy reports whether the given identity already redeemed this code.
// Emails are tracked as a list while only the first user id is kept.
func (d *DiscountCode) UsedBy(email string, userID *uuid.UUID) bool {
	if email != "" {
		needle := NormalizeEmail(email)
		for _, used := range d.UsedByEmail {
			if NormalizeEmail(used) == needle {
				return true
			}
		}
	}
	if userID != nil && d.UsedByUserID != nil && *d.UsedByUserID == *userID {
		return true
	}
	return false
}

// IsExpired reports whether the code is past its expiry at now.
func (d *DiscountCode) IsExpired(now time.Time) bool {
	return d.ExpiresAt != nil && !now.Before(*d.ExpiresAt)
}

// UsageExhausted reports whether max_total_uses has been reached.
func (d *DiscountCode) UsageExhausted() bool {
	return d.MaxTotalUses != nil && d.UseCount >= *d.MaxTotalUses
}

// MarkRedeemed records a redemption on the in-memory copy.
func (d *DiscountCode) MarkRedeemed(orderID, email string, userID *uuid.UUID, at time.Time) {
	d.Used = true
	d.UsedAt = &at
	if orderID != "" {
		d.OrderID = &orderID
	}
	if email != "" {
		d.UsedByEmail = append(d.UsedByEmail, NormalizeEmail(email))
	}
	if d.UsedByUserID == nil && userID != nil {
		id := *userID
		d.UsedByUserID = &id
	}
	d.UseCount++
	d.UpdatedAt = at
}

// Discount is the shopper-facing view of a code.
type Discount struct {
	ID                  string     `json:"id"`
	Code                string     `json:"code"`
	DiscountPercentage  *int       `json:"discountPercentage"`
	DiscountAmountCents *int64     `json:"discountAmountCents"`
	ExpiresAt           *time.Time `json:"expiresAt"`
}

// View converts the stored code to its shopper-facing form.
func (d *DiscountCode) View() Discount {
	return Discount{
		ID:                  d.ID.String(),
		Code:                d.Code,
		DiscountPercentage:  d.DiscountPercentage,
		DiscountAmountCents: d.DiscountAmountCents,
		ExpiresAt:           d.ExpiresAt,
	}
}

// NewCustomerDiscount is the virtual NEW20 discount; it has no row and never expires.
func NewCustomerDiscount() Discount {
	pct := NewCustomerPercentage
	return Discount{
		ID:                 NewCustomerPromoID,
		Code:               NewCustomerCode,
		DiscountPercentage: &pct,
	}
}
