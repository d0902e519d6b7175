package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// RecoveryStatus is the lifecycle state of a cart snapshot.
type RecoveryStatus string

const (
	RecoveryStatusActive    RecoveryStatus = "active"
	RecoveryStatusAbandoned RecoveryStatus = "abandoned"
	RecoveryStatusRecovered RecoveryStatus = "recovered"
	RecoveryStatusExpired   RecoveryStatus = "expired"
)

// MaxRecoveryEmails is the length of the reminder sequence.
const MaxRecoveryEmails = 3

// IsTerminal reports whether no scheduled transition leaves this state.
func (s RecoveryStatus) IsTerminal() bool {
	return s == RecoveryStatusRecovered || s == RecoveryStatusExpired
}

// CanTransitionTo reports whether moving from s to next is allowed.
// Recovery is accepted from any state except recovered itself.
func (s RecoveryStatus) CanTransitionTo(next RecoveryStatus) bool {
	switch next {
	case RecoveryStatusAbandoned:
		return s == RecoveryStatusActive
	case RecoveryStatusExpired:
		return s == RecoveryStatusAbandoned
	case RecoveryStatusRecovered:
		return s != RecoveryStatusRecovered
	}
	return false
}

// AbandonedCart is a point-in-time copy of a shopper's cart, keyed by
// either a user id or a guest session id.
type AbandonedCart struct {
	ID                 uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	UserID             *uuid.UUID      `gorm:"type:uuid;index" json:"user_id,omitempty"`
	SessionID          *string         `gorm:"type:text;index" json:"session_id,omitempty"`
	Email              *string         `gorm:"type:text" json:"email,omitempty"`
	Phone              *string         `gorm:"type:text" json:"phone,omitempty"`
	CartContents       datatypes.JSON  `gorm:"type:jsonb;not null;default:'[]'" json:"cart_contents"`
	TotalValue         decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"total_value"`
	RecoveryStatus     RecoveryStatus  `gorm:"type:text;not null;default:'active';index" json:"recovery_status"`
	RecoveryEmailsSent int             `gorm:"not null;default:0" json:"recovery_emails_sent"`
	LastActivityAt     time.Time       `gorm:"not null;index" json:"last_activity_at"`
	AbandonedAt        *time.Time      `gorm:"index" json:"abandoned_at,omitempty"`
	LastEmailSentAt    *time.Time      `json:"last_email_sent_at,omitempty"`
	RecoveredAt        *time.Time      `json:"recovered_at,omitempty"`
	UTMSource          *string         `gorm:"column:utm_source;type:text" json:"utm_source,omitempty"`
	UTMMedium          *string         `gorm:"column:utm_medium;type:text" json:"utm_medium,omitempty"`
	UTMCampaign        *string         `gorm:"column:utm_campaign;type:text" json:"utm_campaign,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// Items decodes the stored cart contents.
func (c *AbandonedCart) Items() ([]CartItem, error) {
	if len(c.CartContents) == 0 {
		return []CartItem{}, nil
	}
	var items []CartItem
	if err := json.Unmarshal(c.CartContents, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// SetItems replaces the cart contents and recomputes the total value.
func (c *AbandonedCart) SetItems(items []CartItem) error {
	if items == nil {
		items = []CartItem{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return err
	}
	c.CartContents = datatypes.JSON(raw)
	c.TotalValue = CartTotal(items)
	return nil
}

// HasEmail reports whether the cart carries a usable contact address.
func (c *AbandonedCart) HasEmail() bool {
	return c.Email != nil && *c.Email != ""
}

// Absorb folds a guest snapshot into this one: items are merged, the total
// is recomputed, and contact or attribution fields only fill gaps.
func (c *AbandonedCart) Absorb(guest *AbandonedCart, now time.Time) error {
	mine, err := c.Items()
	if err != nil {
		return err
	}
	theirs, err := guest.Items()
	if err != nil {
		return err
	}
	if err := c.SetItems(MergeCartItems(mine, theirs)); err != nil {
		return err
	}
	c.Email = coalesce(c.Email, guest.Email)
	c.Phone = coalesce(c.Phone, guest.Phone)
	c.UTMSource = coalesce(c.UTMSource, guest.UTMSource)
	c.UTMMedium = coalesce(c.UTMMedium, guest.UTMMedium)
	c.UTMCampaign = coalesce(c.UTMCampaign, guest.UTMCampaign)
	c.LastActivityAt = now
	c.UpdatedAt = now
	return nil
}

func coalesce(values ...*string) *string {
	for _, v := range values {
		if v != nil && *v != "" {
			return v
		}
	}
	return nil
}
