package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Recovery log event types
const (
	EventEmailSent     = "email_sent"
	EventEmailFailed   = "email_failed"
	EventEmailClicked  = "email_clicked"
	EventCartRecovered = "cart_recovered"
)

// CartRecoveryLog is an append-only record of what happened to an abandoned cart.
type CartRecoveryLog struct {
	ID              uint              `gorm:"primaryKey" json:"id"`
	AbandonedCartID uuid.UUID         `gorm:"type:uuid;not null;index" json:"abandoned_cart_id"`
	EventType       string            `gorm:"type:text;not null;index" json:"event_type"`
	Metadata        datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}
