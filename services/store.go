package services

import (
	"context"
	"time"

	"github.com/bjscha03/Final-Banner-Site-sub004/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned by stores when a row does not exist.
var ErrNotFound = errors.New("record not found")

// CartFilter narrows admin cart listings.
type CartFilter struct {
	Status models.RecoveryStatus
	Offset int
	Limit  int
}

// CartStore persists cart snapshots and their recovery log.
type CartStore interface {
	// UpsertActiveCart writes snap as the identity's active row, creating it
	// when none exists.
	UpsertActiveCart(ctx context.Context, snap *models.AbandonedCart) (*models.AbandonedCart, error)
	// MarkAbandoned promotes every eligible active cart and returns the promoted rows.
	MarkAbandoned(ctx context.Context, window models.Window, now time.Time) ([]models.AbandonedCart, error)
	// FindReminderCandidates lists abandoned carts owed reminder sequence.
	FindReminderCandidates(ctx context.Context, sequence int, window models.Window, now time.Time) ([]models.AbandonedCart, error)
	// ExpireStale moves abandoned carts older than olderThan to expired.
	ExpireStale(ctx context.Context, olderThan time.Duration, now time.Time) (int64, error)
	GetCart(ctx context.Context, id uuid.UUID) (*models.AbandonedCart, error)
	// RecordEmailSent advances the reminder counter from sequence-1 to
	// sequence and logs the send. It reports false when the cart was no
	// longer waiting for that reminder.
	RecordEmailSent(ctx context.Context, id uuid.UUID, sequence int, now time.Time, metadata map[string]interface{}) (bool, error)
	AppendLog(ctx context.Context, entry *models.CartRecoveryLog) error
	ListCarts(ctx context.Context, filter CartFilter) ([]models.AbandonedCart, int64, error)
	ListLogs(ctx context.Context, cartID uuid.UUID) ([]models.CartRecoveryLog, error)
	// MergeGuestCart folds the session's active cart into the user's active
	// cart and returns the result.
	MergeGuestCart(ctx context.Context, sessionID string, userID uuid.UUID, now time.Time) (*models.AbandonedCart, error)
}

// Redemption identifies who redeemed a code and for which order.
type Redemption struct {
	OrderID string
	Email   string
	UserID  *uuid.UUID
	At      time.Time
}

// DiscountStore persists discount codes and answers order-history questions.
type DiscountStore interface {
	FindCode(ctx context.Context, code string) (*models.DiscountCode, error)
	// RedeemCode locks the code, runs check against the locked row and, when
	// it passes, records the redemption and recovers the linked cart in the
	// same transaction. The bool reports whether a cart was recovered.
	RedeemCode(ctx context.Context, code string, r Redemption, check func(*models.DiscountCode) error) (*models.DiscountCode, bool, error)
	CreateCode(ctx context.Context, code *models.DiscountCode) error
	ListCodes(ctx context.Context, offset, limit int) ([]models.DiscountCode, int64, error)
	HasPaidOrder(ctx context.Context, email string, userID *uuid.UUID) (bool, error)
}

// RecoveryStats are the raw numbers behind the recovery report.
type RecoveryStats struct {
	Since          time.Time                       `json:"since"`
	StatusCounts   map[models.RecoveryStatus]int64 `json:"status_counts"`
	EmailsSent     int64                           `json:"emails_sent"`
	EmailsFailed   int64                           `json:"emails_failed"`
	Clicks         int64                           `json:"clicks"`
	RecoveredValue decimal.Decimal                 `json:"recovered_value"`
}

// ReportStore aggregates recovery numbers.
type ReportStore interface {
	RecoveryStats(ctx context.Context, since time.Time) (*RecoveryStats, error)
}
