package services

import (
	"context"
	"fmt"
	"time"

	"github.com/bjscha03/Final-Banner-Site-sub004/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrDuplicate is returned when a unique key is already taken.
var ErrDuplicate = errors.New("duplicate record")

// GormStore implements CartStore, DiscountStore and ReportStore on Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a store over an opened database
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

const upsertActiveCartSQL = `
INSERT INTO abandoned_carts (
	user_id, session_id, email, phone, cart_contents, total_value,
	recovery_status, recovery_emails_sent, last_activity_at,
	utm_source, utm_medium, utm_campaign, created_at, updated_at
) VALUES (?, ?, ?, ?, ?, ?, 'active', 0, ?, ?, ?, ?, ?, ?)
ON CONFLICT (%s) WHERE recovery_status = 'active'
DO UPDATE SET
	email = COALESCE(EXCLUDED.email, abandoned_carts.email),
	phone = COALESCE(EXCLUDED.phone, abandoned_carts.phone),
	utm_source = COALESCE(EXCLUDED.utm_source, abandoned_carts.utm_source),
	utm_medium = COALESCE(EXCLUDED.utm_medium, abandoned_carts.utm_medium),
	utm_campaign = COALESCE(EXCLUDED.utm_campaign, abandoned_carts.utm_campaign),
	cart_contents = EXCLUDED.cart_contents,
	total_value = EXCLUDED.total_value,
	last_activity_at = EXCLUDED.last_activity_at,
	updated_at = EXCLUDED.updated_at
RETURNING *`

// UpsertActiveCart writes the identity's active snapshot in one statement.
// The partial unique index on the identity column serializes racing writers.
func (s *GormStore) UpsertActiveCart(ctx context.Context, snap *models.AbandonedCart) (*models.AbandonedCart, error) {
	target := "session_id"
	if snap.UserID != nil {
		target = "user_id"
	}

	var saved models.AbandonedCart
	err := s.db.WithContext(ctx).Raw(
		fmt.Sprintf(upsertActiveCartSQL, target),
		snap.UserID, snap.SessionID, snap.Email, snap.Phone, snap.CartContents, snap.TotalValue,
		snap.LastActivityAt, snap.UTMSource, snap.UTMMedium, snap.UTMCampaign,
		snap.LastActivityAt, snap.LastActivityAt,
	).Scan(&saved).Error
	if err != nil {
		return nil, errors.Wrap(err, "upsert active cart")
	}
	return &saved, nil
}

// MarkAbandoned promotes eligible active carts and returns them.
func (s *GormStore) MarkAbandoned(ctx context.Context, window models.Window, now time.Time) ([]models.AbandonedCart, error) {
	notAfter, after := window.Bounds(now)

	var carts []models.AbandonedCart
	err := s.db.WithContext(ctx).Raw(`
		UPDATE abandoned_carts
		SET recovery_status = ?, abandoned_at = ?, updated_at = ?
		WHERE recovery_status = ?
		AND last_activity_at <= ?
		AND last_activity_at > ?
		AND total_value > 0
		AND email IS NOT NULL AND email <> ''
		RETURNING *`,
		models.RecoveryStatusAbandoned, now, now,
		models.RecoveryStatusActive, notAfter, after,
	).Scan(&carts).Error
	if err != nil {
		return nil, errors.Wrap(err, "mark abandoned")
	}
	return carts, nil
}

// FindReminderCandidates lists abandoned carts whose next reminder is sequence.
func (s *GormStore) FindReminderCandidates(ctx context.Context, sequence int, window models.Window, now time.Time) ([]models.AbandonedCart, error) {
	notAfter, after := window.Bounds(now)

	var carts []models.AbandonedCart
	err := s.db.WithContext(ctx).
		Where("recovery_status = ?", models.RecoveryStatusAbandoned).
		Where("recovery_emails_sent = ?", sequence-1).
		Where("abandoned_at <= ? AND abandoned_at > ?", notAfter, after).
		Where(`NOT EXISTS (
			SELECT 1 FROM cart_recovery_logs l
			WHERE l.abandoned_cart_id = abandoned_carts.id AND l.event_type = ?
		)`, models.EventEmailClicked).
		Order("abandoned_at").
		Find(&carts).Error
	if err != nil {
		return nil, errors.Wrapf(err, "find reminder %d candidates", sequence)
	}
	return carts, nil
}

// ExpireStale expires abandoned carts regardless of how many emails went out.
func (s *GormStore) ExpireStale(ctx context.Context, olderThan time.Duration, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&models.AbandonedCart{}).
		Where("recovery_status = ? AND abandoned_at < ?", models.RecoveryStatusAbandoned, now.Add(-olderThan)).
		Updates(map[string]interface{}{
			"recovery_status": models.RecoveryStatusExpired,
			"updated_at":      now,
		})
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "expire stale carts")
	}
	return res.RowsAffected, nil
}

func (s *GormStore) GetCart(ctx context.Context, id uuid.UUID) (*models.AbandonedCart, error) {
	var cart models.AbandonedCart
	if err := s.db.WithContext(ctx).First(&cart, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &cart, nil
}

// RecordEmailSent increments the counter only while it still equals
// sequence-1, so a duplicate dispatch cannot count twice.
func (s *GormStore) RecordEmailSent(ctx context.Context, id uuid.UUID, sequence int, now time.Time, metadata map[string]interface{}) (bool, error) {
	advanced := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.AbandonedCart{}).
			Where("id = ? AND recovery_status = ? AND recovery_emails_sent = ?", id, models.RecoveryStatusAbandoned, sequence-1).
			Updates(map[string]interface{}{
				"recovery_emails_sent": gorm.Expr("recovery_emails_sent + 1"),
				"last_email_sent_at":   now,
				"updated_at":           now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		advanced = true
		return tx.Create(&models.CartRecoveryLog{
			AbandonedCartID: id,
			EventType:       models.EventEmailSent,
			Metadata:        datatypes.JSONMap(metadata),
			CreatedAt:       now,
		}).Error
	})
	if err != nil {
		return false, errors.Wrap(err, "record email sent")
	}
	return advanced, nil
}

func (s *GormStore) AppendLog(ctx context.Context, entry *models.CartRecoveryLog) error {
	return errors.Wrap(s.db.WithContext(ctx).Create(entry).Error, "append recovery log")
}

func (s *GormStore) ListCarts(ctx context.Context, filter CartFilter) ([]models.AbandonedCart, int64, error) {
	scoped := func() *gorm.DB {
		query := s.db.WithContext(ctx).Model(&models.AbandonedCart{})
		if filter.Status != "" {
			query = query.Where("recovery_status = ?", filter.Status)
		}
		return query
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "count carts")
	}

	var carts []models.AbandonedCart
	err := scoped().Order("updated_at DESC").Offset(filter.Offset).Limit(filter.Limit).Find(&carts).Error
	if err != nil {
		return nil, 0, errors.Wrap(err, "list carts")
	}
	return carts, total, nil
}

func (s *GormStore) ListLogs(ctx context.Context, cartID uuid.UUID) ([]models.CartRecoveryLog, error) {
	var logs []models.CartRecoveryLog
	err := s.db.WithContext(ctx).
		Where("abandoned_cart_id = ?", cartID).
		Order("created_at, id").
		Find(&logs).Error
	return logs, errors.Wrap(err, "list recovery logs")
}

// MergeGuestCart runs in one transaction with both active rows locked. When
// the user has no active cart the guest row is re-keyed to the user instead.
func (s *GormStore) MergeGuestCart(ctx context.Context, sessionID string, userID uuid.UUID, now time.Time) (*models.AbandonedCart, error) {
	var result models.AbandonedCart
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var guest models.AbandonedCart
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("session_id = ? AND recovery_status = ?", sessionID, models.RecoveryStatusActive).
			First(&guest).Error
		if err != nil {
			return notFound(err)
		}

		var owned models.AbandonedCart
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ? AND recovery_status = ?", userID, models.RecoveryStatusActive).
			First(&owned).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			guest.UserID = &userID
			guest.SessionID = nil
			guest.LastActivityAt = now
			guest.UpdatedAt = now
			if err := tx.Save(&guest).Error; err != nil {
				return err
			}
			result = guest
			return nil
		}
		if err != nil {
			return err
		}

		if err := owned.Absorb(&guest, now); err != nil {
			return err
		}
		if err := tx.Delete(&guest).Error; err != nil {
			return err
		}
		if err := tx.Save(&owned).Error; err != nil {
			return err
		}
		result = owned
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, errors.Wrap(err, "merge guest cart")
	}
	return &result, nil
}

func (s *GormStore) FindCode(ctx context.Context, code string) (*models.DiscountCode, error) {
	var dc models.DiscountCode
	if err := s.db.WithContext(ctx).Where("code = ?", models.NormalizeCode(code)).First(&dc).Error; err != nil {
		return nil, notFound(err)
	}
	return &dc, nil
}

// RedeemCode holds the code row lock for the whole redemption, so two
// checkouts presenting the same code are serialized.
func (s *GormStore) RedeemCode(ctx context.Context, code string, r Redemption, check func(*models.DiscountCode) error) (*models.DiscountCode, bool, error) {
	var (
		dc        models.DiscountCode
		recovered bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("code = ?", models.NormalizeCode(code)).
			First(&dc).Error
		if err != nil {
			return notFound(err)
		}
		if err := check(&dc); err != nil {
			return err
		}

		email := models.NormalizeEmail(r.Email)
		err = tx.Exec(`
			UPDATE discount_codes
			SET used = TRUE,
				used_at = ?,
				order_id = NULLIF(?, ''),
				used_by_email = CASE WHEN ? = '' THEN used_by_email ELSE array_append(used_by_email, ?) END,
				used_by_user_id = COALESCE(used_by_user_id, ?),
				use_count = use_count + 1,
				updated_at = ?
			WHERE id = ?`,
			r.At, r.OrderID, email, email, r.UserID, r.At, dc.ID,
		).Error
		if err != nil {
			return err
		}
		dc.MarkRedeemed(r.OrderID, email, r.UserID, r.At)

		if dc.CartID == nil {
			return nil
		}
		var cart models.AbandonedCart
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", *dc.CartID).
			First(&cart).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if !cart.RecoveryStatus.CanTransitionTo(models.RecoveryStatusRecovered) {
			return nil
		}
		err = tx.Model(&cart).Updates(map[string]interface{}{
			"recovery_status": models.RecoveryStatusRecovered,
			"recovered_at":    r.At,
			"updated_at":      r.At,
		}).Error
		if err != nil {
			return err
		}
		recovered = true
		return tx.Create(&models.CartRecoveryLog{
			AbandonedCartID: *dc.CartID,
			EventType:       models.EventCartRecovered,
			Metadata: datatypes.JSONMap{
				"discount_code": dc.Code,
				"order_id":      r.OrderID,
			},
			CreatedAt: r.At,
		}).Error
	})
	if err != nil {
		return nil, false, err
	}
	return &dc, recovered, nil
}

func (s *GormStore) CreateCode(ctx context.Context, code *models.DiscountCode) error {
	err := s.db.WithContext(ctx).Create(code).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return errors.Wrap(err, "create discount code")
}

func (s *GormStore) ListCodes(ctx context.Context, offset, limit int) ([]models.DiscountCode, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.DiscountCode{}).Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "count discount codes")
	}
	var codes []models.DiscountCode
	err := s.db.WithContext(ctx).Order("created_at DESC").Offset(offset).Limit(limit).Find(&codes).Error
	if err != nil {
		return nil, 0, errors.Wrap(err, "list discount codes")
	}
	return codes, total, nil
}

// HasPaidOrder reports whether the email or user already completed a paid order.
func (s *GormStore) HasPaidOrder(ctx context.Context, email string, userID *uuid.UUID) (bool, error) {
	email = models.NormalizeEmail(email)
	if email == "" && userID == nil {
		return false, nil
	}

	identity := s.db.Where("1 = 0")
	if email != "" {
		identity = identity.Or("lower(email) = ?", email)
	}
	if userID != nil {
		identity = identity.Or("user_id = ?", *userID)
	}

	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("status = ?", models.OrderStatusPaid).
		Where(identity).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "check paid orders")
	}
	return count > 0, nil
}

// RecoveryStats aggregates carts created since the given time.
func (s *GormStore) RecoveryStats(ctx context.Context, since time.Time) (*RecoveryStats, error) {
	db := s.db.WithContext(ctx)
	stats := &RecoveryStats{
		Since:        since,
		StatusCounts: make(map[models.RecoveryStatus]int64),
	}

	var byStatus []struct {
		RecoveryStatus models.RecoveryStatus
		Count          int64
	}
	err := db.Model(&models.AbandonedCart{}).
		Select("recovery_status, COUNT(*) AS count").
		Where("created_at >= ?", since).
		Group("recovery_status").
		Scan(&byStatus).Error
	if err != nil {
		return nil, errors.Wrap(err, "count carts by status")
	}
	for _, row := range byStatus {
		stats.StatusCounts[row.RecoveryStatus] = row.Count
	}

	var recovered decimal.Decimal
	err = db.Model(&models.AbandonedCart{}).
		Select("COALESCE(SUM(total_value), 0)").
		Where("created_at >= ? AND recovery_status = ?", since, models.RecoveryStatusRecovered).
		Row().Scan(&recovered)
	if err != nil {
		return nil, errors.Wrap(err, "sum recovered value")
	}
	stats.RecoveredValue = recovered

	var byEvent []struct {
		EventType string
		Count     int64
	}
	err = db.Table("cart_recovery_logs AS l").
		Select("l.event_type, COUNT(*) AS count").
		Joins("JOIN abandoned_carts c ON c.id = l.abandoned_cart_id").
		Where("c.created_at >= ?", since).
		Group("l.event_type").
		Scan(&byEvent).Error
	if err != nil {
		return nil, errors.Wrap(err, "count recovery events")
	}
	for _, row := range byEvent {
		switch row.EventType {
		case models.EventEmailSent:
			stats.EmailsSent = row.Count
		case models.EventEmailFailed:
			stats.EmailsFailed = row.Count
		case models.EventEmailClicked:
			stats.Clicks = row.Count
		}
	}
	return stats, nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
