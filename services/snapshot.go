package services

import (
	"context"
	"time"

	"github.com/bjscha03/Final-Banner-Site-sub004/models"
	"github.com/bjscha03/Final-Banner-Site-sub004/utils"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Snapshot write outcomes
const (
	SnapshotSaved   = "saved"
	SnapshotSkipped = "skipped"
)

// SnapshotMetadata is the attribution captured with a snapshot.
type SnapshotMetadata struct {
	UTMSource   string `json:"utm_source"`
	UTMMedium   string `json:"utm_medium"`
	UTMCampaign string `json:"utm_campaign"`
}

// SnapshotInput is one cart save from the storefront.
type SnapshotInput struct {
	UserID    string            `json:"userId"`
	SessionID string            `json:"sessionId"`
	Email     string            `json:"email"`
	Phone     string            `json:"phone"`
	CartItems []models.CartItem `json:"cartItems"`
	Metadata  *SnapshotMetadata `json:"metadata"`
}

type SnapshotResult struct {
	Success bool   `json:"success"`
	CartID  string `json:"cartId,omitempty"`
	Status  string `json:"status"`
}

// SnapshotWriter records the shopper's cart as the identity's active snapshot.
type SnapshotWriter struct {
	store CartStore
	now   func() time.Time
}

func NewSnapshotWriter(store CartStore) *SnapshotWriter {
	return &SnapshotWriter{store: store, now: time.Now}
}

// Save upserts the active snapshot. A userId that is present but not a UUID
// is not an error: nothing is written and the result is marked skipped.
func (w *SnapshotWriter) Save(ctx context.Context, in SnapshotInput) (*SnapshotResult, error) {
	if in.UserID == "" && in.SessionID == "" {
		return nil, utils.BadRequestError(utils.ErrIdentityRequired, nil)
	}

	email := models.NormalizeEmail(in.Email)
	if email != "" && !utils.ValidateEmail(email) {
		utils.LogInfo("Dropping malformed email %q from cart snapshot", email)
		email = ""
	}

	snap := &models.AbandonedCart{
		Email:          utils.StringPtr(email),
		Phone:          utils.StringPtr(in.Phone),
		RecoveryStatus: models.RecoveryStatusActive,
		LastActivityAt: w.now().UTC(),
	}

	if in.UserID != "" {
		if !utils.IsUUID(in.UserID) {
			utils.LogInfo("Skipping cart snapshot for malformed user id %q", in.UserID)
			snapshotWrites.WithLabelValues(SnapshotSkipped).Inc()
			return &SnapshotResult{Success: true, Status: SnapshotSkipped}, nil
		}
		id := uuid.MustParse(in.UserID)
		snap.UserID = &id
	} else {
		snap.SessionID = utils.StringPtr(in.SessionID)
	}

	if in.Metadata != nil {
		snap.UTMSource = utils.StringPtr(in.Metadata.UTMSource)
		snap.UTMMedium = utils.StringPtr(in.Metadata.UTMMedium)
		snap.UTMCampaign = utils.StringPtr(in.Metadata.UTMCampaign)
	}

	if err := snap.SetItems(in.CartItems); err != nil {
		return nil, utils.BadRequestError("Invalid cart items", err)
	}

	saved, err := w.store.UpsertActiveCart(ctx, snap)
	if err != nil {
		snapshotWrites.WithLabelValues("error").Inc()
		return nil, utils.InternalError("Failed to save cart snapshot", err)
	}

	snapshotWrites.WithLabelValues(SnapshotSaved).Inc()
	utils.LogDebug("Saved cart snapshot %s total=%s", saved.ID, saved.TotalValue.StringFixed(2))
	return &SnapshotResult{Success: true, CartID: saved.ID.String(), Status: SnapshotSaved}, nil
}

// MergeGuestCart moves a guest's active cart onto the user after login.
func (w *SnapshotWriter) MergeGuestCart(ctx context.Context, sessionID, userID string) (*models.AbandonedCart, error) {
	if sessionID == "" || userID == "" {
		return nil, utils.BadRequestError("sessionId and userId are required", nil)
	}
	if !utils.IsUUID(userID) {
		return nil, utils.BadRequestError("userId must be a UUID", nil)
	}

	cart, err := w.store.MergeGuestCart(ctx, sessionID, uuid.MustParse(userID), w.now().UTC())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, utils.NotFoundError("No active guest cart for session", err)
		}
		return nil, utils.InternalError("Failed to merge guest cart", err)
	}
	utils.LogInfo("Merged guest cart for session %s into user %s", sessionID, userID)
	return cart, nil
}
