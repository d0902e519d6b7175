package services

import (
	"context"
	"strings"
	"time"

	"github.com/bjscha03/Final-Banner-Site-sub004/models"
	"github.com/bjscha03/Final-Banner-Site-sub004/utils"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type ApplyInput struct {
	Code    string `json:"code"`
	OrderID string `json:"orderId"`
	UserID  string `json:"userId"`
	Email   string `json:"email"`
}

type ApplyResult struct {
	Success             bool   `json:"success"`
	Code                string `json:"code"`
	DiscountPercentage  *int   `json:"discountPercentage"`
	DiscountAmountCents *int64 `json:"discountAmountCents"`
}

type ValidateInput struct {
	Code   string `json:"code"`
	Email  string `json:"email"`
	UserID string `json:"userId"`
}

type ValidateResult struct {
	Valid    bool             `json:"valid"`
	Discount *models.Discount `json:"discount,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// CreateCodeInput describes a code created by an admin or by the reminder sequence.
type CreateCodeInput struct {
	Code                string     `json:"code"`
	DiscountPercentage  *int       `json:"discount_percentage"`
	DiscountAmountCents *int64     `json:"discount_amount_cents"`
	ExpiresAt           *time.Time `json:"expires_at"`
	SingleUse           *bool      `json:"single_use"`
	MaxTotalUses        *int       `json:"max_total_uses"`
	CartID              *uuid.UUID `json:"cart_id"`
}

// DiscountGuard validates and redeems discount codes.
type DiscountGuard struct {
	store DiscountStore
	now   func() time.Time
}

func NewDiscountGuard(store DiscountStore) *DiscountGuard {
	return &DiscountGuard{store: store, now: time.Now}
}

// Apply redeems code for an order. Redemption and the recovery of the cart
// the code was issued for commit together.
func (g *DiscountGuard) Apply(ctx context.Context, in ApplyInput) (*ApplyResult, error) {
	code := models.NormalizeCode(in.Code)
	if code == "" {
		return nil, utils.BadRequestError(utils.ErrCodeRequired, nil)
	}
	if strings.TrimSpace(in.OrderID) == "" {
		return nil, utils.BadRequestError(utils.ErrOrderRequired, nil)
	}
	userID, err := parseOptionalUserID(in.UserID)
	if err != nil {
		return nil, err
	}

	if code == models.NewCustomerCode {
		if err := g.checkFirstOrder(ctx, in.Email, userID); err != nil {
			discountRedemptions.WithLabelValues("rejected").Inc()
			return nil, err
		}
		discountRedemptions.WithLabelValues("new_customer").Inc()
		d := models.NewCustomerDiscount()
		return &ApplyResult{Success: true, Code: d.Code, DiscountPercentage: d.DiscountPercentage}, nil
	}

	now := g.now().UTC()
	dc, recovered, err := g.store.RedeemCode(ctx, code, Redemption{
		OrderID: strings.TrimSpace(in.OrderID),
		Email:   in.Email,
		UserID:  userID,
		At:      now,
	}, func(dc *models.DiscountCode) error {
		return checkRedeemable(dc, in.Email, userID, now)
	})
	if err != nil {
		discountRedemptions.WithLabelValues("rejected").Inc()
		return nil, codeError(err, "Failed to apply discount code")
	}

	discountRedemptions.WithLabelValues("applied").Inc()
	if recovered {
		cartTransitions.WithLabelValues(string(models.RecoveryStatusRecovered)).Inc()
		utils.LogInfo("Cart %s recovered by order %s with code %s", dc.CartID, in.OrderID, dc.Code)
	}
	utils.LogInfo("Discount code %s applied to order %s", dc.Code, in.OrderID)

	return &ApplyResult{
		Success:             true,
		Code:                dc.Code,
		DiscountPercentage:  dc.DiscountPercentage,
		DiscountAmountCents: dc.DiscountAmountCents,
	}, nil
}

// Validate applies the same rules as Apply without writing anything.
func (g *DiscountGuard) Validate(ctx context.Context, in ValidateInput) (*ValidateResult, error) {
	code := models.NormalizeCode(in.Code)
	if code == "" {
		return nil, utils.BadRequestError(utils.ErrCodeRequired, nil)
	}
	userID, err := parseOptionalUserID(in.UserID)
	if err != nil {
		return nil, err
	}

	if code == models.NewCustomerCode {
		if err := g.checkFirstOrder(ctx, in.Email, userID); err != nil {
			return invalid(err)
		}
		d := models.NewCustomerDiscount()
		return &ValidateResult{Valid: true, Discount: &d}, nil
	}

	dc, err := g.store.FindCode(ctx, code)
	if err != nil {
		return invalid(codeError(err, "Failed to validate discount code"))
	}
	if err := checkRedeemable(dc, in.Email, userID, g.now().UTC()); err != nil {
		return invalid(err)
	}
	view := dc.View()
	return &ValidateResult{Valid: true, Discount: &view}, nil
}

// CreateCode stores a new code after normalising and validating it.
func (g *DiscountGuard) CreateCode(ctx context.Context, in CreateCodeInput) (*models.DiscountCode, error) {
	dc := &models.DiscountCode{
		Code:                models.NormalizeCode(in.Code),
		DiscountPercentage:  in.DiscountPercentage,
		DiscountAmountCents: in.DiscountAmountCents,
		ExpiresAt:           in.ExpiresAt,
		SingleUse:           true,
		MaxTotalUses:        in.MaxTotalUses,
		CartID:              in.CartID,
		UsedByEmail:         []string{},
	}
	if in.SingleUse != nil {
		dc.SingleUse = *in.SingleUse
	}
	if dc.Code == models.NewCustomerCode {
		return nil, utils.BadRequestError("NEW20 is reserved", nil)
	}
	if err := dc.Validate(); err != nil {
		return nil, utils.BadRequestError(err.Error(), err)
	}

	if err := g.store.CreateCode(ctx, dc); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, utils.ConflictError("Discount code already exists", err)
		}
		return nil, utils.InternalError("Failed to create discount code", err)
	}
	utils.LogInfo("Created discount code %s", dc.Code)
	return dc, nil
}

// IssueRecoveryCode mints a single-use percentage code tied to an abandoned cart.
func (g *DiscountGuard) IssueRecoveryCode(ctx context.Context, cartID uuid.UUID, percentage int, validFor time.Duration) (*models.DiscountCode, error) {
	expires := g.now().UTC().Add(validFor)
	maxUses := 1
	return g.CreateCode(ctx, CreateCodeInput{
		Code:               "COMEBACK-" + strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8]),
		DiscountPercentage: &percentage,
		ExpiresAt:          &expires,
		MaxTotalUses:       &maxUses,
		CartID:             &cartID,
	})
}

// ListCodes returns a page of codes, newest first.
func (g *DiscountGuard) ListCodes(ctx context.Context, offset, limit int) ([]models.DiscountCode, int64, error) {
	codes, total, err := g.store.ListCodes(ctx, offset, limit)
	if err != nil {
		return nil, 0, utils.InternalError("Failed to list discount codes", err)
	}
	return codes, total, nil
}

func (g *DiscountGuard) checkFirstOrder(ctx context.Context, email string, userID *uuid.UUID) error {
	paid, err := g.store.HasPaidOrder(ctx, email, userID)
	if err != nil {
		return utils.InternalError("Failed to check order history", err)
	}
	if paid {
		return utils.BadRequestError(utils.ErrNotFirstOrder, nil)
	}
	return nil
}

// checkRedeemable holds the redemption rules shared by Apply and Validate.
func checkRedeemable(dc *models.DiscountCode, email string, userID *uuid.UUID, now time.Time) error {
	if dc.UsedBy(email, userID) {
		return utils.BadRequestError(utils.ErrCodeAlreadyUsed, nil)
	}
	if dc.IsExpired(now) {
		return utils.BadRequestError(utils.ErrCodeExpired, nil)
	}
	if dc.UsageExhausted() {
		return utils.BadRequestError(utils.ErrCodeExhausted, nil)
	}
	return nil
}

func parseOptionalUserID(raw string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	if !utils.IsUUID(raw) {
		return nil, utils.BadRequestError("userId must be a UUID", nil)
	}
	id := uuid.MustParse(raw)
	return &id, nil
}

func codeError(err error, fallback string) error {
	if errors.Is(err, ErrNotFound) {
		return utils.NotFoundError(utils.ErrCodeNotFound, err)
	}
	if utils.GetAppError(err) != nil {
		return err
	}
	return utils.InternalError(fallback, err)
}

func invalid(err error) (*ValidateResult, error) {
	if utils.StatusOf(err) >= 500 {
		return nil, err
	}
	return &ValidateResult{Valid: false, Error: utils.MessageOf(err)}, nil
}
