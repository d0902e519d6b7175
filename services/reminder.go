package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bjscha03/Final-Banner-Site-sub004/models"
	"github.com/bjscha03/Final-Banner-Site-sub004/utils"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/datatypes"
)

// Mailer delivers one HTML email.
type Mailer interface {
	Send(to, subject, htmlBody string) error
}

// CodeIssuer mints the discount code carried by the last reminder.
type CodeIssuer interface {
	IssueRecoveryCode(ctx context.Context, cartID uuid.UUID, percentage int, validFor time.Duration) (*models.DiscountCode, error)
}

type ReminderResult struct {
	Success        bool   `json:"success"`
	CartID         string `json:"cartId"`
	SequenceNumber int    `json:"sequenceNumber"`
	DiscountCode   string `json:"discountCode,omitempty"`
}

// ReminderLinks are the public URLs embedded in reminders.
type ReminderLinks struct {
	PublicURL   string
	FrontendURL string
}

// ReminderSender renders and sends recovery emails and owns the
// recovery_emails_sent counter.
type ReminderSender struct {
	carts  CartStore
	codes  CodeIssuer
	mailer Mailer
	policy models.RecoveryPolicy
	links  ReminderLinks
	now    func() time.Time
}

func NewReminderSender(carts CartStore, codes CodeIssuer, mailer Mailer, policy models.RecoveryPolicy, links ReminderLinks) *ReminderSender {
	return &ReminderSender{
		carts:  carts,
		codes:  codes,
		mailer: mailer,
		policy: policy,
		links:  links,
		now:    time.Now,
	}
}

// Send delivers reminder sequence for the cart. It refuses unless the cart is
// abandoned and exactly sequence-1 reminders went out before.
func (r *ReminderSender) Send(ctx context.Context, cartID uuid.UUID, sequence int) (*ReminderResult, error) {
	if sequence < 1 || sequence > models.MaxRecoveryEmails {
		return nil, utils.BadRequestError(fmt.Sprintf("sequenceNumber must be between 1 and %d", models.MaxRecoveryEmails), nil)
	}

	cart, err := r.carts.GetCart(ctx, cartID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, utils.NotFoundError("Cart not found", err)
		}
		return nil, utils.InternalError("Failed to load cart", err)
	}
	now := r.now().UTC()
	if cart.RecoveryStatus.IsTerminal() || r.policy.ExpiryDue(cart, now) {
		return nil, utils.ConflictError("Cart is no longer recoverable", nil)
	}
	if cart.RecoveryStatus != models.RecoveryStatusAbandoned || cart.RecoveryEmailsSent != sequence-1 {
		return nil, utils.ConflictError(fmt.Sprintf("Cart is not awaiting reminder %d", sequence), nil)
	}
	if !cart.HasEmail() {
		return nil, utils.ConflictError("Cart has no email address", nil)
	}

	view, err := r.buildView(ctx, cart, sequence)
	if err != nil {
		return nil, utils.InternalError("Failed to render reminder", err)
	}
	var body bytes.Buffer
	if err := reminderTemplate.Execute(&body, view); err != nil {
		return nil, utils.InternalError("Failed to render reminder", err)
	}

	label := strconv.Itoa(sequence)
	if err := r.mailer.Send(*cart.Email, view.Subject, body.String()); err != nil {
		reminderDispatches.WithLabelValues(label, "smtp_failed").Inc()
		logErr := r.carts.AppendLog(ctx, &models.CartRecoveryLog{
			AbandonedCartID: cart.ID,
			EventType:       models.EventEmailFailed,
			Metadata:        datatypes.JSONMap{"sequence": sequence, "error": err.Error()},
			CreatedAt:       now,
		})
		if logErr != nil {
			utils.LogError("Failed to log email failure for cart %s: %v", cart.ID, logErr)
		}
		return nil, utils.BadGatewayError("Failed to send reminder email", err)
	}

	metadata := map[string]interface{}{"sequence": sequence}
	if view.DiscountCode != "" {
		metadata["discount_code"] = view.DiscountCode
	}
	advanced, err := r.carts.RecordEmailSent(ctx, cart.ID, sequence, now, metadata)
	if err != nil {
		return nil, utils.InternalError("Failed to record reminder", err)
	}
	if !advanced {
		utils.LogWarn("Reminder %d for cart %s was sent but the counter had already moved", sequence, cart.ID)
	}

	utils.LogInfo("Sent reminder %d for cart %s", sequence, cart.ID)
	return &ReminderResult{
		Success:        true,
		CartID:         cart.ID.String(),
		SequenceNumber: sequence,
		DiscountCode:   view.DiscountCode,
	}, nil
}

// TrackClick logs a reminder click and returns where to send the shopper.
// Unknown carts still redirect to the storefront cart.
func (r *ReminderSender) TrackClick(ctx context.Context, cartID uuid.UUID, sequence int) (string, error) {
	target := r.cartURL(cartID)

	if _, err := r.carts.GetCart(ctx, cartID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return strings.TrimRight(r.links.FrontendURL, "/") + "/cart", nil
		}
		return target, err
	}

	err := r.carts.AppendLog(ctx, &models.CartRecoveryLog{
		AbandonedCartID: cartID,
		EventType:       models.EventEmailClicked,
		Metadata:        datatypes.JSONMap{"sequence": sequence},
		CreatedAt:       r.now().UTC(),
	})
	return target, err
}

func (r *ReminderSender) cartURL(cartID uuid.UUID) string {
	return fmt.Sprintf("%s/cart?recover=%s", strings.TrimRight(r.links.FrontendURL, "/"), url.QueryEscape(cartID.String()))
}

func (r *ReminderSender) trackingURL(cartID uuid.UUID, sequence int) string {
	return fmt.Sprintf("%s/v1/recover/%s?seq=%d", strings.TrimRight(r.links.PublicURL, "/"), cartID, sequence)
}

type reminderItem struct {
	Description string
	Quantity    int
	LineTotal   string
	Thumbnail   string
}

type reminderView struct {
	Subject      string
	Headline     string
	Intro        string
	Items        []reminderItem
	Total        string
	RecoverURL   string
	DiscountCode string
	DiscountPct  int
	ExpiresOn    string
}

var reminderCopy = map[int][3]string{
	1: {"You left something in your cart", "Your banner is waiting", "Your custom banner is saved and ready when you are."},
	2: {"Still thinking about your banner?", "Still thinking it over?", "Your design is still saved. Pick up right where you left off."},
	3: {"Last chance: your banner cart expires soon", "Last chance", "Your saved cart expires soon. Here is a little something to help you finish."},
}

func (r *ReminderSender) buildView(ctx context.Context, cart *models.AbandonedCart, sequence int) (*reminderView, error) {
	items, err := cart.Items()
	if err != nil {
		return nil, err
	}

	text := reminderCopy[sequence]
	view := &reminderView{
		Subject:    text[0],
		Headline:   text[1],
		Intro:      text[2],
		Total:      cart.TotalValue.StringFixed(2),
		RecoverURL: r.trackingURL(cart.ID, sequence),
	}
	for _, item := range items {
		view.Items = append(view.Items, reminderItem{
			Description: fmt.Sprintf("%g\" x %g\" %s banner", item.WidthIn, item.HeightIn, item.Material),
			Quantity:    item.Quantity,
			LineTotal:   fmt.Sprintf("%d.%02d", item.LineTotalCents/100, item.LineTotalCents%100),
			Thumbnail:   item.ThumbnailURL,
		})
	}

	if sequence == r.policy.DiscountSequence && r.codes != nil {
		dc, err := r.codes.IssueRecoveryCode(ctx, cart.ID, r.policy.DiscountPercentage, r.policy.DiscountValidFor)
		if err != nil {
			// the reminder still goes out without a code
			utils.LogError("Failed to issue recovery code for cart %s: %v", cart.ID, err)
		} else {
			view.DiscountCode = dc.Code
			view.DiscountPct = r.policy.DiscountPercentage
			if dc.ExpiresAt != nil {
				view.ExpiresOn = dc.ExpiresAt.Format("January 2, 2006")
			}
		}
	}
	return view, nil
}

var reminderTemplate = template.Must(template.New("reminder").Parse(`
<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
	<h2 style="color: #18448D;">{{.Headline}}</h2>
	<p>{{.Intro}}</p>
	<table style="width: 100%; border-collapse: collapse;">
	{{range .Items}}
		<tr>
			{{if .Thumbnail}}<td><img src="{{.Thumbnail}}" alt="" width="80"></td>{{end}}
			<td>{{.Description}}</td>
			<td>x{{.Quantity}}</td>
			<td style="text-align: right;">${{.LineTotal}}</td>
		</tr>
	{{end}}
	</table>
	<p><strong>Total: ${{.Total}}</strong></p>
	{{if .DiscountCode}}
	<p>Use code <strong style="font-size: 20px; letter-spacing: 2px;">{{.DiscountCode}}</strong>
	for {{.DiscountPct}}% off{{if .ExpiresOn}} before {{.ExpiresOn}}{{end}}.</p>
	{{end}}
	<p><a href="{{.RecoverURL}}" style="background: #FF6A00; color: #fff; padding: 12px 24px; text-decoration: none; border-radius: 4px;">Complete my order</a></p>
</div>
`))
