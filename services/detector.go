package services

import (
	"context"
	"strconv"
	"time"

	"github.com/bjscha03/Final-Banner-Site-sub004/models"
	"github.com/bjscha03/Final-Banner-Site-sub004/utils"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Dispatcher hands a reminder to the email sender.
type Dispatcher interface {
	Dispatch(ctx context.Context, cartID uuid.UUID, sequence int) error
}

// SweepResult summarises one detector run.
type SweepResult struct {
	Success        bool      `json:"success"`
	NewlyAbandoned int       `json:"newlyAbandoned"`
	Email2Sent     int       `json:"email2Sent"`
	Email3Sent     int       `json:"email3Sent"`
	Expired        int64     `json:"expired"`
	Timestamp      time.Time `json:"timestamp"`
}

// Detector advances carts through the recovery state machine.
type Detector struct {
	store      CartStore
	dispatcher Dispatcher
	policy     models.RecoveryPolicy
}

func NewDetector(store CartStore, dispatcher Dispatcher, policy models.RecoveryPolicy) *Detector {
	return &Detector{store: store, dispatcher: dispatcher, policy: policy}
}

// Run executes the four sweep steps in order: promote idle carts and send
// the first reminder, send the second and third reminders, then expire.
// A failing step is logged and the remaining steps still run; the first
// error is returned together with the partial counts.
func (d *Detector) Run(ctx context.Context, now time.Time) (*SweepResult, error) {
	ctx, span := tracer.Start(ctx, "detector.Run")
	defer span.End()

	start := time.Now()
	defer func() { sweepDuration.Observe(time.Since(start).Seconds()) }()

	result := &SweepResult{Timestamp: now}
	var firstErr error
	fail := func(step string, err error) {
		utils.LogError("Abandoned cart sweep step %s failed: %v", step, err)
		span.RecordError(err)
		if firstErr == nil {
			firstErr = utils.WrapError(err, step)
		}
	}

	abandoned, err := d.store.MarkAbandoned(ctx, d.policy.Abandonment, now)
	if err != nil {
		fail("mark abandoned", err)
	} else {
		result.NewlyAbandoned = len(abandoned)
		cartTransitions.WithLabelValues(string(models.RecoveryStatusAbandoned)).Add(float64(len(abandoned)))
		for i := range abandoned {
			d.dispatch(ctx, abandoned[i].ID, 1)
		}
	}

	for _, sequence := range []int{2, 3} {
		sent, err := d.sendReminders(ctx, sequence, now)
		if err != nil {
			fail("reminder "+strconv.Itoa(sequence), err)
		}
		if sequence == 2 {
			result.Email2Sent = sent
		} else {
			result.Email3Sent = sent
		}
	}

	expired, err := d.ExpireStale(ctx, now)
	if err != nil {
		fail("expire", err)
	}
	result.Expired = expired

	result.Success = firstErr == nil
	span.SetAttributes(
		attribute.Int("sweep.newly_abandoned", result.NewlyAbandoned),
		attribute.Int("sweep.email2_sent", result.Email2Sent),
		attribute.Int("sweep.email3_sent", result.Email3Sent),
		attribute.Int64("sweep.expired", result.Expired),
	)
	if firstErr != nil {
		span.SetStatus(codes.Error, firstErr.Error())
	}

	utils.LogInfo("Abandoned cart sweep: newly_abandoned=%d email2=%d email3=%d expired=%d",
		result.NewlyAbandoned, result.Email2Sent, result.Email3Sent, result.Expired)
	return result, firstErr
}

// ExpireStale moves abandoned carts past the expiry age to expired in one statement.
func (d *Detector) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	n, err := d.store.ExpireStale(ctx, d.policy.ExpireAfter, now)
	if err != nil {
		return 0, err
	}
	cartTransitions.WithLabelValues(string(models.RecoveryStatusExpired)).Add(float64(n))
	return n, nil
}

func (d *Detector) sendReminders(ctx context.Context, sequence int, now time.Time) (int, error) {
	window, _ := d.policy.ReminderWindow(sequence)
	carts, err := d.store.FindReminderCandidates(ctx, sequence, window, now)
	if err != nil {
		return 0, err
	}

	sent := 0
	for i := range carts {
		if !d.policy.ReminderDue(&carts[i], sequence, now, false) {
			utils.LogWarn("Skipping cart %s: reminder %d is not due", carts[i].ID, sequence)
			continue
		}
		if d.dispatch(ctx, carts[i].ID, sequence) {
			sent++
		}
	}
	return sent, nil
}

// dispatch never fails the sweep; the cart keeps its state and the next
// run re-evaluates it.
func (d *Detector) dispatch(ctx context.Context, cartID uuid.UUID, sequence int) bool {
	label := strconv.Itoa(sequence)
	if err := d.dispatcher.Dispatch(ctx, cartID, sequence); err != nil {
		reminderDispatches.WithLabelValues(label, "failed").Inc()
		utils.LogError("Failed to dispatch reminder %d for cart %s: %v", sequence, cartID, err)
		return false
	}
	reminderDispatches.WithLabelValues(label, "sent").Inc()
	utils.LogDebug("Dispatched reminder %d for cart %s", sequence, cartID)
	return true
}
