package models

import (
	"fmt"
	"time"
)

// Window is an age range [From, To) measured from a reference timestamp.
type Window struct {
	From time.Duration `yaml:"from"`
	To   time.Duration `yaml:"to"`
}

// Contains reports whether age falls inside the window.
func (w Window) Contains(age time.Duration) bool {
	return age >= w.From && age < w.To
}

// Bounds converts the window into timestamp bounds relative to now:
// a reference time t is inside the window when after < t <= notAfter.
func (w Window) Bounds(now time.Time) (notAfter, after time.Time) {
	return now.Add(-w.From), now.Add(-w.To)
}

// RecoveryPolicy holds every timing rule of the recovery sequence.
type RecoveryPolicy struct {
	// Inactivity range during which an active cart is promoted to abandoned.
	Abandonment Window `yaml:"abandonment"`
	// Reminder windows measured from abandoned_at.
	SecondReminder Window `yaml:"second_reminder"`
	ThirdReminder  Window `yaml:"third_reminder"`
	// Abandoned carts older than this are expired.
	ExpireAfter time.Duration `yaml:"expire_after"`

	// Reminder that carries a freshly issued code, 0 disables it.
	DiscountSequence   int           `yaml:"discount_sequence"`
	DiscountPercentage int           `yaml:"discount_percentage"`
	DiscountValidFor   time.Duration `yaml:"discount_valid_for"`
}

// DefaultRecoveryPolicy returns the production timing rules.
func DefaultRecoveryPolicy() RecoveryPolicy {
	return RecoveryPolicy{
		Abandonment:        Window{From: time.Hour, To: 72 * time.Hour},
		SecondReminder:     Window{From: 24 * time.Hour, To: 72 * time.Hour},
		ThirdReminder:      Window{From: 72 * time.Hour, To: 96 * time.Hour},
		ExpireAfter:        96 * time.Hour,
		DiscountSequence:   3,
		DiscountPercentage: 10,
		DiscountValidFor:   7 * 24 * time.Hour,
	}
}

// Validate rejects windows that cannot select anything.
func (p RecoveryPolicy) Validate() error {
	windows := map[string]Window{
		"abandonment":     p.Abandonment,
		"second_reminder": p.SecondReminder,
		"third_reminder":  p.ThirdReminder,
	}
	for name, w := range windows {
		if w.From < 0 || w.To <= w.From {
			return fmt.Errorf("%s window must satisfy 0 <= from < to, got %s..%s", name, w.From, w.To)
		}
	}
	if p.ExpireAfter <= 0 {
		return fmt.Errorf("expire_after must be positive")
	}
	if p.DiscountSequence < 0 || p.DiscountSequence > MaxRecoveryEmails {
		return fmt.Errorf("discount_sequence must be between 0 and %d", MaxRecoveryEmails)
	}
	if p.DiscountSequence > 0 && (p.DiscountPercentage <= 0 || p.DiscountPercentage > 100) {
		return fmt.Errorf("discount_percentage must be between 1 and 100")
	}
	return nil
}

// ReminderWindow returns the window for a follow-up reminder (2 or 3).
func (p RecoveryPolicy) ReminderWindow(sequence int) (Window, bool) {
	switch sequence {
	case 2:
		return p.SecondReminder, true
	case 3:
		return p.ThirdReminder, true
	}
	return Window{}, false
}

// ReminderDue reports whether follow-up reminder sequence is owed at now.
func (p RecoveryPolicy) ReminderDue(c *AbandonedCart, sequence int, now time.Time, clicked bool) bool {
	w, ok := p.ReminderWindow(sequence)
	if !ok || clicked || c.AbandonedAt == nil {
		return false
	}
	return c.RecoveryStatus == RecoveryStatusAbandoned &&
		c.RecoveryEmailsSent == sequence-1 &&
		w.Contains(now.Sub(*c.AbandonedAt))
}

// ExpiryDue reports whether an abandoned cart has aged out at now.
func (p RecoveryPolicy) ExpiryDue(c *AbandonedCart, now time.Time) bool {
	return c.RecoveryStatus == RecoveryStatusAbandoned &&
		c.AbandonedAt != nil &&
		now.Sub(*c.AbandonedAt) > p.ExpireAfter
}
