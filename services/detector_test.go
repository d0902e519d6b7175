package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bjscha03/Final-Banner-Site-sub004/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dispatchCall struct {
	CartID   uuid.UUID
	Sequence int
}

type recordingDispatcher struct {
	mu    sync.Mutex
	calls []dispatchCall
	fail  map[uuid.UUID]error
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, cartID uuid.UUID, sequence int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, dispatchCall{CartID: cartID, Sequence: sequence})
	return d.fail[cartID]
}

func (d *recordingDispatcher) sequencesFor(id uuid.UUID) []int {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []int
	for _, c := range d.calls {
		if c.CartID == id {
			out = append(out, c.Sequence)
		}
	}
	return out
}

func seedActive(store *memoryStore, idle time.Duration) *models.AbandonedCart {
	email := "shopper@example.com"
	return store.put(&models.AbandonedCart{
		Email:          &email,
		TotalValue:     decimal.RequireFromString("45.00"),
		RecoveryStatus: models.RecoveryStatusActive,
		LastActivityAt: testNow.Add(-idle),
		CreatedAt:      testNow.Add(-idle),
	})
}

func seedAbandoned(store *memoryStore, age time.Duration, sent int) *models.AbandonedCart {
	c := seedActive(store, age+2*time.Hour)
	at := testNow.Add(-age)
	c.RecoveryStatus = models.RecoveryStatusAbandoned
	c.AbandonedAt = &at
	c.RecoveryEmailsSent = sent
	return c
}

func TestDetectorRun_PromotesIdleCartsAndSendsFirstReminder(t *testing.T) {
	store := newMemoryStore()
	dispatcher := &recordingDispatcher{}
	detector := NewDetector(store, dispatcher, models.DefaultRecoveryPolicy())

	idle := seedActive(store, 61*time.Minute)
	fresh := seedActive(store, 59*time.Minute)

	result, err := detector.Run(context.Background(), testNow)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.NewlyAbandoned)
	assert.Equal(t, testNow, result.Timestamp)

	promoted := store.cart(idle.ID)
	assert.Equal(t, models.RecoveryStatusAbandoned, promoted.RecoveryStatus)
	require.NotNil(t, promoted.AbandonedAt)
	assert.Equal(t, testNow, *promoted.AbandonedAt)
	assert.Equal(t, 0, promoted.RecoveryEmailsSent, "only the reminder sender advances the counter")
	assert.Equal(t, []int{1}, dispatcher.sequencesFor(idle.ID))

	assert.Equal(t, models.RecoveryStatusActive, store.cart(fresh.ID).RecoveryStatus)
	assert.Empty(t, dispatcher.sequencesFor(fresh.ID))
}

func TestDetectorRun_SkipsEmptyAndContactlessCarts(t *testing.T) {
	store := newMemoryStore()
	detector := NewDetector(store, &recordingDispatcher{}, models.DefaultRecoveryPolicy())

	empty := seedActive(store, 2*time.Hour)
	empty.TotalValue = decimal.Zero
	anonymous := seedActive(store, 2*time.Hour)
	anonymous.Email = nil

	result, err := detector.Run(context.Background(), testNow)
	require.NoError(t, err)
	assert.Equal(t, 0, result.NewlyAbandoned)
	assert.Equal(t, models.RecoveryStatusActive, store.cart(empty.ID).RecoveryStatus)
	assert.Equal(t, models.RecoveryStatusActive, store.cart(anonymous.ID).RecoveryStatus)
}

func TestDetectorRun_DispatchFailureKeepsCartAbandoned(t *testing.T) {
	store := newMemoryStore()
	failing := seedActive(store, 2*time.Hour)
	healthy := seedActive(store, 2*time.Hour)
	dispatcher := &recordingDispatcher{fail: map[uuid.UUID]error{failing.ID: errors.New("smtp down")}}
	detector := NewDetector(store, dispatcher, models.DefaultRecoveryPolicy())

	result, err := detector.Run(context.Background(), testNow)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 2, result.NewlyAbandoned)
	assert.Equal(t, models.RecoveryStatusAbandoned, store.cart(failing.ID).RecoveryStatus)
	assert.Equal(t, []int{1}, dispatcher.sequencesFor(healthy.ID))
}

func TestDetectorRun_FollowUpReminders(t *testing.T) {
	store := newMemoryStore()
	dispatcher := &recordingDispatcher{}
	detector := NewDetector(store, dispatcher, models.DefaultRecoveryPolicy())

	dueSecond := seedAbandoned(store, 30*time.Hour, 1)
	tooEarly := seedAbandoned(store, 23*time.Hour, 1)
	clicked := seedAbandoned(store, 30*time.Hour, 1)
	dueThird := seedAbandoned(store, 80*time.Hour, 2)
	missedSecond := seedAbandoned(store, 80*time.Hour, 1)
	require.NoError(t, store.AppendLog(context.Background(), &models.CartRecoveryLog{
		AbandonedCartID: clicked.ID,
		EventType:       models.EventEmailClicked,
	}))

	result, err := detector.Run(context.Background(), testNow)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Email2Sent)
	assert.Equal(t, 1, result.Email3Sent)
	assert.Equal(t, []int{2}, dispatcher.sequencesFor(dueSecond.ID))
	assert.Equal(t, []int{3}, dispatcher.sequencesFor(dueThird.ID))
	assert.Empty(t, dispatcher.sequencesFor(tooEarly.ID))
	assert.Empty(t, dispatcher.sequencesFor(clicked.ID))
	assert.Empty(t, dispatcher.sequencesFor(missedSecond.ID))
}

func TestDetectorRun_ExpiresRegardlessOfEmailCount(t *testing.T) {
	store := newMemoryStore()
	detector := NewDetector(store, &recordingDispatcher{}, models.DefaultRecoveryPolicy())

	var stale []*models.AbandonedCart
	for sent := 0; sent <= models.MaxRecoveryEmails; sent++ {
		stale = append(stale, seedAbandoned(store, 97*time.Hour, sent))
	}
	young := seedAbandoned(store, 90*time.Hour, 3)

	result, err := detector.Run(context.Background(), testNow)
	require.NoError(t, err)

	assert.Equal(t, int64(len(stale)), result.Expired)
	for _, c := range stale {
		assert.Equal(t, models.RecoveryStatusExpired, store.cart(c.ID).RecoveryStatus)
	}
	assert.Equal(t, models.RecoveryStatusAbandoned, store.cart(young.ID).RecoveryStatus)
}

func TestDetectorRun_FailedStepDoesNotStopLaterSteps(t *testing.T) {
	store := newMemoryStore()
	store.failMarkAbandoned = errors.New("connection reset")
	dispatcher := &recordingDispatcher{}
	detector := NewDetector(store, dispatcher, models.DefaultRecoveryPolicy())

	dueSecond := seedAbandoned(store, 30*time.Hour, 1)
	stale := seedAbandoned(store, 100*time.Hour, 3)

	result, err := detector.Run(context.Background(), testNow)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	require.NotNil(t, result)
	assert.False(t, result.Success)
	assert.Equal(t, 1, result.Email2Sent)
	assert.Equal(t, int64(1), result.Expired)
	assert.Equal(t, []int{2}, dispatcher.sequencesFor(dueSecond.ID))
	assert.Equal(t, models.RecoveryStatusExpired, store.cart(stale.ID).RecoveryStatus)
}

func TestDetectorRun_ReturnsFirstError(t *testing.T) {
	store := newMemoryStore()
	store.failCandidates[2] = errors.New("first")
	store.failExpire = errors.New("second")
	detector := NewDetector(store, &recordingDispatcher{}, models.DefaultRecoveryPolicy())

	_, err := detector.Run(context.Background(), testNow)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "first")
	assert.NotContains(t, err.Error(), "second")
}

type looseCandidateStore struct {
	*memoryStore
}

// FindReminderCandidates returns every abandoned cart, ignoring the window.
func (s looseCandidateStore) FindReminderCandidates(ctx context.Context, sequence int, window models.Window, now time.Time) ([]models.AbandonedCart, error) {
	var out []models.AbandonedCart
	for _, id := range s.order {
		if c := s.carts[id]; c.RecoveryStatus == models.RecoveryStatusAbandoned {
			out = append(out, *c)
		}
	}
	return out, nil
}

func TestDetectorRun_SkipsCandidatesOutsideTheirWindow(t *testing.T) {
	store := newMemoryStore()
	dispatcher := &recordingDispatcher{}
	detector := NewDetector(looseCandidateStore{store}, dispatcher, models.DefaultRecoveryPolicy())

	due := seedAbandoned(store, 30*time.Hour, 1)
	early := seedAbandoned(store, 10*time.Hour, 1)
	wrongCount := seedAbandoned(store, 80*time.Hour, 1)

	result, err := detector.Run(context.Background(), testNow)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Email2Sent)
	assert.Zero(t, result.Email3Sent)
	assert.Equal(t, []int{2}, dispatcher.sequencesFor(due.ID))
	assert.Empty(t, dispatcher.sequencesFor(early.ID))
	assert.Empty(t, dispatcher.sequencesFor(wrongCount.ID))
}
