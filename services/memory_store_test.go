package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bjscha03/Final-Banner-Site-sub004/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// memoryStore is an in-process CartStore, DiscountStore and ReportStore
// that applies the same predicates as the SQL in GormStore.
type memoryStore struct {
	mu     sync.Mutex
	order  []uuid.UUID
	carts  map[uuid.UUID]*models.AbandonedCart
	logs   []models.CartRecoveryLog
	codes  map[string]*models.DiscountCode
	orders []models.Order

	failMarkAbandoned error
	failCandidates    map[int]error
	failExpire        error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		carts:          make(map[uuid.UUID]*models.AbandonedCart),
		codes:          make(map[string]*models.DiscountCode),
		failCandidates: make(map[int]error),
	}
}

func (m *memoryStore) put(c *models.AbandonedCart) *models.AbandonedCart {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if _, ok := m.carts[c.ID]; !ok {
		m.order = append(m.order, c.ID)
	}
	m.carts[c.ID] = c
	return c
}

func (m *memoryStore) cart(id uuid.UUID) models.AbandonedCart {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.carts[id]
}

func (m *memoryStore) eventsFor(id uuid.UUID, event string) []models.CartRecoveryLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.CartRecoveryLog
	for _, l := range m.logs {
		if l.AbandonedCartID == id && l.EventType == event {
			out = append(out, l)
		}
	}
	return out
}

func (m *memoryStore) activeFor(snap *models.AbandonedCart) *models.AbandonedCart {
	for _, id := range m.order {
		c := m.carts[id]
		if c == nil || c.RecoveryStatus != models.RecoveryStatusActive {
			continue
		}
		if snap.UserID != nil && c.UserID != nil && *c.UserID == *snap.UserID {
			return c
		}
		if snap.UserID == nil && snap.SessionID != nil && c.SessionID != nil && *c.SessionID == *snap.SessionID {
			return c
		}
	}
	return nil
}

func (m *memoryStore) clicked(id uuid.UUID) bool {
	for _, l := range m.logs {
		if l.AbandonedCartID == id && l.EventType == models.EventEmailClicked {
			return true
		}
	}
	return false
}

// mergeContact mirrors the upsert's COALESCE: blank incoming values keep
// what is stored.
func mergeContact(stored, incoming *models.AbandonedCart) {
	pick := func(in, cur *string) *string {
		if in != nil && *in != "" {
			return in
		}
		return cur
	}
	stored.Email = pick(incoming.Email, stored.Email)
	stored.Phone = pick(incoming.Phone, stored.Phone)
	stored.UTMSource = pick(incoming.UTMSource, stored.UTMSource)
	stored.UTMMedium = pick(incoming.UTMMedium, stored.UTMMedium)
	stored.UTMCampaign = pick(incoming.UTMCampaign, stored.UTMCampaign)
}

// abandonmentDue mirrors the MarkAbandoned WHERE clause.
func abandonmentDue(c *models.AbandonedCart, window models.Window, now time.Time) bool {
	return c.RecoveryStatus == models.RecoveryStatusActive &&
		c.TotalValue.IsPositive() &&
		c.HasEmail() &&
		window.Contains(now.Sub(c.LastActivityAt))
}

func (m *memoryStore) UpsertActiveCart(ctx context.Context, snap *models.AbandonedCart) (*models.AbandonedCart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing := m.activeFor(snap); existing != nil {
		mergeContact(existing, snap)
		existing.CartContents = snap.CartContents
		existing.TotalValue = snap.TotalValue
		existing.LastActivityAt = snap.LastActivityAt
		existing.UpdatedAt = snap.LastActivityAt
		out := *existing
		return &out, nil
	}

	c := *snap
	c.ID = uuid.New()
	c.CreatedAt = snap.LastActivityAt
	c.UpdatedAt = snap.LastActivityAt
	m.carts[c.ID] = &c
	m.order = append(m.order, c.ID)
	out := c
	return &out, nil
}

func (m *memoryStore) MarkAbandoned(ctx context.Context, window models.Window, now time.Time) ([]models.AbandonedCart, error) {
	if m.failMarkAbandoned != nil {
		return nil, m.failMarkAbandoned
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.AbandonedCart
	for _, id := range m.order {
		c := m.carts[id]
		if c == nil || !abandonmentDue(c, window, now) {
			continue
		}
		at := now
		c.RecoveryStatus = models.RecoveryStatusAbandoned
		c.AbandonedAt = &at
		out = append(out, *c)
	}
	return out, nil
}

func (m *memoryStore) FindReminderCandidates(ctx context.Context, sequence int, window models.Window, now time.Time) ([]models.AbandonedCart, error) {
	if err := m.failCandidates[sequence]; err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	policy := models.RecoveryPolicy{SecondReminder: window, ThirdReminder: window}
	var out []models.AbandonedCart
	for _, id := range m.order {
		c := m.carts[id]
		if c != nil && policy.ReminderDue(c, sequence, now, m.clicked(id)) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *memoryStore) ExpireStale(ctx context.Context, olderThan time.Duration, now time.Time) (int64, error) {
	if m.failExpire != nil {
		return 0, m.failExpire
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	policy := models.RecoveryPolicy{ExpireAfter: olderThan}
	var n int64
	for _, c := range m.carts {
		if policy.ExpiryDue(c, now) {
			c.RecoveryStatus = models.RecoveryStatusExpired
			c.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

func (m *memoryStore) GetCart(ctx context.Context, id uuid.UUID) (*models.AbandonedCart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *c
	return &out, nil
}

func (m *memoryStore) RecordEmailSent(ctx context.Context, id uuid.UUID, sequence int, now time.Time, metadata map[string]interface{}) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[id]
	if !ok || c.RecoveryEmailsSent != sequence-1 {
		return false, nil
	}
	c.RecoveryEmailsSent = sequence
	c.LastEmailSentAt = &now
	m.logs = append(m.logs, models.CartRecoveryLog{
		ID:              uint(len(m.logs) + 1),
		AbandonedCartID: id,
		EventType:       models.EventEmailSent,
		Metadata:        datatypes.JSONMap(metadata),
		CreatedAt:       now,
	})
	return true, nil
}

func (m *memoryStore) AppendLog(ctx context.Context, entry *models.CartRecoveryLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry.ID = uint(len(m.logs) + 1)
	m.logs = append(m.logs, *entry)
	return nil
}

func (m *memoryStore) ListCarts(ctx context.Context, filter CartFilter) ([]models.AbandonedCart, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []models.AbandonedCart
	for _, id := range m.order {
		c := m.carts[id]
		if c != nil && (filter.Status == "" || c.RecoveryStatus == filter.Status) {
			all = append(all, *c)
		}
	}
	total := int64(len(all))
	if filter.Offset >= len(all) {
		return []models.AbandonedCart{}, total, nil
	}
	end := len(all)
	if filter.Limit > 0 && filter.Offset+filter.Limit < end {
		end = filter.Offset + filter.Limit
	}
	return all[filter.Offset:end], total, nil
}

func (m *memoryStore) ListLogs(ctx context.Context, cartID uuid.UUID) ([]models.CartRecoveryLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.CartRecoveryLog
	for _, l := range m.logs {
		if l.AbandonedCartID == cartID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memoryStore) MergeGuestCart(ctx context.Context, sessionID string, userID uuid.UUID, now time.Time) (*models.AbandonedCart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	guest := m.activeFor(&models.AbandonedCart{SessionID: &sessionID})
	if guest == nil {
		return nil, ErrNotFound
	}
	owned := m.activeFor(&models.AbandonedCart{UserID: &userID})
	if owned == nil {
		guest.UserID = &userID
		guest.SessionID = nil
		guest.LastActivityAt = now
		out := *guest
		return &out, nil
	}
	if err := owned.Absorb(guest, now); err != nil {
		return nil, err
	}
	delete(m.carts, guest.ID)
	out := *owned
	return &out, nil
}

func (m *memoryStore) FindCode(ctx context.Context, code string) (*models.DiscountCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	dc, ok := m.codes[models.NormalizeCode(code)]
	if !ok {
		return nil, ErrNotFound
	}
	out := *dc
	return &out, nil
}

func (m *memoryStore) RedeemCode(ctx context.Context, code string, r Redemption, check func(*models.DiscountCode) error) (*models.DiscountCode, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	dc, ok := m.codes[models.NormalizeCode(code)]
	if !ok {
		return nil, false, ErrNotFound
	}
	if err := check(dc); err != nil {
		return nil, false, err
	}
	dc.MarkRedeemed(r.OrderID, r.Email, r.UserID, r.At)

	recovered := false
	if dc.CartID != nil {
		if c, ok := m.carts[*dc.CartID]; ok && c.RecoveryStatus.CanTransitionTo(models.RecoveryStatusRecovered) {
			at := r.At
			c.RecoveryStatus = models.RecoveryStatusRecovered
			c.RecoveredAt = &at
			m.logs = append(m.logs, models.CartRecoveryLog{
				ID:              uint(len(m.logs) + 1),
				AbandonedCartID: c.ID,
				EventType:       models.EventCartRecovered,
				Metadata:        datatypes.JSONMap{"discount_code": dc.Code, "order_id": r.OrderID},
				CreatedAt:       at,
			})
			recovered = true
		}
	}
	out := *dc
	return &out, recovered, nil
}

func (m *memoryStore) CreateCode(ctx context.Context, code *models.DiscountCode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.codes[code.Code]; ok {
		return ErrDuplicate
	}
	code.ID = uuid.New()
	stored := *code
	m.codes[code.Code] = &stored
	return nil
}

func (m *memoryStore) ListCodes(ctx context.Context, offset, limit int) ([]models.DiscountCode, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []models.DiscountCode
	for _, dc := range m.codes {
		all = append(all, *dc)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Code < all[j].Code })
	total := int64(len(all))
	if offset >= len(all) {
		return []models.DiscountCode{}, total, nil
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end], total, nil
}

func (m *memoryStore) HasPaidOrder(ctx context.Context, email string, userID *uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	needle := models.NormalizeEmail(email)
	for _, o := range m.orders {
		if o.Status != models.OrderStatusPaid {
			continue
		}
		if needle != "" && models.NormalizeEmail(o.Email) == needle {
			return true, nil
		}
		if userID != nil && o.UserID != nil && *o.UserID == *userID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryStore) RecoveryStats(ctx context.Context, since time.Time) (*RecoveryStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &RecoveryStats{
		Since:          since,
		StatusCounts:   make(map[models.RecoveryStatus]int64),
		RecoveredValue: decimal.Zero,
	}
	for _, c := range m.carts {
		if c.CreatedAt.Before(since) {
			continue
		}
		stats.StatusCounts[c.RecoveryStatus]++
		if c.RecoveryStatus == models.RecoveryStatusRecovered {
			stats.RecoveredValue = stats.RecoveredValue.Add(c.TotalValue)
		}
	}
	for _, l := range m.logs {
		switch l.EventType {
		case models.EventEmailSent:
			stats.EmailsSent++
		case models.EventEmailFailed:
			stats.EmailsFailed++
		case models.EventEmailClicked:
			stats.Clicks++
		}
	}
	return stats, nil
}
