package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"STUDYHUB_BACK-END/internal/models"
	"STUDYHUB_BACK-END/internal/repository"
)

// memoryStore is an in-memory stand-in for the Postgres stores used by the services
type memoryStore struct {
	mu sync.Mutex

	profiles      map[uuid.UUID]models.Profile
	settings      map[uuid.UUID]models.CreatorSettings
	accounts      map[uuid.UUID]models.PaymentAccount
	contents      map[uuid.UUID]models.Content
	purchases     map[uuid.UUID]models.Purchase
	balances      map[uuid.UUID]models.CreatorBalance
	payouts       map[uuid.UUID]models.PayoutRequest
	events        map[string]models.PaymentEvent
	notifications []models.Notification

	// failApply makes the next ApplyBalanceDelta fail
	failApply error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		profiles:  map[uuid.UUID]models.Profile{},
		settings:  map[uuid.UUID]models.CreatorSettings{},
		accounts:  map[uuid.UUID]models.PaymentAccount{},
		contents:  map[uuid.UUID]models.Content{},
		purchases: map[uuid.UUID]models.Purchase{},
		balances:  map[uuid.UUID]models.CreatorBalance{},
		payouts:   map[uuid.UUID]models.PayoutRequest{},
		events:    map[string]models.PaymentEvent{},
	}
}

func (m *memoryStore) addProfile(role string, email string) models.Profile {
	p := models.Profile{ID: uuid.New(), Nickname: role + "-" + email, Role: role, Provider: models.ProviderEmail}
	if email != "" {
		p.Email = &email
	}
	m.profiles[p.ID] = p
	return p
}

func (m *memoryStore) addContent(creatorID uuid.UUID, price int64) models.Content {
	c := models.Content{ID: uuid.New(), CreatorID: creatorID, Type: models.ContentMaterial, Title: "Physics summary", Price: price, IsPublished: true}
	m.contents[c.ID] = c
	return c
}

func (m *memoryStore) balance(id uuid.UUID) models.CreatorBalance {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[id]
}

func (m *memoryStore) notificationsFor(id uuid.UUID) []models.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Notification
	for _, n := range m.notifications {
		if n.UserID == id {
			out = append(out, n)
		}
	}
	return out
}

// --- ProfileStore ---

func (m *memoryStore) CreateProfile(_ context.Context, p *models.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	m.profiles[p.ID] = *p
	return nil
}

func (m *memoryStore) GetProfile(_ context.Context, id uuid.UUID) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (m *memoryStore) GetProfileByEmail(_ context.Context, email string) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.profiles {
		if p.Email != nil && *p.Email == email {
			p := p
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memoryStore) UpsertOAuthProfile(_ context.Context, p *models.Profile) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.ID] = *p
	return p, nil
}

func (m *memoryStore) UpdateProfile(_ context.Context, id uuid.UUID, nickname, avatarURL, bio *string) (*models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if nickname != nil {
		p.Nickname = *nickname
	}
	m.profiles[id] = p
	return &p, nil
}

func (m *memoryStore) UpdatePasswordHash(context.Context, uuid.UUID, string) error { return nil }

func (m *memoryStore) SetRole(_ context.Context, id uuid.UUID, role string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.Role = role
	m.profiles[id] = p
	return nil
}

func (m *memoryStore) ListAdminIDs(context.Context) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []uuid.UUID
	for _, p := range m.profiles {
		if p.Role == models.RoleAdmin {
			ids = append(ids, p.ID)
		}
	}
	return ids, nil
}

// --- CreatorStore ---

func (m *memoryStore) GetCreatorSettings(_ context.Context, id uuid.UUID) (*models.CreatorSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.settings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

func (m *memoryStore) UpsertCreatorSettings(_ context.Context, s *models.CreatorSettings) (*models.CreatorSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[s.UserID] = *s
	return s, nil
}

func (m *memoryStore) GetPaymentAccount(_ context.Context, id uuid.UUID) (*models.PaymentAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (m *memoryStore) UpsertPaymentAccount(_ context.Context, a *models.PaymentAccount) (*models.PaymentAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[a.UserID] = *a
	return a, nil
}

// --- ContentStore ---

func (m *memoryStore) CreateContent(_ context.Context, c *models.Content) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = uuid.New()
	m.contents[c.ID] = *c
	return nil
}

func (m *memoryStore) GetContent(_ context.Context, id uuid.UUID) (*models.Content, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contents[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (m *memoryStore) ListContents(context.Context, models.ContentFilter) ([]models.Content, int, error) {
	return nil, 0, nil
}
func (m *memoryStore) UpdateContent(context.Context, *models.Content) error   { return nil }
func (m *memoryStore) DeleteContent(context.Context, uuid.UUID) error         { return nil }
func (m *memoryStore) IncrementViewCount(context.Context, uuid.UUID) error    { return nil }
func (m *memoryStore) CountPurchases(context.Context, uuid.UUID) (int, error) { return 0, nil }

// --- MarketStore ---

func isActive(status string) bool {
	for _, s := range models.ActivePurchaseStatuses {
		if s == status {
			return true
		}
	}
	return false
}

func (m *memoryStore) CreatePurchase(_ context.Context, p *models.Purchase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.purchases {
		if existing.ContentID == p.ContentID && existing.BuyerID == p.BuyerID && isActive(existing.Status) && isActive(p.Status) {
			return repository.ErrConflict
		}
	}
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	m.purchases[p.ID] = *p
	return nil
}

func (m *memoryStore) withTitle(p models.Purchase) *models.Purchase {
	if c, ok := m.contents[p.ContentID]; ok {
		p.ContentTitle = c.Title
	}
	return &p
}

func (m *memoryStore) GetPurchase(_ context.Context, id uuid.UUID) (*models.Purchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.purchases[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return m.withTitle(p), nil
}

func (m *memoryStore) GetPurchaseByOrderID(_ context.Context, orderID string) (*models.Purchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.purchases {
		if p.OrderID == orderID {
			return m.withTitle(p), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memoryStore) FindActivePurchase(_ context.Context, contentID, buyerID uuid.UUID) (*models.Purchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.purchases {
		if p.ContentID == contentID && p.BuyerID == buyerID && isActive(p.Status) {
			return m.withTitle(p), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memoryStore) ListPurchases(_ context.Context, f repository.PurchaseFilter) ([]models.Purchase, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Purchase
	for _, p := range m.purchases {
		if f.BuyerID != nil && p.BuyerID != *f.BuyerID {
			continue
		}
		if f.CreatorID != nil && p.CreatorID != *f.CreatorID {
			continue
		}
		out = append(out, *m.withTitle(p))
	}
	return out, len(out), nil
}

func (m *memoryStore) TransitionPurchase(_ context.Context, id uuid.UUID, c models.StatusChange) (*models.Purchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.purchases[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	allowed := false
	for _, s := range c.From {
		if s == p.Status {
			allowed = true
		}
	}
	if !allowed {
		return nil, repository.ErrNotFound
	}
	p.Status = c.To
	if c.AdminNote != nil {
		p.AdminNote = c.AdminNote
	}
	if c.ActorID != nil {
		p.ConfirmedBy = c.ActorID
	}
	if c.PaymentKey != nil {
		p.PaymentKey = c.PaymentKey
	}
	if c.ConfirmedAt != nil {
		p.ConfirmedAt = c.ConfirmedAt
	}
	if c.RefundedAt != nil {
		p.RefundedAt = c.RefundedAt
	}
	m.purchases[id] = p
	return m.withTitle(p), nil
}

func (m *memoryStore) ListStalePurchases(_ context.Context, status string, before time.Time, _ int) ([]models.Purchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Purchase
	for _, p := range m.purchases {
		if p.Status == status && p.CreatedAt.Before(before) {
			out = append(out, *m.withTitle(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memoryStore) GetBalance(_ context.Context, id uuid.UUID) (*models.CreatorBalance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.balances[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &b, nil
}

func (m *memoryStore) LockBalance(_ context.Context, id uuid.UUID) (*models.CreatorBalance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.balances[id]
	if !ok {
		b = models.CreatorBalance{CreatorID: id}
		m.balances[id] = b
	}
	return &b, nil
}

func (m *memoryStore) ApplyBalanceDelta(_ context.Context, id uuid.UUID, d models.BalanceDelta) (*models.CreatorBalance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failApply != nil {
		err := m.failApply
		m.failApply = nil
		return nil, err
	}
	b := m.balances[id]
	b.CreatorID = id
	b.Available += d.Available
	b.Pending += d.Pending
	b.TotalEarned += d.TotalEarned
	b.TotalWithdrawn += d.TotalWithdrawn
	m.balances[id] = b
	return &b, nil
}

func (m *memoryStore) CreatePayout(_ context.Context, p *models.PayoutRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.payouts {
		if existing.CreatorID == p.CreatorID && existing.Status == models.PayoutPending {
			return repository.ErrConflict
		}
	}
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	m.payouts[p.ID] = *p
	return nil
}

func (m *memoryStore) GetPayout(_ context.Context, id uuid.UUID) (*models.PayoutRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payouts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (m *memoryStore) GetPendingPayout(_ context.Context, creatorID uuid.UUID) (*models.PayoutRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payouts {
		if p.CreatorID == creatorID && p.Status == models.PayoutPending {
			p := p
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memoryStore) ListPayouts(_ context.Context, f repository.PayoutFilter) ([]models.PayoutRequest, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.PayoutRequest
	for _, p := range m.payouts {
		if f.CreatorID != nil && p.CreatorID != *f.CreatorID {
			continue
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		out = append(out, p)
	}
	return out, len(out), nil
}

func (m *memoryStore) DecidePayout(_ context.Context, id uuid.UUID, status string, note *string, actorID uuid.UUID) (*models.PayoutRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payouts[id]
	if !ok || p.Status != models.PayoutPending {
		return nil, repository.ErrNotFound
	}
	now := time.Now()
	p.Status = status
	p.AdminNote = note
	p.ProcessedBy = &actorID
	p.ProcessedAt = &now
	m.payouts[id] = p
	return &p, nil
}

func (m *memoryStore) PaymentEventExists(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.events[id]
	return ok, nil
}

func (m *memoryStore) RecordPaymentEvent(_ context.Context, e *models.PaymentEvent) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[e.ID]; ok {
		return false, nil
	}
	m.events[e.ID] = *e
	return true, nil
}

func (m *memoryStore) MarketStats(context.Context) (*models.MarketStats, error) {
	return &models.MarketStats{PurchasesByStatus: map[string]int64{}}, nil
}

// WithinTx restores purchases, balances and payouts when fn fails
func (m *memoryStore) WithinTx(_ context.Context, fn func(repository.MarketStore) error) error {
	m.mu.Lock()
	purchases := make(map[uuid.UUID]models.Purchase, len(m.purchases))
	for k, v := range m.purchases {
		purchases[k] = v
	}
	balances := make(map[uuid.UUID]models.CreatorBalance, len(m.balances))
	for k, v := range m.balances {
		balances[k] = v
	}
	payouts := make(map[uuid.UUID]models.PayoutRequest, len(m.payouts))
	for k, v := range m.payouts {
		payouts[k] = v
	}
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.purchases, m.balances, m.payouts = purchases, balances, payouts
		m.mu.Unlock()
		return err
	}
	return nil
}

// --- NotificationStore ---

func (m *memoryStore) CreateNotification(_ context.Context, n *models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n.ID = uuid.New()
	n.CreatedAt = time.Now()
	m.notifications = append(m.notifications, *n)
	return nil
}

func (m *memoryStore) ListNotifications(context.Context, uuid.UUID, models.NotificationFilter) ([]models.Notification, int, int, error) {
	return nil, 0, 0, nil
}
func (m *memoryStore) MarkNotificationRead(context.Context, uuid.UUID, uuid.UUID) (int64, error) {
	return 0, nil
}
func (m *memoryStore) NotificationExists(context.Context, uuid.UUID) (bool, error) { return false, nil }
func (m *memoryStore) MarkAllNotificationsRead(context.Context, uuid.UUID) (int64, error) {
	return 0, nil
}

// recordingPublisher captures published notifications
type recordingPublisher struct {
	mu   sync.Mutex
	sent map[uuid.UUID]int
}

func (p *recordingPublisher) Publish(userID uuid.UUID, _ *models.Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sent == nil {
		p.sent = map[uuid.UUID]int{}
	}
	p.sent[userID]++
}

// recordingMailer captures outgoing mail
type recordingMailer struct {
	mu        sync.Mutex
	purchases []string
	payouts   []string
}

func (m *recordingMailer) SendPurchaseCompleted(_ context.Context, to, _ string, _ int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.purchases = append(m.purchases, to)
	return nil
}

func (m *recordingMailer) SendPayoutApproved(_ context.Context, to string, _ int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payouts = append(m.payouts, to)
	return nil
}
