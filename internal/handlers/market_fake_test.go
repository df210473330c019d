package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"STUDYHUB_BACK-END/internal/config"
	"STUDYHUB_BACK-END/internal/models"
	"STUDYHUB_BACK-END/internal/repository"
	"STUDYHUB_BACK-END/internal/service"
)

// fakeMarket keeps purchases, balances and payouts in memory. WithinTx runs
// fn against the same maps without rollback.
type fakeMarket struct {
	mu        sync.Mutex
	purchases map[uuid.UUID]models.Purchase
	balances  map[uuid.UUID]models.CreatorBalance
	payouts   map[uuid.UUID]models.PayoutRequest
	events    map[string]models.PaymentEvent
}

func newFakeMarket() *fakeMarket {
	return &fakeMarket{
		purchases: map[uuid.UUID]models.Purchase{},
		balances:  map[uuid.UUID]models.CreatorBalance{},
		payouts:   map[uuid.UUID]models.PayoutRequest{},
		events:    map[string]models.PaymentEvent{},
	}
}

func (m *fakeMarket) addPurchase(p models.Purchase) models.Purchase {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.OrderID == "" {
		p.OrderID = "SH-" + p.ID.String()
	}
	p.CreatedAt = time.Now()
	m.purchases[p.ID] = p
	return p
}

func (m *fakeMarket) purchase(id uuid.UUID) models.Purchase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.purchases[id]
}

func (m *fakeMarket) setStatus(id uuid.UUID, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.purchases[id]
	p.Status = status
	m.purchases[id] = p
}

func (m *fakeMarket) setBalance(b models.CreatorBalance) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[b.CreatorID] = b
}

func activeStatus(status string) bool {
	for _, s := range models.ActivePurchaseStatuses {
		if s == status {
			return true
		}
	}
	return false
}

func (m *fakeMarket) CreatePurchase(_ context.Context, p *models.Purchase) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.purchases {
		if existing.ContentID == p.ContentID && existing.BuyerID == p.BuyerID && activeStatus(existing.Status) {
			return repository.ErrConflict
		}
	}
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	m.purchases[p.ID] = *p
	return nil
}

func (m *fakeMarket) GetPurchase(_ context.Context, id uuid.UUID) (*models.Purchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.purchases[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (m *fakeMarket) GetPurchaseByOrderID(_ context.Context, orderID string) (*models.Purchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.purchases {
		if p.OrderID == orderID {
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *fakeMarket) FindActivePurchase(_ context.Context, contentID, buyerID uuid.UUID) (*models.Purchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.purchases {
		if p.ContentID == contentID && p.BuyerID == buyerID && activeStatus(p.Status) {
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *fakeMarket) ListPurchases(_ context.Context, f repository.PurchaseFilter) ([]models.Purchase, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Purchase{}
	for _, p := range m.purchases {
		if f.BuyerID != nil && p.BuyerID != *f.BuyerID {
			continue
		}
		if f.CreatorID != nil && p.CreatorID != *f.CreatorID {
			continue
		}
		out = append(out, p)
	}
	return out, len(out), nil
}

func (m *fakeMarket) TransitionPurchase(_ context.Context, id uuid.UUID, c models.StatusChange) (*models.Purchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.purchases[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	allowed := false
	for _, s := range c.From {
		allowed = allowed || s == p.Status
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
	return &p, nil
}

func (m *fakeMarket) ListStalePurchases(context.Context, string, time.Time, int) ([]models.Purchase, error) {
	return nil, nil
}

func (m *fakeMarket) GetBalance(_ context.Context, id uuid.UUID) (*models.CreatorBalance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.balances[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &b, nil
}

func (m *fakeMarket) LockBalance(_ context.Context, id uuid.UUID) (*models.CreatorBalance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.balances[id]
	if !ok {
		b = models.CreatorBalance{CreatorID: id}
		m.balances[id] = b
	}
	return &b, nil
}

func (m *fakeMarket) ApplyBalanceDelta(_ context.Context, id uuid.UUID, d models.BalanceDelta) (*models.CreatorBalance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.balances[id]
	b.CreatorID = id
	b.Available += d.Available
	b.Pending += d.Pending
	b.TotalEarned += d.TotalEarned
	b.TotalWithdrawn += d.TotalWithdrawn
	m.balances[id] = b
	return &b, nil
}

func (m *fakeMarket) CreatePayout(_ context.Context, p *models.PayoutRequest) error {
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

func (m *fakeMarket) GetPayout(_ context.Context, id uuid.UUID) (*models.PayoutRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payouts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (m *fakeMarket) GetPendingPayout(_ context.Context, creatorID uuid.UUID) (*models.PayoutRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payouts {
		if p.CreatorID == creatorID && p.Status == models.PayoutPending {
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *fakeMarket) ListPayouts(_ context.Context, f repository.PayoutFilter) ([]models.PayoutRequest, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.PayoutRequest{}
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

func (m *fakeMarket) DecidePayout(_ context.Context, id uuid.UUID, status string, note *string, actorID uuid.UUID) (*models.PayoutRequest, error) {
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

func (m *fakeMarket) PaymentEventExists(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.events[id]
	return ok, nil
}

func (m *fakeMarket) RecordPaymentEvent(_ context.Context, e *models.PaymentEvent) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[e.ID]; ok {
		return false, nil
	}
	m.events[e.ID] = *e
	return true, nil
}

func (m *fakeMarket) MarketStats(context.Context) (*models.MarketStats, error) {
	return &models.MarketStats{PurchasesByStatus: map[string]int64{}}, nil
}

func (m *fakeMarket) WithinTx(_ context.Context, fn func(repository.MarketStore) error) error {
	return fn(m)
}

type marketFixture struct {
	admin         models.Profile
	creator       models.Profile
	buyer         models.Profile
	profiles      *fakeProfiles
	creators      *fakeCreators
	contents      *fakeContents
	market        *fakeMarket
	notifications *fakeNotifications
	notifier      *service.Notifier
	purchases     *service.Purchases
	payouts       *service.Payouts
	cfg           config.MarketplaceConfig
}

func newMarketFixture() *marketFixture {
	admin := models.Profile{ID: uuid.New(), Nickname: "admin", Role: models.RoleAdmin}
	creator := models.Profile{ID: uuid.New(), Nickname: "tutor kim", Role: models.RoleCreator}
	buyer := models.Profile{ID: uuid.New(), Nickname: "student lee", Role: models.RoleUser}
	f := &marketFixture{
		admin:         admin,
		creator:       creator,
		buyer:         buyer,
		profiles:      newFakeProfiles(admin, creator, buyer),
		creators:      &fakeCreators{},
		contents:      &fakeContents{items: map[uuid.UUID]models.Content{}, purchaseCounts: map[uuid.UUID]int{}},
		market:        newFakeMarket(),
		notifications: &fakeNotifications{},
		cfg: config.MarketplaceConfig{
			CreatorSharePercent: 80,
			MinPayoutAmount:     10000,
			PurchasePendingTTL:  time.Hour,
		},
	}
	f.notifier = service.NewNotifier(f.notifications, f.profiles, nil)
	f.purchases = service.NewPurchases(f.market, f.contents, f.creators, f.profiles, f.notifier, nil, f.cfg)
	f.payouts = service.NewPayouts(f.market, f.creators, f.profiles, f.notifier, nil, f.cfg)
	return f
}

func (f *marketFixture) addContent(price int64, published bool) models.Content {
	path := "materials/physics.pdf"
	c := models.Content{
		ID:          uuid.New(),
		CreatorID:   f.creator.ID,
		Type:        models.ContentMaterial,
		Title:       "Physics summary",
		Price:       price,
		FilePath:    &path,
		IsPublished: published,
	}
	f.contents.items[c.ID] = c
	return c
}

// addSale records a completed p2p purchase of c by the buyer
func (f *marketFixture) addSale(c models.Content) models.Purchase {
	return f.market.addPurchase(models.Purchase{
		ContentID:     c.ID,
		BuyerID:       f.buyer.ID,
		CreatorID:     c.CreatorID,
		Amount:        c.Price,
		CreatorAmount: c.Price * 80 / 100,
		PlatformFee:   c.Price - c.Price*80/100,
		PaymentMethod: models.MethodP2P,
		Status:        models.PurchaseCompleted,
		ContentTitle:  c.Title,
	})
}
