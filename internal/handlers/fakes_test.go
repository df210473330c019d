package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"STUDYHUB_BACK-END/internal/middleware"
	"STUDYHUB_BACK-END/internal/models"
	"STUDYHUB_BACK-END/internal/repository"
)

// newRequest builds a request carrying chi URL params and, when claims is
// not nil, an authenticated user
func newRequest(t *testing.T, method, target string, body any, claims *middleware.JWTClaims, params map[string]string) *http.Request {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	r := httptest.NewRequest(method, target, rd)
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	if claims != nil {
		ctx = middleware.WithClaims(ctx, claims)
	}
	return r.WithContext(ctx)
}

func userClaims(id uuid.UUID, role string) *middleware.JWTClaims {
	return &middleware.JWTClaims{UserID: id, Role: role}
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

type fakeProfiles struct {
	repository.ProfileStore
	mu    sync.Mutex
	items map[uuid.UUID]models.Profile
}

func newFakeProfiles(ps ...models.Profile) *fakeProfiles {
	f := &fakeProfiles{items: map[uuid.UUID]models.Profile{}}
	for _, p := range ps {
		f.items[p.ID] = p
	}
	return f
}

func (f *fakeProfiles) GetProfile(_ context.Context, id uuid.UUID) (*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (f *fakeProfiles) ListAdminIDs(context.Context) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []uuid.UUID
	for id, p := range f.items {
		if p.Role == models.RoleAdmin {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

type fakeNotifications struct {
	mu    sync.Mutex
	items []models.Notification
}

func (f *fakeNotifications) CreateNotification(_ context.Context, n *models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	n.ID = uuid.New()
	n.CreatedAt = time.Now().UTC()
	f.items = append(f.items, *n)
	return nil
}

func (f *fakeNotifications) ListNotifications(_ context.Context, userID uuid.UUID, filter models.NotificationFilter) ([]models.Notification, int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []models.Notification
	unread := 0
	for _, n := range f.items {
		if n.UserID != userID {
			continue
		}
		if !n.Read {
			unread++
		}
		if filter.UnreadOnly && n.Read {
			continue
		}
		if filter.Type != "" && n.Type != filter.Type {
			continue
		}
		matched = append(matched, n)
	}
	total := len(matched)
	if filter.Offset >= len(matched) {
		return []models.Notification{}, total, unread, nil
	}
	matched = matched[filter.Offset:]
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, total, unread, nil
}

func (f *fakeNotifications) MarkNotificationRead(_ context.Context, id, userID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		n := &f.items[i]
		if n.ID == id && n.UserID == userID && !n.Read {
			n.Read = true
			return 1, nil
		}
	}
	return 0, nil
}

func (f *fakeNotifications) NotificationExists(_ context.Context, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.items {
		if n.ID == id {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeNotifications) MarkAllNotificationsRead(_ context.Context, userID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for i := range f.items {
		if f.items[i].UserID == userID && !f.items[i].Read {
			f.items[i].Read = true
			n++
		}
	}
	return n, nil
}

func (f *fakeNotifications) forUser(id uuid.UUID) []models.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Notification
	for _, n := range f.items {
		if n.UserID == id {
			out = append(out, n)
		}
	}
	return out
}

type fakeRoutines struct {
	mu    sync.Mutex
	items map[uuid.UUID]models.Routine
}

func newFakeRoutines() *fakeRoutines {
	return &fakeRoutines{items: map[uuid.UUID]models.Routine{}}
}

func (f *fakeRoutines) CreateRoutine(_ context.Context, r *models.Routine) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r.ID = uuid.New()
	r.CreatedAt = time.Now().UTC()
	r.UpdatedAt = r.CreatedAt
	f.items[r.ID] = *r
	return nil
}

func (f *fakeRoutines) GetRoutine(_ context.Context, id uuid.UUID) (*models.Routine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &r, nil
}

func (f *fakeRoutines) ListRoutines(_ context.Context, userID uuid.UUID) ([]models.Routine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Routine{}
	for _, r := range f.items {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRoutines) UpdateRoutine(_ context.Context, r *models.Routine) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[r.ID]; !ok {
		return repository.ErrNotFound
	}
	r.UpdatedAt = time.Now().UTC()
	f.items[r.ID] = *r
	return nil
}

func (f *fakeRoutines) DeleteRoutine(_ context.Context, id, userID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.items[id]
	if !ok || r.UserID != userID {
		return repository.ErrNotFound
	}
	delete(f.items, id)
	return nil
}

type fakeSubscriptions struct {
	mu    sync.Mutex
	items []models.Subscription
}

func (f *fakeSubscriptions) Subscribe(_ context.Context, subscriberID, creatorID uuid.UUID) (*models.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.items {
		if s.SubscriberID == subscriberID && s.CreatorID == creatorID {
			return nil, repository.ErrConflict
		}
	}
	s := models.Subscription{ID: uuid.New(), SubscriberID: subscriberID, CreatorID: creatorID, CreatedAt: time.Now().UTC()}
	f.items = append(f.items, s)
	return &s, nil
}

func (f *fakeSubscriptions) Unsubscribe(_ context.Context, subscriberID, creatorID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, s := range f.items {
		if s.SubscriberID == subscriberID && s.CreatorID == creatorID {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeSubscriptions) ListSubscriptions(_ context.Context, subscriberID uuid.UUID) ([]models.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Subscription{}
	for _, s := range f.items {
		if s.SubscriberID == subscriberID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSubscriptions) ListSubscriberIDs(_ context.Context, creatorID uuid.UUID) ([]uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []uuid.UUID
	for _, s := range f.items {
		if s.CreatorID == creatorID {
			out = append(out, s.SubscriberID)
		}
	}
	return out, nil
}

func (f *fakeSubscriptions) CountSubscribers(ctx context.Context, creatorID uuid.UUID) (int, error) {
	ids, err := f.ListSubscriberIDs(ctx, creatorID)
	return len(ids), err
}

type fakeQuestions struct {
	mu        sync.Mutex
	questions map[uuid.UUID]models.Question
	answers   []models.Answer
}

func newFakeQuestions() *fakeQuestions {
	return &fakeQuestions{questions: map[uuid.UUID]models.Question{}}
}

func (f *fakeQuestions) CreateQuestion(_ context.Context, q *models.Question) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	q.ID = uuid.New()
	q.CreatedAt = time.Now().UTC()
	q.UpdatedAt = q.CreatedAt
	f.questions[q.ID] = *q
	return nil
}

func (f *fakeQuestions) GetQuestion(_ context.Context, id uuid.UUID) (*models.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.questions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &q, nil
}

func (f *fakeQuestions) ListQuestions(_ context.Context, filter repository.QuestionFilter) ([]models.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Question{}
	for _, q := range f.questions {
		if filter.AskerID != nil && q.AskerID != *filter.AskerID {
			continue
		}
		if filter.CreatorID != nil && q.CreatorID != *filter.CreatorID {
			continue
		}
		if filter.Status != "" && q.Status != filter.Status {
			continue
		}
		out = append(out, q)
	}
	return out, nil
}

func (f *fakeQuestions) SetQuestionStatus(_ context.Context, id uuid.UUID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.questions[id]
	if !ok {
		return repository.ErrNotFound
	}
	q.Status = status
	f.questions[id] = q
	return nil
}

func (f *fakeQuestions) CreateAnswer(_ context.Context, a *models.Answer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a.ID = uuid.New()
	a.CreatedAt = time.Now().UTC()
	f.answers = append(f.answers, *a)
	return nil
}

func (f *fakeQuestions) ListAnswers(_ context.Context, questionID uuid.UUID) ([]models.Answer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []models.Answer{}
	for _, a := range f.answers {
		if a.QuestionID == questionID {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakeCreators struct {
	repository.CreatorStore
	settings map[uuid.UUID]models.CreatorSettings
	accounts map[uuid.UUID]models.PaymentAccount
}

func (f *fakeCreators) GetCreatorSettings(_ context.Context, userID uuid.UUID) (*models.CreatorSettings, error) {
	s, ok := f.settings[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

type fakeContents struct {
	repository.ContentStore
	items          map[uuid.UUID]models.Content
	purchaseCounts map[uuid.UUID]int
}

func (f *fakeContents) GetContent(_ context.Context, id uuid.UUID) (*models.Content, error) {
	c, ok := f.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (f *fakeProfiles) add(p models.Profile) models.Profile {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	f.items[p.ID] = p
	return p
}

func (f *fakeProfiles) GetProfileByEmail(_ context.Context, email string) (*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.items {
		if p.Email != nil && *p.Email == email {
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeProfiles) CreateProfile(_ context.Context, p *models.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.items {
		if existing.Email != nil && p.Email != nil && *existing.Email == *p.Email {
			return repository.ErrConflict
		}
	}
	p.ID = uuid.New()
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt
	f.items[p.ID] = *p
	return nil
}

// UpsertOAuthProfile keys profiles by (provider, provider_id) and refuses an
// email already owned by another account
func (f *fakeProfiles) UpsertOAuthProfile(_ context.Context, p *models.Profile) (*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.items {
		if existing.ProviderID != nil && p.ProviderID != nil &&
			existing.Provider == p.Provider && *existing.ProviderID == *p.ProviderID {
			return &existing, nil
		}
	}
	for _, existing := range f.items {
		if existing.Email != nil && p.Email != nil && *existing.Email == *p.Email {
			return nil, repository.ErrConflict
		}
	}
	out := *p
	out.ID = uuid.New()
	f.items[out.ID] = out
	return &out, nil
}

func (f *fakeProfiles) UpdateProfile(_ context.Context, id uuid.UUID, nickname, avatarURL, bio *string) (*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if nickname != nil {
		p.Nickname = *nickname
	}
	if avatarURL != nil {
		p.AvatarURL = avatarURL
	}
	if bio != nil {
		p.Bio = bio
	}
	f.items[id] = p
	return &p, nil
}

func (f *fakeProfiles) UpdatePasswordHash(_ context.Context, id uuid.UUID, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.PasswordHash = &hash
	f.items[id] = p
	return nil
}

func (f *fakeProfiles) SetRole(_ context.Context, id uuid.UUID, role string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.Role = role
	f.items[id] = p
	return nil
}

func (f *fakeCreators) UpsertCreatorSettings(_ context.Context, s *models.CreatorSettings) (*models.CreatorSettings, error) {
	if f.settings == nil {
		f.settings = map[uuid.UUID]models.CreatorSettings{}
	}
	f.settings[s.UserID] = *s
	return s, nil
}

func (f *fakeCreators) GetPaymentAccount(_ context.Context, userID uuid.UUID) (*models.PaymentAccount, error) {
	a, ok := f.accounts[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &a, nil
}

func (f *fakeCreators) UpsertPaymentAccount(_ context.Context, a *models.PaymentAccount) (*models.PaymentAccount, error) {
	if f.accounts == nil {
		f.accounts = map[uuid.UUID]models.PaymentAccount{}
	}
	f.accounts[a.UserID] = *a
	return a, nil
}

func (f *fakeContents) CreateContent(_ context.Context, c *models.Content) error {
	c.ID = uuid.New()
	c.CreatedAt = time.Now().UTC()
	c.UpdatedAt = c.CreatedAt
	f.items[c.ID] = *c
	return nil
}

func (f *fakeContents) UpdateContent(_ context.Context, c *models.Content) error {
	if _, ok := f.items[c.ID]; !ok {
		return repository.ErrNotFound
	}
	f.items[c.ID] = *c
	return nil
}

func (f *fakeContents) DeleteContent(_ context.Context, id uuid.UUID) error {
	if _, ok := f.items[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.items, id)
	return nil
}

func (f *fakeContents) IncrementViewCount(_ context.Context, id uuid.UUID) error {
	c, ok := f.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.ViewCount++
	f.items[id] = c
	return nil
}

func (f *fakeContents) CountPurchases(_ context.Context, contentID uuid.UUID) (int, error) {
	return f.purchaseCounts[contentID], nil
}

type fakeVerifications struct {
	mu    sync.Mutex
	items []models.AuthVerification
}

func (f *fakeVerifications) LatestActiveVerification(_ context.Context, userID uuid.UUID) (*models.AuthVerification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.items) - 1; i >= 0; i-- {
		v := f.items[i]
		if v.UserID == userID && !v.Used && v.ExpiresAt.After(time.Now()) {
			return &v, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeVerifications) CreateVerification(_ context.Context, v *models.AuthVerification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	v.ID = uuid.New()
	v.CreatedAt = time.Now().UTC()
	f.items = append(f.items, *v)
	return nil
}

func (f *fakeVerifications) FindVerification(_ context.Context, email, code string) (*models.AuthVerification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range f.items {
		if v.Email == email && v.Code == code && !v.Used && v.ExpiresAt.After(time.Now()) {
			return &v, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeVerifications) MarkVerificationUsed(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		if f.items[i].ID == id && !f.items[i].Used {
			f.items[i].Used = true
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeVerifications) latest() models.AuthVerification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items[len(f.items)-1]
}
