package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"STUDYHUB_BACK-END/internal/config"
	"STUDYHUB_BACK-END/internal/dto"
	"STUDYHUB_BACK-END/internal/middleware"
	"STUDYHUB_BACK-END/internal/models"
)

var testJWT = &config.JWTConfig{
	Secret:         "handlers-test-secret",
	AccessTokenTTL: time.Hour,
	ResetTokenTTL:  10 * time.Minute,
}

func newCreatorHandlerFor(f *marketFixture) *CreatorHandler {
	return NewCreatorHandler(f.profiles, f.creators, f.market, f.payouts, testJWT, f.cfg.MinPayoutAmount)
}

func TestCreator_FirstSettingsSavePromotesUser(t *testing.T) {
	f := newMarketFixture()
	h := newCreatorHandlerFor(f)
	claims := userClaims(f.buyer.ID, models.RoleUser)
	claims.Email = "lee@example.com"
	body := dto.CreatorSettingsRequest{DisplayName: "  Lee Physics ", QuestionPrice: 3000, AcceptsQuestions: true}

	rec := httptest.NewRecorder()
	h.UpdateSettings(rec, newRequest(t, http.MethodPut, "/api/creator/settings", body, claims, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decodeJSON[dto.CreatorSettingsUpdateResponse](t, rec)
	assert.Equal(t, models.RoleCreator, resp.Role)
	assert.Equal(t, "Lee Physics", resp.Settings.DisplayName)
	require.NotNil(t, resp.Token)

	issued, err := middleware.ValidateToken(*resp.Token, testJWT)
	require.NoError(t, err)
	assert.Equal(t, f.buyer.ID, issued.UserID)
	assert.Equal(t, models.RoleCreator, issued.Role)
	assert.Equal(t, "lee@example.com", issued.Email)

	p, err := f.profiles.GetProfile(context.Background(), f.buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleCreator, p.Role)

	// later saves keep the role and do not reissue
	rec = httptest.NewRecorder()
	h.UpdateSettings(rec, newRequest(t, http.MethodPut, "/api/creator/settings", body, userClaims(f.buyer.ID, models.RoleCreator), nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp = decodeJSON[dto.CreatorSettingsUpdateResponse](t, rec)
	assert.Equal(t, models.RoleCreator, resp.Role)
	assert.Nil(t, resp.Token)
}

func TestCreator_SettingsSaveKeepsAdminRole(t *testing.T) {
	f := newMarketFixture()
	h := newCreatorHandlerFor(f)
	body := dto.CreatorSettingsRequest{DisplayName: "Ops"}

	rec := httptest.NewRecorder()
	h.UpdateSettings(rec, newRequest(t, http.MethodPut, "/x", body, userClaims(f.admin.ID, models.RoleAdmin), nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decodeJSON[dto.CreatorSettingsUpdateResponse](t, rec)
	assert.Equal(t, models.RoleAdmin, resp.Role)
	assert.Nil(t, resp.Token)
}

func TestCreator_SettingsRequireDisplayName(t *testing.T) {
	f := newMarketFixture()
	h := newCreatorHandlerFor(f)

	rec := httptest.NewRecorder()
	h.UpdateSettings(rec, newRequest(t, http.MethodPut, "/x", dto.CreatorSettingsRequest{}, userClaims(f.buyer.ID, models.RoleUser), nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	p, err := f.profiles.GetProfile(context.Background(), f.buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, p.Role)
}

func TestCreator_RequestPayout(t *testing.T) {
	account := models.PaymentAccount{BankName: "KB", AccountNumber: "123456789012", AccountHolder: "Kim"}

	tests := []struct {
		name   string
		setup  func(f *marketFixture) uuid.UUID
		amount int64
		want   int
	}{
		{
			name:   "not a creator",
			setup:  func(f *marketFixture) uuid.UUID { return f.buyer.ID },
			amount: 20000,
			want:   http.StatusForbidden,
		},
		{
			name:   "below minimum",
			setup:  func(f *marketFixture) uuid.UUID { return f.creator.ID },
			amount: 5000,
			want:   http.StatusBadRequest,
		},
		{
			name:   "no bank account",
			setup:  func(f *marketFixture) uuid.UUID { return f.creator.ID },
			amount: 20000,
			want:   http.StatusBadRequest,
		},
		{
			name: "insufficient balance",
			setup: func(f *marketFixture) uuid.UUID {
				f.creators.accounts = map[uuid.UUID]models.PaymentAccount{f.creator.ID: account}
				f.market.setBalance(models.CreatorBalance{CreatorID: f.creator.ID, Available: 15000})
				return f.creator.ID
			},
			amount: 20000,
			want:   http.StatusBadRequest,
		},
		{
			name: "payout already pending",
			setup: func(f *marketFixture) uuid.UUID {
				f.creators.accounts = map[uuid.UUID]models.PaymentAccount{f.creator.ID: account}
				f.market.setBalance(models.CreatorBalance{CreatorID: f.creator.ID, Available: 50000})
				_ = f.market.CreatePayout(context.Background(), &models.PayoutRequest{CreatorID: f.creator.ID, Amount: 10000, Status: models.PayoutPending})
				return f.creator.ID
			},
			amount: 20000,
			want:   http.StatusConflict,
		},
		{
			name: "accepted",
			setup: func(f *marketFixture) uuid.UUID {
				f.creators.accounts = map[uuid.UUID]models.PaymentAccount{f.creator.ID: account}
				f.market.setBalance(models.CreatorBalance{CreatorID: f.creator.ID, Available: 50000})
				return f.creator.ID
			},
			amount: 20000,
			want:   http.StatusCreated,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newMarketFixture()
			h := newCreatorHandlerFor(f)
			id := tt.setup(f)

			rec := httptest.NewRecorder()
			body := dto.PayoutCreateRequest{Amount: tt.amount}
			h.RequestPayout(rec, newRequest(t, http.MethodPost, "/api/creator/payout", body, userClaims(id, models.RoleCreator), nil))
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestCreator_RequestPayoutReservesBalance(t *testing.T) {
	f := newMarketFixture()
	h := newCreatorHandlerFor(f)
	f.creators.accounts = map[uuid.UUID]models.PaymentAccount{
		f.creator.ID: {BankName: "KB", AccountNumber: "123456789012", AccountHolder: "Kim"},
	}
	f.market.setBalance(models.CreatorBalance{CreatorID: f.creator.ID, Available: 50000})

	rec := httptest.NewRecorder()
	h.RequestPayout(rec, newRequest(t, http.MethodPost, "/x", dto.PayoutCreateRequest{Amount: 20000}, userClaims(f.creator.ID, models.RoleCreator), nil))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decodeJSON[dto.PayoutResponse](t, rec)
	assert.Equal(t, int64(20000), resp.Amount)
	assert.NotEqual(t, "123456789012", resp.AccountNumber)

	b, err := f.market.GetBalance(context.Background(), f.creator.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(30000), b.Available)
	assert.Equal(t, int64(20000), b.Pending)
	assert.Len(t, f.notifications.forUser(f.admin.ID), 1)
}
