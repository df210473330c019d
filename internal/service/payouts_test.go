package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"STUDYHUB_BACK-END/internal/models"
)

func newPayoutFixture(t *testing.T) (*memoryStore, *Payouts, *recordingMailer, models.Profile, models.Profile) {
	t.Helper()
	store := newMemoryStore()
	mailer := &recordingMailer{}
	notifier := NewNotifier(store, store, &recordingPublisher{})
	payouts := NewPayouts(store, store, store, notifier, mailer, marketCfg)

	creator := store.addProfile(models.RoleCreator, "creator@studyhub.kr")
	admin := store.addProfile(models.RoleAdmin, "admin@studyhub.kr")
	store.accounts[creator.ID] = models.PaymentAccount{
		UserID:        creator.ID,
		BankName:      "KB국민은행",
		AccountNumber: "123-456-789012",
		AccountHolder: "홍길동",
	}
	store.balances[creator.ID] = models.CreatorBalance{CreatorID: creator.ID, Available: 50000, TotalEarned: 50000}
	return store, payouts, mailer, creator, admin
}

func TestPayouts_RequestValidationOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("plain users cannot request", func(t *testing.T) {
		store, payouts, _, _, _ := newPayoutFixture(t)
		user := store.addProfile(models.RoleUser, "user@studyhub.kr")
		_, err := payouts.Request(ctx, user.ID, 5000)
		assert.ErrorIs(t, err, ErrForbidden, "role is checked before the amount")
	})

	t.Run("unknown profile is forbidden", func(t *testing.T) {
		_, payouts, _, _, _ := newPayoutFixture(t)
		_, err := payouts.Request(ctx, uuid.New(), 20000)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("below minimum", func(t *testing.T) {
		_, payouts, _, creator, _ := newPayoutFixture(t)
		_, err := payouts.Request(ctx, creator.ID, 9999)
		assert.ErrorIs(t, err, ErrBelowMinimumPayout)
	})

	t.Run("account required", func(t *testing.T) {
		store, payouts, _, creator, _ := newPayoutFixture(t)
		delete(store.accounts, creator.ID)
		_, err := payouts.Request(ctx, creator.ID, 10000)
		assert.ErrorIs(t, err, ErrBankAccountRequired)
	})

	t.Run("one pending request at a time", func(t *testing.T) {
		_, payouts, _, creator, _ := newPayoutFixture(t)
		_, err := payouts.Request(ctx, creator.ID, 10000)
		require.NoError(t, err)
		_, err = payouts.Request(ctx, creator.ID, 10000)
		assert.ErrorIs(t, err, ErrPayoutInProgress)
	})

	t.Run("cannot exceed available", func(t *testing.T) {
		store, payouts, _, creator, _ := newPayoutFixture(t)
		_, err := payouts.Request(ctx, creator.ID, 50001)
		assert.ErrorIs(t, err, ErrInsufficientBalance)
		assert.Equal(t, int64(50000), store.balance(creator.ID).Available)
		assert.Empty(t, store.payouts)
	})
}

func TestPayouts_RequestReservesBalance(t *testing.T) {
	ctx := context.Background()
	store, payouts, _, creator, admin := newPayoutFixture(t)

	p, err := payouts.Request(ctx, creator.ID, 30000)
	require.NoError(t, err)
	assert.Equal(t, models.PayoutPending, p.Status)
	assert.Equal(t, "KB국민은행", p.BankName)
	assert.Equal(t, "123-456-789012", p.AccountNumber)

	bal := store.balance(creator.ID)
	assert.Equal(t, int64(20000), bal.Available)
	assert.Equal(t, int64(30000), bal.Pending)
	assert.Equal(t, int64(50000), bal.TotalEarned)

	notes := store.notificationsFor(admin.ID)
	require.Len(t, notes, 1)
	assert.Equal(t, NotifyPayoutRequested, notes[0].Type)
}

func TestPayouts_Approve(t *testing.T) {
	ctx := context.Background()
	store, payouts, mailer, creator, admin := newPayoutFixture(t)

	p, err := payouts.Request(ctx, creator.ID, 30000)
	require.NoError(t, err)

	approved, err := payouts.Approve(ctx, p.ID, admin.ID, "sent 10/19")
	require.NoError(t, err)
	assert.Equal(t, models.PayoutApproved, approved.Status)
	require.NotNil(t, approved.ProcessedBy)
	assert.Equal(t, admin.ID, *approved.ProcessedBy)

	bal := store.balance(creator.ID)
	assert.Equal(t, int64(20000), bal.Available)
	assert.Equal(t, int64(0), bal.Pending)
	assert.Equal(t, int64(30000), bal.TotalWithdrawn)
	assert.Equal(t, []string{"creator@studyhub.kr"}, mailer.payouts)

	notes := store.notificationsFor(creator.ID)
	require.Len(t, notes, 1)
	assert.Equal(t, NotifyPayoutApproved, notes[0].Type)
	require.NotNil(t, notes[0].Message)
	assert.Contains(t, *notes[0].Message, "***-***-**9012")

	_, err = payouts.Approve(ctx, p.ID, admin.ID, "")
	assert.ErrorIs(t, err, ErrInvalidStatus)
	_, err = payouts.Reject(ctx, p.ID, admin.ID, "")
	assert.ErrorIs(t, err, ErrInvalidStatus)
	_, err = payouts.Approve(ctx, uuid.New(), admin.ID, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPayouts_RejectReleasesReservation(t *testing.T) {
	ctx := context.Background()
	store, payouts, mailer, creator, admin := newPayoutFixture(t)

	p, err := payouts.Request(ctx, creator.ID, 30000)
	require.NoError(t, err)

	rejected, err := payouts.Reject(ctx, p.ID, admin.ID, "account holder mismatch")
	require.NoError(t, err)
	assert.Equal(t, models.PayoutRejected, rejected.Status)
	require.NotNil(t, rejected.AdminNote)
	assert.Equal(t, "account holder mismatch", *rejected.AdminNote)

	bal := store.balance(creator.ID)
	assert.Equal(t, int64(50000), bal.Available)
	assert.Equal(t, int64(0), bal.Pending)
	assert.Equal(t, int64(0), bal.TotalWithdrawn)
	assert.Empty(t, mailer.payouts)

	// the slot is free again
	_, err = payouts.Request(ctx, creator.ID, 50000)
	require.NoError(t, err)
}

func TestPayouts_BalanceDefaultsToZero(t *testing.T) {
	store := newMemoryStore()
	payouts := NewPayouts(store, store, store, NewNotifier(store, store, nil), nil, marketCfg)
	id := uuid.New()

	b, err := payouts.Balance(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, b.CreatorID)
	assert.Zero(t, b.Available)
	assert.Zero(t, b.Pending)
}

func TestMaskAccountNumber(t *testing.T) {
	assert.Equal(t, "***-***-**9012", MaskAccountNumber("123-456-789012"))
	assert.Equal(t, "******9012", MaskAccountNumber("1234569012"))
	assert.Equal(t, "1234", MaskAccountNumber("1234"))
	assert.Equal(t, "", MaskAccountNumber(""))
}
