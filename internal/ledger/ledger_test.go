package ledger

import (
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"lookup-bot/internal/database"
	"lookup-bot/internal/models"
	"lookup-bot/internal/settings"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	cfg, err := settings.Load(db)
	require.NoError(t, err)
	return New(database.NewStore(db), cfg)
}

func TestGetOrCreateGrantsJoiningBonus(t *testing.T) {
	l := newTestLedger(t)

	user, err := l.GetOrCreate(1001, "alice", "Alice")
	require.NoError(t, err)
	assert.Equal(t, 5.0, user.Credits)
	assert.Len(t, user.ReferralCode, 8)
	assert.Equal(t, "alice", user.Username)

	// Second call returns the same account untouched.
	again, err := l.GetOrCreate(1001, "alice", "Alice")
	require.NoError(t, err)
	assert.Equal(t, user.Credits, again.Credits)
	assert.Equal(t, user.ReferralCode, again.ReferralCode)
}

func TestGetOrCreateRefreshesNames(t *testing.T) {
	l := newTestLedger(t)

	_, err := l.GetOrCreate(1001, "oldname", "Old")
	require.NoError(t, err)

	user, err := l.GetOrCreate(1001, "newname", "New")
	require.NoError(t, err)
	assert.Equal(t, "newname", user.Username)
	assert.Equal(t, "New", user.FirstName)
}

func TestCreditDebitRoundTrip(t *testing.T) {
	l := newTestLedger(t)
	user, err := l.GetOrCreate(1001, "alice", "Alice")
	require.NoError(t, err)
	before := user.Credits

	require.NoError(t, l.Credit(1001, 3.5))
	balance, err := l.Debit(1001, 3.5)
	require.NoError(t, err)
	assert.Equal(t, before, balance)
}

func TestDebitInsufficientFunds(t *testing.T) {
	l := newTestLedger(t)
	user, err := l.GetOrCreate(1001, "alice", "Alice")
	require.NoError(t, err)

	_, err = l.Debit(1001, user.Credits+1)
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	after, err := l.Get(1001)
	require.NoError(t, err)
	assert.Equal(t, user.Credits, after.Credits)
}

func TestDebitUnknownUser(t *testing.T) {
	l := newTestLedger(t)
	_, err := l.Debit(9999, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDebitForSearchLogsSearch(t *testing.T) {
	l := newTestLedger(t)
	_, err := l.GetOrCreate(1001, "alice", "Alice")
	require.NoError(t, err)

	balance, err := l.DebitForSearch(1001, 1.0, "9876543210", models.SearchKindPhone)
	require.NoError(t, err)
	assert.Equal(t, 4.0, balance)

	counts, err := l.SearchCounts(1001)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[models.SearchKindPhone])

	user, err := l.Get(1001)
	require.NoError(t, err)
	assert.Equal(t, int64(1), user.TotalSearches)
}

func TestAwardReferralOnce(t *testing.T) {
	l := newTestLedger(t)
	inviter, err := l.GetOrCreate(1001, "alice", "Alice")
	require.NoError(t, err)
	_, err = l.GetOrCreate(1002, "bob", "Bob")
	require.NoError(t, err)

	awarded, err := l.AwardReferral(1002, 1001)
	require.NoError(t, err)
	assert.True(t, awarded)

	after, err := l.Get(1001)
	require.NoError(t, err)
	assert.Equal(t, inviter.Credits+0.5, after.Credits)
	assert.Equal(t, 1, after.ReferralCount)

	// Second award for the same pair is a no-op.
	awarded, err = l.AwardReferral(1002, 1001)
	require.NoError(t, err)
	assert.False(t, awarded)

	again, err := l.Get(1001)
	require.NoError(t, err)
	assert.Equal(t, after.Credits, again.Credits)
	assert.Equal(t, 1, again.ReferralCount)
}

func TestAwardReferralSelf(t *testing.T) {
	l := newTestLedger(t)
	_, err := l.GetOrCreate(1001, "alice", "Alice")
	require.NoError(t, err)

	awarded, err := l.AwardReferral(1001, 1001)
	require.NoError(t, err)
	assert.False(t, awarded)
}

func TestAwardReferralConcurrent(t *testing.T) {
	l := newTestLedger(t)
	_, err := l.GetOrCreate(1001, "alice", "Alice")
	require.NoError(t, err)
	_, err = l.GetOrCreate(1002, "bob", "Bob")
	require.NoError(t, err)

	const n = 8
	results := make(chan bool, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			awarded, err := l.AwardReferral(1002, 1001)
			if err == nil && awarded {
				results <- true
			}
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for range results {
		succeeded++
	}
	assert.Equal(t, 1, succeeded)

	inviter, err := l.Get(1001)
	require.NoError(t, err)
	assert.Equal(t, 1, inviter.ReferralCount)
}

func TestResetDailyQuota(t *testing.T) {
	l := newTestLedger(t)
	_, err := l.GetOrCreate(1001, "alice", "Alice")
	require.NoError(t, err)

	// Same calendar day: no-op.
	reset, err := l.ResetDailyQuotaIfNeeded(1001)
	require.NoError(t, err)
	assert.False(t, reset)

	// Backdate the last reset and use up some quota.
	yesterday := time.Now().Add(-36 * time.Hour)
	require.NoError(t, l.Store().DB.Model(&models.User{}).
		Where("telegram_id = ?", 1001).
		Updates(map[string]any{"daily_searches": 3, "last_reset": yesterday}).Error)

	reset, err = l.ResetDailyQuotaIfNeeded(1001)
	require.NoError(t, err)
	assert.True(t, reset)

	user, err := l.Get(1001)
	require.NoError(t, err)
	assert.Equal(t, 0, user.DailySearches)

	// And a second run the same day is a no-op again.
	reset, err = l.ResetDailyQuotaIfNeeded(1001)
	require.NoError(t, err)
	assert.False(t, reset)
}

func TestIncrementGroupUsage(t *testing.T) {
	l := newTestLedger(t)
	_, err := l.GetOrCreate(1001, "alice", "Alice")
	require.NoError(t, err)

	require.NoError(t, l.IncrementGroupUsage(1001, "KA01AB1234", models.SearchKindVehicle))
	require.NoError(t, l.IncrementGroupUsage(1001, "9876543210", models.SearchKindPhone))

	user, err := l.Get(1001)
	require.NoError(t, err)
	assert.Equal(t, 2, user.DailySearches)
	assert.Equal(t, int64(2), user.TotalSearches)
}

func TestSetBannedUnknownUser(t *testing.T) {
	l := newTestLedger(t)
	err := l.SetBanned(9999, true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindByReferralCode(t *testing.T) {
	l := newTestLedger(t)
	user, err := l.GetOrCreate(1001, "alice", "Alice")
	require.NoError(t, err)

	found, err := l.FindByReferralCode(user.ReferralCode)
	require.NoError(t, err)
	assert.Equal(t, int64(1001), found.TelegramID)

	_, err = l.FindByReferralCode("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}
