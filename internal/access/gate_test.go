package access

import (
	"context"
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"lookup-bot/internal/database"
	"lookup-bot/internal/ledger"
	"lookup-bot/internal/settings"
)

type fakeMembership struct {
	member bool
	err    error
}

func (f *fakeMembership) IsMember(context.Context, string, int64) (bool, error) {
	return f.member, f.err
}

func newTestGate(t *testing.T) (*Gate, *ledger.Ledger, *settings.Settings, *fakeMembership) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	cfg, err := settings.Load(db)
	require.NoError(t, err)
	lg := ledger.New(database.NewStore(db), cfg)
	membership := &fakeMembership{member: true}
	return NewGate(cfg, lg, membership), lg, cfg, membership
}

func privateReq(userID int64, cost float64) Request {
	return Request{UserID: userID, ChatID: userID, ChatKind: ChatPrivate, Cost: cost}
}

func groupReq(userID, chatID int64) Request {
	return Request{UserID: userID, ChatID: chatID, ChatKind: ChatGroup}
}

func TestCheckAllowsFundedPrivateUser(t *testing.T) {
	gate, lg, _, _ := newTestGate(t)
	_, err := lg.GetOrCreate(1001, "alice", "Alice")
	require.NoError(t, err)

	verdict := gate.Check(context.Background(), privateReq(1001, 1.0))
	assert.True(t, verdict.OK)
	assert.Equal(t, ReasonNone, verdict.Reason)
}

func TestCheckBotInactive(t *testing.T) {
	gate, lg, cfg, _ := newTestGate(t)
	_, err := lg.GetOrCreate(1001, "alice", "Alice")
	require.NoError(t, err)
	require.NoError(t, cfg.SetBotActive(false))

	verdict := gate.Check(context.Background(), privateReq(1001, 1.0))
	assert.False(t, verdict.OK)
	assert.Equal(t, ReasonInactive, verdict.Reason)
}

func TestCheckMaintenanceBlocksNonAdmins(t *testing.T) {
	gate, lg, cfg, _ := newTestGate(t)
	_, err := lg.GetOrCreate(1001, "alice", "Alice")
	require.NoError(t, err)
	_, err = lg.GetOrCreate(42, "root", "Root")
	require.NoError(t, err)
	cfg.AddAdmin(42)

	_, err = cfg.Toggle(settings.KeyMaintenanceMode)
	require.NoError(t, err)

	verdict := gate.Check(context.Background(), privateReq(1001, 1.0))
	assert.Equal(t, ReasonMaintenance, verdict.Reason)

	verdict = gate.Check(context.Background(), privateReq(42, 1.0))
	assert.True(t, verdict.OK)
}

func TestCheckLockedBlocksNonAdmins(t *testing.T) {
	gate, lg, cfg, _ := newTestGate(t)
	_, err := lg.GetOrCreate(1001, "alice", "Alice")
	require.NoError(t, err)

	_, err = cfg.Toggle(settings.KeyBotLocked)
	require.NoError(t, err)

	verdict := gate.Check(context.Background(), privateReq(1001, 1.0))
	assert.Equal(t, ReasonLocked, verdict.Reason)
}

func TestCheckBanned(t *testing.T) {
	gate, lg, _, _ := newTestGate(t)
	_, err := lg.GetOrCreate(1001, "alice", "Alice")
	require.NoError(t, err)
	require.NoError(t, lg.SetBanned(1001, true))

	verdict := gate.Check(context.Background(), privateReq(1001, 1.0))
	assert.Equal(t, ReasonBanned, verdict.Reason)
}

func TestCheckInsufficientFunds(t *testing.T) {
	gate, lg, _, _ := newTestGate(t)
	user, err := lg.GetOrCreate(1001, "alice", "Alice")
	require.NoError(t, err)

	verdict := gate.Check(context.Background(), privateReq(1001, user.Credits+1))
	assert.Equal(t, ReasonInsufficientFunds, verdict.Reason)
}

func TestCheckUnknownUserPrivate(t *testing.T) {
	gate, _, _, _ := newTestGate(t)

	verdict := gate.Check(context.Background(), privateReq(9999, 1.0))
	assert.Equal(t, ReasonInsufficientFunds, verdict.Reason)
}

func TestCheckUnauthorizedGroup(t *testing.T) {
	gate, lg, _, _ := newTestGate(t)
	_, err := lg.GetOrCreate(1001, "alice", "Alice")
	require.NoError(t, err)

	verdict := gate.Check(context.Background(), groupReq(1001, -500))
	assert.Equal(t, ReasonUnauthorizedGroup, verdict.Reason)
}

func TestCheckGroupSearchesOff(t *testing.T) {
	gate, lg, cfg, _ := newTestGate(t)
	_, err := lg.GetOrCreate(1001, "alice", "Alice")
	require.NoError(t, err)
	require.NoError(t, cfg.AddGroup(-500, "testers"))

	_, err = cfg.Toggle(settings.KeyGroupSearchesOff)
	require.NoError(t, err)

	verdict := gate.Check(context.Background(), groupReq(1001, -500))
	assert.Equal(t, ReasonGroupSearchesOff, verdict.Reason)
}

func TestCheckQuota(t *testing.T) {
	gate, lg, cfg, _ := newTestGate(t)
	_, err := lg.GetOrCreate(1001, "alice", "Alice")
	require.NoError(t, err)
	require.NoError(t, cfg.AddGroup(-500, "testers"))

	// Default quota is 3 free group searches per day.
	for i := 0; i < 3; i++ {
		verdict := gate.Check(context.Background(), groupReq(1001, -500))
		require.True(t, verdict.OK)
		require.NoError(t, lg.IncrementGroupUsage(1001, "9876543210", "phone"))
	}

	verdict := gate.Check(context.Background(), groupReq(1001, -500))
	assert.Equal(t, ReasonQuotaExceeded, verdict.Reason)
}

func TestCheckMembershipRequired(t *testing.T) {
	gate, lg, cfg, membership := newTestGate(t)
	_, err := lg.GetOrCreate(1001, "alice", "Alice")
	require.NoError(t, err)
	require.NoError(t, cfg.AddChannel("@updates"))

	membership.member = false
	verdict := gate.Check(context.Background(), privateReq(1001, 1.0))
	assert.Equal(t, ReasonMembershipRequired, verdict.Reason)

	membership.member = true
	verdict = gate.Check(context.Background(), privateReq(1001, 1.0))
	assert.True(t, verdict.OK)

	// A failed membership query denies rather than letting the user through.
	membership.err = errors.New("telegram unavailable")
	verdict = gate.Check(context.Background(), privateReq(1001, 1.0))
	assert.Equal(t, ReasonMembershipRequired, verdict.Reason)
}
