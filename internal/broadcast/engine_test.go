package broadcast

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"lookup-bot/internal/database"
	"lookup-bot/internal/ledger"
	"lookup-bot/internal/models"
	"lookup-bot/internal/settings"
)

type fakeSender struct {
	sent    []Target
	failFor map[int64]bool
}

func (f *fakeSender) SendText(_ context.Context, target Target, _ string) error {
	if f.failFor[target.ChatID] {
		return errors.New("blocked")
	}
	f.sent = append(f.sent, target)
	return nil
}

func newTestEngine(t *testing.T) (*Engine, *ledger.Ledger, *settings.Settings) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	cfg, err := settings.Load(db)
	require.NoError(t, err)
	lg := ledger.New(database.NewStore(db), cfg)
	e := New(lg, cfg)
	e.delay = 0
	return e, lg, cfg
}

func TestTargetsCoverUsersGroupsAndChannels(t *testing.T) {
	e, lg, cfg := newTestEngine(t)
	for i := int64(1); i <= 3; i++ {
		_, err := lg.GetOrCreate(1000+i, fmt.Sprintf("user%d", i), "User")
		require.NoError(t, err)
	}
	require.NoError(t, cfg.AddGroup(-500, "testers"))
	require.NoError(t, cfg.AddChannel("@updates"))

	targets, err := e.Targets()
	require.NoError(t, err)
	assert.Len(t, targets, 5)
	assert.Contains(t, targets, Target{ChatID: -500})
	assert.Contains(t, targets, Target{Username: "@updates"})
}

func TestSendCountsFailuresAndContinues(t *testing.T) {
	e, _, _ := newTestEngine(t)
	sender := &fakeSender{failFor: map[int64]bool{1002: true}}
	targets := []Target{{ChatID: 1001}, {ChatID: 1002}, {ChatID: 1003}}

	res := e.Send(context.Background(), sender, targets, "hello")

	assert.Equal(t, 2, res.Sent)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 3, res.Total)
	assert.Len(t, sender.sent, 2)
}

func TestSendEmptyTargetSet(t *testing.T) {
	e, _, _ := newTestEngine(t)
	sender := &fakeSender{}

	res := e.Send(context.Background(), sender, nil, "hello")
	assert.Equal(t, Result{}, res)
}

func TestSendStopsOnCancelledContext(t *testing.T) {
	e, _, _ := newTestEngine(t)
	e.delay = 5 * time.Millisecond
	sender := &fakeSender{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	targets := []Target{{ChatID: 1001}, {ChatID: 1002}}
	res := e.Send(ctx, sender, targets, "hello")

	assert.Equal(t, 0, res.Sent)
	assert.Equal(t, 2, res.Failed)
	assert.Empty(t, sender.sent)
}

func TestUserRowsBecomeIDTargets(t *testing.T) {
	e, lg, _ := newTestEngine(t)
	_, err := lg.GetOrCreate(1001, "alice", "Alice")
	require.NoError(t, err)

	var user models.User
	require.NoError(t, lg.Store().DB.First(&user, "telegram_id = ?", int64(1001)).Error)

	targets, err := e.Targets()
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, user.TelegramID, targets[0].ChatID)
}
