package settings

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"lookup-bot/internal/database"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(newTestDB(t))
	require.NoError(t, err)

	v := cfg.Snapshot()
	assert.Equal(t, 3, v.DailyFreeSearches)
	assert.Equal(t, 1.0, v.PrivateSearchCost)
	assert.Equal(t, 0.5, v.ReferralBonus)
	assert.Equal(t, 5.0, v.JoiningBonus)
	assert.True(t, v.BotActive)
	assert.False(t, v.BotLocked)
	assert.False(t, v.MaintenanceMode)
}

func TestApplyPersists(t *testing.T) {
	db := newTestDB(t)
	cfg, err := Load(db)
	require.NoError(t, err)

	require.NoError(t, cfg.Apply(KeyDailyFreeSearches, "7"))
	assert.Equal(t, 7, cfg.Snapshot().DailyFreeSearches)

	// A fresh load from the same store sees the new value.
	reloaded, err := Load(db)
	require.NoError(t, err)
	assert.Equal(t, 7, reloaded.Snapshot().DailyFreeSearches)
}

func TestApplyValidation(t *testing.T) {
	cfg, err := Load(newTestDB(t))
	require.NoError(t, err)

	assert.ErrorIs(t, cfg.Apply(KeyDailyFreeSearches, "not-a-number"), ErrInvalidValue)
	assert.ErrorIs(t, cfg.Apply(KeyPrivateSearchCost, "-1"), ErrInvalidValue)
	assert.ErrorIs(t, cfg.Apply("no_such_key", "1"), ErrUnknownKey)

	// Nothing changed.
	v := cfg.Snapshot()
	assert.Equal(t, 3, v.DailyFreeSearches)
	assert.Equal(t, 1.0, v.PrivateSearchCost)
}

func TestTogglePersists(t *testing.T) {
	db := newTestDB(t)
	cfg, err := Load(db)
	require.NoError(t, err)

	on, err := cfg.Toggle(KeyMaintenanceMode)
	require.NoError(t, err)
	assert.True(t, on)
	assert.True(t, cfg.Snapshot().MaintenanceMode)

	reloaded, err := Load(db)
	require.NoError(t, err)
	assert.True(t, reloaded.Snapshot().MaintenanceMode)

	on, err = cfg.Toggle(KeyMaintenanceMode)
	require.NoError(t, err)
	assert.False(t, on)
}

func TestToggleUnknownKey(t *testing.T) {
	cfg, err := Load(newTestDB(t))
	require.NoError(t, err)

	_, err = cfg.Toggle("no_such_flag")
	assert.ErrorIs(t, err, ErrUnknownKey)
}

func TestGroupAllowList(t *testing.T) {
	db := newTestDB(t)
	cfg, err := Load(db)
	require.NoError(t, err)

	require.NoError(t, cfg.AddGroup(-500, "testers"))
	assert.Contains(t, cfg.Snapshot().AllowedGroups, int64(-500))

	reloaded, err := Load(db)
	require.NoError(t, err)
	assert.Contains(t, reloaded.Snapshot().AllowedGroups, int64(-500))

	require.NoError(t, cfg.RemoveGroup(-500))
	assert.NotContains(t, cfg.Snapshot().AllowedGroups, int64(-500))
}

func TestRequiredChannels(t *testing.T) {
	cfg, err := Load(newTestDB(t))
	require.NoError(t, err)

	require.NoError(t, cfg.AddChannel("@updates"))
	assert.Contains(t, cfg.Snapshot().RequiredChannels, "@updates")

	require.NoError(t, cfg.RemoveChannel("@updates"))
	assert.NotContains(t, cfg.Snapshot().RequiredChannels, "@updates")
}

func TestIsAdmin(t *testing.T) {
	cfg, err := Load(newTestDB(t))
	require.NoError(t, err)

	assert.False(t, cfg.IsAdmin(42))
	cfg.AddAdmin(42)
	assert.True(t, cfg.IsAdmin(42))

	// Adding twice keeps a single entry.
	cfg.AddAdmin(42)
	count := 0
	for _, id := range cfg.Snapshot().AdminIDs {
		if id == 42 {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestSnapshotIsACopy(t *testing.T) {
	cfg, err := Load(newTestDB(t))
	require.NoError(t, err)
	require.NoError(t, cfg.AddGroup(-500, ""))

	v := cfg.Snapshot()
	v.AllowedGroups[0] = -999

	assert.Contains(t, cfg.Snapshot().AllowedGroups, int64(-500))
}
