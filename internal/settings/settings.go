// Package settings owns the runtime configuration of the bot: quota
// size, per-search cost, bonuses, toggles and the admin/group/channel
// lists. Values load from the bot_settings table at startup, environment
// variables win over persisted rows, and every admin change is written
// back so a restart keeps the latest values.
package settings

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"lookup-bot/internal/models"
)

var (
	ErrUnknownKey   = errors.New("unknown setting key")
	ErrInvalidValue = errors.New("invalid setting value")
)

// Setting keys as persisted in bot_settings.
const (
	KeyDailyFreeSearches = "daily_free_searches"
	KeyPrivateSearchCost = "private_search_cost"
	KeyReferralBonus     = "referral_bonus"
	KeyJoiningBonus      = "joining_bonus"
	KeyLogChannelID      = "log_channel_id"
	KeyBotLocked         = "bot_locked"
	KeyMaintenanceMode   = "maintenance_mode"
	KeyGroupSearchesOff  = "group_searches_off"
	KeyBotActive         = "bot_active"
)

// Values is a snapshot of the runtime settings. Callers receive a copy;
// mutation happens only through Settings methods.
type Values struct {
	DailyFreeSearches int
	PrivateSearchCost float64
	ReferralBonus     float64
	JoiningBonus      float64
	LogChannelID      int64

	BotLocked        bool
	MaintenanceMode  bool
	GroupSearchesOff bool
	BotActive        bool

	AdminIDs         []int64
	AllowedGroups    []int64
	RequiredChannels []string
	ChannelLinks     []string
}

type Settings struct {
	mu  sync.RWMutex
	v   Values
	db  *gorm.DB
	loc *time.Location
}

// Load builds the settings in layers: compiled defaults, then persisted
// bot_settings rows and the allow-list tables, then environment.
func Load(db *gorm.DB) (*Settings, error) {
	s := &Settings{
		db: db,
		v: Values{
			DailyFreeSearches: 3,
			PrivateSearchCost: 1.0,
			ReferralBonus:     0.5,
			JoiningBonus:      5.0,
			BotActive:         true,
		},
	}

	loc, err := time.LoadLocation(envOr("BOT_TIMEZONE", "Asia/Kolkata"))
	if err != nil {
		log.Printf("Invalid BOT_TIMEZONE, falling back to IST: %v", err)
		loc = time.FixedZone("IST", 5*3600+1800)
	}
	s.loc = loc

	if err := s.loadPersisted(); err != nil {
		return nil, err
	}
	s.loadEnv()

	return s, nil
}

func (s *Settings) loadPersisted() error {
	var rows []models.Setting
	if err := s.db.Find(&rows).Error; err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}
	for _, row := range rows {
		if err := s.set(row.Key, row.Value); err != nil {
			log.Printf("Skipping bad persisted setting %s=%q: %v", row.Key, row.Value, err)
		}
	}

	var groups []int64
	if err := s.db.Model(&models.AllowedGroup{}).Pluck("group_id", &groups).Error; err != nil {
		return fmt.Errorf("failed to load allowed groups: %w", err)
	}
	if len(groups) > 0 {
		s.v.AllowedGroups = groups
	}

	var channels []string
	if err := s.db.Model(&models.RequiredChannel{}).Pluck("channel", &channels).Error; err != nil {
		return fmt.Errorf("failed to load required channels: %w", err)
	}
	if len(channels) > 0 {
		s.v.RequiredChannels = channels
	}

	var admins []int64
	if err := s.db.Model(&models.User{}).Where("is_admin = ?", true).Pluck("telegram_id", &admins).Error; err != nil {
		return fmt.Errorf("failed to load admin ids: %w", err)
	}
	if len(admins) > 0 {
		s.v.AdminIDs = admins
	}

	return nil
}

func (s *Settings) loadEnv() {
	for _, key := range []string{
		KeyDailyFreeSearches, KeyPrivateSearchCost, KeyReferralBonus,
		KeyJoiningBonus, KeyLogChannelID, KeyBotLocked,
		KeyMaintenanceMode, KeyGroupSearchesOff, KeyBotActive,
	} {
		if value, ok := os.LookupEnv(strings.ToUpper(key)); ok {
			if err := s.set(key, value); err != nil {
				log.Printf("Ignoring bad env override %s=%q: %v", key, value, err)
			}
		}
	}
	if value, ok := os.LookupEnv("ADMIN_IDS"); ok {
		s.v.AdminIDs = parseIDList(value)
	}
	if value, ok := os.LookupEnv("ALLOWED_GROUPS"); ok {
		s.v.AllowedGroups = parseIDList(value)
	}
	if value, ok := os.LookupEnv("REQUIRED_CHANNELS"); ok {
		s.v.RequiredChannels = parseStringList(value)
	}
	if value, ok := os.LookupEnv("CHANNEL_LINKS"); ok {
		s.v.ChannelLinks = parseStringList(value)
	}
}

// set parses and assigns a single keyed value. Callers hold the write
// lock or run before the settings are shared.
func (s *Settings) set(key, value string) error {
	switch key {
	case KeyDailyFreeSearches:
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil || n < 0 {
			return ErrInvalidValue
		}
		s.v.DailyFreeSearches = n
	case KeyPrivateSearchCost:
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil || f < 0 {
			return ErrInvalidValue
		}
		s.v.PrivateSearchCost = f
	case KeyReferralBonus:
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil || f < 0 {
			return ErrInvalidValue
		}
		s.v.ReferralBonus = f
	case KeyJoiningBonus:
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil || f < 0 {
			return ErrInvalidValue
		}
		s.v.JoiningBonus = f
	case KeyLogChannelID:
		n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return ErrInvalidValue
		}
		s.v.LogChannelID = n
	case KeyBotLocked, KeyMaintenanceMode, KeyGroupSearchesOff, KeyBotActive:
		b, err := strconv.ParseBool(strings.TrimSpace(strings.ToLower(value)))
		if err != nil {
			return ErrInvalidValue
		}
		switch key {
		case KeyBotLocked:
			s.v.BotLocked = b
		case KeyMaintenanceMode:
			s.v.MaintenanceMode = b
		case KeyGroupSearchesOff:
			s.v.GroupSearchesOff = b
		case KeyBotActive:
			s.v.BotActive = b
		}
	default:
		return ErrUnknownKey
	}
	return nil
}

// Snapshot returns a copy of the current values. Slices are copied so a
// later admin change cannot race a reader.
func (s *Settings) Snapshot() Values {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v := s.v
	v.AdminIDs = append([]int64(nil), s.v.AdminIDs...)
	v.AllowedGroups = append([]int64(nil), s.v.AllowedGroups...)
	v.RequiredChannels = append([]string(nil), s.v.RequiredChannels...)
	v.ChannelLinks = append([]string(nil), s.v.ChannelLinks...)
	return v
}

func (s *Settings) Location() *time.Location {
	return s.loc
}

func (s *Settings) IsAdmin(userID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range s.v.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Apply validates and sets a keyed value, then persists it. This is the
// single mutation path for scalar settings; the caller is responsible
// for admin authorization.
func (s *Settings) Apply(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.set(key, value); err != nil {
		return err
	}
	return s.persist(key, value)
}

// Toggle flips one of the boolean settings and persists it, returning
// the new value.
func (s *Settings) Toggle(key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var now bool
	switch key {
	case KeyBotLocked:
		s.v.BotLocked = !s.v.BotLocked
		now = s.v.BotLocked
	case KeyMaintenanceMode:
		s.v.MaintenanceMode = !s.v.MaintenanceMode
		now = s.v.MaintenanceMode
	case KeyGroupSearchesOff:
		s.v.GroupSearchesOff = !s.v.GroupSearchesOff
		now = s.v.GroupSearchesOff
	case KeyBotActive:
		s.v.BotActive = !s.v.BotActive
		now = s.v.BotActive
	default:
		return false, ErrUnknownKey
	}
	return now, s.persist(key, strconv.FormatBool(now))
}

// SetBotActive sets the global on/off flag directly; used by the
// control panel toggle.
func (s *Settings) SetBotActive(active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.v.BotActive = active
	return s.persist(KeyBotActive, strconv.FormatBool(active))
}

func (s *Settings) AddGroup(groupID int64, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := models.AllowedGroup{GroupID: groupID, GroupName: name, AddedAt: time.Now().In(s.loc)}
	if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to save group: %w", err)
	}
	for _, id := range s.v.AllowedGroups {
		if id == groupID {
			return nil
		}
	}
	s.v.AllowedGroups = append(s.v.AllowedGroups, groupID)
	return nil
}

func (s *Settings) RemoveGroup(groupID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.Delete(&models.AllowedGroup{}, "group_id = ?", groupID).Error; err != nil {
		return fmt.Errorf("failed to remove group: %w", err)
	}
	s.v.AllowedGroups = removeID(s.v.AllowedGroups, groupID)
	return nil
}

func (s *Settings) AddChannel(channel string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row := models.RequiredChannel{Channel: channel, AddedAt: time.Now().In(s.loc)}
	if err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to save channel: %w", err)
	}
	for _, ch := range s.v.RequiredChannels {
		if ch == channel {
			return nil
		}
	}
	s.v.RequiredChannels = append(s.v.RequiredChannels, channel)
	return nil
}

func (s *Settings) RemoveChannel(channel string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.Delete(&models.RequiredChannel{}, "channel = ?", channel).Error; err != nil {
		return fmt.Errorf("failed to remove channel: %w", err)
	}
	out := s.v.RequiredChannels[:0]
	for _, ch := range s.v.RequiredChannels {
		if ch != channel {
			out = append(out, ch)
		}
	}
	s.v.RequiredChannels = out
	return nil
}

// AddAdmin registers the id in the in-memory admin list. The persistent
// is_admin flag on the user row is owned by the ledger.
func (s *Settings) AddAdmin(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.v.AdminIDs {
		if id == userID {
			return
		}
	}
	s.v.AdminIDs = append(s.v.AdminIDs, userID)
}

func (s *Settings) persist(key, value string) error {
	row := models.Setting{Key: key, Value: value}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to persist setting %s: %w", key, err)
	}
	return nil
}

func envOr(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func parseIDList(value string) []int64 {
	var out []int64
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			log.Printf("Ignoring bad id %q in list", part)
			continue
		}
		out = append(out, id)
	}
	return out
}

func parseStringList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func removeID(ids []int64, target int64) []int64 {
	out := ids[:0]
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}
