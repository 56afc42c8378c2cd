// Package ledger implements all balance and quota mutations. Every
// mutating sequence runs through the store's exclusive transaction so
// concurrent chat events cannot double-award a referral or debit past
// zero.
package ledger

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"lookup-bot/internal/database"
	"lookup-bot/internal/models"
	"lookup-bot/internal/settings"
)

var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNotFound          = errors.New("user not found")
	ErrInvalidInput      = errors.New("invalid input")
)

type Ledger struct {
	store    *database.Store
	settings *settings.Settings
}

func New(store *database.Store, cfg *settings.Settings) *Ledger {
	return &Ledger{store: store, settings: cfg}
}

// Store exposes the shared exclusive-transaction boundary so sibling
// engines (redeem) join the same critical section.
func (l *Ledger) Store() *database.Store {
	return l.store
}

// GetOrCreate returns the account for userID, creating it with the
// joining bonus and a fresh referral code on first contact. The display
// name is refreshed opportunistically on existing rows.
func (l *Ledger) GetOrCreate(userID int64, username, firstName string) (*models.User, error) {
	var user models.User
	err := l.store.Exclusive(func(tx *gorm.DB) error {
		err := tx.First(&user, "telegram_id = ?", userID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			now := time.Now().In(l.settings.Location())
			user = models.User{
				TelegramID:   userID,
				Username:     username,
				FirstName:    firstName,
				Credits:      l.settings.Snapshot().JoiningBonus,
				ReferralCode: referralCode(userID),
				LastReset:    now,
				JoinedAt:     now,
			}
			return tx.Create(&user).Error
		}
		if err != nil {
			return err
		}
		if (username != "" && username != user.Username) ||
			(firstName != "" && firstName != user.FirstName) {
			if username != "" {
				user.Username = username
			}
			if firstName != "" {
				user.FirstName = firstName
			}
			return tx.Model(&models.User{}).Where("telegram_id = ?", userID).
				Updates(map[string]any{"username": user.Username, "first_name": user.FirstName}).Error
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get or create user %d: %w", userID, err)
	}
	return &user, nil
}

// ResetDailyQuotaIfNeeded zeroes the daily counter when the calendar
// date (in the configured zone) has advanced past the last reset. Safe
// to call on every interaction; a no-op most of the time.
func (l *Ledger) ResetDailyQuotaIfNeeded(userID int64) (bool, error) {
	reset := false
	err := l.store.Exclusive(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, "telegram_id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		now := time.Now().In(l.settings.Location())
		if sameDay(user.LastReset.In(l.settings.Location()), now) {
			return nil
		}
		reset = true
		return tx.Model(&models.User{}).Where("telegram_id = ?", userID).
			Updates(map[string]any{"daily_searches": 0, "last_reset": now}).Error
	})
	if err != nil {
		return false, fmt.Errorf("daily reset for user %d: %w", userID, err)
	}
	return reset, nil
}

// Debit subtracts amount and bumps the lifetime search counter,
// returning the new balance. It never lets a balance go negative.
func (l *Ledger) Debit(userID int64, amount float64) (float64, error) {
	if amount < 0 {
		return 0, ErrInvalidInput
	}
	var balance float64
	err := l.store.Exclusive(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, "telegram_id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if user.Credits < amount {
			return ErrInsufficientFunds
		}
		balance = user.Credits - amount
		return tx.Model(&models.User{}).Where("telegram_id = ?", userID).
			Updates(map[string]any{
				"credits":        gorm.Expr("credits - ?", amount),
				"total_searches": gorm.Expr("total_searches + 1"),
			}).Error
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// DebitForSearch debits the search cost and appends the audit log entry
// as one unit. A partial apply (charged but not logged) would be a
// correctness bug, hence the single transaction.
func (l *Ledger) DebitForSearch(userID int64, amount float64, query, kind string) (float64, error) {
	if amount < 0 {
		return 0, ErrInvalidInput
	}
	var balance float64
	err := l.store.Exclusive(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, "telegram_id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if user.Credits < amount {
			return ErrInsufficientFunds
		}
		balance = user.Credits - amount
		err := tx.Model(&models.User{}).Where("telegram_id = ?", userID).
			Updates(map[string]any{
				"credits":        gorm.Expr("credits - ?", amount),
				"total_searches": gorm.Expr("total_searches + 1"),
			}).Error
		if err != nil {
			return err
		}
		return tx.Create(&models.SearchLog{
			UserID:    userID,
			Query:     query,
			Kind:      kind,
			Scope:     models.SearchScopePrivate,
			CreatedAt: time.Now().In(l.settings.Location()),
		}).Error
	})
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// Credit adds amount unconditionally (joining bonus, admin grants,
// redeem payouts).
func (l *Ledger) Credit(userID int64, amount float64) error {
	if amount < 0 {
		return ErrInvalidInput
	}
	return l.store.Exclusive(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).Where("telegram_id = ?", userID).
			Update("credits", gorm.Expr("credits + ?", amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// AwardReferral links newUserID to inviterID and pays the inviter the
// referral bonus, exactly once. Returns false without error when the
// link already exists, the inviter is unknown, or the user tries to
// refer themselves; a duplicated /start message is therefore a no-op.
func (l *Ledger) AwardReferral(newUserID, inviterID int64) (bool, error) {
	if newUserID == inviterID {
		return false, nil
	}
	awarded := false
	err := l.store.Exclusive(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, "telegram_id = ?", newUserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if user.ReferredBy != nil {
			return nil
		}
		var inviter models.User
		if err := tx.First(&inviter, "telegram_id = ?", inviterID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}

		bonus := l.settings.Snapshot().ReferralBonus
		err := tx.Model(&models.User{}).Where("telegram_id = ?", newUserID).
			Update("referred_by", inviterID).Error
		if err != nil {
			return err
		}
		err = tx.Model(&models.User{}).Where("telegram_id = ?", inviterID).
			Updates(map[string]any{
				"credits":        gorm.Expr("credits + ?", bonus),
				"referral_count": gorm.Expr("referral_count + 1"),
			}).Error
		if err != nil {
			return err
		}
		awarded = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("award referral %d -> %d: %w", inviterID, newUserID, err)
	}
	return awarded, nil
}

// IncrementGroupUsage bumps today's free-tier counter and logs the
// search; the quota check itself belongs to the access gate.
func (l *Ledger) IncrementGroupUsage(userID int64, query, kind string) error {
	return l.store.Exclusive(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).Where("telegram_id = ?", userID).
			Updates(map[string]any{
				"daily_searches": gorm.Expr("daily_searches + 1"),
				"total_searches": gorm.Expr("total_searches + 1"),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return tx.Create(&models.SearchLog{
			UserID:    userID,
			Query:     query,
			Kind:      kind,
			Scope:     models.SearchScopeGroup,
			CreatedAt: time.Now().In(l.settings.Location()),
		}).Error
	})
}

// SetBanned flips the soft-ban flag; accounts are never deleted.
func (l *Ledger) SetBanned(userID int64, banned bool) error {
	return l.store.Exclusive(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).Where("telegram_id = ?", userID).
			Update("is_banned", banned)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// SetAdmin persists the admin flag on the account row.
func (l *Ledger) SetAdmin(userID int64) error {
	return l.store.Exclusive(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).Where("telegram_id = ?", userID).
			Update("is_admin", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// referralCode derives the immutable code as the user id plus a short
// random hex suffix, truncated to eight characters.
func referralCode(userID int64) string {
	var buf [3]byte
	_, _ = rand.Read(buf[:])
	code := fmt.Sprintf("%d%s", userID, hex.EncodeToString(buf[:]))
	if len(code) > 8 {
		code = code[:8]
	}
	return code
}
