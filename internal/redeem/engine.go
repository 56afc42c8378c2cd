// Package redeem validates and applies one-time and limited-use credit
// codes. A redemption credits the user, bumps the code's use counter and
// records the (code, user) pair in one transaction, so a half-applied
// redemption can never leave a user credited against an unspent code.
package redeem

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"lookup-bot/internal/database"
	"lookup-bot/internal/models"
)

var (
	ErrCodeNotFound    = errors.New("code not found")
	ErrAlreadyRedeemed = errors.New("code already redeemed by user")
	ErrCodeExhausted   = errors.New("code exhausted")
	ErrInvalidInput    = errors.New("invalid input")
)

const (
	codeLength  = 8
	codeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

type Engine struct {
	store *database.Store
	loc   *time.Location
}

func New(store *database.Store, loc *time.Location) *Engine {
	return &Engine{store: store, loc: loc}
}

// Redeem applies code for userID and returns the credit value granted.
// Checks run in order: code exists and is active, user has not redeemed
// it before, uses remain. Concurrent attempts serialize on the store's
// exclusive section, so a single-use code can only ever pay out once.
func (e *Engine) Redeem(code string, userID int64) (float64, error) {
	var granted float64
	err := e.store.Exclusive(func(tx *gorm.DB) error {
		var rc models.RedeemCode
		err := tx.First(&rc, "code = ? AND is_active = ?", code, true).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCodeNotFound
		}
		if err != nil {
			return err
		}

		var existing models.CodeRedemption
		err = tx.First(&existing, "code = ? AND user_id = ?", code, userID).Error
		if err == nil {
			return ErrAlreadyRedeemed
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if rc.UsedCount >= rc.MaxUses {
			return ErrCodeExhausted
		}

		res := tx.Model(&models.User{}).Where("telegram_id = ?", userID).
			Update("credits", gorm.Expr("credits + ?", rc.Credits))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInvalidInput
		}
		err = tx.Model(&models.RedeemCode{}).Where("code = ?", code).
			Update("used_count", gorm.Expr("used_count + 1")).Error
		if err != nil {
			return err
		}
		err = tx.Create(&models.CodeRedemption{
			Code:       code,
			UserID:     userID,
			RedeemedAt: time.Now().In(e.loc),
		}).Error
		if err != nil {
			return err
		}
		granted = rc.Credits
		return nil
	})
	if err != nil {
		return 0, err
	}
	return granted, nil
}

// CreateCode issues a new random code worth credits, usable maxUses
// times in total. Exhausted codes stay in the table for audit.
func (e *Engine) CreateCode(credits float64, maxUses int) (*models.RedeemCode, error) {
	if credits <= 0 || maxUses <= 0 {
		return nil, ErrInvalidInput
	}
	rc := models.RedeemCode{
		Code:      generateCode(),
		Credits:   credits,
		MaxUses:   maxUses,
		CreatedAt: time.Now().In(e.loc),
		IsActive:  true,
	}
	err := e.store.Exclusive(func(tx *gorm.DB) error {
		return tx.Create(&rc).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create redeem code: %w", err)
	}
	return &rc, nil
}

func generateCode() string {
	buf := make([]byte, codeLength)
	_, _ = rand.Read(buf)
	for i, b := range buf {
		buf[i] = codeCharset[int(b)%len(codeCharset)]
	}
	return string(buf)
}
