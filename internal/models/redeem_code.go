package models

import (
	"time"
)

type RedeemCode struct {
	Code      string  `gorm:"primaryKey;size:16"`
	Credits   float64 `gorm:"not null"`
	MaxUses   int     `gorm:"default:1"`
	UsedCount int     `gorm:"default:0"`
	CreatedAt time.Time
	IsActive  bool `gorm:"default:true"`
}

// CodeRedemption records that a user spent a code. The composite key
// enforces at most one redemption per (code, user) pair.
type CodeRedemption struct {
	Code       string `gorm:"primaryKey;size:16"`
	UserID     int64  `gorm:"primaryKey"`
	RedeemedAt time.Time
}
