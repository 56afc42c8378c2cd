package models

import (
	"time"
)

type User struct {
	TelegramID    int64   `gorm:"primaryKey"`
	Username      string  `gorm:"size:255"`
	FirstName     string  `gorm:"size:255"`
	Credits       float64 `gorm:"default:0"`
	DailySearches int     `gorm:"default:0"`
	LastReset     time.Time
	TotalSearches int64  `gorm:"default:0"`
	ReferredBy    *int64 `gorm:"index"`
	ReferralCount int    `gorm:"default:0"`
	ReferralCode  string `gorm:"size:32;uniqueIndex"`
	JoinedAt      time.Time
	IsVerified    bool `gorm:"default:false"`
	IsBanned      bool `gorm:"default:false"`
	IsAdmin       bool `gorm:"default:false"`
}
