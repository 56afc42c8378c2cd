package models

import (
	"time"
)

type AllowedGroup struct {
	GroupID   int64  `gorm:"primaryKey"`
	GroupName string `gorm:"size:255"`
	AddedAt   time.Time
}

type RequiredChannel struct {
	Channel string `gorm:"primaryKey;size:255"`
	AddedAt time.Time
}

// Setting is a single persisted runtime setting. The whole table is a
// flat key-value document written back on every admin change.
type Setting struct {
	Key   string `gorm:"primaryKey;size:64"`
	Value string `gorm:"size:255"`
}
