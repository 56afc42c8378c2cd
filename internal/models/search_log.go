package models

import (
	"time"
)

const (
	SearchKindPhone   = "phone"
	SearchKindVehicle = "vehicle"
	SearchKindEmail   = "email"

	SearchScopePrivate = "private"
	SearchScopeGroup   = "group"
)

// SearchLog is an append-only audit record, never updated.
type SearchLog struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    int64  `gorm:"not null;index"`
	Query     string `gorm:"size:255"`
	Kind      string `gorm:"size:16"`
	Scope     string `gorm:"size:16"`
	CreatedAt time.Time
}
