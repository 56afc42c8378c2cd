package database

import (
	"sync"

	"gorm.io/gorm"
)

// Store wraps the shared DB handle with a process-wide mutex. SQLite and
// Postgres alike are not trusted to serialize our multi-statement
// sequences, so every mutating unit of work goes through Exclusive:
// debits, referral awards, redemptions and quota increments either fully
// apply or roll back, and never interleave.
//
// Read-only queries go straight through DB; stale reads are acceptable
// there.
type Store struct {
	DB *gorm.DB

	mu sync.Mutex
}

func NewStore(db *gorm.DB) *Store {
	return &Store{DB: db}
}

// Exclusive runs fn inside a transaction while holding the global write
// lock. fn returning an error rolls the transaction back.
func (s *Store) Exclusive(fn func(tx *gorm.DB) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.DB.Transaction(fn)
}
