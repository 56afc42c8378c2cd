package ledger

import (
	"errors"

	"gorm.io/gorm"

	"lookup-bot/internal/models"
)

// Read-side queries. These run outside the exclusive section; a stale
// balance on a display screen is acceptable.

func (l *Ledger) Get(userID int64) (*models.User, error) {
	var user models.User
	err := l.store.DB.First(&user, "telegram_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (l *Ledger) FindByReferralCode(code string) (*models.User, error) {
	var user models.User
	err := l.store.DB.First(&user, "referral_code = ?", code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (l *Ledger) AllUserIDs() ([]int64, error) {
	var ids []int64
	err := l.store.DB.Model(&models.User{}).Pluck("telegram_id", &ids).Error
	return ids, err
}

// SearchCounts returns per-kind search totals for one user.
func (l *Ledger) SearchCounts(userID int64) (map[string]int64, error) {
	type row struct {
		Kind  string
		Total int64
	}
	var rows []row
	err := l.store.DB.Model(&models.SearchLog{}).
		Select("kind, COUNT(*) as total").
		Where("user_id = ?", userID).
		Group("kind").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Kind] = r.Total
	}
	return out, nil
}

// Stats aggregates the counters shown on the admin panel.
type Stats struct {
	TotalUsers     int64
	TotalSearches  int64
	TotalCredits   float64
	ActiveCodes    int64
	BannedUsers    int64
	VerifiedUsers  int64
	AdminUsers     int64
	TotalReferrals int64
	TotalRedeemed  int64
}

func (l *Ledger) CollectStats() (*Stats, error) {
	db := l.store.DB
	var s Stats
	if err := db.Model(&models.User{}).Count(&s.TotalUsers).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.SearchLog{}).Count(&s.TotalSearches).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.User{}).Select("COALESCE(SUM(credits), 0)").Scan(&s.TotalCredits).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.RedeemCode{}).Where("is_active = ?", true).Count(&s.ActiveCodes).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.User{}).Where("is_banned = ?", true).Count(&s.BannedUsers).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.User{}).Where("is_verified = ?", true).Count(&s.VerifiedUsers).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.User{}).Where("is_admin = ?", true).Count(&s.AdminUsers).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.User{}).Select("COALESCE(SUM(referral_count), 0)").Scan(&s.TotalReferrals).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.CodeRedemption{}).Count(&s.TotalRedeemed).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (l *Ledger) TopReferrers(limit int) ([]models.User, error) {
	var users []models.User
	err := l.store.DB.
		Order("referral_count DESC").
		Limit(limit).
		Find(&users).Error
	return users, err
}
