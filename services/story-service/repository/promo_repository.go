package repository

import (
	"context"
	"errors"

	"github.com/rmtechsolution/valentine-backend/services/story-service/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PromoRepository serves promo codes from the promo_codes table.
type PromoRepository struct {
	db *gorm.DB
}

func NewPromoRepository(db *gorm.DB) *PromoRepository {
	return &PromoRepository{db: db}
}

// Lookup finds an active code. code must already be normalized.
func (r *PromoRepository) Lookup(ctx context.Context, code string) (int64, bool, error) {
	var promo models.PromoCode
	err := r.db.WithContext(ctx).
		Where("code = ? AND active = ?", code, true).
		First(&promo).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return promo.Discount, true, nil
}

// Seed inserts codes that are not in the table yet; existing rows are kept.
func (r *PromoRepository) Seed(ctx context.Context, codes map[string]int64) error {
	if len(codes) == 0 {
		return nil
	}
	rows := make([]models.PromoCode, 0, len(codes))
	for code, discount := range codes {
		rows = append(rows, models.PromoCode{Code: code, Discount: discount, Active: true})
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error
}
