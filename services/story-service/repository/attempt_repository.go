package repository

import (
	"context"
	"errors"

	"github.com/rmtechsolution/valentine-backend/services/story-service/models"
	"gorm.io/gorm"
)

var ErrAttemptNotFound = errors.New("payment attempt not found")

// AttemptRepository is the payment attempt ledger.
type AttemptRepository interface {
	Create(ctx context.Context, attempt *models.PaymentAttempt) error
	FindByOrderID(ctx context.Context, orderID string) (*models.PaymentAttempt, error)
	Update(ctx context.Context, orderID string, upd models.AttemptUpdate) error
	ListByStatus(ctx context.Context, status string, limit int) ([]models.PaymentAttempt, error)
}

// GormAttemptRepository implements AttemptRepository using GORM.
type GormAttemptRepository struct {
	db *gorm.DB
}

func NewGormAttemptRepository(db *gorm.DB) *GormAttemptRepository {
	return &GormAttemptRepository{db: db}
}

func (r *GormAttemptRepository) Create(ctx context.Context, attempt *models.PaymentAttempt) error {
	return r.db.WithContext(ctx).Create(attempt).Error
}

func (r *GormAttemptRepository) FindByOrderID(ctx context.Context, orderID string) (*models.PaymentAttempt, error) {
	var attempt models.PaymentAttempt
	err := r.db.WithContext(ctx).Where("gateway_order_id = ?", orderID).First(&attempt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAttemptNotFound
	}
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *GormAttemptRepository) Update(ctx context.Context, orderID string, upd models.AttemptUpdate) error {
	fields := updateFields(upd)
	if len(fields) == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.PaymentAttempt{}).
		Where("gateway_order_id = ?", orderID).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAttemptNotFound
	}
	return nil
}

// ListByStatus returns the newest attempts in status, at most limit of them.
func (r *GormAttemptRepository) ListByStatus(ctx context.Context, status string, limit int) ([]models.PaymentAttempt, error) {
	var attempts []models.PaymentAttempt
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at DESC").
		Limit(limit).
		Find(&attempts).Error
	return attempts, err
}

// updateFields maps the non-nil fields of upd to their column names.
func updateFields(upd models.AttemptUpdate) map[string]interface{} {
	fields := make(map[string]interface{})
	if upd.Status != nil {
		fields["status"] = *upd.Status
	}
	if upd.GatewayStatus != nil {
		fields["gateway_status"] = *upd.GatewayStatus
	}
	if upd.PaymentID != nil {
		fields["payment_id"] = *upd.PaymentID
	}
	if upd.StoryID != nil {
		fields["story_id"] = *upd.StoryID
	}
	if upd.FailureReason != nil {
		fields["failure_reason"] = *upd.FailureReason
	}
	return fields
}
