package services

import (
	"context"
	"net/http"

	awspkg "github.com/rmtechsolution/valentine-backend/pkg/aws"
	"github.com/rmtechsolution/valentine-backend/services/story-service/models"
	"github.com/rmtechsolution/valentine-backend/services/story-service/pricing"
	"go.uber.org/zap"
)

// PromoService prices the story against a promo code.
type PromoService interface {
	Quote(ctx context.Context, code string) (*models.PromoQuote, *ServiceError)
}

type promoServiceImpl struct {
	catalog pricing.Catalog
	metrics awspkg.MetricsRecorder
	logger  *zap.Logger
}

func NewPromoService(catalog pricing.Catalog, metrics awspkg.MetricsRecorder, logger *zap.Logger) PromoService {
	return &promoServiceImpl{catalog: catalog, metrics: metrics, logger: logger}
}

func (s *promoServiceImpl) Quote(ctx context.Context, code string) (*models.PromoQuote, *ServiceError) {
	quote, err := pricing.ApplyPromo(ctx, s.catalog, pricing.BasePrice, code)
	if err != nil {
		s.logger.Error("Promo lookup failed", zap.String("code", quote.Code), zap.Error(err))
		return nil, newServiceError(http.StatusInternalServerError, "Failed to apply promo code")
	}

	if quote.Applied {
		recordCount(ctx, s.metrics, s.logger, awspkg.MetricPromoApplied, map[string]string{"Code": quote.Code})
	} else {
		recordCount(ctx, s.metrics, s.logger, awspkg.MetricPromoRejected, nil)
	}
	return &quote, nil
}
