package service

import (
	"context"
	"errors"

	"github.com/kursadbilgin/application-notifier/internal/domain"
	"github.com/kursadbilgin/application-notifier/internal/observability"
	"github.com/kursadbilgin/application-notifier/internal/repository"
	"go.uber.org/zap"
)

// BrandingResolver reads the branding row on every call so admin edits apply
// to the next email without a restart.
type BrandingResolver struct {
	branding repository.BrandingRepository
	logger   *zap.Logger
}

func NewBrandingResolver(branding repository.BrandingRepository, logger *zap.Logger) *BrandingResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BrandingResolver{branding: branding, logger: logger}
}

// Resolve never fails. Any problem reading the row yields the defaults.
func (r *BrandingResolver) Resolve(ctx context.Context) domain.EmailBranding {
	if r.branding == nil {
		return domain.DefaultBranding()
	}

	stored, err := r.branding.Get(ctx)
	if err != nil {
		log := observability.WithContextLogger(r.logger, ctx)
		if errors.Is(err, domain.ErrNotFound) {
			log.Warn("no email branding configured, using defaults")
		} else {
			log.Warn("failed to load email branding, using defaults", zap.Error(err))
		}
		return domain.DefaultBranding()
	}
	if stored == nil {
		return domain.DefaultBranding()
	}
	return stored.WithDefaults()
}
