package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kursadbilgin/application-notifier/internal/domain"
	"github.com/kursadbilgin/application-notifier/internal/repository"
	"go.uber.org/zap"
)

// SettingsService backs the admin settings screens: per-admin preferences,
// the global branding row and the notification audit log.
type SettingsService struct {
	admins      repository.AdminRepository
	preferences repository.PreferenceRepository
	branding    repository.BrandingRepository
	logs        repository.NotificationLogRepository
	logger      *zap.Logger
	now         func() time.Time
}

func NewSettingsService(
	admins repository.AdminRepository,
	preferences repository.PreferenceRepository,
	branding repository.BrandingRepository,
	logs repository.NotificationLogRepository,
	logger *zap.Logger,
) (*SettingsService, error) {
	if admins == nil || preferences == nil || branding == nil || logs == nil {
		return nil, errors.New("admin, preference, branding and log repositories are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SettingsService{
		admins:      admins,
		preferences: preferences,
		branding:    branding,
		logs:        logs,
		logger:      logger,
		now:         time.Now,
	}, nil
}

// GetPreference returns the stored preference or the defaults when the admin
// never saved one.
func (s *SettingsService) GetPreference(ctx context.Context, userID string) (domain.NotificationPreference, error) {
	if _, err := s.admins.GetAdmin(ctx, strings.TrimSpace(userID)); err != nil {
		return domain.NotificationPreference{}, err
	}

	pref, err := s.preferences.GetByUserID(ctx, strings.TrimSpace(userID))
	if errors.Is(err, domain.ErrNotFound) {
		return domain.DefaultPreference(strings.TrimSpace(userID)), nil
	}
	if err != nil {
		return domain.NotificationPreference{}, fmt.Errorf("failed to load preference: %w", err)
	}
	return *pref, nil
}

func (s *SettingsService) UpdatePreference(ctx context.Context, pref domain.NotificationPreference) (domain.NotificationPreference, error) {
	pref.UserID = strings.TrimSpace(pref.UserID)
	if err := pref.Validate(); err != nil {
		return domain.NotificationPreference{}, err
	}
	if _, err := s.admins.GetAdmin(ctx, pref.UserID); err != nil {
		return domain.NotificationPreference{}, err
	}

	pref.UpdatedAt = s.now().UTC()
	if err := s.preferences.Upsert(ctx, &pref); err != nil {
		return domain.NotificationPreference{}, fmt.Errorf("failed to save preference: %w", err)
	}

	s.logger.Info("notification preference updated",
		zap.String("userId", pref.UserID),
		zap.Bool("notifyOnNewApplication", pref.NotifyOnNewApplication),
		zap.String("digestFrequency", pref.DigestFrequency.String()),
	)
	return pref, nil
}

// GetBranding returns the effective branding, defaults included.
func (s *SettingsService) GetBranding(ctx context.Context) (domain.EmailBranding, error) {
	stored, err := s.branding.Get(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.DefaultBranding(), nil
	}
	if err != nil {
		return domain.EmailBranding{}, fmt.Errorf("failed to load branding: %w", err)
	}
	return stored.WithDefaults(), nil
}

func (s *SettingsService) UpdateBranding(ctx context.Context, branding domain.EmailBranding) (domain.EmailBranding, error) {
	if err := branding.Validate(); err != nil {
		return domain.EmailBranding{}, err
	}

	branding.UpdatedAt = s.now().UTC()
	if err := s.branding.Upsert(ctx, &branding); err != nil {
		return domain.EmailBranding{}, fmt.Errorf("failed to save branding: %w", err)
	}

	s.logger.Info("email branding updated", zap.String("companyName", branding.CompanyName))
	return branding.WithDefaults(), nil
}

type LogPage struct {
	Entries  []domain.NotificationLogEntry
	Total    int64
	Page     int
	PageSize int
}

func (s *SettingsService) ListLogs(ctx context.Context, params repository.LogListParams) (LogPage, error) {
	if params.From != nil && params.To != nil && params.From.After(*params.To) {
		return LogPage{}, fmt.Errorf("%w: from must not be after to", domain.ErrValidation)
	}

	entries, total, err := s.logs.List(ctx, params)
	if err != nil {
		return LogPage{}, fmt.Errorf("failed to list notification logs: %w", err)
	}

	page := max(params.Page, 1)
	pageSize := params.PageSize
	if pageSize < 1 {
		pageSize = 50
	}
	return LogPage{
		Entries:  entries,
		Total:    total,
		Page:     page,
		PageSize: min(pageSize, 100),
	}, nil
}
