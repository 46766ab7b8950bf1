package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/application-notifier/internal/domain"
	"gorm.io/gorm"
)

type LogListParams struct {
	Kind            *domain.NotificationKind
	ApplicationKind *domain.ApplicationKind
	ApplicationID   *string
	From            *time.Time
	To              *time.Time
	Page            int
	PageSize        int
}

type NotificationLogRepository interface {
	Create(ctx context.Context, e *domain.NotificationLogEntry) error
	List(ctx context.Context, params LogListParams) ([]domain.NotificationLogEntry, int64, error)
}

type GormNotificationLogRepo struct {
	db *gorm.DB
}

func NewGormNotificationLogRepo(db *gorm.DB) *GormNotificationLogRepo {
	return &GormNotificationLogRepo{db: db}
}

func (r *GormNotificationLogRepo) Create(ctx context.Context, e *domain.NotificationLogEntry) error {
	if e == nil {
		return nil
	}
	prepareLogEntry(e)
	if err := e.Validate(); err != nil {
		return err
	}

	model := logModelFromDomain(e)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	*e = *logModelToDomain(model)
	return nil
}

func (r *GormNotificationLogRepo) List(ctx context.Context, params LogListParams) ([]domain.NotificationLogEntry, int64, error) {
	query := r.db.WithContext(ctx).Model(&NotificationLogModel{})

	if params.Kind != nil {
		query = query.Where("notification_type = ?", *params.Kind)
	}
	if params.ApplicationKind != nil {
		query = query.Where("application_type = ?", *params.ApplicationKind)
	}
	if params.ApplicationID != nil {
		query = query.Where("application_id = ?", *params.ApplicationID)
	}
	if params.From != nil {
		query = query.Where("sent_at >= ?", params.From.UTC())
	}
	if params.To != nil {
		query = query.Where("sent_at <= ?", params.To.UTC())
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := max(params.Page, 1)
	pageSize := params.PageSize
	if pageSize < 1 {
		pageSize = 50
	}
	pageSize = min(pageSize, 100)

	var models []NotificationLogModel
	err := query.
		Order("sent_at DESC").
		Order("id DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}

	entries := make([]domain.NotificationLogEntry, 0, len(models))
	for i := range models {
		entries = append(entries, *logModelToDomain(&models[i]))
	}

	return entries, total, nil
}

func prepareLogEntry(e *domain.NotificationLogEntry) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.SentAt.IsZero() {
		e.SentAt = time.Now().UTC()
	}
}
