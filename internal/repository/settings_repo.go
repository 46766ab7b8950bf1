package repository

import (
	"context"
	"errors"

	"github.com/kursadbilgin/application-notifier/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const adminRole = "admin"

type AdminRepository interface {
	ListAdmins(ctx context.Context) ([]domain.Admin, error)
	GetAdmin(ctx context.Context, id string) (*domain.Admin, error)
}

type PreferenceRepository interface {
	ListByUserIDs(ctx context.Context, userIDs []string) (map[string]domain.NotificationPreference, error)
	GetByUserID(ctx context.Context, userID string) (*domain.NotificationPreference, error)
	Upsert(ctx context.Context, p *domain.NotificationPreference) error
}

type BrandingRepository interface {
	Get(ctx context.Context) (*domain.EmailBranding, error)
	Upsert(ctx context.Context, b *domain.EmailBranding) error
}

type GormAdminRepo struct {
	db *gorm.DB
}

func NewGormAdminRepo(db *gorm.DB) *GormAdminRepo {
	return &GormAdminRepo{db: db}
}

func (r *GormAdminRepo) ListAdmins(ctx context.Context) ([]domain.Admin, error) {
	var models []ProfileModel
	err := r.db.WithContext(ctx).
		Where("role = ?", adminRole).
		Order("email ASC").
		Order("id ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	admins := make([]domain.Admin, 0, len(models))
	for _, m := range models {
		admins = append(admins, profileModelToAdmin(m))
	}
	return admins, nil
}

func (r *GormAdminRepo) GetAdmin(ctx context.Context, id string) (*domain.Admin, error) {
	var model ProfileModel
	err := r.db.WithContext(ctx).
		Where("id = ? AND role = ?", id, adminRole).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	admin := profileModelToAdmin(model)
	return &admin, nil
}

type GormPreferenceRepo struct {
	db *gorm.DB
}

func NewGormPreferenceRepo(db *gorm.DB) *GormPreferenceRepo {
	return &GormPreferenceRepo{db: db}
}

// ListByUserIDs returns stored rows keyed by user id. Users without a row are
// absent from the map.
func (r *GormPreferenceRepo) ListByUserIDs(ctx context.Context, userIDs []string) (map[string]domain.NotificationPreference, error) {
	out := make(map[string]domain.NotificationPreference, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}

	var models []NotificationPreferenceModel
	if err := r.db.WithContext(ctx).Where("user_id IN ?", userIDs).Find(&models).Error; err != nil {
		return nil, err
	}

	for i := range models {
		out[models[i].UserID] = *preferenceModelToDomain(&models[i])
	}
	return out, nil
}

func (r *GormPreferenceRepo) GetByUserID(ctx context.Context, userID string) (*domain.NotificationPreference, error) {
	var model NotificationPreferenceModel
	err := r.db.WithContext(ctx).First(&model, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return preferenceModelToDomain(&model), nil
}

func (r *GormPreferenceRepo) Upsert(ctx context.Context, p *domain.NotificationPreference) error {
	model := preferenceModelFromDomain(p)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"notify_on_new_application", "digest_frequency", "delivery_time", "updated_at"}),
		}).
		Create(model).Error
	if err != nil {
		return err
	}
	if p != nil {
		*p = *preferenceModelToDomain(model)
	}
	return nil
}

type GormBrandingRepo struct {
	db *gorm.DB
}

func NewGormBrandingRepo(db *gorm.DB) *GormBrandingRepo {
	return &GormBrandingRepo{db: db}
}

func (r *GormBrandingRepo) Get(ctx context.Context) (*domain.EmailBranding, error) {
	var model EmailBrandingModel
	err := r.db.WithContext(ctx).Order("id ASC").First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return brandingModelToDomain(&model), nil
}

func (r *GormBrandingRepo) Upsert(ctx context.Context, b *domain.EmailBranding) error {
	model := brandingModelFromDomain(b)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"primary_color", "secondary_color", "logo_url", "company_name", "website", "support_email", "updated_at",
			}),
		}).
		Create(model).Error
	if err != nil {
		return err
	}
	if b != nil {
		*b = *brandingModelToDomain(model)
	}
	return nil
}
