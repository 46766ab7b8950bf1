package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/kursadbilgin/application-notifier/internal/domain"
	"gorm.io/gorm"
)

type ApplicationRepository interface {
	GetByRef(ctx context.Context, ref domain.ApplicationRef) (domain.Application, error)
	ListSince(ctx context.Context, kind domain.ApplicationKind, since time.Time, limit int) ([]domain.ApplicationSummary, error)
	CountSince(ctx context.Context, kind domain.ApplicationKind, since time.Time) (int64, error)
	UpdateStatus(ctx context.Context, ref domain.ApplicationRef, update StatusUpdate) error
}

// StatusUpdate is the set of columns an admin status change writes.
type StatusUpdate struct {
	Status     domain.ApplicationStatus
	AdminNotes *string
	ReviewedAt time.Time
}

type jobApplicationRow struct {
	ID             string
	JobID          string
	JobTitle       *string
	ApplicantName  string
	ApplicantEmail string
	Status         domain.ApplicationStatus
	AdminNotes     *string
	AppliedAt      time.Time
	ReviewedAt     *time.Time
}

type tenderApplicationRow struct {
	ID           string
	TenderID     string
	TenderTitle  *string
	CompanyName  string
	ContactEmail string
	Status       domain.ApplicationStatus
	AdminNotes   *string
	AppliedAt    time.Time
	ReviewedAt   *time.Time
}

type GormApplicationRepo struct {
	db *gorm.DB
}

func NewGormApplicationRepo(db *gorm.DB) *GormApplicationRepo {
	return &GormApplicationRepo{db: db}
}

// GetByRef loads one application with its posting title. A missing
// application or a dangling posting reference is ErrNotFound.
func (r *GormApplicationRepo) GetByRef(ctx context.Context, ref domain.ApplicationRef) (domain.Application, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}

	switch ref.Kind {
	case domain.ApplicationKindJob:
		return r.getJobApplication(ctx, ref.ID)
	case domain.ApplicationKindTender:
		return r.getTenderApplication(ctx, ref.ID)
	}
	return nil, fmt.Errorf("%w: unsupported application type %q", domain.ErrValidation, ref.Kind)
}

func (r *GormApplicationRepo) getJobApplication(ctx context.Context, id string) (*domain.JobApplication, error) {
	var row jobApplicationRow
	result := r.db.WithContext(ctx).
		Table("job_applications AS a").
		Select("a.id, a.job_id, j.title AS job_title, a.applicant_name, a.applicant_email, a.status, a.admin_notes, a.applied_at, a.reviewed_at").
		Joins("LEFT JOIN jobs j ON j.id = a.job_id").
		Where("a.id = ?", id).
		Limit(1).
		Scan(&row)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: job application %s", domain.ErrNotFound, id)
	}
	if row.JobTitle == nil {
		return nil, fmt.Errorf("%w: job %s referenced by application %s", domain.ErrNotFound, row.JobID, id)
	}

	app := jobApplicationRowToDomain(&row)
	if err := app.Validate(); err != nil {
		return nil, err
	}
	return app, nil
}

func (r *GormApplicationRepo) getTenderApplication(ctx context.Context, id string) (*domain.TenderApplication, error) {
	var row tenderApplicationRow
	result := r.db.WithContext(ctx).
		Table("tender_applications AS a").
		Select("a.id, a.tender_id, t.title AS tender_title, a.company_name, a.contact_email, a.status, a.admin_notes, a.applied_at, a.reviewed_at").
		Joins("LEFT JOIN tenders t ON t.id = a.tender_id").
		Where("a.id = ?", id).
		Limit(1).
		Scan(&row)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: tender application %s", domain.ErrNotFound, id)
	}
	if row.TenderTitle == nil {
		return nil, fmt.Errorf("%w: tender %s referenced by application %s", domain.ErrNotFound, row.TenderID, id)
	}

	app := tenderApplicationRowToDomain(&row)
	if err := app.Validate(); err != nil {
		return nil, err
	}
	return app, nil
}

// ListSince returns up to limit applications submitted at or after since,
// newest first.
func (r *GormApplicationRepo) ListSince(
	ctx context.Context,
	kind domain.ApplicationKind,
	since time.Time,
	limit int,
) ([]domain.ApplicationSummary, error) {
	if limit < 1 {
		return []domain.ApplicationSummary{}, nil
	}

	switch kind {
	case domain.ApplicationKindJob:
		var rows []jobApplicationRow
		err := r.db.WithContext(ctx).
			Table("job_applications AS a").
			Select("a.id, a.job_id, j.title AS job_title, a.applicant_name, a.applicant_email, a.status, a.applied_at").
			Joins("LEFT JOIN jobs j ON j.id = a.job_id").
			Where("a.applied_at >= ?", since.UTC()).
			Order("a.applied_at DESC").
			Order("a.id DESC").
			Limit(limit).
			Scan(&rows).Error
		if err != nil {
			return nil, err
		}

		summaries := make([]domain.ApplicationSummary, 0, len(rows))
		for i := range rows {
			summaries = append(summaries, jobApplicationRowToDomain(&rows[i]).Summary())
		}
		return summaries, nil

	case domain.ApplicationKindTender:
		var rows []tenderApplicationRow
		err := r.db.WithContext(ctx).
			Table("tender_applications AS a").
			Select("a.id, a.tender_id, t.title AS tender_title, a.company_name, a.contact_email, a.status, a.applied_at").
			Joins("LEFT JOIN tenders t ON t.id = a.tender_id").
			Where("a.applied_at >= ?", since.UTC()).
			Order("a.applied_at DESC").
			Order("a.id DESC").
			Limit(limit).
			Scan(&rows).Error
		if err != nil {
			return nil, err
		}

		summaries := make([]domain.ApplicationSummary, 0, len(rows))
		for i := range rows {
			summaries = append(summaries, tenderApplicationRowToDomain(&rows[i]).Summary())
		}
		return summaries, nil
	}

	return nil, fmt.Errorf("%w: unsupported application type %q", domain.ErrValidation, kind)
}

func (r *GormApplicationRepo) CountSince(ctx context.Context, kind domain.ApplicationKind, since time.Time) (int64, error) {
	model, err := applicationModelFor(kind)
	if err != nil {
		return 0, err
	}

	var count int64
	err = r.db.WithContext(ctx).
		Model(model).
		Where("applied_at >= ?", since.UTC()).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *GormApplicationRepo) UpdateStatus(ctx context.Context, ref domain.ApplicationRef, update StatusUpdate) error {
	if err := ref.Validate(); err != nil {
		return err
	}
	if !update.Status.IsValid() {
		return fmt.Errorf("%w: invalid status %q", domain.ErrValidation, update.Status)
	}

	model, err := applicationModelFor(ref.Kind)
	if err != nil {
		return err
	}

	columns := map[string]any{
		"status":      update.Status,
		"reviewed_at": update.ReviewedAt.UTC(),
	}
	if update.AdminNotes != nil {
		columns["admin_notes"] = *update.AdminNotes
	}

	result := r.db.WithContext(ctx).
		Model(model).
		Where("id = ?", ref.ID).
		Updates(columns)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s application %s", domain.ErrNotFound, ref.Kind, ref.ID)
	}
	return nil
}

func applicationModelFor(kind domain.ApplicationKind) (any, error) {
	switch kind {
	case domain.ApplicationKindJob:
		return &JobApplicationModel{}, nil
	case domain.ApplicationKindTender:
		return &TenderApplicationModel{}, nil
	}
	return nil, fmt.Errorf("%w: unsupported application type %q", domain.ErrValidation, kind)
}
