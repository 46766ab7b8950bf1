package repository

import (
	"time"

	"github.com/kursadbilgin/application-notifier/internal/domain"
)

// Portal tables. The schema is owned by the portal; these models only map
// the columns this service reads or updates.

type JobModel struct {
	ID    string `gorm:"primaryKey"`
	Title string `gorm:"not null"`
}

func (JobModel) TableName() string {
	return "jobs"
}

type TenderModel struct {
	ID    string `gorm:"primaryKey"`
	Title string `gorm:"not null"`
}

func (TenderModel) TableName() string {
	return "tenders"
}

type JobApplicationModel struct {
	ID             string                   `gorm:"primaryKey"`
	JobID          string                   `gorm:"not null"`
	ApplicantName  string                   `gorm:"not null"`
	ApplicantEmail string                   `gorm:"not null"`
	Status         domain.ApplicationStatus `gorm:"type:varchar(32);not null"`
	AdminNotes     *string
	AppliedAt      time.Time `gorm:"not null"`
	ReviewedAt     *time.Time
}

func (JobApplicationModel) TableName() string {
	return "job_applications"
}

type TenderApplicationModel struct {
	ID           string                   `gorm:"primaryKey"`
	TenderID     string                   `gorm:"not null"`
	CompanyName  string                   `gorm:"not null"`
	ContactEmail string                   `gorm:"not null"`
	Status       domain.ApplicationStatus `gorm:"type:varchar(32);not null"`
	AdminNotes   *string
	AppliedAt    time.Time `gorm:"not null"`
	ReviewedAt   *time.Time
}

func (TenderApplicationModel) TableName() string {
	return "tender_applications"
}

type ProfileModel struct {
	ID       string `gorm:"primaryKey"`
	Email    string
	FullName string
	Role     string `gorm:"type:varchar(32);not null"`
}

func (ProfileModel) TableName() string {
	return "profiles"
}

// Tables owned by this service.

type NotificationPreferenceModel struct {
	UserID                 string                 `gorm:"primaryKey"`
	NotifyOnNewApplication bool                   `gorm:"not null"`
	DigestFrequency        domain.DigestFrequency `gorm:"type:varchar(16);not null"`
	DeliveryTime           string                 `gorm:"type:varchar(5);not null"`
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

func (NotificationPreferenceModel) TableName() string {
	return "notification_preferences"
}

// brandingRowID pins the single global branding row.
const brandingRowID = 1

type EmailBrandingModel struct {
	ID             int    `gorm:"primaryKey;autoIncrement:false"`
	PrimaryColor   string `gorm:"type:varchar(16)"`
	SecondaryColor string `gorm:"type:varchar(16)"`
	LogoURL        string `gorm:"type:text"`
	CompanyName    string `gorm:"type:varchar(255)"`
	Website        string `gorm:"type:text"`
	SupportEmail   string `gorm:"type:varchar(255)"`
	UpdatedAt      time.Time
}

func (EmailBrandingModel) TableName() string {
	return "email_branding"
}

type NotificationLogModel struct {
	ID                string                  `gorm:"type:uuid;primaryKey"`
	Recipient         string                  `gorm:"type:varchar(255);not null"`
	ApplicationType   *domain.ApplicationKind `gorm:"type:varchar(16)"`
	ApplicationID     *string
	NotificationType  domain.NotificationKind `gorm:"type:varchar(32);not null"`
	ProviderMessageID *string                 `gorm:"type:varchar(255)"`
	SentAt            time.Time               `gorm:"not null"`
}

func (NotificationLogModel) TableName() string {
	return "notification_logs"
}

func jobApplicationRowToDomain(r *jobApplicationRow) *domain.JobApplication {
	if r == nil {
		return nil
	}

	return &domain.JobApplication{
		ID:             r.ID,
		JobID:          r.JobID,
		JobTitle:       stringValue(r.JobTitle),
		ApplicantName:  r.ApplicantName,
		ApplicantEmail: r.ApplicantEmail,
		Status:         r.Status,
		AdminNotes:     r.AdminNotes,
		AppliedAt:      r.AppliedAt,
		ReviewedAt:     r.ReviewedAt,
	}
}

func tenderApplicationRowToDomain(r *tenderApplicationRow) *domain.TenderApplication {
	if r == nil {
		return nil
	}

	return &domain.TenderApplication{
		ID:           r.ID,
		TenderID:     r.TenderID,
		TenderTitle:  stringValue(r.TenderTitle),
		CompanyName:  r.CompanyName,
		ContactEmail: r.ContactEmail,
		Status:       r.Status,
		AdminNotes:   r.AdminNotes,
		AppliedAt:    r.AppliedAt,
		ReviewedAt:   r.ReviewedAt,
	}
}

func profileModelToAdmin(m ProfileModel) domain.Admin {
	return domain.Admin{
		ID:       m.ID,
		Email:    m.Email,
		FullName: m.FullName,
	}
}

func preferenceModelFromDomain(p *domain.NotificationPreference) *NotificationPreferenceModel {
	if p == nil {
		return nil
	}

	return &NotificationPreferenceModel{
		UserID:                 p.UserID,
		NotifyOnNewApplication: p.NotifyOnNewApplication,
		DigestFrequency:        p.DigestFrequency,
		DeliveryTime:           p.DeliveryTime,
		UpdatedAt:              p.UpdatedAt,
	}
}

func preferenceModelToDomain(m *NotificationPreferenceModel) *domain.NotificationPreference {
	if m == nil {
		return nil
	}

	return &domain.NotificationPreference{
		UserID:                 m.UserID,
		NotifyOnNewApplication: m.NotifyOnNewApplication,
		DigestFrequency:        m.DigestFrequency,
		DeliveryTime:           m.DeliveryTime,
		UpdatedAt:              m.UpdatedAt,
	}
}

func brandingModelFromDomain(b *domain.EmailBranding) *EmailBrandingModel {
	if b == nil {
		return nil
	}

	return &EmailBrandingModel{
		ID:             brandingRowID,
		PrimaryColor:   b.PrimaryColor,
		SecondaryColor: b.SecondaryColor,
		LogoURL:        b.LogoURL,
		CompanyName:    b.CompanyName,
		Website:        b.Website,
		SupportEmail:   b.SupportEmail,
		UpdatedAt:      b.UpdatedAt,
	}
}

func brandingModelToDomain(m *EmailBrandingModel) *domain.EmailBranding {
	if m == nil {
		return nil
	}

	return &domain.EmailBranding{
		PrimaryColor:   m.PrimaryColor,
		SecondaryColor: m.SecondaryColor,
		LogoURL:        m.LogoURL,
		CompanyName:    m.CompanyName,
		Website:        m.Website,
		SupportEmail:   m.SupportEmail,
		UpdatedAt:      m.UpdatedAt,
	}
}

func logModelFromDomain(e *domain.NotificationLogEntry) *NotificationLogModel {
	if e == nil {
		return nil
	}

	return &NotificationLogModel{
		ID:                e.ID,
		Recipient:         e.Recipient,
		ApplicationType:   e.ApplicationKind,
		ApplicationID:     e.ApplicationID,
		NotificationType:  e.Kind,
		ProviderMessageID: e.ProviderMessageID,
		SentAt:            e.SentAt,
	}
}

func logModelToDomain(m *NotificationLogModel) *domain.NotificationLogEntry {
	if m == nil {
		return nil
	}

	return &domain.NotificationLogEntry{
		ID:                m.ID,
		Recipient:         m.Recipient,
		ApplicationKind:   m.ApplicationType,
		ApplicationID:     m.ApplicationID,
		Kind:              m.NotificationType,
		ProviderMessageID: m.ProviderMessageID,
		SentAt:            m.SentAt,
	}
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
