package domain

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// ApplicationKind identifies which posting table an application belongs to.
type ApplicationKind string

const (
	ApplicationKindJob    ApplicationKind = "job"
	ApplicationKindTender ApplicationKind = "tender"
)

func (k ApplicationKind) String() string { return string(k) }

func (k ApplicationKind) IsValid() bool {
	switch k {
	case ApplicationKindJob, ApplicationKindTender:
		return true
	}
	return false
}

// Label is the capitalized display form used in subjects and headings.
func (k ApplicationKind) Label() string {
	switch k {
	case ApplicationKindJob:
		return "Job"
	case ApplicationKindTender:
		return "Tender"
	}
	return "Application"
}

func ParseApplicationKindFromString(s string) (ApplicationKind, error) {
	k := ApplicationKind(strings.ToLower(strings.TrimSpace(s)))
	if !k.IsValid() {
		return "", fmt.Errorf("%w: invalid application type %q", ErrValidation, s)
	}
	return k, nil
}

// ApplicationStatus is the review state of an application.
type ApplicationStatus string

const (
	StatusPending            ApplicationStatus = "pending"
	StatusUnderReview        ApplicationStatus = "under_review"
	StatusShortlisted        ApplicationStatus = "shortlisted"
	StatusInterviewScheduled ApplicationStatus = "interview_scheduled"
	StatusAccepted           ApplicationStatus = "accepted"
	StatusRejected           ApplicationStatus = "rejected"
)

func (s ApplicationStatus) String() string { return string(s) }

func (s ApplicationStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusUnderReview, StatusShortlisted, StatusInterviewScheduled, StatusAccepted, StatusRejected:
		return true
	}
	return false
}

func (s ApplicationStatus) Label() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusUnderReview:
		return "Under Review"
	case StatusShortlisted:
		return "Shortlisted"
	case StatusInterviewScheduled:
		return "Interview Scheduled"
	case StatusAccepted:
		return "Accepted"
	case StatusRejected:
		return "Rejected"
	}
	return string(s)
}

func ParseApplicationStatusFromString(s string) (ApplicationStatus, error) {
	st := ApplicationStatus(strings.ToLower(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid application status %q", ErrValidation, s)
	}
	return st, nil
}

// CanTransition reports whether an application may move from one status to
// another. Any known status may follow any other, including itself.
func CanTransition(from ApplicationStatus, to ApplicationStatus) error {
	if !from.IsValid() {
		return fmt.Errorf("%w: invalid current status %q", ErrValidation, from)
	}
	if !to.IsValid() {
		return fmt.Errorf("%w: invalid target status %q", ErrValidation, to)
	}
	return nil
}

// ApplicationRef points at one row in either application table.
type ApplicationRef struct {
	Kind ApplicationKind
	ID   string
}

func (r ApplicationRef) Validate() error {
	if !r.Kind.IsValid() {
		return fmt.Errorf("%w: invalid application type %q", ErrValidation, r.Kind)
	}
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("%w: application id is required", ErrValidation)
	}
	return nil
}

func (r ApplicationRef) String() string {
	return fmt.Sprintf("%s/%s", r.Kind, r.ID)
}

// ApplicationSummary is the display projection shared by all templates.
type ApplicationSummary struct {
	Kind           ApplicationKind
	ID             string
	Title          string
	ApplicantName  string
	ApplicantEmail string
	Status         ApplicationStatus
	AppliedAt      time.Time
}

// Application is implemented by JobApplication and TenderApplication.
type Application interface {
	Ref() ApplicationRef
	Summary() ApplicationSummary
	Validate() error
}

// JobApplication is an individual's application to a job posting.
type JobApplication struct {
	ID             string
	JobID          string
	JobTitle       string
	ApplicantName  string
	ApplicantEmail string
	Status         ApplicationStatus
	AdminNotes     *string
	AppliedAt      time.Time
	ReviewedAt     *time.Time
}

func (a JobApplication) Ref() ApplicationRef {
	return ApplicationRef{Kind: ApplicationKindJob, ID: a.ID}
}

func (a JobApplication) Summary() ApplicationSummary {
	return ApplicationSummary{
		Kind:           ApplicationKindJob,
		ID:             a.ID,
		Title:          a.JobTitle,
		ApplicantName:  a.ApplicantName,
		ApplicantEmail: a.ApplicantEmail,
		Status:         a.Status,
		AppliedAt:      a.AppliedAt,
	}
}

func (a JobApplication) Validate() error {
	return validateApplication(a.ID, a.JobID, a.ApplicantEmail, a.Status, a.AppliedAt)
}

// TenderApplication is a company's bid on a tender posting.
type TenderApplication struct {
	ID           string
	TenderID     string
	TenderTitle  string
	CompanyName  string
	ContactEmail string
	Status       ApplicationStatus
	AdminNotes   *string
	AppliedAt    time.Time
	ReviewedAt   *time.Time
}

func (a TenderApplication) Ref() ApplicationRef {
	return ApplicationRef{Kind: ApplicationKindTender, ID: a.ID}
}

func (a TenderApplication) Summary() ApplicationSummary {
	return ApplicationSummary{
		Kind:           ApplicationKindTender,
		ID:             a.ID,
		Title:          a.TenderTitle,
		ApplicantName:  a.CompanyName,
		ApplicantEmail: a.ContactEmail,
		Status:         a.Status,
		AppliedAt:      a.AppliedAt,
	}
}

func (a TenderApplication) Validate() error {
	return validateApplication(a.ID, a.TenderID, a.ContactEmail, a.Status, a.AppliedAt)
}

func validateApplication(id, postingID, email string, status ApplicationStatus, appliedAt time.Time) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: application id is required", ErrValidation)
	}
	if strings.TrimSpace(postingID) == "" {
		return fmt.Errorf("%w: application %s has no posting reference", ErrValidation, id)
	}
	if !status.IsValid() {
		return fmt.Errorf("%w: application %s has invalid status %q", ErrValidation, id, status)
	}
	if appliedAt.IsZero() {
		return fmt.Errorf("%w: application %s has no submission time", ErrValidation, id)
	}
	if strings.TrimSpace(email) != "" {
		if err := ValidateEmail(email); err != nil {
			return err
		}
	}
	return nil
}

// ValidateEmail checks that s is a single bare address.
func ValidateEmail(s string) error {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}
	addr, err := mail.ParseAddress(trimmed)
	if err != nil || addr.Address != trimmed {
		return fmt.Errorf("%w: invalid email %q", ErrValidation, s)
	}
	return nil
}
