package domain

import (
	"fmt"
	"strings"
	"time"
)

// NotificationKind identifies which email template produced a send.
type NotificationKind string

const (
	KindNewApplication NotificationKind = "new_application"
	KindDigest         NotificationKind = "digest"
	KindStatusUpdate   NotificationKind = "status_update"
)

func (k NotificationKind) String() string { return string(k) }

func (k NotificationKind) IsValid() bool {
	switch k {
	case KindNewApplication, KindDigest, KindStatusUpdate:
		return true
	}
	return false
}

func ParseNotificationKindFromString(s string) (NotificationKind, error) {
	k := NotificationKind(strings.ToLower(strings.TrimSpace(s)))
	if !k.IsValid() {
		return "", fmt.Errorf("%w: invalid notification kind %q", ErrValidation, s)
	}
	return k, nil
}

// NotificationLogEntry is the append-only audit record of one successful send.
// Digest sends carry no application reference.
type NotificationLogEntry struct {
	ID                string
	Recipient         string
	ApplicationKind   *ApplicationKind
	ApplicationID     *string
	Kind              NotificationKind
	ProviderMessageID *string
	SentAt            time.Time
}

func (e *NotificationLogEntry) Validate() error {
	if strings.TrimSpace(e.Recipient) == "" {
		return fmt.Errorf("%w: recipient is required", ErrValidation)
	}
	if !e.Kind.IsValid() {
		return fmt.Errorf("%w: invalid notification kind %q", ErrValidation, e.Kind)
	}
	if (e.ApplicationKind == nil) != (e.ApplicationID == nil) {
		return fmt.Errorf("%w: application type and id must be set together", ErrValidation)
	}
	return nil
}

// NewApplicationEvent is emitted by the database insert trigger.
type NewApplicationEvent struct {
	ApplicationType ApplicationKind
	ApplicationID   string
	ApplicantName   string
	Title           string
	AppliedAt       time.Time
}

func (e NewApplicationEvent) Ref() ApplicationRef {
	return ApplicationRef{Kind: e.ApplicationType, ID: e.ApplicationID}
}

func (e NewApplicationEvent) Validate() error {
	if err := e.Ref().Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(e.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if e.AppliedAt.IsZero() {
		return fmt.Errorf("%w: appliedAt is required", ErrValidation)
	}
	return nil
}

func (e NewApplicationEvent) Summary() ApplicationSummary {
	return ApplicationSummary{
		Kind:          e.ApplicationType,
		ID:            e.ApplicationID,
		Title:         e.Title,
		ApplicantName: e.ApplicantName,
		Status:        StatusPending,
		AppliedAt:     e.AppliedAt,
	}
}

// DigestRequest is the external scheduler's "run digest" invocation.
type DigestRequest struct {
	Frequency DigestFrequency
}

func (r DigestRequest) Validate() error {
	if !r.Frequency.IsSchedulable() {
		return fmt.Errorf("%w: digest frequency must be daily or weekly, got %q", ErrValidation, r.Frequency)
	}
	return nil
}

// StatusChangeRequest asks for the applicant-facing status email.
type StatusChangeRequest struct {
	ApplicationType   ApplicationKind
	ApplicationID     string
	NewStatus         ApplicationStatus
	CustomMessage     string
	NextSteps         []string
	InterviewDate     *time.Time
	InterviewLocation string
}

func (r StatusChangeRequest) Ref() ApplicationRef {
	return ApplicationRef{Kind: r.ApplicationType, ID: r.ApplicationID}
}

func (r StatusChangeRequest) Validate() error {
	if err := r.Ref().Validate(); err != nil {
		return err
	}
	if !r.NewStatus.IsValid() {
		return fmt.Errorf("%w: invalid status %q", ErrValidation, r.NewStatus)
	}
	return nil
}

// UpdateStatusRequest is an admin's status change on one application.
type UpdateStatusRequest struct {
	Ref               ApplicationRef
	Status            ApplicationStatus
	AdminNotes        *string
	Notify            bool
	CustomMessage     string
	NextSteps         []string
	InterviewDate     *time.Time
	InterviewLocation string
}

func (r UpdateStatusRequest) Validate() error {
	if err := r.Ref.Validate(); err != nil {
		return err
	}
	if !r.Status.IsValid() {
		return fmt.Errorf("%w: invalid status %q", ErrValidation, r.Status)
	}
	return nil
}

// StatusChange builds the notification request that follows a status update.
func (r UpdateStatusRequest) StatusChange() StatusChangeRequest {
	return StatusChangeRequest{
		ApplicationType:   r.Ref.Kind,
		ApplicationID:     r.Ref.ID,
		NewStatus:         r.Status,
		CustomMessage:     r.CustomMessage,
		NextSteps:         r.NextSteps,
		InterviewDate:     r.InterviewDate,
		InterviewLocation: r.InterviewLocation,
	}
}
