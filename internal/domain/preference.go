package domain

import (
	"fmt"
	"strings"
	"time"
)

// DigestFrequency controls how often an admin receives a digest.
type DigestFrequency string

const (
	DigestNone   DigestFrequency = "none"
	DigestDaily  DigestFrequency = "daily"
	DigestWeekly DigestFrequency = "weekly"
)

func (f DigestFrequency) String() string { return string(f) }

func (f DigestFrequency) IsValid() bool {
	switch f {
	case DigestNone, DigestDaily, DigestWeekly:
		return true
	}
	return false
}

// IsSchedulable reports whether a digest run can be requested for f.
func (f DigestFrequency) IsSchedulable() bool {
	return f == DigestDaily || f == DigestWeekly
}

func (f DigestFrequency) Label() string {
	switch f {
	case DigestDaily:
		return "Daily"
	case DigestWeekly:
		return "Weekly"
	}
	return "None"
}

func ParseDigestFrequencyFromString(s string) (DigestFrequency, error) {
	f := DigestFrequency(strings.ToLower(strings.TrimSpace(s)))
	if !f.IsValid() {
		return "", fmt.Errorf("%w: invalid digest frequency %q", ErrValidation, s)
	}
	return f, nil
}

const DefaultDeliveryTime = "09:00"

// NotificationPreference is one admin's notification settings.
type NotificationPreference struct {
	UserID                 string
	NotifyOnNewApplication bool
	DigestFrequency        DigestFrequency
	DeliveryTime           string
	UpdatedAt              time.Time
}

// DefaultPreference is applied when an admin has no stored row.
func DefaultPreference(userID string) NotificationPreference {
	return NotificationPreference{
		UserID:                 userID,
		NotifyOnNewApplication: true,
		DigestFrequency:        DigestNone,
		DeliveryTime:           DefaultDeliveryTime,
	}
}

func (p *NotificationPreference) Validate() error {
	if strings.TrimSpace(p.UserID) == "" {
		return fmt.Errorf("%w: user id is required", ErrValidation)
	}
	if !p.DigestFrequency.IsValid() {
		return fmt.Errorf("%w: invalid digest frequency %q", ErrValidation, p.DigestFrequency)
	}
	if p.DeliveryTime == "" {
		p.DeliveryTime = DefaultDeliveryTime
	}
	if _, err := time.Parse("15:04", p.DeliveryTime); err != nil {
		return fmt.Errorf("%w: delivery time must be HH:MM", ErrValidation)
	}
	return nil
}

// Admin is a portal user with the admin role.
type Admin struct {
	ID       string
	Email    string
	FullName string
}

// DisplayName falls back to the email address when no name is stored.
func (a Admin) DisplayName() string {
	if name := strings.TrimSpace(a.FullName); name != "" {
		return name
	}
	return a.Email
}
