package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/kursadbilgin/application-notifier/internal/domain"
)

// EmailProvider is the outbound email delivery port.
type EmailProvider interface {
	Name() string
	Send(ctx context.Context, email OutboundEmail) (*ProviderResponse, error)
}

// OutboundEmail is one fully rendered message addressed to one recipient.
type OutboundEmail struct {
	From    string
	To      string
	ReplyTo string
	Subject string
	HTML    string
}

func (e OutboundEmail) Validate() error {
	if err := domain.ValidateEmail(e.To); err != nil {
		return fmt.Errorf("recipient: %w", err)
	}
	if strings.TrimSpace(e.From) == "" {
		return fmt.Errorf("%w: sender is required", domain.ErrValidation)
	}
	if strings.TrimSpace(e.Subject) == "" {
		return fmt.Errorf("%w: subject is required", domain.ErrValidation)
	}
	if strings.TrimSpace(e.HTML) == "" {
		return fmt.Errorf("%w: html body is required", domain.ErrValidation)
	}
	return nil
}

// ProviderResponse stores provider call metadata for the delivery log.
type ProviderResponse struct {
	StatusCode int
	Body       string
	MessageID  string
}
