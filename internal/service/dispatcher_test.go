package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/kursadbilgin/application-notifier/internal/domain"
	"github.com/kursadbilgin/application-notifier/internal/provider"
	"github.com/kursadbilgin/application-notifier/internal/render"
	"go.uber.org/zap"
)

func staticEmail(subject string) func() (render.Email, error) {
	return func() (render.Email, error) {
		return render.Email{Subject: subject, HTML: "<p>" + subject + "</p>"}, nil
	}
}

func newTestDispatcher(t *testing.T, p provider.EmailProvider, logs *fakeLogRepo) *Dispatcher {
	t.Helper()

	d, err := NewDispatcher(p, logs, &fakeRateLimiter{}, "Portal <noreply@example.com>", 4, zap.NewNop())
	if err != nil {
		t.Fatalf("NewDispatcher() error = %v", err)
	}
	return d
}

func TestDispatcherPartialFailureDoesNotAbortBatch(t *testing.T) {
	t.Parallel()

	emailProvider := &fakeEmailProvider{
		sendFn: func(ctx context.Context, email provider.OutboundEmail) (*provider.ProviderResponse, error) {
			if email.To == "b@example.com" {
				return nil, &provider.ProviderError{Provider: "fake", StatusCode: 503, Message: "unavailable", Transient: true}
			}
			return &provider.ProviderResponse{StatusCode: 200, MessageID: "id-" + email.To}, nil
		},
	}
	logs := &fakeLogRepo{}
	d := newTestDispatcher(t, emailProvider, logs)

	ref := domain.ApplicationRef{Kind: domain.ApplicationKindJob, ID: "app-1"}
	deliveries := []Delivery{
		{To: "a@example.com", Application: &ref, Render: staticEmail("hello a")},
		{To: "b@example.com", Application: &ref, Render: staticEmail("hello b")},
		{To: "c@example.com", Application: &ref, Render: staticEmail("hello c")},
	}

	result := d.Dispatch(context.Background(), domain.KindNewApplication, deliveries)

	if result.Attempted != 3 || result.Sent != 2 || result.Failed != 1 {
		t.Fatalf("result = %+v, want 3 attempted, 2 sent, 1 failed", result)
	}
	if len(emailProvider.calls()) != 3 {
		t.Fatalf("provider calls = %d, want 3", len(emailProvider.calls()))
	}
	if result.Errors == nil || !strings.Contains(result.Errors.Error(), "b@example.com") {
		t.Fatalf("errors = %v, want failure for b@example.com", result.Errors)
	}
	var providerErr *provider.ProviderError
	if !errors.As(result.Errors, &providerErr) {
		t.Fatalf("errors = %v, want wrapped ProviderError", result.Errors)
	}

	entries := logs.snapshot()
	if len(entries) != 2 {
		t.Fatalf("log entries = %d, want 2", len(entries))
	}
	for _, e := range entries {
		if e.Recipient == "b@example.com" {
			t.Fatal("failed recipient must not be logged")
		}
		if e.Kind != domain.KindNewApplication {
			t.Fatalf("entry kind = %s, want new_application", e.Kind)
		}
		if e.ApplicationID == nil || *e.ApplicationID != "app-1" || e.ApplicationKind == nil || *e.ApplicationKind != domain.ApplicationKindJob {
			t.Fatalf("entry application ref = %v/%v, want job/app-1", e.ApplicationKind, e.ApplicationID)
		}
		if e.ProviderMessageID == nil || *e.ProviderMessageID != "id-"+e.Recipient {
			t.Fatalf("entry provider message id = %v", e.ProviderMessageID)
		}
	}
	if !strings.Contains(result.Message(), "2 of 3") {
		t.Fatalf("message = %q, want partial summary", result.Message())
	}
}

func TestDispatcherRenderFailureIsIsolated(t *testing.T) {
	t.Parallel()

	emailProvider := &fakeEmailProvider{}
	logs := &fakeLogRepo{}
	d := newTestDispatcher(t, emailProvider, logs)

	deliveries := []Delivery{
		{To: "a@example.com", Render: func() (render.Email, error) { return render.Email{}, errors.New("template exploded") }},
		{To: "b@example.com", Render: staticEmail("digest")},
	}

	result := d.Dispatch(context.Background(), domain.KindDigest, deliveries)
	if result.Sent != 1 || result.Failed != 1 {
		t.Fatalf("result = %+v, want 1 sent, 1 failed", result)
	}
	calls := emailProvider.calls()
	if len(calls) != 1 || calls[0].To != "b@example.com" {
		t.Fatalf("provider calls = %+v, want only b@example.com", calls)
	}

	entries := logs.snapshot()
	if len(entries) != 1 || entries[0].ApplicationID != nil || entries[0].ApplicationKind != nil {
		t.Fatalf("digest entries = %+v, want one entry without application ref", entries)
	}
}

func TestDispatcherInvalidRecipientSkipsProvider(t *testing.T) {
	t.Parallel()

	emailProvider := &fakeEmailProvider{}
	d := newTestDispatcher(t, emailProvider, &fakeLogRepo{})

	result := d.Dispatch(context.Background(), domain.KindStatusUpdate, []Delivery{
		{To: "not-an-email", Render: staticEmail("status")},
	})
	if result.Failed != 1 || !errors.Is(result.Errors, domain.ErrValidation) {
		t.Fatalf("result = %+v, want validation failure", result)
	}
	if len(emailProvider.calls()) != 0 {
		t.Fatal("provider should not be called for an invalid address")
	}
}

func TestDispatcherWaitsOnRateLimiterPerProvider(t *testing.T) {
	t.Parallel()

	var (
		mu     sync.Mutex
		scopes []string
	)
	limiter := &fakeRateLimiter{
		waitFn: func(ctx context.Context, scope string) error {
			mu.Lock()
			defer mu.Unlock()
			scopes = append(scopes, scope)
			if len(scopes) == 2 {
				return errors.New("redis unavailable")
			}
			return nil
		},
	}
	d, err := NewDispatcher(&fakeEmailProvider{}, &fakeLogRepo{}, limiter, "noreply@example.com", 1, nil)
	if err != nil {
		t.Fatalf("NewDispatcher() error = %v", err)
	}

	result := d.Dispatch(context.Background(), domain.KindNewApplication, []Delivery{
		{To: "a@example.com", Render: staticEmail("one")},
		{To: "b@example.com", Render: staticEmail("two")},
	})
	if result.Sent != 1 || result.Failed != 1 {
		t.Fatalf("result = %+v, want 1 sent, 1 failed", result)
	}
	for _, scope := range scopes {
		if scope != "fake" {
			t.Fatalf("rate limiter scope = %q, want provider name", scope)
		}
	}
}

func TestDispatcherLogWriteFailureStillCountsSend(t *testing.T) {
	t.Parallel()

	logs := &fakeLogRepo{
		createFn: func(ctx context.Context, e *domain.NotificationLogEntry) error {
			return errors.New("insert failed")
		},
	}
	d := newTestDispatcher(t, &fakeEmailProvider{}, logs)

	result := d.Dispatch(context.Background(), domain.KindDigest, []Delivery{
		{To: "a@example.com", Render: staticEmail("digest")},
	})
	if result.Sent != 1 || result.Failed != 0 || result.Errors != nil {
		t.Fatalf("result = %+v, want the send to count as delivered", result)
	}
}

func TestDispatcherEmptyBatch(t *testing.T) {
	t.Parallel()

	emailProvider := &fakeEmailProvider{}
	d := newTestDispatcher(t, emailProvider, &fakeLogRepo{})

	result := d.Dispatch(context.Background(), domain.KindDigest, nil)
	if result.Attempted != 0 || result.Errors != nil {
		t.Fatalf("result = %+v, want empty result", result)
	}
	if len(emailProvider.calls()) != 0 {
		t.Fatal("provider should not be called")
	}
}

func TestNewDispatcherValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewDispatcher(nil, &fakeLogRepo{}, nil, "noreply@example.com", 1, nil); err == nil {
		t.Fatal("expected error for nil provider")
	}
	if _, err := NewDispatcher(&fakeEmailProvider{}, nil, nil, "noreply@example.com", 1, nil); err == nil {
		t.Fatal("expected error for nil log repository")
	}
	if _, err := NewDispatcher(&fakeEmailProvider{}, &fakeLogRepo{}, nil, " ", 1, nil); err == nil {
		t.Fatal("expected error for blank sender")
	}
}
