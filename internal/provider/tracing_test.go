package provider

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type stubProvider struct {
	sendFn func(ctx context.Context, email OutboundEmail) (*ProviderResponse, error)
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Send(ctx context.Context, email OutboundEmail) (*ProviderResponse, error) {
	return s.sendFn(ctx, email)
}

func newRecordingTracer(t *testing.T) (*tracetest.SpanRecorder, *sdktrace.TracerProvider) {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return recorder, tp
}

func TestTracingProviderRecordsSuccess(t *testing.T) {
	t.Parallel()

	recorder, tp := newRecordingTracer(t)
	p := NewTracingProviderWithTracer(&stubProvider{
		sendFn: func(context.Context, OutboundEmail) (*ProviderResponse, error) {
			return &ProviderResponse{StatusCode: 200, MessageID: "m-1"}, nil
		},
	}, tp.Tracer("test"))

	resp, err := p.Send(context.Background(), testEmail())
	if err != nil || resp.MessageID != "m-1" {
		t.Fatalf("Send() = %+v, %v", resp, err)
	}
	if p.Name() != "stub" {
		t.Fatalf("Name() = %q, want stub", p.Name())
	}

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(spans))
	}
	if spans[0].Name() != "EmailProvider.Send" {
		t.Fatalf("span name = %q", spans[0].Name())
	}
	if spans[0].Status().Code == codes.Error {
		t.Fatal("successful send should not mark the span as error")
	}

	found := false
	for _, attr := range spans[0].Attributes() {
		if string(attr.Key) == "email.message_id" && attr.Value.AsString() == "m-1" {
			found = true
		}
	}
	if !found {
		t.Fatal("span missing email.message_id attribute")
	}
}

func TestTracingProviderRecordsError(t *testing.T) {
	t.Parallel()

	recorder, tp := newRecordingTracer(t)
	sendErr := &ProviderError{StatusCode: 503, Transient: true}
	p := NewTracingProviderWithTracer(&stubProvider{
		sendFn: func(context.Context, OutboundEmail) (*ProviderResponse, error) {
			return nil, sendErr
		},
	}, tp.Tracer("test"))

	_, err := p.Send(context.Background(), testEmail())
	if !errors.Is(err, sendErr) {
		t.Fatalf("Send() error = %v, want %v", err, sendErr)
	}

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(spans))
	}
	if spans[0].Status().Code != codes.Error {
		t.Fatalf("span status = %v, want error", spans[0].Status().Code)
	}
	if len(spans[0].Events()) == 0 {
		t.Fatal("expected RecordError to add an exception event")
	}
}
