package provider

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "application-notifier/provider"

// TracingProvider wraps an EmailProvider with one span per send.
type TracingProvider struct {
	next   EmailProvider
	tracer trace.Tracer
}

func NewTracingProvider(next EmailProvider) *TracingProvider {
	return NewTracingProviderWithTracer(next, otel.Tracer(tracerName))
}

func NewTracingProviderWithTracer(next EmailProvider, tracer trace.Tracer) *TracingProvider {
	return &TracingProvider{next: next, tracer: tracer}
}

func (p *TracingProvider) Name() string { return p.next.Name() }

func (p *TracingProvider) Send(ctx context.Context, email OutboundEmail) (*ProviderResponse, error) {
	ctx, span := p.tracer.Start(ctx, "EmailProvider.Send",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("email.provider", p.next.Name()),
			attribute.String("email.subject", email.Subject),
		))
	defer span.End()

	resp, err := p.next.Send(ctx, email)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("email.transient", IsTransient(err)))
		return resp, err
	}

	if resp != nil {
		span.SetAttributes(
			attribute.Int("email.status_code", resp.StatusCode),
			attribute.String("email.message_id", resp.MessageID),
		)
	}
	return resp, nil
}
