package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

const (
	sesProviderName = "ses"
	sesCharset      = "UTF-8"
)

// SESService is the subset of the SES client the provider calls.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESProvider delivers through Amazon SES.
type SESProvider struct {
	client SESService
}

func NewSESProvider(ctx context.Context, region string) (*SESProvider, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return NewSESProviderWithClient(ses.NewFromConfig(cfg))
}

func NewSESProviderWithClient(client SESService) (*SESProvider, error) {
	if client == nil {
		return nil, fmt.Errorf("ses client is required")
	}
	return &SESProvider{client: client}, nil
}

func (p *SESProvider) Name() string { return sesProviderName }

func (p *SESProvider) Send(ctx context.Context, email OutboundEmail) (*ProviderResponse, error) {
	if p == nil || p.client == nil {
		return nil, fmt.Errorf("provider is not initialized")
	}
	if err := email.Validate(); err != nil {
		return nil, fmt.Errorf("invalid email: %w", err)
	}

	input := &ses.SendEmailInput{
		Source: aws.String(email.From),
		Destination: &types.Destination{
			ToAddresses: []string{email.To},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(email.Subject), Charset: aws.String(sesCharset)},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(email.HTML), Charset: aws.String(sesCharset)},
			},
		},
	}
	if email.ReplyTo != "" {
		input.ReplyToAddresses = []string{email.ReplyTo}
	}

	out, err := p.client.SendEmail(ctx, input)
	if err != nil {
		return nil, classifySESError(err)
	}

	resp := &ProviderResponse{StatusCode: http.StatusOK}
	if out != nil {
		resp.MessageID = aws.ToString(out.MessageId)
	}
	return resp, nil
}

func classifySESError(err error) error {
	if errors.Is(err, context.Canceled) {
		return &ProviderError{Provider: sesProviderName, Message: "send canceled", Cause: err}
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		status := respErr.HTTPStatusCode()
		return &ProviderError{
			Provider:   sesProviderName,
			StatusCode: status,
			Message:    "ses rejected the request",
			Transient:  isTransientHTTPStatus(status),
			Cause:      err,
		}
	}

	// No HTTP response at all: the call never reached SES.
	return &ProviderError{
		Provider:  sesProviderName,
		Message:   "ses request failed",
		Transient: true,
		Cause:     err,
	}
}
