package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	defaultHTTPEmailTimeout = 10 * time.Second
	httpEmailProviderName   = "http"
)

type httpEmailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	ReplyTo string   `json:"reply_to,omitempty"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type httpEmailResponse struct {
	ID string `json:"id"`
}

// HTTPEmailProvider posts messages to a Resend-compatible JSON email API.
type HTTPEmailProvider struct {
	client   *resty.Client
	endpoint string
	apiKey   string
}

func NewHTTPEmailProvider(endpoint string, apiKey string) (*HTTPEmailProvider, error) {
	client := resty.New()
	client.SetTimeout(defaultHTTPEmailTimeout)
	client.SetRetryCount(0)

	return NewHTTPEmailProviderWithClient(endpoint, apiKey, client)
}

func NewHTTPEmailProviderWithClient(endpoint string, apiKey string, client *resty.Client) (*HTTPEmailProvider, error) {
	trimmedEndpoint := strings.TrimSpace(endpoint)
	if trimmedEndpoint == "" {
		return nil, fmt.Errorf("email api url is required")
	}
	if _, err := url.ParseRequestURI(trimmedEndpoint); err != nil {
		return nil, fmt.Errorf("invalid email api url: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultHTTPEmailTimeout)
	}
	client.SetRetryCount(0)

	return &HTTPEmailProvider{
		client:   client,
		endpoint: trimmedEndpoint,
		apiKey:   strings.TrimSpace(apiKey),
	}, nil
}

func (p *HTTPEmailProvider) Name() string { return httpEmailProviderName }

func (p *HTTPEmailProvider) Send(ctx context.Context, email OutboundEmail) (*ProviderResponse, error) {
	if p == nil || p.client == nil {
		return nil, fmt.Errorf("provider is not initialized")
	}
	if err := email.Validate(); err != nil {
		return nil, fmt.Errorf("invalid email: %w", err)
	}

	req := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(httpEmailRequest{
			From:    email.From,
			To:      []string{email.To},
			ReplyTo: email.ReplyTo,
			Subject: email.Subject,
			HTML:    email.HTML,
		}).
		SetResult(&httpEmailResponse{})
	if p.apiKey != "" {
		req.SetAuthToken(p.apiKey)
	}

	response, err := req.Post(p.endpoint)
	if err != nil {
		return nil, &ProviderError{
			Provider:  httpEmailProviderName,
			Message:   "email api request failed",
			Transient: !errors.Is(err, context.Canceled),
			Cause:     err,
		}
	}
	if response == nil {
		return nil, &ProviderError{
			Provider:  httpEmailProviderName,
			Message:   "email api returned empty response",
			Transient: true,
		}
	}

	statusCode := response.StatusCode()
	responseBody := strings.TrimSpace(response.String())

	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		messageID := providerMessageID(response)
		if result, ok := response.Result().(*httpEmailResponse); ok && result != nil && strings.TrimSpace(result.ID) != "" {
			messageID = strings.TrimSpace(result.ID)
		}
		return &ProviderResponse{
			StatusCode: statusCode,
			Body:       responseBody,
			MessageID:  messageID,
		}, nil
	}

	return nil, &ProviderError{
		Provider:   httpEmailProviderName,
		StatusCode: statusCode,
		Message:    providerErrorMessage(statusCode, responseBody),
		Transient:  isTransientHTTPStatus(statusCode),
	}
}

func isTransientHTTPStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || (statusCode >= http.StatusInternalServerError && statusCode <= 599)
}

func providerErrorMessage(statusCode int, body string) string {
	base := fmt.Sprintf("email api returned status %d", statusCode)
	if body == "" {
		return base
	}
	return fmt.Sprintf("%s: %s", base, body)
}

func providerMessageID(response *resty.Response) string {
	if response == nil {
		return ""
	}

	for _, key := range []string{"X-Message-ID", "X-Request-ID", "X-Correlation-ID"} {
		if value := strings.TrimSpace(response.Header().Get(key)); value != "" {
			return value
		}
	}

	return ""
}
