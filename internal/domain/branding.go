package domain

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const (
	DefaultPrimaryColor   = "#667eea"
	DefaultSecondaryColor = "#764ba2"
	DefaultCompanyName    = "Opportunities Portal"
)

var hexColorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// EmailBranding is the single global row styling outbound emails.
type EmailBranding struct {
	PrimaryColor   string
	SecondaryColor string
	LogoURL        string
	CompanyName    string
	Website        string
	SupportEmail   string
	UpdatedAt      time.Time
}

// DefaultBranding is used whenever no branding row is stored.
func DefaultBranding() EmailBranding {
	return EmailBranding{
		PrimaryColor:   DefaultPrimaryColor,
		SecondaryColor: DefaultSecondaryColor,
		CompanyName:    DefaultCompanyName,
	}
}

// WithDefaults fills blank or malformed fields from DefaultBranding.
func (b EmailBranding) WithDefaults() EmailBranding {
	defaults := DefaultBranding()
	out := b
	if !IsHexColor(out.PrimaryColor) {
		out.PrimaryColor = defaults.PrimaryColor
	}
	if !IsHexColor(out.SecondaryColor) {
		out.SecondaryColor = defaults.SecondaryColor
	}
	if strings.TrimSpace(out.CompanyName) == "" {
		out.CompanyName = defaults.CompanyName
	}
	if !IsHTTPURL(out.LogoURL) {
		out.LogoURL = ""
	}
	if !IsHTTPURL(out.Website) {
		out.Website = ""
	}
	if ValidateEmail(out.SupportEmail) != nil {
		out.SupportEmail = ""
	}
	return out
}

func (b *EmailBranding) Validate() error {
	if b.PrimaryColor != "" && !IsHexColor(b.PrimaryColor) {
		return fmt.Errorf("%w: primary color must be a hex color", ErrValidation)
	}
	if b.SecondaryColor != "" && !IsHexColor(b.SecondaryColor) {
		return fmt.Errorf("%w: secondary color must be a hex color", ErrValidation)
	}
	if b.LogoURL != "" && !IsHTTPURL(b.LogoURL) {
		return fmt.Errorf("%w: logo url must be an absolute http(s) url", ErrValidation)
	}
	if b.Website != "" && !IsHTTPURL(b.Website) {
		return fmt.Errorf("%w: website must be an absolute http(s) url", ErrValidation)
	}
	if b.SupportEmail != "" {
		if err := ValidateEmail(b.SupportEmail); err != nil {
			return err
		}
	}
	return nil
}

func IsHexColor(s string) bool {
	return hexColorPattern.MatchString(strings.TrimSpace(s))
}

func IsHTTPURL(s string) bool {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return false
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
