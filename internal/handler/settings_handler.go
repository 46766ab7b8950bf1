package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ecodeclub/ekit/slice"
	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/application-notifier/internal/domain"
	"github.com/kursadbilgin/application-notifier/internal/repository"
	"github.com/kursadbilgin/application-notifier/internal/service"
)

type SettingsService interface {
	GetPreference(ctx context.Context, userID string) (domain.NotificationPreference, error)
	UpdatePreference(ctx context.Context, pref domain.NotificationPreference) (domain.NotificationPreference, error)
	GetBranding(ctx context.Context) (domain.EmailBranding, error)
	UpdateBranding(ctx context.Context, branding domain.EmailBranding) (domain.EmailBranding, error)
	ListLogs(ctx context.Context, params repository.LogListParams) (service.LogPage, error)
}

type SettingsHandler struct {
	service SettingsService
}

func NewSettingsHandler(service SettingsService) (*SettingsHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("settings service is required")
	}
	return &SettingsHandler{service: service}, nil
}

func RegisterSettingsRoutes(router fiber.Router, service SettingsService) error {
	h, err := NewSettingsHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Get("/admins/:id/preferences", h.GetPreference)
	v1.Put("/admins/:id/preferences", h.UpdatePreference)
	v1.Get("/branding", h.GetBranding)
	v1.Put("/branding", h.UpdateBranding)
	v1.Get("/notification-logs", h.ListLogs)

	return nil
}

type preferenceRequest struct {
	NotifyOnNewApplication *bool  `json:"notifyOnNewApplication"`
	DigestFrequency        string `json:"digestFrequency"`
	DeliveryTime           string `json:"deliveryTime"`
}

type preferenceResponse struct {
	UserID                 string     `json:"userId"`
	NotifyOnNewApplication bool       `json:"notifyOnNewApplication"`
	DigestFrequency        string     `json:"digestFrequency"`
	DeliveryTime           string     `json:"deliveryTime"`
	UpdatedAt              *time.Time `json:"updatedAt,omitempty"`
}

type brandingRequest struct {
	PrimaryColor   string `json:"primaryColor"`
	SecondaryColor string `json:"secondaryColor"`
	LogoURL        string `json:"logoUrl"`
	CompanyName    string `json:"companyName"`
	Website        string `json:"website"`
	SupportEmail   string `json:"supportEmail"`
}

type brandingResponse struct {
	PrimaryColor   string     `json:"primaryColor"`
	SecondaryColor string     `json:"secondaryColor"`
	LogoURL        string     `json:"logoUrl,omitempty"`
	CompanyName    string     `json:"companyName"`
	Website        string     `json:"website,omitempty"`
	SupportEmail   string     `json:"supportEmail,omitempty"`
	UpdatedAt      *time.Time `json:"updatedAt,omitempty"`
}

type logEntryResponse struct {
	ID                string    `json:"id"`
	Recipient         string    `json:"recipient"`
	Kind              string    `json:"kind"`
	ApplicationType   *string   `json:"applicationType,omitempty"`
	ApplicationID     *string   `json:"applicationId,omitempty"`
	ProviderMessageID *string   `json:"providerMessageId,omitempty"`
	SentAt            time.Time `json:"sentAt"`
}

type listLogsResponse struct {
	Data []logEntryResponse `json:"data"`
	Meta listMeta           `json:"meta"`
}

func (h *SettingsHandler) GetPreference(c *fiber.Ctx) error {
	pref, err := h.service.GetPreference(requestContext(c), strings.TrimSpace(c.Params("id")))
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toPreferenceResponse(pref))
}

func (h *SettingsHandler) UpdatePreference(c *fiber.Ctx) error {
	var req preferenceRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	userID := strings.TrimSpace(c.Params("id"))
	pref := domain.DefaultPreference(userID)
	if req.NotifyOnNewApplication != nil {
		pref.NotifyOnNewApplication = *req.NotifyOnNewApplication
	}
	if strings.TrimSpace(req.DigestFrequency) != "" {
		frequency, err := domain.ParseDigestFrequencyFromString(req.DigestFrequency)
		if err != nil {
			return toHTTPError(err)
		}
		pref.DigestFrequency = frequency
	}
	if trimmed := strings.TrimSpace(req.DeliveryTime); trimmed != "" {
		pref.DeliveryTime = trimmed
	}

	saved, err := h.service.UpdatePreference(requestContext(c), pref)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toPreferenceResponse(saved))
}

func (h *SettingsHandler) GetBranding(c *fiber.Ctx) error {
	branding, err := h.service.GetBranding(requestContext(c))
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toBrandingResponse(branding))
}

func (h *SettingsHandler) UpdateBranding(c *fiber.Ctx) error {
	var req brandingRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	saved, err := h.service.UpdateBranding(requestContext(c), domain.EmailBranding{
		PrimaryColor:   strings.TrimSpace(req.PrimaryColor),
		SecondaryColor: strings.TrimSpace(req.SecondaryColor),
		LogoURL:        strings.TrimSpace(req.LogoURL),
		CompanyName:    strings.TrimSpace(req.CompanyName),
		Website:        strings.TrimSpace(req.Website),
		SupportEmail:   strings.TrimSpace(req.SupportEmail),
	})
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toBrandingResponse(saved))
}

func (h *SettingsHandler) ListLogs(c *fiber.Ctx) error {
	params, err := parseLogListParams(c)
	if err != nil {
		return toHTTPError(err)
	}

	page, err := h.service.ListLogs(requestContext(c), params)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(listLogsResponse{
		Data: slice.Map(page.Entries, func(_ int, e domain.NotificationLogEntry) logEntryResponse {
			return toLogEntryResponse(e)
		}),
		Meta: listMeta{
			Page:     page.Page,
			PageSize: page.PageSize,
			Total:    page.Total,
		},
	})
}

func parseLogListParams(c *fiber.Ctx) (repository.LogListParams, error) {
	params := repository.LogListParams{
		Page:     c.QueryInt("page", defaultPage),
		PageSize: c.QueryInt("pageSize", defaultPageSize),
	}

	if params.Page < 1 {
		return repository.LogListParams{}, fmt.Errorf("%w: page must be >= 1", domain.ErrValidation)
	}
	if params.PageSize < 1 || params.PageSize > maxPageSize {
		return repository.LogListParams{}, fmt.Errorf("%w: pageSize must be between 1 and %d", domain.ErrValidation, maxPageSize)
	}

	if rawKind := strings.TrimSpace(c.Query("kind")); rawKind != "" {
		kind, err := domain.ParseNotificationKindFromString(rawKind)
		if err != nil {
			return repository.LogListParams{}, err
		}
		params.Kind = &kind
	}

	if rawType := strings.TrimSpace(c.Query("applicationType")); rawType != "" {
		appKind, err := domain.ParseApplicationKindFromString(rawType)
		if err != nil {
			return repository.LogListParams{}, err
		}
		params.ApplicationKind = &appKind
	}

	if rawID := strings.TrimSpace(c.Query("applicationId")); rawID != "" {
		params.ApplicationID = &rawID
	}

	from, err := parseRFC3339Query(c.Query("from"), "from")
	if err != nil {
		return repository.LogListParams{}, err
	}
	to, err := parseRFC3339Query(c.Query("to"), "to")
	if err != nil {
		return repository.LogListParams{}, err
	}
	params.From = from
	params.To = to

	return params, nil
}

func toPreferenceResponse(p domain.NotificationPreference) preferenceResponse {
	resp := preferenceResponse{
		UserID:                 p.UserID,
		NotifyOnNewApplication: p.NotifyOnNewApplication,
		DigestFrequency:        p.DigestFrequency.String(),
		DeliveryTime:           p.DeliveryTime,
	}
	if !p.UpdatedAt.IsZero() {
		updatedAt := p.UpdatedAt
		resp.UpdatedAt = &updatedAt
	}
	return resp
}

func toBrandingResponse(b domain.EmailBranding) brandingResponse {
	resp := brandingResponse{
		PrimaryColor:   b.PrimaryColor,
		SecondaryColor: b.SecondaryColor,
		LogoURL:        b.LogoURL,
		CompanyName:    b.CompanyName,
		Website:        b.Website,
		SupportEmail:   b.SupportEmail,
	}
	if !b.UpdatedAt.IsZero() {
		updatedAt := b.UpdatedAt
		resp.UpdatedAt = &updatedAt
	}
	return resp
}

func toLogEntryResponse(e domain.NotificationLogEntry) logEntryResponse {
	resp := logEntryResponse{
		ID:                e.ID,
		Recipient:         e.Recipient,
		Kind:              e.Kind.String(),
		ApplicationID:     e.ApplicationID,
		ProviderMessageID: e.ProviderMessageID,
		SentAt:            e.SentAt,
	}
	if e.ApplicationKind != nil {
		kind := e.ApplicationKind.String()
		resp.ApplicationType = &kind
	}
	return resp
}
