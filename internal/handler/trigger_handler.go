package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ecodeclub/ekit/slice"
	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/application-notifier/internal/domain"
	"github.com/kursadbilgin/application-notifier/internal/service"
)

// Notifier runs the three notification flows synchronously.
type Notifier interface {
	NotifyNewApplication(ctx context.Context, event domain.NewApplicationEvent) (service.Outcome, error)
	RunDigest(ctx context.Context, req domain.DigestRequest) (service.Outcome, error)
	NotifyStatusChange(ctx context.Context, req domain.StatusChangeRequest) (service.Outcome, error)
}

type TriggerHandler struct {
	notifier Notifier
}

func NewTriggerHandler(notifier Notifier) (*TriggerHandler, error) {
	if notifier == nil {
		return nil, fmt.Errorf("notifier is required")
	}
	return &TriggerHandler{notifier: notifier}, nil
}

func RegisterTriggerRoutes(router fiber.Router, notifier Notifier) error {
	h, err := NewTriggerHandler(notifier)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/triggers/new-application", h.NewApplication)
	v1.Post("/triggers/digest", h.Digest)
	v1.Post("/triggers/status-change", h.StatusChange)

	return nil
}

type newApplicationRequest struct {
	ApplicationType string    `json:"applicationType"`
	ApplicationID   string    `json:"applicationId"`
	ApplicantName   string    `json:"applicantName"`
	Title           string    `json:"title"`
	AppliedAt       time.Time `json:"appliedAt"`
}

type digestRequest struct {
	Frequency string `json:"frequency"`
}

type statusChangeRequest struct {
	ApplicationType   string     `json:"applicationType"`
	ApplicationID     string     `json:"applicationId"`
	NewStatus         string     `json:"newStatus"`
	CustomMessage     string     `json:"customMessage"`
	NextSteps         []string   `json:"nextSteps"`
	InterviewDate     *time.Time `json:"interviewDate"`
	InterviewLocation string     `json:"interviewLocation"`
}

type outcomeResponse struct {
	Success    bool   `json:"success"`
	Kind       string `json:"kind"`
	Recipients int    `json:"recipients"`
	Sent       int    `json:"sent"`
	Failed     int    `json:"failed"`
	Skipped    bool   `json:"skipped"`
	Message    string `json:"message"`
}

func (h *TriggerHandler) NewApplication(c *fiber.Ctx) error {
	var req newApplicationRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	kind, err := domain.ParseApplicationKindFromString(req.ApplicationType)
	if err != nil {
		return toHTTPError(err)
	}

	outcome, err := h.notifier.NotifyNewApplication(requestContext(c), domain.NewApplicationEvent{
		ApplicationType: kind,
		ApplicationID:   strings.TrimSpace(req.ApplicationID),
		ApplicantName:   strings.TrimSpace(req.ApplicantName),
		Title:           strings.TrimSpace(req.Title),
		AppliedAt:       req.AppliedAt,
	})
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toOutcomeResponse(outcome))
}

func (h *TriggerHandler) Digest(c *fiber.Ctx) error {
	var req digestRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	frequency, err := domain.ParseDigestFrequencyFromString(req.Frequency)
	if err != nil {
		return toHTTPError(err)
	}

	outcome, err := h.notifier.RunDigest(requestContext(c), domain.DigestRequest{Frequency: frequency})
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toOutcomeResponse(outcome))
}

func (h *TriggerHandler) StatusChange(c *fiber.Ctx) error {
	var req statusChangeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	kind, err := domain.ParseApplicationKindFromString(req.ApplicationType)
	if err != nil {
		return toHTTPError(err)
	}
	status, err := domain.ParseApplicationStatusFromString(req.NewStatus)
	if err != nil {
		return toHTTPError(err)
	}

	outcome, err := h.notifier.NotifyStatusChange(requestContext(c), domain.StatusChangeRequest{
		ApplicationType:   kind,
		ApplicationID:     strings.TrimSpace(req.ApplicationID),
		NewStatus:         status,
		CustomMessage:     strings.TrimSpace(req.CustomMessage),
		NextSteps:         trimNonEmpty(req.NextSteps),
		InterviewDate:     req.InterviewDate,
		InterviewLocation: strings.TrimSpace(req.InterviewLocation),
	})
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toOutcomeResponse(outcome))
}

func toOutcomeResponse(o service.Outcome) outcomeResponse {
	return outcomeResponse{
		Success:    true,
		Kind:       o.Kind.String(),
		Recipients: o.Recipients,
		Sent:       o.Sent,
		Failed:     o.Failed,
		Skipped:    o.Skipped,
		Message:    o.Message,
	}
}

func trimNonEmpty(values []string) []string {
	return slice.FilterMap(values, func(_ int, v string) (string, bool) {
		trimmed := strings.TrimSpace(v)
		return trimmed, trimmed != ""
	})
}
