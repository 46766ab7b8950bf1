package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/application-notifier/internal/domain"
	"github.com/kursadbilgin/application-notifier/internal/service"
)

type ApplicationService interface {
	UpdateStatus(ctx context.Context, req domain.UpdateStatusRequest) (service.StatusUpdateResult, error)
}

type ApplicationHandler struct {
	service ApplicationService
}

func NewApplicationHandler(service ApplicationService) (*ApplicationHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("application service is required")
	}
	return &ApplicationHandler{service: service}, nil
}

func RegisterApplicationRoutes(router fiber.Router, service ApplicationService) error {
	h, err := NewApplicationHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Patch("/applications/:kind/:id/status", h.UpdateStatus)

	return nil
}

type updateStatusRequest struct {
	Status            string     `json:"status"`
	AdminNotes        *string    `json:"adminNotes"`
	Notify            bool       `json:"notify"`
	CustomMessage     string     `json:"customMessage"`
	NextSteps         []string   `json:"nextSteps"`
	InterviewDate     *time.Time `json:"interviewDate"`
	InterviewLocation string     `json:"interviewLocation"`
}

type statusUpdateResponse struct {
	ApplicationType string    `json:"applicationType"`
	ApplicationID   string    `json:"applicationId"`
	Status          string    `json:"status"`
	ReviewedAt      time.Time `json:"reviewedAt"`
	TaskID          string    `json:"taskId,omitempty"`
	Warning         string    `json:"warning,omitempty"`
}

func (h *ApplicationHandler) UpdateStatus(c *fiber.Ctx) error {
	kind, err := domain.ParseApplicationKindFromString(c.Params("kind"))
	if err != nil {
		return toHTTPError(err)
	}

	var req updateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	status, err := domain.ParseApplicationStatusFromString(req.Status)
	if err != nil {
		return toHTTPError(err)
	}

	result, err := h.service.UpdateStatus(requestContext(c), domain.UpdateStatusRequest{
		Ref:               domain.ApplicationRef{Kind: kind, ID: strings.TrimSpace(c.Params("id"))},
		Status:            status,
		AdminNotes:        req.AdminNotes,
		Notify:            req.Notify,
		CustomMessage:     strings.TrimSpace(req.CustomMessage),
		NextSteps:         trimNonEmpty(req.NextSteps),
		InterviewDate:     req.InterviewDate,
		InterviewLocation: strings.TrimSpace(req.InterviewLocation),
	})
	if err != nil {
		if result.Ref.ID == "" {
			return toHTTPError(err)
		}

		// The status change is stored; only the follow-up email failed to queue.
		resp := toStatusUpdateResponse(result)
		resp.Warning = err.Error()
		return c.Status(fiber.StatusAccepted).JSON(resp)
	}

	return c.Status(fiber.StatusAccepted).JSON(toStatusUpdateResponse(result))
}

func toStatusUpdateResponse(r service.StatusUpdateResult) statusUpdateResponse {
	return statusUpdateResponse{
		ApplicationType: r.Ref.Kind.String(),
		ApplicationID:   r.Ref.ID,
		Status:          r.Status.String(),
		ReviewedAt:      r.ReviewedAt,
		TaskID:          r.TaskID,
	}
}
