package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kursadbilgin/application-notifier/internal/domain"
	"github.com/kursadbilgin/application-notifier/internal/observability"
	"github.com/kursadbilgin/application-notifier/internal/queue"
	"github.com/kursadbilgin/application-notifier/internal/repository"
	"go.uber.org/zap"
)

// StatusUpdateResult reports what an admin status change did.
type StatusUpdateResult struct {
	Ref        domain.ApplicationRef
	Status     domain.ApplicationStatus
	ReviewedAt time.Time
	TaskID     string
}

type ApplicationService struct {
	applications repository.ApplicationRepository
	publisher    queue.Publisher
	logger       *zap.Logger
	now          func() time.Time
}

func NewApplicationService(
	applications repository.ApplicationRepository,
	publisher queue.Publisher,
	logger *zap.Logger,
) (*ApplicationService, error) {
	if applications == nil {
		return nil, errors.New("application repository is required")
	}
	if publisher == nil {
		return nil, errors.New("publisher is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ApplicationService{
		applications: applications,
		publisher:    publisher,
		logger:       logger,
		now:          time.Now,
	}, nil
}

// UpdateStatus persists an admin's status change and, when requested, queues
// the applicant email. The status write is not rolled back if queueing fails.
func (s *ApplicationService) UpdateStatus(ctx context.Context, req domain.UpdateStatusRequest) (StatusUpdateResult, error) {
	if err := req.Validate(); err != nil {
		return StatusUpdateResult{}, err
	}

	current, err := s.applications.GetByRef(ctx, req.Ref)
	if err != nil {
		return StatusUpdateResult{}, fmt.Errorf("failed to load application %s: %w", req.Ref, err)
	}
	if err := domain.CanTransition(current.Summary().Status, req.Status); err != nil {
		return StatusUpdateResult{}, err
	}

	reviewedAt := s.now().UTC()
	err = s.applications.UpdateStatus(ctx, req.Ref, repository.StatusUpdate{
		Status:     req.Status,
		AdminNotes: req.AdminNotes,
		ReviewedAt: reviewedAt,
	})
	if err != nil {
		return StatusUpdateResult{}, fmt.Errorf("failed to update application %s: %w", req.Ref, err)
	}

	result := StatusUpdateResult{
		Ref:        req.Ref,
		Status:     req.Status,
		ReviewedAt: reviewedAt,
	}
	if !req.Notify {
		return result, nil
	}

	correlationID, _ := observability.CorrelationIDFromContext(ctx)
	msg, err := queue.NewTaskMessage(queue.TaskStatusUpdate, correlationID, req.StatusChange())
	if err != nil {
		return result, err
	}
	if err := s.publisher.Publish(ctx, msg); err != nil {
		observability.WithContextLogger(s.logger, ctx).Error("failed to queue status update email",
			zap.String("application", req.Ref.String()),
			zap.Error(err),
		)
		return result, fmt.Errorf("status updated but failed to queue notification: %w", err)
	}

	result.TaskID = msg.TaskID
	return result, nil
}
