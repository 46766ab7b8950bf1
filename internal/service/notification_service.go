package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kursadbilgin/application-notifier/internal/domain"
	"github.com/kursadbilgin/application-notifier/internal/observability"
	"github.com/kursadbilgin/application-notifier/internal/render"
	"github.com/kursadbilgin/application-notifier/internal/repository"
	"go.uber.org/zap"
)

// EventDeduper records which trigger events were already handled.
type EventDeduper interface {
	Claim(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// Outcome is what each trigger reports back to its caller.
type Outcome struct {
	Kind       domain.NotificationKind
	Recipients int
	Sent       int
	Failed     int
	Skipped    bool
	Message    string
}

func skippedOutcome(kind domain.NotificationKind, message string) Outcome {
	return Outcome{Kind: kind, Skipped: true, Message: message}
}

func outcomeFromResult(result DispatchResult) Outcome {
	return Outcome{
		Kind:       result.Kind,
		Recipients: result.Attempted,
		Sent:       result.Sent,
		Failed:     result.Failed,
		Message:    result.Message(),
	}
}

// deliveryError is non-nil only when nobody received the email. Partial
// failures are reported through the outcome counts.
func deliveryError(result DispatchResult) error {
	if result.Attempted == 0 || result.Sent > 0 || result.Errors == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", domain.ErrDeliveryFailed, result.Errors)
}

type NotificationService struct {
	applications repository.ApplicationRepository
	admins       repository.AdminRepository
	preferences  repository.PreferenceRepository
	digests      *DigestAggregator
	branding     *BrandingResolver
	renderer     *render.Renderer
	dispatcher   *Dispatcher
	dedup        EventDeduper
	logger       *zap.Logger
	metrics      *observability.Metrics
	now          func() time.Time
}

func NewNotificationService(
	applications repository.ApplicationRepository,
	admins repository.AdminRepository,
	preferences repository.PreferenceRepository,
	branding *BrandingResolver,
	renderer *render.Renderer,
	dispatcher *Dispatcher,
	logger *zap.Logger,
) (*NotificationService, error) {
	if applications == nil || admins == nil || preferences == nil {
		return nil, errors.New("application, admin and preference repositories are required")
	}
	if renderer == nil {
		return nil, errors.New("renderer is required")
	}
	if dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if branding == nil {
		branding = NewBrandingResolver(nil, logger)
	}

	return &NotificationService{
		applications: applications,
		admins:       admins,
		preferences:  preferences,
		digests:      NewDigestAggregator(applications),
		branding:     branding,
		renderer:     renderer,
		dispatcher:   dispatcher,
		logger:       logger,
		now:          time.Now,
	}, nil
}

func (s *NotificationService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// SetDeduper enables duplicate suppression for new-application events.
func (s *NotificationService) SetDeduper(dedup EventDeduper) {
	if s == nil {
		return
	}
	s.dedup = dedup
}

// NotifyNewApplication emails every opted-in admin about one new application.
func (s *NotificationService) NotifyNewApplication(ctx context.Context, event domain.NewApplicationEvent) (Outcome, error) {
	if err := event.Validate(); err != nil {
		return Outcome{}, err
	}

	log := observability.WithContextLogger(s.logger, ctx).With(
		zap.String("applicationType", event.ApplicationType.String()),
		zap.String("applicationId", event.ApplicationID),
	)

	dedupKey := fmt.Sprintf("%s:%s:%s", domain.KindNewApplication, event.ApplicationType, event.ApplicationID)
	claimed := false
	if s.dedup != nil {
		ok, err := s.dedup.Claim(ctx, dedupKey)
		switch {
		case err != nil:
			log.Warn("dedup check failed, sending anyway", zap.Error(err))
		case !ok:
			log.Info("duplicate new application event, skipping")
			return skippedOutcome(domain.KindNewApplication, "application already notified"), nil
		default:
			claimed = true
		}
	}

	outcome, err := s.notifyNewApplication(ctx, event)
	if claimed && (err != nil || (outcome.Sent == 0 && outcome.Failed > 0)) {
		if releaseErr := s.dedup.Release(context.WithoutCancel(ctx), dedupKey); releaseErr != nil {
			log.Warn("failed to release dedup key", zap.Error(releaseErr))
		}
	}
	return outcome, err
}

func (s *NotificationService) notifyNewApplication(ctx context.Context, event domain.NewApplicationEvent) (Outcome, error) {
	admins, prefs, err := s.loadAdmins(ctx)
	if err != nil {
		return Outcome{}, err
	}

	recipients := EligibleForInstant(admins, prefs)
	if len(recipients) == 0 {
		return skippedOutcome(domain.KindNewApplication, "no admins subscribed to new application emails"), nil
	}

	branding := s.branding.Resolve(ctx)
	summary := event.Summary()
	ref := event.Ref()

	deliveries := make([]Delivery, 0, len(recipients))
	for _, admin := range recipients {
		admin := admin
		deliveries = append(deliveries, Delivery{
			To:          admin.Email,
			Application: &ref,
			Render: func() (render.Email, error) {
				return s.renderer.RenderInstant(render.InstantPayload{
					RecipientName: admin.DisplayName(),
					Application:   summary,
					Branding:      &branding,
				})
			},
		})
	}

	result := s.dispatcher.Dispatch(ctx, domain.KindNewApplication, deliveries)
	return outcomeFromResult(result), deliveryError(result)
}

// RunDigest sends the periodic summary to admins subscribed at freq. A
// window with no applications sends nothing.
func (s *NotificationService) RunDigest(ctx context.Context, req domain.DigestRequest) (Outcome, error) {
	if err := req.Validate(); err != nil {
		return Outcome{}, err
	}

	freq := req.Frequency
	log := observability.WithContextLogger(s.logger, ctx).With(zap.String("frequency", freq.String()))

	summary, err := s.digests.Aggregate(ctx, freq, s.now())
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to aggregate %s digest: %w", freq, err)
	}
	if summary.IsEmpty() {
		s.metrics.IncDigestSkipped(freq.String(), "no_applications")
		log.Info("no new applications, digest skipped")
		return skippedOutcome(domain.KindDigest, fmt.Sprintf("no new applications for %s digest", freq)), nil
	}

	admins, prefs, err := s.loadAdmins(ctx)
	if err != nil {
		return Outcome{}, err
	}
	recipients := EligibleForDigest(admins, prefs, freq)
	if len(recipients) == 0 {
		s.metrics.IncDigestSkipped(freq.String(), "no_recipients")
		log.Info("no admins subscribed, digest skipped")
		return skippedOutcome(domain.KindDigest, fmt.Sprintf("no admins subscribed to %s digest", freq)), nil
	}

	branding := s.branding.Resolve(ctx)
	deliveries := make([]Delivery, 0, len(recipients))
	for _, admin := range recipients {
		admin := admin
		deliveries = append(deliveries, Delivery{
			To: admin.Email,
			Render: func() (render.Email, error) {
				return s.renderer.RenderDigest(render.DigestPayload{
					RecipientName:      admin.DisplayName(),
					Frequency:          freq,
					TotalApplications:  summary.TotalApplications,
					JobCount:           summary.JobCount,
					TenderCount:        summary.TenderCount,
					JobApplications:    summary.JobApplications,
					TenderApplications: summary.TenderApplications,
					Branding:           &branding,
				})
			},
		})
	}

	result := s.dispatcher.Dispatch(ctx, domain.KindDigest, deliveries)
	log.Info("digest dispatched",
		zap.Int("totalApplications", summary.TotalApplications),
		zap.Int("sent", result.Sent),
		zap.Int("failed", result.Failed),
	)
	return outcomeFromResult(result), deliveryError(result)
}

// NotifyStatusChange emails the applicant about a status change. A missing
// application or posting aborts with ErrNotFound before anything is sent.
func (s *NotificationService) NotifyStatusChange(ctx context.Context, req domain.StatusChangeRequest) (Outcome, error) {
	if err := req.Validate(); err != nil {
		return Outcome{}, err
	}

	ref := req.Ref()
	app, err := s.applications.GetByRef(ctx, ref)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to load application %s: %w", ref, err)
	}

	summary := app.Summary()
	to := strings.TrimSpace(summary.ApplicantEmail)
	if to == "" {
		return Outcome{}, fmt.Errorf("%w: application %s has no contact email", domain.ErrValidation, ref)
	}

	branding := s.branding.Resolve(ctx)
	delivery := Delivery{
		To:          to,
		Application: &ref,
		Render: func() (render.Email, error) {
			return s.renderer.RenderStatusUpdate(render.StatusUpdatePayload{
				RecipientName:     summary.ApplicantName,
				Application:       summary,
				NewStatus:         req.NewStatus,
				CustomMessage:     req.CustomMessage,
				NextSteps:         req.NextSteps,
				InterviewDate:     req.InterviewDate,
				InterviewLocation: req.InterviewLocation,
				Branding:          &branding,
			})
		},
	}

	result := s.dispatcher.Dispatch(ctx, domain.KindStatusUpdate, []Delivery{delivery})
	return outcomeFromResult(result), deliveryError(result)
}

func (s *NotificationService) loadAdmins(ctx context.Context) ([]domain.Admin, map[string]domain.NotificationPreference, error) {
	admins, err := s.admins.ListAdmins(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list admins: %w", err)
	}
	if len(admins) == 0 {
		return admins, map[string]domain.NotificationPreference{}, nil
	}

	prefs, err := s.preferences.ListByUserIDs(ctx, adminIDs(admins))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load notification preferences: %w", err)
	}
	return admins, prefs, nil
}
