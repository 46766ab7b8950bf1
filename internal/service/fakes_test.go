package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/kursadbilgin/application-notifier/internal/domain"
	"github.com/kursadbilgin/application-notifier/internal/provider"
	"github.com/kursadbilgin/application-notifier/internal/queue"
	"github.com/kursadbilgin/application-notifier/internal/ratelimit"
	"github.com/kursadbilgin/application-notifier/internal/render"
	"github.com/kursadbilgin/application-notifier/internal/repository"
)

type fakeApplicationRepo struct {
	getByRefFn     func(ctx context.Context, ref domain.ApplicationRef) (domain.Application, error)
	listSinceFn    func(ctx context.Context, kind domain.ApplicationKind, since time.Time, limit int) ([]domain.ApplicationSummary, error)
	countSinceFn   func(ctx context.Context, kind domain.ApplicationKind, since time.Time) (int64, error)
	updateStatusFn func(ctx context.Context, ref domain.ApplicationRef, update repository.StatusUpdate) error
}

var _ repository.ApplicationRepository = (*fakeApplicationRepo)(nil)

func (f *fakeApplicationRepo) GetByRef(ctx context.Context, ref domain.ApplicationRef) (domain.Application, error) {
	if f.getByRefFn != nil {
		return f.getByRefFn(ctx, ref)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeApplicationRepo) ListSince(ctx context.Context, kind domain.ApplicationKind, since time.Time, limit int) ([]domain.ApplicationSummary, error) {
	if f.listSinceFn != nil {
		return f.listSinceFn(ctx, kind, since, limit)
	}
	return []domain.ApplicationSummary{}, nil
}

func (f *fakeApplicationRepo) CountSince(ctx context.Context, kind domain.ApplicationKind, since time.Time) (int64, error) {
	if f.countSinceFn != nil {
		return f.countSinceFn(ctx, kind, since)
	}
	return 0, nil
}

func (f *fakeApplicationRepo) UpdateStatus(ctx context.Context, ref domain.ApplicationRef, update repository.StatusUpdate) error {
	if f.updateStatusFn != nil {
		return f.updateStatusFn(ctx, ref, update)
	}
	return nil
}

// newFixtureApplicationRepo answers ListSince and CountSince from an
// in-memory fixture the way the gorm repository does.
func newFixtureApplicationRepo(items []domain.ApplicationSummary) *fakeApplicationRepo {
	matching := func(kind domain.ApplicationKind, since time.Time) []domain.ApplicationSummary {
		out := make([]domain.ApplicationSummary, 0)
		for _, item := range items {
			if item.Kind == kind && !item.AppliedAt.Before(since) {
				out = append(out, item)
			}
		}
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].AppliedAt.After(out[j].AppliedAt)
		})
		return out
	}

	return &fakeApplicationRepo{
		listSinceFn: func(ctx context.Context, kind domain.ApplicationKind, since time.Time, limit int) ([]domain.ApplicationSummary, error) {
			out := matching(kind, since)
			if len(out) > limit {
				out = out[:limit]
			}
			return out, nil
		},
		countSinceFn: func(ctx context.Context, kind domain.ApplicationKind, since time.Time) (int64, error) {
			return int64(len(matching(kind, since))), nil
		},
	}
}

type fakeAdminRepo struct {
	listAdminsFn func(ctx context.Context) ([]domain.Admin, error)
	getAdminFn   func(ctx context.Context, id string) (*domain.Admin, error)
}

var _ repository.AdminRepository = (*fakeAdminRepo)(nil)

func (f *fakeAdminRepo) ListAdmins(ctx context.Context) ([]domain.Admin, error) {
	if f.listAdminsFn != nil {
		return f.listAdminsFn(ctx)
	}
	return []domain.Admin{}, nil
}

func (f *fakeAdminRepo) GetAdmin(ctx context.Context, id string) (*domain.Admin, error) {
	if f.getAdminFn != nil {
		return f.getAdminFn(ctx, id)
	}
	return &domain.Admin{ID: id, Email: id + "@example.com"}, nil
}

type fakePreferenceRepo struct {
	listByUserIDsFn func(ctx context.Context, userIDs []string) (map[string]domain.NotificationPreference, error)
	getByUserIDFn   func(ctx context.Context, userID string) (*domain.NotificationPreference, error)
	upsertFn        func(ctx context.Context, p *domain.NotificationPreference) error
}

var _ repository.PreferenceRepository = (*fakePreferenceRepo)(nil)

func (f *fakePreferenceRepo) ListByUserIDs(ctx context.Context, userIDs []string) (map[string]domain.NotificationPreference, error) {
	if f.listByUserIDsFn != nil {
		return f.listByUserIDsFn(ctx, userIDs)
	}
	return map[string]domain.NotificationPreference{}, nil
}

func (f *fakePreferenceRepo) GetByUserID(ctx context.Context, userID string) (*domain.NotificationPreference, error) {
	if f.getByUserIDFn != nil {
		return f.getByUserIDFn(ctx, userID)
	}
	return nil, domain.ErrNotFound
}

func (f *fakePreferenceRepo) Upsert(ctx context.Context, p *domain.NotificationPreference) error {
	if f.upsertFn != nil {
		return f.upsertFn(ctx, p)
	}
	return nil
}

type fakeBrandingRepo struct {
	getFn    func(ctx context.Context) (*domain.EmailBranding, error)
	upsertFn func(ctx context.Context, b *domain.EmailBranding) error
}

var _ repository.BrandingRepository = (*fakeBrandingRepo)(nil)

func (f *fakeBrandingRepo) Get(ctx context.Context) (*domain.EmailBranding, error) {
	if f.getFn != nil {
		return f.getFn(ctx)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeBrandingRepo) Upsert(ctx context.Context, b *domain.EmailBranding) error {
	if f.upsertFn != nil {
		return f.upsertFn(ctx, b)
	}
	return nil
}

// fakeLogRepo records created entries. Create is called concurrently by the
// dispatcher.
type fakeLogRepo struct {
	mu       sync.Mutex
	entries  []domain.NotificationLogEntry
	createFn func(ctx context.Context, e *domain.NotificationLogEntry) error
	listFn   func(ctx context.Context, params repository.LogListParams) ([]domain.NotificationLogEntry, int64, error)
}

var _ repository.NotificationLogRepository = (*fakeLogRepo)(nil)

func (f *fakeLogRepo) Create(ctx context.Context, e *domain.NotificationLogEntry) error {
	if f.createFn != nil {
		if err := f.createFn(ctx, e); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, *e)
	return nil
}

func (f *fakeLogRepo) List(ctx context.Context, params repository.LogListParams) ([]domain.NotificationLogEntry, int64, error) {
	if f.listFn != nil {
		return f.listFn(ctx, params)
	}
	return []domain.NotificationLogEntry{}, 0, nil
}

func (f *fakeLogRepo) snapshot() []domain.NotificationLogEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.NotificationLogEntry, len(f.entries))
	copy(out, f.entries)
	sort.Slice(out, func(i, j int) bool { return out[i].Recipient < out[j].Recipient })
	return out
}

type fakeEmailProvider struct {
	mu     sync.Mutex
	sent   []provider.OutboundEmail
	sendFn func(ctx context.Context, email provider.OutboundEmail) (*provider.ProviderResponse, error)
}

var _ provider.EmailProvider = (*fakeEmailProvider)(nil)

func (f *fakeEmailProvider) Name() string { return "fake" }

func (f *fakeEmailProvider) Send(ctx context.Context, email provider.OutboundEmail) (*provider.ProviderResponse, error) {
	f.mu.Lock()
	f.sent = append(f.sent, email)
	f.mu.Unlock()

	if f.sendFn != nil {
		return f.sendFn(ctx, email)
	}
	return &provider.ProviderResponse{StatusCode: 200, MessageID: "msg-" + email.To}, nil
}

func (f *fakeEmailProvider) calls() []provider.OutboundEmail {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]provider.OutboundEmail, len(f.sent))
	copy(out, f.sent)
	sort.Slice(out, func(i, j int) bool { return out[i].To < out[j].To })
	return out
}

type fakeRateLimiter struct {
	allowFn func(ctx context.Context, scope string) (bool, error)
	waitFn  func(ctx context.Context, scope string) error
}

var _ ratelimit.RateLimiter = (*fakeRateLimiter)(nil)

func (f *fakeRateLimiter) Allow(ctx context.Context, scope string) (bool, error) {
	if f.allowFn != nil {
		return f.allowFn(ctx, scope)
	}
	return true, nil
}

func (f *fakeRateLimiter) Wait(ctx context.Context, scope string) error {
	if f.waitFn != nil {
		return f.waitFn(ctx, scope)
	}
	return nil
}

type fakeDeduper struct {
	claimFn   func(ctx context.Context, key string) (bool, error)
	releaseFn func(ctx context.Context, key string) error
}

var _ EventDeduper = (*fakeDeduper)(nil)

func (f *fakeDeduper) Claim(ctx context.Context, key string) (bool, error) {
	if f.claimFn != nil {
		return f.claimFn(ctx, key)
	}
	return true, nil
}

func (f *fakeDeduper) Release(ctx context.Context, key string) error {
	if f.releaseFn != nil {
		return f.releaseFn(ctx, key)
	}
	return nil
}

type fakePublisher struct {
	publishFn        func(ctx context.Context, msg queue.TaskMessage) error
	publishDelayedFn func(ctx context.Context, msg queue.TaskMessage, delay time.Duration) error
	closeFn          func() error
}

var _ queue.Publisher = (*fakePublisher)(nil)

func (f *fakePublisher) Publish(ctx context.Context, msg queue.TaskMessage) error {
	if f.publishFn != nil {
		return f.publishFn(ctx, msg)
	}
	return nil
}

func (f *fakePublisher) PublishDelayed(ctx context.Context, msg queue.TaskMessage, delay time.Duration) error {
	if f.publishDelayedFn != nil {
		return f.publishDelayedFn(ctx, msg, delay)
	}
	return nil
}

func (f *fakePublisher) Close() error {
	if f.closeFn != nil {
		return f.closeFn()
	}
	return nil
}

type fakeConsumer struct {
	consumeFn func(ctx context.Context, queue string, handler queue.MessageHandler) error
	closeFn   func() error
}

var _ queue.Consumer = (*fakeConsumer)(nil)

func (f *fakeConsumer) Consume(ctx context.Context, queueName string, handler queue.MessageHandler) error {
	if f.consumeFn != nil {
		return f.consumeFn(ctx, queueName, handler)
	}
	return nil
}

func (f *fakeConsumer) Close() error {
	if f.closeFn != nil {
		return f.closeFn()
	}
	return nil
}

func newTestRenderer(t *testing.T) *render.Renderer {
	t.Helper()
	r, err := render.NewRenderer("https://portal.example.com")
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}
	return r
}
