package observability

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsDeliveryCollectors(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()

	metrics.IncEmailSent("New_Application")
	metrics.IncEmailFailed("digest", "throttled")
	metrics.ObserveEmailSendDuration("http", 120*time.Millisecond)
	metrics.IncDispatchInFlight("digest")
	metrics.DecDispatchInFlight("digest")
	metrics.IncDigestSkipped("daily", "no_applications")
	metrics.IncTaskRetried("status_update")
	metrics.IncTaskDeadLettered("status_update")

	checks := []struct {
		name string
		got  float64
	}{
		{name: "emails_sent_total", got: testutil.ToFloat64(metrics.emailsSentTotal.WithLabelValues("new_application"))},
		{name: "emails_failed_total", got: testutil.ToFloat64(metrics.emailsFailedTotal.WithLabelValues("digest", "throttled"))},
		{name: "digests_skipped_total", got: testutil.ToFloat64(metrics.digestsSkippedTotal.WithLabelValues("daily", "no_applications"))},
		{name: "tasks_retried_total", got: testutil.ToFloat64(metrics.tasksRetriedTotal.WithLabelValues("status_update"))},
		{name: "tasks_dead_lettered_total", got: testutil.ToFloat64(metrics.tasksDeadTotal.WithLabelValues("status_update"))},
	}
	for _, c := range checks {
		if c.got != 1 {
			t.Fatalf("%s = %v, want 1", c.name, c.got)
		}
	}
	if got := testutil.ToFloat64(metrics.dispatchInflight.WithLabelValues("digest")); got != 0 {
		t.Fatalf("dispatch_inflight = %v, want 0", got)
	}
}

func TestMetricsNilReceiverIsNoop(t *testing.T) {
	t.Parallel()

	var metrics *Metrics
	metrics.IncEmailSent("digest")
	metrics.IncEmailFailed("digest", "error")
	metrics.ObserveEmailSendDuration("ses", time.Second)
	metrics.IncTaskRetried("digest")
	if metrics.Handler() == nil {
		t.Fatal("Handler() should fall back to the default handler")
	}
}

func TestMetricsHTTPMiddlewareRecordsRequest(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()
	app := fiber.New()
	app.Use(metrics.HTTPMiddleware())
	app.Get("/v1/branding", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest("GET", "/v1/branding", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	if got := testutil.ToFloat64(metrics.httpRequestsTotal.WithLabelValues("GET", "/v1/branding", "200")); got != 1 {
		t.Fatalf("http_requests_total = %v, want 1", got)
	}
}

func TestMetricsHTTPMiddlewareRecordsErrorStatus(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()
	app := fiber.New()
	app.Use(metrics.HTTPMiddleware())
	app.Get("/boom", func(c *fiber.Ctx) error {
		return errors.New("boom")
	})
	app.Get("/teapot", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusTeapot, "short and stout")
	})

	for _, path := range []string{"/boom", "/teapot"} {
		if _, err := app.Test(httptest.NewRequest("GET", path, nil)); err != nil {
			t.Fatalf("app.Test(%s) error = %v", path, err)
		}
	}

	if got := testutil.ToFloat64(metrics.httpRequestsTotal.WithLabelValues("GET", "/boom", "500")); got != 1 {
		t.Fatalf("http_requests_total /boom = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.httpRequestsTotal.WithLabelValues("GET", "/teapot", "418")); got != 1 {
		t.Fatalf("http_requests_total /teapot = %v, want 1", got)
	}
}
