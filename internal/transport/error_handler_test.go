package transport

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestErrorHandler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       error
		wantCode  int
		wantLevel zapcore.Level
	}{
		{name: "client error", err: fiber.NewError(fiber.StatusBadRequest, "validation error: bad input"), wantCode: fiber.StatusBadRequest, wantLevel: zapcore.WarnLevel},
		{name: "upstream error", err: fiber.NewError(fiber.StatusBadGateway, "delivery failed"), wantCode: fiber.StatusBadGateway, wantLevel: zapcore.ErrorLevel},
		{name: "plain error", err: errors.New("boom"), wantCode: fiber.StatusInternalServerError, wantLevel: zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			core, logs := observer.New(zapcore.DebugLevel)
			app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(zap.New(core))})
			app.Get("/fail", func(c *fiber.Ctx) error {
				c.Locals("requestid", "req-1")
				return tt.err
			})

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/fail", nil))
			if err != nil {
				t.Fatalf("app.Test() error = %v", err)
			}
			body, _ := io.ReadAll(resp.Body)
			_ = resp.Body.Close()

			if resp.StatusCode != tt.wantCode {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantCode)
			}
			if !strings.Contains(string(body), `"error"`) {
				t.Fatalf("body = %s, want error field", string(body))
			}

			entries := logs.All()
			if len(entries) != 1 || entries[0].Level != tt.wantLevel {
				t.Fatalf("log entries = %+v, want one at %s", entries, tt.wantLevel)
			}
			if entries[0].ContextMap()["correlation_id"] != "req-1" {
				t.Fatalf("fields = %v, want correlation_id", entries[0].ContextMap())
			}
		})
	}
}
