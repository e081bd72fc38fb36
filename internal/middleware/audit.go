package middleware

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/tpc-global/tpc_portal/internal/respond"
	"github.com/tpc-global/tpc_portal/internal/session"
)

// Audit emits one structured log line per request with the caller, language
// and outcome.
func Audit(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		attrs := []any{
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", c.Response().StatusCode()),
			slog.Duration("duration", time.Since(start)),
			slog.String("lang", string(respond.Lang(c))),
		}
		if requestID := RequestIDFrom(c); requestID != "" {
			attrs = append(attrs, slog.String("request_id", requestID))
		}
		if sess, ok := session.From(c); ok {
			attrs = append(attrs, slog.String("user_id", sess.CurrentUser.ID), slog.Bool("admin", sess.CurrentUser.Admin))
		}
		if err != nil {
			attrs = append(attrs, slog.Any("error", err))
			logger.Error("request completed", attrs...)
			return err
		}

		logger.Info("request completed", attrs...)
		return nil
	}
}
