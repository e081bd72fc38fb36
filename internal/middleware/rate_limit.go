package middleware

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/tpc-global/tpc_portal/internal/i18n"
	"github.com/tpc-global/tpc_portal/internal/respond"
	"github.com/tpc-global/tpc_portal/internal/session"
)

// SubmitRateLimit caps invoice submissions per user (or IP when anonymous)
// per minute using a Redis counter. It fails open without Redis or on Redis
// errors.
func SubmitRateLimit(cache *redis.Client, maxPerMin int, catalog *i18n.Catalog) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 10
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next()
		}
		subject := c.IP()
		if sess, ok := session.From(c); ok {
			subject = sess.CurrentUser.ID
		}
		key := "rl:submit:" + subject
		cnt, err := cache.Incr(c.UserContext(), key).Result()
		if err != nil {
			return c.Next()
		}
		if cnt == 1 {
			cache.Expire(c.UserContext(), key, time.Minute)
		}
		if cnt > int64(maxPerMin) {
			c.Set(fiber.HeaderRetryAfter, "60")
			return respond.Fail(c, http.StatusTooManyRequests, respond.Problem{
				Code:    "rate_limited",
				Message: respond.Copy(c, catalog).Errors.RateLimited,
			})
		}
		return c.Next()
	}
}
