package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"
)

const (
	clientCookie = "tpc_client"
	clientKey    = "client_id"
	clientMaxAge = 365 * 24 * time.Hour
)

// ClientCookie identifies the browser across visits so a pending sponsor code
// survives until the buyer signs in. A cookie is issued when missing or
// malformed.
func ClientCookie(secure bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := utils.CopyString(c.Cookies(clientCookie))
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
			c.Cookie(&fiber.Cookie{
				Name:     clientCookie,
				Value:    id,
				Path:     "/",
				MaxAge:   int(clientMaxAge.Seconds()),
				HTTPOnly: true,
				Secure:   secure,
				SameSite: fiber.CookieSameSiteLaxMode,
			})
		}
		c.Locals(clientKey, id)
		return c.Next()
	}
}

// ClientID returns the id assigned by ClientCookie.
func ClientID(c *fiber.Ctx) string {
	id, _ := c.Locals(clientKey).(string)
	return id
}
