package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/tpc-global/tpc_portal/internal/i18n"
	"github.com/tpc-global/tpc_portal/internal/respond"
	"github.com/tpc-global/tpc_portal/internal/session"
)

// RequireSession verifies the bearer token and attaches the session. Missing,
// invalid and signed-out tokens answer with the login redirect.
func RequireSession(verifier *session.Verifier, catalog *i18n.Catalog) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := session.BearerToken(c.Get(fiber.HeaderAuthorization))
		sess, err := verifier.Verify(c.UserContext(), token)
		if err != nil {
			if errors.Is(err, session.ErrMissingToken) || errors.Is(err, session.ErrInvalidToken) || errors.Is(err, session.ErrRevoked) {
				return respond.Unauthorized(c, respond.Copy(c, catalog).Errors)
			}
			return err
		}
		session.Attach(c, sess)
		return c.Next()
	}
}

// RequireAdmin rejects sessions without the admin role. It must run after
// RequireSession; a signed-in member gets 403 without a login redirect.
func RequireAdmin(catalog *i18n.Catalog) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, ok := session.From(c)
		if !ok {
			return respond.Unauthorized(c, respond.Copy(c, catalog).Errors)
		}
		if !sess.CurrentUser.Admin {
			return respond.Forbidden(c, respond.Copy(c, catalog).Errors)
		}
		return c.Next()
	}
}
