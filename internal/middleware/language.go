package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/tpc-global/tpc_portal/internal/i18n"
	"github.com/tpc-global/tpc_portal/internal/respond"
)

// Language resolves the /{lang}/ path segment that follows prefix and stores
// it for handlers. Unsupported languages are 404s, as on the portal.
func Language(prefix string) fiber.Handler {
	prefix = strings.TrimSuffix(prefix, "/") + "/"
	return func(c *fiber.Ctx) error {
		rest := strings.TrimPrefix(c.Path(), prefix)
		segment, _, _ := strings.Cut(rest, "/")
		lang, ok := i18n.FromPrefix(segment)
		if !ok {
			return fiber.NewError(http.StatusNotFound, "unsupported language")
		}
		respond.SetLang(c, lang)
		c.Set(fiber.HeaderContentLanguage, string(lang))
		return c.Next()
	}
}
