package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/tpc-global/tpc_portal/internal/i18n"
	"github.com/tpc-global/tpc_portal/internal/middleware"
	"github.com/tpc-global/tpc_portal/internal/money"
	"github.com/tpc-global/tpc_portal/internal/presale"
	"github.com/tpc-global/tpc_portal/internal/referral"
	"github.com/tpc-global/tpc_portal/internal/respond"
	"github.com/tpc-global/tpc_portal/internal/session"
)

type presaleResponse struct {
	presale.Config
	Active     presale.Stage    `json:"active_stage"`
	Currencies []money.Currency `json:"currencies"`
	ServerTime time.Time        `json:"server_time"`
}

// RegisterPortalRoutes wires the public read endpoints of the portal.
func RegisterPortalRoutes(r fiber.Router, svc *Services, resolver *referral.Resolver) {
	r.Get("/copy", func(c *fiber.Ctx) error {
		lang := respond.Lang(c)
		c.Set(fiber.HeaderCacheControl, "public, max-age=300")
		return c.JSON(fiber.Map{
			"lang": lang,
			"copy": svc.Catalog.PublicCopySafe(lang),
		})
	})

	r.Get("/presale", func(c *fiber.Ctx) error {
		return c.JSON(presaleResponse{
			Config:     svc.Presale.Current(),
			Active:     svc.Presale.ActiveStage(),
			Currencies: money.Currencies,
			ServerTime: time.Now().UTC(),
		})
	})

	r.Get("/rates", func(c *fiber.Ctx) error {
		return c.JSON(svc.Rates.Current(c.UserContext()))
	})

	r.Get("/referral", func(c *fiber.Ctx) error {
		return c.JSON(resolver.Resolve(c.UserContext(), middleware.ClientID(c), utils.CopyString(c.Query("ref"))))
	})
}

// RegisterSessionRoutes wires session management for signed-in callers.
func RegisterSessionRoutes(r fiber.Router, catalog *i18n.Catalog) {
	r.Post("/session/signout", func(c *fiber.Ctx) error {
		sess, ok := session.From(c)
		if !ok {
			return respond.Unauthorized(c, respond.Copy(c, catalog).Errors)
		}
		if err := sess.SignOut(c.UserContext()); err != nil {
			return respond.Error(c, respond.Copy(c, catalog).Errors, "", err)
		}
		return c.JSON(fiber.Map{
			"signed_out": true,
			"redirect":   "/" + string(respond.Lang(c)),
		})
	})
}
