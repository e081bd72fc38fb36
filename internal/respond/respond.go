// Package respond carries per-request language state and maps service errors
// onto HTTP responses with localized messages.
package respond

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/tpc-global/tpc_portal/internal/i18n"
	"github.com/tpc-global/tpc_portal/internal/money"
	"github.com/tpc-global/tpc_portal/internal/order"
	"github.com/tpc-global/tpc_portal/internal/rpc"
	"github.com/tpc-global/tpc_portal/internal/session"
)

const (
	langKey = "lang"
	// PortalPathHeader lets the frontend name the page to return to after login.
	PortalPathHeader = "X-Portal-Path"
	apiPrefix        = "/api/v1"
)

// Error codes returned in the body.
const (
	CodeAuthRequired = "auth_required"
	CodeForbidden    = "forbidden"
	CodeNotFound     = "not_found"
	CodeValidation   = "validation"
	CodeGeneric      = "generic"
)

// Problem is the JSON error body.
type Problem struct {
	Code     string         `json:"code"`
	Message  string         `json:"message"`
	Redirect string         `json:"redirect,omitempty"`
	Reasons  []order.Reason `json:"reasons,omitempty"`
}

// SetLang stores the request language.
func SetLang(c *fiber.Ctx, lang i18n.Lang) {
	c.Locals(langKey, lang)
}

// Lang returns the request language. Outside the /{lang} routes it is
// negotiated from Accept-Language.
func Lang(c *fiber.Ctx) i18n.Lang {
	if lang, ok := c.Locals(langKey).(i18n.Lang); ok {
		return lang
	}
	return i18n.Negotiate(c.Get(fiber.HeaderAcceptLanguage))
}

// LoginRedirect builds /{lang}/login?next=<path>.
func LoginRedirect(lang i18n.Lang, next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		next = "/" + string(lang)
	}
	return "/" + string(lang) + "/login?next=" + url.QueryEscape(next)
}

// portalPath is the page the user was on: the explicit header or the API
// path with its prefix stripped.
func portalPath(c *fiber.Ctx) string {
	if p := c.Get(PortalPathHeader); p != "" {
		return p
	}
	return strings.TrimPrefix(c.Path(), apiPrefix)
}

// Fail writes a Problem with status.
func Fail(c *fiber.Ctx, status int, p Problem) error {
	return c.Status(status).JSON(fiber.Map{"error": p})
}

// Unprocessable writes a 422 with code and message.
func Unprocessable(c *fiber.Ctx, code, message string) error {
	return Fail(c, http.StatusUnprocessableEntity, Problem{Code: code, Message: message})
}

// Unauthorized writes the login redirect problem.
func Unauthorized(c *fiber.Ctx, errs i18n.ErrorsCopy) error {
	lang := Lang(c)
	return Fail(c, http.StatusUnauthorized, Problem{
		Code:     CodeAuthRequired,
		Message:  errs.AuthRequired,
		Redirect: LoginRedirect(lang, portalPath(c)),
	})
}

// Forbidden writes a 403 for a signed-in user lacking the required role.
func Forbidden(c *fiber.Ctx, errs i18n.ErrorsCopy) error {
	return Fail(c, http.StatusForbidden, Problem{Code: CodeForbidden, Message: errs.Forbidden})
}

// Error maps err onto the three user-facing categories: auth, domain and
// generic. cur selects the precision message for amount errors.
func Error(c *fiber.Ctx, errs i18n.ErrorsCopy, cur money.Currency, err error) error {
	var ve *order.ValidationError
	switch {
	case errors.Is(err, rpc.ErrAuthRequired),
		errors.Is(err, session.ErrMissingToken),
		errors.Is(err, session.ErrInvalidToken),
		errors.Is(err, session.ErrRevoked):
		return Unauthorized(c, errs)
	case errors.Is(err, rpc.ErrNotFound):
		return Fail(c, http.StatusNotFound, Problem{Code: CodeNotFound, Message: errs.NotFound})
	case errors.As(err, &ve):
		return Fail(c, http.StatusUnprocessableEntity, Problem{
			Code:    CodeValidation,
			Message: ve.Result.First(),
			Reasons: ve.Result.Reasons,
		})
	}

	if de, ok := rpc.IsDomain(err); ok {
		if de.Kind == rpc.KindNotFound {
			return Fail(c, http.StatusNotFound, Problem{Code: CodeNotFound, Message: errs.NotFound})
		}
		return Unprocessable(c, string(de.Kind), domainMessage(errs, de.Kind, cur))
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		return err
	}
	return Fail(c, http.StatusBadGateway, Problem{Code: CodeGeneric, Message: errs.Generic})
}

func domainMessage(errs i18n.ErrorsCopy, kind rpc.Kind, cur money.Currency) string {
	switch kind {
	case rpc.KindAmountPrecision:
		switch cur {
		case money.IDR:
			return errs.PrecisionIDR
		case money.USDC:
			return errs.PrecisionUSDC
		case money.SOL:
			return errs.PrecisionSOL
		}
		return errs.AmountInvalid
	case rpc.KindAmount:
		return errs.AmountInvalid
	case rpc.KindWallet:
		return errs.WalletInvalid
	case rpc.KindMinimum:
		return errs.MinimumOrder
	case rpc.KindStatus:
		return errs.InvalidStatus
	}
	return errs.Generic
}

// Copy returns the merged copy for the request language.
func Copy(c *fiber.Ctx, cat *i18n.Catalog) i18n.PublicCopy {
	return cat.PublicCopySafe(Lang(c))
}
