package withdrawal

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/tpc-global/tpc_portal/internal/i18n"
	"github.com/tpc-global/tpc_portal/internal/money"
	"github.com/tpc-global/tpc_portal/internal/respond"
	"github.com/tpc-global/tpc_portal/internal/session"
	"github.com/tpc-global/tpc_portal/internal/statusview"
)

// Handler exposes withdrawal HTTP endpoints.
type Handler struct {
	service *Service
	catalog *i18n.Catalog
	logger  *slog.Logger
}

// NewHandler builds a withdrawal HTTP handler.
func NewHandler(service *Service, catalog *i18n.Catalog, logger *slog.Logger) *Handler {
	return &Handler{service: service, catalog: catalog, logger: logger}
}

type display struct {
	Amount    string `json:"amount"`
	Requested string `json:"requested"`
	Processed string `json:"processed,omitempty"`
}

type withdrawalView struct {
	Withdrawal
	View    statusview.View `json:"view"`
	Display display         `json:"display"`
}

type reviewResponse struct {
	Withdrawal withdrawalView `json:"withdrawal"`
	Warning    string         `json:"warning,omitempty"`
}

type approveRequest struct {
	TxHash string `json:"tx_hash"`
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// List returns the caller's withdrawals.
func (h *Handler) List(c *fiber.Ctx) error {
	pc := respond.Copy(c, h.catalog)
	sess, ok := session.From(c)
	if !ok {
		return respond.Unauthorized(c, pc.Errors)
	}
	list, err := h.service.List(c.UserContext(), sess)
	if err != nil {
		return h.fail(c, pc, err)
	}
	return c.JSON(fiber.Map{"withdrawals": h.views(list, statusview.Member, pc, respond.Lang(c))})
}

// AdminList returns every withdrawal, filtered by the "status" query.
func (h *Handler) AdminList(c *fiber.Ctx) error {
	pc := respond.Copy(c, h.catalog)
	sess, ok := session.From(c)
	if !ok {
		return respond.Unauthorized(c, pc.Errors)
	}
	list, err := h.service.AdminList(c.UserContext(), sess, utils.CopyString(c.Query("status")))
	if err != nil {
		return h.fail(c, pc, err)
	}
	return c.JSON(fiber.Map{"withdrawals": h.views(list, statusview.Admin, pc, respond.Lang(c))})
}

// AuditLogs returns the review trail of a withdrawal.
func (h *Handler) AuditLogs(c *fiber.Ctx) error {
	pc := respond.Copy(c, h.catalog)
	sess, ok := session.From(c)
	if !ok {
		return respond.Unauthorized(c, pc.Errors)
	}
	logs, err := h.service.AuditLogs(c.UserContext(), sess, utils.CopyString(c.Params("id")))
	if err != nil {
		return h.fail(c, pc, err)
	}
	return c.JSON(fiber.Map{"audit_logs": logs})
}

// Approve records a payout.
func (h *Handler) Approve(c *fiber.Ctx) error {
	pc := respond.Copy(c, h.catalog)
	sess, ok := session.From(c)
	if !ok {
		return respond.Unauthorized(c, pc.Errors)
	}
	var req approveRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	rev, err := h.service.Approve(c.UserContext(), sess, utils.CopyString(c.Params("id")), req.TxHash)
	if err != nil {
		return h.fail(c, pc, err)
	}
	return c.JSON(h.review(rev, pc, respond.Lang(c)))
}

// Reject refuses a payout with a reason.
func (h *Handler) Reject(c *fiber.Ctx) error {
	pc := respond.Copy(c, h.catalog)
	sess, ok := session.From(c)
	if !ok {
		return respond.Unauthorized(c, pc.Errors)
	}
	var req rejectRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	rev, err := h.service.Reject(c.UserContext(), sess, utils.CopyString(c.Params("id")), req.Reason)
	if err != nil {
		return h.fail(c, pc, err)
	}
	return c.JSON(h.review(rev, pc, respond.Lang(c)))
}

func (h *Handler) review(rev Review, pc i18n.PublicCopy, lang i18n.Lang) reviewResponse {
	resp := reviewResponse{Withdrawal: h.view(rev.Withdrawal, statusview.Admin, pc, lang)}
	if !rev.NotifyQueued {
		resp.Warning = pc.Errors.NotificationWarning
	}
	return resp
}

func (h *Handler) fail(c *fiber.Ctx, pc i18n.PublicCopy, err error) error {
	if errors.Is(err, ErrReasonRequired) {
		return respond.Unprocessable(c, "reason_required", pc.Errors.RejectReasonRequired)
	}
	h.logger.Warn("withdrawal request failed", slog.String("path", c.Path()), slog.Any("error", err))
	return respond.Error(c, pc.Errors, "", err)
}

func (h *Handler) views(list []Withdrawal, audience statusview.Audience, pc i18n.PublicCopy, lang i18n.Lang) []withdrawalView {
	out := make([]withdrawalView, 0, len(list))
	for _, w := range list {
		out = append(out, h.view(w, audience, pc, lang))
	}
	return out
}

func (h *Handler) view(w Withdrawal, audience statusview.Audience, pc i18n.PublicCopy, lang i18n.Lang) withdrawalView {
	v := withdrawalView{
		Withdrawal: w,
		View:       statusview.Withdrawal(string(w.Status), audience, pc.Status),
		Display: display{
			Amount:    money.FormatTPC(lang.Tag(), w.AmountTPC),
			Requested: h.catalog.FormatDate(lang, w.RequestedAt),
		},
	}
	if w.ProcessedAt != nil {
		v.Display.Processed = h.catalog.FormatDate(lang, *w.ProcessedAt)
	}
	return v
}
