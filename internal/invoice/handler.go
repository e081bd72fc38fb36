package invoice

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/valyala/fasthttp"

	"github.com/tpc-global/tpc_portal/internal/i18n"
	"github.com/tpc-global/tpc_portal/internal/middleware"
	"github.com/tpc-global/tpc_portal/internal/money"
	"github.com/tpc-global/tpc_portal/internal/order"
	"github.com/tpc-global/tpc_portal/internal/rates"
	"github.com/tpc-global/tpc_portal/internal/referral"
	"github.com/tpc-global/tpc_portal/internal/respond"
	"github.com/tpc-global/tpc_portal/internal/session"
	"github.com/tpc-global/tpc_portal/internal/statusview"
	"github.com/tpc-global/tpc_portal/internal/storage"
)

// Handler exposes invoice HTTP endpoints.
type Handler struct {
	service   *Service
	catalog   *i18n.Catalog
	logger    *slog.Logger
	heartbeat time.Duration
	maxStream time.Duration
}

// NewHandler builds an invoice HTTP handler.
func NewHandler(service *Service, catalog *i18n.Catalog, logger *slog.Logger) *Handler {
	return &Handler{
		service:   service,
		catalog:   catalog,
		logger:    logger,
		heartbeat: 25 * time.Second,
		maxStream: 30 * time.Minute,
	}
}

type quoteRequest struct {
	Currency string `json:"currency"`
	Amount   string `json:"amount"`
}

type quoteResponse struct {
	money.Quote
	RateSource rates.Origin `json:"rate_source"`
	Display    display      `json:"display"`
}

type display struct {
	Amount  string `json:"amount"`
	USD     string `json:"usd"`
	TPC     string `json:"tpc"`
	Created string `json:"created,omitempty"`
	Expires string `json:"expires,omitempty"`
}

type invoiceView struct {
	Invoice
	View       statusview.View `json:"view"`
	Display    display         `json:"display"`
	PaymentURI string          `json:"payment_uri,omitempty"`
}

type validateResponse struct {
	order.Result
	Quote money.Quote `json:"quote"`
}

type submitResponse struct {
	Invoice invoiceView         `json:"invoice"`
	Next    string              `json:"next"`
	Sponsor referral.Resolution `json:"sponsor"`
	Warning string              `json:"warning,omitempty"`
}

type reviewResponse struct {
	Invoice invoiceView `json:"invoice"`
	Warning string      `json:"warning,omitempty"`
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// Quote prices an amount typed in the buy form.
func (h *Handler) Quote(c *fiber.Ctx) error {
	var req quoteRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	cur, err := money.ParseCurrency(req.Currency)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	quote, snap := h.service.Quote(c.UserContext(), req.Amount, cur)
	tag := respond.Lang(c).Tag()
	return c.JSON(quoteResponse{
		Quote:      quote,
		RateSource: snap.Source,
		Display: display{
			Amount: money.FormatDisplay(tag, quote.Amount, cur),
			USD:    money.FormatUSD(tag, quote.USDDisplay()),
			TPC:    money.FormatTPC(tag, quote.TPC),
		},
	})
}

// Validate runs the order checks without creating anything.
func (h *Handler) Validate(c *fiber.Ctx) error {
	var form order.Form
	if err := c.BodyParser(&form); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	cur, err := money.ParseCurrency(string(form.Currency))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	form.Currency = cur
	res, quote := h.service.Validate(c.UserContext(), form, respond.Copy(c, h.catalog).Reasons)
	return c.JSON(validateResponse{Result: res, Quote: quote})
}

// Submit creates an invoice from the buy form.
func (h *Handler) Submit(c *fiber.Ctx) error {
	pc := respond.Copy(c, h.catalog)
	sess, ok := session.From(c)
	if !ok {
		return respond.Unauthorized(c, pc.Errors)
	}
	var form order.Form
	if err := c.BodyParser(&form); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	cur, err := money.ParseCurrency(string(form.Currency))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	form.Currency = cur

	lang := respond.Lang(c)
	sub, err := h.service.Submit(c.UserContext(), sess, SubmitInput{
		Form:     form,
		Lang:     lang,
		ClientID: middleware.ClientID(c),
		Ref:      utils.CopyString(c.Query("ref")),
	}, pc.Reasons)
	if err != nil {
		return h.fail(c, pc, form.Currency, err)
	}

	resp := submitResponse{
		Invoice: h.view(sub.Invoice, statusview.Member, pc, lang),
		Next:    sub.Next,
		Sponsor: sub.Sponsor,
	}
	if !sub.NotifyQueued {
		resp.Warning = pc.Errors.NotificationWarning
	}
	return c.Status(http.StatusCreated).JSON(resp)
}

// List returns the caller's invoices.
func (h *Handler) List(c *fiber.Ctx) error {
	pc := respond.Copy(c, h.catalog)
	sess, ok := session.From(c)
	if !ok {
		return respond.Unauthorized(c, pc.Errors)
	}
	list, err := h.service.List(c.UserContext(), sess)
	if err != nil {
		return h.fail(c, pc, "", err)
	}
	return c.JSON(fiber.Map{"invoices": h.views(list, statusview.Member, pc, respond.Lang(c))})
}

// Get returns one of the caller's invoices.
func (h *Handler) Get(c *fiber.Ctx) error {
	pc := respond.Copy(c, h.catalog)
	sess, ok := session.From(c)
	if !ok {
		return respond.Unauthorized(c, pc.Errors)
	}
	inv, err := h.service.Get(c.UserContext(), sess, utils.CopyString(c.Params("id")))
	if err != nil {
		return h.fail(c, pc, "", err)
	}
	return c.JSON(h.view(inv, statusview.Member, pc, respond.Lang(c)))
}

// Stream pushes the full invoice list on connect and after every change.
func (h *Handler) Stream(c *fiber.Ctx) error {
	pc := respond.Copy(c, h.catalog)
	sess, ok := session.From(c)
	if !ok {
		return respond.Unauthorized(c, pc.Errors)
	}
	lang := respond.Lang(c)
	signals, cancel := h.service.Hub().Subscribe(sess.CurrentUser.ID)

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()
		heartbeat := time.NewTicker(h.heartbeat)
		defer heartbeat.Stop()
		deadline := time.NewTimer(h.maxStream)
		defer deadline.Stop()

		send := func() bool {
			ctx, done := context.WithTimeout(context.Background(), 10*time.Second)
			defer done()
			list, err := h.service.List(ctx, sess)
			if err != nil {
				h.logger.Warn("invoice stream refetch failed", slog.String("user_id", sess.CurrentUser.ID), slog.Any("error", err))
				fmt.Fprintf(w, "event: error\ndata: %q\n\n", pc.Errors.Generic)
				return w.Flush() == nil
			}
			payload, err := json.Marshal(h.views(list, statusview.Member, pc, lang))
			if err != nil {
				return false
			}
			fmt.Fprintf(w, "event: invoices\ndata: %s\n\n", payload)
			return w.Flush() == nil
		}

		if !send() {
			return
		}
		for {
			select {
			case <-signals:
				if !send() {
					return
				}
			case <-heartbeat.C:
				fmt.Fprint(w, ": ping\n\n")
				if w.Flush() != nil {
					return
				}
			case <-deadline.C:
				return
			}
		}
	}))
	return nil
}

// UploadProof accepts a multipart "file" and moves the invoice to review.
func (h *Handler) UploadProof(c *fiber.Ctx) error {
	pc := respond.Copy(c, h.catalog)
	sess, ok := session.From(c)
	if !ok {
		return respond.Unauthorized(c, pc.Errors)
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return respond.Unprocessable(c, "proof_invalid", pc.Errors.ProofInvalid)
	}
	f, err := fh.Open()
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	defer f.Close()

	inv, err := h.service.UploadProof(c.UserContext(), sess, utils.CopyString(c.Params("id")), f)
	if err != nil {
		return h.fail(c, pc, "", err)
	}
	return c.JSON(h.view(inv, statusview.Member, pc, respond.Lang(c)))
}

// PaymentQR serves the Solana Pay QR code as PNG.
func (h *Handler) PaymentQR(c *fiber.Ctx) error {
	pc := respond.Copy(c, h.catalog)
	sess, ok := session.From(c)
	if !ok {
		return respond.Unauthorized(c, pc.Errors)
	}
	png, err := h.service.PaymentQR(c.UserContext(), sess, utils.CopyString(c.Params("id")))
	if err != nil {
		return h.fail(c, pc, "", err)
	}
	c.Set(fiber.HeaderContentType, "image/png")
	c.Set(fiber.HeaderCacheControl, "private, max-age=300")
	return c.Send(png)
}

// AdminGet returns any invoice with admin controls.
func (h *Handler) AdminGet(c *fiber.Ctx) error {
	pc := respond.Copy(c, h.catalog)
	sess, ok := session.From(c)
	if !ok {
		return respond.Unauthorized(c, pc.Errors)
	}
	inv, err := h.service.AdminGet(c.UserContext(), sess, utils.CopyString(c.Params("id")))
	if err != nil {
		return h.fail(c, pc, "", err)
	}
	return c.JSON(h.view(inv, statusview.Admin, pc, respond.Lang(c)))
}

// Approve marks an invoice paid.
func (h *Handler) Approve(c *fiber.Ctx) error {
	pc := respond.Copy(c, h.catalog)
	sess, ok := session.From(c)
	if !ok {
		return respond.Unauthorized(c, pc.Errors)
	}
	rev, err := h.service.Approve(c.UserContext(), sess, utils.CopyString(c.Params("id")))
	if err != nil {
		return h.fail(c, pc, "", err)
	}
	return c.JSON(h.review(rev, pc, respond.Lang(c)))
}

// Reject cancels an invoice with a reason.
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
		return h.fail(c, pc, "", err)
	}
	return c.JSON(h.review(rev, pc, respond.Lang(c)))
}

func (h *Handler) review(rev Review, pc i18n.PublicCopy, lang i18n.Lang) reviewResponse {
	resp := reviewResponse{Invoice: h.view(rev.Invoice, statusview.Admin, pc, lang)}
	if !rev.NotifyQueued {
		resp.Warning = pc.Errors.NotificationWarning
	}
	return resp
}

func (h *Handler) fail(c *fiber.Ctx, pc i18n.PublicCopy, cur money.Currency, err error) error {
	switch {
	case errors.Is(err, ErrReasonRequired):
		return respond.Unprocessable(c, "reason_required", pc.Errors.RejectReasonRequired)
	case errors.Is(err, storage.ErrTooLarge), errors.Is(err, storage.ErrUnsupportedType), errors.Is(err, storage.ErrEmpty):
		return respond.Unprocessable(c, "proof_invalid", pc.Errors.ProofInvalid)
	case errors.Is(err, ErrNoPaymentQR):
		return respond.Fail(c, http.StatusNotFound, respond.Problem{Code: respond.CodeNotFound, Message: pc.Errors.NotFound})
	}
	var ve *order.ValidationError
	if !errors.As(err, &ve) {
		h.logger.Warn("invoice request failed", slog.String("path", c.Path()), slog.Any("error", err))
	}
	return respond.Error(c, pc.Errors, cur, err)
}

func (h *Handler) views(list []Invoice, audience statusview.Audience, pc i18n.PublicCopy, lang i18n.Lang) []invoiceView {
	out := make([]invoiceView, 0, len(list))
	for _, inv := range list {
		out = append(out, h.view(inv, audience, pc, lang))
	}
	return out
}

func (h *Handler) view(inv Invoice, audience statusview.Audience, pc i18n.PublicCopy, lang i18n.Lang) invoiceView {
	tag := lang.Tag()
	v := invoiceView{
		Invoice: inv,
		View:    statusview.Invoice(string(inv.Status), audience, pc.Status),
		Display: display{
			Amount:  money.FormatDisplay(tag, inv.AmountInput, inv.BaseCurrency),
			USD:     money.FormatUSD(tag, inv.AmountUSD),
			TPC:     money.FormatTPC(tag, inv.TPCAmount),
			Created: h.catalog.FormatDate(lang, inv.CreatedAt),
			Expires: h.catalog.FormatDate(lang, inv.ExpiresAt),
		},
	}
	if audience == statusview.Member && inv.Status == StatusUnpaid {
		v.PaymentURI = h.service.PaymentURI(inv)
	}
	return v
}
