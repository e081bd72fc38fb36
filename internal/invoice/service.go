// Package invoice implements the buy flow and the member/admin invoice views.
package invoice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/tpc-global/tpc_portal/internal/i18n"
	"github.com/tpc-global/tpc_portal/internal/money"
	"github.com/tpc-global/tpc_portal/internal/notification"
	"github.com/tpc-global/tpc_portal/internal/order"
	"github.com/tpc-global/tpc_portal/internal/presale"
	"github.com/tpc-global/tpc_portal/internal/rates"
	"github.com/tpc-global/tpc_portal/internal/referral"
	"github.com/tpc-global/tpc_portal/internal/rpc"
	"github.com/tpc-global/tpc_portal/internal/session"
	"github.com/tpc-global/tpc_portal/internal/storage"
)

// ErrReasonRequired is returned when an admin rejects without a reason.
var ErrReasonRequired = errors.New("reject reason required")

// RateSource supplies current conversion rates.
type RateSource interface {
	Current(ctx context.Context) rates.Snapshot
}

// Enqueuer accepts best-effort notifications.
type Enqueuer interface {
	Enqueue(message notification.Message) error
}

// Deps wires a Service.
type Deps struct {
	Repo     Repository
	Cache    *Cache
	Hub      *Hub
	Presale  *presale.Service
	Rates    RateSource
	Referral *referral.Resolver
	Bucket   storage.Bucket
	Notifier Enqueuer
	Payment  PaymentTarget
	Logger   *slog.Logger
}

// Service orchestrates quoting, submission, proof upload and review.
type Service struct {
	repo     Repository
	cache    *Cache
	hub      *Hub
	presale  *presale.Service
	rates    RateSource
	referral *referral.Resolver
	bucket   storage.Bucket
	notifier Enqueuer
	payment  PaymentTarget
	logger   *slog.Logger
}

// NewService builds an invoice service.
func NewService(d Deps) *Service {
	hub := d.Hub
	if hub == nil {
		hub = NewHub()
	}
	return &Service{
		repo:     d.Repo,
		cache:    d.Cache,
		hub:      hub,
		presale:  d.Presale,
		rates:    d.Rates,
		referral: d.Referral,
		bucket:   d.Bucket,
		notifier: d.Notifier,
		payment:  d.Payment,
		logger:   d.Logger,
	}
}

// Hub exposes the change hub for streams and the realtime listener.
func (s *Service) Hub() *Hub {
	return s.hub
}

// Quote normalizes raw in currency c at the current rates and stage price.
func (s *Service) Quote(ctx context.Context, raw string, c money.Currency) (money.Quote, rates.Snapshot) {
	snap := s.rates.Current(ctx)
	stage := s.presale.ActiveStage()
	return money.NewQuote(raw, c, snap.Money(), stage.PriceUSD), snap
}

// Validate quotes the form and runs the order checks.
func (s *Service) Validate(ctx context.Context, form order.Form, msgs i18n.ReasonsCopy) (order.Result, money.Quote) {
	quote, _ := s.Quote(ctx, form.Amount, form.Currency)
	cfg := s.presale.Current()
	limits := order.Limits{MinUSD: cfg.MinOrderUSD, MinTPC: cfg.MinOrderTPC}
	return order.Validate(form, quote, limits, msgs), quote
}

// SubmitInput is one buy form submission.
type SubmitInput struct {
	Form     order.Form
	Lang     i18n.Lang
	ClientID string
	Ref      string
}

// Submission is the outcome of Submit.
type Submission struct {
	Invoice      Invoice
	Next         string
	Sponsor      referral.Resolution
	NotifyQueued bool
}

// Submit re-validates the form, resolves the sponsor code and creates the
// invoice. It never retries.
func (s *Service) Submit(ctx context.Context, sess *session.Session, in SubmitInput, msgs i18n.ReasonsCopy) (Submission, error) {
	if sess == nil {
		return Submission{}, rpc.ErrAuthRequired
	}
	res, quote := s.Validate(ctx, in.Form, msgs)
	if !res.OK {
		return Submission{}, &order.ValidationError{Result: res}
	}

	ref := in.Ref
	if ref == "" {
		ref = in.Form.SponsorCode
	}
	sponsor := s.referral.Resolve(ctx, in.ClientID, ref)

	inv, err := s.repo.Create(ctx, sess.Identity(), CreateInput{
		Currency:     quote.Currency,
		Amount:       quote.Amount,
		Wallet:       in.Form.Wallet,
		ReferralCode: sponsor.Code,
		AmountUSD:    quote.USDDisplay(),
		TPCAmount:    quote.TPC,
	})
	if err != nil {
		return Submission{}, fmt.Errorf("create invoice: %w", err)
	}
	s.replace(ctx, inv)

	queued := s.notify(notification.KindInvoiceCreated, sess, inv, nil)
	return Submission{
		Invoice:      inv,
		Next:         fmt.Sprintf("/%s/member/invoices/%s", in.Lang, inv.ID),
		Sponsor:      sponsor,
		NotifyQueued: queued,
	}, nil
}

// Get returns the caller's own invoice.
func (s *Service) Get(ctx context.Context, sess *session.Session, id string) (Invoice, error) {
	if sess == nil {
		return Invoice{}, rpc.ErrAuthRequired
	}
	if inv, ok := s.cached(ctx, id); ok && inv.UserID == sess.CurrentUser.ID {
		return inv, nil
	}
	inv, err := s.repo.Get(ctx, sess.Identity(), id)
	if err != nil {
		return Invoice{}, err
	}
	s.put(ctx, inv)
	return inv, nil
}

// List returns the caller's invoices, newest first.
func (s *Service) List(ctx context.Context, sess *session.Session) ([]Invoice, error) {
	if sess == nil {
		return nil, rpc.ErrAuthRequired
	}
	return s.repo.ListByUser(ctx, sess.Identity())
}

// UploadProof stores a payment proof and moves the invoice to review.
func (s *Service) UploadProof(ctx context.Context, sess *session.Session, id string, body io.Reader) (Invoice, error) {
	inv, err := s.Get(ctx, sess, id)
	if err != nil {
		return Invoice{}, err
	}
	if inv.Status != StatusUnpaid {
		return Invoice{}, transitionError(inv.Status, StatusPendingReview)
	}
	proof, err := storage.InspectProof(body)
	if err != nil {
		return Invoice{}, err
	}
	path := storage.ProofPath(sess.CurrentUser.ID, inv.ID, proof.Extension)
	if err := s.bucket.Upload(ctx, sess.Token, path, proof.ContentType, proof.Body); err != nil {
		return Invoice{}, fmt.Errorf("upload proof: %w", err)
	}
	updated, err := s.repo.SubmitProof(ctx, sess.Identity(), inv.ID, s.bucket.PublicURL(path))
	if err != nil {
		return Invoice{}, fmt.Errorf("submit proof: %w", err)
	}
	s.replace(ctx, updated)
	return updated, nil
}

// PaymentQR renders the on-chain payment request for the caller's invoice.
func (s *Service) PaymentQR(ctx context.Context, sess *session.Session, id string) ([]byte, error) {
	inv, err := s.Get(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	if inv.Status != StatusUnpaid {
		return nil, ErrNoPaymentQR
	}
	return PaymentQR(inv, s.payment)
}

// PaymentURI returns the Solana Pay URI, or "" when the invoice is paid
// off-chain.
func (s *Service) PaymentURI(inv Invoice) string {
	uri, err := PaymentURI(inv, s.payment)
	if err != nil {
		return ""
	}
	return uri
}

// AdminGet fetches any invoice by id with elevated rights.
func (s *Service) AdminGet(ctx context.Context, sess *session.Session, id string) (Invoice, error) {
	if sess == nil {
		return Invoice{}, rpc.ErrAuthRequired
	}
	inv, err := s.repo.AdminGet(ctx, sess.Identity(), id)
	if err != nil {
		return Invoice{}, err
	}
	s.put(ctx, inv)
	return inv, nil
}

// Review is the outcome of an admin decision.
type Review struct {
	Invoice      Invoice
	NotifyQueued bool
}

// Approve marks an invoice PAID and replaces local state with the returned
// row. The buyer email is best-effort.
func (s *Service) Approve(ctx context.Context, sess *session.Session, id string) (Review, error) {
	if sess == nil {
		return Review{}, rpc.ErrAuthRequired
	}
	inv, err := s.repo.AdminApprove(ctx, sess.Identity(), id)
	if err != nil {
		return Review{}, err
	}
	s.replace(ctx, inv)
	queued := s.notify(notification.KindInvoiceApproved, sess, inv, nil)
	return Review{Invoice: inv, NotifyQueued: queued}, nil
}

// Reject cancels an invoice under review with a reason.
func (s *Service) Reject(ctx context.Context, sess *session.Session, id, reason string) (Review, error) {
	if sess == nil {
		return Review{}, rpc.ErrAuthRequired
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return Review{}, ErrReasonRequired
	}
	inv, err := s.repo.AdminReject(ctx, sess.Identity(), id, reason)
	if err != nil {
		return Review{}, err
	}
	s.replace(ctx, inv)
	queued := s.notify(notification.KindInvoiceRejected, sess, inv, map[string]any{"reason": reason})
	return Review{Invoice: inv, NotifyQueued: queued}, nil
}

// Changed handles an external row change: the cached row is dropped and the
// owner's streams re-fetch.
func (s *Service) Changed(ctx context.Context, ch rpc.Change) {
	if err := s.cache.Delete(ctx, ch.ID); err != nil {
		s.logger.Warn("invoice cache delete failed", slog.String("invoice_id", ch.ID), slog.Any("error", err))
	}
	if ch.UserID != "" {
		s.hub.Publish(ch.UserID)
	}
}

func (s *Service) replace(ctx context.Context, inv Invoice) {
	s.put(ctx, inv)
	s.hub.Publish(inv.UserID)
}

func (s *Service) put(ctx context.Context, inv Invoice) {
	if err := s.cache.Put(ctx, inv); err != nil {
		s.logger.Warn("invoice cache write failed", slog.String("invoice_id", inv.ID), slog.Any("error", err))
	}
}

func (s *Service) cached(ctx context.Context, id string) (Invoice, bool) {
	inv, ok, err := s.cache.Get(ctx, id)
	if err != nil {
		s.logger.Warn("invoice cache read failed", slog.String("invoice_id", id), slog.Any("error", err))
		return Invoice{}, false
	}
	return inv, ok
}

func (s *Service) notify(kind string, sess *session.Session, inv Invoice, extra map[string]any) bool {
	if s.notifier == nil {
		return true
	}
	payload := map[string]any{
		"invoice_id": inv.ID,
		"invoice_no": inv.InvoiceNo,
		"email":      inv.Email,
		"status":     inv.Status,
	}
	for k, v := range extra {
		payload[k] = v
	}
	err := s.notifier.Enqueue(notification.Message{Kind: kind, Token: sess.Token, Payload: payload})
	if err != nil {
		s.logger.Warn("notification not queued", slog.String("kind", kind), slog.String("invoice_id", inv.ID), slog.Any("error", err))
		return false
	}
	return true
}
