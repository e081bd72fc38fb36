// Package withdrawal serves the member withdrawal history and the admin
// payout review.
package withdrawal

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/tpc-global/tpc_portal/internal/notification"
	"github.com/tpc-global/tpc_portal/internal/rpc"
	"github.com/tpc-global/tpc_portal/internal/session"
)

// ErrReasonRequired is returned when an admin rejects without a reason.
var ErrReasonRequired = errors.New("reject reason required")

// Enqueuer accepts best-effort notifications.
type Enqueuer interface {
	Enqueue(message notification.Message) error
}

// Service reads and reviews withdrawals.
type Service struct {
	repo     Repository
	notifier Enqueuer
	logger   *slog.Logger
}

// NewService builds a withdrawal service. notifier may be nil.
func NewService(repo Repository, notifier Enqueuer, logger *slog.Logger) *Service {
	return &Service{repo: repo, notifier: notifier, logger: logger}
}

// List returns the caller's own withdrawals.
func (s *Service) List(ctx context.Context, sess *session.Session) ([]Withdrawal, error) {
	if sess == nil {
		return nil, rpc.ErrAuthRequired
	}
	return s.repo.ListByUser(ctx, sess.Identity())
}

// AdminList returns all withdrawals, optionally filtered by status.
func (s *Service) AdminList(ctx context.Context, sess *session.Session, status string) ([]Withdrawal, error) {
	if sess == nil {
		return nil, rpc.ErrAuthRequired
	}
	return s.repo.AdminList(ctx, sess.Identity(), Status(strings.ToUpper(strings.TrimSpace(status))))
}

// AuditLogs returns the admin trail of one withdrawal.
func (s *Service) AuditLogs(ctx context.Context, sess *session.Session, id string) ([]AuditLog, error) {
	if sess == nil {
		return nil, rpc.ErrAuthRequired
	}
	return s.repo.AuditLogs(ctx, sess.Identity(), id)
}

// Review is the outcome of an admin decision.
type Review struct {
	Withdrawal   Withdrawal
	NotifyQueued bool
}

// Approve records the payout transaction and marks the withdrawal APPROVED.
func (s *Service) Approve(ctx context.Context, sess *session.Session, id, txHash string) (Review, error) {
	if sess == nil {
		return Review{}, rpc.ErrAuthRequired
	}
	w, err := s.repo.AdminApprove(ctx, sess.Identity(), id, strings.TrimSpace(txHash))
	if err != nil {
		return Review{}, err
	}
	queued := s.notify(notification.KindWithdrawalApproved, sess, w, map[string]any{"tx_hash": w.TxHash})
	return Review{Withdrawal: w, NotifyQueued: queued}, nil
}

// Reject marks the withdrawal REJECTED with a reason.
func (s *Service) Reject(ctx context.Context, sess *session.Session, id, reason string) (Review, error) {
	if sess == nil {
		return Review{}, rpc.ErrAuthRequired
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return Review{}, ErrReasonRequired
	}
	w, err := s.repo.AdminReject(ctx, sess.Identity(), id, reason)
	if err != nil {
		return Review{}, err
	}
	queued := s.notify(notification.KindWithdrawalRejected, sess, w, map[string]any{"reason": reason})
	return Review{Withdrawal: w, NotifyQueued: queued}, nil
}

func (s *Service) notify(kind string, sess *session.Session, w Withdrawal, extra map[string]any) bool {
	if s.notifier == nil {
		return true
	}
	payload := map[string]any{
		"withdrawal_id": w.ID,
		"user_id":       w.UserID,
		"amount_tpc":    w.AmountTPC,
		"status":        w.Status,
	}
	for k, v := range extra {
		payload[k] = v
	}
	if err := s.notifier.Enqueue(notification.Message{Kind: kind, Token: sess.Token, Payload: payload}); err != nil {
		s.logger.Warn("notification not queued", slog.String("kind", kind), slog.String("withdrawal_id", w.ID), slog.Any("error", err))
		return false
	}
	return true
}
