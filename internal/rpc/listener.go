package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// InvoiceChannel is the notification channel carrying invoice row changes.
const InvoiceChannel = "invoice_changes"

// Change is the payload published on InvoiceChannel.
type Change struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	Status string `json:"status"`
}

// DecodeChange parses a notification payload.
func DecodeChange(payload string) (Change, error) {
	var ch Change
	if err := json.Unmarshal([]byte(payload), &ch); err != nil {
		return Change{}, fmt.Errorf("decode change: %w", err)
	}
	if ch.ID == "" {
		return Change{}, errors.New("decode change: missing id")
	}
	return ch, nil
}

// Listener holds a dedicated connection LISTENing on a channel.
type Listener struct {
	db      *pgxpool.Pool
	channel string
	logger  *slog.Logger
	backoff time.Duration
}

// NewListener builds a listener for channel.
func NewListener(db *pgxpool.Pool, channel string, logger *slog.Logger) *Listener {
	return &Listener{db: db, channel: channel, logger: logger, backoff: time.Second}
}

// Run delivers decoded changes to handle until ctx is cancelled, reconnecting
// after connection failures.
func (l *Listener) Run(ctx context.Context, handle func(Change)) {
	for {
		err := l.listen(ctx, handle)
		if ctx.Err() != nil {
			return
		}
		l.logger.Warn("listener disconnected", slog.String("channel", l.channel), slog.Any("error", err))
		select {
		case <-ctx.Done():
			return
		case <-time.After(l.backoff):
		}
	}
}

func (l *Listener) listen(ctx context.Context, handle func(Change)) error {
	conn, err := l.db.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listener conn: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+l.channel); err != nil {
		return fmt.Errorf("listen %s: %w", l.channel, err)
	}
	l.logger.Info("listening", slog.String("channel", l.channel))

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		ch, err := DecodeChange(n.Payload)
		if err != nil {
			l.logger.Warn("dropping notification", slog.String("channel", l.channel), slog.Any("error", err))
			continue
		}
		handle(ch)
	}
}
