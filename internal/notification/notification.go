package notification

import (
	"context"
	"log/slog"
)

const (
	// KindInvoiceCreated is sent to the buyer after an invoice is created.
	KindInvoiceCreated = "send-invoice-email"
	// KindInvoiceApproved is sent to the buyer after an admin approves payment.
	KindInvoiceApproved = "send-invoice-approved-email"
	// KindInvoiceRejected is sent to the buyer after an admin rejects payment.
	KindInvoiceRejected = "send-invoice-rejected-email"
	// KindWithdrawalApproved is sent after a withdrawal is paid out.
	KindWithdrawalApproved = "send-withdrawal-approved-email"
	// KindWithdrawalRejected is sent after a withdrawal is rejected.
	KindWithdrawalRejected = "send-withdrawal-rejected-email"
)

// Message describes a notification payload. Kind doubles as the name of the
// email function that renders it.
type Message struct {
	Kind    string         `json:"-"`
	Token   string         `json:"-"`
	Payload map[string]any `json:"payload"`
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes notifications to the logger. It is used when no email
// endpoint is configured.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification", slog.String("kind", message.Kind), slog.Any("payload", message.Payload))
	return nil
}
