// Package notification delivers customer notifications about ledger events.
package notification

import (
	"context"
	"log/slog"
)

const (
	// KindTransferReceived is sent to the recipient of a committed transfer.
	KindTransferReceived = "transfer_received"
	// KindCardIssued is sent to the holder of a newly issued card.
	KindCardIssued = "card_issued"
)

// Message describes a notification payload.
type Message struct {
	Kind        string
	UserID      string
	Destination string
	Subject     string
	Body        string
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes notifications to the logger.
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
	n.logger.Info("notification",
		slog.String("kind", message.Kind),
		slog.String("user_id", message.UserID),
		slog.String("subject", message.Subject),
	)
	return nil
}
