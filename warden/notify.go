package warden

import (
	"context"
	"log/slog"
)

// Notifier delivers a notification message to a recipient. Sends are
// fire-and-forget: failures are logged by callers, never retried.
type Notifier interface {
	Send(ctx context.Context, recipient, subject, body string) error
}

// MessageSender is the slice of the platform client the notifier needs.
type MessageSender interface {
	Compose(ctx context.Context, to, subject, text string) error
}

// MessageNotifier sends notifications as private messages.
type MessageNotifier struct {
	Logger *slog.Logger
	Client MessageSender
}

func NewMessageNotifier(logger *slog.Logger, client MessageSender) *MessageNotifier {
	return &MessageNotifier{Logger: logger.With("system", "notify"), Client: client}
}

func (n *MessageNotifier) Send(ctx context.Context, recipient, subject, body string) error {
	if err := n.Client.Compose(ctx, recipient, subject, body); err != nil {
		notificationsFailed.Inc()
		return err
	}
	notificationsSent.Inc()
	n.Logger.Debug("notification sent", "recipient", recipient, "subject", subject)
	return nil
}
