package notify

import (
	"context"
	"log/slog"

	"github.com/openhours/doorkeeper/internal/metrics"
)

// Notifier fans operator messages out to the two tiers: the chat channel
// for routine updates and email for escalations. Every delivery is
// best-effort — a dead channel is logged and must never stall the caller.
type Notifier struct {
	chat    ChatSender
	email   EmailSender
	emailTo string
	logger  *slog.Logger
}

func NewNotifier(chat ChatSender, email EmailSender, emailTo string, logger *slog.Logger) *Notifier {
	return &Notifier{
		chat:    chat,
		email:   email,
		emailTo: emailTo,
		logger:  logger.With("component", "notify"),
	}
}

// Primary sends a chat message. Failures are swallowed after logging.
func (n *Notifier) Primary(ctx context.Context, text string) {
	if n.chat == nil {
		n.logger.Warn("no chat channel configured, dropping notification", "text", text)
		return
	}
	if err := n.chat.Send(ctx, text); err != nil {
		metrics.NotificationsTotal.WithLabelValues("chat", "failure").Inc()
		n.logger.Warn("chat notification failed", "error", err)
		return
	}
	metrics.NotificationsTotal.WithLabelValues("chat", "success").Inc()
}

// Escalate sends an email-tier message and reports whether delivery
// succeeded. Failures are logged only.
func (n *Notifier) Escalate(ctx context.Context, subject, body string) bool {
	if n.email == nil || n.emailTo == "" {
		n.logger.Warn("no escalation channel configured, dropping notification", "subject", subject)
		return false
	}
	if err := n.email.Send(ctx, n.emailTo, subject, body); err != nil {
		metrics.NotificationsTotal.WithLabelValues("email", "failure").Inc()
		n.logger.Warn("escalation email failed", "subject", subject, "error", err)
		return false
	}
	metrics.NotificationsTotal.WithLabelValues("email", "success").Inc()
	return true
}
