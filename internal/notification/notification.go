package notification

import (
	"context"
	"log/slog"
)

// Mailer delivers email to downstream transports. The verification service
// depends on this interface only; it never learns how mail actually leaves
// the process.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogMailer is a stub implementation that writes messages to the logger.
// It is the default in development mode where no SMTP relay exists.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer constructs a logging mailer stub.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// Send writes the message to the structured logger.
func (m *LogMailer) Send(_ context.Context, to, subject, body string) error {
	if m == nil || m.logger == nil {
		return nil
	}
	m.logger.Info("outbound email", "to", to, "subject", subject, "body", body)
	return nil
}
