package mailer

import (
	"context"

	"go.uber.org/zap"
)

// Attachment is a file included with an outbound email.
type Attachment struct {
	Name    string
	Content []byte
}

// Message is an outbound notification email.
type Message struct {
	To          []string
	Subject     string
	HTMLBody    string
	Attachments []Attachment
}

// Sender delivers notification emails. Implementations must be safe for
// concurrent use; callers treat delivery as best-effort.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender writes outbound mail to the log instead of delivering it.
// Used in development and as the default when no mail transport is
// configured.
type LogSender struct {
	logger *zap.Logger
	from   string
}

// NewLogSender builds a LogSender.
func NewLogSender(logger *zap.Logger, from string) *LogSender {
	return &LogSender{logger: logger, from: from}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.logger.Info("outbound email",
		zap.String("from", s.from),
		zap.Strings("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.Int("body_bytes", len(msg.HTMLBody)),
		zap.Int("attachments", len(msg.Attachments)),
	)
	return nil
}
