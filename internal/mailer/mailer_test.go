package mailer

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestLogSenderAcceptsAttachments(t *testing.T) {
	sender := NewLogSender(zap.NewNop(), "spot@premierenergies.com")
	msg := Message{
		To:       []string{"ravi@premierenergies.com"},
		Subject:  "Ticket ITN_20260828_001 registered",
		HTMLBody: "<p>registered</p>",
		Attachments: []Attachment{
			{Name: "screenshot.png", Content: []byte{0x89, 0x50, 0x4e, 0x47}},
			{Name: "trace.log", Content: []byte("timeout")},
		},
	}
	if err := sender.Send(context.Background(), msg); err != nil {
		t.Fatalf("send failed: %v", err)
	}
}
