package mail

import (
	"context"
	"strings"
	"testing"

	"koop-backend/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestCompose(t *testing.T) {
	raw := string(Compose("koop@example.com", Message{
		To:      []string{"ala@example.com"},
		Subject: "Podsumowanie zamówienia 18.10",
		Body:    "linia 1\nlinia 2",
	}))

	if !strings.Contains(raw, "Subject: =?utf-8?q?") {
		t.Errorf("subject is not encoded:\n%s", raw)
	}
	if !strings.HasSuffix(raw, "\r\n\r\nlinia 1\r\nlinia 2") {
		t.Errorf("body lines are not CRLF terminated:\n%q", raw)
	}
}

func TestNewFallsBackToLogMailer(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	m := New(config.EmailConfig{Host: "smtp.example.com"}, zap.New(core))

	if _, ok := m.(*LogMailer); !ok {
		t.Fatalf("mailer = %T, want *LogMailer without an SMTP user", m)
	}
	if err := m.Send(context.Background(), Message{To: []string{"ala@example.com"}, Subject: "x"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if logs.Len() != 1 {
		t.Errorf("log entries = %d, want 1", logs.Len())
	}
}
