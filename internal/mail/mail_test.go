package mail

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestLogSender_Send(t *testing.T) {
	var buf bytes.Buffer
	s := NewLogSender(slog.New(slog.NewTextHandler(&buf, nil)))

	err := s.Send(context.Background(), Message{
		From:     "noreply@allmovieshub.com",
		To:       "jane@x.com",
		Subject:  "Contact Form: Movie request",
		HTMLBody: "<p>hi</p>",
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{"to=jane@x.com", "Movie request", "body_bytes=9"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q: %s", want, out)
		}
	}
	if strings.Contains(out, "<p>hi</p>") {
		t.Error("log output should not contain the message body")
	}
}

func TestSenderFunc(t *testing.T) {
	var got Message
	var s Sender = SenderFunc(func(ctx context.Context, msg Message) error {
		got = msg
		return nil
	})

	if err := s.Send(context.Background(), Message{To: "a@b.com"}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if got.To != "a@b.com" {
		t.Errorf("To = %q, want a@b.com", got.To)
	}
}

func TestNewSMTPSender(t *testing.T) {
	tests := []struct {
		name    string
		cfg     SMTPConfig
		wantErr bool
	}{
		{name: "missing host", cfg: SMTPConfig{}, wantErr: true},
		{name: "defaults", cfg: SMTPConfig{Host: "smtp.example.com"}},
		{name: "ssl with auth", cfg: SMTPConfig{Host: "smtp.example.com", Port: 465, TLS: "ssl", Username: "u", Password: "p"}},
		{name: "plaintext", cfg: SMTPConfig{Host: "localhost", Port: 1025, TLS: "none"}},
		{name: "unknown tls", cfg: SMTPConfig{Host: "smtp.example.com", TLS: "maybe"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSMTPSender(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewSMTPSender() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && s.cfg.Port == 0 {
				t.Error("port should default")
			}
		})
	}
}

func TestBuildMsg_InvalidAddress(t *testing.T) {
	if _, err := buildMsg(Message{From: "noreply@allmovieshub.com", To: "not an address"}); err == nil {
		t.Error("buildMsg() expected error for invalid recipient")
	}
	if _, err := buildMsg(Message{From: "", To: "jane@x.com"}); err == nil {
		t.Error("buildMsg() expected error for empty sender")
	}
}
