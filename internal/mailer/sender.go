// Package mailer renders and sends account emails.
package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"

	"warden/internal/middleware"
)

// Message represents an email to be sent.
type Message struct {
	From    string
	To      []string
	Subject string
	Body    string // HTML
}

// Sender abstracts email transport.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPSender delivers mail through an SMTP relay.
type SMTPSender struct {
	host     string
	port     string
	username string
	password string
}

// NewSMTPSender creates a new SMTP sender. Host and port are required.
func NewSMTPSender(host, port, username, password string) (*SMTPSender, error) {
	if host == "" || port == "" {
		return nil, fmt.Errorf("SMTP host and port are required")
	}
	return &SMTPSender{host: host, port: port, username: username, password: password}, nil
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return fmt.Errorf("no recipients")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	var auth smtp.Auth
	if s.username != "" {
		auth = smtp.PlainAuth("", s.username, s.password, s.host)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", msg.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n")
	b.WriteString(msg.Body)

	return smtp.SendMail(s.host+":"+s.port, auth, msg.From, msg.To, []byte(b.String()))
}

// LogSender writes messages to the log instead of sending them. Used when no
// relay is configured.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, msg Message) error {
	middleware.Logger.InfoContext(ctx, "email not sent, no SMTP relay configured",
		slog.Any("to", msg.To), slog.String("subject", msg.Subject))
	return nil
}
