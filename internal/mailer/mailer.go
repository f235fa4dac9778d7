// Package mailer sends transactional email. The core only depends on the
// Sender interface; production uses SMTP, development logs the message
// instead of sending it.
package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"likha/internal/logger"
)

// Kind identifies an email template.
type Kind string

const (
	KindVerification  Kind = "verification"
	KindPasswordReset Kind = "password_reset"
	KindOrderReceipt  Kind = "order_receipt"
)

// Sender delivers a templated email to a single recipient.
type Sender interface {
	Send(ctx context.Context, kind Kind, recipient string, data map[string]string) error
}

// render produces the subject and body for a template kind. Verification
// and reset mails embed a single-use link; the raw token never appears
// anywhere else.
func render(kind Kind, data map[string]string) (subject, body string) {
	switch kind {
	case KindVerification:
		subject = "Verify your Likha account"
		body = fmt.Sprintf("Hi %s,\n\nWelcome to Likha! Confirm your email address by opening this link:\n\n%s\n\nThe link expires in %s.\n",
			data["name"], data["link"], data["expires_in"])
	case KindPasswordReset:
		subject = "Reset your Likha password"
		body = fmt.Sprintf("Hi %s,\n\nWe received a request to reset your password. Open this link to choose a new one:\n\n%s\n\nThe link expires in %s and can be used once. If you did not request this, you can ignore this email.\n",
			data["name"], data["link"], data["expires_in"])
	case KindOrderReceipt:
		subject = fmt.Sprintf("Your Likha order %s", data["order_id"])
		body = fmt.Sprintf("Hi %s,\n\nThanks for your order %s. Total: %s.\nWe'll let you know when it ships.\n",
			data["name"], data["order_id"], data["total"])
	default:
		subject = "Likha"
		body = ""
	}
	return subject, body
}

// SMTPSender sends mail through a plain SMTP relay.
type SMTPSender struct {
	addr string
	auth smtp.Auth
	from string
}

// NewSMTPSender creates a Sender backed by the given SMTP relay.
// Auth is omitted when user is empty (e.g. a local relay).
func NewSMTPSender(host, port, user, pass, from string) *SMTPSender {
	var auth smtp.Auth
	if user != "" {
		auth = smtp.PlainAuth("", user, pass, host)
	}
	return &SMTPSender{
		addr: host + ":" + port,
		auth: auth,
		from: from,
	}
}

// Send delivers the rendered template via SMTP.
func (s *SMTPSender) Send(_ context.Context, kind Kind, recipient string, data map[string]string) error {
	subject, body := render(kind, data)

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", s.from)
	fmt.Fprintf(&msg, "To: %s\r\n", recipient)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(body)

	if err := smtp.SendMail(s.addr, s.auth, s.from, []string{recipient}, []byte(msg.String())); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// LogSender logs mail instead of sending it. Used in development and
// tests; the link (and therefore the token) is only ever logged here,
// never in production.
type LogSender struct {
	log *zap.SugaredLogger
}

// NewLogSender creates a development Sender that writes to the app logger.
func NewLogSender() *LogSender {
	return &LogSender{log: logger.Named("mailer")}
}

// Send logs the rendered message.
func (s *LogSender) Send(_ context.Context, kind Kind, recipient string, data map[string]string) error {
	subject, _ := render(kind, data)
	s.log.Infow("email (dev mode, not sent)",
		"kind", string(kind),
		"to", recipient,
		"subject", subject,
		"link", data["link"],
	)
	return nil
}
