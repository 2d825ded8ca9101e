package notify

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/smtp"
	"strings"

	"roomly/internal/config"
)

// SMTPNotifier is the thin adapter over the mail transport. The engine treats
// it as fallible I/O behind the Notifier contract; message transport details
// stay out of the booking engine.
type SMTPNotifier struct {
	cfg config.SMTPConfig
}

func NewSMTPNotifier(cfg config.SMTPConfig) *SMTPNotifier {
	return &SMTPNotifier{cfg: cfg}
}

func (n *SMTPNotifier) Send(ctx context.Context, to, subject, body string, calendar []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)
	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}

	msg := buildMessage(n.cfg.From, to, subject, body, calendar)
	if err := smtp.SendMail(addr, auth, n.cfg.From, []string{to}, msg); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}

const mimeBoundary = "=_roomly_mixed"

func buildMessage(from, to, subject, body string, calendar []byte) []byte {
	var sb strings.Builder
	fmt.Fprintf(&sb, "From: %s\r\n", from)
	fmt.Fprintf(&sb, "To: %s\r\n", to)
	fmt.Fprintf(&sb, "Subject: %s\r\n", subject)
	sb.WriteString("MIME-Version: 1.0\r\n")

	if len(calendar) == 0 {
		sb.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
		sb.WriteString(body)
		return []byte(sb.String())
	}

	fmt.Fprintf(&sb, "Content-Type: multipart/mixed; boundary=%q\r\n\r\n", mimeBoundary)
	fmt.Fprintf(&sb, "--%s\r\n", mimeBoundary)
	sb.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	sb.WriteString(body)
	fmt.Fprintf(&sb, "\r\n--%s\r\n", mimeBoundary)
	sb.WriteString("Content-Type: text/calendar; method=REQUEST; charset=utf-8\r\n")
	sb.WriteString("Content-Transfer-Encoding: base64\r\n")
	sb.WriteString("Content-Disposition: attachment; filename=invite.ics\r\n\r\n")
	sb.WriteString(base64.StdEncoding.EncodeToString(calendar))
	fmt.Fprintf(&sb, "\r\n--%s--\r\n", mimeBoundary)
	return []byte(sb.String())
}
