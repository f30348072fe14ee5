package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/jonesrussell/index-checker/internal/config"
)

// ErrMailUnavailable is returned when a reset is requested but mail is not configured.
var ErrMailUnavailable = errors.New("mail delivery is not configured")

// Mailer delivers HTML mail.
type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}

// SMTPMailer sends mail through an authenticated SMTP relay.
type SMTPMailer struct {
	cfg  config.MailConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPMailer returns a mailer for cfg, or nil when mail is not configured.
func NewSMTPMailer(cfg config.MailConfig) *SMTPMailer {
	if !cfg.Enabled() {
		return nil
	}
	return &SMTPMailer{cfg: cfg, send: smtp.SendMail}
}

// Send delivers one message. smtp.SendMail has no context support, so ctx is
// only checked before dialing.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, html string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	from := m.cfg.From
	if from == "" {
		from = m.cfg.Username
	}

	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	if err := m.send(addr, auth, from, []string{to}, buildMessage(from, to, subject, html)); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

func buildMessage(from, to, subject, html string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(html)
	return []byte(b.String())
}

func resetEmail(token string) string {
	return `<html><body style="font-family: Arial, sans-serif; color: #333;">
<h2 style="color: #2563eb;">Password reset</h2>
<p>A password reset was requested for the Index Checker admin account.</p>
<p>Use this token to set a new password. It expires in one hour and can be used once.</p>
<p style="font-family: monospace; font-size: 18px; background: #f3f4f6; padding: 12px;">` + token + `</p>
<p style="color: #dc2626; font-size: 14px;">If you did not request this, ignore this email.</p>
</body></html>`
}
