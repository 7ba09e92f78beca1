// Package mailer delivers login codes over SMTP.
package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"html/template"
	"net"
	"net/smtp"
	"strings"
	"time"
)

// LoginCode is the message sent after a successful password check.
type LoginCode struct {
	To   string
	Name string
	Code string
	TTL  time.Duration
}

// Config holds SMTP credentials.
type Config struct {
	Host string
	Port string
	User string
	Pass string
	From string
}

// SMTP sends mail through an SMTP relay, upgrading with STARTTLS when the
// server offers it.
type SMTP struct {
	cfg    Config
	dialer net.Dialer
	now    func() time.Time
}

// ErrNotConfigured is returned when host or credentials are missing.
var ErrNotConfigured = errors.New("SMTP environment variables are not set")

// NewSMTP returns a sender for cfg. Sending fails with ErrNotConfigured
// until host and credentials are set.
func NewSMTP(cfg Config) *SMTP {
	return &SMTP{cfg: cfg, dialer: net.Dialer{Timeout: 10 * time.Second}, now: time.Now}
}

// SendLoginCode renders and sends the verification email.
func (s *SMTP) SendLoginCode(ctx context.Context, msg LoginCode) error {
	if s.cfg.Host == "" || s.cfg.User == "" || s.cfg.Pass == "" {
		return ErrNotConfigured
	}
	body, err := renderLoginCode(msg, s.now())
	if err != nil {
		return err
	}
	raw := buildMessage(s.cfg.From, msg.To, "Your BitBuilders verification code", body)
	if err := s.send(ctx, msg.To, raw); err != nil {
		return fmt.Errorf("failed to send email via %s:%s - %w", s.cfg.Host, s.cfg.Port, err)
	}
	return nil
}

func (s *SMTP) send(ctx context.Context, to string, raw []byte) error {
	addr := net.JoinHostPort(s.cfg.Host, s.cfg.Port)
	conn, err := s.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}
	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		conn.Close()
		return err
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: s.cfg.Host}); err != nil {
			return err
		}
	}
	if err := client.Auth(smtp.PlainAuth("", s.cfg.User, s.cfg.Pass, s.cfg.Host)); err != nil {
		return err
	}
	if err := client.Mail(s.cfg.From); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(raw); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

func buildMessage(from, to, subject string, html string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(html)
	return []byte(b.String())
}

var loginCodeTmpl = template.Must(template.New("login_code").Parse(`<div style="font-family: 'Segoe UI', Tahoma, sans-serif; background-color: #f0f4f2; padding: 40px 24px; color: #1f2937;">
  <h1 style="margin: 0; font-size: 28px; color: #16a34a;">BitBuilders Chat</h1>
  <h2 style="font-size: 22px;">Verify your login</h2>
  <p>Hi {{.Name}},<br/>Use the code below to finish signing in to <strong>BitBuilders Chat</strong>:</p>
  <p style="font-size: 36px; letter-spacing: 10px; font-weight: bold; color: #16a34a;">{{.Code}}</p>
  <p style="font-size: 14px; color: #6b7280;">This code will expire in <strong>{{.Minutes}} minutes</strong>. If you didn't request this, you can safely ignore this email.</p>
  <p style="font-size: 12px; color: #9ca3af;">&copy; {{.Year}} BitBuilders. All rights reserved.</p>
</div>`))

func renderLoginCode(msg LoginCode, now time.Time) (string, error) {
	name := msg.Name
	if name == "" {
		name = "there"
	}
	var buf bytes.Buffer
	err := loginCodeTmpl.Execute(&buf, struct {
		Name    string
		Code    string
		Minutes int
		Year    int
	}{name, msg.Code, int(msg.TTL.Minutes()), now.Year()})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
