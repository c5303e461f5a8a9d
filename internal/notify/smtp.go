package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strings"
	"time"
)

// SMTPConfig — параметры SMTP-драйвера.
type SMTPConfig struct {
	Addr     string
	Username string
	Password string
	From     string
	FromName string
	Timeout  time.Duration
}

// SMTP отправляет письма через SMTP-сервер; STARTTLS, если сервер его объявляет.
type SMTP struct {
	cfg  SMTPConfig
	auth smtp.Auth
}

// NewSMTP создаёт драйвер. PLAIN-аутентификация включается при непустом Username.
func NewSMTP(cfg SMTPConfig) *SMTP {
	s := &SMTP{cfg: cfg}
	if cfg.Username != "" {
		host, _, _ := net.SplitHostPort(cfg.Addr)
		s.auth = smtp.PlainAuth("", cfg.Username, cfg.Password, host)
	}
	if s.cfg.Timeout <= 0 {
		s.cfg.Timeout = 10 * time.Second
	}

	return s
}

// Notify отправляет одно письмо.
func (s *SMTP) Notify(ctx context.Context, msg Message) error {
	const op = "notify/smtp/Notify"

	if _, err := mail.ParseAddress(msg.To); err != nil {
		return fmt.Errorf("%s: recipient: %w", op, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("%s: dial: %w", op, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	host, _, _ := net.SplitHostPort(s.cfg.Addr)
	c, err := smtp.NewClient(conn, host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("%s: client: %w", op, err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}); err != nil {
			return fmt.Errorf("%s: starttls: %w", op, err)
		}
	}

	if s.auth != nil {
		if err := c.Auth(s.auth); err != nil {
			return fmt.Errorf("%s: auth: %w", op, err)
		}
	}

	if err := c.Mail(s.cfg.From); err != nil {
		return fmt.Errorf("%s: mail from: %w", op, err)
	}
	if err := c.Rcpt(msg.To); err != nil {
		return fmt.Errorf("%s: rcpt: %w", op, err)
	}

	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("%s: data: %w", op, err)
	}
	if _, err := w.Write(s.compose(msg, time.Now())); err != nil {
		_ = w.Close()
		return fmt.Errorf("%s: write: %w", op, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("%s: data close: %w", op, err)
	}

	return c.Quit()
}

// compose собирает RFC 5322 письмо в text/plain; UTF-8.
func (s *SMTP) compose(msg Message, now time.Time) []byte {
	from := (&mail.Address{Name: s.cfg.FromName, Address: s.cfg.From}).String()

	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + msg.To + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", msg.Subject) + "\r\n")
	b.WriteString("Date: " + now.Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))

	return []byte(b.String())
}

var _ Notifier = (*SMTP)(nil)
