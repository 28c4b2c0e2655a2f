package delivery

import (
	"bytes"
	"fmt"
	"net/smtp"
)

// SMTPConfig holds the mail transport settings. An empty Host means email
// delivery is disabled and the sink skips that leg.
type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	FromName string
}

// SMTPMailer sends multipart HTML mail over plain SMTP.
type SMTPMailer struct {
	cfg    SMTPConfig
	server string
	auth   smtp.Auth
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &SMTPMailer{
		cfg:    cfg,
		server: cfg.Host + ":" + cfg.Port,
		auth:   auth,
	}
}

func (m *SMTPMailer) IsConfigured() bool {
	return m.cfg.Host != "" && m.cfg.Port != "" && m.cfg.From != ""
}

// Send delivers one HTML email with a plain-text fallback part.
func (m *SMTPMailer) Send(to, subject, htmlBody string) error {
	if !m.IsConfigured() {
		return fmt.Errorf("email not configured")
	}

	from := m.cfg.From
	if m.cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", m.cfg.FromName, m.cfg.From)
	}

	const boundary = "boundary-notify-engine"

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	fmt.Fprintf(&msg, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(&msg, "Content-Type: multipart/alternative; boundary=\"%s\"\r\n", boundary)
	fmt.Fprintf(&msg, "\r\n")

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	fmt.Fprintf(&msg, "Please view this email in an HTML-capable email client.\r\n\r\n")

	fmt.Fprintf(&msg, "--%s\r\n", boundary)
	fmt.Fprintf(&msg, "Content-Type: text/html; charset=UTF-8\r\n\r\n")
	fmt.Fprintf(&msg, "%s\r\n\r\n", htmlBody)
	fmt.Fprintf(&msg, "--%s--\r\n", boundary)

	return smtp.SendMail(m.server, m.auth, m.cfg.From, []string{to}, msg.Bytes())
}

var _ Mailer = (*SMTPMailer)(nil)
