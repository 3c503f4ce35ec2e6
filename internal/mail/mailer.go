package mail

import (
	"fmt"
	"log/slog"
	"strconv"

	gomail "gopkg.in/gomail.v2"
)

// Sender delivers a single message. Delivery failures are reported to the
// caller but must never decide an HTTP response in the reset flow.
type Sender interface {
	Send(to, subject, htmlBody string) error
}

type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPMailer(host, port, email, password string) (*SMTPMailer, error) {
	p, err := strconv.Atoi(port)
	if err != nil {
		p = 587
	}
	if host == "" || email == "" {
		return nil, fmt.Errorf("mail: SMTP_SERVER and SMTP_EMAIL must be set")
	}
	return &SMTPMailer{
		dialer: gomail.NewDialer(host, p, email, password),
		from:   email,
	}, nil
}

func (m *SMTPMailer) Send(to, subject, htmlBody string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", fmt.Sprintf("%q <%s>", "ZyncJobs", m.from))
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("mail: send to %s: %w", to, err)
	}
	return nil
}

// LogSender stands in when SMTP is not configured: the message is logged,
// never delivered. Keeps development setups working without a mail account.
type LogSender struct {
	Logger *slog.Logger
}

func (m *LogSender) Send(to, subject, htmlBody string) error {
	m.Logger.Info("mail delivery skipped (SMTP not configured)", "to", to, "subject", subject)
	return nil
}

// ResetEmail renders the password-reset message body.
func ResetEmail(resetLink string) (subject, html string) {
	subject = "ZyncJobs - Password Reset Request"
	html = `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
  <div style="background-color: #6366f1; padding: 40px 20px; text-align: center;">
    <h1 style="color: white; margin: 0;">ZyncJobs</h1>
  </div>
  <div style="background-color: white; padding: 40px 30px;">
    <h2>Password Reset Request</h2>
    <p>We received a request to reset your password for your ZyncJobs account.</p>
    <p><a href="` + resetLink + `" style="background-color: #6366f1; color: white; padding: 12px 30px; text-decoration: none; border-radius: 6px; display: inline-block;">Reset Password</a></p>
    <p>Or copy and paste this link in your browser:</p>
    <p style="word-break: break-all;">` + resetLink + `</p>
    <p style="color: #666;">This link will expire in 15 minutes.</p>
    <p style="color: #666;">If you didn't request this password reset, please ignore this email.</p>
  </div>
</div>`
	return subject, html
}
