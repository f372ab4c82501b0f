// Package mailer delivers password-reset links over SMTP.
package mailer

import (
	"fmt"
	"net/smtp"

	"github.com/taskhive-dev/taskhive/internal/config"
)

type SMTPMailer struct {
	host string
	port int
	user string
	pass string
	from string
}

func NewSMTPMailer(cfg *config.Config) *SMTPMailer {
	return &SMTPMailer{
		host: cfg.SMTPHost,
		port: cfg.SMTPPort,
		user: cfg.SMTPUser,
		pass: cfg.SMTPPass,
		from: cfg.SMTPFrom,
	}
}

func (m *SMTPMailer) SendPasswordReset(to, link string) error {
	subject := "Reset your password"
	html := fmt.Sprintf(
		`<p>Click <a href="%s">here</a> to reset your password. Link expires in 1 hour.</p>`,
		link,
	)

	msg := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		m.from, to, subject, html,
	)

	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	auth := smtp.PlainAuth("", m.user, m.pass, m.host)

	if err := smtp.SendMail(addr, auth, m.from, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("send reset email: %w", err)
	}

	return nil
}
