// Package email delivers transactional mail to applicants.
package email

import (
	"context"
	"fmt"
	"net"
	"time"

	"hiring_assistant_backend/platform/config"

	gomail "github.com/wneessen/go-mail"
)

// Sender delivers verification codes by mail.
type Sender interface {
	SendVerificationCode(ctx context.Context, toEmail, name, code string, validFor time.Duration) error
}

// NoopSender drops every message.
type NoopSender struct{}

func (NoopSender) SendVerificationCode(context.Context, string, string, string, time.Duration) error {
	return nil
}

// SMTPSender implements Sender over a direct SMTP connection via go-mail.
type SMTPSender struct {
	host      string
	port      int
	username  string
	password  string
	fromName  string
	fromEmail string
}

// NewSMTPSender creates a sender from the SMTP settings.
func NewSMTPSender(cfg config.SMTPConfig) *SMTPSender {
	return &SMTPSender{
		host:      cfg.GetSMTPHost(),
		port:      cfg.GetSMTPPort(),
		username:  cfg.GetSMTPUsername(),
		password:  cfg.GetSMTPPassword(),
		fromName:  cfg.GetSMTPFromName(),
		fromEmail: cfg.GetSMTPFromAddress(),
	}
}

func (s *SMTPSender) send(ctx context.Context, toEmail, subject, htmlContent string) error {
	msg := gomail.NewMsg()
	if err := msg.FromFormat(s.fromName, s.fromEmail); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(toEmail); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextHTML, htmlContent)

	opts := []gomail.Option{
		gomail.WithPort(s.port),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15 * time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	}
	if s.username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.username),
			gomail.WithPassword(s.password),
		)
	}

	client, err := gomail.NewClient(s.host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

// SendVerificationCode mails a one-time code to toEmail.
func (s *SMTPSender) SendVerificationCode(ctx context.Context, toEmail, name, code string, validFor time.Duration) error {
	content, err := renderEmailTemplate("verification_code.html", verificationCodeEmailData{
		baseEmailData: baseEmailData{
			Title:   subjectVerificationCode,
			Heading: "Confirm your email address",
		},
		Name:         name,
		Code:         code,
		ValidMinutes: int(validFor.Minutes()),
	})
	if err != nil {
		return err
	}
	return s.send(ctx, toEmail, subjectVerificationCode, content)
}
