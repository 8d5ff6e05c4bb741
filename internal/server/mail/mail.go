// Package mail sends transactional e-mails of the auth flow.
package mail

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/url"
	"strings"
	"time"
)

// Message письмо для отправки
type Message struct {
	To      string
	ToName  string
	Subject string
	HTML    string
}

// Sender доставляет письмо получателю
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

//go:embed templates/verify_email.html
var verifyEmailTemplate string

var verifyTmpl = template.Must(template.New("verify_email").Parse(verifyEmailTemplate))

const verifySubject = "Verify your email"

// VerificationMailer формирует и отправляет письма подтверждения email
type VerificationMailer struct {
	sender      Sender
	frontendURL string
	linkTTL     time.Duration
}

// NewVerificationMailer creates mailer
// frontendURL база для ссылки ${frontendURL}/auth/verify-email
func NewVerificationMailer(sender Sender, frontendURL string, linkTTL time.Duration) *VerificationMailer {
	return &VerificationMailer{
		sender:      sender,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		linkTTL:     linkTTL,
	}
}

// VerifyURL строит ссылку подтверждения
func (m *VerificationMailer) VerifyURL(email, token string) string {
	q := url.Values{}
	q.Set("email", email)
	q.Set("token", token)
	return m.frontendURL + "/auth/verify-email?" + q.Encode()
}

// SendVerification отправляет письмо со ссылкой подтверждения
func (m *VerificationMailer) SendVerification(ctx context.Context, email, name, token string) error {
	if name == "" {
		name = "there"
	}

	var buf bytes.Buffer
	err := verifyTmpl.Execute(&buf, struct {
		Name      string
		VerifyURL string
		ExpiresIn string
	}{
		Name:      name,
		VerifyURL: m.VerifyURL(email, token),
		ExpiresIn: humanizeTTL(m.linkTTL),
	})
	if err != nil {
		return fmt.Errorf("failed to render verification email: %w", err)
	}

	if err := m.sender.Send(ctx, Message{
		To:      email,
		ToName:  name,
		Subject: verifySubject,
		HTML:    buf.String(),
	}); err != nil {
		return fmt.Errorf("failed to send verification email: %w", err)
	}

	return nil
}

func humanizeTTL(d time.Duration) string {
	switch {
	case d >= 48*time.Hour:
		return fmt.Sprintf("%d days", int(d/(24*time.Hour)))
	case d >= 2*time.Hour:
		return fmt.Sprintf("%d hours", int(d/time.Hour))
	default:
		return fmt.Sprintf("%d minutes", int(d/time.Minute))
	}
}

// LogSender пишет письма в лог вместо отправки (development)
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates LogSender
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send logs the message
func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.logger.InfoContext(ctx, "Email not sent, log mail provider in use",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("html", msg.HTML),
	)
	return nil
}
