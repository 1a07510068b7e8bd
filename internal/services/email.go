package services

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"

	"github.com/ecofest/ecobingo/internal/config"
	"github.com/ecofest/ecobingo/internal/logging"
)

// EmailServiceInterface lets handlers stub out delivery in tests.
type EmailServiceInterface interface {
	SendVerificationEmail(ctx context.Context, to, username, token string) error
}

// EmailService delivers verification mail through Resend, or logs it to the
// console in local development.
type EmailService struct {
	cfg    *config.EmailConfig
	resend *resend.Client
}

func NewEmailService(cfg *config.EmailConfig) *EmailService {
	s := &EmailService{cfg: cfg}
	if cfg.Provider == "resend" && cfg.ResendAPIKey != "" {
		s.resend = resend.NewClient(cfg.ResendAPIKey)
	}
	return s
}

func (s *EmailService) SendVerificationEmail(ctx context.Context, to, username, token string) error {
	verifyURL := fmt.Sprintf("%s/#verify-email?token=%s", s.cfg.BaseURL, token)
	subject := "Verify your EcoBingo email"
	html := fmt.Sprintf(`<p>Hi %s,</p>
<p>Confirm your email to start playing sustainability bingo:</p>
<p><a href="%s">Verify email</a></p>
<p>This link expires in 24 hours. If you did not sign up, ignore this message.</p>`, username, verifyURL)
	text := fmt.Sprintf("Hi %s,\n\nConfirm your email to start playing sustainability bingo:\n%s\n\nThis link expires in 24 hours.", username, verifyURL)

	return s.send(ctx, to, subject, html, text)
}

func (s *EmailService) send(ctx context.Context, to, subject, html, text string) error {
	if s.resend == nil {
		// Console provider: surface the mail content in the server log so
		// local signups can be completed without a mail account.
		logging.Info("Email (console provider)", map[string]interface{}{
			"to":      to,
			"subject": subject,
			"body":    text,
		})
		return nil
	}

	_, err := s.resend.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", s.cfg.FromName, s.cfg.FromAddress),
		To:      []string{to},
		Subject: subject,
		Html:    html,
		Text:    text,
	})
	if err != nil {
		return fmt.Errorf("sending email via resend: %w", err)
	}
	return nil
}
