package utils

import (
	"context"
	"fmt"
	"html"
	"net/smtp"

	"github.com/resend/resend-go/v2"
	log "github.com/sirupsen/logrus"

	"STUDYHUB_BACK-END/internal/config"
	"STUDYHUB_BACK-END/internal/service"
)

// EmailService handles email sending operations.
// Resend is used when an API key is configured, SMTP otherwise.
type EmailService struct {
	config   *config.EmailConfig
	resend   *resend.Client
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewEmailService creates a new email service instance
func NewEmailService(cfg *config.EmailConfig) *EmailService {
	e := &EmailService{
		config:   cfg,
		sendMail: smtp.SendMail,
	}
	if cfg.ResendAPIKey != "" {
		e.resend = resend.NewClient(cfg.ResendAPIKey)
	}
	return e
}

// SendVerificationCode sends a password reset code to user's email
func (e *EmailService) SendVerificationCode(ctx context.Context, to, code string) error {
	subject := "[Studyhub] Password reset code"
	text := fmt.Sprintf(`Hello,

You requested to reset your Studyhub password.

Your verification code is: %s

This code will expire in 3 minutes.

If you didn't request this, please ignore this email.

Studyhub Team
`, code)
	body := fmt.Sprintf(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
	<h2>Password Reset Request</h2>
	<p>You requested to reset your Studyhub password.</p>
	<div style="background-color: #f4f4f4; padding: 20px; border-radius: 5px; text-align: center;">
		<h1 style="margin: 0; letter-spacing: 5px;">%s</h1>
	</div>
	<p>This code will expire in 3 minutes.</p>
	<p style="color: #999; font-size: 12px;">If you didn't request this, please ignore this email.</p>
</div>`, html.EscapeString(code))

	return e.send(ctx, to, subject, text, body)
}

// SendPurchaseCompleted confirms a completed purchase to the buyer
func (e *EmailService) SendPurchaseCompleted(ctx context.Context, to, contentTitle string, amount int64) error {
	subject := "[Studyhub] Purchase completed"
	text := fmt.Sprintf("Your purchase of %s (%s) is complete. You can open it from your library.\n",
		contentTitle, service.FormatKRW(amount))
	body := fmt.Sprintf(`<div style="font-family: Arial, sans-serif;">
	<h2>Purchase completed</h2>
	<p><strong>%s</strong> (%s) is now in your library.</p>
</div>`, html.EscapeString(contentTitle), service.FormatKRW(amount))

	return e.send(ctx, to, subject, text, body)
}

// SendPayoutApproved tells a creator their payout was approved
func (e *EmailService) SendPayoutApproved(ctx context.Context, to string, amount int64) error {
	subject := "[Studyhub] Payout approved"
	text := fmt.Sprintf("Your payout request of %s was approved and will be transferred to your registered account.\n",
		service.FormatKRW(amount))
	body := fmt.Sprintf(`<div style="font-family: Arial, sans-serif;">
	<h2>Payout approved</h2>
	<p>Your payout request of <strong>%s</strong> was approved and will be transferred to your registered account.</p>
</div>`, service.FormatKRW(amount))

	return e.send(ctx, to, subject, text, body)
}

func (e *EmailService) from() string {
	fromEmail := e.config.FromEmail
	if fromEmail == "" {
		fromEmail = e.config.SMTPUsername
	}
	if e.config.FromName == "" {
		return fromEmail
	}
	return fmt.Sprintf("%s <%s>", e.config.FromName, fromEmail)
}

func (e *EmailService) send(ctx context.Context, to, subject, text, htmlBody string) error {
	if e.resend != nil {
		return e.sendResend(ctx, to, subject, text, htmlBody)
	}
	return e.sendSMTP(to, subject, htmlBody)
}

// sendResend sends an email through the Resend API
func (e *EmailService) sendResend(ctx context.Context, to, subject, text, htmlBody string) error {
	sent, err := e.resend.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    e.from(),
		To:      []string{to},
		Subject: subject,
		Html:    htmlBody,
		Text:    text,
	})
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	log.WithFields(log.Fields{"to": to, "email_id": sent.Id}).Debug("email sent via resend")
	return nil
}

// sendSMTP sends an email using SMTP
func (e *EmailService) sendSMTP(to, subject, htmlBody string) error {
	// Check if credentials are set
	if e.config.SMTPUsername == "" || e.config.SMTPPassword == "" {
		return fmt.Errorf("email credentials not configured")
	}

	auth := smtp.PlainAuth("", e.config.SMTPUsername, e.config.SMTPPassword, e.config.SMTPHost)

	fromEmail := e.config.FromEmail
	if fromEmail == "" {
		fromEmail = e.config.SMTPUsername
	}

	message := []byte(fmt.Sprintf(
		"From: %s\r\n"+
			"To: %s\r\n"+
			"Subject: %s\r\n"+
			"MIME-Version: 1.0\r\n"+
			"Content-Type: text/html; charset=\"UTF-8\"\r\n"+
			"\r\n"+
			"%s\r\n",
		e.from(), to, subject, htmlBody))

	addr := e.config.SMTPHost + ":" + e.config.SMTPPort
	if err := e.sendMail(addr, auth, fromEmail, []string{to}, message); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
