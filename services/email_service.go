package services

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"inkpost-api/config"
	"inkpost-api/models"
	"inkpost-api/utils"
)

// Mailer sends account notices. Failures are reported to the caller, which treats them as
// best-effort.
type Mailer interface {
	SendWelcome(ctx context.Context, user *models.User) error
	SendPasswordChanged(ctx context.Context, user *models.User) error
}

type EmailService struct {
	config *config.Config
	dialer *gomail.Dialer
}

func NewEmailService(cfg *config.Config) *EmailService {
	service := &EmailService{config: cfg}
	if cfg.SMTPHost != "" {
		service.dialer = gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword)
	}
	return service
}

// Enabled reports whether an SMTP server is configured.
func (es *EmailService) Enabled() bool {
	return es.dialer != nil
}

func (es *EmailService) SendWelcome(ctx context.Context, user *models.User) error {
	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>Welcome</title></head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <h2>Hello %s!</h2>
    <p>Your Inkpost account is ready. Start writing your first post whenever you like.</p>
    <p>The Inkpost Team</p>
</body>
</html>`, user.Name)

	textBody := fmt.Sprintf(`Hello %s!

Your Inkpost account is ready. Start writing your first post whenever you like.

The Inkpost Team
`, user.Name)

	return es.send(user.Email, "Welcome to Inkpost", textBody, htmlBody)
}

func (es *EmailService) SendPasswordChanged(ctx context.Context, user *models.User) error {
	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>Password changed</title></head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <h2>Hello %s,</h2>
    <p>The password of your Inkpost account was just changed.</p>
    <p>If you did not do this, reset your password immediately.</p>
</body>
</html>`, user.Name)

	textBody := fmt.Sprintf(`Hello %s,

The password of your Inkpost account was just changed.

If you did not do this, reset your password immediately.
`, user.Name)

	return es.send(user.Email, "Your Inkpost password was changed", textBody, htmlBody)
}

func (es *EmailService) send(to, subject, textBody, htmlBody string) error {
	if es.dialer == nil {
		utils.Logger.Debug("smtp not configured, skipping email", "to", to, "subject", subject)
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", m.FormatAddress(es.config.FromEmail, es.config.FromName))
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", textBody)
	m.AddAlternative("text/html", htmlBody)

	if err := es.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	utils.Logger.Info("email sent", "to", to, "subject", subject)
	return nil
}
