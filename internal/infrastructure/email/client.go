// Package email provides the email client for sending sysop notifications.
package email

import (
	"fmt"
	"os"

	"github.com/AtRiskMedia/diagram-go/internal/infrastructure/email/templates"
	"github.com/resendlabs/resend-go"
)

// Service defines the interface for sending emails, allowing for mock implementations in tests.
type Service interface {
	SendEngineAlert(toEmail, errorKind, message, host string) error
}

// ResendClient is the concrete implementation of the email Service using the Resend API.
type ResendClient struct {
	client    *resend.Client
	fromEmail string
	fromName  string
}

// NewService creates a new email service client, returning the Service interface.
func NewService() (Service, error) {
	apiKey := os.Getenv("RESEND_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("RESEND_API_KEY environment variable is required")
	}

	fromEmail := os.Getenv("ALERT_EMAIL_FROM")
	if fromEmail == "" {
		fromEmail = "noreply@atriskmedia.com"
	}

	fromName := os.Getenv("ALERT_EMAIL_FROM_NAME")
	if fromName == "" {
		fromName = "diagram-go"
	}

	return &ResendClient{
		client:    resend.NewClient(apiKey),
		fromEmail: fromEmail,
		fromName:  fromName,
	}, nil
}

// SendEngineAlert composes and sends the engine availability alert email.
func (c *ResendClient) SendEngineAlert(toEmail, errorKind, message, host string) error {
	subject := "diagram-go: rendering engine unavailable"

	content := templates.GetEngineAlertContent(templates.EngineAlertProps{
		ErrorKind: errorKind,
		Message:   message,
		Host:      host,
	})

	htmlContent := templates.GetEmailLayout(templates.EmailLayoutProps{
		Content: content,
	})

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", c.fromName, c.fromEmail),
		To:      []string{toEmail},
		Subject: subject,
		Html:    htmlContent,
	}

	if _, err := c.client.Emails.Send(params); err != nil {
		return fmt.Errorf("failed to send engine alert email: %w", err)
	}

	return nil
}
