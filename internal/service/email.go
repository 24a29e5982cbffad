package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"school-resources-backend/internal/config"
	"school-resources-backend/internal/logger"
)

const dateLayout = "02/01/2006"

type emailService struct {
	apiKey    string
	fromEmail string
	fromName  string
}

// NewEmailService returns a SendGrid-backed EmailService. Without an API key
// messages are logged instead of sent.
func NewEmailService(cfg config.EmailConfig) EmailService {
	return &emailService{
		apiKey:    cfg.APIKey,
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
	}
}

func (s *emailService) SendLoanAuthorizedNotification(ctx context.Context, email, name, loanID string, returnDate time.Time) error {
	subject := "Préstamo autorizado"
	body := fmt.Sprintf("Hola %s,\n\nTu préstamo %s fue autorizado.", name, loanID)
	if !returnDate.IsZero() {
		body += fmt.Sprintf("\n\nFecha de devolución: %s.", returnDate.Format(dateLayout))
	}
	return s.send(ctx, email, name, subject, body)
}

func (s *emailService) SendLoanRejectedNotification(ctx context.Context, email, name, loanID, reason string) error {
	subject := "Préstamo rechazado"
	body := fmt.Sprintf("Hola %s,\n\nTu préstamo %s fue rechazado.\n\nMotivo: %s", name, loanID, reason)
	return s.send(ctx, email, name, subject, body)
}

func (s *emailService) SendOverdueReminder(ctx context.Context, email, name, loanID string, daysOverdue int) error {
	subject := "Préstamo atrasado"
	body := fmt.Sprintf("Hola %s,\n\nTu préstamo %s tiene %d día(s) de atraso. Por favor devuelve los recursos.", name, loanID, daysOverdue)
	return s.send(ctx, email, name, subject, body)
}

func (s *emailService) send(ctx context.Context, to, toName, subject, plainText string) error {
	if s.apiKey == "" {
		logger.Info("Email delivery disabled, skipping", "to", to, "subject", subject)
		return nil
	}

	logger.ExternalServiceCall("sendgrid", "send", "to", to, "subject", subject)
	message := mail.NewSingleEmail(
		mail.NewEmail(s.fromName, s.fromEmail),
		subject,
		mail.NewEmail(toName, to),
		plainText,
		"",
	)
	client := sendgrid.NewSendClient(s.apiKey)
	response, err := client.SendWithContext(ctx, message)
	if err == nil && response.StatusCode >= 400 {
		err = fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
	}
	logger.ExternalServiceResult("sendgrid", "send", err, "to", to)
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
