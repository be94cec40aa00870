package notifications

import (
	"context"
	"fmt"

	"github.com/Dhoini/Donation-platform/internal/domain"
	"github.com/Dhoini/Donation-platform/pkg/logger"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// MonthlyImpactEmail параметры письма о ежемесячном вкладе жертвователя.
type MonthlyImpactEmail struct {
	Donor         domain.Donor
	Organization  domain.Organization
	DashboardLink string
	Month         string
	TotalAmount   float64
	Currency      string
}

// CardFailureAlertEmail параметры письма о неудачном списании.
type CardFailureAlertEmail struct {
	Donor         domain.Donor
	Organization  domain.Organization
	DashboardLink string
}

// Sender отправляет транзакционные письма жертвователям через SendGrid.
type Sender struct {
	client    *sendgrid.Client
	fromName  string
	fromEmail string
	log       *logger.Logger
}

// NewSender создает новый отправитель писем.
func NewSender(apiKey, fromName, fromEmail string, log *logger.Logger) *Sender {
	return &Sender{
		client:    sendgrid.NewSendClient(apiKey),
		fromName:  fromName,
		fromEmail: fromEmail,
		log:       log,
	}
}

// SendMonthlyImpactEmail отправляет жертвователю письмо о его вкладе за период.
func (s *Sender) SendMonthlyImpactEmail(ctx context.Context, p MonthlyImpactEmail) error {
	subject := fmt.Sprintf("Your impact with %s — %s", p.Organization.Name, p.Month)
	plain := fmt.Sprintf(
		"Hi %s,\n\nThank you for supporting %s. Your donation of %.2f %s for %s was received.\n\nSee your full giving history: %s\n",
		p.Donor.Name, p.Organization.Name, p.TotalAmount, p.Currency, p.Month, p.DashboardLink,
	)
	html := fmt.Sprintf(
		"<p>Hi %s,</p><p>Thank you for supporting <strong>%s</strong>. Your donation of <strong>%.2f %s</strong> for %s was received.</p><p><a href=%q>See your full giving history</a></p>",
		p.Donor.Name, p.Organization.Name, p.TotalAmount, p.Currency, p.Month, p.DashboardLink,
	)

	return s.send(ctx, p.Donor, subject, plain, html)
}

// SendCardFailureAlertEmail отправляет жертвователю предупреждение о неудачном списании.
func (s *Sender) SendCardFailureAlertEmail(ctx context.Context, p CardFailureAlertEmail) error {
	subject := fmt.Sprintf("Payment to %s failed — action needed", p.Organization.Name)
	plain := fmt.Sprintf(
		"Hi %s,\n\nWe couldn't process your recurring donation to %s. Please update your payment method to keep supporting them.\n\nUpdate payment details: %s\n",
		p.Donor.Name, p.Organization.Name, p.DashboardLink,
	)
	html := fmt.Sprintf(
		"<p>Hi %s,</p><p>We couldn't process your recurring donation to <strong>%s</strong>. Please update your payment method to keep supporting them.</p><p><a href=%q>Update payment details</a></p>",
		p.Donor.Name, p.Organization.Name, p.DashboardLink,
	)

	return s.send(ctx, p.Donor, subject, plain, html)
}

func (s *Sender) send(ctx context.Context, donor domain.Donor, subject, plain, html string) error {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(donor.Name, donor.Email)
	message := mail.NewSingleEmail(from, subject, to, plain, html)

	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("sendgrid: failed to send email: %w", err)
	}
	if response.StatusCode != 202 {
		return fmt.Errorf("sendgrid: unexpected status %d: %s", response.StatusCode, response.Body)
	}

	s.log.Debugw("Email sent", "to", donor.Email, "subject", subject)
	return nil
}
