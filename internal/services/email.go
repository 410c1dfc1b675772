package services

import (
	"fmt"
	"log"

	"gopkg.in/gomail.v2"
)

// EmailService sends transactional mail over SMTP. Every send on a request
// path is best-effort: failures are logged by the caller and never fail the
// surrounding operation.
type EmailService struct {
	dialer *gomail.Dialer
	from   string
}

// NewEmailService constructs an EmailService. With an empty host the service
// stays in no-op mode and logs skipped sends, which keeps local development
// working without an SMTP account.
func NewEmailService(host string, port int, username, password, from string) *EmailService {
	svc := &EmailService{from: from}
	if host != "" {
		svc.dialer = gomail.NewDialer(host, port, username, password)
	}
	return svc
}

// SendWelcomeEmail greets a newly registered user.
func (s *EmailService) SendWelcomeEmail(name, email string) error {
	body := fmt.Sprintf(
		"Hi %s,\n\nWelcome to Exclusive! Your account is ready.\n\nHappy shopping,\nThe Exclusive Team\n",
		name)
	return s.send(email, "Welcome to Exclusive", body)
}

// SendVerificationEmail delivers a 6-digit email verification code.
func (s *EmailService) SendVerificationEmail(name, email, code string) error {
	body := fmt.Sprintf(
		"Hi %s,\n\nYour verification code is %s. It expires in 15 minutes.\n",
		name, code)
	return s.send(email, "Verify your email", body)
}

// SendPasswordResetEmail delivers a password reset link.
func (s *EmailService) SendPasswordResetEmail(name, email, resetLink string) error {
	body := fmt.Sprintf(
		"Hi %s,\n\nReset your password using the link below. The link expires in 1 hour.\n\n%s\n\nIf you did not request this, you can ignore this message.\n",
		name, resetLink)
	return s.send(email, "Reset your password", body)
}

// OrderConfirmationData carries the fields rendered into the confirmation mail.
type OrderConfirmationData struct {
	Name            string
	Email           string
	OrderID         string
	Total           float64
	ShippingAddress string
}

// SendOrderConfirmationEmail confirms a paid order.
func (s *EmailService) SendOrderConfirmationEmail(data OrderConfirmationData) error {
	body := fmt.Sprintf(
		"Hi %s,\n\nThanks for your order %s. We charged $%.2f and will ship to:\n%s\n",
		data.Name, data.OrderID, data.Total, data.ShippingAddress)
	return s.send(data.Email, "Your Exclusive order is confirmed", body)
}

func (s *EmailService) send(to, subject, body string) error {
	if s.dialer == nil {
		log.Printf("[Email] SMTP not configured, skipping %q to %s", subject, to)
		return nil
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", s.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send email %q to %s: %w", subject, to, err)
	}
	return nil
}
