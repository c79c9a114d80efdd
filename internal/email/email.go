// Package email is the notification collaborator. Sending happens after the
// owning transaction commits; callers log failures and move on.
package email

import (
	"fmt"
	"log/slog"
	"net/smtp"
	"os"
)

type Sender interface {
	Send(to, subject, body string) error
}

// NewSenderFromEnv returns an SMTP sender when SMTP_HOST is configured and a
// log-only stub otherwise, so local development never needs a mail relay.
func NewSenderFromEnv() Sender {
	host := os.Getenv("SMTP_HOST")
	if host == "" {
		return &logSender{}
	}
	return &smtpSender{
		host:     host,
		port:     getEnv("SMTP_PORT", "587"),
		from:     getEnv("SMTP_FROM", "no-reply@example.com"),
		username: os.Getenv("SMTP_USERNAME"),
		password: os.Getenv("SMTP_PASSWORD"),
	}
}

type smtpSender struct {
	host, port, from, username, password string
}

func (s *smtpSender) Send(to, subject, body string) error {
	msg := []byte("From: " + s.from + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"\r\n" +
		body + "\r\n")

	var auth smtp.Auth
	if s.username != "" {
		auth = smtp.PlainAuth("", s.username, s.password, s.host)
	}
	if err := smtp.SendMail(s.host+":"+s.port, auth, s.from, []string{to}, msg); err != nil {
		return fmt.Errorf("sending mail to %s: %w", to, err)
	}
	return nil
}

type logSender struct{}

func (l *logSender) Send(to, subject, _ string) error {
	slog.Info("email dispatch (stub)", slog.String("to", to), slog.String("subject", subject))
	return nil
}

// OrderConfirmationBody renders the post-checkout notification.
func OrderConfirmationBody(orderID string, totalAmount int64) (subject, body string) {
	subject = "Order Confirmation"
	body = fmt.Sprintf("Thank you for your order!\nOrder ID: %s\nTotal: %.2f\nWe are processing it now.",
		orderID, float64(totalAmount)/100)
	return subject, body
}

// PaymentSuccessBody renders the payment confirmation notification.
func PaymentSuccessBody(orderID string, amount int64) (subject, body string) {
	subject = "Payment Successful"
	body = fmt.Sprintf("Your payment has been processed successfully.\nOrder ID: %s\nAmount Paid: %.2f\nWe'll let you know when your order ships.",
		orderID, float64(amount)/100)
	return subject, body
}

// PasswordResetBody renders the reset email. The raw token travels only here,
// never in an API response.
func PasswordResetBody(resetToken string) (subject, body string) {
	base := getEnv("FRONTEND_URL", "http://localhost:3000")
	subject = "Password Reset"
	body = fmt.Sprintf("You requested to reset your password.\nOpen this link to continue: %s/reset-password?token=%s\nThis link expires in 1 hour.\nIf you didn't request this, ignore this email.",
		base, resetToken)
	return subject, body
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
