package notification

import (
	"fmt"
	"net/smtp"
)

// EmailConfig holds SMTP configuration.
type EmailConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	FromName string
}

// EmailService delivers transactional email over SMTP.
type EmailService struct {
	config EmailConfig
}

// NewEmailService creates a new email service.
func NewEmailService(config EmailConfig) *EmailService {
	return &EmailService{config: config}
}

// SendOTPEmail sends a verification code.
func (s *EmailService) SendOTPEmail(to, name, code string) error {
	subject := "Your Verification Code"
	body := fmt.Sprintf(`<html><body>
		<h2>Verify Your Email Address</h2>
		<p>Hi %s,</p>
		<p>Your verification code is:</p>
		<p style="font-size:28px;letter-spacing:6px;font-weight:bold">%s</p>
		<p>Enter this code to complete your registration. It expires in 10 minutes.</p>
		<p>If you did not create an account, you can ignore this email.</p>
	</body></html>`, name, code)
	return s.sendEmail(to, subject, body)
}

// SendWelcomeEmail sends the post-verification welcome message.
func (s *EmailService) SendWelcomeEmail(to, name string) error {
	subject := "Welcome!"
	body := fmt.Sprintf(`<html><body>
		<h2>Welcome, %s!</h2>
		<p>Your email address has been verified and your account is ready to use.</p>
	</body></html>`, name)
	return s.sendEmail(to, subject, body)
}

func (s *EmailService) sendEmail(to, subject, body string) error {
	from := s.config.From
	if s.config.FromName != "" {
		from = fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		from, to, subject, body)

	auth := smtp.PlainAuth("", s.config.User, s.config.Password, s.config.Host)
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	return smtp.SendMail(addr, auth, s.config.From, []string{to}, []byte(msg))
}
