package notification

import "log/slog"

// LogSender is a development stand-in for EmailService used when SMTP is not
// configured. It logs instead of sending, so the verification flow stays
// exercisable locally.
type LogSender struct {
	Logger *slog.Logger
}

// SendOTPEmail logs the verification code.
func (s *LogSender) SendOTPEmail(to, name, code string) error {
	s.Logger.Info("smtp not configured, logging verification code", "to", to, "code", code)
	return nil
}

// SendWelcomeEmail logs the welcome event.
func (s *LogSender) SendWelcomeEmail(to, name string) error {
	s.Logger.Info("smtp not configured, skipping welcome email", "to", to)
	return nil
}
