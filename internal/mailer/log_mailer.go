package mailer

import "go.uber.org/zap"

// LogMailer writes the verification code to the log instead of sending
// email. Meant for local development only.
type LogMailer struct {
	logger *zap.Logger
}

func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger.Named("LogMailer")}
}

func (m *LogMailer) SendVerificationCode(toEmail, username, code string) error {
	m.logger.Info("Verification code issued (log mailer, no email sent)",
		zap.String("toEmail", toEmail),
		zap.String("username", username),
		zap.String("code", code))
	return nil
}
