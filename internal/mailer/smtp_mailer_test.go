package mailer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestSMTPMailer_IncompleteConfig(t *testing.T) {
	tests := []struct {
		name     string
		host     string
		username string
		password string
		from     string
	}{
		{name: "missing host", username: "u", password: "p", from: "noreply@example.com"},
		{name: "missing username", host: "smtp.example.com", password: "p", from: "noreply@example.com"},
		{name: "missing password", host: "smtp.example.com", username: "u", from: "noreply@example.com"},
		{name: "missing from address", host: "smtp.example.com", username: "u", password: "p"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewSMTPMailerService(tt.host, 587, tt.username, tt.password, tt.from, "WhisperBox", zap.NewNop())
			err := svc.SendVerificationCode("alice@example.com", "alice", "123456")
			assert.ErrorContains(t, err, "SMTP configuration is incomplete")
		})
	}
}

func TestVerificationBodies(t *testing.T) {
	htmlBody, textBody := verificationBodies("alice", "123456")

	assert.Contains(t, htmlBody, "alice")
	assert.Contains(t, htmlBody, "123456")
	assert.Contains(t, textBody, "alice")
	assert.Contains(t, textBody, "123456")
	assert.Contains(t, textBody, "1 hour")
}
