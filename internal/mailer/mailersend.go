package mailer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const mailerSendAPIURL = "https://api.mailersend.com/v1/email"

// MailerSendService implements the Mailer interface using MailerSend.
type MailerSendService struct {
	apiKey    string
	fromEmail string
	fromName  string
	client    *http.Client
	logger    *zap.Logger
}

func NewMailerSendService(apiKey, fromEmail, fromName string, logger *zap.Logger) *MailerSendService {
	return &MailerSendService{
		apiKey:    apiKey,
		fromEmail: fromEmail,
		fromName:  fromName,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger.Named("MailerSendService"),
	}
}

type mailerSendRequest struct {
	From    emailAddress   `json:"from"`
	To      []emailAddress `json:"to"`
	Subject string         `json:"subject"`
	Text    string         `json:"text"`
	HTML    string         `json:"html"`
}

type emailAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

func verificationBodies(username, code string) (html, text string) {
	html = fmt.Sprintf(`<p>Hello %s,</p>
                        <p>Your verification code is: <b>%s</b></p>
                        <p>This code will expire in 1 hour.</p>
                        <p>If you did not sign up, please ignore this email.</p>`, username, code)
	text = fmt.Sprintf(`Hello %s,
                        Your verification code is: %s
                        This code will expire in 1 hour.
                        If you did not sign up, please ignore this email.`, username, code)
	return html, text
}

// SendVerificationCode sends the verification email via the MailerSend API.
func (s *MailerSendService) SendVerificationCode(toEmail, username, code string) error {
	s.logger.Info("Attempting to send verification email", zap.String("toEmail", toEmail))

	htmlBody, textBody := verificationBodies(username, code)
	requestPayload := mailerSendRequest{
		From:    emailAddress{Email: s.fromEmail, Name: s.fromName},
		To:      []emailAddress{{Email: toEmail, Name: username}},
		Subject: "Verify Your Email Address",
		Text:    textBody,
		HTML:    htmlBody,
	}

	payloadBytes, err := json.Marshal(requestPayload)
	if err != nil {
		s.logger.Error("Failed to marshal MailerSend request payload", zap.Error(err))
		return fmt.Errorf("failed to marshal request payload: %w", err)
	}

	req, err := http.NewRequest("POST", mailerSendAPIURL, bytes.NewBuffer(payloadBytes))
	if err != nil {
		s.logger.Error("Failed to create MailerSend HTTP request", zap.Error(err))
		return fmt.Errorf("failed to create http request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Error("Failed to send request to MailerSend", zap.Error(err))
		return fmt.Errorf("failed to send request to MailerSend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		s.logger.Error("MailerSend API request failed", zap.Int("statusCode", resp.StatusCode))
		return fmt.Errorf("MailerSend API request failed with status code %d", resp.StatusCode)
	}

	s.logger.Info("Verification email sent successfully via MailerSend", zap.String("toEmail", toEmail))
	return nil
}
