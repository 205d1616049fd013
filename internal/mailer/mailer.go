package mailer

// Mailer delivers a verification code to a registering address.
type Mailer interface {
	SendVerificationCode(toEmail, username, code string) error
}
