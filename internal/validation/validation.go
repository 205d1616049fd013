package validation

import (
	"errors"
	"regexp"
	"unicode/utf8"
)

const (
	UsernameMinLen = 3
	UsernameMaxLen = 30
	PasswordMinLen = 8
	ContentMaxLen  = 1000
	CodeLen        = 6
)

var (
	ErrUsernameLength  = errors.New("username must be between 3 and 30 characters long")
	ErrUsernameCharset = errors.New("username can only contain letters, numbers, and underscores")
	ErrEmailFormat     = errors.New("invalid email address")
	ErrPasswordLength  = errors.New("password must be at least 8 characters long")
	ErrCodeFormat      = errors.New("verification code must be exactly 6 digits")
	ErrContentEmpty    = errors.New("message cannot be empty")
	ErrContentTooLong  = errors.New("message cannot exceed 1000 characters")
)

var (
	usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	emailRe    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	codeRe     = regexp.MustCompile(`^[0-9]{6}$`)
)

// Username checks length and charset rules on the raw value. The
// charset admits no whitespace, so an untrimmed input is rejected
// rather than silently normalized; the value that validates is the
// value that gets stored.
func Username(username string) error {
	length := utf8.RuneCountInString(username)
	if length < UsernameMinLen || length > UsernameMaxLen {
		return ErrUsernameLength
	}
	if !usernameRe.MatchString(username) {
		return ErrUsernameCharset
	}
	return nil
}

func Email(email string) error {
	if !emailRe.MatchString(email) {
		return ErrEmailFormat
	}
	return nil
}

func Password(password string) error {
	if len(password) < PasswordMinLen {
		return ErrPasswordLength
	}
	return nil
}

// VerificationCode checks the exact 6-numeric-digit shape. The value is
// compared as a string later, so no normalization happens here.
func VerificationCode(code string) error {
	if !codeRe.MatchString(code) {
		return ErrCodeFormat
	}
	return nil
}

// MessageContent enforces the 1-1000 character content schema applied on
// both ingestion and retrieval. Lengths are counted in characters, not
// bytes, so multibyte content is measured the way senders see it.
func MessageContent(content string) error {
	if content == "" {
		return ErrContentEmpty
	}
	if utf8.RuneCountInString(content) > ContentMaxLen {
		return ErrContentTooLong
	}
	return nil
}
