package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUsername(t *testing.T) {
	testCases := []struct {
		name     string
		username string
		wantErr  error
	}{
		{"valid", "alice_01", nil},
		{"min length", "abc", nil},
		{"max length", strings.Repeat("a", 30), nil},
		{"too short", "ab", ErrUsernameLength},
		{"too long", strings.Repeat("a", 31), ErrUsernameLength},
		{"empty", "", ErrUsernameLength},
		{"surrounding spaces", "  alice  ", ErrUsernameCharset},
		{"spaces inside", "ali ce", ErrUsernameCharset},
		{"punctuation", "alice!", ErrUsernameCharset},
		{"unicode", "алиса", ErrUsernameCharset},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := Username(tc.username)
			if tc.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tc.wantErr)
			}
		})
	}
}

func TestEmail(t *testing.T) {
	assert.NoError(t, Email("a@x.com"))
	assert.NoError(t, Email("first.last@sub.example.org"))
	assert.ErrorIs(t, Email(""), ErrEmailFormat)
	assert.ErrorIs(t, Email("not-an-email"), ErrEmailFormat)
	assert.ErrorIs(t, Email("a@b"), ErrEmailFormat)
	assert.ErrorIs(t, Email("a b@x.com"), ErrEmailFormat)
}

func TestPassword(t *testing.T) {
	assert.NoError(t, Password("password1"))
	assert.NoError(t, Password("12345678"))
	assert.ErrorIs(t, Password("1234567"), ErrPasswordLength)
	assert.ErrorIs(t, Password(""), ErrPasswordLength)
}

func TestVerificationCode(t *testing.T) {
	assert.NoError(t, VerificationCode("000000"))
	assert.NoError(t, VerificationCode("123456"))
	assert.ErrorIs(t, VerificationCode("12345"), ErrCodeFormat)
	assert.ErrorIs(t, VerificationCode("1234567"), ErrCodeFormat)
	assert.ErrorIs(t, VerificationCode("12345a"), ErrCodeFormat)
	assert.ErrorIs(t, VerificationCode(""), ErrCodeFormat)
	assert.ErrorIs(t, VerificationCode(" 123456"), ErrCodeFormat)
}

func TestMessageContent(t *testing.T) {
	assert.NoError(t, MessageContent("x"))
	assert.NoError(t, MessageContent(strings.Repeat("x", 1000)))
	assert.ErrorIs(t, MessageContent(""), ErrContentEmpty)
	assert.ErrorIs(t, MessageContent(strings.Repeat("x", 1001)), ErrContentTooLong)
}

func TestMessageContent_CountsCharactersNotBytes(t *testing.T) {
	// 1000 two-byte characters must pass; the limit is per character.
	assert.NoError(t, MessageContent(strings.Repeat("é", 1000)))
	assert.ErrorIs(t, MessageContent(strings.Repeat("é", 1001)), ErrContentTooLong)
}
