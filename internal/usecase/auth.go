package usecase

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/zhanibek-dev/whisperbox/internal/entity"
	"github.com/zhanibek-dev/whisperbox/internal/mailer"
	"github.com/zhanibek-dev/whisperbox/internal/repository"
	"github.com/zhanibek-dev/whisperbox/internal/validation"
)

var (
	ErrAlreadyExists      = errors.New("user already exists with this email")
	ErrEmailDelivery      = errors.New("failed to send verification email")
	ErrCodeExpired        = errors.New("verification code has expired")
	ErrInvalidCode        = errors.New("invalid verification code")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNotVerified        = errors.New("email is not verified")
	ErrUnauthorized       = errors.New("unauthorized")
)

const verifyCodeTTL = time.Hour

// UserRepo is the slice of the account store the auth workflow needs.
type UserRepo interface {
	CreateUser(ctx context.Context, user *entity.User) (primitive.ObjectID, error)
	GetUserByEmail(ctx context.Context, email string) (*entity.User, error)
	GetUserByUsername(ctx context.Context, username string) (*entity.User, error)
	GetUserByID(ctx context.Context, userID primitive.ObjectID) (*entity.User, error)
	ReissueCredentials(ctx context.Context, userID primitive.ObjectID, username, password, code string, expiresAt time.Time) error
	MarkEmailVerified(ctx context.Context, userID primitive.ObjectID) error
	CacheToken(ctx context.Context, keySuffix, token string, expiration time.Duration) error
	InvalidateToken(ctx context.Context, keySuffix string) error
	GetToken(ctx context.Context, keySuffix string) (string, error)
}

type AuthUsecase struct {
	repo      UserRepo
	mailer    mailer.Mailer
	jwtSecret []byte
	tokenTTL  time.Duration
	logger    *zap.Logger
}

func NewAuthUsecase(repo UserRepo, m mailer.Mailer, jwtSecret string, tokenTTL time.Duration, logger *zap.Logger) *AuthUsecase {
	return &AuthUsecase{
		repo:      repo,
		mailer:    m,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
		logger:    logger.Named("AuthUsecase"),
	}
}

// generateVerificationCode returns a 6-digit numeric code where every
// digit is drawn independently and uniformly.
func generateVerificationCode() (string, error) {
	buf := make([]byte, validation.CodeLen)
	for i := range buf {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		buf[i] = '0' + byte(n.Int64())
	}
	return string(buf), nil
}

// Register creates a new unverified account, or re-issues credentials
// and a fresh code when the email belongs to an account that never
// completed verification. Exactly one email attempt is made on success
// of the persistence step.
func (u *AuthUsecase) Register(ctx context.Context, username, email, password string) error {
	if err := validation.Username(username); err != nil {
		return err
	}
	if err := validation.Email(email); err != nil {
		return err
	}
	if err := validation.Password(password); err != nil {
		return err
	}

	code, err := generateVerificationCode()
	if err != nil {
		u.logger.Error("Failed to generate verification code", zap.Error(err))
		return err
	}
	expiresAt := time.Now().Add(verifyCodeTTL)

	existing, err := u.repo.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.IsVerified {
			return ErrAlreadyExists
		}
		// Unverified account: the email can be claimed again. Overwrite
		// username, password and the verification window in place.
		if err := u.repo.ReissueCredentials(ctx, existing.ID, username, password, code, expiresAt); err != nil {
			return err
		}
		u.logger.Info("Reissued verification code for unverified account", zap.String("email", email))
	case errors.Is(err, repository.ErrUserNotFound):
		newUser := &entity.User{
			Username:            username,
			Email:               email,
			Password:            password, // hashed in the repository
			VerifyCode:          code,
			VerifyCodeExpiresAt: &expiresAt,
			IsVerified:          false,
			IsAcceptingMessages: true,
		}
		if _, err := u.repo.CreateUser(ctx, newUser); err != nil {
			return err
		}
		u.logger.Info("Registered new account", zap.String("email", email))
	default:
		return err
	}

	if err := u.mailer.SendVerificationCode(email, username, code); err != nil {
		// The account write above stays persisted; registering again
		// with the same email re-issues the code and retries delivery.
		u.logger.Warn("Verification email delivery failed after persisted registration",
			zap.String("email", email), zap.Error(err))
		return ErrEmailDelivery
	}
	return nil
}

// VerifyEmail checks the submitted code against the stored one and flips
// the account to verified. Verifying an already-verified account is a
// no-op success. Inputs may arrive percent-encoded and are decoded
// before validation. PathUnescape leaves a literal '+' alone, so
// plus-addressed emails survive the round trip.
func (u *AuthUsecase) VerifyEmail(ctx context.Context, email, code string) error {
	if decoded, err := url.PathUnescape(email); err == nil {
		email = decoded
	}
	if decoded, err := url.PathUnescape(code); err == nil {
		code = decoded
	}

	if err := validation.Email(email); err != nil {
		return err
	}
	if err := validation.VerificationCode(code); err != nil {
		return err
	}

	user, err := u.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return err
	}

	if user.IsVerified {
		return nil
	}

	if user.VerifyCodeExpiresAt == nil || time.Now().After(*user.VerifyCodeExpiresAt) {
		return ErrCodeExpired
	}

	if user.VerifyCode != code {
		return ErrInvalidCode
	}

	if err := u.repo.MarkEmailVerified(ctx, user.ID); err != nil {
		return err
	}
	u.logger.Info("Email verified", zap.String("email", email))
	return nil
}

// Login validates credentials, refuses unverified accounts and issues a
// session token cached in Redis so it can be invalidated on logout.
func (u *AuthUsecase) Login(ctx context.Context, email, password string) (string, error) {
	user, err := u.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	if !user.IsVerified {
		return "", ErrNotVerified
	}

	claims := jwt.MapClaims{
		"sub":      user.ID.Hex(),
		"username": user.Username,
		"verified": user.IsVerified,
		"exp":      time.Now().Add(u.tokenTTL).Unix(),
		"iat":      time.Now().Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(u.jwtSecret)
	if err != nil {
		u.logger.Error("Failed to sign session token", zap.String("userID", user.ID.Hex()), zap.Error(err))
		return "", err
	}

	if err := u.repo.CacheToken(ctx, user.ID.Hex(), token, u.tokenTTL); err != nil {
		u.logger.Error("Failed to cache session token", zap.String("userID", user.ID.Hex()), zap.Error(err))
		return "", err
	}
	return token, nil
}

func (u *AuthUsecase) Logout(ctx context.Context, userID primitive.ObjectID) error {
	return u.repo.InvalidateToken(ctx, userID.Hex())
}

// ValidateSession checks that the presented token is the one cached for
// the user, so logged-out tokens stop working before they expire.
func (u *AuthUsecase) ValidateSession(ctx context.Context, userIDHex, token string) error {
	cached, err := u.repo.GetToken(ctx, userIDHex)
	if err != nil {
		return err
	}
	if cached == "" || cached != token {
		return ErrUnauthorized
	}
	return nil
}

// UsernameAvailable reports whether a username can still be claimed. A
// username held by an unverified account counts as available, since
// registration overwrites such accounts.
func (u *AuthUsecase) UsernameAvailable(ctx context.Context, username string) (bool, error) {
	if err := validation.Username(username); err != nil {
		return false, err
	}
	user, err := u.repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return true, nil
		}
		return false, err
	}
	return !user.IsVerified, nil
}
