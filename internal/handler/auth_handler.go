package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/zhanibek-dev/whisperbox/internal/metrics"
	"github.com/zhanibek-dev/whisperbox/internal/middleware"
	"github.com/zhanibek-dev/whisperbox/internal/repository"
	"github.com/zhanibek-dev/whisperbox/internal/usecase"
	"github.com/zhanibek-dev/whisperbox/internal/validation"
)

type AuthHandler struct {
	usecase *usecase.AuthUsecase
	metrics *metrics.Manager
	logger  *zap.Logger
}

func NewAuthHandler(ucase *usecase.AuthUsecase, m *metrics.Manager, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		usecase: ucase,
		metrics: m,
		logger:  logger.Named("AuthHandler"),
	}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("Failed to decode request body for Register", zap.Error(err))
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	err := h.usecase.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		switch {
		case isValidationError(err):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, usecase.ErrAlreadyExists):
			writeError(w, http.StatusBadRequest, "User already exists with this email")
		case errors.Is(err, repository.ErrDuplicateUsername):
			writeError(w, http.StatusBadRequest, "Username is already taken")
		case errors.Is(err, usecase.ErrEmailDelivery):
			writeError(w, http.StatusInternalServerError, "Failed to send verification email")
		default:
			h.logger.Error("Failed to register user", zap.String("email", req.Email), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "Error registering user")
		}
		return
	}

	h.metrics.RegistrationsTotal.Inc()
	writeSuccess(w, http.StatusCreated, "User registered successfully. Please verify your email.")
}

type verifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("Failed to decode request body for Verify", zap.Error(err))
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	err := h.usecase.VerifyEmail(r.Context(), req.Email, req.Code)
	if err != nil {
		switch {
		case isValidationError(err):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, repository.ErrUserNotFound):
			writeError(w, http.StatusBadRequest, "No user found with this email")
		case errors.Is(err, usecase.ErrCodeExpired):
			writeError(w, http.StatusBadRequest, "Verification code has expired")
		case errors.Is(err, usecase.ErrInvalidCode):
			writeError(w, http.StatusBadRequest, "Invalid verification code")
		default:
			h.logger.Error("Failed to verify user", zap.String("email", req.Email), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "Error verifying user")
		}
		return
	}

	h.metrics.VerificationsTotal.Inc()
	writeSuccess(w, http.StatusOK, "Email verified successfully")
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("Failed to decode request body for Login", zap.Error(err))
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	token, err := h.usecase.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrInvalidCredentials):
			writeError(w, http.StatusUnauthorized, "Invalid email or password")
		case errors.Is(err, usecase.ErrNotVerified):
			writeError(w, http.StatusForbidden, "Please verify your email before signing in")
		default:
			h.logger.Error("Failed to login user", zap.String("email", req.Email), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "Login failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, apiResponse{Success: true, Message: "Signed in successfully", Token: token})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not Authenticated")
		return
	}

	if err := h.usecase.Logout(r.Context(), identity.UserID); err != nil {
		h.logger.Error("Failed to logout user", zap.String("userID", identity.UserID.Hex()), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Logout failed")
		return
	}
	writeSuccess(w, http.StatusOK, "Signed out successfully")
}

func (h *AuthHandler) UsernameCheck(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")

	available, err := h.usecase.UsernameAvailable(r.Context(), username)
	if err != nil {
		if isValidationError(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("Failed to check username", zap.String("username", username), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Error checking username")
		return
	}

	message := "Username is available"
	if !available {
		message = "Username is already taken"
	}
	writeJSON(w, http.StatusOK, apiResponse{Success: available, Message: message, Available: boolPtr(available)})
}

// isValidationError reports whether the error comes from the input
// schema layer, which always maps to a 400 with its own message.
func isValidationError(err error) bool {
	switch {
	case errors.Is(err, validation.ErrUsernameLength),
		errors.Is(err, validation.ErrUsernameCharset),
		errors.Is(err, validation.ErrEmailFormat),
		errors.Is(err, validation.ErrPasswordLength),
		errors.Is(err, validation.ErrCodeFormat),
		errors.Is(err, validation.ErrContentEmpty),
		errors.Is(err, validation.ErrContentTooLong):
		return true
	}
	return false
}
