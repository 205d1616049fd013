package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/zhanibek-dev/whisperbox/internal/metrics"
	"github.com/zhanibek-dev/whisperbox/internal/middleware"
	"github.com/zhanibek-dev/whisperbox/internal/repository"
	"github.com/zhanibek-dev/whisperbox/internal/suggest"
	"github.com/zhanibek-dev/whisperbox/internal/usecase"
	"github.com/zhanibek-dev/whisperbox/internal/validation"
)

type MessageHandler struct {
	usecase *usecase.MessageUsecase
	suggest *suggest.Service
	metrics *metrics.Manager
	logger  *zap.Logger
}

func NewMessageHandler(ucase *usecase.MessageUsecase, sg *suggest.Service, m *metrics.Manager, logger *zap.Logger) *MessageHandler {
	return &MessageHandler{
		usecase: ucase,
		suggest: sg,
		metrics: m,
		logger:  logger.Named("MessageHandler"),
	}
}

// CheckAcceptance is the public, unauthenticated gate check an anonymous
// sender performs before composing a message.
func (h *MessageHandler) CheckAcceptance(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if err := validation.Username(username); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	accepting, err := h.usecase.IsAccepting(r.Context(), username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		h.logger.Error("Failed to check acceptance status", zap.String("username", username), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Error checking acceptance status")
		return
	}

	writeJSON(w, http.StatusOK, apiResponse{
		Success:             true,
		Message:             "User status fetched successfully",
		IsAcceptingMessages: boolPtr(accepting),
	})
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

func (h *MessageHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("Failed to decode request body for SendMessage", zap.Error(err))
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	err := h.usecase.Send(r.Context(), username, req.Content)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrUserNotFound):
			h.metrics.MessagesRejectedTotal.WithLabelValues("not_found").Inc()
			writeError(w, http.StatusNotFound, "User not found")
		case errors.Is(err, usecase.ErrNotAcceptingMessages):
			h.metrics.MessagesRejectedTotal.WithLabelValues("not_accepting").Inc()
			writeError(w, http.StatusForbidden, "User is not accepting messages")
		case isValidationError(err):
			h.metrics.MessagesRejectedTotal.WithLabelValues("invalid_content").Inc()
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("Failed to send message", zap.String("username", username), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "Error sending message")
		}
		return
	}

	h.metrics.MessagesAcceptedTotal.Inc()
	writeSuccess(w, http.StatusCreated, "Message sent successfully")
}

func (h *MessageHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not Authenticated")
		return
	}

	messages, err := h.usecase.Inbox(r.Context(), identity.UserID)
	if err != nil {
		h.logger.Error("Failed to fetch messages", zap.String("userID", identity.UserID.Hex()), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Error fetching user messages")
		return
	}

	payload := make([]messagePayload, 0, len(messages))
	for _, msg := range messages {
		payload = append(payload, messagePayload{
			ID:        msg.ID.Hex(),
			Content:   msg.Content,
			CreatedAt: msg.CreatedAt,
		})
	}

	// The messages field is always present on success, even when empty.
	writeJSON(w, http.StatusOK, struct {
		Success  bool             `json:"success"`
		Message  string           `json:"message"`
		Messages []messagePayload `json:"messages"`
	}{
		Success:  true,
		Message:  "Messages fetched successfully",
		Messages: payload,
	})
}

func (h *MessageHandler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not Authenticated")
		return
	}

	messageID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "messageID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid message id")
		return
	}

	removed, err := h.usecase.Delete(r.Context(), identity.UserID, messageID)
	if err != nil {
		h.logger.Error("Failed to delete message",
			zap.String("userID", identity.UserID.Hex()),
			zap.String("messageID", messageID.Hex()),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Error deleting message")
		return
	}

	if removed {
		writeSuccess(w, http.StatusOK, "Message deleted successfully")
	} else {
		writeSuccess(w, http.StatusOK, "Message already removed")
	}
}

func (h *MessageHandler) GetAccepting(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not Authenticated")
		return
	}

	accepting, err := h.usecase.OwnerAccepting(r.Context(), identity.UserID)
	if err != nil {
		h.logger.Error("Failed to fetch acceptance state", zap.String("userID", identity.UserID.Hex()), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Error fetching acceptance state")
		return
	}

	writeJSON(w, http.StatusOK, apiResponse{
		Success:             true,
		IsAcceptingMessages: boolPtr(accepting),
	})
}

type setAcceptingRequest struct {
	AcceptMessages bool `json:"acceptMessages"`
}

func (h *MessageHandler) SetAccepting(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not Authenticated")
		return
	}

	var req setAcceptingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("Failed to decode request body for SetAccepting", zap.Error(err))
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	accepting, err := h.usecase.SetAccepting(r.Context(), identity.UserID, req.AcceptMessages)
	if err != nil {
		h.logger.Error("Failed to update acceptance state", zap.String("userID", identity.UserID.Hex()), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Error updating acceptance state")
		return
	}

	message := "You are now accepting messages"
	if !accepting {
		message = "You are no longer accepting messages"
	}
	writeJSON(w, http.StatusOK, apiResponse{
		Success:             true,
		Message:             message,
		IsAcceptingMessages: boolPtr(accepting),
	})
}

func (h *MessageHandler) SuggestMessages(w http.ResponseWriter, r *http.Request) {
	suggestions := h.suggest.Suggestions(r.Context())
	writeJSON(w, http.StatusOK, apiResponse{
		Success:     true,
		Message:     "Suggestions fetched successfully",
		Suggestions: suggestions,
	})
}
