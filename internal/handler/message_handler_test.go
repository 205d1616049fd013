package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/zhanibek-dev/whisperbox/internal/entity"
	"github.com/zhanibek-dev/whisperbox/internal/metrics"
	"github.com/zhanibek-dev/whisperbox/internal/middleware"
	"github.com/zhanibek-dev/whisperbox/internal/repository"
	"github.com/zhanibek-dev/whisperbox/internal/suggest"
	"github.com/zhanibek-dev/whisperbox/internal/usecase"
)

// stubMessageRepo lets each test configure just the calls it expects.
type stubMessageRepo struct {
	getByUsername         func(username string) (*entity.User, error)
	getVerifiedByUsername func(username string) (*entity.User, error)
	getByID               func(userID primitive.ObjectID) (*entity.User, error)
	setAccepting          func(userID primitive.ObjectID, accepting bool) error
	push                  func(userID primitive.ObjectID, message *entity.Message) error
	pull                  func(userID, messageID primitive.ObjectID) (bool, error)
	sortedMessages        func(userID primitive.ObjectID) ([]entity.Message, error)
}

func (s *stubMessageRepo) GetUserByUsername(_ context.Context, username string) (*entity.User, error) {
	return s.getByUsername(username)
}
func (s *stubMessageRepo) GetVerifiedUserByUsername(_ context.Context, username string) (*entity.User, error) {
	return s.getVerifiedByUsername(username)
}
func (s *stubMessageRepo) GetUserByID(_ context.Context, userID primitive.ObjectID) (*entity.User, error) {
	return s.getByID(userID)
}
func (s *stubMessageRepo) SetAcceptingMessages(_ context.Context, userID primitive.ObjectID, accepting bool) error {
	return s.setAccepting(userID, accepting)
}
func (s *stubMessageRepo) PushMessage(_ context.Context, userID primitive.ObjectID, message *entity.Message) error {
	return s.push(userID, message)
}
func (s *stubMessageRepo) PullMessage(_ context.Context, userID, messageID primitive.ObjectID) (bool, error) {
	return s.pull(userID, messageID)
}
func (s *stubMessageRepo) MessagesSortedDesc(_ context.Context, userID primitive.ObjectID) ([]entity.Message, error) {
	return s.sortedMessages(userID)
}

func newMessageTestHandler(repo *stubMessageRepo) *MessageHandler {
	logger := zap.NewNop()
	uc := usecase.NewMessageUsecase(repo, logger)
	sg := suggest.NewService("http://unused.invalid", "", "test-model", logger)
	return NewMessageHandler(uc, sg, metrics.NewManager("test"), logger)
}

func identityMiddleware(id middleware.Identity) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(middleware.WithIdentity(r.Context(), id)))
		})
	}
}

func decodeEnvelope(t *testing.T, body *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var envelope map[string]interface{}
	require.NoError(t, json.Unmarshal(body.Bytes(), &envelope))
	return envelope
}

func TestCheckAcceptance(t *testing.T) {
	repo := &stubMessageRepo{
		getVerifiedByUsername: func(username string) (*entity.User, error) {
			if username == "alice" {
				return &entity.User{IsAcceptingMessages: true}, nil
			}
			return nil, repository.ErrUserNotFound
		},
	}
	h := newMessageTestHandler(repo)

	r := chi.NewRouter()
	r.Get("/api/u/{username}/accepting", h.CheckAcceptance)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/api/u/alice/accepting", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec.Body)
	assert.Equal(t, true, envelope["success"])
	assert.Equal(t, true, envelope["isAcceptingMessages"])

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/api/u/ghost/accepting", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/api/u/x/accepting", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendMessage(t *testing.T) {
	openID := primitive.NewObjectID()
	var pushed []entity.Message
	repo := &stubMessageRepo{
		getByUsername: func(username string) (*entity.User, error) {
			switch username {
			case "open":
				return &entity.User{ID: openID, IsAcceptingMessages: true}, nil
			case "closed":
				return &entity.User{ID: primitive.NewObjectID(), IsAcceptingMessages: false}, nil
			default:
				return nil, repository.ErrUserNotFound
			}
		},
		push: func(_ primitive.ObjectID, message *entity.Message) error {
			pushed = append(pushed, *message)
			return nil
		},
	}
	h := newMessageTestHandler(repo)

	r := chi.NewRouter()
	r.Post("/api/u/{username}/messages", h.SendMessage)

	send := func(username, content string) *httptest.ResponseRecorder {
		body, _ := json.Marshal(map[string]string{"content": content})
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest("POST", "/api/u/"+username+"/messages", bytes.NewReader(body)))
		return rec
	}

	rec := send("open", "hello")
	assert.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, pushed, 1)
	assert.Equal(t, "hello", pushed[0].Content)

	rec = send("closed", "hello")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	envelope := decodeEnvelope(t, rec.Body)
	assert.Equal(t, false, envelope["success"])
	assert.Equal(t, "User is not accepting messages", envelope["message"])

	rec = send("ghost", "hello")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = send("open", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Len(t, pushed, 1)
}

func TestGetMessages(t *testing.T) {
	userID := primitive.NewObjectID()
	now := time.Now()
	repo := &stubMessageRepo{
		sortedMessages: func(primitive.ObjectID) ([]entity.Message, error) {
			return []entity.Message{
				{ID: primitive.NewObjectID(), Content: "second", CreatedAt: now},
				{ID: primitive.NewObjectID(), Content: "first", CreatedAt: now.Add(-time.Minute)},
			}, nil
		},
	}
	h := newMessageTestHandler(repo)

	r := chi.NewRouter()
	r.With(identityMiddleware(middleware.Identity{UserID: userID, Username: "alice", IsVerified: true})).
		Get("/api/me/messages", h.GetMessages)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/api/me/messages", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success  bool             `json:"success"`
		Messages []messagePayload `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, "second", resp.Messages[0].Content)
	assert.Equal(t, "first", resp.Messages[1].Content)
}

func TestGetMessages_EmptyInboxIsAnArray(t *testing.T) {
	repo := &stubMessageRepo{
		sortedMessages: func(primitive.ObjectID) ([]entity.Message, error) {
			return []entity.Message{}, nil
		},
	}
	h := newMessageTestHandler(repo)

	r := chi.NewRouter()
	r.With(identityMiddleware(middleware.Identity{UserID: primitive.NewObjectID()})).
		Get("/api/me/messages", h.GetMessages)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/api/me/messages", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"messages":[]`)
}

func TestGetMessages_Unauthenticated(t *testing.T) {
	h := newMessageTestHandler(&stubMessageRepo{})

	r := chi.NewRouter()
	r.Get("/api/me/messages", h.GetMessages)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/api/me/messages", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDeleteMessage(t *testing.T) {
	userID := primitive.NewObjectID()
	existingID := primitive.NewObjectID()
	repo := &stubMessageRepo{
		pull: func(_, messageID primitive.ObjectID) (bool, error) {
			return messageID == existingID, nil
		},
	}
	h := newMessageTestHandler(repo)

	r := chi.NewRouter()
	r.With(identityMiddleware(middleware.Identity{UserID: userID})).
		Delete("/api/me/messages/{messageID}", h.DeleteMessage)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("DELETE", "/api/me/messages/"+existingID.Hex(), nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "deleted successfully")

	// Absent id still answers 200.
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("DELETE", "/api/me/messages/"+primitive.NewObjectID().Hex(), nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "already removed")

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("DELETE", "/api/me/messages/not-a-hex-id", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetAccepting(t *testing.T) {
	userID := primitive.NewObjectID()
	var lastSet *bool
	repo := &stubMessageRepo{
		setAccepting: func(_ primitive.ObjectID, accepting bool) error {
			lastSet = &accepting
			return nil
		},
	}
	h := newMessageTestHandler(repo)

	r := chi.NewRouter()
	r.With(identityMiddleware(middleware.Identity{UserID: userID})).
		Post("/api/me/accepting", h.SetAccepting)

	body, _ := json.Marshal(map[string]bool{"acceptMessages": false})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("POST", "/api/me/accepting", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, lastSet)
	assert.False(t, *lastSet)
	envelope := decodeEnvelope(t, rec.Body)
	assert.Equal(t, false, envelope["isAcceptingMessages"])
}

func TestSuggestMessages_Fallback(t *testing.T) {
	h := newMessageTestHandler(&stubMessageRepo{})

	r := chi.NewRouter()
	r.Post("/api/suggest-messages", h.SuggestMessages)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("POST", "/api/suggest-messages", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	envelope := decodeEnvelope(t, rec.Body)
	suggestions, ok := envelope["suggestions"].([]interface{})
	require.True(t, ok)
	assert.Len(t, suggestions, 3)
}
