package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhanibek-dev/whisperbox/internal/middleware"
)

// NewRouter wires the public and owner-only routes.
func NewRouter(
	authHandler *AuthHandler,
	messageHandler *MessageHandler,
	metricsHandler http.Handler,
	jwtSecret string,
	sessions middleware.SessionValidator,
	logger *zap.Logger,
) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestLogger(logger))

	// Public routes
	r.Post("/api/auth/register", authHandler.Register)
	r.Post("/api/auth/verify", authHandler.Verify)
	r.Post("/api/auth/login", authHandler.Login)
	r.Get("/api/auth/username-check", authHandler.UsernameCheck)

	r.Get("/api/u/{username}/accepting", messageHandler.CheckAcceptance)
	r.Post("/api/u/{username}/messages", messageHandler.SendMessage)
	r.Post("/api/suggest-messages", messageHandler.SuggestMessages)

	// Owner-only routes
	r.Group(func(authRouter chi.Router) {
		authRouter.Use(middleware.JWTAuth(jwtSecret, sessions, logger))

		authRouter.Post("/api/auth/logout", authHandler.Logout)
		authRouter.Get("/api/me/messages", messageHandler.GetMessages)
		authRouter.Delete("/api/me/messages/{messageID}", messageHandler.DeleteMessage)
		authRouter.Get("/api/me/accepting", messageHandler.GetAccepting)
		authRouter.Post("/api/me/accepting", messageHandler.SetAccepting)
	})

	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	return r
}
