package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type sessionClaims struct {
	jwt.RegisteredClaims
	Username string `json:"username"`
	Verified bool   `json:"verified"`
}

// SessionValidator checks a presented token against the session store,
// so logged-out tokens are refused before their expiry.
type SessionValidator interface {
	ValidateSession(ctx context.Context, userIDHex, token string) error
}

// JWTAuth parses the Bearer token, validates it against the session
// store and injects a typed Identity into the request context.
func JWTAuth(jwtSecret string, sessions SessionValidator, logger *zap.Logger) func(http.Handler) http.Handler {
	secret := []byte(jwtSecret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				unauthorized(w, "missing authorization")
				return
			}
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				unauthorized(w, "invalid authorization header")
				return
			}

			tokenStr := parts[1]
			claims := &sessionClaims{}
			token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
				return secret, nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || !token.Valid {
				unauthorized(w, "invalid token")
				return
			}

			if claims.Subject == "" {
				unauthorized(w, "invalid token subject")
				return
			}
			userID, err := primitive.ObjectIDFromHex(claims.Subject)
			if err != nil {
				unauthorized(w, "invalid token subject")
				return
			}

			if err := sessions.ValidateSession(r.Context(), claims.Subject, tokenStr); err != nil {
				logger.Debug("Session validation refused token", zap.String("userID", claims.Subject))
				unauthorized(w, "session expired")
				return
			}

			identity := Identity{
				UserID:     userID,
				Username:   claims.Username,
				IsVerified: claims.Verified,
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"message": message,
	})
}
