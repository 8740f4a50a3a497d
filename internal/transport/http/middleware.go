package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatrelay/internal/auth"
)

// ContextKeyOperator is the context key for the authenticated operator.
const ContextKeyOperator = "operator"

// AuthMiddleware creates a middleware that validates operator JWT tokens.
func AuthMiddleware(cfg *auth.JWTConfig, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, msg := authenticate(cfg, c.Request, false, logger)
		if claims == nil {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: msg})
			c.Abort()
			return
		}

		c.Set(ContextKeyOperator, claims.Subject)
		c.Next()
	}
}

// RequireToken guards a plain handler. The websocket endpoint lives outside
// gin because the upgrade hijacks the connection. A ?token= parameter is
// accepted as well, since browsers cannot set headers on websocket upgrades.
func RequireToken(cfg *auth.JWTConfig, logger *zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, msg := authenticate(cfg, r, true, logger)
		if claims == nil {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(ErrorResponse{Error: msg})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// authenticate returns the token claims, or nil and a client-facing reason.
func authenticate(cfg *auth.JWTConfig, r *http.Request, allowQuery bool, logger *zerolog.Logger) (*auth.Claims, string) {
	token := ""
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		// Extract token from "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			logger.Debug().Msg("invalid authorization header format")
			return nil, "invalid authorization header format"
		}
		token = parts[1]
	} else if allowQuery {
		token = r.URL.Query().Get("token")
	}

	if token == "" {
		logger.Debug().Msg("missing authorization header")
		return nil, "missing authorization header"
	}

	claims, err := auth.ValidateToken(cfg, token)
	if err != nil {
		logger.Debug().Err(err).Msg("invalid token")
		return nil, "invalid token"
	}
	return claims, ""
}

// LoggerMiddleware creates a middleware that logs HTTP requests.
func LoggerMiddleware(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Process request
		c.Next()

		// Log after request
		logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Msg("http request")
	}
}
