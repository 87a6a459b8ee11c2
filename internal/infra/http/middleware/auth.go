package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/fixora/analytics/internal/infra/auth"
	"github.com/fixora/analytics/internal/infra/http/response"
	"github.com/fixora/analytics/internal/infra/logger"
)

type authContextKey string

const authClaimsKey authContextKey = "auth_claims"

type AuthMiddleware struct {
	tokenService auth.TokenService
	logger       logger.Logger
}

// NewAuthMiddleware creates the bearer token guard. A nil token service
// disables the check.
func NewAuthMiddleware(tokenService auth.TokenService, log logger.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		tokenService: tokenService,
		logger:       log,
	}
}

func (m *AuthMiddleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if m.tokenService == nil {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			response.Unauthorized(w, "Authorization header required")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(w, "Invalid authorization header format")
			return
		}

		token := parts[1]
		if token == "" {
			response.Unauthorized(w, "Token cannot be empty")
			return
		}

		claims, err := m.tokenService.ValidateAccessToken(token)
		if err != nil {
			logger.LogSecurityEvent(r.Context(), m.logger, "invalid_token", "MEDIUM", map[string]interface{}{
				"ip":    getClientIP(r),
				"path":  r.URL.Path,
				"error": err.Error(),
			})
			response.Unauthorized(w, "Invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), authClaimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// GetClaims retrieves the token claims of an authenticated request
func GetClaims(ctx context.Context) *auth.Claims {
	if claims, ok := ctx.Value(authClaimsKey).(*auth.Claims); ok {
		return claims
	}
	return nil
}
