package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/erp/replicator/internal/infrastructure/auth"
	"github.com/erp/replicator/internal/infrastructure/logger"
	"github.com/erp/replicator/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Auth context keys
const (
	ClaimsKey    = "bridge_claims"
	BearerPrefix = "Bearer "
	// TokenQueryParam carries the token for websocket upgrades, which cannot set headers from a browser
	TokenQueryParam = "access_token"
)

// BearerAuth rejects requests without a valid bridge token. Paths in skip are not checked.
func BearerAuth(tokens *auth.TokenService, skip ...string) gin.HandlerFunc {
	skipped := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		skipped[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skipped[c.FullPath()]; ok {
			c.Next()
			return
		}

		token := bearerToken(c)
		if token == "" {
			abortUnauthorized(c, dto.ErrCodeUnauthorized, "Missing bearer token", nil)
			return
		}

		claims, err := tokens.Validate(token)
		if err != nil {
			code := dto.ErrCodeTokenInvalid
			if errors.Is(err, auth.ErrExpiredToken) {
				code = dto.ErrCodeTokenExpired
			}
			abortUnauthorized(c, code, "Token validation failed", err)
			return
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		if !strings.HasPrefix(header, BearerPrefix) {
			return ""
		}
		return strings.TrimSpace(strings.TrimPrefix(header, BearerPrefix))
	}
	if c.IsWebsocket() {
		return c.Query(TokenQueryParam)
	}
	return ""
}

func abortUnauthorized(c *gin.Context, code, message string, err error) {
	fields := []zap.Field{zap.String("code", code)}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	logger.GetGinLogger(c).Warn("unauthorized request", fields...)
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(code, message))
}

// GetClaims returns the bridge claims set by BearerAuth
func GetClaims(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(ClaimsKey); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}
