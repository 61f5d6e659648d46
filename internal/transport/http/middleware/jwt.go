package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ragchat/internal/logger"
	"ragchat/internal/pkg/jwtutil"
	"ragchat/internal/transport/http/response"
)

const (
	ContextUserIDKey   = "user_id"
	ContextUsernameKey = "username"
)

var (
	errMissingAuth = errors.New("missing authorization header")
	errAuthScheme  = errors.New("invalid authorization scheme")
)

// AuthJWT resolves the bearer token to the owner every protected route is
// scoped to. The owner id is also recorded on the request span.
func AuthJWT(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := bearerToken(c.GetHeader("Authorization"))
		if err != nil {
			reject(c, err.Error(), err)
			return
		}

		claims, err := jwtutil.ParseToken(secret, token)
		if err != nil {
			reject(c, "invalid or expired token", err)
			return
		}

		c.Set(ContextUserIDKey, claims.UserID)
		c.Set(ContextUsernameKey, claims.Username)
		trace.SpanFromContext(c.Request.Context()).SetAttributes(
			attribute.Int64("ragchat.owner_id", int64(claims.UserID)),
		)
		c.Next()
	}
}

// bearerToken extracts the token from an Authorization header. The scheme
// name is matched case-insensitively.
func bearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errMissingAuth
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", errAuthScheme
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errAuthScheme
	}
	return token, nil
}

func reject(c *gin.Context, message string, cause error) {
	logger.Debug("request unauthorized",
		"path", c.FullPath(),
		"request_id", GetRequestID(c),
		"error", cause.Error(),
	)
	response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, message)
	c.Abort()
}

// OwnerID returns the authenticated owner id set by AuthJWT.
func OwnerID(c *gin.Context) (uint, bool) {
	v, exists := c.Get(ContextUserIDKey)
	if !exists {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok && id != 0
}
