package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	// SessionKey is the cookie session field holding the capability token.
	SessionKey    = "admin_capability"
	capabilityKey = "capability"
)

// Verifier checks a presented capability.
type Verifier interface {
	Verify(ctx context.Context, token string) error
}

// BearerToken returns the token of an "Authorization: Bearer" header.
func BearerToken(c *gin.Context) string {
	authz := c.GetHeader("Authorization")
	if len(authz) < len("bearer ") || !strings.EqualFold(authz[:len("bearer ")], "bearer ") {
		return ""
	}
	return strings.TrimSpace(authz[len("bearer "):])
}

// PresentedCapability returns the capability offered by the caller, from the
// bearer header first and then from the caller's own session.
func PresentedCapability(c *gin.Context) string {
	if token := BearerToken(c); token != "" {
		return token
	}
	if _, ok := c.Get(sessions.DefaultKey); !ok {
		return ""
	}
	if token, ok := sessions.Default(c).Get(SessionKey).(string); ok {
		return token
	}
	return ""
}

// AdminAuth rejects requests without a valid admin capability and stores the
// verified token for handlers.
func AdminAuth(v Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := PresentedCapability(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin capability required"})
			return
		}
		if err := v.Verify(c.Request.Context(), token); err != nil {
			status := http.StatusForbidden
			if !errors.Is(err, ErrNoCapability) && !errors.Is(err, ErrRevoked) {
				status = http.StatusInternalServerError
			}
			c.AbortWithStatusJSON(status, gin.H{"error": "admin capability rejected"})
			return
		}
		c.Set(capabilityKey, token)
		c.Next()
	}
}

// CapabilityFrom returns the token verified by AdminAuth, or the presented
// one when the route is not behind AdminAuth.
func CapabilityFrom(c *gin.Context) string {
	if v, ok := c.Get(capabilityKey); ok {
		if token, ok := v.(string); ok {
			return token
		}
	}
	return PresentedCapability(c)
}
