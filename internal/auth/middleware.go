package auth

import (
	"context"
	"strings"

	"ctfplatform/internal/realtime"
	pkgerrors "ctfplatform/pkg/errors"
	"ctfplatform/pkg/utils/contextkey"
	"ctfplatform/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

const (
	scopeContextKey    = "scope"
	identityContextKey = "identity"
	userIDContextKey   = "user_id"

	// WebSocket clients cannot set headers from browsers.
	tokenQueryParam = "access_token"
)

// DetectScope resolves the caller's audience from the bearer token (or the
// access_token query parameter). Requests without a token continue as
// guests; an invalid token is rejected.
func DetectScope(tokens *TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := extractBearerToken(c.GetHeader("Authorization"))
		if raw == "" {
			raw = strings.TrimSpace(c.Query(tokenQueryParam))
		}

		audience, identity, err := tokens.Scope(raw)
		if err != nil {
			response.AbortWithError(c, err)
			return
		}

		c.Set(scopeContextKey, audience)
		ctx := context.WithValue(c.Request.Context(), contextkey.Scope, string(audience))
		if identity.ID > 0 {
			c.Set(identityContextKey, identity)
			c.Set(userIDContextKey, identity.ID)
			ctx = context.WithValue(ctx, contextkey.UserID, identity.ID)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireSupervisor allows admins and managers only.
func RequireSupervisor() gin.HandlerFunc {
	return requireAudience(realtime.AudienceSupervisors)
}

// RequireTeam allows team tokens only.
func RequireTeam() gin.HandlerFunc {
	return requireAudience(realtime.AudienceTeams)
}

func requireAudience(want realtime.Audience) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch ScopeFromContext(c) {
		case want:
			c.Next()
		case realtime.AudienceGuests:
			response.AbortWithErrorCode(c, pkgerrors.Unauthorized, "")
		default:
			response.AbortWithErrorCode(c, pkgerrors.Forbidden, "insufficient role")
		}
	}
}

// ScopeFromContext returns the audience set by DetectScope, guests if absent.
func ScopeFromContext(c *gin.Context) realtime.Audience {
	if v, ok := c.Get(scopeContextKey); ok {
		if a, ok := v.(realtime.Audience); ok {
			return a
		}
	}
	return realtime.AudienceGuests
}

// IdentityFromContext returns the authenticated identity if any.
func IdentityFromContext(c *gin.Context) (Identity, bool) {
	if v, ok := c.Get(identityContextKey); ok {
		if id, ok := v.(Identity); ok {
			return id, true
		}
	}
	return Identity{}, false
}

func extractBearerToken(authHeader string) string {
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
