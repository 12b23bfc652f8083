package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ITH-Pros/ith-tea-pro-backend/internal/auth"
	"github.com/ITH-Pros/ith-tea-pro-backend/internal/authz"
)

const (
	UserIDKey = "userID"
	ActorKey  = "actor"
)

// UserLoader resolves the token subject into an authorization actor.
// The role always comes from the stored user record, not from the
// token, and deleted users are rejected.
type UserLoader interface {
	LoadActor(ctx context.Context, userID uuid.UUID) (authz.Actor, error)
}

// JWTAuthMiddleware validates the bearer token and puts the resolved
// actor into the request context.
func JWTAuthMiddleware(jwtSecret string, loader UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer {token}"})
			return
		}

		claims, err := auth.ParseToken(parts[1], jwtSecret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid user ID in token"})
			return
		}

		actor, err := loader.LoadActor(c.Request.Context(), userID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not found or deactivated"})
			return
		}

		c.Set(UserIDKey, userID)
		c.Set(ActorKey, actor)
		c.Next()
	}
}

// CurrentActor reads the actor stored by JWTAuthMiddleware.
func CurrentActor(c *gin.Context) (authz.Actor, bool) {
	v, exists := c.Get(ActorKey)
	if !exists {
		return authz.Actor{}, false
	}
	actor, ok := v.(authz.Actor)
	return actor, ok
}
