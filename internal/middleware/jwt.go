package middleware

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/weichenlin/grouplab-api/internal/models"
	"github.com/weichenlin/grouplab-api/internal/service"
	appErrors "github.com/weichenlin/grouplab-api/pkg/errors"
	"github.com/weichenlin/grouplab-api/pkg/response"
)

// Context keys for the authenticated principal.
const (
	ContextClaimsKey   = "authClaims"
	ContextIdentityKey = "authIdentity"
)

type actorLoader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// JWT requires a valid access token and loads the authenticated user. The
// loaded user becomes the actor for identity resolution downstream.
func JWT(authService *service.AuthService, users actorLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		claims, err := authService.ValidateToken(parts[1])
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		actor, err := users.FindByID(c.Request.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "associated user no longer exists"))
			} else {
				response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user"))
			}
			c.Abort()
			return
		}

		c.Set(ContextClaimsKey, claims)
		c.Set(ContextIdentityKey, &models.Identity{Effective: actor, Actor: actor})
		c.Next()
	}
}

// IdentityFrom extracts the resolved identity from the gin context.
func IdentityFrom(c *gin.Context) (*models.Identity, bool) {
	value, exists := c.Get(ContextIdentityKey)
	if !exists {
		return nil, false
	}
	identity, ok := value.(*models.Identity)
	return identity, ok && identity != nil && identity.Effective != nil
}
