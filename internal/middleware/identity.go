package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/weichenlin/grouplab-api/internal/service"
	appErrors "github.com/weichenlin/grouplab-api/pkg/errors"
	"github.com/weichenlin/grouplab-api/pkg/response"
)

// Identity replaces the actor-only identity set by JWT with the fully
// resolved one, applying any active impersonation marker. Must run after JWT
// and before the password gate and role checks.
func Identity(impersonation *service.ImpersonationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := IdentityFrom(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		resolved, err := impersonation.Resolve(c.Request.Context(), identity.Actor)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextIdentityKey, resolved)
		c.Next()
	}
}
