package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/weichenlin/grouplab-api/internal/models"
	appErrors "github.com/weichenlin/grouplab-api/pkg/errors"
	"github.com/weichenlin/grouplab-api/pkg/response"
)

// PasswordGate blocks students still on their issued initial password from
// everything except the exempt routes, answering 403 with a redirect hint so
// clients can push the user to the change-password screen.
//
// The gate judges the effective identity but is skipped while a professor
// impersonates, so support sessions are never trapped behind a student's
// unchanged password.
func PasswordGate(exemptPaths ...string) gin.HandlerFunc {
	exempt := make(map[string]struct{}, len(exemptPaths))
	for _, p := range exemptPaths {
		exempt[p] = struct{}{}
	}
	return func(c *gin.Context) {
		if _, ok := exempt[c.FullPath()]; ok {
			c.Next()
			return
		}

		identity, ok := IdentityFrom(c)
		if !ok {
			c.Next()
			return
		}
		if identity.IsImpersonating {
			c.Next()
			return
		}

		user := identity.Effective
		if user.Role == models.RoleStudent && !user.HasChangedPassword {
			err := appErrors.Clone(appErrors.ErrPasswordChangeRequired, "")
			appErr := appErrors.FromError(err)
			c.JSON(appErr.Status, response.Envelope{
				Error: appErr,
				Meta:  map[string]interface{}{"redirect_to": "/auth/change-password"},
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
