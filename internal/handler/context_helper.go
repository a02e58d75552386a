package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/weichenlin/grouplab-api/internal/middleware"
	"github.com/weichenlin/grouplab-api/internal/models"
)

// identityFrom pulls the resolved identity set by the auth middleware.
func identityFrom(c *gin.Context) (*models.Identity, bool) {
	return middleware.IdentityFrom(c)
}

// effectiveUser returns the user the request acts as.
func effectiveUser(c *gin.Context) (*models.User, bool) {
	identity, ok := identityFrom(c)
	if !ok {
		return nil, false
	}
	return identity.Effective, true
}
