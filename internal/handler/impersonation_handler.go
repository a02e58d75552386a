package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/weichenlin/grouplab-api/internal/service"
	appErrors "github.com/weichenlin/grouplab-api/pkg/errors"
	"github.com/weichenlin/grouplab-api/pkg/response"
)

// ImpersonationHandler lets professors act as a student.
type ImpersonationHandler struct {
	service *service.ImpersonationService
}

// NewImpersonationHandler creates a new handler.
func NewImpersonationHandler(svc *service.ImpersonationService) *ImpersonationHandler {
	return &ImpersonationHandler{service: svc}
}

// Start godoc
// @Summary Start impersonation
// @Description Begin acting as the target student. Professor only, judged on the real user.
// @Tags Impersonation
// @Accept json
// @Produce json
// @Param payload body object true "Target user ID"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /impersonation [post]
func (h *ImpersonationHandler) Start(c *gin.Context) {
	identity, ok := identityFrom(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload struct {
		UserID string `json:"user_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "user id required"))
		return
	}

	target, err := h.service.Start(c.Request.Context(), identity.Actor, payload.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, gin.H{"impersonating": userInfoOf(target)}, nil)
}

// Stop godoc
// @Summary Stop impersonation
// @Description End the active impersonation and return to the real user. No-op when none is active.
// @Tags Impersonation
// @Produce json
// @Success 204 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /impersonation [delete]
func (h *ImpersonationHandler) Stop(c *gin.Context) {
	identity, ok := identityFrom(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Stop(c.Request.Context(), identity.Actor.ID); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}
