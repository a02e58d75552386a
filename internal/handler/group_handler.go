package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/weichenlin/grouplab-api/internal/service"
	appErrors "github.com/weichenlin/grouplab-api/pkg/errors"
	"github.com/weichenlin/grouplab-api/pkg/response"
)

// GroupHandler exposes group lifecycle endpoints.
type GroupHandler struct {
	service *service.GroupService
}

// NewGroupHandler creates a new handler.
func NewGroupHandler(svc *service.GroupService) *GroupHandler {
	return &GroupHandler{service: svc}
}

// Create godoc
// @Summary Create group
// @Description Create a group in a course with the caller as leader
// @Tags Groups
// @Accept json
// @Produce json
// @Param id path string true "Course ID"
// @Param payload body service.CreateGroupRequest true "Group payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /courses/{id}/groups [post]
func (h *GroupHandler) Create(c *gin.Context) {
	user, ok := effectiveUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid group payload"))
		return
	}

	detail, err := h.service.Create(c.Request.Context(), user.ID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, detail)
}

// Update godoc
// @Summary Update group
// @Description Rewrite group fields and replace the invited member list. Leader only.
// @Tags Groups
// @Accept json
// @Produce json
// @Param id path string true "Group ID"
// @Param payload body service.UpdateGroupRequest true "Group payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /groups/{id} [put]
func (h *GroupHandler) Update(c *gin.Context) {
	user, ok := effectiveUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.UpdateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid group payload"))
		return
	}

	detail, err := h.service.Update(c.Request.Context(), user.ID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, detail, nil)
}

// Detail godoc
// @Summary Group detail
// @Description Return the group with leader and member list
// @Tags Groups
// @Produce json
// @Param id path string true "Group ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /groups/{id} [get]
func (h *GroupHandler) Detail(c *gin.Context) {
	user, ok := effectiveUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	detail, err := h.service.Detail(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, detail, nil)
}

// Confirm godoc
// @Summary Confirm membership
// @Description Confirm the caller's own pending membership
// @Tags Groups
// @Produce json
// @Param id path string true "Membership ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /memberships/{id}/confirm [post]
func (h *GroupHandler) Confirm(c *gin.Context) {
	user, ok := effectiveUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	membership, err := h.service.Confirm(c.Request.Context(), user.ID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, membership, nil)
}

// MyMemberships godoc
// @Summary List own memberships
// @Description Return the caller's memberships across courses with group context
// @Tags Groups
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /me/memberships [get]
func (h *GroupHandler) MyMemberships(c *gin.Context) {
	user, ok := effectiveUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	memberships, err := h.service.MembershipsForUser(c.Request.Context(), user.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, memberships, nil)
}
