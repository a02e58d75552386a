package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/weichenlin/grouplab-api/internal/models"
	"github.com/weichenlin/grouplab-api/internal/service"
	appErrors "github.com/weichenlin/grouplab-api/pkg/errors"
	"github.com/weichenlin/grouplab-api/pkg/response"
)

// GradingHandler exposes submissions, contribution declarations and scoring.
type GradingHandler struct {
	service *service.GradingService
	metrics *service.MetricsService
}

// NewGradingHandler creates a new handler.
func NewGradingHandler(svc *service.GradingService, metrics *service.MetricsService) *GradingHandler {
	return &GradingHandler{service: svc, metrics: metrics}
}

// UploadSubmission godoc
// @Summary Upload submission
// @Description Upload a deliverable file for the group. Each upload becomes a new version. Member only.
// @Tags Grading
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Group ID"
// @Param type formData string true "Submission type" Enums(proposal_draft, final_report)
// @Param file formData file true "Deliverable file"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /groups/{id}/submissions [post]
func (h *GradingHandler) UploadSubmission(c *gin.Context) {
	user, ok := effectiveUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	submissionType := models.SubmissionType(c.PostForm("type"))
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "file required"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "failed to open uploaded file"))
		return
	}
	defer file.Close()

	submission, err := h.service.UploadSubmission(c.Request.Context(), user.ID, c.Param("id"), service.UploadSubmissionRequest{
		Type:     submissionType,
		Filename: fileHeader.Filename,
		Size:     fileHeader.Size,
		File:     file,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	h.metrics.AddUploadBytes(fileHeader.Size)
	response.Created(c, submission)
}

// ListSubmissions godoc
// @Summary List submissions
// @Description List the group's submissions, newest version first
// @Tags Grading
// @Produce json
// @Param id path string true "Group ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /groups/{id}/submissions [get]
func (h *GradingHandler) ListSubmissions(c *gin.Context) {
	user, ok := effectiveUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	submissions, err := h.service.ListSubmissions(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, submissions, nil)
}

// DownloadSubmission godoc
// @Summary Download submission
// @Description Stream a stored deliverable. Members of the owning group and professors only.
// @Tags Grading
// @Produce application/octet-stream
// @Param id path string true "Submission ID"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /submissions/{id}/download [get]
func (h *GradingHandler) DownloadSubmission(c *gin.Context) {
	user, ok := effectiveUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	download, err := h.service.DownloadSubmission(c.Request.Context(), user, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.Content.Close()

	c.DataFromReader(http.StatusOK, download.Size, "application/octet-stream", download.Content, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", download.Submission.OriginalFilename),
	})
}

// DeclareContribution godoc
// @Summary Declare contribution
// @Description Record the caller's own contribution for their group. Re-declaring replaces the previous values.
// @Tags Grading
// @Accept json
// @Produce json
// @Param id path string true "Group ID"
// @Param payload body service.DeclareContributionRequest true "Contribution payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /groups/{id}/contributions [post]
func (h *GradingHandler) DeclareContribution(c *gin.Context) {
	user, ok := effectiveUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.DeclareContributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid contribution payload"))
		return
	}

	contribution, err := h.service.DeclareContribution(c.Request.Context(), user.ID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, contribution, nil)
}

// Grading godoc
// @Summary Grading view
// @Description Return the group with score, submissions and contributions. Professor only.
// @Tags Grading
// @Produce json
// @Param id path string true "Group ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /groups/{id}/grading [get]
func (h *GradingHandler) Grading(c *gin.Context) {
	view, err := h.service.Grading(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, view, nil)
}

// UpdateScore godoc
// @Summary Update score
// @Description Rewrite the group's base score and notes. Professor only.
// @Tags Grading
// @Accept json
// @Produce json
// @Param id path string true "Group ID"
// @Param payload body service.UpdateScoreRequest true "Score payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /groups/{id}/score [put]
func (h *GradingHandler) UpdateScore(c *gin.Context) {
	var req service.UpdateScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid score payload"))
		return
	}

	score, err := h.service.UpdateScore(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, score, nil)
}
