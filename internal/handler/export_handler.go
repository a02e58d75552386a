package handler

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/weichenlin/grouplab-api/internal/service"
	"github.com/weichenlin/grouplab-api/pkg/response"
)

// ExportHandler serves downloadable grade reports.
type ExportHandler struct {
	service *service.ExportService
}

// NewExportHandler creates a new handler.
func NewExportHandler(svc *service.ExportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// CourseGradesCSV godoc
// @Summary Export course grades as CSV
// @Description Download the grade report for one course. Professor only.
// @Tags Export
// @Produce text/csv
// @Param id path string true "Course ID"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /courses/{id}/grades/export [get]
func (h *ExportHandler) CourseGradesCSV(c *gin.Context) {
	h.serveCSV(c, c.Param("id"))
}

// AllGradesCSV godoc
// @Summary Export all grades as CSV
// @Description Download the grade report across every course. Professor only.
// @Tags Export
// @Produce text/csv
// @Success 200 {file} file
// @Router /grades/export [get]
func (h *ExportHandler) AllGradesCSV(c *gin.Context) {
	h.serveCSV(c, "")
}

// CourseGradesPDF godoc
// @Summary Export course grades as PDF
// @Description Download the grade report for one course as PDF. Professor only.
// @Tags Export
// @Produce application/pdf
// @Param id path string true "Course ID"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /courses/{id}/grades/export.pdf [get]
func (h *ExportHandler) CourseGradesPDF(c *gin.Context) {
	report, err := h.service.GradesPDF(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	serveAttachment(c, report)
}

func (h *ExportHandler) serveCSV(c *gin.Context, courseID string) {
	report, err := h.service.GradesCSV(c.Request.Context(), courseID)
	if err != nil {
		response.Error(c, err)
		return
	}
	serveAttachment(c, report)
}

func serveAttachment(c *gin.Context, report *service.GradeReport) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.Filename))
	c.Data(200, report.ContentType, report.Content)
}
