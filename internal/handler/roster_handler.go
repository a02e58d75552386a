package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/weichenlin/grouplab-api/internal/service"
	appErrors "github.com/weichenlin/grouplab-api/pkg/errors"
	"github.com/weichenlin/grouplab-api/pkg/response"
)

// RosterHandler exposes the CSV roster import endpoints.
type RosterHandler struct {
	service *service.RosterImportService
	metrics *service.MetricsService
}

// NewRosterHandler creates a new handler.
func NewRosterHandler(svc *service.RosterImportService, metrics *service.MetricsService) *RosterHandler {
	return &RosterHandler{service: svc, metrics: metrics}
}

// ImportForCourse godoc
// @Summary Import roster into course
// @Description Upload a CSV roster. Rows are upserted as student accounts and enrolled on the course. Professor only.
// @Tags Roster
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Course ID"
// @Param file formData file true "CSV file"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /courses/{id}/roster/import [post]
func (h *RosterHandler) ImportForCourse(c *gin.Context) {
	h.runImport(c, c.Param("id"))
}

// Import godoc
// @Summary Import roster
// @Description Upload a CSV roster. Rows are upserted as student accounts without course enrollment. Professor only.
// @Tags Roster
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "CSV file"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /roster/import [post]
func (h *RosterHandler) Import(c *gin.Context) {
	h.runImport(c, "")
}

func (h *RosterHandler) runImport(c *gin.Context, courseID string) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "csv file required"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "failed to open uploaded file"))
		return
	}
	defer file.Close()

	result, err := h.service.Import(c.Request.Context(), courseID, file)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.metrics.AddImportedRows(result.Imported)
	response.JSON(c, http.StatusOK, result, nil)
}
