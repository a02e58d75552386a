package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/weichenlin/grouplab-api/internal/models"
	appErrors "github.com/weichenlin/grouplab-api/pkg/errors"
	"github.com/weichenlin/grouplab-api/pkg/export"
)

// Sentinel cell values used when a group is ungraded or a student has not
// filled a contribution. They are what the receiving spreadsheets expect.
const (
	sentinelUngraded  = "未評分"
	sentinelNotFilled = "未填寫"
)

var gradeReportHeaders = []string{"學號", "姓名", "組別", "計畫名稱", "小組分數", "貢獻度(%)", "貢獻度描述"}

type gradeRowLister interface {
	ListGradeRows(ctx context.Context, courseID string) ([]models.GradeExportRow, error)
}

type exportCourseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// GradeReport is a rendered downloadable report.
type GradeReport struct {
	Filename    string
	ContentType string
	Content     []byte
}

// ExportService flattens membership and grading data into downloadable
// reports.
type ExportService struct {
	rows    gradeRowLister
	courses exportCourseReader
	csv     csvRenderer
	pdf     pdfRenderer
	logger  *zap.Logger
}

// NewExportService constructs ExportService.
func NewExportService(rows gradeRowLister, courses exportCourseReader, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{rows: rows, courses: courses, csv: csv, pdf: pdf, logger: logger}
}

// GradesCSV renders the membership-per-row grade report as UTF-8 CSV with a
// byte-order mark, optionally filtered to one course.
func (s *ExportService) GradesCSV(ctx context.Context, courseID string) (*GradeReport, error) {
	dataset, courseName, err := s.buildDataset(ctx, courseID)
	if err != nil {
		return nil, err
	}
	content, err := s.csv.Render(*dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}
	filename := "all_grades.csv"
	if courseName != "" {
		filename = fmt.Sprintf("grades_%s.csv", courseName)
	}
	return &GradeReport{Filename: filename, ContentType: "text/csv; charset=utf-8", Content: content}, nil
}

// GradesPDF renders the same dataset as a tabular PDF.
func (s *ExportService) GradesPDF(ctx context.Context, courseID string) (*GradeReport, error) {
	dataset, courseName, err := s.buildDataset(ctx, courseID)
	if err != nil {
		return nil, err
	}
	title := "All grades"
	filename := "all_grades.pdf"
	if courseName != "" {
		title = courseName
		filename = fmt.Sprintf("grades_%s.pdf", courseName)
	}
	content, err := s.pdf.Render(*dataset, title)
	if err != nil {
		if errors.Is(err, export.ErrNoFont) {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "pdf export is not configured; set EXPORT_PDF_FONT to a unicode font file")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
	}
	return &GradeReport{Filename: filename, ContentType: "application/pdf", Content: content}, nil
}

func (s *ExportService) buildDataset(ctx context.Context, courseID string) (*export.Dataset, string, error) {
	courseName := ""
	if courseID != "" {
		course, err := s.courses.FindByID(ctx, courseID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, "", appErrors.Clone(appErrors.ErrNotFound, "course not found")
			}
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
		}
		courseName = course.Name
	}

	rows, err := s.rows.ListGradeRows(ctx, courseID)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to collect grade rows")
	}

	dataset := &export.Dataset{Headers: gradeReportHeaders, Rows: make([]map[string]string, 0, len(rows))}
	for _, row := range rows {
		studentID := ""
		if row.StudentID != nil {
			studentID = *row.StudentID
		}
		teamScore := sentinelUngraded
		if row.TeamScore != nil {
			teamScore = fmt.Sprintf("%.2f", *row.TeamScore)
		}
		percentage := sentinelNotFilled
		if row.Percentage != nil {
			percentage = fmt.Sprintf("%.2f%%", *row.Percentage)
		}
		description := ""
		if row.Description != nil {
			description = *row.Description
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"學號":     studentID,
			"姓名":     row.FullName,
			"組別":     row.GroupName,
			"計畫名稱":   row.ProjectName,
			"小組分數":   teamScore,
			"貢獻度(%)": percentage,
			"貢獻度描述":  description,
		})
	}
	return dataset, courseName, nil
}
