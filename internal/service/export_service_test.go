package service

import (
	"bytes"
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weichenlin/grouplab-api/internal/models"
	appErrors "github.com/weichenlin/grouplab-api/pkg/errors"
	"github.com/weichenlin/grouplab-api/pkg/export"
)

type gradeRowListerStub struct {
	rows []models.GradeExportRow
}

func (s gradeRowListerStub) ListGradeRows(ctx context.Context, courseID string) ([]models.GradeExportRow, error) {
	return s.rows, nil
}

type exportCourseReaderStub struct {
	courses map[string]*models.Course
}

func (s exportCourseReaderStub) FindByID(ctx context.Context, id string) (*models.Course, error) {
	course, ok := s.courses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return course, nil
}

func strPtr(v string) *string     { return &v }
func floatPtr(v float64) *float64 { return &v }

func TestExportGradesCSVSentinels(t *testing.T) {
	rows := []models.GradeExportRow{
		{
			StudentID:   strPtr("B10901001"),
			FullName:    "王小明",
			GroupName:   "第一組",
			ProjectName: "智慧農場",
			TeamScore:   floatPtr(88),
			Percentage:  floatPtr(30),
			Description: strPtr("後端開發"),
		},
		{
			StudentID:   strPtr("B10901002"),
			FullName:    "李小華",
			GroupName:   "第一組",
			ProjectName: "智慧農場",
		},
	}
	svc := NewExportService(
		gradeRowListerStub{rows: rows},
		exportCourseReaderStub{courses: map[string]*models.Course{"course-1": {ID: "course-1", Name: "Capstone"}}},
		export.NewCSVExporter(),
		export.NewPDFExporter(""),
		nil,
	)

	report, err := svc.GradesCSV(context.Background(), "course-1")
	require.NoError(t, err)
	assert.Equal(t, "grades_Capstone.csv", report.Filename)

	// Spreadsheet tools need the BOM to decode the Chinese headers.
	assert.True(t, bytes.HasPrefix(report.Content, []byte{0xEF, 0xBB, 0xBF}))

	content := string(report.Content)
	assert.Contains(t, content, "學號,姓名,組別,計畫名稱,小組分數,貢獻度(%),貢獻度描述")
	assert.Contains(t, content, "88.00")
	assert.Contains(t, content, "30.00%")
	assert.Contains(t, content, "未評分")
	assert.Contains(t, content, "未填寫")

	lines := strings.Split(strings.TrimSpace(content), "\n")
	assert.Len(t, lines, 3)
}

func TestExportGradesCSVAllCourses(t *testing.T) {
	svc := NewExportService(
		gradeRowListerStub{},
		exportCourseReaderStub{courses: map[string]*models.Course{}},
		export.NewCSVExporter(),
		export.NewPDFExporter(""),
		nil,
	)

	report, err := svc.GradesCSV(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "all_grades.csv", report.Filename)
	assert.Equal(t, "text/csv; charset=utf-8", report.ContentType)
}

func TestExportGradesCSVUnknownCourse(t *testing.T) {
	svc := NewExportService(
		gradeRowListerStub{},
		exportCourseReaderStub{courses: map[string]*models.Course{}},
		export.NewCSVExporter(),
		export.NewPDFExporter(""),
		nil,
	)

	_, err := svc.GradesCSV(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

type pdfRendererStub struct {
	titles []string
}

func (s *pdfRendererStub) Render(data export.Dataset, title string) ([]byte, error) {
	s.titles = append(s.titles, title)
	return []byte("%PDF-stub"), nil
}

func TestExportGradesPDF(t *testing.T) {
	pdf := &pdfRendererStub{}
	svc := NewExportService(
		gradeRowListerStub{rows: []models.GradeExportRow{{FullName: "Alice", GroupName: "Team A", ProjectName: "Project"}}},
		exportCourseReaderStub{courses: map[string]*models.Course{"course-1": {ID: "course-1", Name: "Capstone"}}},
		export.NewCSVExporter(),
		pdf,
		nil,
	)

	report, err := svc.GradesPDF(context.Background(), "course-1")
	require.NoError(t, err)
	assert.Equal(t, "grades_Capstone.pdf", report.Filename)
	assert.Equal(t, "application/pdf", report.ContentType)
	assert.True(t, bytes.HasPrefix(report.Content, []byte("%PDF")))
	assert.Equal(t, []string{"Capstone"}, pdf.titles)
}

func TestExportGradesPDFWithoutFont(t *testing.T) {
	svc := NewExportService(
		gradeRowListerStub{},
		exportCourseReaderStub{courses: map[string]*models.Course{}},
		export.NewCSVExporter(),
		export.NewPDFExporter(""),
		nil,
	)

	// An unconfigured renderer must fail loudly, not hand out mojibake.
	_, err := svc.GradesPDF(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}
