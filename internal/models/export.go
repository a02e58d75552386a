package models

// GradeExportRow is one membership flattened for the grades report. Nullable
// fields become sentinel strings at render time.
type GradeExportRow struct {
	StudentID   *string  `db:"student_id"`
	FullName    string   `db:"full_name"`
	GroupName   string   `db:"group_name"`
	ProjectName string   `db:"project_name"`
	TeamScore   *float64 `db:"team_score"`
	Percentage  *float64 `db:"percentage"`
	Description *string  `db:"description"`
}
