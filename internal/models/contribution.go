package models

// Contribution is a student's self-reported share of the group's work.
// Percentages across a group are not constrained to sum to 100.
type Contribution struct {
	ID          string  `db:"id" json:"id"`
	GroupID     string  `db:"group_id" json:"group_id"`
	StudentID   string  `db:"student_id" json:"student_id"`
	Description string  `db:"description" json:"description"`
	Percentage  float64 `db:"percentage" json:"percentage"`
}
