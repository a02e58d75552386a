package models

import "encoding/json"

// Score is the professor's grade record for a group. It is lazily created on
// the first grading view and never deleted. IndividualAdjustments maps student
// identifiers to score adjustments; it is stored and returned but no handler
// consumes it yet.
type Score struct {
	ID                    string          `db:"id" json:"id"`
	GroupID               string          `db:"group_id" json:"group_id"`
	TeamBaseScore         float64         `db:"team_base_score" json:"team_base_score"`
	IndividualAdjustments json.RawMessage `db:"individual_adjustments" json:"individual_adjustments"`
	ProfessorNotes        string          `db:"professor_notes" json:"professor_notes"`
}
