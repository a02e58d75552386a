package models

import "time"

// Course represents one offering of the project course.
type Course struct {
	ID               string    `db:"id" json:"id"`
	Name             string    `db:"name" json:"name"`
	Year             int       `db:"year" json:"year"`
	Semester         string    `db:"semester" json:"semester"`
	GroupDeadline    time.Time `db:"group_deadline" json:"group_deadline"`
	ProposalDeadline time.Time `db:"proposal_deadline" json:"proposal_deadline"`
	FinalDeadline    time.Time `db:"final_deadline" json:"final_deadline"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// RosterStudent is an enrolled student as listed on a course roster.
type RosterStudent struct {
	UserID    string  `db:"user_id" json:"user_id"`
	Username  string  `db:"username" json:"username"`
	FullName  string  `db:"full_name" json:"full_name"`
	StudentID *string `db:"student_id" json:"student_id,omitempty"`
}

// CourseDetail combines a course with its groups and the enrolled students not
// yet assigned to any group of the course.
type CourseDetail struct {
	Course             Course          `json:"course"`
	Groups             []GroupDetail   `json:"groups"`
	UnassignedStudents []RosterStudent `json:"unassigned_students"`
}

// CourseFilter provides filters for listing courses.
type CourseFilter struct {
	Year     int
	Semester string
	Page     int
	PageSize int
}
