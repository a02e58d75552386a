package models

import "time"

// Group is a student-formed project group scoped to one course.
type Group struct {
	ID                 string    `db:"id" json:"id"`
	CourseID           string    `db:"course_id" json:"course_id"`
	LeaderID           string    `db:"leader_id" json:"leader_id"`
	Name               string    `db:"name" json:"name"`
	ProjectName        string    `db:"project_name" json:"project_name"`
	ProjectDescription string    `db:"project_description" json:"project_description"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
}

// Membership joins a user to a group. The group leader always holds a
// confirmed membership; invited members start unconfirmed and may only
// transition to confirmed.
type Membership struct {
	ID          string    `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"user_id"`
	GroupID     string    `db:"group_id" json:"group_id"`
	IsConfirmed bool      `db:"is_confirmed" json:"is_confirmed"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// MembershipDetail enriches Membership with user, group and course context.
type MembershipDetail struct {
	Membership
	UserName    string  `db:"user_name" json:"user_name"`
	StudentID   *string `db:"student_id" json:"student_id,omitempty"`
	GroupName   string  `db:"group_name" json:"group_name"`
	ProjectName string  `db:"project_name" json:"project_name"`
	CourseID    string  `db:"course_id" json:"course_id"`
	CourseName  string  `db:"course_name" json:"course_name"`
}

// GroupDetail combines a group with its leader name and member list.
type GroupDetail struct {
	Group
	LeaderName string             `db:"leader_name" json:"leader_name"`
	Members    []MembershipDetail `json:"members"`
}
