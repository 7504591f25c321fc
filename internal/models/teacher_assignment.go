package models

import "time"

// TeachingAssignment names the teacher responsible for a subject in a class
// for one academic year. The coverage planner uses it to find the
// subject-qualified substitute for a vacated period.
type TeachingAssignment struct {
	ID        string    `db:"id" json:"id"`
	ClassID   string    `db:"class_id" json:"class_id"`
	SubjectID string    `db:"subject_id" json:"subject_id"`
	TeacherID string    `db:"teacher_id" json:"teacher_id"`
	YearID    string    `db:"year_id" json:"year_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// TeachingAssignmentDetail enriches assignments with the teacher name.
type TeachingAssignmentDetail struct {
	TeachingAssignment
	TeacherName *string `db:"teacher_name" json:"teacher_name,omitempty"`
}
