package models

import "time"

// Teacher represents one member of the teaching staff directory.
type Teacher struct {
	ID        string    `db:"id" json:"id"`
	StaffNo   *string   `db:"staff_no" json:"staff_no,omitempty"`
	Email     string    `db:"email" json:"email"`
	FullName  string    `db:"full_name" json:"full_name"`
	Phone     *string   `db:"phone" json:"phone,omitempty"`
	Subjects  *string   `db:"subjects" json:"subjects,omitempty"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// TeacherFilter captures filtering options for listing teachers.
type TeacherFilter struct {
	Search    string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// TeacherRef is the directory snapshot entry handed to the coverage planner.
type TeacherRef struct {
	ID       string `db:"id" json:"id"`
	FullName string `db:"full_name" json:"full_name"`
}
