package models

import "time"

// TeacherAttendanceStatus represents the state recorded on the daily
// teacher attendance sheet.
type TeacherAttendanceStatus string

const (
	TeacherAttendancePresent TeacherAttendanceStatus = "P"
	TeacherAttendanceAbsent  TeacherAttendanceStatus = "A"
	TeacherAttendanceHalfDay TeacherAttendanceStatus = "HD"
	TeacherAttendanceLeave   TeacherAttendanceStatus = "L"
)

// Valid returns true when the status is a supported value.
func (s TeacherAttendanceStatus) Valid() bool {
	switch s {
	case TeacherAttendancePresent, TeacherAttendanceAbsent, TeacherAttendanceHalfDay, TeacherAttendanceLeave:
		return true
	default:
		return false
	}
}

// TeacherAttendance is one teacher's entry on the daily sheet. Once the
// sheet for a date is finalized, entries only change through the planner's
// best-effort absence sync or an explicit admin correction.
type TeacherAttendance struct {
	ID        string                  `db:"id" json:"id"`
	TeacherID string                  `db:"teacher_id" json:"teacher_id"`
	Date      time.Time               `db:"date" json:"date"`
	Status    TeacherAttendanceStatus `db:"status" json:"status"`
	Notes     *string                 `db:"notes" json:"notes,omitempty"`
	Finalized bool                    `db:"finalized" json:"finalized"`
	MarkedBy  *string                 `db:"marked_by" json:"marked_by,omitempty"`
	CreatedAt time.Time               `db:"created_at" json:"created_at"`
	UpdatedAt time.Time               `db:"updated_at" json:"updated_at"`
}

// TeacherAttendanceEntry is one row of a bulk sheet upsert.
type TeacherAttendanceEntry struct {
	TeacherID string                  `json:"teacher_id" validate:"required"`
	Status    TeacherAttendanceStatus `json:"status" validate:"required"`
	Notes     *string                 `json:"notes,omitempty"`
}

// TeacherAttendanceSummary aggregates one date's sheet.
type TeacherAttendanceSummary struct {
	Present int `json:"present"`
	Absent  int `json:"absent"`
	HalfDay int `json:"half_day"`
	Leave   int `json:"leave"`
	Total   int `json:"total"`
}
