package models

import "time"

// SuggestionType classifies a coverage recommendation.
type SuggestionType string

const (
	// SuggestionSubstitute proposes a named free teacher for the slot.
	SuggestionSubstitute SuggestionType = "SUBSTITUTE"
	// SuggestionLeisure marks the slot as an unsupervised free period
	// because no candidate was available.
	SuggestionLeisure SuggestionType = "LEISURE"
)

// CoverageTaskStatus tracks the resolution state of a coverage task.
type CoverageTaskStatus string

const (
	CoverageTaskPending  CoverageTaskStatus = "PENDING"
	CoverageTaskAssigned CoverageTaskStatus = "ASSIGNED"
)

// CoverageTask is one slot the absent teacher would have taught during an
// approved leave window. Exactly one exists per (leave request, date,
// period) the absent teacher was scheduled for.
type CoverageTask struct {
	ID                    string             `db:"id" json:"id"`
	LeaveRequestID        string             `db:"leave_request_id" json:"leave_request_id"`
	AbsentTeacherID       string             `db:"absent_teacher_id" json:"absent_teacher_id"`
	Date                  time.Time          `db:"date" json:"date"`
	DayOfWeek             DayOfWeek          `db:"day_of_week" json:"day_of_week"`
	Period                int                `db:"period" json:"period"`
	ClassID               string             `db:"class_id" json:"class_id"`
	SubjectID             *string            `db:"subject_id" json:"subject_id,omitempty"`
	Status                CoverageTaskStatus `db:"status" json:"status"`
	SuggestedSubstituteID *string            `db:"suggested_substitute_id" json:"suggested_substitute_id,omitempty"`
	SuggestedType         SuggestionType     `db:"suggested_type" json:"suggested_type"`
	CreatedAt             time.Time          `db:"created_at" json:"created_at"`
}

// CoverageTaskFilter scopes coverage task listings.
type CoverageTaskFilter struct {
	LeaveRequestID string
	Date           *time.Time
	Status         *CoverageTaskStatus
}

// Substitution is the finalized outcome of a coverage task once an
// administrator confirms who actually takes the period.
type Substitution struct {
	ID                  string    `db:"id" json:"id"`
	CoverageTaskID      string    `db:"coverage_task_id" json:"coverage_task_id"`
	LeaveRequestID      string    `db:"leave_request_id" json:"leave_request_id"`
	SubstituteTeacherID string    `db:"substitute_teacher_id" json:"substitute_teacher_id"`
	AssignedBy          string    `db:"assigned_by" json:"assigned_by"`
	AssignedAt          time.Time `db:"assigned_at" json:"assigned_at"`
}
