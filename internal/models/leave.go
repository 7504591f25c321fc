package models

import "time"

// LeaveStatus tracks the review state of a leave request.
type LeaveStatus string

const (
	LeaveStatusPending  LeaveStatus = "PENDING"
	LeaveStatusApproved LeaveStatus = "APPROVED"
	LeaveStatusRejected LeaveStatus = "REJECTED"
)

// Valid returns true when the status is a supported value.
func (s LeaveStatus) Valid() bool {
	switch s {
	case LeaveStatusPending, LeaveStatusApproved, LeaveStatusRejected:
		return true
	default:
		return false
	}
}

// ReviewAction is the decision an administrator takes on a leave request.
type ReviewAction string

const (
	ReviewActionApprove ReviewAction = "APPROVED"
	ReviewActionReject  ReviewAction = "REJECTED"
	ReviewActionRevert  ReviewAction = "REVERT"
)

// Valid returns true when the action is a supported value.
func (a ReviewAction) Valid() bool {
	switch a {
	case ReviewActionApprove, ReviewActionReject, ReviewActionRevert:
		return true
	default:
		return false
	}
}

// LeaveRequest represents one teacher's requested absence. Requests are
// never hard-deleted: a revert clears derived coverage but keeps the row.
type LeaveRequest struct {
	ID                string      `db:"id" json:"id"`
	TeacherID         string      `db:"teacher_id" json:"teacher_id"`
	FromDate          time.Time   `db:"from_date" json:"from_date"`
	ToDate            time.Time   `db:"to_date" json:"to_date"`
	Reason            *string     `db:"reason" json:"reason,omitempty"`
	Status            LeaveStatus `db:"status" json:"status"`
	ReviewedBy        *string     `db:"reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt        *time.Time  `db:"reviewed_at" json:"reviewed_at,omitempty"`
	CoverageTaskCount int         `db:"coverage_task_count" json:"coverage_task_count"`
	PlannerError      *string     `db:"planner_error" json:"planner_error,omitempty"`
	CreatedAt         time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time   `db:"updated_at" json:"updated_at"`
}

// LeaveFilter scopes leave request listings.
type LeaveFilter struct {
	TeacherID string
	Status    *LeaveStatus
	DateFrom  *time.Time
	DateTo    *time.Time
	Page      int
	PageSize  int
}
