package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spoorthyconceptschool/spoorthy-school-system-sub002/internal/models"
	"github.com/spoorthyconceptschool/spoorthy-school-system-sub002/internal/planner"
	"github.com/spoorthyconceptschool/spoorthy-school-system-sub002/internal/repository"
	appErrors "github.com/spoorthyconceptschool/spoorthy-school-system-sub002/pkg/errors"
	"github.com/spoorthyconceptschool/spoorthy-school-system-sub002/pkg/jobs"
)

// JobTypeAttendanceSync tags attendance sync jobs on the background queue.
const JobTypeAttendanceSync = "attendance.sync"

// AttendanceSyncPayload asks the background worker to mark one teacher
// absent on one already-finalized attendance sheet.
type AttendanceSyncPayload struct {
	TeacherID string
	Date      time.Time
}

type leaveRepository interface {
	Create(ctx context.Context, leave *models.LeaveRequest) error
	FindByID(ctx context.Context, id string) (*models.LeaveRequest, error)
	List(ctx context.Context, filter models.LeaveFilter) ([]models.LeaveRequest, int, error)
	ListApprovedOverlapping(ctx context.Context, from, to time.Time, excludeID string) ([]models.LeaveRequest, error)
	ApproveWithCoverage(ctx context.Context, leave *models.LeaveRequest, tasks []models.CoverageTask, notifications []models.Notification) error
	Reject(ctx context.Context, leave *models.LeaveRequest, notifications []models.Notification) error
	RevertApproval(ctx context.Context, leaveID, reviewedBy string) error
}

type leaveTeacherDirectory interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	ListActiveOrdered(ctx context.Context) ([]models.TeacherRef, error)
}

type leaveScheduleSource interface {
	ListByYear(ctx context.Context, yearID string) ([]models.WeeklyScheduleSlot, error)
}

type leaveAssignmentSource interface {
	ListByYear(ctx context.Context, yearID string) ([]models.TeachingAssignment, error)
}

// syncDispatcher decouples the service from the concrete jobs queue.
type syncDispatcher interface {
	Enqueue(job jobs.Job) error
}

// SubmitLeaveRequest represents payload for submitting a leave request.
type SubmitLeaveRequest struct {
	TeacherID string  `json:"teacher_id" validate:"required"`
	FromDate  string  `json:"from_date" validate:"required"`
	ToDate    string  `json:"to_date" validate:"required"`
	Reason    *string `json:"reason" validate:"omitempty,max=500"`
}

// ReviewLeaveRequest represents payload for reviewing a leave request.
type ReviewLeaveRequest struct {
	Action models.ReviewAction `json:"action" validate:"required"`
	YearID string              `json:"year_id" validate:"omitempty,max=20"`
}

// ReviewResult is the caller-visible outcome of a review decision.
type ReviewResult struct {
	Success           bool   `json:"success"`
	Message           string `json:"message"`
	CoverageTaskCount int    `json:"coverage_task_count"`
	// Degraded marks an approval whose coverage planning failed.
	Degraded bool `json:"degraded,omitempty"`
}

// LeaveService orchestrates the leave request lifecycle, including coverage
// planning on approval.
type LeaveService struct {
	leaves        leaveRepository
	teachers      leaveTeacherDirectory
	schedules     leaveScheduleSource
	assignments   leaveAssignmentSource
	syncQueue     syncDispatcher
	defaultYearID string
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewLeaveService constructs a LeaveService. The sync queue may be nil, in
// which case approvals skip the attendance sync entirely.
func NewLeaveService(leaves leaveRepository, teachers leaveTeacherDirectory, schedules leaveScheduleSource, assignments leaveAssignmentSource, syncQueue syncDispatcher, defaultYearID string, validate *validator.Validate, logger *zap.Logger) *LeaveService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeaveService{
		leaves:        leaves,
		teachers:      teachers,
		schedules:     schedules,
		assignments:   assignments,
		syncQueue:     syncQueue,
		defaultYearID: defaultYearID,
		validator:     validate,
		logger:        logger,
	}
}

// Submit records a new pending leave request.
func (s *LeaveService) Submit(ctx context.Context, req SubmitLeaveRequest) (*models.LeaveRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid leave payload")
	}

	from, err := time.Parse(planner.DateLayout, req.FromDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "from_date must be formatted as YYYY-MM-DD")
	}
	to, err := time.Parse(planner.DateLayout, req.ToDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "to_date must be formatted as YYYY-MM-DD")
	}
	if to.Before(from) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "to_date must not precede from_date")
	}

	teacher, err := s.teachers.FindByID(ctx, req.TeacherID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	if !teacher.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teacher is inactive")
	}

	leave := &models.LeaveRequest{
		TeacherID: req.TeacherID,
		FromDate:  from,
		ToDate:    to,
		Reason:    normalizeOptional(req.Reason),
		Status:    models.LeaveStatusPending,
	}
	if err := s.leaves.Create(ctx, leave); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create leave request")
	}
	return leave, nil
}

// List returns leave requests plus pagination data.
func (s *LeaveService) List(ctx context.Context, filter models.LeaveFilter) ([]models.LeaveRequest, *models.Pagination, error) {
	leaves, total, err := s.leaves.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list leave requests")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return leaves, pagination, nil
}

// Get returns a leave request by id.
func (s *LeaveService) Get(ctx context.Context, id string) (*models.LeaveRequest, error) {
	leave, err := s.leaves.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "leave request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load leave request")
	}
	return leave, nil
}

// Review applies an administrator decision to a leave request. Approval
// plans substitute coverage and commits it together with the status flip;
// planner failures degrade the response but never block the approval.
func (s *LeaveService) Review(ctx context.Context, leaveID, reviewerID string, req ReviewLeaveRequest) (*ReviewResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}
	if !req.Action.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "action must be APPROVED, REJECTED or REVERT")
	}

	leave, err := s.leaves.FindByID(ctx, leaveID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "leave request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load leave request")
	}

	switch req.Action {
	case models.ReviewActionRevert:
		return s.revert(ctx, leave, reviewerID)
	case models.ReviewActionReject:
		return s.reject(ctx, leave, reviewerID)
	default:
		return s.approve(ctx, leave, reviewerID, req.YearID)
	}
}

func (s *LeaveService) approve(ctx context.Context, leave *models.LeaveRequest, reviewerID, yearID string) (*ReviewResult, error) {
	teacher, err := s.teachers.FindByID(ctx, leave.TeacherID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher profile not found for leave request")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}

	if yearID == "" {
		yearID = s.defaultYearID
	}

	tasks, hadSchedule, diag := s.planCoverage(ctx, leave, yearID)
	message := approvalMessage(len(tasks), hadSchedule, diag)

	leave.ReviewedBy = &reviewerID
	leave.PlannerError = diag

	notifications := approvalNotifications(leave, teacher, len(tasks))
	if err := s.leaves.ApproveWithCoverage(ctx, leave, tasks, notifications); err != nil {
		if err == repository.ErrLeaveNotPending {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "leave request is not pending")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve leave request")
	}

	s.dispatchAttendanceSync(leave)

	return &ReviewResult{Success: true, Message: message, CoverageTaskCount: len(tasks), Degraded: diag != nil}, nil
}

func (s *LeaveService) reject(ctx context.Context, leave *models.LeaveRequest, reviewerID string) (*ReviewResult, error) {
	leave.ReviewedBy = &reviewerID
	recipient := leave.TeacherID
	notifications := []models.Notification{{
		RecipientID: &recipient,
		Title:       "Leave request rejected",
		Body:        fmt.Sprintf("Your leave request for %s to %s was rejected.", leave.FromDate.Format(planner.DateLayout), leave.ToDate.Format(planner.DateLayout)),
		Severity:    models.NotificationSeverityInfo,
	}}
	if err := s.leaves.Reject(ctx, leave, notifications); err != nil {
		if err == repository.ErrLeaveNotPending {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "leave request is not pending")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject leave request")
	}
	return &ReviewResult{Success: true, Message: "Leave request rejected"}, nil
}

func (s *LeaveService) revert(ctx context.Context, leave *models.LeaveRequest, reviewerID string) (*ReviewResult, error) {
	if err := s.leaves.RevertApproval(ctx, leave.ID, reviewerID); err != nil {
		if err == repository.ErrLeaveNotApproved {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "leave request is not approved")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to revert leave approval")
	}
	return &ReviewResult{Success: true, Message: "Approval reverted; leave request returned to pending"}, nil
}

// planCoverage loads the planning snapshot and runs the planner. Any
// failure here, including a panic inside the planner, degrades into a nil
// task list with a diagnostic so the approval itself still proceeds.
func (s *LeaveService) planCoverage(ctx context.Context, leave *models.LeaveRequest, yearID string) (tasks []models.CoverageTask, hadSchedule bool, diag *string) {
	defer func() {
		if r := recover(); r != nil {
			tasks = nil
			msg := fmt.Sprintf("coverage planner panicked: %v", r)
			diag = &msg
			s.logger.Sugar().Errorw("coverage planning failed",
				"leave_request_id", leave.ID, "teacher_id", leave.TeacherID, "panic", r)
		}
	}()

	slots, err := s.schedules.ListByYear(ctx, yearID)
	if err != nil {
		return nil, false, planDiagnostic(s.logger, leave, "load schedules", err)
	}
	assignments, err := s.assignments.ListByYear(ctx, yearID)
	if err != nil {
		return nil, false, planDiagnostic(s.logger, leave, "load assignments", err)
	}
	directory, err := s.teachers.ListActiveOrdered(ctx)
	if err != nil {
		return nil, false, planDiagnostic(s.logger, leave, "load directory", err)
	}
	overlapping, err := s.leaves.ListApprovedOverlapping(ctx, leave.FromDate, leave.ToDate, leave.ID)
	if err != nil {
		return nil, false, planDiagnostic(s.logger, leave, "load overlapping leaves", err)
	}

	snap := planner.Snapshot{
		Directory:   directory,
		Schedules:   planner.BuildWeekSchedules(slots),
		Assignments: planner.BuildAssignmentIndex(assignments),
		OnLeave:     planner.BuildLeaveIndex(overlapping, leave.FromDate, leave.ToDate),
	}
	hadSchedule = len(snap.Schedules[leave.TeacherID]) > 0

	tasks = planner.Plan(snap, planner.Request{
		LeaveRequestID: leave.ID,
		TeacherID:      leave.TeacherID,
		FromDate:       leave.FromDate,
		ToDate:         leave.ToDate,
	})
	return tasks, hadSchedule, nil
}

// dispatchAttendanceSync enqueues one sync job per calendar date of the
// approved window. Failures are logged and forgotten: attendance sheets
// are advisory relative to the approved leave itself.
func (s *LeaveService) dispatchAttendanceSync(leave *models.LeaveRequest) {
	if s.syncQueue == nil {
		return
	}
	from := leave.FromDate
	for date := from; !date.After(leave.ToDate); date = date.AddDate(0, 0, 1) {
		job := jobs.Job{
			ID:   uuid.NewString(),
			Type: JobTypeAttendanceSync,
			Payload: AttendanceSyncPayload{
				TeacherID: leave.TeacherID,
				Date:      date,
			},
		}
		if err := s.syncQueue.Enqueue(job); err != nil {
			s.logger.Sugar().Warnw("failed to enqueue attendance sync",
				"leave_request_id", leave.ID, "teacher_id", leave.TeacherID,
				"date", date.Format(planner.DateLayout), "error", err)
		}
	}
}

func planDiagnostic(logger *zap.Logger, leave *models.LeaveRequest, stage string, err error) *string {
	logger.Sugar().Errorw("coverage planning failed",
		"leave_request_id", leave.ID, "teacher_id", leave.TeacherID, "stage", stage, "error", err)
	msg := fmt.Sprintf("%s: %v", stage, err)
	return &msg
}

func approvalMessage(taskCount int, hadSchedule bool, diag *string) string {
	switch {
	case diag != nil:
		return "Leave approved; coverage planning failed and needs manual scheduling"
	case !hadSchedule:
		return "Leave approved; no schedule found for the teacher, no coverage needed"
	default:
		return fmt.Sprintf("Leave approved; %d coverage slots proposed for review", taskCount)
	}
}

func approvalNotifications(leave *models.LeaveRequest, teacher *models.Teacher, taskCount int) []models.Notification {
	recipient := leave.TeacherID
	adminRole := models.RoleAdmin
	window := fmt.Sprintf("%s to %s", leave.FromDate.Format(planner.DateLayout), leave.ToDate.Format(planner.DateLayout))
	return []models.Notification{
		{
			RecipientID: &recipient,
			Title:       "Leave request approved",
			Body:        fmt.Sprintf("Your leave request for %s was approved.", window),
			Severity:    models.NotificationSeverityInfo,
		},
		{
			RecipientRole: &adminRole,
			Title:         "Coverage proposed",
			Body:          fmt.Sprintf("%s is on leave %s; %d coverage slots proposed for review.", teacher.FullName, window, taskCount),
			Severity:      models.NotificationSeverityWarning,
		},
	}
}
