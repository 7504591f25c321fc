package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/spoorthyconceptschool/spoorthy-school-system-sub002/internal/models"
)

// Review writes guard on the current status inside the transaction, so two
// concurrent decisions on the same request cannot both land. The loser sees
// one of these sentinels.
var (
	ErrLeaveNotPending  = errors.New("leave request is not pending")
	ErrLeaveNotApproved = errors.New("leave request is not approved")
)

// revertChunkSize bounds the id list of a single IN delete during revert.
const revertChunkSize = 10

// LeaveRepository persists leave requests and their derived coverage state.
type LeaveRepository struct {
	db *sqlx.DB
}

// NewLeaveRepository constructs a LeaveRepository.
func NewLeaveRepository(db *sqlx.DB) *LeaveRepository {
	return &LeaveRepository{db: db}
}

const leaveColumns = "id, teacher_id, from_date, to_date, reason, status, reviewed_by, reviewed_at, coverage_task_count, planner_error, created_at, updated_at"

// Create inserts a new pending leave request.
func (r *LeaveRepository) Create(ctx context.Context, leave *models.LeaveRequest) error {
	if leave.ID == "" {
		leave.ID = uuid.NewString()
	}
	if leave.Status == "" {
		leave.Status = models.LeaveStatusPending
	}
	now := time.Now().UTC()
	if leave.CreatedAt.IsZero() {
		leave.CreatedAt = now
	}
	leave.UpdatedAt = now
	const query = `INSERT INTO leave_requests (id, teacher_id, from_date, to_date, reason, status, reviewed_by, reviewed_at, coverage_task_count, planner_error, created_at, updated_at)
		VALUES (:id, :teacher_id, :from_date, :to_date, :reason, :status, :reviewed_by, :reviewed_at, :coverage_task_count, :planner_error, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, leave); err != nil {
		return fmt.Errorf("create leave request: %w", err)
	}
	return nil
}

// FindByID fetches one leave request.
func (r *LeaveRepository) FindByID(ctx context.Context, id string) (*models.LeaveRequest, error) {
	query := fmt.Sprintf("SELECT %s FROM leave_requests WHERE id = $1", leaveColumns)
	var leave models.LeaveRequest
	if err := r.db.GetContext(ctx, &leave, query, id); err != nil {
		return nil, err
	}
	return &leave, nil
}

// List returns leave requests matching the filter with total count.
func (r *LeaveRepository) List(ctx context.Context, filter models.LeaveFilter) ([]models.LeaveRequest, int, error) {
	base := "FROM leave_requests WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("to_date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("from_date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", leaveColumns, base, size, offset)
	var leaves []models.LeaveRequest
	if err := r.db.SelectContext(ctx, &leaves, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list leave requests: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count leave requests: %w", err)
	}
	return leaves, total, nil
}

// ListApprovedOverlapping returns other teachers' approved leaves that touch
// the [from, to] window, excluding the request being planned.
func (r *LeaveRepository) ListApprovedOverlapping(ctx context.Context, from, to time.Time, excludeID string) ([]models.LeaveRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM leave_requests
WHERE status = $1 AND id <> $2 AND from_date <= $3 AND to_date >= $4
ORDER BY created_at`, leaveColumns)
	var leaves []models.LeaveRequest
	if err := r.db.SelectContext(ctx, &leaves, query, models.LeaveStatusApproved, excludeID, to, from); err != nil {
		return nil, fmt.Errorf("list overlapping leaves: %w", err)
	}
	return leaves, nil
}

// ApproveWithCoverage commits the approval decision atomically: the status
// flip, every coverage task and the notifications land in one transaction,
// so a reader never observes a partially generated coverage set. The status
// guard makes concurrent approvals of the same request deterministic: the
// second caller gets ErrLeaveNotPending and nothing is written.
func (r *LeaveRepository) ApproveWithCoverage(ctx context.Context, leave *models.LeaveRequest, tasks []models.CoverageTask, notifications []models.Notification) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin approval: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx, `UPDATE leave_requests
SET status = $2, reviewed_by = $3, reviewed_at = $4, coverage_task_count = $5, planner_error = $6, updated_at = $4
WHERE id = $1 AND status = $7`,
		leave.ID, models.LeaveStatusApproved, leave.ReviewedBy, now, len(tasks), leave.PlannerError, models.LeaveStatusPending)
	if err != nil {
		return fmt.Errorf("approve leave request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("approve leave result: %w", err)
	}
	if affected == 0 {
		return ErrLeaveNotPending
	}

	const taskInsert = `INSERT INTO coverage_tasks (id, leave_request_id, absent_teacher_id, date, day_of_week, period, class_id, subject_id, status, suggested_substitute_id, suggested_type, created_at)
		VALUES (:id, :leave_request_id, :absent_teacher_id, :date, :day_of_week, :period, :class_id, :subject_id, :status, :suggested_substitute_id, :suggested_type, :created_at)`
	for i := range tasks {
		task := &tasks[i]
		if task.ID == "" {
			task.ID = uuid.NewString()
		}
		if task.CreatedAt.IsZero() {
			task.CreatedAt = now
		}
		if _, err := tx.NamedExecContext(ctx, taskInsert, task); err != nil {
			return fmt.Errorf("insert coverage task: %w", err)
		}
	}

	if err := insertNotificationsTx(ctx, tx, notifications, now); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit approval: %w", err)
	}
	commit = true

	leave.Status = models.LeaveStatusApproved
	leave.ReviewedAt = &now
	leave.CoverageTaskCount = len(tasks)
	leave.UpdatedAt = now
	return nil
}

// Reject flips a pending request to rejected and records the decision,
// delivering the teacher's notification in the same transaction.
func (r *LeaveRepository) Reject(ctx context.Context, leave *models.LeaveRequest, notifications []models.Notification) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rejection: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx, `UPDATE leave_requests
SET status = $2, reviewed_by = $3, reviewed_at = $4, updated_at = $4
WHERE id = $1 AND status = $5`,
		leave.ID, models.LeaveStatusRejected, leave.ReviewedBy, now, models.LeaveStatusPending)
	if err != nil {
		return fmt.Errorf("reject leave request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reject leave result: %w", err)
	}
	if affected == 0 {
		return ErrLeaveNotPending
	}

	if err := insertNotificationsTx(ctx, tx, notifications, now); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit rejection: %w", err)
	}
	commit = true

	leave.Status = models.LeaveStatusRejected
	leave.ReviewedAt = &now
	leave.UpdatedAt = now
	return nil
}

// RevertApproval returns an approved request to pending and deletes every
// coverage task plus any substitution records tied to those tasks. The
// substitution deletes run in id chunks to keep IN lists bounded.
func (r *LeaveRepository) RevertApproval(ctx context.Context, leaveID, reviewedBy string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin revert: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx, `UPDATE leave_requests
SET status = $2, reviewed_by = $3, reviewed_at = $4, coverage_task_count = 0, planner_error = NULL, updated_at = $4
WHERE id = $1 AND status = $5`,
		leaveID, models.LeaveStatusPending, reviewedBy, now, models.LeaveStatusApproved)
	if err != nil {
		return fmt.Errorf("revert leave request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("revert leave result: %w", err)
	}
	if affected == 0 {
		return ErrLeaveNotApproved
	}

	var taskIDs []string
	if err := tx.SelectContext(ctx, &taskIDs, "SELECT id FROM coverage_tasks WHERE leave_request_id = $1", leaveID); err != nil {
		return fmt.Errorf("list coverage task ids: %w", err)
	}

	for start := 0; start < len(taskIDs); start += revertChunkSize {
		end := start + revertChunkSize
		if end > len(taskIDs) {
			end = len(taskIDs)
		}
		query, args, err := sqlx.In("DELETE FROM substitutions WHERE coverage_task_id IN (?)", taskIDs[start:end])
		if err != nil {
			return fmt.Errorf("build substitution delete: %w", err)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
			return fmt.Errorf("delete substitutions: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM coverage_tasks WHERE leave_request_id = $1", leaveID); err != nil {
		return fmt.Errorf("delete coverage tasks: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit revert: %w", err)
	}
	commit = true
	return nil
}

func insertNotificationsTx(ctx context.Context, tx *sqlx.Tx, notifications []models.Notification, now time.Time) error {
	const insert = `INSERT INTO notifications (id, recipient_id, recipient_role, title, body, severity, read_at, created_at)
		VALUES (:id, :recipient_id, :recipient_role, :title, :body, :severity, :read_at, :created_at)`
	for i := range notifications {
		note := &notifications[i]
		if note.ID == "" {
			note.ID = uuid.NewString()
		}
		if note.CreatedAt.IsZero() {
			note.CreatedAt = now
		}
		if _, err := tx.NamedExecContext(ctx, insert, note); err != nil {
			return fmt.Errorf("insert notification: %w", err)
		}
	}
	return nil
}
