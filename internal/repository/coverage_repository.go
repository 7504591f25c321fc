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

// ErrTaskNotPending is returned when a resolution races another one, or
// targets a task that was already finalized.
var ErrTaskNotPending = errors.New("coverage task is not pending")

// CoverageRepository persists coverage tasks and their substitutions.
type CoverageRepository struct {
	db *sqlx.DB
}

// NewCoverageRepository constructs a CoverageRepository.
func NewCoverageRepository(db *sqlx.DB) *CoverageRepository {
	return &CoverageRepository{db: db}
}

const coverageColumns = "id, leave_request_id, absent_teacher_id, date, day_of_week, period, class_id, subject_id, status, suggested_substitute_id, suggested_type, created_at"

// ListTasks returns coverage tasks matching the filter, ordered by date then
// period so the board reads like a timetable.
func (r *CoverageRepository) ListTasks(ctx context.Context, filter models.CoverageTaskFilter) ([]models.CoverageTask, error) {
	base := fmt.Sprintf("SELECT %s FROM coverage_tasks WHERE 1=1", coverageColumns)
	var conditions []string
	var args []interface{}

	if filter.LeaveRequestID != "" {
		conditions = append(conditions, fmt.Sprintf("leave_request_id = $%d", len(args)+1))
		args = append(args, filter.LeaveRequestID)
	}
	if filter.Date != nil {
		conditions = append(conditions, fmt.Sprintf("date = $%d", len(args)+1))
		args = append(args, *filter.Date)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}
	base += " ORDER BY date, period"

	var tasks []models.CoverageTask
	if err := r.db.SelectContext(ctx, &tasks, base, args...); err != nil {
		return nil, fmt.Errorf("list coverage tasks: %w", err)
	}
	return tasks, nil
}

// FindTaskByID fetches one coverage task.
func (r *CoverageRepository) FindTaskByID(ctx context.Context, id string) (*models.CoverageTask, error) {
	query := fmt.Sprintf("SELECT %s FROM coverage_tasks WHERE id = $1", coverageColumns)
	var task models.CoverageTask
	if err := r.db.GetContext(ctx, &task, query, id); err != nil {
		return nil, err
	}
	return &task, nil
}

// ResolveTask finalizes a pending task with the confirmed substitute: the
// status flip and the substitution record commit together, guarded on the
// task still being pending.
func (r *CoverageRepository) ResolveTask(ctx context.Context, sub *models.Substitution) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin resolve: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx, "UPDATE coverage_tasks SET status = $2 WHERE id = $1 AND status = $3",
		sub.CoverageTaskID, models.CoverageTaskAssigned, models.CoverageTaskPending)
	if err != nil {
		return fmt.Errorf("assign coverage task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("assign coverage result: %w", err)
	}
	if affected == 0 {
		return ErrTaskNotPending
	}

	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	if sub.AssignedAt.IsZero() {
		sub.AssignedAt = now
	}
	const insert = `INSERT INTO substitutions (id, coverage_task_id, leave_request_id, substitute_teacher_id, assigned_by, assigned_at)
		VALUES (:id, :coverage_task_id, :leave_request_id, :substitute_teacher_id, :assigned_by, :assigned_at)`
	if _, err := tx.NamedExecContext(ctx, insert, sub); err != nil {
		return fmt.Errorf("insert substitution: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit resolve: %w", err)
	}
	commit = true
	return nil
}

// CountByLeave returns the number of tasks tied to a leave request.
func (r *CoverageRepository) CountByLeave(ctx context.Context, leaveRequestID string) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM coverage_tasks WHERE leave_request_id = $1", leaveRequestID); err != nil {
		return 0, fmt.Errorf("count coverage tasks: %w", err)
	}
	return total, nil
}
