package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/spoorthyconceptschool/spoorthy-school-system-sub002/internal/models"
)

// ScheduleRepository provides persistence for weekly schedule slots.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository creates a new schedule repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

const scheduleColumns = "id, teacher_id, year_id, day_of_week, period, class_id, subject_id, created_at, updated_at"

// ListByTeacher returns one teacher's weekly slots for an academic year.
func (r *ScheduleRepository) ListByTeacher(ctx context.Context, teacherID, yearID string) ([]models.WeeklyScheduleSlot, error) {
	query := fmt.Sprintf("SELECT %s FROM weekly_schedule_slots WHERE teacher_id = $1 AND year_id = $2 ORDER BY day_of_week, period", scheduleColumns)
	var slots []models.WeeklyScheduleSlot
	if err := r.db.SelectContext(ctx, &slots, query, teacherID, yearID); err != nil {
		return nil, fmt.Errorf("list teacher schedule: %w", err)
	}
	return slots, nil
}

// ListByYear returns every teacher's weekly slots for an academic year. The
// coverage planner loads this in one shot to derive busy/free state for all
// candidates.
func (r *ScheduleRepository) ListByYear(ctx context.Context, yearID string) ([]models.WeeklyScheduleSlot, error) {
	query := fmt.Sprintf("SELECT %s FROM weekly_schedule_slots WHERE year_id = $1 ORDER BY teacher_id, day_of_week, period", scheduleColumns)
	var slots []models.WeeklyScheduleSlot
	if err := r.db.SelectContext(ctx, &slots, query, yearID); err != nil {
		return nil, fmt.Errorf("list year schedule: %w", err)
	}
	return slots, nil
}

// ReplaceForTeacher swaps a teacher's weekly slots for a year in one
// transaction, so readers never observe a half-written timetable.
func (r *ScheduleRepository) ReplaceForTeacher(ctx context.Context, teacherID, yearID string, slots []models.WeeklyScheduleSlot) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schedule replace: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, "DELETE FROM weekly_schedule_slots WHERE teacher_id = $1 AND year_id = $2", teacherID, yearID); err != nil {
		return fmt.Errorf("clear teacher schedule: %w", err)
	}

	const insert = `INSERT INTO weekly_schedule_slots (id, teacher_id, year_id, day_of_week, period, class_id, subject_id, created_at, updated_at)
		VALUES (:id, :teacher_id, :year_id, :day_of_week, :period, :class_id, :subject_id, :created_at, :updated_at)`
	now := time.Now().UTC()
	for i := range slots {
		slot := &slots[i]
		if slot.ID == "" {
			slot.ID = uuid.NewString()
		}
		slot.TeacherID = teacherID
		slot.YearID = yearID
		if slot.CreatedAt.IsZero() {
			slot.CreatedAt = now
		}
		slot.UpdatedAt = now
		if _, err := tx.NamedExecContext(ctx, insert, slot); err != nil {
			return fmt.Errorf("insert schedule slot: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schedule replace: %w", err)
	}
	commit = true
	return nil
}
