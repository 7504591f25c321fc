package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/spoorthyconceptschool/spoorthy-school-system-sub002/internal/models"
)

// TeacherAttendanceRepository persists the daily teacher attendance sheet.
type TeacherAttendanceRepository struct {
	db *sqlx.DB
}

// NewTeacherAttendanceRepository constructs the repository.
func NewTeacherAttendanceRepository(db *sqlx.DB) *TeacherAttendanceRepository {
	return &TeacherAttendanceRepository{db: db}
}

const attendanceColumns = "id, teacher_id, date, status, notes, finalized, marked_by, created_at, updated_at"

// ListByDate returns the full sheet for one date.
func (r *TeacherAttendanceRepository) ListByDate(ctx context.Context, date time.Time) ([]models.TeacherAttendance, error) {
	query := fmt.Sprintf("SELECT %s FROM teacher_attendance WHERE date = $1 ORDER BY teacher_id", attendanceColumns)
	var records []models.TeacherAttendance
	if err := r.db.SelectContext(ctx, &records, query, date); err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return records, nil
}

// BulkUpsert writes one date's sheet in a single transaction. Rows already
// finalized are left untouched.
func (r *TeacherAttendanceRepository) BulkUpsert(ctx context.Context, date time.Time, markedBy string, entries []models.TeacherAttendanceEntry) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin attendance upsert: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			tx.Rollback()
		}
	}()

	const query = `INSERT INTO teacher_attendance (id, teacher_id, date, status, notes, finalized, marked_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, FALSE, $6, $7, $7)
ON CONFLICT (teacher_id, date) DO UPDATE
SET status = EXCLUDED.status, notes = EXCLUDED.notes, marked_by = EXCLUDED.marked_by, updated_at = EXCLUDED.updated_at
WHERE teacher_attendance.finalized = FALSE`
	now := time.Now().UTC()
	for _, entry := range entries {
		if _, err := tx.ExecContext(ctx, query, uuid.NewString(), entry.TeacherID, date, entry.Status, entry.Notes, markedBy, now); err != nil {
			return fmt.Errorf("upsert attendance for %s: %w", entry.TeacherID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit attendance upsert: %w", err)
	}
	commit = true
	return nil
}

// Finalize locks one date's sheet. Returns the number of rows locked.
func (r *TeacherAttendanceRepository) Finalize(ctx context.Context, date time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, "UPDATE teacher_attendance SET finalized = TRUE, updated_at = $2 WHERE date = $1 AND finalized = FALSE", date, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("finalize attendance: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("finalize attendance result: %w", err)
	}
	return int(affected), nil
}

// MarkAbsentIfFinalized is the planner's post-commit sync hook: it flips an
// already-finalized entry for the absent teacher to absent. A missing or
// unfinalized row is not an error; the sheet simply has nothing to correct.
func (r *TeacherAttendanceRepository) MarkAbsentIfFinalized(ctx context.Context, teacherID string, date time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE teacher_attendance SET status = $3, updated_at = $4
WHERE teacher_id = $1 AND date = $2 AND finalized = TRUE`,
		teacherID, date, models.TeacherAttendanceAbsent, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("sync attendance for %s: %w", teacherID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sync attendance result: %w", err)
	}
	return affected > 0, nil
}
