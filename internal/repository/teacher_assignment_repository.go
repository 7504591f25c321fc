package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/spoorthyconceptschool/spoorthy-school-system-sub002/internal/models"
)

// TeachingAssignmentRepository persists the class/subject/teacher registry.
type TeachingAssignmentRepository struct {
	db *sqlx.DB
}

// NewTeachingAssignmentRepository constructs the repository.
func NewTeachingAssignmentRepository(db *sqlx.DB) *TeachingAssignmentRepository {
	return &TeachingAssignmentRepository{db: db}
}

// ListByYear returns the full registry for an academic year.
func (r *TeachingAssignmentRepository) ListByYear(ctx context.Context, yearID string) ([]models.TeachingAssignment, error) {
	const query = `SELECT id, class_id, subject_id, teacher_id, year_id, created_at
FROM teaching_assignments WHERE year_id = $1 ORDER BY class_id, subject_id`
	var assignments []models.TeachingAssignment
	if err := r.db.SelectContext(ctx, &assignments, query, yearID); err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return assignments, nil
}

// ListByTeacher returns one teacher's assignments with names attached.
func (r *TeachingAssignmentRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.TeachingAssignmentDetail, error) {
	const query = `SELECT a.id, a.class_id, a.subject_id, a.teacher_id, a.year_id, a.created_at, t.full_name AS teacher_name
FROM teaching_assignments a
LEFT JOIN teachers t ON t.id = a.teacher_id
WHERE a.teacher_id = $1
ORDER BY a.year_id DESC, a.class_id, a.subject_id`
	var details []models.TeachingAssignmentDetail
	if err := r.db.SelectContext(ctx, &details, query, teacherID); err != nil {
		return nil, fmt.Errorf("list teacher assignments: %w", err)
	}
	return details, nil
}

// ExistsForClassSubject reports whether the class/subject pair already has a
// designated teacher for the year.
func (r *TeachingAssignmentRepository) ExistsForClassSubject(ctx context.Context, classID, subjectID, yearID string) (bool, error) {
	const query = `SELECT 1 FROM teaching_assignments WHERE class_id = $1 AND subject_id = $2 AND year_id = $3 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, classID, subjectID, yearID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check assignment: %w", err)
	}
	return true, nil
}

// Create inserts a new assignment.
func (r *TeachingAssignmentRepository) Create(ctx context.Context, assignment *models.TeachingAssignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	if assignment.CreatedAt.IsZero() {
		assignment.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO teaching_assignments (id, class_id, subject_id, teacher_id, year_id, created_at)
		VALUES (:id, :class_id, :subject_id, :teacher_id, :year_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, assignment); err != nil {
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

// Delete removes an assignment belonging to the given teacher.
func (r *TeachingAssignmentRepository) Delete(ctx context.Context, teacherID, assignmentID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM teaching_assignments WHERE id = $1 AND teacher_id = $2", assignmentID, teacherID)
	if err != nil {
		return false, fmt.Errorf("delete assignment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete assignment result: %w", err)
	}
	return affected > 0, nil
}
