package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAssignmentMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestTeachingAssignmentRepositoryListByTeacher(t *testing.T) {
	db, mock, cleanup := newAssignmentMock(t)
	defer cleanup()
	repo := NewTeachingAssignmentRepository(db)

	teacherName := "Teacher One"
	rows := sqlmock.NewRows([]string{"id", "class_id", "subject_id", "teacher_id", "year_id", "created_at", "teacher_name"}).
		AddRow("a1", "class-7a", "maths", "t1", "2025-2026", time.Now(), teacherName)
	mock.ExpectQuery(`(?s)SELECT .+ FROM teaching_assignments a\s+LEFT JOIN teachers t`).
		WithArgs("t1").
		WillReturnRows(rows)

	details, err := repo.ListByTeacher(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, details, 1)
	assert.Equal(t, "class-7a", details[0].ClassID)
	require.NotNil(t, details[0].TeacherName)
	assert.Equal(t, teacherName, *details[0].TeacherName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeachingAssignmentRepositoryExistsForClassSubject(t *testing.T) {
	db, mock, cleanup := newAssignmentMock(t)
	defer cleanup()
	repo := NewTeachingAssignmentRepository(db)

	mock.ExpectQuery(`SELECT 1 FROM teaching_assignments WHERE class_id = \$1 AND subject_id = \$2 AND year_id = \$3`).
		WithArgs("class-7a", "maths", "2025-2026").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.ExistsForClassSubject(context.Background(), "class-7a", "maths", "2025-2026")
	require.NoError(t, err)
	assert.True(t, exists)

	mock.ExpectQuery(`SELECT 1 FROM teaching_assignments WHERE class_id = \$1 AND subject_id = \$2 AND year_id = \$3`).
		WithArgs("class-7a", "physics", "2025-2026").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	exists, err = repo.ExistsForClassSubject(context.Background(), "class-7a", "physics", "2025-2026")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTeachingAssignmentRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newAssignmentMock(t)
	defer cleanup()
	repo := NewTeachingAssignmentRepository(db)

	mock.ExpectExec(`DELETE FROM teaching_assignments WHERE id = \$1 AND teacher_id = \$2`).
		WithArgs("a1", "t1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	deleted, err := repo.Delete(context.Background(), "t1", "a1")
	require.NoError(t, err)
	assert.True(t, deleted)

	mock.ExpectExec(`DELETE FROM teaching_assignments WHERE id = \$1 AND teacher_id = \$2`).
		WithArgs("a1", "other").
		WillReturnResult(sqlmock.NewResult(0, 0))

	deleted, err = repo.Delete(context.Background(), "other", "a1")
	require.NoError(t, err)
	assert.False(t, deleted, "deleting another teacher's assignment is a no-op")
	assert.NoError(t, mock.ExpectationsWereMet())
}
