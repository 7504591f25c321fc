package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spoorthyconceptschool/spoorthy-school-system-sub002/internal/models"
)

func newCoverageRepoMock(t *testing.T) (*CoverageRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewCoverageRepository(sqlx.NewDb(db, "sqlmock")), mock, func() { db.Close() }
}

func TestCoverageRepositoryListTasksByLeave(t *testing.T) {
	repo, mock, cleanup := newCoverageRepoMock(t)
	defer cleanup()

	rows := sqlmock.NewRows([]string{"id", "leave_request_id", "absent_teacher_id", "date", "day_of_week", "period", "class_id", "subject_id", "status", "suggested_substitute_id", "suggested_type", "created_at"}).
		AddRow("ct1", "lr1", "t1", time.Now(), "MONDAY", 3, "5A", "MATH", "PENDING", "t2", "SUBSTITUTE", time.Now())
	mock.ExpectQuery("SELECT (.+) FROM coverage_tasks").
		WithArgs("lr1").
		WillReturnRows(rows)

	tasks, err := repo.ListTasks(context.Background(), models.CoverageTaskFilter{LeaveRequestID: "lr1"})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, models.SuggestionSubstitute, tasks[0].SuggestedType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCoverageRepositoryResolveTask(t *testing.T) {
	repo, mock, cleanup := newCoverageRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE coverage_tasks SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO substitutions").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	sub := &models.Substitution{CoverageTaskID: "ct1", LeaveRequestID: "lr1", SubstituteTeacherID: "t2", AssignedBy: "admin"}
	require.NoError(t, repo.ResolveTask(context.Background(), sub))
	assert.NotEmpty(t, sub.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCoverageRepositoryResolveTaskAlreadyAssigned(t *testing.T) {
	repo, mock, cleanup := newCoverageRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE coverage_tasks SET status").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	sub := &models.Substitution{CoverageTaskID: "ct1", LeaveRequestID: "lr1", SubstituteTeacherID: "t2", AssignedBy: "admin"}
	err := repo.ResolveTask(context.Background(), sub)
	require.ErrorIs(t, err, ErrTaskNotPending)
	assert.NoError(t, mock.ExpectationsWereMet())
}
