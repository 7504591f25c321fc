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

func newLeaveRepoMock(t *testing.T) (*LeaveRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewLeaveRepository(sqlx.NewDb(db, "sqlmock")), mock, func() { db.Close() }
}

func reviewer(id string) *string { return &id }

func TestLeaveRepositoryApproveWithCoverage(t *testing.T) {
	repo, mock, cleanup := newLeaveRepoMock(t)
	defer cleanup()

	leave := &models.LeaveRequest{ID: "lr1", TeacherID: "t1", ReviewedBy: reviewer("admin")}
	tasks := []models.CoverageTask{
		{LeaveRequestID: "lr1", AbsentTeacherID: "t1", Period: 1, ClassID: "5A", SuggestedType: models.SuggestionSubstitute, Status: models.CoverageTaskPending},
		{LeaveRequestID: "lr1", AbsentTeacherID: "t1", Period: 2, ClassID: "5A", SuggestedType: models.SuggestionLeisure, Status: models.CoverageTaskPending},
	}
	notes := []models.Notification{
		{RecipientID: reviewer("u-t1"), Title: "Leave approved", Severity: models.NotificationSeverityInfo},
	}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE leave_requests").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO coverage_tasks").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO coverage_tasks").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO notifications").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.ApproveWithCoverage(context.Background(), leave, tasks, notes)
	require.NoError(t, err)
	assert.Equal(t, models.LeaveStatusApproved, leave.Status)
	assert.Equal(t, 2, leave.CoverageTaskCount)
	assert.NotNil(t, leave.ReviewedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaveRepositoryApproveNotPending(t *testing.T) {
	repo, mock, cleanup := newLeaveRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE leave_requests").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	leave := &models.LeaveRequest{ID: "lr1", ReviewedBy: reviewer("admin")}
	err := repo.ApproveWithCoverage(context.Background(), leave, nil, nil)
	require.ErrorIs(t, err, ErrLeaveNotPending)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaveRepositoryRejectGuarded(t *testing.T) {
	repo, mock, cleanup := newLeaveRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE leave_requests").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO notifications").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	leave := &models.LeaveRequest{ID: "lr1", ReviewedBy: reviewer("admin")}
	notes := []models.Notification{{RecipientID: reviewer("u-t1"), Title: "Leave rejected"}}
	require.NoError(t, repo.Reject(context.Background(), leave, notes))
	assert.Equal(t, models.LeaveStatusRejected, leave.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaveRepositoryRevertDeletesDerivedRecords(t *testing.T) {
	repo, mock, cleanup := newLeaveRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE leave_requests").
		WillReturnResult(sqlmock.NewResult(0, 1))
	rows := sqlmock.NewRows([]string{"id"})
	for _, id := range []string{"ct1", "ct2", "ct3", "ct4"} {
		rows.AddRow(id)
	}
	mock.ExpectQuery("SELECT id FROM coverage_tasks").WillReturnRows(rows)
	mock.ExpectExec("DELETE FROM substitutions").
		WithArgs("ct1", "ct2", "ct3", "ct4").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("DELETE FROM coverage_tasks").
		WithArgs("lr1").
		WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectCommit()

	require.NoError(t, repo.RevertApproval(context.Background(), "lr1", "admin"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaveRepositoryRevertChunksLongTaskLists(t *testing.T) {
	repo, mock, cleanup := newLeaveRepoMock(t)
	defer cleanup()

	// 12 tasks split into an IN list of 10 and one of 2.
	ids := make([]string, 12)
	rows := sqlmock.NewRows([]string{"id"})
	for i := range ids {
		ids[i] = string(rune('a' + i))
		rows.AddRow(ids[i])
	}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE leave_requests").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT id FROM coverage_tasks").WillReturnRows(rows)
	mock.ExpectExec("DELETE FROM substitutions").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM substitutions").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM coverage_tasks").WillReturnResult(sqlmock.NewResult(0, 12))
	mock.ExpectCommit()

	require.NoError(t, repo.RevertApproval(context.Background(), "lr1", "admin"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaveRepositoryRevertNotApproved(t *testing.T) {
	repo, mock, cleanup := newLeaveRepoMock(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE leave_requests").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.RevertApproval(context.Background(), "lr1", "admin")
	require.ErrorIs(t, err, ErrLeaveNotApproved)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLeaveRepositoryListApprovedOverlapping(t *testing.T) {
	repo, mock, cleanup := newLeaveRepoMock(t)
	defer cleanup()

	from := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 1, 7, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "teacher_id", "from_date", "to_date", "reason", "status", "reviewed_by", "reviewed_at", "coverage_task_count", "planner_error", "created_at", "updated_at"}).
		AddRow("lr2", "t2", from, to, nil, "APPROVED", nil, nil, 3, nil, time.Now(), time.Now())
	mock.ExpectQuery("SELECT (.+) FROM leave_requests").
		WithArgs(string(models.LeaveStatusApproved), "lr1", to, from).
		WillReturnRows(rows)

	leaves, err := repo.ListApprovedOverlapping(context.Background(), from, to, "lr1")
	require.NoError(t, err)
	require.Len(t, leaves, 1)
	assert.Equal(t, "t2", leaves[0].TeacherID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
