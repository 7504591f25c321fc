package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spoorthyconceptschool/spoorthy-school-system-sub002/internal/models"
	"github.com/spoorthyconceptschool/spoorthy-school-system-sub002/pkg/jobs"
)

type mockAttendanceRepo struct {
	entries     []models.TeacherAttendance
	upserted    []models.TeacherAttendanceEntry
	finalized   int
	markedCalls []string
	markResult  bool
	markErr     error
}

func (m *mockAttendanceRepo) ListByDate(ctx context.Context, date time.Time) ([]models.TeacherAttendance, error) {
	return m.entries, nil
}

func (m *mockAttendanceRepo) BulkUpsert(ctx context.Context, date time.Time, markedBy string, entries []models.TeacherAttendanceEntry) error {
	m.upserted = append(m.upserted, entries...)
	return nil
}

func (m *mockAttendanceRepo) Finalize(ctx context.Context, date time.Time) (int, error) {
	return m.finalized, nil
}

func (m *mockAttendanceRepo) MarkAbsentIfFinalized(ctx context.Context, teacherID string, date time.Time) (bool, error) {
	m.markedCalls = append(m.markedCalls, teacherID+"/"+date.Format("2006-01-02"))
	if m.markErr != nil {
		return false, m.markErr
	}
	return m.markResult, nil
}

func TestAttendanceServiceSheetSummary(t *testing.T) {
	repo := &mockAttendanceRepo{entries: []models.TeacherAttendance{
		{TeacherID: "t1", Status: models.TeacherAttendancePresent},
		{TeacherID: "t2", Status: models.TeacherAttendanceAbsent},
		{TeacherID: "t3", Status: models.TeacherAttendanceLeave},
	}}
	service := NewAttendanceService(repo, validator.New(), zap.NewNop())

	sheet, err := service.Sheet(context.Background(), time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "2026-01-05", sheet.Date)
	assert.Equal(t, 3, sheet.Summary.Total)
	assert.Equal(t, 1, sheet.Summary.Present)
	assert.Equal(t, 1, sheet.Summary.Absent)
	assert.Equal(t, 1, sheet.Summary.Leave)
}

func TestAttendanceServiceUpsertRejectsUnknownStatus(t *testing.T) {
	service := NewAttendanceService(&mockAttendanceRepo{}, validator.New(), zap.NewNop())

	err := service.Upsert(context.Background(), time.Now(), "admin", UpsertAttendanceRequest{
		Entries: []models.TeacherAttendanceEntry{{TeacherID: "t1", Status: "X"}},
	})
	require.Error(t, err)
}

func TestAttendanceSyncHandlerMarksFinalizedSheets(t *testing.T) {
	repo := &mockAttendanceRepo{markResult: true}
	service := NewAttendanceService(repo, validator.New(), zap.NewNop())
	handler := service.SyncHandler()

	err := handler(context.Background(), jobs.Job{
		ID:   "j1",
		Type: JobTypeAttendanceSync,
		Payload: AttendanceSyncPayload{
			TeacherID: "t1",
			Date:      time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"t1/2026-01-05"}, repo.markedCalls)
}

func TestAttendanceSyncHandlerSwallowsFailures(t *testing.T) {
	repo := &mockAttendanceRepo{markErr: errors.New("sheet store unreachable")}
	service := NewAttendanceService(repo, validator.New(), zap.NewNop())
	handler := service.SyncHandler()

	// returning nil keeps the queue from retrying a best-effort sync
	err := handler(context.Background(), jobs.Job{
		ID:      "j1",
		Type:    JobTypeAttendanceSync,
		Payload: AttendanceSyncPayload{TeacherID: "t1", Date: time.Now()},
	})
	require.NoError(t, err)
}

func TestAttendanceSyncHandlerIgnoresForeignPayload(t *testing.T) {
	repo := &mockAttendanceRepo{}
	service := NewAttendanceService(repo, validator.New(), zap.NewNop())
	handler := service.SyncHandler()

	err := handler(context.Background(), jobs.Job{ID: "j1", Type: JobTypeAttendanceSync, Payload: "bogus"})
	require.NoError(t, err)
	assert.Empty(t, repo.markedCalls)
}
