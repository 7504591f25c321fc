package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spoorthyconceptschool/spoorthy-school-system-sub002/internal/models"
	"github.com/spoorthyconceptschool/spoorthy-school-system-sub002/internal/planner"
	"github.com/spoorthyconceptschool/spoorthy-school-system-sub002/internal/repository"
	appErrors "github.com/spoorthyconceptschool/spoorthy-school-system-sub002/pkg/errors"
	"github.com/spoorthyconceptschool/spoorthy-school-system-sub002/pkg/jobs"
)

type mockLeaveRepo struct {
	items map[string]*models.LeaveRequest

	overlapping []models.LeaveRequest

	approveErr    error
	approvedTasks []models.CoverageTask
	approvedNotes []models.Notification

	rejectErr   error
	revertErr   error
	revertCalls []string
}

func (m *mockLeaveRepo) Create(ctx context.Context, leave *models.LeaveRequest) error {
	if m.items == nil {
		m.items = make(map[string]*models.LeaveRequest)
	}
	if leave.ID == "" {
		leave.ID = "generated"
	}
	cp := *leave
	m.items[leave.ID] = &cp
	return nil
}

func (m *mockLeaveRepo) FindByID(ctx context.Context, id string) (*models.LeaveRequest, error) {
	if leave, ok := m.items[id]; ok {
		cp := *leave
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockLeaveRepo) List(ctx context.Context, filter models.LeaveFilter) ([]models.LeaveRequest, int, error) {
	var out []models.LeaveRequest
	for _, leave := range m.items {
		out = append(out, *leave)
	}
	return out, len(out), nil
}

func (m *mockLeaveRepo) ListApprovedOverlapping(ctx context.Context, from, to time.Time, excludeID string) ([]models.LeaveRequest, error) {
	return m.overlapping, nil
}

func (m *mockLeaveRepo) ApproveWithCoverage(ctx context.Context, leave *models.LeaveRequest, tasks []models.CoverageTask, notifications []models.Notification) error {
	if m.approveErr != nil {
		return m.approveErr
	}
	m.approvedTasks = tasks
	m.approvedNotes = notifications
	leave.Status = models.LeaveStatusApproved
	leave.CoverageTaskCount = len(tasks)
	cp := *leave
	m.items[leave.ID] = &cp
	return nil
}

func (m *mockLeaveRepo) Reject(ctx context.Context, leave *models.LeaveRequest, notifications []models.Notification) error {
	if m.rejectErr != nil {
		return m.rejectErr
	}
	leave.Status = models.LeaveStatusRejected
	cp := *leave
	m.items[leave.ID] = &cp
	return nil
}

func (m *mockLeaveRepo) RevertApproval(ctx context.Context, leaveID, reviewedBy string) error {
	if m.revertErr != nil {
		return m.revertErr
	}
	m.revertCalls = append(m.revertCalls, leaveID)
	return nil
}

type mockDirectory struct {
	items   map[string]*models.Teacher
	ordered []models.TeacherRef
	listErr error
}

func (m *mockDirectory) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	if teacher, ok := m.items[id]; ok {
		cp := *teacher
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockDirectory) ListActiveOrdered(ctx context.Context) ([]models.TeacherRef, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.ordered, nil
}

type mockScheduleSource struct {
	slots []models.WeeklyScheduleSlot
	err   error
}

func (m *mockScheduleSource) ListByYear(ctx context.Context, yearID string) ([]models.WeeklyScheduleSlot, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.slots, nil
}

type mockAssignmentSource struct {
	assignments []models.TeachingAssignment
	err         error
}

func (m *mockAssignmentSource) ListByYear(ctx context.Context, yearID string) ([]models.TeachingAssignment, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.assignments, nil
}

type mockSyncQueue struct {
	enqueued []jobs.Job
	err      error
}

func (m *mockSyncQueue) Enqueue(job jobs.Job) error {
	if m.err != nil {
		return m.err
	}
	m.enqueued = append(m.enqueued, job)
	return nil
}

func leaveFixture(id string) *models.LeaveRequest {
	return &models.LeaveRequest{
		ID:        id,
		TeacherID: "t1",
		FromDate:  time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		ToDate:    time.Date(2026, 1, 6, 0, 0, 0, 0, time.UTC),
		Status:    models.LeaveStatusPending,
	}
}

func mondaySlot(teacherID string, period int, classID, subjectID string) models.WeeklyScheduleSlot {
	slot := models.WeeklyScheduleSlot{
		TeacherID: teacherID,
		YearID:    "2025-2026",
		DayOfWeek: models.Monday,
		Period:    period,
		ClassID:   classID,
	}
	if subjectID != "" {
		slot.SubjectID = &subjectID
	}
	return slot
}

func newLeaveService(leaves *mockLeaveRepo, dir *mockDirectory, sched *mockScheduleSource, assign *mockAssignmentSource, queue *mockSyncQueue) *LeaveService {
	var dispatcher syncDispatcher
	if queue != nil {
		dispatcher = queue
	}
	return NewLeaveService(leaves, dir, sched, assign, dispatcher, "2025-2026", validator.New(), zap.NewNop())
}

func TestLeaveServiceApproveGeneratesCoverage(t *testing.T) {
	leaves := &mockLeaveRepo{items: map[string]*models.LeaveRequest{"lr1": leaveFixture("lr1")}}
	dir := &mockDirectory{
		items:   map[string]*models.Teacher{"t1": {ID: "t1", FullName: "Absent One", Active: true}},
		ordered: []models.TeacherRef{{ID: "t1"}, {ID: "t2"}, {ID: "t3"}},
	}
	sched := &mockScheduleSource{slots: []models.WeeklyScheduleSlot{
		mondaySlot("t1", 1, "5A", "MATH"),
		mondaySlot("t1", 2, "5A", "ENG"),
	}}
	queue := &mockSyncQueue{}
	service := newLeaveService(leaves, dir, sched, &mockAssignmentSource{}, queue)

	result, err := service.Review(context.Background(), "lr1", "admin", ReviewLeaveRequest{Action: models.ReviewActionApprove})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.CoverageTaskCount)
	assert.Equal(t, "Leave approved; 2 coverage slots proposed for review", result.Message)
	require.Len(t, leaves.approvedTasks, 2)
	require.NotNil(t, leaves.approvedTasks[0].SuggestedSubstituteID)
	assert.Equal(t, "t2", *leaves.approvedTasks[0].SuggestedSubstituteID)
	require.Len(t, leaves.approvedNotes, 2)
	assert.NotNil(t, leaves.approvedNotes[0].RecipientID)
	assert.NotNil(t, leaves.approvedNotes[1].RecipientRole)
	// one sync job per calendar date of the window
	assert.Len(t, queue.enqueued, 2)
	assert.Equal(t, JobTypeAttendanceSync, queue.enqueued[0].Type)
}

func TestLeaveServiceApproveWithoutScheduleStillApproves(t *testing.T) {
	leaves := &mockLeaveRepo{items: map[string]*models.LeaveRequest{"lr1": leaveFixture("lr1")}}
	dir := &mockDirectory{
		items:   map[string]*models.Teacher{"t1": {ID: "t1", FullName: "Absent One", Active: true}},
		ordered: []models.TeacherRef{{ID: "t1"}, {ID: "t2"}},
	}
	service := newLeaveService(leaves, dir, &mockScheduleSource{}, &mockAssignmentSource{}, nil)

	result, err := service.Review(context.Background(), "lr1", "admin", ReviewLeaveRequest{Action: models.ReviewActionApprove})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Zero(t, result.CoverageTaskCount)
	assert.Equal(t, "Leave approved; no schedule found for the teacher, no coverage needed", result.Message)
	assert.Empty(t, leaves.approvedTasks)
	assert.Equal(t, models.LeaveStatusApproved, leaves.items["lr1"].Status)
}

func TestLeaveServiceApproveSurvivesPlannerFailure(t *testing.T) {
	leaves := &mockLeaveRepo{items: map[string]*models.LeaveRequest{"lr1": leaveFixture("lr1")}}
	dir := &mockDirectory{
		items: map[string]*models.Teacher{"t1": {ID: "t1", FullName: "Absent One", Active: true}},
	}
	sched := &mockScheduleSource{err: errors.New("schedule store unreachable")}
	service := newLeaveService(leaves, dir, sched, &mockAssignmentSource{}, nil)

	result, err := service.Review(context.Background(), "lr1", "admin", ReviewLeaveRequest{Action: models.ReviewActionApprove})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "Leave approved; coverage planning failed and needs manual scheduling", result.Message)
	assert.Equal(t, models.LeaveStatusApproved, leaves.items["lr1"].Status)
	require.NotNil(t, leaves.items["lr1"].PlannerError)
	assert.Contains(t, *leaves.items["lr1"].PlannerError, "schedule store unreachable")
}

func TestLeaveServiceApproveNotPendingFailsPrecondition(t *testing.T) {
	leaves := &mockLeaveRepo{
		items:      map[string]*models.LeaveRequest{"lr1": leaveFixture("lr1")},
		approveErr: repository.ErrLeaveNotPending,
	}
	dir := &mockDirectory{
		items: map[string]*models.Teacher{"t1": {ID: "t1", FullName: "Absent One", Active: true}},
	}
	service := newLeaveService(leaves, dir, &mockScheduleSource{}, &mockAssignmentSource{}, nil)

	_, err := service.Review(context.Background(), "lr1", "admin", ReviewLeaveRequest{Action: models.ReviewActionApprove})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErr.Code)
}

func TestLeaveServiceApproveMissingTeacherProfile(t *testing.T) {
	leaves := &mockLeaveRepo{items: map[string]*models.LeaveRequest{"lr1": leaveFixture("lr1")}}
	service := newLeaveService(leaves, &mockDirectory{}, &mockScheduleSource{}, &mockAssignmentSource{}, nil)

	_, err := service.Review(context.Background(), "lr1", "admin", ReviewLeaveRequest{Action: models.ReviewActionApprove})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
	assert.Empty(t, leaves.approvedTasks)
}

func TestLeaveServiceReject(t *testing.T) {
	leaves := &mockLeaveRepo{items: map[string]*models.LeaveRequest{"lr1": leaveFixture("lr1")}}
	service := newLeaveService(leaves, &mockDirectory{}, &mockScheduleSource{}, &mockAssignmentSource{}, nil)

	result, err := service.Review(context.Background(), "lr1", "admin", ReviewLeaveRequest{Action: models.ReviewActionReject})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, models.LeaveStatusRejected, leaves.items["lr1"].Status)
}

func TestLeaveServiceRevert(t *testing.T) {
	approved := leaveFixture("lr1")
	approved.Status = models.LeaveStatusApproved
	leaves := &mockLeaveRepo{items: map[string]*models.LeaveRequest{"lr1": approved}}
	service := newLeaveService(leaves, &mockDirectory{}, &mockScheduleSource{}, &mockAssignmentSource{}, nil)

	result, err := service.Review(context.Background(), "lr1", "admin", ReviewLeaveRequest{Action: models.ReviewActionRevert})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, []string{"lr1"}, leaves.revertCalls)
}

func TestLeaveServiceRevertNotApproved(t *testing.T) {
	leaves := &mockLeaveRepo{
		items:     map[string]*models.LeaveRequest{"lr1": leaveFixture("lr1")},
		revertErr: repository.ErrLeaveNotApproved,
	}
	service := newLeaveService(leaves, &mockDirectory{}, &mockScheduleSource{}, &mockAssignmentSource{}, nil)

	_, err := service.Review(context.Background(), "lr1", "admin", ReviewLeaveRequest{Action: models.ReviewActionRevert})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErr.Code)
}

func TestLeaveServiceReviewUnknownLeave(t *testing.T) {
	service := newLeaveService(&mockLeaveRepo{}, &mockDirectory{}, &mockScheduleSource{}, &mockAssignmentSource{}, nil)

	_, err := service.Review(context.Background(), "missing", "admin", ReviewLeaveRequest{Action: models.ReviewActionApprove})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestLeaveServiceReviewInvalidAction(t *testing.T) {
	service := newLeaveService(&mockLeaveRepo{}, &mockDirectory{}, &mockScheduleSource{}, &mockAssignmentSource{}, nil)

	_, err := service.Review(context.Background(), "lr1", "admin", ReviewLeaveRequest{Action: "MAYBE"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestLeaveServiceSubmitValidatesWindow(t *testing.T) {
	dir := &mockDirectory{items: map[string]*models.Teacher{"t1": {ID: "t1", Active: true}}}
	service := newLeaveService(&mockLeaveRepo{}, dir, &mockScheduleSource{}, &mockAssignmentSource{}, nil)

	_, err := service.Submit(context.Background(), SubmitLeaveRequest{
		TeacherID: "t1",
		FromDate:  "2026-01-06",
		ToDate:    "2026-01-05",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestLeaveServiceSubmit(t *testing.T) {
	dir := &mockDirectory{items: map[string]*models.Teacher{"t1": {ID: "t1", Active: true}}}
	leaves := &mockLeaveRepo{}
	service := newLeaveService(leaves, dir, &mockScheduleSource{}, &mockAssignmentSource{}, nil)

	leave, err := service.Submit(context.Background(), SubmitLeaveRequest{
		TeacherID: "t1",
		FromDate:  "2026-01-05",
		ToDate:    "2026-01-06",
	})
	require.NoError(t, err)
	assert.Equal(t, models.LeaveStatusPending, leave.Status)
	assert.Equal(t, leave.FromDate.Format(planner.DateLayout), "2026-01-05")
	assert.Len(t, leaves.items, 1)
}
