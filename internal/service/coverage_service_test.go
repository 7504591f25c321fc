package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spoorthyconceptschool/spoorthy-school-system-sub002/internal/models"
	"github.com/spoorthyconceptschool/spoorthy-school-system-sub002/internal/repository"
	appErrors "github.com/spoorthyconceptschool/spoorthy-school-system-sub002/pkg/errors"
)

type mockCoverageRepo struct {
	tasks      map[string]*models.CoverageTask
	resolveErr error
	resolved   []*models.Substitution
}

func (m *mockCoverageRepo) ListTasks(ctx context.Context, filter models.CoverageTaskFilter) ([]models.CoverageTask, error) {
	var out []models.CoverageTask
	for _, task := range m.tasks {
		if filter.LeaveRequestID != "" && task.LeaveRequestID != filter.LeaveRequestID {
			continue
		}
		out = append(out, *task)
	}
	return out, nil
}

func (m *mockCoverageRepo) FindTaskByID(ctx context.Context, id string) (*models.CoverageTask, error) {
	if task, ok := m.tasks[id]; ok {
		cp := *task
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCoverageRepo) ResolveTask(ctx context.Context, sub *models.Substitution) error {
	if m.resolveErr != nil {
		return m.resolveErr
	}
	m.resolved = append(m.resolved, sub)
	return nil
}

func (m *mockCoverageRepo) CountByLeave(ctx context.Context, leaveRequestID string) (int, error) {
	total := 0
	for _, task := range m.tasks {
		if task.LeaveRequestID == leaveRequestID {
			total++
		}
	}
	return total, nil
}

func coverageTaskFixture(id, leaveID string) *models.CoverageTask {
	substitute := "t2"
	subject := "MATH"
	return &models.CoverageTask{
		ID:                    id,
		LeaveRequestID:        leaveID,
		AbsentTeacherID:       "t1",
		Date:                  time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		DayOfWeek:             models.Monday,
		Period:                3,
		ClassID:               "5A",
		SubjectID:             &subject,
		Status:                models.CoverageTaskPending,
		SuggestedSubstituteID: &substitute,
		SuggestedType:         models.SuggestionSubstitute,
	}
}

func TestCoverageServiceResolve(t *testing.T) {
	repo := &mockCoverageRepo{tasks: map[string]*models.CoverageTask{"ct1": coverageTaskFixture("ct1", "lr1")}}
	service := NewCoverageService(repo, &mockLeaveRepo{}, &mockDirectory{}, validator.New(), zap.NewNop())

	sub, err := service.Resolve(context.Background(), "ct1", "admin", ResolveTaskRequest{SubstituteTeacherID: "t3"})
	require.NoError(t, err)
	assert.Equal(t, "ct1", sub.CoverageTaskID)
	assert.Equal(t, "lr1", sub.LeaveRequestID)
	assert.Equal(t, "t3", sub.SubstituteTeacherID)
	assert.Len(t, repo.resolved, 1)
}

func TestCoverageServiceResolveRejectsAbsentTeacher(t *testing.T) {
	repo := &mockCoverageRepo{tasks: map[string]*models.CoverageTask{"ct1": coverageTaskFixture("ct1", "lr1")}}
	service := NewCoverageService(repo, &mockLeaveRepo{}, &mockDirectory{}, validator.New(), zap.NewNop())

	_, err := service.Resolve(context.Background(), "ct1", "admin", ResolveTaskRequest{SubstituteTeacherID: "t1"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestCoverageServiceResolveAlreadyAssigned(t *testing.T) {
	repo := &mockCoverageRepo{
		tasks:      map[string]*models.CoverageTask{"ct1": coverageTaskFixture("ct1", "lr1")},
		resolveErr: repository.ErrTaskNotPending,
	}
	service := NewCoverageService(repo, &mockLeaveRepo{}, &mockDirectory{}, validator.New(), zap.NewNop())

	_, err := service.Resolve(context.Background(), "ct1", "admin", ResolveTaskRequest{SubstituteTeacherID: "t3"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErr.Code)
}

func TestCoverageServiceExportCSV(t *testing.T) {
	approved := leaveFixture("lr1")
	approved.Status = models.LeaveStatusApproved
	leaves := &mockLeaveRepo{items: map[string]*models.LeaveRequest{"lr1": approved}}
	repo := &mockCoverageRepo{tasks: map[string]*models.CoverageTask{"ct1": coverageTaskFixture("ct1", "lr1")}}
	dir := &mockDirectory{ordered: []models.TeacherRef{{ID: "t2", FullName: "Free Teacher"}}}
	service := NewCoverageService(repo, leaves, dir, validator.New(), zap.NewNop())

	out, err := service.Export(context.Background(), "lr1", ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", out.ContentType)
	body := string(out.Data)
	assert.True(t, strings.Contains(body, "2026-01-05"))
	assert.True(t, strings.Contains(body, "Free Teacher"))
}

func TestCoverageServiceExportRequiresApprovedLeave(t *testing.T) {
	leaves := &mockLeaveRepo{items: map[string]*models.LeaveRequest{"lr1": leaveFixture("lr1")}}
	service := NewCoverageService(&mockCoverageRepo{}, leaves, &mockDirectory{}, validator.New(), zap.NewNop())

	_, err := service.Export(context.Background(), "lr1", ExportFormatPDF)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErr.Code)
}

func TestCoverageServiceExportUnknownFormat(t *testing.T) {
	service := NewCoverageService(&mockCoverageRepo{}, &mockLeaveRepo{}, &mockDirectory{}, validator.New(), zap.NewNop())

	_, err := service.Export(context.Background(), "lr1", ExportFormat("xlsx"))
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}
