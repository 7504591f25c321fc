package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spoorthyconceptschool/spoorthy-school-system-sub002/internal/models"
	appErrors "github.com/spoorthyconceptschool/spoorthy-school-system-sub002/pkg/errors"
)

type mockAssignmentRepo struct {
	items    map[string]*models.TeachingAssignment
	existing map[string]bool
	deleted  []string
}

func (m *mockAssignmentRepo) ListByTeacher(ctx context.Context, teacherID string) ([]models.TeachingAssignmentDetail, error) {
	var details []models.TeachingAssignmentDetail
	for _, a := range m.items {
		if a.TeacherID == teacherID {
			details = append(details, models.TeachingAssignmentDetail{TeachingAssignment: *a})
		}
	}
	return details, nil
}

func (m *mockAssignmentRepo) ExistsForClassSubject(ctx context.Context, classID, subjectID, yearID string) (bool, error) {
	return m.existing[classID+"/"+subjectID+"/"+yearID], nil
}

func (m *mockAssignmentRepo) Create(ctx context.Context, assignment *models.TeachingAssignment) error {
	if assignment.ID == "" {
		assignment.ID = "assignment-1"
	}
	if m.items == nil {
		m.items = map[string]*models.TeachingAssignment{}
	}
	m.items[assignment.ID] = assignment
	return nil
}

func (m *mockAssignmentRepo) Delete(ctx context.Context, teacherID, assignmentID string) (bool, error) {
	a, ok := m.items[assignmentID]
	if !ok || a.TeacherID != teacherID {
		return false, nil
	}
	delete(m.items, assignmentID)
	m.deleted = append(m.deleted, assignmentID)
	return true, nil
}

type assignmentTeacherStub struct {
	teacher *models.Teacher
}

func (s *assignmentTeacherStub) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	if s.teacher == nil || s.teacher.ID != id {
		return nil, sql.ErrNoRows
	}
	cp := *s.teacher
	return &cp, nil
}

func newAssignmentService(repo *mockAssignmentRepo, teacher *models.Teacher) *TeachingAssignmentService {
	return NewTeachingAssignmentService(repo, &assignmentTeacherStub{teacher: teacher}, "2025-2026", nil, nil)
}

func TestTeachingAssignmentServiceCreate(t *testing.T) {
	repo := &mockAssignmentRepo{existing: map[string]bool{}}
	svc := newAssignmentService(repo, &models.Teacher{ID: "t1", Active: true})

	assignment, err := svc.Create(context.Background(), "t1", CreateAssignmentRequest{
		ClassID:   "class-7a",
		SubjectID: "maths",
	})
	require.NoError(t, err)
	assert.Equal(t, "t1", assignment.TeacherID)
	assert.Equal(t, "2025-2026", assignment.YearID, "default academic year applies when omitted")
}

func TestTeachingAssignmentServiceCreateDuplicatePair(t *testing.T) {
	repo := &mockAssignmentRepo{existing: map[string]bool{"class-7a/maths/2025-2026": true}}
	svc := newAssignmentService(repo, &models.Teacher{ID: "t1", Active: true})

	_, err := svc.Create(context.Background(), "t1", CreateAssignmentRequest{
		ClassID:   "class-7a",
		SubjectID: "maths",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestTeachingAssignmentServiceCreateInactiveTeacher(t *testing.T) {
	repo := &mockAssignmentRepo{existing: map[string]bool{}}
	svc := newAssignmentService(repo, &models.Teacher{ID: "t1", Active: false})

	_, err := svc.Create(context.Background(), "t1", CreateAssignmentRequest{
		ClassID:   "class-7a",
		SubjectID: "maths",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestTeachingAssignmentServiceListUnknownTeacher(t *testing.T) {
	svc := newAssignmentService(&mockAssignmentRepo{}, nil)

	_, err := svc.List(context.Background(), "ghost")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestTeachingAssignmentServiceDelete(t *testing.T) {
	repo := &mockAssignmentRepo{items: map[string]*models.TeachingAssignment{
		"a1": {ID: "a1", TeacherID: "t1", ClassID: "class-7a", SubjectID: "maths", YearID: "2025-2026"},
	}}
	svc := newAssignmentService(repo, &models.Teacher{ID: "t1", Active: true})

	require.NoError(t, svc.Delete(context.Background(), "t1", "a1"))
	assert.Empty(t, repo.items)

	err := svc.Delete(context.Background(), "t1", "a1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
