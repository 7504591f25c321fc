package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/spoorthyconceptschool/spoorthy-school-system-sub002/internal/models"
	appErrors "github.com/spoorthyconceptschool/spoorthy-school-system-sub002/pkg/errors"
)

type teacherAssignmentRepo interface {
	ListByTeacher(ctx context.Context, teacherID string) ([]models.TeachingAssignmentDetail, error)
	ExistsForClassSubject(ctx context.Context, classID, subjectID, yearID string) (bool, error)
	Create(ctx context.Context, assignment *models.TeachingAssignment) error
	Delete(ctx context.Context, teacherID, assignmentID string) (bool, error)
}

type assignmentTeacherReader interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

// CreateAssignmentRequest represents payload for designating a subject
// teacher for a class.
type CreateAssignmentRequest struct {
	ClassID   string `json:"class_id" validate:"required,max=50"`
	SubjectID string `json:"subject_id" validate:"required,max=50"`
	YearID    string `json:"year_id" validate:"omitempty,max=20"`
}

// TeachingAssignmentService maintains the class/subject to teacher
// registry the coverage planner reads its priority tiers from.
type TeachingAssignmentService struct {
	assignments   teacherAssignmentRepo
	teachers      assignmentTeacherReader
	defaultYearID string
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewTeachingAssignmentService constructs a TeachingAssignmentService.
func NewTeachingAssignmentService(assignments teacherAssignmentRepo, teachers assignmentTeacherReader, defaultYearID string, validate *validator.Validate, logger *zap.Logger) *TeachingAssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeachingAssignmentService{
		assignments:   assignments,
		teachers:      teachers,
		defaultYearID: defaultYearID,
		validator:     validate,
		logger:        logger,
	}
}

// List returns one teacher's assignments.
func (s *TeachingAssignmentService) List(ctx context.Context, teacherID string) ([]models.TeachingAssignmentDetail, error) {
	if _, err := s.teachers.FindByID(ctx, teacherID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	assignments, err := s.assignments.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	return assignments, nil
}

// Create designates a teacher for a class/subject pair. At most one
// designated teacher exists per pair and year.
func (s *TeachingAssignmentService) Create(ctx context.Context, teacherID string, req CreateAssignmentRequest) (*models.TeachingAssignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}

	teacher, err := s.teachers.FindByID(ctx, teacherID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	if !teacher.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "teacher is inactive")
	}

	yearID := req.YearID
	if yearID == "" {
		yearID = s.defaultYearID
	}

	exists, err := s.assignments.ExistsForClassSubject(ctx, req.ClassID, req.SubjectID, yearID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check assignment uniqueness")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "class and subject already have a designated teacher")
	}

	assignment := &models.TeachingAssignment{
		ClassID:   req.ClassID,
		SubjectID: req.SubjectID,
		TeacherID: teacherID,
		YearID:    yearID,
	}
	if err := s.assignments.Create(ctx, assignment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assignment")
	}
	return assignment, nil
}

// Delete removes one of a teacher's assignments.
func (s *TeachingAssignmentService) Delete(ctx context.Context, teacherID, assignmentID string) error {
	deleted, err := s.assignments.Delete(ctx, teacherID, assignmentID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete assignment")
	}
	if !deleted {
		return appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
	}
	return nil
}
