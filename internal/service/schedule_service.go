package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/spoorthyconceptschool/spoorthy-school-system-sub002/internal/models"
	appErrors "github.com/spoorthyconceptschool/spoorthy-school-system-sub002/pkg/errors"
)

type scheduleRepository interface {
	ListByTeacher(ctx context.Context, teacherID, yearID string) ([]models.WeeklyScheduleSlot, error)
	ReplaceForTeacher(ctx context.Context, teacherID, yearID string, slots []models.WeeklyScheduleSlot) error
}

type scheduleTeacherReader interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

// ScheduleSlotInput is one period of a weekly schedule replacement.
type ScheduleSlotInput struct {
	DayOfWeek models.DayOfWeek `json:"day_of_week" validate:"required"`
	Period    int              `json:"period" validate:"required,min=1,max=12"`
	ClassID   string           `json:"class_id" validate:"required,max=50"`
	SubjectID *string          `json:"subject_id" validate:"omitempty,max=50"`
}

// ReplaceScheduleRequest represents payload for replacing a teacher's
// weekly schedule for one academic year.
type ReplaceScheduleRequest struct {
	YearID string              `json:"year_id" validate:"omitempty,max=20"`
	Slots  []ScheduleSlotInput `json:"slots" validate:"required,dive"`
}

// ScheduleService maintains weekly teacher timetables.
type ScheduleService struct {
	schedules     scheduleRepository
	teachers      scheduleTeacherReader
	cache         *CacheService
	defaultYearID string
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewScheduleService constructs a ScheduleService.
func NewScheduleService(schedules scheduleRepository, teachers scheduleTeacherReader, defaultYearID string, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{
		schedules:     schedules,
		teachers:      teachers,
		defaultYearID: defaultYearID,
		validator:     validate,
		logger:        logger,
	}
}

// WithCache enables read caching for schedule lookups.
func (s *ScheduleService) WithCache(cache *CacheService) *ScheduleService {
	s.cache = cache
	return s
}

func scheduleCacheKey(teacherID, yearID string) string {
	return fmt.Sprintf("schedules:%s:%s", teacherID, yearID)
}

// Get returns one teacher's weekly schedule for a year.
func (s *ScheduleService) Get(ctx context.Context, teacherID, yearID string) ([]models.WeeklyScheduleSlot, error) {
	if yearID == "" {
		yearID = s.defaultYearID
	}
	if _, err := s.teachers.FindByID(ctx, teacherID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}

	if s.cache.Enabled() {
		var cached []models.WeeklyScheduleSlot
		if hit, err := s.cache.Get(ctx, scheduleCacheKey(teacherID, yearID), &cached); err == nil && hit {
			return cached, nil
		}
	}

	slots, err := s.schedules.ListByTeacher(ctx, teacherID, yearID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	if s.cache.Enabled() {
		_ = s.cache.Set(ctx, scheduleCacheKey(teacherID, yearID), slots, 0)
	}
	return slots, nil
}

// Replace swaps a teacher's entire weekly schedule for a year. Each
// day/period may appear at most once.
func (s *ScheduleService) Replace(ctx context.Context, teacherID string, req ReplaceScheduleRequest) ([]models.WeeklyScheduleSlot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}

	yearID := req.YearID
	if yearID == "" {
		yearID = s.defaultYearID
	}

	if _, err := s.teachers.FindByID(ctx, teacherID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}

	seen := make(map[string]struct{}, len(req.Slots))
	slots := make([]models.WeeklyScheduleSlot, 0, len(req.Slots))
	for _, input := range req.Slots {
		if !input.DayOfWeek.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "day_of_week must be a weekday name")
		}
		key := fmt.Sprintf("%s/%d", input.DayOfWeek, input.Period)
		if _, dup := seen[key]; dup {
			return nil, appErrors.Clone(appErrors.ErrValidation, "duplicate day and period in schedule")
		}
		seen[key] = struct{}{}
		slots = append(slots, models.WeeklyScheduleSlot{
			TeacherID: teacherID,
			YearID:    yearID,
			DayOfWeek: input.DayOfWeek,
			Period:    input.Period,
			ClassID:   input.ClassID,
			SubjectID: input.SubjectID,
		})
	}

	if err := s.schedules.ReplaceForTeacher(ctx, teacherID, yearID, slots); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to replace schedule")
	}
	if s.cache.Enabled() {
		_ = s.cache.Invalidate(ctx, scheduleCacheKey(teacherID, "*"))
	}
	return slots, nil
}
