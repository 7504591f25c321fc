package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/spoorthyconceptschool/spoorthy-school-system-sub002/internal/models"
	appErrors "github.com/spoorthyconceptschool/spoorthy-school-system-sub002/pkg/errors"
)

type teacherRepository interface {
	List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error)
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error)
	ExistsByStaffNo(ctx context.Context, staffNo, excludeID string) (bool, error)
	Create(ctx context.Context, teacher *models.Teacher) error
	Update(ctx context.Context, teacher *models.Teacher) error
	Deactivate(ctx context.Context, id string) error
}

// CreateTeacherRequest represents payload for creating teachers.
type CreateTeacherRequest struct {
	Email    string  `json:"email" validate:"required,email"`
	FullName string  `json:"full_name" validate:"required"`
	StaffNo  *string `json:"staff_no" validate:"omitempty,max=50"`
	Phone    *string `json:"phone" validate:"omitempty,max=50"`
	Subjects *string `json:"subjects" validate:"omitempty,max=500"`
}

// UpdateTeacherRequest represents payload for updating teachers.
type UpdateTeacherRequest struct {
	Email    string  `json:"email" validate:"required,email"`
	FullName string  `json:"full_name" validate:"required"`
	StaffNo  *string `json:"staff_no" validate:"omitempty,max=50"`
	Phone    *string `json:"phone" validate:"omitempty,max=50"`
	Subjects *string `json:"subjects" validate:"omitempty,max=500"`
	Active   *bool   `json:"active"`
}

// TeacherService orchestrates teacher directory operations.
type TeacherService struct {
	repo      teacherRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTeacherService constructs a TeacherService.
func NewTeacherService(repo teacherRepository, validate *validator.Validate, logger *zap.Logger) *TeacherService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherService{repo: repo, validator: validate, logger: logger}
}

// WithCache enables read caching for teacher lookups.
func (s *TeacherService) WithCache(cache *CacheService) *TeacherService {
	s.cache = cache
	return s
}

func teacherCacheKey(id string) string {
	return "teachers:detail:" + id
}

// List returns teachers plus pagination data.
func (s *TeacherService) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, *models.Pagination, error) {
	teachers, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return teachers, pagination, nil
}

// Get returns a teacher by id. The second return value reports whether the
// record was served from cache.
func (s *TeacherService) Get(ctx context.Context, id string) (*models.Teacher, bool, error) {
	if s.cache.Enabled() {
		var cached models.Teacher
		if hit, err := s.cache.Get(ctx, teacherCacheKey(id), &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	teacher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	if s.cache.Enabled() {
		_ = s.cache.Set(ctx, teacherCacheKey(id), teacher, 0)
	}
	return teacher, false, nil
}

func (s *TeacherService) invalidateCache(ctx context.Context) {
	if s.cache.Enabled() {
		_ = s.cache.Invalidate(ctx, "teachers:*")
	}
}

// Create registers a new teacher record.
func (s *TeacherService) Create(ctx context.Context, req CreateTeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}
	if err := s.ensureUniqueFields(ctx, req.Email, req.StaffNo, ""); err != nil {
		return nil, err
	}

	teacher := &models.Teacher{
		Email:    strings.TrimSpace(req.Email),
		FullName: strings.TrimSpace(req.FullName),
		Active:   true,
	}
	teacher.StaffNo = normalizeOptional(req.StaffNo)
	teacher.Phone = normalizeOptional(req.Phone)
	teacher.Subjects = normalizeOptional(req.Subjects)

	if err := s.repo.Create(ctx, teacher); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create teacher")
	}
	s.invalidateCache(ctx)
	return teacher, nil
}

// Update modifies an existing teacher.
func (s *TeacherService) Update(ctx context.Context, id string, req UpdateTeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}

	teacher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}

	if err := s.ensureUniqueFields(ctx, req.Email, req.StaffNo, id); err != nil {
		return nil, err
	}

	teacher.Email = strings.TrimSpace(req.Email)
	teacher.FullName = strings.TrimSpace(req.FullName)
	teacher.StaffNo = normalizeOptional(req.StaffNo)
	teacher.Phone = normalizeOptional(req.Phone)
	teacher.Subjects = normalizeOptional(req.Subjects)
	if req.Active != nil {
		teacher.Active = *req.Active
	}

	if err := s.repo.Update(ctx, teacher); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update teacher")
	}
	s.invalidateCache(ctx)
	return teacher, nil
}

// Deactivate marks a teacher inactive. The record stays visible to history
// such as past leaves and substitutions.
func (s *TeacherService) Deactivate(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate teacher")
	}
	s.invalidateCache(ctx)
	return nil
}

func (s *TeacherService) ensureUniqueFields(ctx context.Context, email string, staffNo *string, excludeID string) error {
	exists, err := s.repo.ExistsByEmail(ctx, email, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email uniqueness")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "email already used")
	}
	if staffNo != nil {
		trimmed := strings.TrimSpace(*staffNo)
		if trimmed != "" {
			exists, err = s.repo.ExistsByStaffNo(ctx, trimmed, excludeID)
			if err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check staff number uniqueness")
			}
			if exists {
				return appErrors.Clone(appErrors.ErrConflict, "staff number already used")
			}
		}
	}
	return nil
}

func normalizeOptional(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
