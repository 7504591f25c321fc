package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/spoorthyconceptschool/spoorthy-school-system-sub002/internal/models"
	"github.com/spoorthyconceptschool/spoorthy-school-system-sub002/internal/planner"
	appErrors "github.com/spoorthyconceptschool/spoorthy-school-system-sub002/pkg/errors"
	"github.com/spoorthyconceptschool/spoorthy-school-system-sub002/pkg/jobs"
)

type teacherAttendanceRepository interface {
	ListByDate(ctx context.Context, date time.Time) ([]models.TeacherAttendance, error)
	BulkUpsert(ctx context.Context, date time.Time, markedBy string, entries []models.TeacherAttendanceEntry) error
	Finalize(ctx context.Context, date time.Time) (int, error)
	MarkAbsentIfFinalized(ctx context.Context, teacherID string, date time.Time) (bool, error)
}

// UpsertAttendanceRequest represents payload for bulk sheet updates.
type UpsertAttendanceRequest struct {
	Entries []models.TeacherAttendanceEntry `json:"entries" validate:"required,min=1,dive"`
}

// AttendanceSheet is one date's sheet plus its summary.
type AttendanceSheet struct {
	Date    string                          `json:"date"`
	Entries []models.TeacherAttendance      `json:"entries"`
	Summary models.TeacherAttendanceSummary `json:"summary"`
}

// AttendanceService manages the daily teacher attendance sheet and absorbs
// the background absence sync triggered by leave approvals.
type AttendanceService struct {
	repo      teacherAttendanceRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAttendanceService constructs an AttendanceService.
func NewAttendanceService(repo teacherAttendanceRepository, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{repo: repo, validator: validate, logger: logger}
}

// Sheet returns one date's attendance entries with an aggregate summary.
func (s *AttendanceService) Sheet(ctx context.Context, date time.Time) (*AttendanceSheet, error) {
	entries, err := s.repo.ListByDate(ctx, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance sheet")
	}
	sheet := &AttendanceSheet{
		Date:    date.Format(planner.DateLayout),
		Entries: entries,
	}
	for _, entry := range entries {
		sheet.Summary.Total++
		switch entry.Status {
		case models.TeacherAttendancePresent:
			sheet.Summary.Present++
		case models.TeacherAttendanceAbsent:
			sheet.Summary.Absent++
		case models.TeacherAttendanceHalfDay:
			sheet.Summary.HalfDay++
		case models.TeacherAttendanceLeave:
			sheet.Summary.Leave++
		}
	}
	return sheet, nil
}

// Upsert writes a batch of sheet rows. Rows already finalized stay as they
// are; corrections to finalized sheets go through an explicit admin path.
func (s *AttendanceService) Upsert(ctx context.Context, date time.Time, markedBy string, req UpsertAttendanceRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	for _, entry := range req.Entries {
		if !entry.Status.Valid() {
			return appErrors.Clone(appErrors.ErrValidation, "attendance status must be P, A, HD or L")
		}
	}
	if err := s.repo.BulkUpsert(ctx, date, markedBy, req.Entries); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to upsert attendance sheet")
	}
	return nil
}

// Finalize locks one date's sheet. Returns the number of rows locked.
func (s *AttendanceService) Finalize(ctx context.Context, date time.Time) (int, error) {
	locked, err := s.repo.Finalize(ctx, date)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to finalize attendance sheet")
	}
	return locked, nil
}

// SyncHandler returns the jobs handler that reconciles finalized sheets
// after a leave approval. The sync is strictly best effort: every outcome,
// including failure, resolves to nil so the queue never retries it and the
// approval that triggered it is never affected.
func (s *AttendanceService) SyncHandler() jobs.Handler {
	return func(ctx context.Context, job jobs.Job) error {
		payload, ok := job.Payload.(AttendanceSyncPayload)
		if !ok {
			s.logger.Sugar().Warnw("attendance sync job carried unexpected payload", "job_id", job.ID, "type", job.Type)
			return nil
		}

		updated, err := s.repo.MarkAbsentIfFinalized(ctx, payload.TeacherID, payload.Date)
		if err != nil {
			s.logger.Sugar().Warnw("attendance sync failed",
				"teacher_id", payload.TeacherID, "date", payload.Date.Format(planner.DateLayout), "error", err)
			return nil
		}
		if updated {
			s.logger.Sugar().Infow("attendance sheet reconciled with approved leave",
				"teacher_id", payload.TeacherID, "date", payload.Date.Format(planner.DateLayout))
		}
		return nil
	}
}
