package service

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/spoorthyconceptschool/spoorthy-school-system-sub002/internal/models"
	"github.com/spoorthyconceptschool/spoorthy-school-system-sub002/internal/planner"
	"github.com/spoorthyconceptschool/spoorthy-school-system-sub002/internal/repository"
	appErrors "github.com/spoorthyconceptschool/spoorthy-school-system-sub002/pkg/errors"
	"github.com/spoorthyconceptschool/spoorthy-school-system-sub002/pkg/export"
)

type coverageRepository interface {
	ListTasks(ctx context.Context, filter models.CoverageTaskFilter) ([]models.CoverageTask, error)
	FindTaskByID(ctx context.Context, id string) (*models.CoverageTask, error)
	ResolveTask(ctx context.Context, sub *models.Substitution) error
	CountByLeave(ctx context.Context, leaveRequestID string) (int, error)
}

type coverageLeaveSource interface {
	FindByID(ctx context.Context, id string) (*models.LeaveRequest, error)
}

type coverageDirectory interface {
	ListActiveOrdered(ctx context.Context) ([]models.TeacherRef, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportFormat names a supported coverage sheet rendering.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ResolveTaskRequest represents payload for finalizing a coverage task.
type ResolveTaskRequest struct {
	SubstituteTeacherID string `json:"substitute_teacher_id" validate:"required"`
}

// CoverageExport is a rendered coverage sheet plus transport metadata.
type CoverageExport struct {
	Filename    string
	ContentType string
	Data        []byte
}

// CoverageService exposes the coverage board: listing proposed tasks,
// confirming substitutes and exporting the sheet for an approved leave.
type CoverageService struct {
	tasks     coverageRepository
	leaves    coverageLeaveSource
	directory coverageDirectory
	csv       csvRenderer
	pdf       pdfRenderer
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCoverageService constructs a CoverageService.
func NewCoverageService(tasks coverageRepository, leaves coverageLeaveSource, directory coverageDirectory, validate *validator.Validate, logger *zap.Logger) *CoverageService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CoverageService{
		tasks:     tasks,
		leaves:    leaves,
		directory: directory,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		validator: validate,
		logger:    logger,
	}
}

// ListTasks returns coverage tasks matching the filter.
func (s *CoverageService) ListTasks(ctx context.Context, filter models.CoverageTaskFilter) ([]models.CoverageTask, error) {
	tasks, err := s.tasks.ListTasks(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list coverage tasks")
	}
	return tasks, nil
}

// Resolve finalizes a pending task with the confirmed substitute and
// records the substitution.
func (s *CoverageService) Resolve(ctx context.Context, taskID, assignedBy string, req ResolveTaskRequest) (*models.Substitution, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid resolution payload")
	}

	task, err := s.tasks.FindTaskByID(ctx, taskID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "coverage task not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load coverage task")
	}
	if req.SubstituteTeacherID == task.AbsentTeacherID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "substitute cannot be the absent teacher")
	}

	sub := &models.Substitution{
		CoverageTaskID:      task.ID,
		LeaveRequestID:      task.LeaveRequestID,
		SubstituteTeacherID: req.SubstituteTeacherID,
		AssignedBy:          assignedBy,
	}
	if err := s.tasks.ResolveTask(ctx, sub); err != nil {
		if err == repository.ErrTaskNotPending {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "coverage task is not pending")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve coverage task")
	}
	return sub, nil
}

// Export renders the coverage sheet of one approved leave as CSV or PDF.
func (s *CoverageService) Export(ctx context.Context, leaveID string, format ExportFormat) (*CoverageExport, error) {
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	leave, err := s.leaves.FindByID(ctx, leaveID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "leave request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load leave request")
	}
	if leave.Status != models.LeaveStatusApproved {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "leave request is not approved")
	}

	tasks, err := s.tasks.ListTasks(ctx, models.CoverageTaskFilter{LeaveRequestID: leaveID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list coverage tasks")
	}
	names, err := s.teacherNames(ctx)
	if err != nil {
		return nil, err
	}

	dataset := buildCoverageDataset(tasks, names)
	title := fmt.Sprintf("Coverage sheet %s to %s", leave.FromDate.Format(planner.DateLayout), leave.ToDate.Format(planner.DateLayout))

	switch format {
	case ExportFormatPDF:
		data, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render coverage pdf")
		}
		return &CoverageExport{
			Filename:    fmt.Sprintf("coverage-%s.pdf", leaveID),
			ContentType: "application/pdf",
			Data:        data,
		}, nil
	default:
		data, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render coverage csv")
		}
		return &CoverageExport{
			Filename:    fmt.Sprintf("coverage-%s.csv", leaveID),
			ContentType: "text/csv",
			Data:        data,
		}, nil
	}
}

func (s *CoverageService) teacherNames(ctx context.Context) (map[string]string, error) {
	directory, err := s.directory.ListActiveOrdered(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher directory")
	}
	names := make(map[string]string, len(directory))
	for _, teacher := range directory {
		names[teacher.ID] = teacher.FullName
	}
	return names, nil
}

func buildCoverageDataset(tasks []models.CoverageTask, names map[string]string) export.Dataset {
	dataset := export.Dataset{
		Headers: []string{"Date", "Day", "Period", "Class", "Subject", "Suggestion", "Substitute", "Status"},
	}
	for _, task := range tasks {
		row := map[string]string{
			"Date":       task.Date.Format(planner.DateLayout),
			"Day":        string(task.DayOfWeek),
			"Period":     strconv.Itoa(task.Period),
			"Class":      task.ClassID,
			"Suggestion": string(task.SuggestedType),
			"Status":     string(task.Status),
		}
		if task.SubjectID != nil {
			row["Subject"] = *task.SubjectID
		}
		if task.SuggestedSubstituteID != nil {
			if name, ok := names[*task.SuggestedSubstituteID]; ok {
				row["Substitute"] = name
			} else {
				row["Substitute"] = *task.SuggestedSubstituteID
			}
		}
		dataset.Rows = append(dataset.Rows, row)
	}
	return dataset
}
