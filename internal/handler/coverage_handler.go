package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/spoorthyconceptschool/spoorthy-school-system-sub002/internal/models"
	"github.com/spoorthyconceptschool/spoorthy-school-system-sub002/internal/planner"
	"github.com/spoorthyconceptschool/spoorthy-school-system-sub002/internal/service"
	appErrors "github.com/spoorthyconceptschool/spoorthy-school-system-sub002/pkg/errors"
	"github.com/spoorthyconceptschool/spoorthy-school-system-sub002/pkg/response"
)

// CoverageHandler wires the coverage board to HTTP routes.
type CoverageHandler struct {
	coverage *service.CoverageService
}

// NewCoverageHandler constructs a new CoverageHandler.
func NewCoverageHandler(coverage *service.CoverageService) *CoverageHandler {
	return &CoverageHandler{coverage: coverage}
}

// ListTasks godoc
// @Summary List coverage tasks
// @Tags Coverage
// @Produce json
// @Param leave_id query string false "Filter by leave request"
// @Param date query string false "Filter by date (YYYY-MM-DD)"
// @Param status query string false "Filter by status (PENDING/ASSIGNED)"
// @Success 200 {object} response.Envelope
// @Router /coverage/tasks [get]
func (h *CoverageHandler) ListTasks(c *gin.Context) {
	filter := models.CoverageTaskFilter{LeaveRequestID: c.Query("leave_id")}
	if date := c.Query("date"); date != "" {
		t, err := time.Parse(planner.DateLayout, date)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date must be formatted as YYYY-MM-DD"))
			return
		}
		filter.Date = &t
	}
	if status := c.Query("status"); status != "" {
		s := models.CoverageTaskStatus(status)
		if s != models.CoverageTaskPending && s != models.CoverageTaskAssigned {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "status must be PENDING or ASSIGNED"))
			return
		}
		filter.Status = &s
	}

	tasks, err := h.coverage.ListTasks(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tasks, nil)
}

// ResolveTask godoc
// @Summary Resolve coverage task
// @Description Confirm the substitute who actually takes the period.
// @Tags Coverage
// @Accept json
// @Produce json
// @Param id path string true "Coverage task ID"
// @Param payload body service.ResolveTaskRequest true "Resolution payload"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /coverage/tasks/{id}/resolve [post]
func (h *CoverageHandler) ResolveTask(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.ResolveTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid resolution payload"))
		return
	}

	sub, err := h.coverage.Resolve(c.Request.Context(), c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sub, nil)
}

// Export godoc
// @Summary Export coverage sheet
// @Tags Coverage
// @Produce octet-stream
// @Param id path string true "Leave request ID"
// @Param format query string false "csv or pdf (default csv)"
// @Success 200 {file} binary
// @Router /coverage/leaves/{id}/export [get]
func (h *CoverageHandler) Export(c *gin.Context) {
	format := service.ExportFormat(c.DefaultQuery("format", "csv"))
	out, err := h.coverage.Export(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+out.Filename)
	c.Data(http.StatusOK, out.ContentType, out.Data)
}
