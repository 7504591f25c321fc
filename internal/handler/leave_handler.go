package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/spoorthyconceptschool/spoorthy-school-system-sub002/internal/models"
	"github.com/spoorthyconceptschool/spoorthy-school-system-sub002/internal/planner"
	"github.com/spoorthyconceptschool/spoorthy-school-system-sub002/internal/service"
	appErrors "github.com/spoorthyconceptschool/spoorthy-school-system-sub002/pkg/errors"
	"github.com/spoorthyconceptschool/spoorthy-school-system-sub002/pkg/response"
)

// LeaveHandler wires the leave request lifecycle to HTTP routes.
type LeaveHandler struct {
	leaves  *service.LeaveService
	metrics *service.MetricsService
}

// NewLeaveHandler constructs a new LeaveHandler.
func NewLeaveHandler(leaves *service.LeaveService, metrics *service.MetricsService) *LeaveHandler {
	return &LeaveHandler{leaves: leaves, metrics: metrics}
}

// Submit godoc
// @Summary Submit leave request
// @Tags Leaves
// @Accept json
// @Produce json
// @Param payload body service.SubmitLeaveRequest true "Leave payload"
// @Success 201 {object} response.Envelope
// @Router /leaves [post]
func (h *LeaveHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.SubmitLeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid leave payload"))
		return
	}

	// Teachers file for themselves; the teacher_id in the body only
	// matters for admin-submitted requests.
	if claims.Role == models.RoleTeacher {
		if claims.TeacherID == nil {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "account has no linked teacher profile"))
			return
		}
		req.TeacherID = *claims.TeacherID
	}

	leave, err := h.leaves.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, leave)
}

// List godoc
// @Summary List leave requests
// @Tags Leaves
// @Produce json
// @Param status query string false "Filter by status (PENDING/APPROVED/REJECTED)"
// @Param teacher_id query string false "Filter by teacher"
// @Param from query string false "Window start (YYYY-MM-DD)"
// @Param to query string false "Window end (YYYY-MM-DD)"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /leaves [get]
func (h *LeaveHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	filter := models.LeaveFilter{TeacherID: c.Query("teacher_id")}
	if claims.Role == models.RoleTeacher {
		if claims.TeacherID == nil {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "account has no linked teacher profile"))
			return
		}
		filter.TeacherID = *claims.TeacherID
	}
	if status := c.Query("status"); status != "" {
		s := models.LeaveStatus(status)
		if !s.Valid() {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "status must be PENDING, APPROVED or REJECTED"))
			return
		}
		filter.Status = &s
	}
	if from := c.Query("from"); from != "" {
		t, err := time.Parse(planner.DateLayout, from)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "from must be formatted as YYYY-MM-DD"))
			return
		}
		filter.DateFrom = &t
	}
	if to := c.Query("to"); to != "" {
		t, err := time.Parse(planner.DateLayout, to)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "to must be formatted as YYYY-MM-DD"))
			return
		}
		filter.DateTo = &t
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	leaves, pagination, err := h.leaves.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, leaves, pagination)
}

// Get godoc
// @Summary Get leave request detail
// @Tags Leaves
// @Produce json
// @Param id path string true "Leave request ID"
// @Success 200 {object} response.Envelope
// @Router /leaves/{id} [get]
func (h *LeaveHandler) Get(c *gin.Context) {
	leave, err := h.leaves.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, leave, nil)
}

// Review godoc
// @Summary Review leave request
// @Description Approve, reject or revert a leave request. Approval plans
// @Description substitute coverage for every scheduled period of the window.
// @Tags Leaves
// @Accept json
// @Produce json
// @Param id path string true "Leave request ID"
// @Param payload body service.ReviewLeaveRequest true "Review payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /leaves/{id}/review [post]
func (h *LeaveHandler) Review(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.ReviewLeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid review payload"))
		return
	}

	result, err := h.leaves.Review(c.Request.Context(), c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	if h.metrics != nil && req.Action == models.ReviewActionApprove {
		h.metrics.RecordCoveragePlan(planOutcome(result), result.CoverageTaskCount)
	}

	response.JSON(c, http.StatusOK, result, nil)
}

func planOutcome(result *service.ReviewResult) string {
	switch {
	case result.Degraded:
		return "degraded"
	case result.CoverageTaskCount > 0:
		return "planned"
	default:
		return "empty"
	}
}
