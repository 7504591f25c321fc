package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/spoorthyconceptschool/spoorthy-school-system-sub002/internal/planner"
	"github.com/spoorthyconceptschool/spoorthy-school-system-sub002/internal/service"
	appErrors "github.com/spoorthyconceptschool/spoorthy-school-system-sub002/pkg/errors"
	"github.com/spoorthyconceptschool/spoorthy-school-system-sub002/pkg/response"
)

// AttendanceHandler exposes the daily teacher attendance sheet.
type AttendanceHandler struct {
	attendance *service.AttendanceService
}

// NewAttendanceHandler constructs a new AttendanceHandler.
func NewAttendanceHandler(attendance *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance}
}

func parseSheetDate(c *gin.Context, raw string) (time.Time, bool) {
	t, err := time.Parse(planner.DateLayout, raw)
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date must be formatted as YYYY-MM-DD"))
		return time.Time{}, false
	}
	return t, true
}

// Sheet godoc
// @Summary Get attendance sheet
// @Tags Attendance
// @Produce json
// @Param date query string true "Sheet date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope{data=service.AttendanceSheet}
// @Router /attendance [get]
func (h *AttendanceHandler) Sheet(c *gin.Context) {
	date, ok := parseSheetDate(c, c.Query("date"))
	if !ok {
		return
	}
	sheet, err := h.attendance.Sheet(c.Request.Context(), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sheet, nil)
}

// Upsert godoc
// @Summary Record attendance entries
// @Tags Attendance
// @Accept json
// @Produce json
// @Param date path string true "Sheet date (YYYY-MM-DD)"
// @Param payload body service.UpsertAttendanceRequest true "Attendance entries"
// @Success 200 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /attendance/{date} [put]
func (h *AttendanceHandler) Upsert(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	date, ok := parseSheetDate(c, c.Param("date"))
	if !ok {
		return
	}

	var req service.UpsertAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid attendance payload"))
		return
	}

	if err := h.attendance.Upsert(c.Request.Context(), date, claims.UserID, req); err != nil {
		response.Error(c, err)
		return
	}
	sheet, err := h.attendance.Sheet(c.Request.Context(), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sheet, nil)
}

// Finalize godoc
// @Summary Finalize attendance sheet
// @Description Locks the sheet for the day; only leave approvals may amend it afterwards.
// @Tags Attendance
// @Produce json
// @Param date path string true "Sheet date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /attendance/{date}/finalize [post]
func (h *AttendanceHandler) Finalize(c *gin.Context) {
	date, ok := parseSheetDate(c, c.Param("date"))
	if !ok {
		return
	}
	locked, err := h.attendance.Finalize(c.Request.Context(), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"date": date.Format(planner.DateLayout), "locked_entries": locked}, nil)
}
