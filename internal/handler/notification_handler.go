package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/spoorthyconceptschool/spoorthy-school-system-sub002/internal/models"
	"github.com/spoorthyconceptschool/spoorthy-school-system-sub002/internal/service"
	appErrors "github.com/spoorthyconceptschool/spoorthy-school-system-sub002/pkg/errors"
	"github.com/spoorthyconceptschool/spoorthy-school-system-sub002/pkg/response"
)

// NotificationHandler serves the signed-in user's notification inbox.
type NotificationHandler struct {
	notifications *service.NotificationService
}

// NewNotificationHandler constructs a new NotificationHandler.
func NewNotificationHandler(notifications *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

func userInfoFromClaims(claims *models.JWTClaims) *models.UserInfo {
	return &models.UserInfo{
		ID:        claims.UserID,
		Email:     claims.Email,
		FullName:  claims.FullName,
		Role:      claims.Role,
		TeacherID: claims.TeacherID,
	}
}

// Inbox godoc
// @Summary List notifications
// @Tags Notifications
// @Produce json
// @Param unread query bool false "Only unread notifications"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /notifications [get]
func (h *NotificationHandler) Inbox(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	unread, _ := strconv.ParseBool(c.DefaultQuery("unread", "false"))
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	notes, pagination, err := h.notifications.Inbox(c.Request.Context(), userInfoFromClaims(claims), unread, page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, notes, pagination)
}

// MarkRead godoc
// @Summary Mark notification as read
// @Tags Notifications
// @Produce json
// @Param id path string true "Notification ID"
// @Success 204 "No Content"
// @Router /notifications/{id}/read [post]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.notifications.MarkRead(c.Request.Context(), userInfoFromClaims(claims), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
