package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spoorthyconceptschool/spoorthy-school-system-sub002/internal/models"
	appErrors "github.com/spoorthyconceptschool/spoorthy-school-system-sub002/pkg/errors"
)

type notificationRepository interface {
	Create(ctx context.Context, note *models.Notification) error
	ListForUser(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, int, error)
	MarkRead(ctx context.Context, id, userID string, role models.UserRole) (bool, error)
}

// NotificationService serves the in-app inbox. Targeted messages match the
// recipient id, broadcasts match the recipient role; teachers read their
// inbox through the teacher id tied to their account.
type NotificationService struct {
	repo   notificationRepository
	logger *zap.Logger
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(repo notificationRepository, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{repo: repo, logger: logger}
}

// Inbox returns the user's notifications plus pagination data.
func (s *NotificationService) Inbox(ctx context.Context, user *models.UserInfo, unread bool, page, pageSize int) ([]models.Notification, *models.Pagination, error) {
	filter := models.NotificationFilter{
		UserID:   inboxRecipientID(user),
		Role:     user.Role,
		Unread:   unread,
		Page:     page,
		PageSize: pageSize,
	}
	notes, total, err := s.repo.ListForUser(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return notes, pagination, nil
}

// MarkRead marks one of the user's notifications read.
func (s *NotificationService) MarkRead(ctx context.Context, user *models.UserInfo, noteID string) error {
	updated, err := s.repo.MarkRead(ctx, noteID, inboxRecipientID(user), user.Role)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification read")
	}
	if !updated {
		return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
	}
	return nil
}

// Notify persists a standalone notification outside the review
// transaction, such as operational announcements.
func (s *NotificationService) Notify(ctx context.Context, note *models.Notification) error {
	if (note.RecipientID == nil) == (note.RecipientRole == nil) {
		return appErrors.Clone(appErrors.ErrValidation, "exactly one of recipient_id and recipient_role must be set")
	}
	if err := s.repo.Create(ctx, note); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create notification")
	}
	return nil
}

// inboxRecipientID resolves the id notifications for this user are
// addressed to. Leave notifications target the teacher record, so teacher
// accounts read through their linked teacher id.
func inboxRecipientID(user *models.UserInfo) string {
	if user.TeacherID != nil && *user.TeacherID != "" {
		return *user.TeacherID
	}
	return user.ID
}
