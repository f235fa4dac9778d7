package services

import (
	"errors"

	"gorm.io/gorm"

	apperrors "likha/internal/errors"
	"likha/internal/identity"
	"likha/internal/logger"
	"likha/internal/models"
	"likha/internal/pagination"
)

// notificationService appends and reads per-identity notifications.
type notificationService struct {
	db *gorm.DB
}

// NewNotificationService creates a new NotificationServicer.
func NewNotificationService(db *gorm.DB) NotificationServicer {
	return &notificationService{db: db}
}

// Notify appends a notification. Failures are logged and swallowed:
// notifications are a side effect and must never fail the action that
// produced them.
func (s *notificationService) Notify(ownerKey, notificationType, title, description, metadata string) {
	notification := &models.Notification{
		OwnerKey:    ownerKey,
		Type:        notificationType,
		Title:       title,
		Description: description,
		Metadata:    metadata,
	}
	if err := s.db.Create(notification).Error; err != nil {
		logger.Get().Warnw("failed to store notification",
			"type", notificationType, "error", err)
	}
}

// GetNotifications returns the identity's notifications, newest first.
func (s *notificationService) GetNotifications(owner identity.Identity, page pagination.PageRequest) (*pagination.PageResponse[models.Notification], error) {
	page.Defaults()

	base := s.db.Model(&models.Notification{}).Where("owner_key = ?", owner.Key())

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var notifications []models.Notification
	if err := base.Scopes(pagination.Paginate(page)).
		Order("created_at DESC").
		Find(&notifications).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(notifications, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// MarkRead marks one of the identity's notifications as read.
func (s *notificationService) MarkRead(owner identity.Identity, notificationID uint) error {
	var notification models.Notification
	err := s.db.Where("id = ? AND owner_key = ?", notificationID, owner.Key()).
		First(&notification).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrNotFound
		}
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := s.db.Model(&notification).Update("read", true).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
