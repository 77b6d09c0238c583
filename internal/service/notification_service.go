package service

import (
	"context"

	"expert-crm/internal/model"
	"expert-crm/internal/repository"
)

type NotificationService struct {
	notifications *repository.NotificationRepository
}

func NewNotificationService(notifications *repository.NotificationRepository) *NotificationService {
	return &NotificationService{notifications: notifications}
}

func (s *NotificationService) ListForUser(ctx context.Context, userID string, page int, limit int) ([]model.Notification, model.Meta, error) {
	return s.notifications.ListForUser(ctx, userID, page, limit)
}

func (s *NotificationService) MarkRead(ctx context.Context, userID string, notificationID int64) error {
	return s.notifications.MarkRead(ctx, userID, notificationID)
}
