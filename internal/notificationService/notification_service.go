package notifications

import (
	"context"
	"fmt"
	"time"

	"farmerconnect/internal/events"
	"farmerconnect/internal/models"
	"farmerconnect/internal/repository"
	"farmerconnect/utils"
)

// NotificationService stores in-app notifications and publishes them as events
type NotificationService struct {
	store     repository.NotificationStore
	publisher events.Publisher
	now       func() time.Time
}

// NewNotificationService creates a new NotificationService instance
func NewNotificationService(store repository.NotificationStore, publisher events.Publisher) *NotificationService {
	if publisher == nil {
		publisher = events.LogPublisher{}
	}
	return &NotificationService{store: store, publisher: publisher, now: time.Now}
}

// Notify stores n for its user and publishes it. A publish failure is logged
// but does not fail the call since the notification is already stored.
func (s *NotificationService) Notify(ctx context.Context, n models.Notification) error {
	if n.UserID == "" {
		return nil
	}
	n.NotificationID = utils.GenerateID()
	n.Read = false
	n.CreatedAt = s.now().UTC()

	if err := s.store.CreateNotification(ctx, n); err != nil {
		return fmt.Errorf("service: failed to store notification for %s: %w", n.UserID, err)
	}
	if err := s.publisher.Publish(ctx, events.NotificationsChannel, n); err != nil {
		utils.Warn("NotificationService: publish failed", map[string]any{
			"notification_id": n.NotificationID,
			"user_id":         n.UserID,
			"error":           err.Error(),
		})
	}
	return nil
}

// List returns a page of the user's notifications, newest first
func (s *NotificationService) List(ctx context.Context, userID string, unreadOnly bool, page models.Page) ([]models.Notification, int, error) {
	list, total, err := s.store.ListNotifications(ctx, userID, unreadOnly, page)
	if err != nil {
		return nil, 0, fmt.Errorf("service: failed to list notifications for %s: %w", userID, err)
	}
	return list, total, nil
}

// UnreadCount returns how many notifications the user has not read
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	n, err := s.store.CountUnread(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("service: failed to count unread for %s: %w", userID, err)
	}
	return n, nil
}

// MarkRead marks one of the user's notifications read
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID string) error {
	if err := s.store.MarkNotificationRead(ctx, userID, notificationID); err != nil {
		return fmt.Errorf("service: failed to mark notification %s read: %w", notificationID, err)
	}
	return nil
}

// MarkAllRead marks every notification of the user read
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int, error) {
	n, err := s.store.MarkAllNotificationsRead(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("service: failed to mark all read for %s: %w", userID, err)
	}
	return n, nil
}
