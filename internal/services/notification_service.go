package services

import (
	"context"
	"errors"

	"github.com/karigarlink/rfq-service/internal/metrics"
	"github.com/karigarlink/rfq-service/internal/models"
	"github.com/karigarlink/rfq-service/internal/realtime"
	"github.com/karigarlink/rfq-service/internal/repository"

	"go.uber.org/zap"
)

const notificationsPageSize = 50

// Notifier создает уведомление и доставляет его получателю.
type Notifier interface {
	Notify(ctx context.Context, req models.NotificationRequest) (*models.Notification, error)
}

// Pusher доставляет событие подключенному пользователю без блокировки.
type Pusher interface {
	SendToUser(userId, event string, payload any) bool
}

// NotificationService сохраняет уведомления и отправляет их в реальном времени.
type NotificationService struct {
	Repo   repository.NotificationRepository
	Pusher Pusher
	Log    *zap.SugaredLogger
}

// NewNotificationService создает новый экземпляр NotificationService.
func NewNotificationService(repo repository.NotificationRepository, pusher Pusher, log *zap.SugaredLogger) *NotificationService {
	return &NotificationService{Repo: repo, Pusher: pusher, Log: log}
}

// Notify сохраняет уведомление и, если получатель подключен, ставит его в очередь
// доставки. Доставка не подтверждается и не повторяется: источником истины остается
// сохраненная запись, поэтому результат push не влияет на результат вызова.
func (s *NotificationService) Notify(ctx context.Context, req models.NotificationRequest) (*models.Notification, error) {
	if req.RecipientID == "" || req.Message == "" || !models.ValidNotificationType(req.Type) {
		return nil, models.NewValidationError("notification requires recipient, message and a known type")
	}

	n, err := s.Repo.CreateNotification(ctx, req)
	if err != nil {
		if errors.Is(err, repository.ErrUnknownReference) {
			return nil, models.NewNotFoundError("notification recipient not found")
		}
		return nil, models.NewServerError(err)
	}
	metrics.Notifications.WithLabelValues(string(n.Type)).Inc()

	if !s.Pusher.SendToUser(n.RecipientID, realtime.EventNotification, n) {
		s.Log.Debugw("notification stored without realtime delivery", "recipient", n.RecipientID, "type", n.Type)
	}
	return n, nil
}

// GetNotifications возвращает уведомления пользователя и число непрочитанных.
func (s *NotificationService) GetNotifications(ctx context.Context, p models.Principal) (*models.NotificationList, error) {
	list, err := s.Repo.GetNotifications(ctx, p.ID, notificationsPageSize)
	if err != nil {
		return nil, models.NewServerError(err)
	}
	unread, err := s.Repo.CountUnread(ctx, p.ID)
	if err != nil {
		return nil, models.NewServerError(err)
	}
	return &models.NotificationList{Notifications: list, Unread: unread}, nil
}

// MarkRead отмечает уведомление пользователя прочитанным. Повторный вызов не является ошибкой.
func (s *NotificationService) MarkRead(ctx context.Context, p models.Principal, notificationId string) error {
	if !validID(notificationId) {
		return models.NewNotFoundError("notification not found")
	}
	if err := s.Repo.MarkRead(ctx, p.ID, notificationId); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.NewNotFoundError("notification not found")
		}
		return models.NewServerError(err)
	}
	return nil
}

// MarkAllRead отмечает прочитанными все уведомления пользователя и возвращает число измененных.
func (s *NotificationService) MarkAllRead(ctx context.Context, p models.Principal) (int64, error) {
	updated, err := s.Repo.MarkAllRead(ctx, p.ID)
	if err != nil {
		return 0, models.NewServerError(err)
	}
	return updated, nil
}
