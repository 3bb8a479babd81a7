package repository

import (
	"context"
	"time"

	"github.com/karigarlink/rfq-service/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/xerrors"
)

// NotificationRepository - интерфейс для работы с уведомлениями.
type NotificationRepository interface {
	CreateNotification(ctx context.Context, req models.NotificationRequest) (*models.Notification, error)
	GetNotifications(ctx context.Context, recipientId string, limit int) ([]models.Notification, error)
	CountUnread(ctx context.Context, recipientId string) (int, error)
	MarkRead(ctx context.Context, recipientId, notificationId string) error
	MarkAllRead(ctx context.Context, recipientId string) (int64, error)
}

// PostgresNotificationRepository - реализация NotificationRepository для базы данных.
type PostgresNotificationRepository struct {
	DB *pgxpool.Pool
}

// NewPostgresNotificationRepository создает новый экземпляр PostgresNotificationRepository.
func NewPostgresNotificationRepository(db *pgxpool.Pool) *PostgresNotificationRepository {
	return &PostgresNotificationRepository{DB: db}
}

// CreateNotification сохраняет новое непрочитанное уведомление.
func (r *PostgresNotificationRepository) CreateNotification(ctx context.Context, req models.NotificationRequest) (*models.Notification, error) {
	n := models.Notification{
		ID:          uuid.New().String(),
		RecipientID: req.RecipientID,
		SenderID:    req.SenderID,
		Type:        req.Type,
		Message:     req.Message,
		Link:        req.Link,
		IsRead:      false,
		CreatedAt:   time.Now().UTC(),
	}
	var sender *string
	if n.SenderID != "" {
		sender = &n.SenderID
	}

	insertQuery := `INSERT INTO notification (id, recipient_id, sender_id, type, message, link, is_read, created_at)
	                VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.DB.Exec(ctx, insertQuery, n.ID, n.RecipientID, sender, n.Type, n.Message, n.Link, n.IsRead, n.CreatedAt)
	if err != nil {
		return nil, xerrors.Errorf("insert notification: %w", translate(err))
	}
	return &n, nil
}

// GetNotifications возвращает уведомления получателя: непрочитанные первыми, затем новые.
func (r *PostgresNotificationRepository) GetNotifications(ctx context.Context, recipientId string, limit int) ([]models.Notification, error) {
	query := `SELECT id, recipient_id, COALESCE(sender_id::text, ''), type, message, link, is_read, created_at
		FROM notification
		WHERE recipient_id = $1
		ORDER BY is_read ASC, created_at DESC
		LIMIT $2`
	rows, err := r.DB.Query(ctx, query, recipientId, limit)
	if err != nil {
		return nil, xerrors.Errorf("list notifications: %w", translate(err))
	}
	defer rows.Close()

	notifications := []models.Notification{}
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.SenderID, &n.Type, &n.Message, &n.Link, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, xerrors.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// CountUnread возвращает число непрочитанных уведомлений получателя.
func (r *PostgresNotificationRepository) CountUnread(ctx context.Context, recipientId string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM notification WHERE recipient_id = $1 AND NOT is_read`
	if err := r.DB.QueryRow(ctx, query, recipientId).Scan(&count); err != nil {
		return 0, xerrors.Errorf("count unread: %w", translate(err))
	}
	return count, nil
}

// MarkRead отмечает уведомление прочитанным. Уже прочитанное уведомление не является ошибкой.
func (r *PostgresNotificationRepository) MarkRead(ctx context.Context, recipientId, notificationId string) error {
	query := `UPDATE notification SET is_read = TRUE WHERE id = $1 AND recipient_id = $2`
	tag, err := r.DB.Exec(ctx, query, notificationId, recipientId)
	if err != nil {
		return xerrors.Errorf("mark notification %s read: %w", notificationId, translate(err))
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAllRead отмечает прочитанными все уведомления получателя и возвращает число измененных.
func (r *PostgresNotificationRepository) MarkAllRead(ctx context.Context, recipientId string) (int64, error) {
	query := `UPDATE notification SET is_read = TRUE WHERE recipient_id = $1 AND NOT is_read`
	tag, err := r.DB.Exec(ctx, query, recipientId)
	if err != nil {
		return 0, xerrors.Errorf("mark all notifications read: %w", translate(err))
	}
	return tag.RowsAffected(), nil
}
