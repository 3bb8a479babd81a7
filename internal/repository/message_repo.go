package repository

import (
	"context"
	"time"

	"github.com/karigarlink/rfq-service/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/xerrors"
)

// MessageRepository - интерфейс для работы с сообщениями чата.
type MessageRepository interface {
	CreateMessage(ctx context.Context, senderId, recipientId, content string) (*models.Message, error)
	GetConversation(ctx context.Context, userId, otherId string) ([]models.Message, error)
	GetChatPartners(ctx context.Context, userId string) ([]models.UserSummary, error)
}

// PostgresMessageRepository - реализация MessageRepository для базы данных.
type PostgresMessageRepository struct {
	DB *pgxpool.Pool
}

// NewPostgresMessageRepository создает новый экземпляр PostgresMessageRepository.
func NewPostgresMessageRepository(db *pgxpool.Pool) *PostgresMessageRepository {
	return &PostgresMessageRepository{DB: db}
}

// CreateMessage сохраняет сообщение.
func (r *PostgresMessageRepository) CreateMessage(ctx context.Context, senderId, recipientId, content string) (*models.Message, error) {
	msg := models.Message{
		ID:          uuid.New().String(),
		SenderID:    senderId,
		RecipientID: recipientId,
		Content:     content,
		CreatedAt:   time.Now().UTC(),
	}
	insertQuery := `INSERT INTO message (id, sender_id, recipient_id, content, created_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.DB.Exec(ctx, insertQuery, msg.ID, msg.SenderID, msg.RecipientID, msg.Content, msg.CreatedAt); err != nil {
		return nil, xerrors.Errorf("insert message: %w", translate(err))
	}
	return &msg, nil
}

// GetConversation возвращает переписку двух пользователей, старые сообщения первыми.
func (r *PostgresMessageRepository) GetConversation(ctx context.Context, userId, otherId string) ([]models.Message, error) {
	query := `SELECT m.id, m.sender_id, m.recipient_id, m.content, m.created_at, u.id, u.name, u.role
		FROM message m
		JOIN users u ON u.id = m.sender_id
		WHERE (m.sender_id = $1 AND m.recipient_id = $2) OR (m.sender_id = $2 AND m.recipient_id = $1)
		ORDER BY m.created_at ASC`
	rows, err := r.DB.Query(ctx, query, userId, otherId)
	if err != nil {
		return nil, xerrors.Errorf("list conversation: %w", translate(err))
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		var msg models.Message
		var sender models.UserSummary
		if err := rows.Scan(&msg.ID, &msg.SenderID, &msg.RecipientID, &msg.Content, &msg.CreatedAt,
			&sender.ID, &sender.Name, &sender.Role); err != nil {
			return nil, xerrors.Errorf("scan message: %w", err)
		}
		msg.Sender = &sender
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// GetChatPartners возвращает собеседников пользователя, начиная с последней переписки.
func (r *PostgresMessageRepository) GetChatPartners(ctx context.Context, userId string) ([]models.UserSummary, error) {
	query := `SELECT u.id, u.name, u.role
		FROM (
			SELECT CASE WHEN sender_id = $1 THEN recipient_id ELSE sender_id END AS partner_id,
			       MAX(created_at) AS last_at
			FROM message
			WHERE sender_id = $1 OR recipient_id = $1
			GROUP BY partner_id
		) p
		JOIN users u ON u.id = p.partner_id
		ORDER BY p.last_at DESC`
	rows, err := r.DB.Query(ctx, query, userId)
	if err != nil {
		return nil, xerrors.Errorf("list chat partners: %w", translate(err))
	}
	defer rows.Close()

	partners := []models.UserSummary{}
	for rows.Next() {
		var u models.UserSummary
		if err := rows.Scan(&u.ID, &u.Name, &u.Role); err != nil {
			return nil, xerrors.Errorf("scan chat partner: %w", err)
		}
		partners = append(partners, u)
	}
	return partners, rows.Err()
}
