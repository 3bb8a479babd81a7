package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/karigarlink/rfq-service/internal/models"
	"github.com/karigarlink/rfq-service/internal/realtime"
	"github.com/karigarlink/rfq-service/internal/repository"

	"go.uber.org/zap"
)

// ChatService - обмен личными сообщениями между пользователями.
type ChatService struct {
	Repo     repository.MessageRepository
	Users    repository.UserRepository
	Notifier Notifier
	Pusher   Pusher
	Log      *zap.SugaredLogger
}

// NewChatService создает новый экземпляр ChatService.
func NewChatService(repo repository.MessageRepository, users repository.UserRepository, notifier Notifier, pusher Pusher, log *zap.SugaredLogger) *ChatService {
	return &ChatService{Repo: repo, Users: users, Notifier: notifier, Pusher: pusher, Log: log}
}

// SendMessage сохраняет сообщение, доставляет его получателю в реальном времени
// и создает уведомление NEW_MESSAGE.
func (s *ChatService) SendMessage(ctx context.Context, p models.Principal, req models.MessageRequest) (*models.Message, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	if req.RecipientID == p.ID {
		return nil, models.NewValidationError("cannot send a message to yourself")
	}
	if _, err := s.Users.GetUserSummary(ctx, req.RecipientID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, models.NewNotFoundError("recipient not found")
		}
		return nil, models.NewServerError(err)
	}

	msg, err := s.Repo.CreateMessage(ctx, p.ID, req.RecipientID, req.Content)
	if err != nil {
		if errors.Is(err, repository.ErrUnknownReference) {
			return nil, models.NewNotFoundError("recipient not found")
		}
		return nil, models.NewServerError(err)
	}
	msg.Sender = &models.UserSummary{ID: p.ID, Name: p.Name, Role: p.Role}

	s.Pusher.SendToUser(msg.RecipientID, realtime.EventMessage, msg)

	sender := p.Name
	if sender == "" {
		sender = "Someone"
	}
	if _, err := s.Notifier.Notify(ctx, models.NotificationRequest{
		RecipientID: msg.RecipientID,
		SenderID:    p.ID,
		Type:        models.NewMessage,
		Message:     fmt.Sprintf("New message from %s", sender),
		Link:        "/chat/" + p.ID,
	}); err != nil {
		s.Log.Errorw("failed to notify about message", "message", msg.ID, "error", err)
	}
	return msg, nil
}

// GetConversation возвращает переписку текущего пользователя с другим пользователем.
func (s *ChatService) GetConversation(ctx context.Context, p models.Principal, otherId string) ([]models.Message, error) {
	if !validID(otherId) {
		return nil, models.NewNotFoundError("user not found")
	}
	messages, err := s.Repo.GetConversation(ctx, p.ID, otherId)
	if err != nil {
		return nil, models.NewServerError(err)
	}
	return messages, nil
}

// GetConversations возвращает собеседников текущего пользователя.
func (s *ChatService) GetConversations(ctx context.Context, p models.Principal) ([]models.UserSummary, error) {
	partners, err := s.Repo.GetChatPartners(ctx, p.ID)
	if err != nil {
		return nil, models.NewServerError(err)
	}
	return partners, nil
}
