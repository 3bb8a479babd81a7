package models

import "time"

const MaxMessageLen = 2000

// Message представляет сообщение чата между двумя пользователями.
type Message struct {
	ID          string       `json:"id"`
	SenderID    string       `json:"senderId"`
	Sender      *UserSummary `json:"sender,omitempty"`
	RecipientID string       `json:"recipientId"`
	Content     string       `json:"content"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// MessageRequest представляет структуру запроса на отправку сообщения.
type MessageRequest struct {
	RecipientID string `json:"recipientId" validate:"required,uuid"`
	Content     string `json:"content" validate:"required,max=2000"`
}
