package models

import "time"

// NotificationType - тип уведомления
type NotificationType string

const (
	BidReceived NotificationType = "BID_RECEIVED"
	BidAccepted NotificationType = "BID_ACCEPTED"
	BidRejected NotificationType = "BID_REJECTED"
	NewMessage  NotificationType = "NEW_MESSAGE"
	OrderUpdate NotificationType = "ORDER_UPDATE"
)

// ValidNotificationType проверяет тип уведомления.
func ValidNotificationType(t NotificationType) bool {
	switch t {
	case BidReceived, BidAccepted, BidRejected, NewMessage, OrderUpdate:
		return true
	default:
		return false
	}
}

// Notification представляет модель уведомления пользователя.
// После создания меняется только флаг IsRead, и только с false на true.
type Notification struct {
	ID          string           `json:"id"`
	RecipientID string           `json:"recipientId"`
	SenderID    string           `json:"senderId,omitempty"`
	Type        NotificationType `json:"type"`
	Message     string           `json:"message"`
	Link        string           `json:"link,omitempty"`
	IsRead      bool             `json:"isRead"`
	CreatedAt   time.Time        `json:"createdAt"`
}

// NotificationRequest описывает уведомление, которое нужно создать и доставить.
type NotificationRequest struct {
	RecipientID string
	SenderID    string
	Type        NotificationType
	Message     string
	Link        string
}

// NotificationList - уведомления пользователя и число непрочитанных.
type NotificationList struct {
	Notifications []Notification `json:"notifications"`
	Unread        int            `json:"unread"`
}
