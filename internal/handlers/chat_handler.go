package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/karigarlink/rfq-service/internal/models"
	"github.com/karigarlink/rfq-service/internal/services"
	"github.com/karigarlink/rfq-service/internal/utils"

	"go.uber.org/zap"
)

// ChatHandler обслуживает личные сообщения.
type ChatHandler struct {
	Service *services.ChatService
	Logger  *zap.SugaredLogger
	Timeout time.Duration
}

// NewChatHandler создает новый экземпляр ChatHandler.
func NewChatHandler(service *services.ChatService, logger *zap.SugaredLogger, timeout time.Duration) *ChatHandler {
	return &ChatHandler{Service: service, Logger: logger, Timeout: timeout}
}

// SendMessage отправляет сообщение другому пользователю.
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var req models.MessageRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		respondError(h.Logger, w, err)
		return
	}

	msg, err := h.Service.SendMessage(ctx, principal(r), req)
	if err != nil {
		respondError(h.Logger, w, err)
		return
	}
	respond(h.Logger, w, http.StatusCreated, msg)
}

// GetConversation возвращает переписку с пользователем из пути запроса.
func (h *ChatHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	messages, err := h.Service.GetConversation(ctx, principal(r), r.PathValue("userId"))
	if err != nil {
		respondError(h.Logger, w, err)
		return
	}
	respond(h.Logger, w, http.StatusOK, messages)
}

// GetConversations возвращает список собеседников.
func (h *ChatHandler) GetConversations(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	partners, err := h.Service.GetConversations(ctx, principal(r))
	if err != nil {
		respondError(h.Logger, w, err)
		return
	}
	respond(h.Logger, w, http.StatusOK, partners)
}
