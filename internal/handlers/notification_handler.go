package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/karigarlink/rfq-service/internal/services"

	"go.uber.org/zap"
)

// NotificationHandler обслуживает уведомления текущего пользователя.
type NotificationHandler struct {
	Service *services.NotificationService
	Logger  *zap.SugaredLogger
	Timeout time.Duration
}

// NewNotificationHandler создает новый экземпляр NotificationHandler.
func NewNotificationHandler(service *services.NotificationService, logger *zap.SugaredLogger, timeout time.Duration) *NotificationHandler {
	return &NotificationHandler{Service: service, Logger: logger, Timeout: timeout}
}

func (h *NotificationHandler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	list, err := h.Service.GetNotifications(ctx, principal(r))
	if err != nil {
		respondError(h.Logger, w, err)
		return
	}
	respond(h.Logger, w, http.StatusOK, list)
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	if err := h.Service.MarkRead(ctx, principal(r), r.PathValue("notificationId")); err != nil {
		respondError(h.Logger, w, err)
		return
	}
	respond(h.Logger, w, http.StatusOK, map[string]string{"message": "notification marked as read"})
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	updated, err := h.Service.MarkAllRead(ctx, principal(r))
	if err != nil {
		respondError(h.Logger, w, err)
		return
	}
	respond(h.Logger, w, http.StatusOK, map[string]any{"message": "all notifications marked as read", "updated": updated})
}
