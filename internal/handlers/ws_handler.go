package handlers

import (
	"net/http"

	"github.com/karigarlink/rfq-service/internal/auth"
	"github.com/karigarlink/rfq-service/internal/models"
	"github.com/karigarlink/rfq-service/internal/realtime"

	"go.uber.org/zap"
)

// WSHandler переводит аутентифицированные запросы в websocket-подключения.
type WSHandler struct {
	Presence   realtime.Presence
	Tokens     *auth.TokenManager
	SendBuffer int
	Logger     *zap.SugaredLogger
}

// NewWSHandler создает новый экземпляр WSHandler.
func NewWSHandler(presence realtime.Presence, tokens *auth.TokenManager, sendBuffer int, logger *zap.SugaredLogger) *WSHandler {
	return &WSHandler{Presence: presence, Tokens: tokens, SendBuffer: sendBuffer, Logger: logger}
}

// ServeWS ожидает токен в параметре token: браузерный websocket не умеет
// передавать заголовок Authorization.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	p, err := h.Tokens.Verify(r.URL.Query().Get("token"))
	if err != nil {
		respondError(h.Logger, w, models.NewUnauthenticatedError("invalid or expired token"))
		return
	}

	if err := realtime.Serve(w, r, h.Presence, p.ID, h.SendBuffer, h.Logger); err != nil {
		// Upgrader уже отправил ответ с ошибкой
		h.Logger.Debugw("websocket upgrade failed", "user", p.ID, "error", err)
	}
}
