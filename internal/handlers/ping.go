package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Pinger - проверка доступности зависимости, например пула соединений с базой.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewPingHandler создает обработчик GET /api/ping. Ответ "ok" возвращается,
// только если база данных отвечает.
func NewPingHandler(db Pinger, logger *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status, body := http.StatusOK, "ok"
		if err := db.Ping(ctx); err != nil {
			logger.Warnw("health check failed", "error", err)
			status, body = http.StatusServiceUnavailable, "database unavailable"
		}

		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(status)
		if _, err := fmt.Fprint(w, body); err != nil {
			logger.Warnw("failed to write response", "error", err)
		}
	}
}
