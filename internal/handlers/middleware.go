package handlers

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/karigarlink/rfq-service/internal/auth"
	"github.com/karigarlink/rfq-service/internal/models"
	"github.com/karigarlink/rfq-service/internal/utils"

	"go.uber.org/zap"
)

// Authenticator проверяет токен запроса и кладет пользователя в контекст.
type Authenticator struct {
	Tokens *auth.TokenManager
	Logger *zap.SugaredLogger
}

// NewAuthenticator создает новый экземпляр Authenticator.
func NewAuthenticator(tokens *auth.TokenManager, logger *zap.SugaredLogger) *Authenticator {
	return &Authenticator{Tokens: tokens, Logger: logger}
}

// Require пропускает запрос дальше только с действительным Bearer-токеном.
func (a *Authenticator) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			a.reject(w, "missing bearer token")
			return
		}
		p, err := a.Tokens.Verify(strings.TrimSpace(token))
		if err != nil {
			a.Logger.Debugw("rejected token", "path", r.URL.Path, "error", err)
			a.reject(w, "invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
	})
}

func (a *Authenticator) reject(w http.ResponseWriter, reason string) {
	if err := utils.SendErrorResponse(w, models.NewUnauthenticatedError(reason)); err != nil {
		a.Logger.Warnw("failed to write response", "error", err)
	}
}

// principal возвращает пользователя, положенного в контекст Authenticator.Require.
func principal(r *http.Request) models.Principal {
	p, _ := auth.PrincipalFromContext(r.Context())
	return p
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Hijack нужен для перевода соединения в websocket.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

// LogRequests пишет в журнал метод, путь, код ответа и длительность каждого запроса.
func LogRequests(logger *zap.SugaredLogger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Infow("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

// respondError отправляет ошибку клиенту. Ошибки сервера пишутся в журнал с причиной.
func respondError(logger *zap.SugaredLogger, w http.ResponseWriter, err error) {
	errResp := utils.AsErrorResponse(err)
	if errResp.Kind == models.ServerKind {
		logger.Errorw("request failed", "error", err)
	} else {
		logger.Debugw("request rejected", "kind", errResp.Kind, "reason", errResp.Message)
	}
	if err := utils.SendErrorResponse(w, errResp); err != nil {
		logger.Warnw("failed to write response", "error", err)
	}
}

func respond(logger *zap.SugaredLogger, w http.ResponseWriter, statusCode int, payload any) {
	if err := utils.SendJSON(w, statusCode, payload); err != nil {
		logger.Warnw("failed to write response", "error", err)
	}
}
