package utils

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/karigarlink/rfq-service/internal/models"
)

const maxBodySize = 1 << 20

// SendJSON отправляет ответ в формате JSON с указанным кодом.
func SendJSON(w http.ResponseWriter, statusCode int, payload any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(payload)
}

// SendErrorResponse отправляет ошибку в формате JSON: {"kind": ..., "reason": ...}.
func SendErrorResponse(w http.ResponseWriter, errResp *models.ErrorResponse) error {
	return SendJSON(w, errResp.StatusCode, errResp)
}

// AsErrorResponse приводит произвольную ошибку к ErrorResponse.
// Неизвестные ошибки считаются ошибками сервера.
func AsErrorResponse(err error) *models.ErrorResponse {
	var errResp *models.ErrorResponse
	if errors.As(err, &errResp) {
		return errResp
	}
	return models.NewServerError(err)
}

// DecodeJSON читает тело запроса в dst. Пустое или некорректное тело - ошибка валидации.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return models.NewValidationError("request body is empty")
		case errors.As(err, &maxErr):
			return models.NewValidationError("request body is too large")
		default:
			return models.NewValidationError("invalid request body")
		}
	}
	return nil
}

// ParseRFQFilter разбирает параметры поиска RFQ из строки запроса.
// Пагинация и сортировка нормализуются сервисом, здесь проверяется только формат.
func ParseRFQFilter(q url.Values) (models.RFQFilter, error) {
	filter := models.RFQFilter{
		Query:    strings.TrimSpace(q.Get("q")),
		Category: strings.TrimSpace(q.Get("category")),
		Status:   models.RFQStatus(q.Get("status")),
		Sort:     models.RFQSort(q.Get("sort")),
	}

	var err error
	if filter.Page, err = parseInt(q, "page"); err != nil {
		return filter, err
	}
	if filter.Limit, err = parseInt(q, "limit"); err != nil {
		return filter, err
	}
	if filter.MinQty, err = parseOptionalInt(q, "minQty"); err != nil {
		return filter, err
	}
	if filter.MaxQty, err = parseOptionalInt(q, "maxQty"); err != nil {
		return filter, err
	}
	if filter.DeadlineBefore, err = parseDate(q, "deadlineBefore"); err != nil {
		return filter, err
	}
	if filter.DeadlineAfter, err = parseDate(q, "deadlineAfter"); err != nil {
		return filter, err
	}
	return filter, nil
}

func parseInt(q url.Values, key string) (int, error) {
	raw := q.Get(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, models.NewValidationError("invalid " + key + " parameter, must be an integer")
	}
	return v, nil
}

func parseOptionalInt(q url.Values, key string) (*int, error) {
	if q.Get(key) == "" {
		return nil, nil
	}
	v, err := parseInt(q, key)
	if err != nil {
		return nil, err
	}
	if v < 0 {
		return nil, models.NewValidationError("invalid " + key + " parameter, must be non-negative")
	}
	return &v, nil
}

// parseDate принимает RFC 3339 или дату вида 2006-01-02.
func parseDate(q url.Values, key string) (*time.Time, error) {
	raw := q.Get(key)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, models.NewValidationError("invalid " + key + " parameter, expected RFC 3339 or YYYY-MM-DD")
}
