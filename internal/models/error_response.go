package models

import "net/http"

// ErrorKind - машинно-различимый вид ошибки
type ErrorKind string

const (
	ValidationKind      ErrorKind = "validation"
	AuthorizationKind   ErrorKind = "authorization"
	NotFoundKind        ErrorKind = "not_found"
	InvalidStateKind    ErrorKind = "invalid_state"
	ServerKind          ErrorKind = "server"
	UnauthenticatedKind ErrorKind = "unauthenticated"
)

// ErrorResponse описывает ошибку с видом, кодом и сообщением.
type ErrorResponse struct {
	Kind       ErrorKind `json:"kind"`
	StatusCode int       `json:"-"`
	Message    string    `json:"reason"`
	Cause      error     `json:"-"`
}

// NewErrorResponse создает новую ошибку с видом, кодом и сообщением.
func NewErrorResponse(kind ErrorKind, statusCode int, message string) *ErrorResponse {
	return &ErrorResponse{
		Kind:       kind,
		StatusCode: statusCode,
		Message:    message}
}

func NewValidationError(message string) *ErrorResponse {
	return NewErrorResponse(ValidationKind, http.StatusBadRequest, message)
}

func NewAuthorizationError(message string) *ErrorResponse {
	return NewErrorResponse(AuthorizationKind, http.StatusForbidden, message)
}

func NewNotFoundError(message string) *ErrorResponse {
	return NewErrorResponse(NotFoundKind, http.StatusNotFound, message)
}

func NewInvalidStateError(message string) *ErrorResponse {
	return NewErrorResponse(InvalidStateKind, http.StatusBadRequest, message)
}

func NewUnauthenticatedError(message string) *ErrorResponse {
	return NewErrorResponse(UnauthenticatedKind, http.StatusUnauthorized, message)
}

// NewServerError создает ошибку сервера. Причина попадает только в журнал,
// клиенту уходит общее сообщение.
func NewServerError(cause error) *ErrorResponse {
	e := NewErrorResponse(ServerKind, http.StatusInternalServerError, "internal server error")
	e.Cause = cause
	return e
}

// Реализация метода Error() для удовлетворения интерфейса error.
func (e *ErrorResponse) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ErrorResponse) Unwrap() error {
	return e.Cause
}
