package models

// Role - роль пользователя на площадке
type Role string

const (
	Customer Role = "customer" // Покупатель, публикует RFQ
	Provider Role = "provider" // Исполнитель, подает предложения
)

// ValidRole проверяет роль пользователя.
func ValidRole(r Role) bool {
	return r == Customer || r == Provider
}

// UserSummary - краткие сведения о пользователе для вложения в ответы.
type UserSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}

// Principal - аутентифицированный пользователь, от имени которого выполняется операция.
type Principal struct {
	ID      string
	Role    Role
	Name    string
	IsAdmin bool
}
