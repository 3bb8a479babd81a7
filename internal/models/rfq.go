package models

import (
	"math"
	"time"
)

type (
	RFQStatus string // Статус запроса котировок
	RFQSort   string // Порядок сортировки списка запросов
)

const (
	ActiveRFQ RFQStatus = "active" // Запрос открыт для предложений
	ClosedRFQ RFQStatus = "closed" // Запрос закрыт, одно из предложений принято

	SortNewest  RFQSort = "newest"
	SortOldest  RFQSort = "oldest"
	SortQtyAsc  RFQSort = "qty_asc"
	SortQtyDesc RFQSort = "qty_desc"

	MaxQuantity = math.MaxInt32 // Предел колонки quantity INTEGER
)

// ValidRFQSort проверяет, поддерживается ли ключ сортировки.
func ValidRFQSort(s RFQSort) bool {
	switch s {
	case SortNewest, SortOldest, SortQtyAsc, SortQtyDesc:
		return true
	default:
		return false
	}
}

// RFQ представляет модель запроса котировок покупателя.
type RFQ struct {
	ID                 string       `json:"id"`
	BuyerID            string       `json:"buyerId"`
	Buyer              *UserSummary `json:"buyer,omitempty"`
	Title              string       `json:"title,omitempty"`
	Description        string       `json:"description"`
	Category           string       `json:"category,omitempty"`
	Quantity           int          `json:"quantity"`
	Specs              string       `json:"specs,omitempty"`
	Deadline           time.Time    `json:"deadline"`
	Status             RFQStatus    `json:"status"`
	AllowNegotiation   bool         `json:"allowNegotiation"`
	LocationPreference string       `json:"locationPreference,omitempty"`
	Attachments        []string     `json:"attachments"`
	CreatedAt          time.Time    `json:"createdAt"`
	UpdatedAt          time.Time    `json:"updatedAt"`
}

// IsActive сообщает, принимает ли запрос новые предложения.
func (r *RFQ) IsActive() bool {
	return r.Status == ActiveRFQ
}

// RFQRequest представляет структуру запроса на создание RFQ.
type RFQRequest struct {
	Title              string     `json:"title" validate:"max=200"`
	Description        string     `json:"description" validate:"required"`
	Category           string     `json:"category" validate:"max=100"`
	Quantity           int        `json:"quantity" validate:"required,min=1,max=2147483647"`
	Specs              string     `json:"specs"`
	Deadline           *time.Time `json:"deadline" validate:"required"`
	AllowNegotiation   *bool      `json:"allowNegotiation"`
	LocationPreference string     `json:"locationPreference"`
	Attachments        []string   `json:"attachments" validate:"dive,required"`
}

// RFQPatch содержит изменяемые владельцем поля RFQ. Поля, равные nil, не меняются.
type RFQPatch struct {
	Title              *string    `json:"title" validate:"omitnil,max=200"`
	Description        *string    `json:"description" validate:"omitnil,min=1"`
	Category           *string    `json:"category" validate:"omitnil,max=100"`
	Quantity           *int       `json:"quantity" validate:"omitnil,min=1,max=2147483647"`
	Specs              *string    `json:"specs"`
	Deadline           *time.Time `json:"deadline"`
	AllowNegotiation   *bool      `json:"allowNegotiation"`
	LocationPreference *string    `json:"locationPreference"`
	Attachments        []string   `json:"attachments" validate:"omitempty,dive,required"`
}

// Apply переносит заданные поля патча в rfq.
func (p RFQPatch) Apply(rfq *RFQ) {
	if p.Title != nil {
		rfq.Title = *p.Title
	}
	if p.Description != nil {
		rfq.Description = *p.Description
	}
	if p.Category != nil {
		rfq.Category = *p.Category
	}
	if p.Quantity != nil {
		rfq.Quantity = *p.Quantity
	}
	if p.Specs != nil {
		rfq.Specs = *p.Specs
	}
	if p.Deadline != nil {
		rfq.Deadline = *p.Deadline
	}
	if p.AllowNegotiation != nil {
		rfq.AllowNegotiation = *p.AllowNegotiation
	}
	if p.LocationPreference != nil {
		rfq.LocationPreference = *p.LocationPreference
	}
	if p.Attachments != nil {
		rfq.Attachments = p.Attachments
	}
}

// RFQFilter описывает фильтры, пагинацию и сортировку списка RFQ.
type RFQFilter struct {
	Query          string
	Category       string
	Status         RFQStatus
	MinQty         *int
	MaxQty         *int
	DeadlineBefore *time.Time
	DeadlineAfter  *time.Time
	Page           int
	Limit          int
	Sort           RFQSort
}

// Offset возвращает смещение первой записи страницы.
func (f RFQFilter) Offset() int {
	if f.Page < 1 || f.Limit < 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}

// PageMeta описывает метаданные страницы.
type PageMeta struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}

// RFQPage - страница результатов поиска RFQ.
type RFQPage struct {
	Meta PageMeta `json:"meta"`
	Data []RFQ    `json:"data"`
}
