package models

import "time"

// BidStatus - статус предложения
type BidStatus string

const (
	PendingBid  BidStatus = "pending"  // Предложение ожидает решения покупателя
	AcceptedBid BidStatus = "accepted" // Предложение принято
	RejectedBid BidStatus = "rejected" // Предложение отклонено

	MaxBidMessageLen = 500

	// Границы суммы предложения, которые помещаются в NUMERIC(14,2).
	MinBidAmount = 0.01
	MaxBidAmount = 999999999999.99
)

// Bid представляет модель предложения исполнителя по RFQ.
type Bid struct {
	ID              string       `json:"id"`
	RFQID           string       `json:"rfqId"`
	RFQ             *RFQ         `json:"rfq,omitempty"`
	ProviderID      string       `json:"providerId"`
	Provider        *UserSummary `json:"provider,omitempty"`
	Amount          float64      `json:"bidAmount"`
	Message         string       `json:"message,omitempty"`
	EtaDays         *int         `json:"etaDays,omitempty"`
	Status          BidStatus    `json:"status"`
	RejectionReason string       `json:"rejectionReason,omitempty"`
	Attachments     []string     `json:"attachments"`
	CreatedAt       time.Time    `json:"createdAt"`
	UpdatedAt       time.Time    `json:"updatedAt"`
}

// IsPending сообщает, можно ли еще менять предложение.
func (b *Bid) IsPending() bool {
	return b.Status == PendingBid
}

// BidRequest представляет структуру запроса на создание или повторную подачу предложения.
type BidRequest struct {
	RFQID       string   `json:"rfqId" validate:"required,uuid"`
	Amount      float64  `json:"bidAmount" validate:"money"`
	Message     string   `json:"message" validate:"max=500"`
	EtaDays     *int     `json:"etaDays" validate:"omitnil,min=1"`
	Attachments []string `json:"attachments" validate:"dive,required"`
}

// BidPatch содержит поля предложения, которые может менять исполнитель.
type BidPatch struct {
	Amount      *float64 `json:"bidAmount" validate:"omitnil,money"`
	Message     *string  `json:"message" validate:"omitnil,max=500"`
	EtaDays     *int     `json:"etaDays" validate:"omitnil,min=1"`
	Attachments []string `json:"attachments" validate:"omitempty,dive,required"`
}

// Apply переносит заданные поля патча в bid.
func (p BidPatch) Apply(bid *Bid) {
	if p.Amount != nil {
		bid.Amount = *p.Amount
	}
	if p.Message != nil {
		bid.Message = *p.Message
	}
	if p.EtaDays != nil {
		bid.EtaDays = p.EtaDays
	}
	if p.Attachments != nil {
		bid.Attachments = p.Attachments
	}
}

// BidStatusRequest - решение покупателя по предложению.
type BidStatusRequest struct {
	Status          BidStatus `json:"status" validate:"required,oneof=accepted rejected"`
	RejectionReason string    `json:"rejectionReason" validate:"max=500"`
}

// BidStats - агрегированная статистика по предложениям одного RFQ.
// Поля сумм отсутствуют, если предложений нет.
type BidStats struct {
	TotalBids    int      `json:"totalBids"`
	PendingBids  int      `json:"pendingBids"`
	AcceptedBids int      `json:"acceptedBids"`
	RejectedBids int      `json:"rejectedBids"`
	MinBid       *float64 `json:"minBid,omitempty"`
	MaxBid       *float64 `json:"maxBid,omitempty"`
	AvgBid       *float64 `json:"avgBid,omitempty"`
}

// RFQBids - предложения по RFQ вместе со статистикой.
type RFQBids struct {
	Bids  []Bid    `json:"bids"`
	Stats BidStats `json:"stats"`
}
