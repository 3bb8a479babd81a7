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

// BidHandler - структура для обработки HTTP-запросов к предложениям.
type BidHandler struct {
	Service *services.BidService
	Logger  *zap.SugaredLogger
	Timeout time.Duration
}

// NewBidHandler создает новый экземпляр BidHandler.
func NewBidHandler(service *services.BidService, logger *zap.SugaredLogger, timeout time.Duration) *BidHandler {
	return &BidHandler{
		Service: service,
		Logger:  logger,
		Timeout: timeout,
	}
}

// CreateBid обрабатывает подачу или повторную подачу предложения.
func (h *BidHandler) CreateBid(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var req models.BidRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		respondError(h.Logger, w, err)
		return
	}

	bid, created, err := h.Service.CreateOrUpdateBid(ctx, principal(r), req)
	if err != nil {
		respondError(h.Logger, w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	respond(h.Logger, w, status, bid)
}

// GetMyBids возвращает предложения текущего исполнителя.
func (h *BidHandler) GetMyBids(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	bids, err := h.Service.GetMyBids(ctx, principal(r))
	if err != nil {
		respondError(h.Logger, w, err)
		return
	}
	respond(h.Logger, w, http.StatusOK, bids)
}

// UpdateBid обрабатывает изменение предложения исполнителем.
func (h *BidHandler) UpdateBid(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var patch models.BidPatch
	if err := utils.DecodeJSON(w, r, &patch); err != nil {
		respondError(h.Logger, w, err)
		return
	}

	bid, err := h.Service.UpdateBid(ctx, principal(r), r.PathValue("bidId"), patch)
	if err != nil {
		respondError(h.Logger, w, err)
		return
	}
	respond(h.Logger, w, http.StatusOK, bid)
}

// SetBidStatus обрабатывает решение покупателя по предложению.
func (h *BidHandler) SetBidStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var req models.BidStatusRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		respondError(h.Logger, w, err)
		return
	}

	bid, err := h.Service.SetBidStatus(ctx, principal(r), r.PathValue("bidId"), req)
	if err != nil {
		respondError(h.Logger, w, err)
		return
	}
	respond(h.Logger, w, http.StatusOK, bid)
}

// DeleteBid обрабатывает удаление предложения.
func (h *BidHandler) DeleteBid(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	bidId := r.PathValue("bidId")
	if err := h.Service.DeleteBid(ctx, principal(r), bidId); err != nil {
		respondError(h.Logger, w, err)
		return
	}
	respond(h.Logger, w, http.StatusOK, map[string]string{"message": "bid deleted", "id": bidId})
}
