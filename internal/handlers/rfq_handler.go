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

// RFQHandler - структура для обработки HTTP-запросов к RFQ.
type RFQHandler struct {
	Service *services.RFQService
	Logger  *zap.SugaredLogger
	Timeout time.Duration
}

// NewRFQHandler создает новый экземпляр RFQHandler.
func NewRFQHandler(service *services.RFQService, logger *zap.SugaredLogger, timeout time.Duration) *RFQHandler {
	return &RFQHandler{
		Service: service,
		Logger:  logger,
		Timeout: timeout,
	}
}

// CreateRFQ обрабатывает запросы для создания RFQ.
func (h *RFQHandler) CreateRFQ(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var req models.RFQRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		respondError(h.Logger, w, err)
		return
	}

	rfq, err := h.Service.CreateRFQ(ctx, principal(r), req)
	if err != nil {
		respondError(h.Logger, w, err)
		return
	}
	respond(h.Logger, w, http.StatusCreated, rfq)
}

// ListRFQs обрабатывает поиск RFQ с фильтрами и пагинацией.
func (h *RFQHandler) ListRFQs(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	filter, err := utils.ParseRFQFilter(r.URL.Query())
	if err != nil {
		respondError(h.Logger, w, err)
		return
	}

	page, err := h.Service.ListRFQs(ctx, filter)
	if err != nil {
		respondError(h.Logger, w, err)
		return
	}
	respond(h.Logger, w, http.StatusOK, page)
}

// GetRFQ обрабатывает запросы для получения RFQ по идентификатору.
func (h *RFQHandler) GetRFQ(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	rfq, err := h.Service.GetRFQ(ctx, r.PathValue("rfqId"))
	if err != nil {
		respondError(h.Logger, w, err)
		return
	}
	respond(h.Logger, w, http.StatusOK, rfq)
}

// GetMyRFQs возвращает RFQ текущего покупателя.
func (h *RFQHandler) GetMyRFQs(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	rfqs, err := h.Service.GetMyRFQs(ctx, principal(r))
	if err != nil {
		respondError(h.Logger, w, err)
		return
	}
	respond(h.Logger, w, http.StatusOK, rfqs)
}

// UpdateRFQ обрабатывает частичное изменение RFQ владельцем.
func (h *RFQHandler) UpdateRFQ(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var patch models.RFQPatch
	if err := utils.DecodeJSON(w, r, &patch); err != nil {
		respondError(h.Logger, w, err)
		return
	}

	rfq, err := h.Service.UpdateRFQ(ctx, principal(r), r.PathValue("rfqId"), patch)
	if err != nil {
		respondError(h.Logger, w, err)
		return
	}
	respond(h.Logger, w, http.StatusOK, rfq)
}

// DeleteRFQ обрабатывает удаление RFQ владельцем.
func (h *RFQHandler) DeleteRFQ(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	rfqId := r.PathValue("rfqId")
	if err := h.Service.DeleteRFQ(ctx, principal(r), rfqId); err != nil {
		respondError(h.Logger, w, err)
		return
	}
	respond(h.Logger, w, http.StatusOK, map[string]string{"message": "rfq deleted", "id": rfqId})
}

// GetRFQBids возвращает предложения по RFQ вместе со статистикой.
func (h *RFQHandler) GetRFQBids(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	bids, err := h.Service.GetRFQBids(ctx, principal(r), r.PathValue("rfqId"))
	if err != nil {
		respondError(h.Logger, w, err)
		return
	}
	respond(h.Logger, w, http.StatusOK, bids)
}
