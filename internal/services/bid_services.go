package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/karigarlink/rfq-service/internal/metrics"
	"github.com/karigarlink/rfq-service/internal/models"
	"github.com/karigarlink/rfq-service/internal/repository"

	"go.uber.org/zap"
)

type BidService struct {
	Repo     repository.BidRepository
	RFQs     repository.RFQRepository
	Notifier Notifier
	Log      *zap.SugaredLogger
}

// NewBidService создает новый экземпляр BidService.
func NewBidService(repo repository.BidRepository, rfqs repository.RFQRepository, notifier Notifier, log *zap.SugaredLogger) *BidService {
	return &BidService{Repo: repo, RFQs: rfqs, Notifier: notifier, Log: log}
}

// CreateOrUpdateBid подает предложение исполнителя по RFQ. Повторная подача тем же
// исполнителем заменяет его предложение и возвращает его в статус pending;
// created равен false, если было обновлено существующее предложение.
func (s *BidService) CreateOrUpdateBid(ctx context.Context, p models.Principal, req models.BidRequest) (bid *models.Bid, created bool, err error) {
	if err := validateRequest(req); err != nil {
		return nil, false, err
	}
	if err := RequireRole(p, models.Provider); err != nil {
		return nil, false, err
	}

	rfq, err := s.loadRFQ(ctx, req.RFQID)
	if err != nil {
		return nil, false, err
	}
	if !rfq.IsActive() {
		return nil, false, models.NewInvalidStateError("rfq is closed for bidding")
	}
	if rfq.BuyerID == p.ID {
		return nil, false, models.NewAuthorizationError("cannot bid on your own rfq")
	}

	bid, created, err = s.Repo.UpsertBid(ctx, &models.Bid{
		RFQID:       req.RFQID,
		ProviderID:  p.ID,
		Amount:      req.Amount,
		Message:     req.Message,
		EtaDays:     req.EtaDays,
		Attachments: req.Attachments,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrRFQNotActive):
			return nil, false, models.NewInvalidStateError("rfq is closed for bidding")
		case errors.Is(err, repository.ErrUnknownReference):
			return nil, false, models.NewAuthorizationError("provider account is not registered")
		case errors.Is(err, repository.ErrValueOutOfRange):
			return nil, false, models.NewValidationError("bidAmount is out of range")
		}
		return nil, false, models.NewServerError(err)
	}

	outcome, verb := "resubmitted", "updated"
	if created {
		outcome, verb = "created", "new"
	}
	metrics.BidsSubmitted.WithLabelValues(outcome).Inc()

	s.notify(ctx, models.NotificationRequest{
		RecipientID: rfq.BuyerID,
		SenderID:    p.ID,
		Type:        models.BidReceived,
		Message:     fmt.Sprintf("%s placed a %s bid of %.2f on \"%s\"", providerName(p), verb, bid.Amount, rfqLabel(rfq)),
		Link:        "/rfq/" + rfq.ID + "/bids",
	})
	return bid, created, nil
}

// GetMyBids возвращает предложения текущего исполнителя, новые первыми.
func (s *BidService) GetMyBids(ctx context.Context, p models.Principal) ([]models.Bid, error) {
	if err := RequireRole(p, models.Provider); err != nil {
		return nil, err
	}
	bids, err := s.Repo.GetProviderBids(ctx, p.ID)
	if err != nil {
		return nil, models.NewServerError(err)
	}
	return bids, nil
}

// UpdateBid редактирует предложение исполнителя, пока оно в статусе pending.
func (s *BidService) UpdateBid(ctx context.Context, p models.Principal, bidId string, patch models.BidPatch) (*models.Bid, error) {
	if err := RequireRole(p, models.Provider); err != nil {
		return nil, err
	}
	bid, err := s.loadBid(ctx, bidId)
	if err != nil {
		return nil, err
	}
	if bid.ProviderID != p.ID {
		return nil, models.NewAuthorizationError("not authorized to update this bid")
	}
	if !bid.IsPending() {
		return nil, models.NewInvalidStateError("only pending bids can be updated")
	}
	if err := validateRequest(patch); err != nil {
		return nil, err
	}

	patch.Apply(bid)
	updated, err := s.Repo.EditBid(ctx, bid)
	if err != nil {
		return nil, bidError(err)
	}
	return updated, nil
}

// SetBidStatus принимает или отклоняет предложение. Решение принимает только
// владелец RFQ. Принятие закрывает RFQ в той же транзакции.
func (s *BidService) SetBidStatus(ctx context.Context, p models.Principal, bidId string, req models.BidStatusRequest) (*models.Bid, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	bid, err := s.loadBid(ctx, bidId)
	if err != nil {
		return nil, err
	}
	rfq, err := s.loadRFQ(ctx, bid.RFQID)
	if err != nil {
		return nil, err
	}
	if rfq.BuyerID != p.ID {
		return nil, models.NewAuthorizationError("only the rfq owner can decide on bids")
	}

	var (
		result  *models.Bid
		changed bool
		note    models.NotificationRequest
	)
	switch req.Status {
	case models.AcceptedBid:
		result, changed, err = s.Repo.AcceptBid(ctx, bidId)
		note = models.NotificationRequest{
			Type:    models.BidAccepted,
			Message: fmt.Sprintf("Your bid on \"%s\" was accepted", rfqLabel(rfq)),
		}
	case models.RejectedBid:
		result, changed, err = s.Repo.RejectBid(ctx, bidId, req.RejectionReason)
		msg := fmt.Sprintf("Your bid on \"%s\" was rejected", rfqLabel(rfq))
		if req.RejectionReason != "" {
			msg += ": " + req.RejectionReason
		}
		note = models.NotificationRequest{Type: models.BidRejected, Message: msg}
	}
	if err != nil {
		return nil, bidError(err)
	}
	if !changed {
		return result, nil
	}

	metrics.BidDecisions.WithLabelValues(string(result.Status)).Inc()
	note.RecipientID = result.ProviderID
	note.SenderID = p.ID
	note.Link = "/bids/me"
	s.notify(ctx, note)
	return result, nil
}

// DeleteBid удаляет предложение. Удалить его может исполнитель, владелец RFQ
// или администратор.
func (s *BidService) DeleteBid(ctx context.Context, p models.Principal, bidId string) error {
	bid, err := s.loadBid(ctx, bidId)
	if err != nil {
		return err
	}
	if bid.ProviderID != p.ID && !p.IsAdmin {
		rfq, err := s.loadRFQ(ctx, bid.RFQID)
		if err != nil {
			return err
		}
		if rfq.BuyerID != p.ID {
			return models.NewAuthorizationError("not authorized to delete this bid")
		}
	}
	if err := s.Repo.DeleteBid(ctx, bidId); err != nil {
		return bidError(err)
	}
	return nil
}

func (s *BidService) loadBid(ctx context.Context, bidId string) (*models.Bid, error) {
	if !validID(bidId) {
		return nil, models.NewNotFoundError("bid not found")
	}
	bid, err := s.Repo.GetBid(ctx, bidId)
	if err != nil {
		return nil, bidError(err)
	}
	return bid, nil
}

func (s *BidService) loadRFQ(ctx context.Context, rfqId string) (*models.RFQ, error) {
	if !validID(rfqId) {
		return nil, models.NewNotFoundError("rfq not found")
	}
	rfq, err := s.RFQs.GetRFQ(ctx, rfqId)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, models.NewNotFoundError("rfq not found")
		}
		return nil, models.NewServerError(err)
	}
	return rfq, nil
}

// notify отправляет уведомление. Ошибка не отменяет уже выполненную операцию
// над предложением и только пишется в журнал.
func (s *BidService) notify(ctx context.Context, req models.NotificationRequest) {
	if _, err := s.Notifier.Notify(ctx, req); err != nil {
		s.Log.Errorw("failed to deliver bid notification", "type", req.Type, "recipient", req.RecipientID, "error", err)
	}
}

func bidError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return models.NewNotFoundError("bid not found")
	case errors.Is(err, repository.ErrBidNotPending):
		return models.NewInvalidStateError("bid is no longer pending")
	case errors.Is(err, repository.ErrRFQNotActive):
		return models.NewInvalidStateError("rfq is already closed")
	case errors.Is(err, repository.ErrValueOutOfRange):
		return models.NewValidationError("bidAmount is out of range")
	}
	return models.NewServerError(err)
}

func providerName(p models.Principal) string {
	if p.Name != "" {
		return p.Name
	}
	return "A provider"
}
