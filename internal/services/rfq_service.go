package services

import (
	"context"
	"errors"
	"math"

	"github.com/karigarlink/rfq-service/internal/models"
	"github.com/karigarlink/rfq-service/internal/repository"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// RFQService - операции жизненного цикла запросов котировок.
type RFQService struct {
	Repo repository.RFQRepository
	Bids repository.BidRepository
}

// NewRFQService создает новый экземпляр RFQService.
func NewRFQService(repo repository.RFQRepository, bids repository.BidRepository) *RFQService {
	return &RFQService{Repo: repo, Bids: bids}
}

// CreateRFQ создает новый запрос котировок от имени покупателя.
func (s *RFQService) CreateRFQ(ctx context.Context, p models.Principal, req models.RFQRequest) (*models.RFQ, error) {
	if err := RequireRole(p, models.Customer); err != nil {
		return nil, err
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	allowNegotiation := true
	if req.AllowNegotiation != nil {
		allowNegotiation = *req.AllowNegotiation
	}
	rfq := &models.RFQ{
		BuyerID:            p.ID,
		Title:              req.Title,
		Description:        req.Description,
		Category:           req.Category,
		Quantity:           req.Quantity,
		Specs:              req.Specs,
		Deadline:           req.Deadline.UTC(),
		AllowNegotiation:   allowNegotiation,
		LocationPreference: req.LocationPreference,
		Attachments:        req.Attachments,
	}

	created, err := s.Repo.CreateRFQ(ctx, rfq)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrUnknownReference):
			return nil, models.NewAuthorizationError("buyer account is not registered")
		case errors.Is(err, repository.ErrValueOutOfRange):
			return nil, models.NewValidationError("quantity is out of range")
		}
		return nil, models.NewServerError(err)
	}
	return created, nil
}

// NormalizeFilter приводит пагинацию и сортировку к допустимым значениям.
func NormalizeFilter(filter models.RFQFilter) models.RFQFilter {
	if filter.Page < 1 {
		filter.Page = 1
	}
	switch {
	case filter.Limit == 0:
		filter.Limit = DefaultPageLimit
	case filter.Limit < 1:
		filter.Limit = 1
	case filter.Limit > MaxPageLimit:
		filter.Limit = MaxPageLimit
	}
	// смещение (Page-1)*Limit не должно переполнять int
	if maxPage := math.MaxInt/filter.Limit + 1; filter.Page > maxPage {
		filter.Page = maxPage
	}
	if !models.ValidRFQSort(filter.Sort) {
		filter.Sort = models.SortNewest
	}
	return filter
}

func outOfQuantityRange(q *int) bool {
	return q != nil && (*q < 0 || *q > models.MaxQuantity)
}

// ListRFQs возвращает страницу RFQ. Пустой результат не является ошибкой.
func (s *RFQService) ListRFQs(ctx context.Context, filter models.RFQFilter) (*models.RFQPage, error) {
	filter = NormalizeFilter(filter)
	if filter.Status != "" && filter.Status != models.ActiveRFQ && filter.Status != models.ClosedRFQ {
		return nil, models.NewValidationError("status must be active or closed")
	}
	if outOfQuantityRange(filter.MinQty) || outOfQuantityRange(filter.MaxQty) {
		return nil, models.NewValidationError("quantity filters must be between 0 and 2147483647")
	}
	if filter.MinQty != nil && filter.MaxQty != nil && *filter.MinQty > *filter.MaxQty {
		return nil, models.NewValidationError("minQty must not exceed maxQty")
	}

	rfqs, total, err := s.Repo.ListRFQs(ctx, filter)
	if err != nil {
		return nil, models.NewServerError(err)
	}
	if rfqs == nil {
		rfqs = []models.RFQ{}
	}
	return &models.RFQPage{
		Meta: models.PageMeta{
			Total:      total,
			Page:       filter.Page,
			Limit:      filter.Limit,
			TotalPages: (total + filter.Limit - 1) / filter.Limit,
		},
		Data: rfqs,
	}, nil
}

// GetRFQ возвращает RFQ вместе со сведениями о покупателе.
func (s *RFQService) GetRFQ(ctx context.Context, rfqId string) (*models.RFQ, error) {
	if !validID(rfqId) {
		return nil, models.NewNotFoundError("rfq not found")
	}
	rfq, err := s.Repo.GetRFQ(ctx, rfqId)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, models.NewNotFoundError("rfq not found")
		}
		return nil, models.NewServerError(err)
	}
	return rfq, nil
}

// GetMyRFQs возвращает RFQ текущего покупателя.
func (s *RFQService) GetMyRFQs(ctx context.Context, p models.Principal) ([]models.RFQ, error) {
	if err := RequireRole(p, models.Customer); err != nil {
		return nil, err
	}
	rfqs, err := s.Repo.GetBuyerRFQs(ctx, p.ID)
	if err != nil {
		return nil, models.NewServerError(err)
	}
	return rfqs, nil
}

// ownedRFQ загружает RFQ и проверяет, что p - его владелец.
func (s *RFQService) ownedRFQ(ctx context.Context, p models.Principal, rfqId, action string) (*models.RFQ, error) {
	rfq, err := s.GetRFQ(ctx, rfqId)
	if err != nil {
		return nil, err
	}
	if rfq.BuyerID != p.ID {
		return nil, models.NewAuthorizationError("not authorized to " + action + " this rfq")
	}
	return rfq, nil
}

// UpdateRFQ применяет разрешенные поля патча. Менять можно только активный RFQ.
func (s *RFQService) UpdateRFQ(ctx context.Context, p models.Principal, rfqId string, patch models.RFQPatch) (*models.RFQ, error) {
	if err := RequireRole(p, models.Customer); err != nil {
		return nil, err
	}
	rfq, err := s.ownedRFQ(ctx, p, rfqId, "update")
	if err != nil {
		return nil, err
	}
	if !rfq.IsActive() {
		return nil, models.NewInvalidStateError("only active rfqs can be updated")
	}
	if err := validateRequest(patch); err != nil {
		return nil, err
	}

	patch.Apply(rfq)
	updated, err := s.Repo.UpdateRFQ(ctx, rfq)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrRFQNotActive):
			return nil, models.NewInvalidStateError("only active rfqs can be updated")
		case errors.Is(err, repository.ErrNotFound):
			return nil, models.NewNotFoundError("rfq not found")
		case errors.Is(err, repository.ErrValueOutOfRange):
			return nil, models.NewValidationError("quantity is out of range")
		}
		return nil, models.NewServerError(err)
	}
	updated.Buyer = rfq.Buyer
	return updated, nil
}

// DeleteRFQ удаляет RFQ владельца вместе со всеми предложениями по нему.
func (s *RFQService) DeleteRFQ(ctx context.Context, p models.Principal, rfqId string) error {
	if err := RequireRole(p, models.Customer); err != nil {
		return err
	}
	if _, err := s.ownedRFQ(ctx, p, rfqId, "delete"); err != nil {
		return err
	}
	if err := s.Repo.DeleteRFQ(ctx, rfqId); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return models.NewNotFoundError("rfq not found")
		}
		return models.NewServerError(err)
	}
	return nil
}

// GetRFQBids возвращает предложения по RFQ (самые дешевые первыми) и их статистику.
// Доступно владельцу RFQ и администратору.
func (s *RFQService) GetRFQBids(ctx context.Context, p models.Principal, rfqId string) (*models.RFQBids, error) {
	rfq, err := s.GetRFQ(ctx, rfqId)
	if err != nil {
		return nil, err
	}
	if rfq.BuyerID != p.ID && !p.IsAdmin {
		return nil, models.NewAuthorizationError("not authorized to view bids")
	}

	bids, err := s.Bids.GetRFQBids(ctx, rfqId)
	if err != nil {
		return nil, models.NewServerError(err)
	}
	result := AggregateBids(bids)
	return &result, nil
}
