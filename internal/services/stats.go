package services

import (
	"math"
	"sort"

	"github.com/karigarlink/rfq-service/internal/models"

	"github.com/samber/lo"
)

// ComputeBidStats считает статистику по набору предложений одного RFQ.
// Минимум, максимум и среднее заполняются только при наличии хотя бы одного предложения;
// среднее округляется до двух знаков.
func ComputeBidStats(bids []models.Bid) models.BidStats {
	counts := lo.CountValuesBy(bids, func(b models.Bid) models.BidStatus { return b.Status })
	stats := models.BidStats{
		TotalBids:    len(bids),
		PendingBids:  counts[models.PendingBid],
		AcceptedBids: counts[models.AcceptedBid],
		RejectedBids: counts[models.RejectedBid],
	}
	if len(bids) == 0 {
		return stats
	}

	amounts := lo.Map(bids, func(b models.Bid, _ int) float64 { return b.Amount })
	minBid := lo.Min(amounts)
	maxBid := lo.Max(amounts)
	avgBid := math.Round(lo.Sum(amounts)/float64(len(amounts))*100) / 100
	stats.MinBid = &minBid
	stats.MaxBid = &maxBid
	stats.AvgBid = &avgBid
	return stats
}

// AggregateBids упорядочивает предложения по возрастанию суммы и добавляет статистику.
func AggregateBids(bids []models.Bid) models.RFQBids {
	sorted := make([]models.Bid, len(bids))
	copy(sorted, bids)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Amount < sorted[j].Amount
	})
	return models.RFQBids{
		Bids:  sorted,
		Stats: ComputeBidStats(sorted),
	}
}
