package router

import (
	"net/http"

	"github.com/karigarlink/rfq-service/internal/handlers"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Handlers - обработчики, из которых собирается маршрутизатор.
type Handlers struct {
	Auth         *handlers.Authenticator
	RFQ          *handlers.RFQHandler
	Bid          *handlers.BidHandler
	Notification *handlers.NotificationHandler
	Chat         *handlers.ChatHandler
	WS           *handlers.WSHandler
	Ping         http.HandlerFunc
}

func InitRoutes(h Handlers, logger *zap.SugaredLogger) http.Handler {
	mux := http.NewServeMux()
	protected := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, h.Auth.Require(fn))
	}

	mux.HandleFunc("GET /api/ping", h.Ping)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /ws", h.WS.ServeWS)

	protected("POST /rfq/create", h.RFQ.CreateRFQ)
	protected("GET /rfq/all", h.RFQ.ListRFQs)
	protected("GET /rfq/my-rfqs", h.RFQ.GetMyRFQs)
	protected("GET /rfq/{rfqId}", h.RFQ.GetRFQ)
	protected("PUT /rfq/{rfqId}", h.RFQ.UpdateRFQ)
	protected("DELETE /rfq/{rfqId}", h.RFQ.DeleteRFQ)
	protected("GET /rfq/{rfqId}/bids", h.RFQ.GetRFQBids)

	protected("POST /bids", h.Bid.CreateBid)
	protected("GET /bids/me", h.Bid.GetMyBids)
	protected("PUT /bids/{bidId}", h.Bid.UpdateBid)
	protected("PUT /bids/{bidId}/status", h.Bid.SetBidStatus)
	protected("DELETE /bids/{bidId}", h.Bid.DeleteBid)

	protected("GET /notifications", h.Notification.GetNotifications)
	protected("PUT /notifications/read-all", h.Notification.MarkAllRead)
	protected("PUT /notifications/{notificationId}/read", h.Notification.MarkRead)

	protected("POST /chat/send", h.Chat.SendMessage)
	protected("GET /chat/conversations", h.Chat.GetConversations)
	protected("GET /chat/{userId}", h.Chat.GetConversation)

	return handlers.LogRequests(logger, mux)
}
