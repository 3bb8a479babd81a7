package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "rfq"

var (
	OnlineUsers = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "online_users",
		Help:      "Number of users with an open realtime connection.",
	})
	RealtimeEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "realtime_events_total",
		Help:      "Realtime events by name and delivery result (delivered, offline, dropped).",
	}, []string{"event", "result"})
	Notifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_created_total",
		Help:      "Persisted notifications by type.",
	}, []string{"type"})
	BidsSubmitted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bids_submitted_total",
		Help:      "Bid submissions split into new bids and re-bids.",
	}, []string{"outcome"})
	BidDecisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bid_decisions_total",
		Help:      "Buyer decisions on bids by resulting status.",
	}, []string{"status"})
)

func init() {
	prometheus.MustRegister(OnlineUsers, RealtimeEvents, Notifications, BidsSubmitted, BidDecisions)
}
