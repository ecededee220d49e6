package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CandlesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "candles_total", Help: "Completed candles ingested"},
		[]string{"symbol"},
	)
	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signals_total", Help: "Confirmed entry signals emitted"},
		[]string{"symbol", "mode"},
	)
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "orders_total", Help: "Orders placed with the broker"},
		[]string{"symbol"},
	)
	TrailUpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "trail_updates_total", Help: "Stop modifications pushed after a trail recalculation"},
		[]string{"symbol"},
	)
	ExitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "exits_total", Help: "Positions closed, by exit kind"},
		[]string{"symbol", "kind"},
	)
	DuplicatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "duplicates_total", Help: "Signals discarded by a dedup layer"},
		[]string{"layer"},
	)
)

func init() {
	prometheus.MustRegister(CandlesTotal, SignalsTotal, OrdersTotal, TrailUpdatesTotal, ExitsTotal, DuplicatesTotal)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
