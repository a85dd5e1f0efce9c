// Package metrics exposes Prometheus counters for the execution
// pipeline and serves them over HTTP.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"algotrader/internal/logger"
)

var (
	TicksReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trader_ticks_received_total",
		Help: "Price ticks delivered by the market data feed",
	})

	// TicksDropped makes the backpressure policy observable: a tick
	// discarded by the queue is never silent loss.
	TicksDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trader_ticks_dropped_total",
		Help: "Price ticks dropped by the bounded tick queue",
	})

	IntentsGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trader_intents_generated_total",
		Help: "Trade intents produced by strategies",
	}, []string{"strategy", "side"})

	RiskRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trader_risk_rejections_total",
		Help: "Intents rejected by the risk gate",
	})

	OrdersSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trader_orders_submitted_total",
		Help: "Orders submitted to the broker",
	})

	OrderStatusEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trader_order_status_events_total",
		Help: "Order status events applied by the coordinator",
	}, []string{"status"})

	UnknownReconciliations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trader_unknown_reconciliations_total",
		Help: "Status events for broker order ids this process does not track",
	})

	StrategyErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trader_strategy_errors_total",
		Help: "Contained strategy evaluation failures",
	}, []string{"strategy"})
)

// Serve starts the metrics endpoint on addr. Shutdown is tied to ctx.
func Serve(ctx context.Context, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.ErrorWithErr(context.Background(), "Metrics server failed", err, "addr", addr)
		}
	}()
}
