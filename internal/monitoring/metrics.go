package monitoring

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tradelab/trendsniper/internal/backtest"
)

var (
	combosTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trendsniper_sweep_combinations_total",
			Help: "Parameter combinations processed, by outcome",
		},
		[]string{"outcome"},
	)

	comboDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "trendsniper_sweep_combination_duration_seconds",
			Help:    "Wall time per parameter combination",
			Buckets: prometheus.DefBuckets,
		},
	)

	bestSharpe = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "trendsniper_sweep_best_sharpe",
			Help: "Best Sharpe ratio seen so far in the sweep",
		},
	)

	sweepProgress = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "trendsniper_sweep_progress_ratio",
			Help: "Fraction of the sweep completed",
		},
	)
)

func init() {
	prometheus.MustRegister(combosTotal)
	prometheus.MustRegister(comboDuration)
	prometheus.MustRegister(bestSharpe)
	prometheus.MustRegister(sweepProgress)
}

// SweepObserver tracks a running sweep. Feed it each ComboResult as it
// arrives; it is safe to call from the optimizer's collection goroutine.
type SweepObserver struct {
	total int
	done  int
	best  float64
}

// NewSweepObserver creates an observer for a sweep of total combinations.
func NewSweepObserver(total int) *SweepObserver {
	bestSharpe.Set(0)
	sweepProgress.Set(0)
	return &SweepObserver{total: total}
}

// Observe records one finished combination.
func (o *SweepObserver) Observe(combo backtest.ComboResult) {
	outcome := "ok"
	if combo.Err != nil {
		outcome = "failed"
	}
	combosTotal.WithLabelValues(outcome).Inc()
	comboDuration.Observe(combo.Duration.Seconds())

	o.done++
	if o.total > 0 {
		sweepProgress.Set(float64(o.done) / float64(o.total))
	}
	if combo.Err == nil && combo.Report.SharpeRatio > o.best {
		o.best = combo.Report.SharpeRatio
		bestSharpe.Set(o.best)
	}
}

// Serve exposes /metrics on addr until ctx is cancelled. Errors other
// than a clean shutdown are returned.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
