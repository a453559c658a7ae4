package backtest

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/tradelab/trendsniper/internal/logger"
	"github.com/tradelab/trendsniper/internal/strategy"
	"github.com/tradelab/trendsniper/pkg/types"
)

// sweepJob is one parameter combination queued for a worker.
type sweepJob struct {
	cfg strategy.Config
}

// ComboResult is the outcome of one combination in a sweep. A failed
// combination carries Err and is excluded from ranking; it never aborts
// the sweep.
type ComboResult struct {
	Config   strategy.Config
	Report   Report
	Duration time.Duration
	Err      error
}

// workerPool fans parameter combinations out to a fixed set of goroutines.
// Each job owns a fresh engine, indicator bank and position state, so
// workers share nothing but the read-only bar slice.
type workerPool struct {
	workers  int
	settings Settings
	bars     []types.OHLCV
	log      *logger.Logger

	jobs    chan sweepJob
	results chan ComboResult
	wg      sync.WaitGroup
}

func newWorkerPool(workers int, settings Settings, bars []types.OHLCV, log *logger.Logger) *workerPool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &workerPool{
		workers:  workers,
		settings: settings,
		bars:     bars,
		log:      log,
		jobs:     make(chan sweepJob, workers),
		results:  make(chan ComboResult, workers),
	}
}

func (p *workerPool) start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}
	go func() {
		p.wg.Wait()
		close(p.results)
	}()
}

func (p *workerPool) worker(ctx context.Context) {
	defer p.wg.Done()

	for {
		select {
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			result := p.runJob(job)
			select {
			case p.results <- result:
			case <-ctx.Done():
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// runJob executes one combination, converting panics into a failed result
// so a single bad combination cannot take the sweep down.
func (p *workerPool) runJob(job sweepJob) (combo ComboResult) {
	start := time.Now()
	combo = ComboResult{Config: job.cfg}

	defer func() {
		combo.Duration = time.Since(start)
		if r := recover(); r != nil {
			combo.Err = fmt.Errorf("combination panicked: %v", r)
		}
	}()

	eval, err := strategy.NewEvaluator(job.cfg)
	if err != nil {
		combo.Err = err
		return combo
	}

	engine := NewEngine(p.settings, job.cfg, eval, logger.NewNop())
	result, err := engine.Run(p.bars)
	if err != nil {
		combo.Err = err
		return combo
	}

	combo.Report = result.Report
	return combo
}
