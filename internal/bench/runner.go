// Package bench replays a prompt against one model without the interactive
// loop and aggregates the measurements the same way a chat session does.
package bench

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ollama-performance/internal/metrics"
	"ollama-performance/internal/provider"
	"ollama-performance/internal/types"
)

// Options configures a benchmark run.
type Options struct {
	Model  string
	Prompt string
	// Requests is the total number of exchanges; 0 runs until Duration ends.
	Requests int
	// Concurrency is the number of workers, each with its own provider.
	Concurrency int
	// Duration bounds the run; 0 means no time limit.
	Duration time.Duration
	// ProgressInterval controls how often Progress is called; 0 disables it.
	ProgressInterval time.Duration
}

// Validate checks if the options describe a finite run
func (o Options) Validate() error {
	if o.Model == "" {
		return errors.New("model is required")
	}
	if o.Prompt == "" {
		return errors.New("prompt is required")
	}
	if o.Concurrency < 1 {
		return errors.New("concurrency must be at least 1")
	}
	if o.Requests < 0 || o.Duration < 0 {
		return errors.New("requests and duration must not be negative")
	}
	if o.Requests == 0 && o.Duration == 0 {
		return errors.New("either requests or duration must be set")
	}
	return nil
}

// Progress receives intermediate statistics while a run is in progress.
type Progress func(completed int, s types.Statistics)

// Runner orchestrates the benchmark test
type Runner struct {
	factory  provider.Factory
	recorder *metrics.Recorder
	progress Progress
}

// NewRunner creates a new benchmark runner
func NewRunner(factory provider.Factory, recorder *metrics.Recorder, progress Progress) *Runner {
	if recorder == nil {
		recorder = metrics.NewRecorder()
	}
	return &Runner{
		factory:  factory,
		recorder: recorder,
		progress: progress,
	}
}

// Run executes the benchmark and returns the aggregator holding every
// measurement. Requests in flight when Duration ends are allowed to finish;
// cancelling ctx also aborts them.
func (r *Runner) Run(ctx context.Context, opts Options) (*metrics.Aggregator, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid benchmark options: %w", err)
	}

	providers := make([]provider.Provider, 0, opts.Concurrency)
	for i := 0; i < opts.Concurrency; i++ {
		p, err := r.factory(ctx, opts.Model)
		if err != nil {
			return nil, fmt.Errorf("failed to open provider for worker %d: %w", i, err)
		}
		providers = append(providers, p)
	}

	session := metrics.NewAggregator()
	pool := NewWorkerPool(providers, r.recorder, session, opts.Prompt, opts.Requests, opts.Duration)
	pool.Start(ctx)

	stopProgress := r.watch(session, opts.ProgressInterval)
	pool.Wait()
	stopProgress()

	return session, nil
}

// watch calls the progress callback periodically until the returned stop
// function is called.
func (r *Runner) watch(session *metrics.Aggregator, interval time.Duration) func() {
	if r.progress == nil || interval <= 0 {
		return func() {}
	}

	ticker := time.NewTicker(interval)
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				r.progress(session.Len(), session.Snapshot())
			}
		}
	}()

	return func() {
		ticker.Stop()
		close(stop)
		<-done
	}
}
