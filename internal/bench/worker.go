package bench

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"ollama-performance/internal/logger"
	"ollama-performance/internal/metrics"
	"ollama-performance/internal/provider"
)

// WorkerPool runs one worker per provider until the request budget is
// spent, the run window closes or the parent context ends.
type WorkerPool struct {
	providers []provider.Provider
	recorder  *metrics.Recorder
	session   *metrics.Aggregator
	prompt    string
	window    time.Duration

	limited   bool
	remaining atomic.Int64
	wg        sync.WaitGroup
	stop      context.CancelFunc
}

// NewWorkerPool creates a new worker pool. A requests value of 0 means
// workers keep going until the window or the context ends; a window of 0
// means no time limit.
func NewWorkerPool(providers []provider.Provider, recorder *metrics.Recorder, session *metrics.Aggregator, prompt string, requests int, window time.Duration) *WorkerPool {
	wp := &WorkerPool{
		providers: providers,
		recorder:  recorder,
		session:   session,
		prompt:    prompt,
		window:    window,
		limited:   requests > 0,
	}
	wp.remaining.Store(int64(requests))
	return wp
}

// Start starts all workers in the pool. Requests run under ctx; the window
// only stops workers from starting new ones.
func (wp *WorkerPool) Start(ctx context.Context) {
	var (
		accepting context.Context
		stop      context.CancelFunc
	)
	if wp.window > 0 {
		accepting, stop = context.WithTimeout(ctx, wp.window)
	} else {
		accepting, stop = context.WithCancel(ctx)
	}
	wp.stop = stop

	for i, p := range wp.providers {
		wp.wg.Add(1)
		go wp.worker(ctx, accepting, i, p)
	}
}

// Wait blocks until every worker has returned.
func (wp *WorkerPool) Wait() {
	wp.wg.Wait()
	if wp.stop != nil {
		wp.stop()
	}
}

// claim reserves one request from the budget.
func (wp *WorkerPool) claim() bool {
	if !wp.limited {
		return true
	}
	return wp.remaining.Add(-1) >= 0
}

func (wp *WorkerPool) worker(ctx, accepting context.Context, id int, p provider.Provider) {
	defer wp.wg.Done()

	for {
		select {
		case <-accepting.Done():
			return
		default:
		}
		if !wp.claim() {
			return
		}

		m := wp.recorder.Measure(ctx, p.Model(), func(ctx context.Context) (string, error) {
			return p.Complete(ctx, wp.prompt)
		})
		if !m.Succeeded {
			logger.Debug("benchmark request failed", "worker", id, "response", m.Response)
		}
		wp.session.Record(m)
	}
}

// defaultTemplate asks for a long answer so throughput has room to settle.
const defaultTemplate = "Please write a detailed explanation about artificial intelligence, " +
	"covering its history, applications, and future prospects. " +
	"Make your response approximately {size} characters long."

const filler = " Please provide more detailed information."

// GeneratePrompt expands {size} in template and pads or truncates the
// result to exactly size characters. A size <= 0 returns the expanded
// template unchanged.
func GeneratePrompt(template string, size int) string {
	if template == "" {
		template = defaultTemplate
	}
	prompt := []rune(strings.ReplaceAll(template, "{size}", strconv.Itoa(size)))
	if size <= 0 {
		return string(prompt)
	}

	pad := []rune(filler)
	for len(prompt) < size {
		prompt = append(prompt, pad...)
	}
	return string(prompt[:size])
}
