package metrics

import (
	"context"
	"fmt"
	"time"

	"ollama-performance/internal/types"
)

// Invoker performs one provider call and returns the response text.
type Invoker func(ctx context.Context) (string, error)

// Clock returns the current time. time.Now is used unless overridden.
type Clock func() time.Time

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithClock overrides the time source, mainly for tests.
func WithClock(clock Clock) RecorderOption {
	return func(r *Recorder) {
		r.now = clock
	}
}

// Recorder times single exchanges and turns them into measurements.
type Recorder struct {
	now Clock
}

// NewRecorder creates a new Recorder
func NewRecorder(opts ...RecorderOption) *Recorder {
	r := &Recorder{now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Measure calls invoke exactly once and records how long it took.
// A failing invoke never surfaces as an error: the returned measurement
// is marked unsuccessful and carries a description of the failure.
func (r *Recorder) Measure(ctx context.Context, model string, invoke Invoker) types.Measurement {
	start := r.now()

	text, err := r.call(ctx, invoke)

	end := r.now()

	// Sub uses the monotonic reading when both instants carry one.
	elapsed := end.Sub(start)
	if elapsed < 0 {
		elapsed = 0
	}

	startWall, endWall := start.Round(0), end.Round(0)
	if endWall.Before(startWall) {
		endWall = startWall
	}

	m := types.Measurement{
		Model:         model,
		ElapsedMillis: elapsed.Milliseconds(),
		StartTime:     startWall,
		EndTime:       endWall,
	}

	if err != nil {
		m.Response = describeFailure(err)
		return m
	}

	m.Succeeded = true
	m.Response = text
	m.EstimatedTokens = EstimateTokens(text)
	return m
}

// call runs invoke, converting a panic into an error.
func (r *Recorder) call(ctx context.Context, invoke Invoker) (text string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("provider panicked: %v", p)
		}
	}()
	return invoke(ctx)
}

func describeFailure(err error) string {
	msg := err.Error()
	if msg == "" {
		msg = "exchange failed"
	}
	return "Error: " + msg
}
