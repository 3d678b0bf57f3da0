// Package chat runs the interactive prompt loop: it reads prompts, times
// each exchange with the active provider and keeps the session statistics.
package chat

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"ollama-performance/internal/logger"
	"ollama-performance/internal/metrics"
	"ollama-performance/internal/provider"
	"ollama-performance/internal/types"
	"ollama-performance/internal/ui/picker"
)

// ServeHint is shown when the handshake with a local Ollama server fails.
const ServeHint = "Make sure Ollama is running: 'ollama serve'"

// Display renders the loop's output.
type Display interface {
	Banner()
	Connecting()
	ConnectionOK()
	ConnectionFailed(err error, hint string)
	Connected(model string)
	Switched(model string, reset bool)
	Help()
	Prompt()
	Response(m types.Measurement)
	Metrics(m types.Measurement)
	Stats(s types.Statistics)
	FinalSummary(s types.Statistics)
	Error(err error)
}

// Sink persists measurements as they are recorded. Reset marks the point
// where session statistics were cleared.
type Sink interface {
	Save(ctx context.Context, m types.Measurement) error
	Reset(ctx context.Context) error
}

// Options configures a Loop.
type Options struct {
	// Models offered by the model menu.
	Models []string
	// InitialModel skips the first menu when set.
	InitialModel string
	// HandshakePrompt is sent on every connect.
	HandshakePrompt string
	// ResetOnModelSwitch clears the session statistics after a switch.
	ResetOnModelSwitch bool

	Input io.Reader
	// MenuOutput receives the numbered model menu.
	MenuOutput io.Writer

	Recorder *metrics.Recorder
	Sink     Sink
}

// Loop is one interactive chat session.
type Loop struct {
	opts    Options
	factory provider.Factory
	display Display

	recorder *metrics.Recorder
	session  *metrics.Aggregator

	// active is the provider every exchange is sent to.
	active provider.Provider
	input  *lineReader
}

// New creates a Loop that opens providers through factory.
func New(factory provider.Factory, display Display, opts Options) *Loop {
	recorder := opts.Recorder
	if recorder == nil {
		recorder = metrics.NewRecorder()
	}
	return &Loop{
		opts:     opts,
		factory:  factory,
		display:  display,
		recorder: recorder,
		session:  metrics.NewAggregator(),
	}
}

// Session returns the aggregator holding this session's measurements.
func (l *Loop) Session() *metrics.Aggregator {
	return l.session
}

// Provider returns the active provider, nil before the first connect.
func (l *Loop) Provider() provider.Provider {
	return l.active
}

// Run drives the session until quit, end of input or ctx cancellation.
// It returns an error only when connecting to a model fails.
func (l *Loop) Run(ctx context.Context) error {
	done := make(chan struct{})
	defer close(done)
	l.input = readLines(l.opts.Input, done)

	l.display.Banner()

	model := l.opts.InitialModel
	if model == "" {
		var err error
		if model, err = l.selectModel(ctx); err != nil {
			if errors.Is(err, picker.ErrCancelled) {
				return nil
			}
			return err
		}
	}

	if err := l.connect(ctx, model); err != nil {
		return err
	}
	l.display.Connected(model)

	defer func() {
		l.display.FinalSummary(l.session.Snapshot())
	}()

	for {
		l.display.Prompt()
		line, ok := l.next(ctx)
		if !ok {
			return nil
		}

		input := strings.TrimSpace(line)
		switch strings.ToLower(input) {
		case "":
			continue
		case "quit":
			return nil
		case "help":
			l.display.Help()
		case "stats":
			l.display.Stats(l.session.Snapshot())
		case "model":
			if err := l.switchModel(ctx); err != nil {
				if errors.Is(err, picker.ErrCancelled) {
					return nil
				}
				return err
			}
		default:
			l.exchange(ctx, input)
		}
	}
}

// exchange sends one prompt and records its measurement.
func (l *Loop) exchange(ctx context.Context, prompt string) {
	p := l.active

	m := l.recorder.Measure(ctx, p.Model(), func(ctx context.Context) (string, error) {
		text, err := p.Complete(ctx, prompt)
		if err != nil {
			logger.Warn("exchange failed",
				"provider", p.Name(),
				"model", p.Model(),
				"type", provider.Classify(err),
				"error", err)
		}
		return text, err
	})
	logger.Debug("exchange recorded",
		"model", m.Model,
		"elapsed_ms", m.ElapsedMillis,
		"tokens", m.EstimatedTokens,
		"succeeded", m.Succeeded)

	l.display.Response(m)
	l.display.Metrics(m)

	l.session.Record(m)

	if l.opts.Sink != nil {
		// An interrupt must not lose the exchange it just ended.
		if err := l.opts.Sink.Save(context.WithoutCancel(ctx), m); err != nil {
			logger.Warn("failed to persist measurement", "error", err)
		}
	}
}

func (l *Loop) switchModel(ctx context.Context) error {
	model, err := l.selectModel(ctx)
	if err != nil {
		return err
	}
	if err := l.connect(ctx, model); err != nil {
		return err
	}

	reset := l.opts.ResetOnModelSwitch
	if reset {
		l.session.Reset()
		if l.opts.Sink != nil {
			if err := l.opts.Sink.Reset(context.WithoutCancel(ctx)); err != nil {
				logger.Warn("failed to persist statistics reset", "error", err)
			}
		}
	}
	l.display.Switched(model, reset)
	return nil
}

// connect opens a provider for model and verifies it answers the handshake.
func (l *Loop) connect(ctx context.Context, model string) error {
	p, err := l.factory(ctx, model)
	if err != nil {
		return fmt.Errorf("failed to open provider for %s: %w", model, err)
	}

	l.display.Connecting()
	if err := provider.Handshake(ctx, p, l.opts.HandshakePrompt); err != nil {
		hint := ""
		if p.Name() == "ollama" {
			hint = ServeHint
		}
		cause := errors.Unwrap(err)
		if cause == nil {
			cause = err
		}
		l.display.ConnectionFailed(cause, hint)
		logger.Debug("handshake failed", "type", provider.Classify(cause))
		return err
	}
	l.display.ConnectionOK()

	l.active = p
	return nil
}

func (l *Loop) selectModel(ctx context.Context) (string, error) {
	out := l.opts.MenuOutput
	if out == nil {
		out = io.Discard
	}
	return picker.Menu(out, func() (string, bool) { return l.next(ctx) }, l.opts.Models)
}

// next returns the next input line; ok is false on end of input or
// cancellation. A read error other than EOF is shown once before ok is false.
func (l *Loop) next(ctx context.Context) (string, bool) {
	select {
	case <-ctx.Done():
		return "", false
	case line, ok := <-l.input.lines:
		if !ok && l.input.err != nil {
			l.display.Error(fmt.Errorf("failed to read input: %w", l.input.err))
			l.input.err = nil
		}
		return line, ok
	}
}

// lineReader delivers input lines from a goroutine. err is written before
// lines is closed and must only be read after the close is observed.
type lineReader struct {
	lines chan string
	err   error
}

// readLines reads r on its own goroutine so a blocked read never holds up
// cancellation. Lines have no length limit. The goroutine exits at end of
// input, on a read error or when done closes.
func readLines(r io.Reader, done <-chan struct{}) *lineReader {
	in := &lineReader{lines: make(chan string)}
	if r == nil {
		close(in.lines)
		return in
	}

	go func() {
		defer close(in.lines)
		br := bufio.NewReader(r)
		for {
			line, err := br.ReadString('\n')
			if line != "" {
				select {
				case in.lines <- strings.TrimRight(line, "\r\n"):
				case <-done:
					return
				}
			}
			if err != nil {
				if !errors.Is(err, io.EOF) {
					logger.Warn("failed to read input", "error", err)
					in.err = err
				}
				return
			}
		}
	}()
	return in
}
