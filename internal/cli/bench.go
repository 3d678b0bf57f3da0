package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"ollama-performance/internal/bench"
	"ollama-performance/internal/provider"
	"ollama-performance/internal/report"
	"ollama-performance/internal/store"
	"ollama-performance/internal/types"
)

// BenchCommand replays one prompt against a model and prints the statistics.
func BenchCommand() *cli.Command {
	return &cli.Command{
		Name:  "bench",
		Usage: "Send a prompt repeatedly and report response statistics",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "model",
				Usage: "Model to benchmark (defaults to the first configured model)",
			},
			&cli.StringFlag{
				Name:  "prompt",
				Usage: "Prompt template, {size} is replaced by --prompt-size",
			},
			&cli.IntFlag{
				Name:  "prompt-size",
				Usage: "Pad or trim the prompt to this many characters (0 keeps it as is)",
			},
			&cli.IntFlag{
				Name:  "requests",
				Usage: "Total number of requests (0 runs until --duration ends)",
				Value: 10,
			},
			&cli.IntFlag{
				Name:  "concurrency",
				Usage: "Number of concurrent workers",
				Value: 1,
			},
			&cli.DurationFlag{
				Name:  "duration",
				Usage: "Stop starting new requests after this long",
			},
			&cli.StringFlag{
				Name:  "report",
				Usage: "Write a markdown report to this file",
			},
		},
		Action: runBench,
	}
}

func runBench(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	factory, err := provider.NewFactory(cfg)
	if err != nil {
		return err
	}

	opts := bench.Options{
		Model:            cmd.String("model"),
		Prompt:           bench.GeneratePrompt(cmd.String("prompt"), int(cmd.Int("prompt-size"))),
		Requests:         int(cmd.Int("requests")),
		Concurrency:      int(cmd.Int("concurrency")),
		Duration:         cmd.Duration("duration"),
		ProgressInterval: 5 * time.Second,
	}
	if opts.Model == "" {
		opts.Model = cfg.Models[0]
	}

	out := cmd.Root().Writer
	console := report.NewConsole(out)
	console.Info(fmt.Sprintf("Benchmarking %s with %d worker(s)...", opts.Model, opts.Concurrency))

	progress := func(completed int, s types.Statistics) {
		console.Info(fmt.Sprintf("[progress] %d requests, %d ok, avg %.2fs",
			completed, s.SuccessfulRequests, s.AverageResponseSeconds))
	}

	startedAt := time.Now()
	session, err := bench.NewRunner(factory, nil, progress).Run(ctx, opts)
	if err != nil {
		return err
	}

	stats := session.Snapshot()
	measurements := session.Measurements()
	console.Stats(stats)
	console.Chart(measurements)

	if path := cmd.String("report"); path != "" {
		reporter := report.NewMarkdownReporter(report.SessionInfo{
			ID:        store.NewSessionID(),
			Provider:  cfg.Provider.Kind,
			StartedAt: startedAt,
		})
		if err := reporter.SaveToFile(reporter.Generate(stats, measurements), path); err != nil {
			return fmt.Errorf("failed to save report: %w", err)
		}
		fmt.Fprintf(out, "Report saved to: %s\n", path)
	}
	return nil
}
