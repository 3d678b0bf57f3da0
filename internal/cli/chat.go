package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"ollama-performance/internal/chat"
	"ollama-performance/internal/config"
	"ollama-performance/internal/logger"
	"ollama-performance/internal/provider"
	"ollama-performance/internal/report"
	"ollama-performance/internal/store"
	"ollama-performance/internal/ui/picker"
)

var _ chat.Display = (*report.Console)(nil)

// ChatCommand starts an interactive session.
func ChatCommand() *cli.Command {
	return &cli.Command{
		Name:  "chat",
		Usage: "Start an interactive chat session (default)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "model",
				Usage: "Model to start with (skips the model menu)",
			},
			&cli.StringFlag{
				Name:  "provider",
				Usage: "Inference provider: ollama or bedrock",
			},
			&cli.StringFlag{
				Name:  "endpoint",
				Usage: "OpenAI-compatible endpoint of the Ollama server",
			},
			&cli.StringFlag{
				Name:  "report",
				Usage: "Write a markdown session report to this file on exit",
			},
			&cli.BoolFlag{
				Name:  "no-history",
				Usage: "Do not record this session in the history database",
			},
			&cli.BoolFlag{
				Name:  "reset-on-switch",
				Usage: "Reset session statistics when switching models",
			},
		},
		Action: runChat,
	}
}

// applyChatFlags overrides configuration values with explicitly set flags.
func applyChatFlags(cmd *cli.Command, cfg *config.Config) error {
	if cmd.IsSet("provider") {
		cfg.Provider.Kind = cmd.String("provider")
	}
	if cmd.IsSet("endpoint") {
		cfg.Provider.Endpoint = cmd.String("endpoint")
	}
	if cmd.IsSet("report") {
		cfg.Output.ReportFile = cmd.String("report")
	}
	if cmd.Bool("no-history") {
		cfg.Storage.Enabled = false
	}
	if cmd.Bool("reset-on-switch") {
		cfg.Session.ResetOnModelSwitch = true
	}
	return cfg.Validate()
}

func runChat(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := applyChatFlags(cmd, cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	factory, err := provider.NewFactory(cfg)
	if err != nil {
		return err
	}

	model := cmd.String("model")
	if model == "" && picker.IsInteractive() {
		model, err = picker.Run(cfg.Models)
		if errors.Is(err, picker.ErrCancelled) {
			return nil
		}
		if err != nil {
			return err
		}
	}

	out := cmd.Root().Writer
	if out == nil {
		out = os.Stdout
	}
	opts := chat.Options{
		Models:             cfg.Models,
		InitialModel:       model,
		HandshakePrompt:    cfg.Session.HandshakePrompt,
		ResetOnModelSwitch: cfg.Session.ResetOnModelSwitch,
		Input:              os.Stdin,
		MenuOutput:         out,
	}

	sessionID := store.NewSessionID()
	startedAt := time.Now()

	if cfg.Storage.Enabled {
		st, err := openHistory(ctx, cfg, sessionID, startedAt)
		if err != nil {
			logger.Warn("session history disabled", "error", err)
		} else {
			defer func() {
				if err := st.EndSession(context.WithoutCancel(ctx), sessionID, time.Now()); err != nil {
					logger.Warn("failed to close session", "id", sessionID, "error", err)
				}
				_ = st.Close()
			}()
			opts.Sink = st.Log(sessionID)
		}
	}

	loop := chat.New(factory, report.NewConsole(out), opts)
	runErr := loop.Run(ctx)

	if cfg.Output.ReportFile != "" && loop.Session().Len() > 0 {
		info := report.SessionInfo{
			ID:        sessionID,
			Provider:  cfg.Provider.Kind,
			Endpoint:  cfg.Provider.Endpoint,
			StartedAt: startedAt,
		}
		if cfg.Provider.Kind != config.ProviderOllama {
			info.Endpoint = ""
		}
		reporter := report.NewMarkdownReporter(info)
		content := reporter.Generate(loop.Session().Snapshot(), loop.Session().Measurements())
		if err := reporter.SaveToFile(content, cfg.Output.ReportFile); err != nil {
			logger.Error("failed to save report", "path", cfg.Output.ReportFile, "error", err)
		} else {
			fmt.Fprintf(out, "Report saved to: %s\n", cfg.Output.ReportFile)
		}
	}

	return runErr
}

// openHistory opens the history database and registers the new session.
func openHistory(ctx context.Context, cfg *config.Config, id string, startedAt time.Time) (*store.Store, error) {
	st, err := store.Open(cfg.Storage.Path)
	if err != nil {
		return nil, err
	}
	sess := store.Session{
		ID:        id,
		Provider:  cfg.Provider.Kind,
		StartedAt: startedAt,
	}
	if err := st.CreateSession(ctx, sess); err != nil {
		_ = st.Close()
		return nil, err
	}
	logger.Debug("recording session", "id", id, "path", st.Path())
	return st, nil
}
