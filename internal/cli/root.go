// Package cli wires configuration, providers, storage and the chat loop
// into the ollama-chat command tree.
package cli

import (
	"github.com/urfave/cli/v3"

	"ollama-performance/internal/config"
	"ollama-performance/internal/logger"
	"ollama-performance/internal/version"
)

const (
	configFlag = "config"
	debugFlag  = "debug"
)

// RootCommand returns the ollama-chat command tree.
func RootCommand() *cli.Command {
	return &cli.Command{
		Name:            "ollama-chat",
		Usage:           "Chat with local models and measure their performance",
		Version:         version.String(),
		HideHelpCommand: true,
		DefaultCommand:  "chat",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  configFlag,
				Usage: "Path to configuration file",
				Value: config.DefaultConfigPath(),
			},
			&cli.BoolFlag{
				Name:  debugFlag,
				Usage: "Enable debug logging",
			},
		},
		Commands: []*cli.Command{
			ChatCommand(),
			BenchCommand(),
			ModelsCommand(),
			HistoryCommand(),
		},
	}
}

// loadConfig loads the configuration named by --config and applies the
// log level, --debug taking precedence.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(cmd.String(configFlag))
	if err != nil {
		return nil, err
	}

	level := cfg.Log.Level
	if cmd.Bool(debugFlag) {
		level = "debug"
	}
	if err := logger.SetLevel(level); err != nil {
		return nil, err
	}
	logger.Debug("configuration loaded", "provider", cfg.Provider.Kind, "models", len(cfg.Models))
	return cfg, nil
}
