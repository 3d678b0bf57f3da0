package cli

import (
	"context"
	"fmt"
	"slices"

	"github.com/urfave/cli/v3"

	"ollama-performance/internal/provider"
)

// ModelsCommand lists the configured model menu and, when the provider
// supports it, the models the server reports.
func ModelsCommand() *cli.Command {
	return &cli.Command{
		Name:  "models",
		Usage: "List configured and available models",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			out := cmd.Root().Writer

			fmt.Fprintln(out, "Configured models:")
			for i, m := range cfg.Models {
				fmt.Fprintf(out, "%d. %s\n", i+1, m)
			}

			factory, err := provider.NewFactory(cfg)
			if err != nil {
				return err
			}
			p, err := factory(ctx, cfg.Models[0])
			if err != nil {
				return err
			}
			lister, ok := p.(provider.ModelLister)
			if !ok {
				fmt.Fprintf(out, "\nThe %s provider does not report available models.\n", p.Name())
				return nil
			}

			available, err := lister.ListModels(ctx)
			if err != nil {
				return fmt.Errorf("failed to list models (%s): %w", provider.Classify(err), err)
			}

			fmt.Fprintf(out, "\nAvailable on %s:\n", cfg.Provider.Endpoint)
			if len(available) == 0 {
				fmt.Fprintln(out, "(none)")
			}
			for _, m := range available {
				marker := " "
				if slices.Contains(cfg.Models, m) {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %s\n", marker, m)
			}
			return nil
		},
	}
}
