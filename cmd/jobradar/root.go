package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jobradar/jobradar/internal/config"
	"github.com/jobradar/jobradar/internal/logging"
	"github.com/jobradar/jobradar/internal/metrics"
	"github.com/jobradar/jobradar/internal/pipeline"
)

type globalFlags struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	var g globalFlags

	root := &cobra.Command{
		Use:           "jobradar",
		Short:         "Aggregate job postings into one published artifact",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runOnce(ctx, cfg)
		},
	}

	defaultPath := os.Getenv("JOBRADAR_CONFIG")
	if defaultPath == "" {
		defaultPath = "configs/config.yml"
	}
	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", defaultPath, "config file")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "override log.level")

	root.AddCommand(newServeCmd(&g), newVersionCmd())
	return root
}

// load reads the config and configures logging from it.
func (g *globalFlags) load() (*config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	if err := logging.Setup(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	}); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runOnce(ctx context.Context, cfg *config.Config) error {
	b, err := pipeline.Build(ctx, cfg, metrics.New(), nil)
	if err != nil {
		return err
	}
	defer b.Close()

	_, err = b.Run(ctx)
	return err
}
