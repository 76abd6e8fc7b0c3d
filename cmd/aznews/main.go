package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/deusflow/aznews/internal/app"
	"github.com/deusflow/aznews/internal/config"
	"github.com/deusflow/aznews/internal/logger"
)

func main() {
	logger.Init()
	if err := rootCmd().Execute(); err != nil {
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "aznews",
		Short: "Harvest Azerbaijani banking and finance news into a daily digest",
		Long: `Scrapes ten Azerbaijani news sites, drops articles seen in earlier runs,
builds a banking and finance digest with an LLM, stores the session in
PostgreSQL and reports to Telegram.

Without a subcommand the full pipeline runs once over every enabled source.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPipeline(cmd.Context(), app.Overrides{})
		},
	}
	root.AddCommand(runCmd(), sessionsCmd(), sourcesCmd())
	return root
}

func runCmd() *cobra.Command {
	var ov app.Overrides
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPipeline(cmd.Context(), ov)
		},
	}
	cmd.Flags().StringSliceVar(&ov.Sources, "sources", nil, "comma-separated sources to scrape (default: every enabled source)")
	cmd.Flags().IntVar(&ov.Pages, "pages", 0, "listing pages per category (default: from the sources file)")
	return cmd
}

func runPipeline(parent context.Context, ov app.Overrides) error {
	if parent == nil {
		parent = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MonitoringEnabled {
		go startMonitoringServer(ctx, cfg.MonitoringPort)
	}

	logger.Info("aznews starting", "llm", cfg.LLMEnabled(), "telegram", cfg.TelegramEnabled())
	return app.Run(ctx, cfg, ov)
}
