package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/sjhan/battmon/internal/alerter"
	"github.com/sjhan/battmon/internal/api"
	"github.com/sjhan/battmon/internal/collector"
	"github.com/sjhan/battmon/internal/config"
	"github.com/sjhan/battmon/internal/notify"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newRunCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the monitoring daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, m, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer m.Store().Close()

			ver, sha, _, _ := buildInfo()
			slog.Info("starting battmon",
				"version", ver,
				"commit", sha,
				"db_path", cfg.DBPath,
				"listen", cfg.Listen,
			)

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			g, ctx := errgroup.WithContext(ctx)

			runner := collector.ExecRunner{Timeout: cfg.ToolTimeout.Duration}
			desktop := collector.NewDesktop(runner, m, cfg.PollInterval.Duration)
			g.Go(func() error { return collector.Run(ctx, desktop) })

			mobile := collector.NewMobile(runner, m, cfg.MobilePollInterval.Duration)
			g.Go(func() error { return collector.Run(ctx, mobile) })

			if cfg.Listen != "" {
				server := api.NewServer(cfg.Listen, m)
				g.Go(func() error { return server.Run(ctx) })
			}

			if providers := buildProviders(cfg); len(providers) > 0 {
				a := alerter.New(m, providers, alertConfig(cfg))
				g.Go(func() error { return a.Run(ctx) })
			}

			if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("fatal error", "error", err)
				return err
			}

			slog.Info("battmon stopped gracefully")
			return nil
		},
	}
}

func buildProviders(cfg *config.Config) []notify.Provider {
	var providers []notify.Provider
	for _, ncfg := range cfg.Notifications {
		switch ncfg.Type {
		case "ntfy":
			providers = append(providers, notify.NewNtfy(ncfg.URL, ncfg.Topic))
		case "webhook":
			providers = append(providers, notify.NewWebhook(ncfg.URL, ncfg.Method, ncfg.Headers))
		}
	}
	return providers
}

func alertConfig(cfg *config.Config) alerter.AlertConfig {
	alertCfg := alerter.DefaultAlertConfig()
	if a := cfg.Alerts.HealthBelow; a != nil {
		if a.Threshold == 0 {
			alertCfg.HealthBelow = nil
		} else {
			alertCfg.HealthBelow.Threshold = a.Threshold
			if a.Severity != "" {
				alertCfg.HealthBelow.Severity = a.Severity
			}
			if a.Cooldown.Duration > 0 {
				alertCfg.HealthBelow.Cooldown = a.Cooldown.Duration
			}
		}
	}
	if a := cfg.Alerts.CyclesAbove; a != nil {
		if a.Threshold == 0 {
			alertCfg.CyclesAbove = nil
		} else {
			alertCfg.CyclesAbove.Threshold = a.Threshold
			if a.Severity != "" {
				alertCfg.CyclesAbove.Severity = a.Severity
			}
			if a.Cooldown.Duration > 0 {
				alertCfg.CyclesAbove.Cooldown = a.Cooldown.Duration
			}
		}
	}
	return alertCfg
}

func newCollectCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "collect",
		Short: "Collect one sample from all sources and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, m, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer m.Store().Close()

			ctx := cmd.Context()
			runner := collector.ExecRunner{Timeout: cfg.ToolTimeout.Duration}

			var failed error
			if err := collector.NewDesktop(runner, m, 0).Collect(ctx); err != nil {
				slog.Error("desktop collection failed", "error", err)
				failed = err
			}
			if err := collector.NewMobile(runner, m, 0).Collect(ctx); err != nil {
				slog.Error("mobile collection failed", "error", err)
				failed = err
			}
			return failed
		},
	}
}
