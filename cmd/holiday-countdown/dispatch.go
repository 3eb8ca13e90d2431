package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/username/holiday-countdown/internal/api"
	"github.com/username/holiday-countdown/internal/countdown"
	"github.com/username/holiday-countdown/internal/daemon"
	"github.com/username/holiday-countdown/internal/dispatch"
	"github.com/username/holiday-countdown/internal/observability/metrics"
	"github.com/username/holiday-countdown/internal/store"
)

func newDispatcher(repo *countdown.Repository, dryRun bool) (*dispatch.Dispatcher, error) {
	var sender dispatch.Sender
	if !dryRun {
		client, err := newTelegramClient(cfg)
		if err != nil {
			return nil, err
		}
		sender = client
	}

	opts := dispatch.Options{
		SendTimeout: cfg.Dispatch.GetSendTimeout(),
		DryRun:      dryRun,
	}
	return dispatch.NewDispatcher(repo, sender, opts, metrics.NewDispatchMetrics(prometheus.DefaultRegisterer), logger), nil
}

func dispatchCmd() *cobra.Command {
	var dryRun bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "dispatch",
		Short: "Run one reminder pass over all registered countdowns",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			repo, _, closeStore, err := openRepository(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			d, err := newDispatcher(repo, dryRun || cfg.Dispatch.DryRun)
			if err != nil {
				return err
			}

			summary, err := d.Run(ctx, time.Now().In(cfg.Dispatch.GetLocation()))
			if summary != nil {
				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					if encErr := enc.Encode(summary); encErr != nil {
						return encErr
					}
				} else {
					printSummary(cmd.OutOrStdout(), summary)
				}
			}
			if err != nil {
				return fmt.Errorf("dispatch failed: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Evaluate reminders without sending or updating records")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the summary as JSON")

	return cmd
}

func printSummary(w io.Writer, s *dispatch.Summary) {
	fmt.Fprintf(w, "Processed %s record(s): %d sent, %d due, %d skipped, %d failed\n",
		humanize.Comma(int64(s.Processed)), s.Sent, s.Due, s.Skipped, s.Failed)
	for _, r := range s.Results {
		if r.Status == dispatch.StatusNotDue {
			continue
		}
		line := fmt.Sprintf("  %-13s %s (in %d days)", r.Status, r.Key, r.DaysUntil)
		if r.Error != "" {
			line += ": " + r.Error
		}
		fmt.Fprintln(w, line)
	}
}

func daemonCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run reminder passes on the configured schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, _, closeStore, err := openRepository(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			d, err := newDispatcher(repo, cfg.Dispatch.DryRun)
			if err != nil {
				return err
			}

			dm, err := daemon.NewDaemon(d, daemon.Options{
				Schedule:   cfg.Dispatch.Schedule,
				Location:   cfg.Dispatch.GetLocation(),
				RunOnStart: cfg.Dispatch.RunOnStart,
			}, logger)
			if err != nil {
				return err
			}

			return dm.Start()
		},
	}
	return cmd
}

func serveCmd() *cobra.Command {
	var withDaemon bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the countdown registration API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			repo, s, closeStore, err := openRepository(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			var sender dispatch.Sender
			if client, err := newTelegramClient(cfg); err != nil {
				logger.Warn("Telegram is not configured, previews are disabled", zap.Error(err))
			} else {
				sender = client
			}

			routerCfg := api.RouterConfig{
				Handler: api.NewHandler(repo, sender, cfg.Dispatch.GetLocation(), logger),
				Logger:  logger,
			}
			if p, ok := s.(store.Pinger); ok {
				routerCfg.Health = p
			}

			if withDaemon {
				d, err := newDispatcher(repo, cfg.Dispatch.DryRun)
				if err != nil {
					return err
				}
				dm, err := daemon.NewDaemon(d, daemon.Options{
					Schedule:   cfg.Dispatch.Schedule,
					Location:   cfg.Dispatch.GetLocation(),
					RunOnStart: cfg.Dispatch.RunOnStart,
				}, logger)
				if err != nil {
					return err
				}
				go func() {
					if err := dm.Start(); err != nil {
						logger.Error("Daemon stopped with error", zap.Error(err))
					}
				}()
				defer dm.Stop()
			}

			srv := &http.Server{
				Addr:              cfg.Server.Addr,
				Handler:           api.NewRouter(routerCfg),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("HTTP server listening", zap.String("addr", srv.Addr))
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("http server failed: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			logger.Info("Shutting down HTTP server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().BoolVar(&withDaemon, "with-daemon", false, "Also run scheduled reminder passes in this process")

	return cmd
}
