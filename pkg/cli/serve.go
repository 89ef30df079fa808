package cli

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"

	"github.com/civicpulse/pulse/pkg/cli/config"
	controller "github.com/civicpulse/pulse/pkg/controller/http"
	"github.com/civicpulse/pulse/pkg/service/broadcast"
	"github.com/civicpulse/pulse/pkg/service/sweeper"
	"github.com/civicpulse/pulse/pkg/usecase"
)

func cmdServe() *cli.Command {
	var (
		serverCfg    config.Server
		pollCfg      config.Poll
		firestoreCfg config.Firestore
		schedulerCfg config.Scheduler
		authCfg      config.Auth
	)

	flags := joinFlags(
		serverCfg.Flags(),
		pollCfg.Flags(),
		firestoreCfg.Flags(),
		schedulerCfg.Flags(),
		authCfg.Flags(),
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Start the poll HTTP server and archive sweeper",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := ctxlog.From(ctx)

			logger.Info("Starting pulse server",
				slog.String("addr", serverCfg.Addr),
				slog.Any("poll", pollCfg),
				slog.Any("firestore", firestoreCfg),
				slog.Any("scheduler", schedulerCfg),
				slog.Any("auth", authCfg),
			)

			if err := schedulerCfg.Validate(); err != nil {
				return err
			}
			if authCfg.IsConfigured() {
				if err := authCfg.Validate(); err != nil {
					return err
				}
			} else {
				logger.Warn("Operator auth secret not set; reset and export endpoints are disabled")
			}

			loc, err := pollCfg.Location()
			if err != nil {
				return err
			}

			registry, err := pollCfg.Registry(ctx)
			if err != nil {
				return err
			}
			logger.Info("Issue registry loaded",
				"issues", len(registry.All()),
				"active", len(registry.Active()),
			)

			window, err := schedulerCfg.Window()
			if err != nil {
				return err
			}

			// Create repository using config
			repo, err := firestoreCfg.Configure(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			// The broadcaster is injected into both use cases so the
			// publish target stays swappable
			hub := broadcast.NewHub()
			defer hub.Close()

			voteUC := usecase.NewVoteUseCase(repo, registry, hub, loc)
			// New listeners are greeted with the live tally on connect
			hub.SetSnapshot(voteUC.LiveResults)
			archiveUC := usecase.NewArchiveUseCase(repo, registry, hub, loc, window)
			analyticsUC := usecase.NewAnalyticsUseCase(repo, registry, loc)

			// Background archive sweep, independent of request handling
			sweepCtx, cancelSweep := context.WithCancel(ctx)
			defer cancelSweep()
			sw := sweeper.New(archiveUC, schedulerCfg.Interval)
			sw.Start(sweepCtx)

			server, err := controller.NewServer(
				ctx,
				serverCfg.Addr,
				registry,
				voteUC,
				archiveUC,
				analyticsUC,
				hub,
				&authCfg,
			)
			if err != nil {
				return goerr.Wrap(err, "failed to create HTTP server")
			}

			go func() {
				logger.Info("HTTP server starting", slog.String("addr", serverCfg.Addr))
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("HTTP server error", slog.Any("error", err))
				}
			}()

			// Wait for interrupt signal
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

			select {
			case <-ctx.Done():
				logger.Info("Context cancelled, shutting down...")
			case sig := <-sigChan:
				logger.Info("Signal received, shutting down...", slog.Any("signal", sig))
			}

			// Graceful shutdown: stop the sweeper first so no archive run
			// is cut off mid-week by the server teardown
			sw.Stop()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				return goerr.Wrap(err, "failed to shutdown server gracefully")
			}

			logger.Info("Server shutdown complete")
			return nil
		},
	}
}
