package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/relay/pkg/audit"
	"mercator-hq/relay/pkg/audit/recorder"
	"mercator-hq/relay/pkg/audit/retention"
	"mercator-hq/relay/pkg/audit/storage"
	"mercator-hq/relay/pkg/cli"
	"mercator-hq/relay/pkg/config"
	"mercator-hq/relay/pkg/processing"
	"mercator-hq/relay/pkg/providerfactory"
	"mercator-hq/relay/pkg/routing"
	"mercator-hq/relay/pkg/server"
	"mercator-hq/relay/pkg/telemetry"
	"mercator-hq/relay/pkg/telemetry/health"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
	watch         bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the gateway",
	Long: `Start the gateway with the specified configuration.

The server listens on the configured address and answers chat requests
from the primary pool, falling back to the fallback pool on failure.

Examples:
  # Start with default config
  relay run

  # Start with custom config
  relay run --config /etc/relay/config.yaml

  # Override listen address
  relay run --listen 0.0.0.0:5000

  # Validate config and build every component without serving
  relay run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "build the gateway without starting the server")
	runCmd.Flags().BoolVar(&runFlags.watch, "watch", true, "reload models and generation defaults when the config file changes")
}

// gateway holds every long-lived component of a running process.
type gateway struct {
	server   *server.Server
	manager  *providerfactory.Manager
	tel      *telemetry.Telemetry
	store    audit.Storage
	recorder *recorder.Recorder
	pruner   *retention.Pruner
}

// buildGateway wires the components described by cfg around tel. On error
// every component built so far, tel included, is released.
func buildGateway(cfg *config.Config, tel *telemetry.Telemetry) (gw *gateway, err error) {
	gw = &gateway{tel: tel}
	defer func() {
		if err != nil {
			gw.close(context.Background())
			gw = nil
		}
	}()

	collector := tel.Metrics

	gw.manager = providerfactory.NewManager(providerfactory.WithHealthObserver(collector.UpdateProviderHealth))
	if err := gw.manager.LoadFromConfig(cfg); err != nil {
		return gw, fmt.Errorf("failed to load providers: %w", err)
	}

	rotator, err := routing.NewRotator(cfg.Routing.Primary, cfg.Routing.Fallback)
	if err != nil {
		return gw, err
	}

	observers := routing.Observers{collector}
	checker := tel.Health
	checker.RegisterCheck("providers", health.ProvidersCheck(gw.manager, cfg.Telemetry.Health.MinHealthyProviders))

	deps := server.Deps{
		Health:  gw.manager,
		Checker: checker,
		Version: tel.Version,
		Metrics: collector,
		Tracer:  tel.Tracer.Tracer(),
	}

	if cfg.Audit.Enabled {
		gw.store, err = storage.New(cfg.Audit)
		if err != nil {
			return gw, fmt.Errorf("failed to open audit storage: %w", err)
		}
		rc := recorder.DefaultConfig()
		if cfg.Audit.BufferSize > 0 {
			rc.BufferSize = cfg.Audit.BufferSize
		}
		gw.recorder = recorder.New(gw.store, rc)
		gw.pruner = retention.NewPruner(gw.store, &retention.Config{
			Days:     cfg.Audit.Retention.Days,
			Schedule: cfg.Audit.Retention.Schedule,
		})
		observers = append(observers, gw.recorder)
		checker.RegisterCheck("audit_storage", health.PingCheck(gw.store))
		deps.Attempts = gw.store
	}

	deps.Orchestrator, err = routing.NewOrchestrator(rotator, gw.manager,
		routing.WithTargetModel(cfg.Routing.TargetModel),
		routing.WithHonorRequestModel(cfg.Routing.HonorRequestModel),
		routing.WithAttemptTimeout(cfg.Gateway.AttemptTimeout),
		routing.WithObserver(observers),
		routing.WithTracer(tel.Tracer.Tracer()),
	)
	if err != nil {
		return gw, err
	}

	deps.Dispatcher = routing.NewDispatcher(cfg.Gateway.Workers, routing.WithInFlightGauge(collector.SetInFlight))
	deps.Processor = processing.NewProcessor(
		routing.GenerationFromConfig(cfg.Generation),
		processing.WithDefaultSystemPrompt(cfg.Gateway.DefaultSystemPrompt),
	)

	gw.server, err = server.New(cfg, deps)
	if err != nil {
		return gw, err
	}
	return gw, nil
}

// close releases components in reverse dependency order.
func (gw *gateway) close(ctx context.Context) {
	if gw.pruner != nil {
		gw.pruner.Stop()
	}
	if gw.recorder != nil {
		if err := gw.recorder.Close(ctx); err != nil {
			slog.Warn("audit recorder did not drain", "error", err)
		}
	}
	if gw.store != nil {
		if err := gw.store.Close(); err != nil {
			slog.Warn("failed to close audit storage", "error", err)
		}
	}
	if gw.manager != nil {
		if err := gw.manager.Close(); err != nil {
			slog.Warn("failed to close providers", "error", err)
		}
	}
	if gw.tel != nil {
		if err := gw.tel.Shutdown(ctx); err != nil {
			slog.Warn("failed to flush telemetry", "error", err)
		}
	}
}

// applyReload pushes the reloadable parts of next into a running gateway.
// Pools and providers are fixed for the process lifetime.
func (gw *gateway) applyReload(next *config.Config, proc *processing.Processor) {
	gw.server.SetModels(next.Models)
	proc.SetDefaults(routing.GenerationFromConfig(next.Generation))
	if err := gw.tel.Logger.SetLevel(next.Telemetry.Logging.Level); err != nil {
		slog.Warn("log level not reloaded", "level", next.Telemetry.Logging.Level, "error", err)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	if err := config.Initialize(cfgFile); err != nil {
		return cli.NewConfigError(cfgFile, err.Error())
	}
	cfg := config.GetConfig()

	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	tel, err := telemetry.New(cfg.Telemetry, versionInfo(), nil)
	if err != nil {
		return cli.NewConfigError("telemetry", err.Error())
	}
	slog.SetDefault(tel.Logger.Logger)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Relay v%s\n", Version)
	fmt.Fprintf(out, "Loading configuration from: %s\n", cfgFile)

	gw, err := buildGateway(cfg, tel)
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	fmt.Fprintf(out, "✓ Providers initialized (%d providers)\n", gw.manager.ProviderCount())
	fmt.Fprintf(out, "✓ Primary pool: %v\n", cfg.Routing.Primary)
	fmt.Fprintf(out, "✓ Fallback pool: %v\n", cfg.Routing.Fallback)
	if gw.store != nil {
		fmt.Fprintf(out, "✓ Audit store initialized (%s)\n", cfg.Audit.Backend)
	}

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	if runFlags.dryRun {
		gw.close(ctx)
		fmt.Fprintln(out, "✓ Configuration valid")
		return nil
	}

	if gw.pruner != nil {
		if err := gw.pruner.Start(ctx); err != nil {
			slog.Warn("failed to start retention scheduler", "error", err)
		} else if next := gw.pruner.NextPruning(); next != nil {
			slog.Debug("audit retention scheduler started", "next_pruning", next)
		}
	}

	if runFlags.watch {
		watcher, err := config.NewWatcher(cfgFile, 0)
		if err != nil {
			slog.Warn("config watcher disabled", "error", err)
		} else {
			proc := gw.server.Processor()
			watcher.OnReload(func(_, next *config.Config) { gw.applyReload(next, proc) })
			go func() {
				if err := watcher.Watch(ctx); err != nil {
					slog.Error("config watcher stopped", "error", err)
				}
			}()
		}
	}

	fmt.Fprintf(out, "✓ Server listening on %s\n", cfg.Server.ListenAddress)
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")

	serveErr := gw.server.Start(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout+5*time.Second)
	defer cancel()
	gw.close(shutdownCtx)

	if serveErr != nil && !errors.Is(serveErr, context.Canceled) {
		return cli.NewCommandError("run", serveErr)
	}
	fmt.Fprintln(out, "✓ Server stopped")
	return nil
}
