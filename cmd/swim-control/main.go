package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/S2-group/swim-HTTP/internal/config"
	"github.com/S2-group/swim-HTTP/internal/handler"
	"github.com/S2-group/swim-HTTP/internal/infra/cache"
	"github.com/S2-group/swim-HTTP/internal/infra/observability"
	"github.com/S2-group/swim-HTTP/internal/infra/resilience"
	"github.com/S2-group/swim-HTTP/internal/infra/schema"
	"github.com/S2-group/swim-HTTP/internal/infra/sim"
	"github.com/S2-group/swim-HTTP/internal/infra/transport"
	"github.com/S2-group/swim-HTTP/internal/service"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "swim-control",
		Short: "SWIM external control plane",
		Long:  "Serves the SWIM monitor/execute protocol over TCP, backed by an in-process simulator.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), cmd.Flags(), configPath)
		},
		SilenceUsage: true,
	}

	rootCmd.Flags().StringVarP(&configPath, "config", "f", "", "Path to YAML config file (overrides SWIM_CONFIG env)")
	config.RegisterFlags(rootCmd.Flags())

	rootCmd.AddCommand(newClientCommands()...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// serve wires the control stack and runs the control listener and the ops
// server until ctx is cancelled.
func serve(ctx context.Context, flags *pflag.FlagSet, configPath string) error {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config: defaults -> YAML -> env -> flags ---
	if configPath == "" {
		configPath = os.Getenv("SWIM_CONFIG")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.ApplyFlags(flags); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.String("control_addr", cfg.ControlAddr),
		zap.String("ops_addr", cfg.OpsAddr),
		zap.String("log_level", cfg.LogLevel),
		zap.Int("buffer_size", cfg.BufferSize),
		zap.Duration("read_timeout", cfg.ReadTimeout),
		zap.String("spec_dir", cfg.SpecDir),
		zap.Duration("document_cache_ttl", cfg.DocumentCacheTTL),
		zap.Bool("tracing_enabled", cfg.TracingEnabled),
		zap.Int("sim_initial_servers", cfg.Sim.InitialServers),
		zap.Int("sim_max_servers", cfg.Sim.MaxServers),
	)

	// --- Tracing ---
	if cfg.TracingEnabled {
		shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "swim-control")
		if err != nil {
			return fmt.Errorf("failed to init tracer: %w", err)
		}
		defer shutdown(context.Background())
	}

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Simulator (Model, Probe, Execution Manager) ---
	simulator := sim.New(sim.Config{
		InitialServers:   cfg.Sim.InitialServers,
		MaxServers:       cfg.Sim.MaxServers,
		BootDelay:        cfg.Sim.BootDelay,
		ArrivalRate:      cfg.Sim.ArrivalRate,
		BasicServiceTime: cfg.Sim.BasicServiceTime,
		OptServiceTime:   cfg.Sim.OptServiceTime,
		InitialDimmer:    cfg.Sim.InitialDimmer,
	}, logger)
	metrics.RegisterModelGauges(simulator)

	// --- Resilience ---
	cb := resilience.NewCircuitBreaker("execution-manager", cfg.BreakerMaxFailures, cfg.BreakerTimeout)
	executor := resilience.NewGuardedExecutor(simulator, cb)

	// --- Documents ---
	docCache := cache.New[[]byte](cfg.DocumentCacheTTL)
	defer docCache.Close()
	loader := schema.NewFileLoader(cfg.SpecDir, docCache, metrics, logger)
	if err := loader.Check(ctx); err != nil {
		logger.Warn("schema documents unavailable, affected routes will return 500", zap.Error(err))
	}

	// --- Services ---
	registry := service.NewRegistry(simulator, simulator, logger)
	adapter := service.NewAdapter(simulator, executor, metrics, logger)
	engine := handler.NewEngine(registry, adapter, loader, metrics, logger)

	// --- Servers ---
	control := transport.NewServer(transport.Config{
		Addr:        cfg.ControlAddr,
		BufferSize:  cfg.BufferSize,
		ReadTimeout: cfg.ReadTimeout,
	}, engine, logger)

	ops := &http.Server{
		Addr:         cfg.OpsAddr,
		Handler:      handler.NewRouter(simulator, executor, loader, metrics, logger),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return control.ListenAndServe(gCtx)
	})

	g.Go(func() error {
		logger.Info("ops server starting", zap.String("addr", cfg.OpsAddr))
		if err := ops.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("ops server: %w", err)
		}
		return nil
	})

	// --- Graceful shutdown ---
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("server shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return ops.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		return err
	}
	logger.Info("server stopped")
	return nil
}
