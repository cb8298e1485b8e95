package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"marketchain/config"
	"marketchain/core"
	"marketchain/core/genesis"
	"marketchain/observability/logging"
	"marketchain/rpc"
	"marketchain/rpc/middleware"
	"marketchain/storage"
)

func main() {
	var cfgPath string
	var genesisPath string
	flag.StringVar(&cfgPath, "config", "./config.toml", "path to node configuration (TOML or YAML)")
	flag.StringVar(&genesisPath, "genesis", "", "genesis document applied to an empty state (overrides GenesisFile)")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logOutput, closeLog, err := openLogOutput(cfg.Log.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open log file: %v\n", err)
		os.Exit(1)
	}
	level, _ := logging.ParseLevel(cfg.Log.Level)
	logger := logging.Setup("marketd", cfg.Environment, logging.Options{Level: level, Output: logOutput})

	err = run(cfg, genesisPath, logger)
	if err != nil {
		logger.Error("marketd exited", slog.String("error", err.Error()))
	}
	closeLog()
	if err != nil {
		os.Exit(1)
	}
}

// openLogOutput returns stdout when path is empty, otherwise the file at path
// opened for appending.
func openLogOutput(path string) (io.Writer, func(), error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return os.Stdout, func() {}, nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { _ = f.Close() }, nil
}

func run(cfg *config.Config, genesisPath string, logger *slog.Logger) error {
	db, err := openStorage(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	node, err := core.NewNode(db,
		core.WithLogger(logger),
		core.WithEventHistory(cfg.EventHistory))
	if err != nil {
		return err
	}

	if path := strings.TrimSpace(genesisPath); path != "" {
		cfg.GenesisFile = path
	}
	if err := applyGenesis(node, cfg.GenesisFile, logger); err != nil {
		return err
	}

	server, err := rpc.NewServer(node, serverConfig(cfg), logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return server.Serve(ctx, cfg.RPCAddress)
}

func openStorage(cfg *config.Config) (*storage.LevelDB, error) {
	if cfg.InMemory {
		return storage.NewMemDB()
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	db, err := storage.NewLevelDB(cfg.StatePath())
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}
	return db, nil
}

func applyGenesis(node *core.Node, path string, logger *slog.Logger) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	spec, err := genesis.LoadGenesisSpec(path)
	if err != nil {
		return err
	}
	if err := node.InitGenesis(spec); err != nil {
		if errors.Is(err, core.ErrGenesisApplied) {
			logger.Info("genesis already applied; resuming existing state")
			return nil
		}
		return fmt.Errorf("apply genesis: %w", err)
	}
	return nil
}

func serverConfig(cfg *config.Config) rpc.ServerConfig {
	return rpc.ServerConfig{
		Auth: middleware.AuthConfig{
			Enabled:    cfg.Auth.Enabled,
			HMACSecret: cfg.Auth.HMACSecret,
			Issuer:     cfg.Auth.Issuer,
			Audience:   cfg.Auth.Audience,
			ClockSkew:  time.Duration(cfg.Auth.ClockSkewSeconds) * time.Second,
		},
		RateLimit: middleware.RateLimit{
			RatePerSecond: cfg.RateLimit.RatePerSecond,
			Burst:         cfg.RateLimit.Burst,
		},
		ReadTimeout:     time.Duration(cfg.HTTP.ReadTimeoutSeconds) * time.Second,
		WriteTimeout:    time.Duration(cfg.HTTP.WriteTimeoutSeconds) * time.Second,
		ShutdownTimeout: time.Duration(cfg.HTTP.ShutdownTimeoutSeconds) * time.Second,
		Wrap:            wrappers(cfg),
	}
}

func wrappers(cfg *config.Config) []func(http.Handler) http.Handler {
	if !cfg.Tracing {
		return nil
	}
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return []func(http.Handler) http.Handler{
		func(next http.Handler) http.Handler {
			return otelhttp.NewHandler(next, "marketd")
		},
	}
}
