package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fieldserve/certfill/internal/compiler"
	"github.com/fieldserve/certfill/internal/config"
	"github.com/fieldserve/certfill/internal/database"
	"github.com/fieldserve/certfill/internal/filler"
	"github.com/fieldserve/certfill/internal/registry"
	"github.com/fieldserve/certfill/internal/server"
	"github.com/fieldserve/certfill/internal/signature"
	"github.com/fieldserve/certfill/internal/sigstore"
	"github.com/fieldserve/certfill/internal/submission"
	"github.com/fieldserve/certfill/internal/templates"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// newLogger builds the process logger from the configured level.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}

	zcfg := zap.NewProductionConfig()
	if cfg.IsDebug() {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}

// buildServer assembles the filling pipeline and the HTTP layer.
func buildServer(cfg *config.Config, logger *zap.Logger) (*server.Server, error) {
	var (
		persist     sigstore.Persistence
		submissions submission.Store = submission.NewMemoryStore()
	)

	if cfg.DatabaseDSN != "" {
		db, err := database.Open(cfg.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		gp, err := sigstore.NewGormPersistence(db)
		if err != nil {
			return nil, fmt.Errorf("init signature position persistence: %w", err)
		}
		persist = gp

		gs, err := submission.NewGormStore(db)
		if err != nil {
			return nil, fmt.Errorf("init submission store: %w", err)
		}
		submissions = gs
		logger.Info("database persistence enabled")
	} else {
		logger.Info("running with in-memory persistence")
	}

	positions, err := sigstore.New(persist, logger)
	if err != nil {
		return nil, fmt.Errorf("init signature position store: %w", err)
	}

	reg := registry.New()
	provider := templates.NewProvider(cfg.TemplateDirectory, cfg.MaxTemplateSize)
	compositor := signature.NewCompositor(positions, cfg.FetchTimeout, logger)
	f := filler.New(reg, provider, compositor, logger)
	comp := compiler.New(f, cfg.CompileConcurrency, logger)

	return server.New(cfg, f, comp, positions, submissions, logger), nil
}

func run(ctx context.Context, cancel context.CancelFunc, srv *server.Server, logger *zap.Logger) {
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.Run(ctx)
	}()

	select {
	case sig := <-signalCh:
		logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		cancel()

		if err := <-serverErrCh; err != nil {
			logger.Error("server shutdown with error", zap.Error(err))
			os.Exit(1)
		}

	case err := <-serverErrCh:
		if err != nil {
			logger.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}

	logger.Info("server stopped")
}

func main() {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			printVersion()
			return
		}
	}

	cfg, err := config.LoadFromFlags()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if version != "dev" {
		cfg.Version = version
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.IsDebug() {
		logger.Debug("starting with configuration", zap.String("config", cfg.String()))
	}

	srv, err := buildServer(cfg, logger)
	if err != nil {
		logger.Fatal("failed to build server", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	run(ctx, cancel, srv, logger)
}

func printVersion() {
	fmt.Printf("Certfill Document Service\n")
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Build Time: %s\n", buildTime)
	fmt.Printf("Git Commit: %s\n", gitCommit)
	fmt.Printf("Built with: %s\n", runtime.Version())
}
