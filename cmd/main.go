package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/okian/mocksrv/internal/adapters/repository"
	service "github.com/okian/mocksrv/internal/app"
	"github.com/okian/mocksrv/internal/config"
	"github.com/okian/mocksrv/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout     = 10 * time.Second
	writeTimeout    = 10 * time.Second
	shutdownTimeout = 30 * time.Second
)

// Flag names map to config keys with dashes replaced by underscores.
var (
	flagLogLevel      = &cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"}
	flagLogJSON       = &cli.BoolFlag{Name: "log-json", Usage: "emit JSON logs"}
	flagAPIAddr       = &cli.StringFlag{Name: "api-addr", Usage: "listen address of the mocked REST API (default :9999)"}
	flagControlAddr   = &cli.StringFlag{Name: "control-addr", Usage: "listen address of the control channel (default :9998)"}
	flagStore         = &cli.StringFlag{Name: "store", Usage: "response store backend: memory or redis"}
	flagRedisAddr     = &cli.StringFlag{Name: "redis-addr", Usage: "redis address for the redis store"}
	flagRedisPassword = &cli.StringFlag{Name: "redis-password", Usage: "redis password"}
	flagRedisDB       = &cli.IntFlag{Name: "redis-db", Usage: "redis database number"}
	flagRedisPrefix   = &cli.StringFlag{Name: "redis-prefix", Usage: "key prefix for stored responses"}
	flagFixtures      = &cli.StringFlag{Name: "fixtures", Usage: "YAML file of responses applied at startup"}
	flagWatch         = &cli.BoolFlag{Name: "watch-fixtures", Usage: "re-apply the fixtures file when it changes"}
)

func main() {
	if err := newApp(run).Run(os.Args); err != nil {
		os.Stderr.WriteString("mocksrv: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func newApp(action cli.ActionFunc) *cli.App {
	return &cli.App{
		Name:  "mocksrv",
		Usage: "configurable mock of a trading platform REST v2 API",
		Flags: []cli.Flag{
			flagLogLevel, flagLogJSON, flagAPIAddr, flagControlAddr, flagStore,
			flagRedisAddr, flagRedisPassword, flagRedisDB, flagRedisPrefix,
			flagFixtures, flagWatch,
		},
		Action: action,
	}
}

// flagOverrides returns the config values of flags set on the command line.
// Unset flags leave lower layers alone.
func flagOverrides(cCtx *cli.Context) map[string]any {
	out := make(map[string]any)
	for _, f := range cCtx.App.Flags {
		name := f.Names()[0]
		if name == "help" || !cCtx.IsSet(name) {
			continue
		}
		out[strings.ReplaceAll(name, "-", "_")] = cCtx.Value(name)
	}
	return out
}

func run(cCtx *cli.Context) error {
	cfg, err := config.Load(cCtx.Context, config.WithOverrides(flagOverrides(cCtx)))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(logger.WithJSON(cfg.LogJSON), logger.WithService("mocksrv")); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(cCtx.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg, logger.Get())
}

// serve runs the service until ctx is cancelled.
func serve(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc := newService(cfg, log)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}
	defer svc.Stop()

	<-ctx.Done()
	log.Info(context.WithoutCancel(ctx), "shutting down...")
	return nil
}

func newService(cfg *config.Config, log logger.Logger) *service.Service {
	return service.New(
		service.WithLogger(log),
		service.WithAPIAddr(cfg.APIAddr),
		service.WithControlAddr(cfg.ControlAddr),
		service.WithStoreSettings(repository.Settings{
			Backend:       cfg.Store,
			RedisAddr:     cfg.RedisAddr,
			RedisPassword: cfg.RedisPassword,
			RedisDB:       cfg.RedisDB,
			RedisPrefix:   cfg.RedisPrefix,
		}),
		service.WithFixtures(cfg.Fixtures),
		service.WithWatchFixtures(cfg.WatchFixtures),
		service.WithTimeouts(readTimeout, writeTimeout),
		service.WithShutdownTimeout(shutdownTimeout),
	)
}
