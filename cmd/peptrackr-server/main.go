package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/mcnannay/peptrackr/internal/core/service"
	"github.com/mcnannay/peptrackr/internal/infra/buildinfo"
	"github.com/mcnannay/peptrackr/internal/infra/confloader"
	"github.com/mcnannay/peptrackr/internal/infra/shutdown"
	"github.com/mcnannay/peptrackr/internal/server/config"
	"github.com/mcnannay/peptrackr/internal/server/httpserver"
	"github.com/mcnannay/peptrackr/internal/server/respserver"
	"github.com/mcnannay/peptrackr/internal/storage"
	"github.com/mcnannay/peptrackr/internal/telemetry/logger"
	"github.com/mcnannay/peptrackr/internal/telemetry/metric"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	configFlag := &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		EnvVars: []string{"PEPTRACKR_CONFIG"},
	}

	return &cli.App{
		Name:    "peptrackr-server",
		Usage:   "Key/value store for tracker settings",
		Version: buildinfo.String(),
		Flags:   []cli.Flag{configFlag},
		Action: func(c *cli.Context) error {
			return run(c.Context, c.String("config"))
		},
		Commands: []*cli.Command{
			{
				Name:  "check-config",
				Usage: "Validate the configuration and print it with secrets masked",
				Action: func(c *cli.Context) error {
					cfg, err := loadConfig(c.String("config"))
					if err != nil {
						return err
					}
					enc := yaml.NewEncoder(c.App.Writer)
					enc.SetIndent(2)
					if err := enc.Encode(config.Sanitize(cfg)); err != nil {
						return err
					}
					return enc.Close()
				},
			},
		},
	}
}

func run(ctx context.Context, configFile string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// Load configuration
	cfg, err := loadConfig(configFile)
	if err != nil {
		return err
	}

	// Initialize logger
	log, err := logger.New(logger.Config{
		Level:     cfg.Log.Level,
		Format:    cfg.Log.Format,
		Output:    os.Stderr,
		AddSource: cfg.Log.AddSource,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefault(log)

	info := buildinfo.Get()
	log.Info("starting peptrackr-server",
		"version", info.Version,
		"commit", info.Commit,
		"config", configFile,
		"storage", cfg.Storage.Engine)
	log.Debug("effective configuration", "config", config.Sanitize(cfg))

	// Metrics and storage
	reg := metric.NewRegistry()

	repo, err := storage.Open(config.ToStorageConfig(cfg.Storage), log, reg.Registerer())
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	store := service.NewStoreService(repo,
		service.WithObserver(reg),
		service.WithLogger(log))
	reg.RegisterEntries(store.Count)

	shutdownHandler := shutdown.NewHandler(cfg.Server.HTTP.ShutdownTimeout, shutdown.WithLogger(log))

	// Hooks run in reverse order: storage closes after the listeners.
	shutdownHandler.OnShutdown("storage", func(context.Context) error {
		return repo.Close()
	})

	// HTTP server
	if err := startHTTP(cfg, store, reg, log, shutdownHandler); err != nil {
		_ = repo.Close()
		return err
	}

	// RESP server
	if cfg.Server.RESP.Enabled {
		if err := startRESP(ctx, cfg, store, reg, log, shutdownHandler); err != nil {
			shutdownHandler.Trigger()
			_ = shutdownHandler.Wait(ctx)
			return err
		}
	}

	// Config reload
	reload := func() {
		next, err := loadConfig(configFile)
		if err != nil {
			log.Warn("config reload failed", "error", err)
			return
		}
		logger.SetLevel(next.Log.Level)
		log.Info("configuration reloaded", "log_level", logger.GetLevel())
	}
	shutdownHandler.OnReload(reload)

	if configFile != "" {
		watcher, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
		if err != nil {
			log.Warn("config watcher unavailable", "error", err)
		} else if err := watcher.Watch(configFile); err != nil {
			log.Warn("cannot watch config file", "path", configFile, "error", err)
			_ = watcher.Stop()
		} else {
			watcher.OnChange(func(string) { reload() })
			watcher.StartAsync()
			shutdownHandler.OnShutdown("config-watcher", func(context.Context) error {
				return watcher.Stop()
			})
		}
	}

	log.Info("server started, press Ctrl+C to stop")
	if err := shutdownHandler.Wait(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		return err
	}

	log.Info("server stopped gracefully")
	return nil
}

// loadConfig loads defaults, the optional file, then environment overrides,
// and validates the result.
func loadConfig(configFile string) (*config.ServerConfig, error) {
	cfg := config.Default()

	var opts []confloader.Option
	if configFile != "" {
		opts = append(opts, confloader.WithConfigFile(configFile))
	}

	if err := confloader.NewLoader(opts...).Load(cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func startHTTP(cfg *config.ServerConfig, store *service.StoreService, reg *metric.Registry, log *slog.Logger, sh *shutdown.Handler) error {
	httpCfg := cfg.Server.HTTP

	routerCfg := &httpserver.RouterConfig{
		Store:              store,
		Logger:             log,
		APIPrefix:          httpCfg.APIPrefix,
		CORSAllowedOrigins: httpCfg.CORSOrigins,
		MaxBodyBytes:       httpCfg.MaxBodyBytes,
		Observer:           reg,
		EnableAudit:        true,
	}
	if httpCfg.RateLimit.Enabled {
		routerCfg.RateLimiter = service.NewRateLimiterRegistry(httpCfg.RateLimit.RPS, httpCfg.RateLimit.Burst)
	}
	if cfg.Metrics.Enabled {
		routerCfg.MetricsHandler = reg.Handler()
		routerCfg.MetricsPath = cfg.Metrics.Path
	}

	srv := httpserver.New(httpserver.Config{
		Addr:         httpCfg.Addr,
		TLSCertFile:  httpCfg.TLSCertFile,
		TLSKeyFile:   httpCfg.TLSKeyFile,
		ReadTimeout:  httpCfg.ReadTimeout,
		WriteTimeout: httpCfg.WriteTimeout,
		IdleTimeout:  httpCfg.IdleTimeout,
	}, httpserver.NewRouter(routerCfg), log)

	// Bind synchronously so a busy port fails startup.
	ln, err := net.Listen("tcp", httpCfg.Addr)
	if err != nil {
		return fmt.Errorf("listen http: %w", err)
	}

	go func() {
		if err := srv.Serve(ln); err != nil {
			log.Error("HTTP server error", "error", err)
			sh.Trigger()
		}
	}()

	sh.OnShutdown("http", srv.Shutdown)
	return nil
}

func startRESP(ctx context.Context, cfg *config.ServerConfig, store *service.StoreService, reg *metric.Registry, log *slog.Logger, sh *shutdown.Handler) error {
	respCfg := cfg.Server.RESP

	opts := []respserver.Option{
		respserver.WithLogger(log),
		respserver.WithObserver(reg),
	}
	if respCfg.RateLimit.Enabled {
		opts = append(opts, respserver.WithRateLimiter(
			service.NewRateLimiterRegistry(respCfg.RateLimit.RPS, respCfg.RateLimit.Burst)))
	}

	srv := respserver.New(respserver.Config{
		Addr:           respCfg.Addr,
		MaxConnections: respCfg.MaxConnections,
		IdleTimeout:    respCfg.IdleTimeout,
	}, store, opts...)

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("listen resp: %w", err)
	}

	sh.OnShutdown("resp", srv.Shutdown)
	return nil
}
