// Command xkoj is the process entry point, grounded on
// original_source/src/main.cpp: a single optional positional config-file
// argument (default "config/server.json"), config load, logger init,
// middleware/static/route registration, then a blocking run until an
// interrupt triggers graceful shutdown.
package main

import (
	"fmt"
	"os"

	"github.com/yourusername/xkoj/internal/config"
	"github.com/yourusername/xkoj/internal/judge"
	"github.com/yourusername/xkoj/internal/logger"
	"github.com/yourusername/xkoj/pkg/core"
	"github.com/yourusername/xkoj/pkg/middleware"
	"github.com/yourusername/xkoj/pkg/wire"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := "config/server.json"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}
	if _, err := os.Stat(configPath); err != nil {
		configPath = ""
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration file: %v\n", err)
		return 1
	}

	level, err := logger.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		level = logger.LevelInfo
	}
	log, err := logger.New(cfg.Server.LogFile, level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		return 1
	}
	defer log.Sync()
	log.Infow("XKOJ starting")

	limits := wire.DefaultLimits()
	limits.MaxRequestSize = cfg.Server.MaxRequestSize
	limits.MaxHeaderSize = cfg.Server.MaxHeaderSize

	app := core.New(core.Config{
		Host:             cfg.Server.Host,
		Port:             cfg.Server.Port,
		MaxConnections:   cfg.Server.MaxConnections,
		WorkerPoolSize:   cfg.Server.ThreadPoolSize,
		IdleTimeout:      cfg.IdleTimeout(),
		Limits:           limits,
		ServerName:       cfg.Server.ServerName,
		EnableKeepAlive:  cfg.Server.EnableKeepAlive,
		KeepAliveTimeout: cfg.KeepAliveTimeoutDuration(),
		EnableLogging:    cfg.Server.EnableLogging,
	}, log)

	if cfg.Server.EnableLogging {
		app.Use(middleware.Logging(log.SugaredLogger))
	}

	if cfg.CORS.Enabled {
		app.Use(middleware.CORS())
	}
	if cfg.RateLimit.Enabled {
		app.Use(middleware.RateLimit(middleware.RateLimitConfig{
			MaxRequests:   cfg.RateLimit.MaxRequests,
			WindowSeconds: cfg.RateLimit.WindowSeconds,
		}))
	}

	for _, mount := range cfg.Static {
		app.Mount(mount.Prefix, mount.Root)
	}
	if len(cfg.Static) == 0 {
		app.Mount("/static", "./public")
	}

	oj := judge.New([]byte("xkoj-development-secret"))
	oj.Register(app, app.Stats())

	log.Infow("XKOJ started", "host", cfg.Server.Host, "port", cfg.Server.Port)
	if err := app.Run(); err != nil {
		log.Errorw("server exited with error", "error", err)
		return 1
	}

	log.Infow("XKOJ shut down")
	return 0
}
