package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonathan/candidate-hub/internal/analytics"
	"github.com/jonathan/candidate-hub/internal/config"
	"github.com/jonathan/candidate-hub/internal/db"
	"github.com/jonathan/candidate-hub/internal/retry"
	"github.com/jonathan/candidate-hub/internal/server"
	"github.com/jonathan/candidate-hub/internal/server/ratelimit"
	"github.com/jonathan/candidate-hub/internal/worker"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes the candidate, matching, analytics and saved-search endpoints.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides PORT and server.port)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if err := cfg.ValidateServe(); err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = servePort
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer database.Close()

	workerClient := worker.NewClient(worker.Options{
		BaseURL: cfg.Worker.URL,
		APIKey:  cfg.Worker.APIKey,
		Timeout: cfg.Worker.Timeout,
	})

	orchestrator := retry.New(database, workerClient, retry.Options{
		Concurrency:     cfg.Retry.Concurrency,
		DispatchTimeout: cfg.Retry.DispatchTimeout,
		Logger:          logger,
	})

	limiter, closeLimiter, err := newLimiter(cfg)
	if err != nil {
		return err
	}
	defer closeLimiter()

	srv := server.New(server.Deps{
		Store:    database,
		Retrier:  orchestrator,
		Enqueuer: workerClient,
		Tokens:   server.NewJWTService(&cfg.JWT),
		Limiter:  limiter,
		Logger:   logger,
	}, server.Options{
		Port:             cfg.Server.Port,
		ReadTimeout:      cfg.Server.ReadTimeout,
		WriteTimeout:     cfg.Server.WriteTimeout,
		CORSOrigins:      cfg.Server.CORSOrigins,
		MaxFileSize:      cfg.Uploads.MaxFileSize,
		MaxSavedSearches: cfg.SavedSearches.MaxPerUser,
		HealthThresholds: healthThresholds(cfg.Health),
	})

	runErr := srv.Run(ctx, cfg.Server.ShutdownTimeout)

	// Drain background worker dispatches so their compensation and credit release finish.
	drainCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := orchestrator.Shutdown(drainCtx); err != nil {
		logger.Warn("retry dispatches still running at shutdown", zap.Error(err))
	}

	return runErr
}

// newLimiter builds the rate limiter and its counter store. The returned func releases the
// store's resources.
func newLimiter(c *config.Config) (*ratelimit.Limiter, func(), error) {
	rl := &ratelimit.Config{
		Enabled:         c.RateLimit.Enabled,
		DefaultLimit:    c.RateLimit.DefaultLimit,
		DefaultWindow:   c.RateLimit.DefaultWindow,
		Whitelist:       ratelimit.ParseIPList(c.RateLimit.Whitelist),
		Blacklist:       ratelimit.ParseIPList(c.RateLimit.Blacklist),
		EndpointConfigs: ratelimit.DefaultEndpointConfigs(),
	}

	switch c.RateLimit.Store {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     c.Redis.Addr,
			Password: c.Redis.Password,
			DB:       c.Redis.DB,
		})
		store := ratelimit.NewRedisStore(client, c.RateLimit.KeyPrefix)
		return ratelimit.NewLimiter(rl, store), func() { _ = client.Close() }, nil
	case "memory", "":
		return ratelimit.NewLimiter(rl, ratelimit.NewMemoryStore()), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown rate limit store %q", c.RateLimit.Store)
	}
}

func healthThresholds(h config.HealthConfig) analytics.HealthThresholds {
	return analytics.HealthThresholds{
		DeadlineCriticalDays: h.DeadlineCriticalDays,
		StuckCritical:        h.StuckCritical,
		StuckWarning:         h.StuckWarning,
		OpenCriticalDays:     h.OpenCriticalDays,
		OpenWarningDays:      h.OpenWarningDays,
		StuckIdleDays:        h.StuckIdleDays,
	}
}
