package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/goliatone/go-print"

	auth "github.com/goliatone/go-syr-auth"
	"github.com/goliatone/go-syr-auth/activitymap"
	"github.com/goliatone/go-syr-auth/api"
	"github.com/goliatone/go-syr-auth/config"
	"github.com/goliatone/go-syr-auth/logging"
	"github.com/goliatone/go-syr-auth/metrics"
	"github.com/goliatone/go-syr-auth/middleware/csrf"
	"github.com/goliatone/go-syr-auth/middleware/sessionware"
	"github.com/goliatone/go-syr-auth/ratelimit"
	"github.com/goliatone/go-syr-auth/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.App.Environment, cfg.App.Debug)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.GetLogger("main")
	if cfg.App.Debug {
		appLog.Debug("config loaded", "config", print.MaybePrettyJSON(cfg.Redacted()))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := storage.Open(ctx, storage.Options{
		Driver:       cfg.Database.Driver,
		DSN:          cfg.Database.DSN,
		MaxOpenConns: cfg.Database.MaxOpenConns,
	})
	if err != nil {
		appLog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		group, err := storage.Migrate(ctx, db)
		if err != nil {
			appLog.Error("migration failed", "error", err)
			os.Exit(1)
		}
		if !group.IsZero() {
			appLog.Info("migrated", "group", group.String())
		}
	}

	repo := auth.NewRepositoryManager(db)
	repo.MustValidate()

	hasher := auth.NewArgon2Hasher(auth.Argon2Params{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
	})

	tokens, err := auth.NewTokenServiceFromConfig(cfg, logger.GetLogger("auth.tokens"))
	if err != nil {
		appLog.Error("token service", "error", err)
		os.Exit(1)
	}

	sessions := auth.NewSessionManager(repo,
		auth.WithSessionTTL(cfg.GetSessionTTL()),
		auth.WithSessionLogger(logger.GetLogger("auth.sessions")),
	)

	var limiter auth.RateLimiter = ratelimit.NewMemory(cfg.RateLimit.Max, cfg.RateLimit.Window)
	if cfg.Redis.Addr != "" {
		client, err := ratelimit.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			appLog.Warn("redis unavailable, limiting in memory", "addr", cfg.Redis.Addr, "error", err)
		} else {
			defer client.Close()
			limiter = ratelimit.NewRedis(client, cfg.RateLimit.Max, cfg.RateLimit.Window)
		}
	}

	collector := metrics.NewCollector()
	sinks := []auth.ActivitySink{collector}
	if len(cfg.Kafka.Brokers) > 0 {
		client, err := activitymap.NewKafkaClient(cfg.Kafka.Brokers, cfg.Kafka.ClientID)
		if err != nil {
			appLog.Warn("activity stream disabled", "error", err)
		} else {
			defer client.Close()
			sinks = append(sinks, activitymap.NewKafkaSink(client, cfg.Kafka.Topic, logger.GetLogger("auth.activity")))
		}
	}

	provisioner := auth.NewProvisioner(repo, hasher, tokens, sessions,
		auth.WithDIDDomain(cfg.GetDIDDomain()),
		auth.WithRateLimiter(limiter),
		auth.WithActivitySink(auth.MultiActivitySink(sinks...)),
		auth.WithLoggerProvider(logger),
		auth.WithDeterministicIDs(cfg.App.UseHashid),
	)

	cookie := sessionware.CookieConfig{
		Name:   cfg.Session.CookieName,
		Secure: cfg.IsProduction(),
		MaxAge: cfg.GetSessionTTL(),
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	})
	app.Use(recover.New())
	app.Use(logging.RequestLogger(logger.Desugar()))
	app.Use(sessionware.SecurityHeaders())

	if cfg.Metrics.Enabled {
		app.Get(cfg.Metrics.Path, collector.Handler())
	}

	app.Use(csrf.New(csrf.Config{
		AllowedOrigins: publicOrigins(cfg.App.PublicURL),
		CookieName:     cookie.Name,
	}))

	app.Use(sessionware.New(sessionware.Config{
		Validator: provisioner,
		Cookie:    cookie,
		Logger:    logger.GetLogger("auth.gateway"),
	}))

	api.RegisterRoutes(app,
		api.WithProvisioner(provisioner),
		api.WithCookie(cookie),
		api.WithLogger(logger.GetLogger("auth.api")),
		api.WithDebug(cfg.App.Debug),
	)

	sweeper := auth.NewSweeper(sessions, cfg.Session.SweepInterval,
		auth.WithSweepObserver(collector),
		auth.WithSweeperLogger(logger.GetLogger("auth.sweeper")),
	)
	go sweeper.Run(ctx)

	go func() {
		appLog.Info("listening", "addr", cfg.Server.Addr())
		if err := app.Listen(cfg.Server.Addr()); err != nil {
			appLog.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	appLog.Info("shutting down")

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		appLog.Error("shutdown", "error", err)
	}
}

func publicOrigins(publicURL string) []string {
	if publicURL == "" {
		return nil
	}
	return []string{publicURL}
}
