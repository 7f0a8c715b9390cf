package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"antigravity/internal/api"
	"antigravity/internal/booking"
	"antigravity/internal/config"
	"antigravity/internal/gcal"
	"antigravity/internal/metrics"
	"antigravity/internal/notify"
	"antigravity/internal/rules"
	"antigravity/internal/store"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	_ = godotenv.Load()

	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	cfg, err := config.Load(os.Getenv("ANTIGRAVITY_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	ruleSet, err := rules.Load(cfg.Rules.Path)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.Rules.Path).Msg("failed to load rules")
	}
	provider := rules.NewProvider(ruleSet)

	db, err := store.Open(cfg.Database.Path, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rules.Watch(ctx, cfg.Rules.Path, cfg.RulesReloadInterval(), provider, func(err error) {
		logger.Error().Err(err).Msg("rules reload failed")
	}); err != nil {
		logger.Error().Err(err).Msg("rules watch failed")
	}

	var rdb *redis.Client
	var limiter api.Limiter
	if cfg.Redis.Enabled && cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		limiter = api.NewRedisLimiter(rdb, cfg.RateLimitMax(), cfg.RateLimitWindow())
	} else {
		limiter = api.NewMemoryLimiter(cfg.RateLimitMax(), cfg.RateLimitWindow())
	}

	var notifier booking.Notifier
	if cfg.SMTP.Enabled {
		mailer := notify.NewMailer(notify.SMTPConfig{
			Host:       cfg.SMTP.Host,
			Port:       cfg.SMTP.Port,
			From:       cfg.SMTP.From,
			Username:   cfg.SMTP.Username,
			Password:   cfg.SMTP.Password,
			AdminEmail: cfg.SMTP.AdminEmail,
		}, notify.DefaultTemplates(), &logger)
		notifier = mailer

		if cfg.Telegram.Enabled && cfg.Telegram.BotToken != "" {
			tg, err := notify.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.Managers, mailer, &logger)
			if err != nil {
				logger.Error().Err(err).Msg("telegram notifier init failed")
			} else {
				notifier = tg
			}
		}
	}

	var calendar booking.CalendarSync
	if cfg.GoogleCalendar.Enabled {
		svc, err := gcal.New(ctx, gcal.Config{
			CredentialsPath: cfg.GoogleCalendar.CredentialsPath,
			CalendarID:      cfg.GoogleCalendar.CalendarID,
			Timezone:        provider.Current().Location.String(),
		}, db, &logger)
		if err != nil {
			logger.Error().Err(err).Msg("google calendar init failed")
		} else {
			calendar = svc
		}
	}

	dispatcher := booking.NewDispatcher(notifier, calendar, &logger)
	svc := booking.NewService(db, provider, dispatcher, &logger)
	svc.StartExpirySweep(ctx, cfg.SweepInterval())

	if cfg.Monitoring.HealthCheckPort == 0 {
		cfg.Monitoring.HealthCheckPort = 8090
	}
	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, db, rdb, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	if cfg.Backup.Enabled {
		go startBackupLoop(ctx, db, cfg, &logger)
	}

	server := api.NewHTTPServer(provider, db, svc, limiter, cfg.Server.AdminToken, &logger)
	logger.Info().Msg("booking service started")
	if err := server.Start(ctx, cfg.Server.ListenAddr); err != nil {
		logger.Fatal().Err(err).Msg("API server error")
	}
}

func startBackupLoop(ctx context.Context, db *store.DB, cfg *config.Config, logger *zerolog.Logger) {
	if cfg.Backup.Path == "" {
		cfg.Backup.Path = "backups"
	}
	if cfg.Backup.RetentionDays <= 0 {
		cfg.Backup.RetentionDays = 14
	}

	if err := os.MkdirAll(cfg.Backup.Path, 0o755); err != nil {
		logger.Error().Err(err).Msg("failed to create backup directory")
		return
	}

	retention := time.Duration(cfg.Backup.RetentionDays) * 24 * time.Hour

	// Run first backup after a short delay
	select {
	case <-time.After(1 * time.Minute):
		runBackupTask(db, cfg, retention, logger)
	case <-ctx.Done():
		return
	}

	ticker := time.NewTicker(cfg.BackupInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			runBackupTask(db, cfg, retention, logger)
		case <-ctx.Done():
			return
		}
	}
}

func runBackupTask(db *store.DB, cfg *config.Config, retention time.Duration, logger *zerolog.Logger) {
	timestamp := time.Now().Format("20060102_150405")
	dest := filepath.Join(cfg.Backup.Path, fmt.Sprintf("antigravity_%s.db", timestamp))

	logger.Info().Str("path", dest).Msg("starting database backup")
	if err := db.Backup(dest); err != nil {
		logger.Error().Err(err).Msg("backup failed")
	} else {
		logger.Info().Msg("backup completed successfully")
	}

	deleted, err := db.CleanupBackups(cfg.Backup.Path, retention)
	if err != nil {
		logger.Error().Err(err).Msg("backup cleanup failed")
	} else if deleted > 0 {
		logger.Info().Int("deleted", deleted).Msg("cleaned up old backups")
	}
}

func startHealthServer(ctx context.Context, port int, db *store.DB, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := db.PingContext(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	logger.Info().Int("port", port).Msg("metrics server listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
