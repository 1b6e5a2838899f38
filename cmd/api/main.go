package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"hiring_assistant_backend/internal/adapters/storage"
	"hiring_assistant_backend/internal/backend"
	"hiring_assistant_backend/internal/backend/pgstore"
	"hiring_assistant_backend/internal/email"
	"hiring_assistant_backend/internal/events"
	"hiring_assistant_backend/internal/hiring"
	"hiring_assistant_backend/internal/hiring/history"
	"hiring_assistant_backend/internal/hiring/ports"
	"hiring_assistant_backend/internal/hiring/scoring"
	apphttp "hiring_assistant_backend/internal/http"
	"hiring_assistant_backend/internal/http/router"
	"hiring_assistant_backend/internal/notification"
	"hiring_assistant_backend/internal/report"
	"hiring_assistant_backend/internal/scheduler"
	"hiring_assistant_backend/internal/verifycode"
	"hiring_assistant_backend/platform/ai/chatmodel"
	"hiring_assistant_backend/platform/config"
	"hiring_assistant_backend/platform/db"
	"hiring_assistant_backend/platform/logger"
	"hiring_assistant_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// recordStore is a backend store that can report its own health.
type recordStore interface {
	ports.BackendStore
	Ping(ctx context.Context) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore := initRecordStore(ctx, cfg, log)
	defer closeStore()

	redisClient := initRedis(ctx, cfg, log)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()

	hist := initHistory(cfg, redisClient, log)
	codes := initCodeProvider(cfg, redisClient, log)
	reports := initReportGenerator(ctx, cfg, log)

	llm := chatmodel.New(chatmodel.Config{
		APIKey:  cfg.GetReasonerAPIKey(),
		BaseURL: cfg.GetReasonerBaseURL(),
		Model:   cfg.GetReasonerModel(),
	})
	log.Info("reasoner model configured", "model", llm.Name())

	followUps, closeScheduler := initFollowUpScheduler(cfg, log)
	if closeScheduler != nil {
		defer closeScheduler()
	}

	notificationModule := notification.New(store, followUps, getDurationEnv("FOLLOW_UP_DELAY", 24*time.Hour), log)
	notificationModule.RegisterHandlers(eventBus)

	hiringModule, err := hiring.NewModule(hiring.Deps{
		Backend: store,
		Codes:   codes,
		Reports: reports,
		History: hist,
		LLM:     llm,
		Bus:     eventBus,
	}, cfg, cfg, val, log)
	if err != nil {
		log.Error("failed to initialize hiring module", "error", err)
		panic("failed to initialize hiring module: " + err.Error())
	}
	hiringModule.Start(ctx)

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   store,
		EventBus: eventBus,
		Modules: []apphttp.Module{
			hiringModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
		hiringModule.Stop()
		eventBus.Wait()
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func initRecordStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (recordStore, func()) {
	if cfg.GetBackendMode() != config.BackendModePostgres {
		log.Info("using REST backend", "baseUrl", cfg.GetBackendBaseURL())
		return backend.New(cfg, log), func() {}
	}

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	log.Info("database connection established")

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, pool, pgstore.Migrations, pgstore.MigrationsDir, log)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	return pgstore.New(pool), pool.Close
}

func initRedis(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) *redis.Client {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; transcripts kept in memory and follow-ups disabled")
		return nil
	}

	opt, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		log.Error("invalid REDIS_URL", "error", err)
		panic("invalid REDIS_URL: " + err.Error())
	}
	if cfg.GetRedisTLSInsecure() {
		if opt.TLSConfig == nil {
			opt.TLSConfig = &tls.Config{}
		}
		opt.TLSConfig.InsecureSkipVerify = true
	}

	client := redis.NewClient(opt)
	if err := withRetry(ctx, log, "redis connection", 5, 2*time.Second, func() error {
		return client.Ping(ctx).Err()
	}); err != nil {
		log.Error("failed to connect to redis", "error", err)
		panic("failed to connect to redis: " + err.Error())
	}
	log.Info("redis connection established")
	return client
}

func initHistory(cfg config.RedisConfig, client *redis.Client, log *logger.Logger) ports.HistoryStore {
	if client == nil {
		return history.NewMemoryStore()
	}
	store, err := history.NewRedisStore(client, "", cfg.GetHistoryTTL())
	if err != nil {
		log.Error("failed to initialize history store", "error", err)
		panic("failed to initialize history store: " + err.Error())
	}
	return store
}

func initCodeProvider(cfg *config.Config, client *redis.Client, log *logger.Logger) ports.CodeProvider {
	var rest ports.CodeProvider
	if cfg.GetVerifyBaseURL() != "" {
		rest = verifycode.NewRESTProvider(cfg, log)
	}
	if cfg.GetVerifyMode() != config.VerifyModeSMTP {
		return rest
	}

	provider, err := verifycode.NewMailProvider(client, email.NewSMTPSender(cfg), rest, cfg.GetVerifyCodeTTL(), log)
	if err != nil {
		log.Error("failed to initialize mail code provider", "error", err)
		panic("failed to initialize mail code provider: " + err.Error())
	}
	log.Info("verification codes sent by mail", "smtpHost", cfg.GetSMTPHost(), "phoneFallback", rest != nil)
	return provider
}

func initReportGenerator(ctx context.Context, cfg *config.Config, log *logger.Logger) ports.ReportGenerator {
	weights, err := scoring.LoadWeights(cfg.GetScoringWeightsFile())
	if err != nil {
		log.Error("failed to load scoring weights", "error", err)
		panic("failed to load scoring weights: " + err.Error())
	}
	scorer, err := scoring.New(weights, log)
	if err != nil {
		log.Error("invalid scoring weights", "error", err)
		panic("invalid scoring weights: " + err.Error())
	}

	if !cfg.IsMinIOEnabled() {
		log.Warn("MINIO_ENDPOINT not configured; reports are not stored")
		return report.New(scorer, nil, "", log)
	}

	storageSvc, err := storage.NewMinIOService(cfg)
	if err != nil {
		log.Error("failed to initialize storage service", "error", err)
		panic("failed to initialize storage service: " + err.Error())
	}
	bucket := cfg.GetMinioBucketReports()
	ensureBucket(ctx, log, storageSvc, "candidate-reports", bucket)
	log.Info("storage service initialized", "reportsBucket", bucket)
	return report.New(scorer, storageSvc, bucket, log)
}

func initFollowUpScheduler(cfg config.SchedulerConfig, log *logger.Logger) (scheduler.FollowUpScheduler, func()) {
	if cfg.GetRedisURL() == "" {
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize follow-up scheduler client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

func ensureBucket(ctx context.Context, log *logger.Logger, storageSvc storage.StorageService, name, bucket string) {
	if err := withRetry(ctx, log, "ensure "+name+" bucket", 5, 2*time.Second, func() error {
		return storageSvc.EnsureBucketExists(ctx, bucket)
	}); err != nil {
		log.Error("failed to ensure storage bucket exists", "error", err, "bucket", bucket)
		panic("failed to ensure storage bucket exists: " + err.Error())
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}

	return parsed
}
