package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"campus/internal/account"
	"campus/internal/api"
	"campus/internal/auth"
	"campus/internal/config"
	"campus/internal/event"
	"campus/internal/httpmiddleware"
	"campus/internal/logger"
	"campus/internal/media"
	"campus/internal/notice"
	"campus/internal/notify"
	"campus/internal/queue"
	"campus/internal/routine"
	"campus/internal/store"
	"campus/internal/telemetry"
)

func main() {
	cfg := config.Load()

	// Set Gin mode based on environment
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	reporter := logger.NewReporter(cfg.RollbarToken, cfg.Env, os.Getenv("APP_VERSION"))
	defer reporter.Close(5 * time.Second)

	shutdownTracing, err := telemetry.Init(context.Background(), "campus-api")
	if err != nil {
		return err
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	db, err := store.NewDB(cfg.DatabaseURL, store.Options{MaxOpenConns: cfg.DBMaxOpen, MaxIdleConns: cfg.DBMaxIdle})
	if err != nil {
		if db == nil {
			return err
		}
		log.Printf("warning: db not reachable: %v", err)
	}
	defer db.Close()

	if cfg.MigrateOnStart {
		if err := db.MigrateUp(); err != nil {
			return err
		}
		log.Println("migrations applied")
	}

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	consumeCtx, stopConsumer := context.WithCancel(context.Background())
	defer stopConsumer()

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		mem := queue.NewInMemory(64)
		if err := startLocalFanout(consumeCtx, cfg, db, mem, reg, reporter); err != nil {
			return err
		}
		q = mem
	} else {
		q = queue.NewRedisQueue(redisClient.Client, cfg.QueueKey)
	}
	dispatcher := notify.NewDispatcher(q)

	uploader, err := media.New(cfg)
	if err != nil {
		return err
	}
	log.Printf("media backend: %s", cfg.MediaBackend)

	metrics, err := httpmiddleware.NewMetrics(reg)
	if err != nil {
		return err
	}

	var limiter httpmiddleware.Limiter
	if cfg.RateLimitBackend == "redis" {
		limiter = httpmiddleware.NewRedisWindow(redisClient.Client, cfg.RateLimitPerMin)
	} else {
		limiter = httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin)
	}

	tokens := auth.NewTokens(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.AccessTTL, cfg.RefreshTTL)
	accounts := account.NewService(account.NewPostgresRepository(db.Client), tokens, auth.NewPostgresRefreshStore(db.Client))

	h := &api.Handler{
		Accounts:       accounts,
		Admin:          accounts,
		Notices:        notice.NewService(notice.NewPostgresRepository(db.Client), dispatcher),
		Routines:       routine.NewService(routine.NewPostgresRepository(db.Client)),
		Events:         event.NewService(event.NewPostgresRepository(db.Client), dispatcher),
		Devices:        notify.NewDevices(notify.NewPostgresTokenStore(db.Client)),
		Media:          uploader,
		Tokens:         tokens,
		Reporter:       reporter,
		Limiter:        limiter,
		Metrics:        metrics,
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		DBHealthy:      db.Healthy,
		RedisHealthy:   redisClient.Healthy,
		AllowOrigins:   cfg.CORSAllowedOrigins,
	}
	if cfg.QueueBackend == "memory" && cfg.RateLimitBackend != "redis" {
		h.RedisHealthy = nil
	}

	// Graceful shutdown
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      h.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		reporter.Critical(err)
		return err
	}
	log.Println("Shutting down server...")

	// Give outstanding requests 10 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

// startLocalFanout delivers notifications from the in-memory queue inside the api process.
func startLocalFanout(ctx context.Context, cfg config.App, db *store.DB, q queue.Queue, reg prometheus.Registerer, reporter *logger.Reporter) error {
	gw, err := notify.NewGateway(ctx, cfg.PushBackend, cfg.FirebaseCredentialsFile)
	if err != nil {
		return err
	}
	pushMetrics, err := notify.NewMetrics(reg)
	if err != nil {
		return err
	}
	fanout := notify.NewFanout(notify.NewPostgresTokenStore(db.Client), gw, pushMetrics)
	go func() {
		err := fanout.Serve(ctx, q, func(msg queue.Message, err error) {
			reporter.Error(nil, err, map[string]interface{}{"message_type": msg.Type})
		})
		if err != nil {
			log.Printf("in-process fan-out stopped: %v", err)
		}
	}()
	log.Println("in-memory queue: notifications are delivered by this process")
	return nil
}
