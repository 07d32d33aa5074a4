package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"campus/internal/config"
	"campus/internal/logger"
	"campus/internal/notify"
	"campus/internal/queue"
	"campus/internal/store"
	"campus/internal/telemetry"
)

// Worker consumes queued notifications and fans each one out to every registered device.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	reporter := logger.NewReporter(cfg.RollbarToken, cfg.Env, os.Getenv("APP_VERSION"))
	defer reporter.Close(5 * time.Second)

	shutdownTracing, err := telemetry.Init(ctx, "campus-worker")
	if err != nil {
		log.Fatalf("tracing init failed: %v", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	db, err := store.NewDB(cfg.DatabaseURL, store.Options{MaxOpenConns: cfg.DBMaxOpen, MaxIdleConns: cfg.DBMaxIdle})
	if db == nil {
		log.Fatalf("db connect failed: %v", err)
	}
	if err != nil {
		log.Printf("db not reachable yet: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
		log.Println("warning: in-memory queue, only messages published by this process are seen")
	} else {
		q = queue.NewRedisQueue(redisClient.Client, cfg.QueueKey)
	}

	reg := prometheus.NewRegistry()
	metrics, err := notify.NewMetrics(reg)
	if err != nil {
		log.Fatalf("register metrics failed: %v", err)
	}
	go serveMetrics(ctx, cfg.WorkerMetricsPort, reg)

	fanout := notify.NewFanout(notify.NewPostgresTokenStore(db.Client), newGateway(ctx, cfg), metrics)

	log.Println("worker started, waiting for messages...")
	err = fanout.Serve(ctx, q, func(msg queue.Message, err error) {
		reporter.Error(nil, err, map[string]interface{}{"message_type": msg.Type})
	})
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker stopped")
}

func newGateway(ctx context.Context, cfg config.App) notify.Gateway {
	gw, err := notify.NewGateway(ctx, cfg.PushBackend, cfg.FirebaseCredentialsFile)
	if err != nil {
		log.Fatalf("fcm init failed: %v", err)
	}
	log.Printf("push backend: %s", cfg.PushBackend)
	return gw
}

func serveMetrics(ctx context.Context, port string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: ":" + port, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Printf("metrics server failed: %v", err)
	}
}
