package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"resume-insights/internal/bootstrap"
	"resume-insights/internal/queue"
	"resume-insights/internal/shared/config"
	"resume-insights/internal/shared/telemetry"
)

const (
	defaultVisibilitySeconds = 1200
	defaultConcurrency       = 4
	defaultShutdownTimeout   = 30 * time.Second
)

func main() {
	cfg := config.Load()
	if err := telemetry.Configure(cfg.Env, cfg.LogLevel); err != nil {
		telemetry.Warn("worker.logger_config", map[string]any{"error": err.Error()})
	}
	defer telemetry.Sync()

	if cfg.SQSQueueURL == "" && cfg.AMQPURL == "" {
		telemetry.Error("worker.not_configured", map[string]any{"error": "RA_SQS_QUEUE_URL or RA_AMQP_URL is required"})
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.BuildContext(ctx, cfg)
	if err != nil {
		telemetry.Error("worker.bootstrap_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	defer app.Close()

	concurrency := cfg.WorkerConcurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	shutdownTimeout := time.Duration(cfg.ShutdownTimeoutSeconds) * time.Second
	if shutdownTimeout <= 0 {
		shutdownTimeout = defaultShutdownTimeout
	}

	var wg sync.WaitGroup
	if cfg.SQSQueueURL != "" {
		client, err := newSQSAPI(ctx, cfg.AWSRegion)
		if err != nil {
			telemetry.Error("worker.sqs_config_failed", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
		visibility := envInt("RA_SQS_VISIBILITY_TIMEOUT_SECONDS", defaultVisibilitySeconds)
		telemetry.Info("worker.started", map[string]any{
			"backend":     "sqs",
			"queue":       cfg.SQSQueueURL,
			"concurrency": concurrency,
			"visibility":  visibility,
		})
		runSQS(ctx, client, cfg.SQSQueueURL, int32(visibility), concurrency, app.AnalysesService, &wg)
	} else {
		consumer, err := queue.DialAMQP(cfg.AMQPURL, cfg.AMQPQueue)
		if err != nil {
			telemetry.Error("worker.amqp_dial_failed", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
		defer consumer.Close()
		deliveries, err := consumer.Deliveries(concurrency)
		if err != nil {
			telemetry.Error("worker.amqp_consume_failed", map[string]any{"error": err.Error()})
			os.Exit(1)
		}
		telemetry.Info("worker.started", map[string]any{
			"backend":     "amqp",
			"queue":       consumer.Queue(),
			"concurrency": concurrency,
		})
		runAMQP(ctx, deliveries, concurrency, app.AnalysesService, &wg)
	}

	telemetry.Info("worker.draining", map[string]any{"timeout": shutdownTimeout.String()})
	if !waitTimeout(&wg, shutdownTimeout) {
		telemetry.Warn("worker.shutdown_timeout", map[string]any{"timeout": shutdownTimeout.String()})
	}
}

// waitTimeout reports whether wg finished before d elapsed.
func waitTimeout(wg *sync.WaitGroup, d time.Duration) bool {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(d):
		return false
	}
}

func envInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return val
}
