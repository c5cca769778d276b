package main

import (
	"context"
	"log"
	"log/slog"
	"os/signal"
	"syscall"

	"planthealth/internal/config"
	"planthealth/internal/recognize"
	"planthealth/internal/util"
	"planthealth/pkg/functions"
	"planthealth/pkg/storage"
)

const consumerConcurrency = 4

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	executionTTL, err := config.ParseOptionalDuration("executionTTL", cfg.ExecutionTTL)
	if err != nil {
		log.Fatalf("failed to parse execution TTL: %v", err)
	}

	logger := util.InitLogger("worker", cfg.LogLevel)

	imageBucket := cfg.ImageBucket
	if imageBucket == "" {
		imageBucket = "images"
	}
	images, err := storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, imageBucket, cfg.MinioUseSSL)
	if err != nil {
		log.Fatalf("failed to init image bucket: %v", err)
	}

	executions := functions.NewRedisExecutionStore(cfg.RedisAddr, cfg.RedisPassword, executionTTL)

	queueName := cfg.FunctionQueue
	if queueName == "" {
		queueName = "recognitions"
	}
	queue, err := functions.NewAMQPQueue(cfg.AMQPURL, queueName)
	if err != nil {
		log.Fatalf("failed to init function queue: %v", err)
	}
	defer queue.Close()

	model := recognize.NewModelClient(cfg.RecognizerURL, cfg.RecognizerAPIKey)
	worker := recognize.NewWorker(executions, images, model)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("recognition worker consuming", "queue", queueName, "concurrency", consumerConcurrency)
	if err := queue.Consume(ctx, consumerConcurrency, worker.Handle); err != nil && ctx.Err() == nil {
		logger.Error("consumer error", "err", err)
	}
}
