package main

import (
	"log"
	"log/slog"
	"net/http"
	"time"

	"planthealth/internal/app"
	"planthealth/internal/config"
	"planthealth/internal/server"
	"planthealth/internal/util"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	sessionTTL, err := config.ParseOptionalDuration("sessionTTL", cfg.SessionTTL)
	if err != nil {
		log.Fatalf("failed to parse session TTL: %v", err)
	}
	executionTTL, err := config.ParseOptionalDuration("executionTTL", cfg.ExecutionTTL)
	if err != nil {
		log.Fatalf("failed to parse execution TTL: %v", err)
	}
	pollInterval, err := config.ParseOptionalDuration("pollInterval", cfg.PollInterval)
	if err != nil {
		log.Fatalf("failed to parse poll interval: %v", err)
	}
	pollTimeout, err := config.ParseOptionalDuration("pollTimeout", cfg.PollTimeout)
	if err != nil {
		log.Fatalf("failed to parse poll timeout: %v", err)
	}

	logger := util.InitLogger("api", cfg.LogLevel)

	appCore, err := app.New(app.Config{
		DatabaseURL:     cfg.DatabaseURL,
		RedisAddr:       cfg.RedisAddr,
		RedisPassword:   cfg.RedisPassword,
		SessionTTL:      sessionTTL,
		JWTSecret:       cfg.JWTSecret,
		MinioEndpoint:   cfg.MinioEndpoint,
		MinioAccessKey:  cfg.MinioAccessKey,
		MinioSecretKey:  cfg.MinioSecretKey,
		MinioUseSSL:     cfg.MinioUseSSL,
		ImageBucket:     cfg.ImageBucket,
		BlogImageBucket: cfg.BlogImageBucket,
		AMQPURL:         cfg.AMQPURL,
		FunctionQueue:   cfg.FunctionQueue,
		ExecutionTTL:    executionTTL,
		PollInterval:    pollInterval,
		PollTimeout:     pollTimeout,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	httpServer, err := server.New(server.Config{
		App:                     appCore,
		RedisAddr:               cfg.RedisAddr,
		RedisPassword:           cfg.RedisPassword,
		RegisterRateLimitPerMin: cfg.RegisterRateLimitPerMin,
		LoginRateLimitPerMin:    cfg.LoginRateLimitPerMin,
		MaxUploadBytes:          cfg.MaxUploadBytes,
	})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout(pollTimeout),
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("api server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}

// writeTimeout leaves headroom past the recognition poll deadline so a
// request that runs to the poll timeout can still flush its response.
func writeTimeout(pollTimeout time.Duration) time.Duration {
	if pollTimeout <= 0 {
		pollTimeout = 2 * time.Minute
	}
	return pollTimeout + 30*time.Second
}
