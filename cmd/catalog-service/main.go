package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ecomstore/internal/app"
	"github.com/vladislavdragonenkov/ecomstore/internal/version"
)

// setupLogger настраивает формат и уровень логирования по ECOM_LOG_*.
func setupLogger(logger *log.Logger, cfg app.Config) error {
	switch strings.ToLower(strings.TrimSpace(cfg.LogFormat)) {
	case "", "text":
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	case "json":
		logger.SetFormatter(&log.JSONFormatter{})
	default:
		return fmt.Errorf("unsupported log format %q (use text|json)", cfg.LogFormat)
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}
	logger.SetLevel(level)
	return nil
}

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		log.WithError(err).Fatal("некорректная конфигурация")
	}
	if err := setupLogger(log.StandardLogger(), cfg); err != nil {
		log.WithError(err).Fatal("некорректные настройки логирования")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(version.Fields()).WithFields(log.Fields{
		"grpc_addr":    cfg.GRPCAddr,
		"http_addr":    cfg.HTTPAddr,
		"metrics_addr": cfg.MetricsAddr,
		"storage":      cfg.StorageDriver,
	}).Info("запускаем catalog-service")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("приложение завершилось с ошибкой")
	}

	log.Info("catalog-service остановлен")
}
