package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	promgrpc "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	healthcheck "github.com/vladislavdragonenkov/ecomstore/internal/health"
	"github.com/vladislavdragonenkov/ecomstore/internal/manager"
	"github.com/vladislavdragonenkov/ecomstore/internal/metrics"
	grpcsvc "github.com/vladislavdragonenkov/ecomstore/internal/service/grpc"
	"github.com/vladislavdragonenkov/ecomstore/internal/service/idempotency"
	"github.com/vladislavdragonenkov/ecomstore/internal/service/outbox"
	"github.com/vladislavdragonenkov/ecomstore/internal/transport/httpapi"
	"github.com/vladislavdragonenkov/ecomstore/internal/version"
)

const (
	gracefulStopTimeout = 5 * time.Second
	readHeaderTimeout   = 5 * time.Second
)

// Run поднимает gRPC, REST и metrics-серверы поверх выбранного хранилища
// и блокируется до отмены ctx или ошибки сервера.
func Run(ctx context.Context, cfg Config) error {
	logger := log.WithField("component", "app")

	deps, err := initRuntimeDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := deps.close(); err != nil {
			logger.WithError(err).Warn("failed to close storage")
		}
	}()

	bus, _ := openEventBus(cfg, logger)
	defer bus.close()

	managerOpts := []manager.Option{manager.WithMetrics(metrics.NewManagerMetrics())}
	if bus.enabled() {
		// Без брокера события некому доставлять, outbox не заполняем.
		managerOpts = append(managerOpts, manager.WithOutbox(deps.outboxRepo))
	}
	products := manager.NewProductManager(deps.products, managerOpts...)
	customers := manager.NewCustomerManager(deps.customers, managerOpts...)
	orders := manager.NewOrderManager(deps.orders, managerOpts...)

	grpcServer, grpcMetrics := newGRPCServer(logger)
	serviceOpts := []grpcsvc.Option{grpcsvc.WithIdempotency(deps.idempotencyRepo)}
	grpcsvc.RegisterProductServiceServer(grpcServer, grpcsvc.NewProductService(products, serviceOpts...))
	grpcsvc.RegisterCustomerServiceServer(grpcServer, grpcsvc.NewCustomerService(customers, serviceOpts...))
	grpcsvc.RegisterOrderServiceServer(grpcServer, grpcsvc.NewOrderService(orders, serviceOpts...))
	grpcMetrics.InitializeMetrics(grpcServer)

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	healthHandler := healthcheck.NewHandler(version.GetVersion())
	healthHandler.RegisterChecker("storage", deps.storageChecker)
	if deps.cacheChecker != nil {
		healthHandler.RegisterChecker("cache", deps.cacheChecker)
	}

	stopWorkers := startWorkers(ctx, cfg, deps, bus, logger)
	defer stopWorkers()

	grpcLis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return err
	}
	restLis, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		_ = grpcLis.Close()
		return err
	}

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, healthHandler)

	restHandler := httpapi.NewHandler(products, customers, orders,
		httpapi.WithLogger(logger.WithField("layer", "http")),
		httpapi.WithRateLimit(cfg.HTTPRateLimit),
		httpapi.WithCORS(cfg.HTTPCORSOrigins),
	)
	restSrv := &http.Server{Handler: restHandler.Routes(), ReadHeaderTimeout: readHeaderTimeout}

	errCh := make(chan error, 2)
	go func() {
		logger.Infof("gRPC сервер слушает %s", grpcLis.Addr())
		errCh <- grpcServer.Serve(grpcLis)
	}()
	go func() {
		logger.Infof("REST API слушает %s", restLis.Addr())
		if err := restSrv.Serve(restLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("получен сигнал остановки, останавливаем серверы")
		healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
		stopGRPC(grpcServer, logger)
		shutdownHTTP(restSrv, logger)
		shutdownHTTP(metricsSrv, logger)
		return ctx.Err()
	case err := <-errCh:
		grpcServer.Stop()
		shutdownHTTP(restSrv, logger)
		shutdownHTTP(metricsSrv, logger)
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	}
}

// newGRPCServer создаёт сервер с prometheus-интерцептором. JSON-кодек
// регистрируется пакетом grpcsvc при импорте.
func newGRPCServer(logger *log.Entry) (*grpc.Server, *promgrpc.ServerMetrics) {
	grpcMetrics := promgrpc.NewServerMetrics()
	if err := prometheus.Register(grpcMetrics); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(*promgrpc.ServerMetrics); ok {
				grpcMetrics = existing
			}
		} else {
			logger.WithError(err).Warn("failed to register grpc metrics")
		}
	}

	server := grpc.NewServer(grpc.ChainUnaryInterceptor(grpcMetrics.UnaryServerInterceptor()))
	return server, grpcMetrics
}

// stopGRPC ждёт завершения активных вызовов не дольше gracefulStopTimeout.
func stopGRPC(server *grpc.Server, logger *log.Entry) {
	stoppedCh := make(chan struct{})
	go func() {
		server.GracefulStop()
		close(stoppedCh)
	}()
	select {
	case <-stoppedCh:
	case <-time.After(gracefulStopTimeout):
		logger.Warn("graceful stop превысил таймаут, принудительно останавливаем")
		server.Stop()
	}
}

// startWorkers запускает фоновые воркеры и возвращает функцию их остановки.
// Outbox worker нужен только при настроенном Kafka.
func startWorkers(ctx context.Context, cfg Config, deps *runtimeDependencies, bus *eventBus, logger *log.Entry) func() {
	workerCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup

	if bus.enabled() {
		worker := outbox.NewWorker(deps.outboxRepo, bus.events,
			outbox.WithLogger(logger.WithField("worker", "outbox")),
			outbox.WithMetrics(metrics.NewOutboxMetricsWithRegisterer(prometheus.DefaultRegisterer)),
			outbox.WithDLQPublisher(bus.dlq),
			outbox.WithPollInterval(cfg.OutboxPollInterval),
			outbox.WithBatchSize(cfg.OutboxBatchSize),
			outbox.WithMaxAttempts(cfg.OutboxMaxAttempts),
			outbox.WithRetryBaseDelay(cfg.OutboxRetryDelay),
		)
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker.Run(workerCtx)
		}()
	}

	cleanup := idempotency.NewCleanupWorker(deps.idempotencyRepo,
		idempotency.WithLogger(logger.WithField("worker", "idempotency-cleanup")),
		idempotency.WithMetrics(metrics.NewCleanupMetricsWithRegisterer(prometheus.DefaultRegisterer)),
		idempotency.WithInterval(cfg.IdempotencyCleanupInterval),
		idempotency.WithBatchSize(cfg.IdempotencyCleanupBatchSize),
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		cleanup.Run(workerCtx)
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			wg.Wait()
			logger.Info("background workers stopped")
		})
	}
}

// startMetricsServer запускает HTTP-обработчик /metrics для Prometheus
// вместе с health-проверками.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler *healthcheck.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", healthHandler.ReadinessHandler)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: readHeaderTimeout}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", addr, addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), gracefulStopTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("http shutdown with error")
	}
}
