package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	healthcheck "github.com/vladislavdragonenkov/ecomstore/internal/health"
	grpcsvc "github.com/vladislavdragonenkov/ecomstore/internal/service/grpc"
)

func TestRun_MemoryServesRESTAndGRPC(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GRPCAddr = fmt.Sprintf("127.0.0.1:%d", findFreePort(t))
	cfg.HTTPAddr = fmt.Sprintf("127.0.0.1:%d", findFreePort(t))
	cfg.MetricsAddr = fmt.Sprintf("127.0.0.1:%d", findFreePort(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runErr := make(chan error, 1)
	go func() { runErr <- Run(ctx, cfg) }()

	waitForHTTP(t, "http://"+cfg.HTTPAddr+"/api/products")

	code, body := httpGet(t, "http://"+cfg.HTTPAddr+"/api/products")
	require.Equal(t, http.StatusOK, code)
	var products []map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &products))
	require.Len(t, products, 3)

	conn, err := grpc.NewClient(cfg.GRPCAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()

	callCtx, callCancel := context.WithTimeout(ctx, 5*time.Second)
	defer callCancel()

	var customers grpcsvc.CustomerList
	err = conn.Invoke(callCtx, grpcsvc.FullMethod(grpcsvc.CustomerServiceName, "GetAllCustomers"),
		&grpcsvc.Empty{}, &customers, grpcsvc.CallOption())
	require.NoError(t, err)
	require.Len(t, customers.Customers, 2)

	healthResp, err := healthpb.NewHealthClient(conn).Check(callCtx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, healthResp.GetStatus())

	waitForHTTP(t, "http://"+cfg.MetricsAddr+"/livez")
	code, body = httpGet(t, "http://"+cfg.MetricsAddr+"/healthz")
	require.Equal(t, http.StatusOK, code)
	var health healthcheck.Response
	require.NoError(t, json.Unmarshal([]byte(body), &health))
	require.Contains(t, health.Checks, "storage")

	cancel()

	select {
	case err := <-runErr:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}

func TestRun_InvalidStorageDriver(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StorageDriver = "invalid-driver"
	cfg.GRPCAddr = "127.0.0.1:0"
	cfg.HTTPAddr = "127.0.0.1:0"
	cfg.MetricsAddr = "127.0.0.1:0"

	err := Run(context.Background(), cfg)
	if err == nil || !strings.Contains(err.Error(), "unsupported storage driver") {
		t.Fatalf("expected unsupported storage driver error, got %v", err)
	}
}

func TestRun_GRPCAddrInUse(t *testing.T) {
	busy := fmt.Sprintf("127.0.0.1:%d", findFreePort(t))
	srv := &http.Server{Addr: busy, ReadHeaderTimeout: time.Second}
	go func() { _ = srv.ListenAndServe() }()
	defer shutdownHTTP(srv, log.WithField("test", "busy-port"))
	waitForHTTP(t, "http://"+busy+"/")

	cfg := DefaultConfig()
	cfg.GRPCAddr = busy
	cfg.HTTPAddr = "127.0.0.1:0"
	cfg.MetricsAddr = "127.0.0.1:0"

	if err := Run(context.Background(), cfg); err == nil {
		t.Fatal("expected listen error for busy gRPC address")
	}
}

func TestInitRuntimeDependencies_PostgresSuccess(t *testing.T) {
	dsn := strings.TrimSpace(os.Getenv("ECOM_POSTGRES_TEST_DSN"))
	if dsn == "" {
		t.Skip("ECOM_POSTGRES_TEST_DSN is not set")
	}

	cfg := DefaultConfig()
	cfg.StorageDriver = StorageDriverPostgres
	cfg.PostgresDSN = dsn
	cfg.PostgresAutoMigrate = true

	deps, err := initRuntimeDependencies(context.Background(), cfg, log.WithField("test", "postgres-init"))
	if err != nil {
		t.Skipf("postgres is not available for app integration test: %v", err)
	}
	defer func() { _ = deps.close() }()

	require.NotNil(t, deps.products)
	require.NotNil(t, deps.customers)
	require.NotNil(t, deps.orders)
	require.NotNil(t, deps.outboxRepo)
	require.NotNil(t, deps.idempotencyRepo)

	check := deps.storageChecker.Check(context.Background())
	if check.Status != healthcheck.StatusHealthy {
		t.Fatalf("expected healthy storage checker, got %+v", check)
	}
}
