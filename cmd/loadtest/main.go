// Command loadtest нагружает gRPC-фасад каталога и печатает сводку латентностей.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

type loadMode string

const (
	modeCatalogRead    loadMode = "catalog-read"
	modeOrder          loadMode = "order"
	modeOrderLifecycle loadMode = "order-lifecycle"
)

type config struct {
	addr        string
	total       int
	totalSet    bool
	duration    time.Duration
	concurrency int
	connections int
	timeout     time.Duration
	mode        loadMode
	cancelRate  int
	customerID  int64
	productID   int64
	quantity    int
	unitPrice   decimal.Decimal
	searchTerm  string
	outputPath  string
}

func parseConfig(args []string) (config, error) {
	var (
		cfg        config
		modeValue  string
		priceValue string
	)

	fs := flag.NewFlagSet("loadtest", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&cfg.addr, "addr", "localhost:50051", "gRPC target address")
	fs.IntVar(&cfg.total, "total", 400, "total scenarios in count mode; in duration mode only used when explicitly set")
	fs.DurationVar(&cfg.duration, "duration", 0, "optional time-based run duration (e.g. 10m)")
	fs.IntVar(&cfg.concurrency, "concurrency", 40, "number of concurrent workers")
	fs.IntVar(&cfg.connections, "connections", 20, "number of gRPC client connections")
	fs.DurationVar(&cfg.timeout, "timeout", 5*time.Second, "per-RPC timeout")
	fs.StringVar(&modeValue, "mode", string(modeOrder), "load mode: catalog-read | order | order-lifecycle")
	fs.IntVar(&cfg.cancelRate, "cancel-rate", 0, "percent of order-lifecycle scenarios that end with CancelOrder (0..100)")
	fs.Int64Var(&cfg.customerID, "customer-id", 1, "customer id for created orders")
	fs.Int64Var(&cfg.productID, "product-id", 1, "product id for order items")
	fs.IntVar(&cfg.quantity, "quantity", 1, "quantity per order item")
	fs.StringVar(&priceValue, "unit-price", "999.99", "unit price per order item")
	fs.StringVar(&cfg.searchTerm, "search-term", "Laptop", "term for SearchProducts in catalog-read mode")
	fs.StringVar(&cfg.outputPath, "output", "", "optional JSON report output file path")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "total" {
			cfg.totalSet = true
		}
	})

	mode, err := parseMode(modeValue)
	if err != nil {
		return cfg, err
	}
	cfg.mode = mode

	cfg.unitPrice, err = decimal.NewFromString(strings.TrimSpace(priceValue))
	if err != nil {
		return cfg, fmt.Errorf("parse unit-price: %w", err)
	}

	switch {
	case cfg.duration < 0:
		return cfg, errors.New("duration must be >= 0")
	case cfg.duration == 0 && cfg.total <= 0:
		return cfg, errors.New("total must be > 0 when duration is not set")
	case cfg.duration > 0 && cfg.totalSet && cfg.total <= 0:
		return cfg, errors.New("total must be > 0 when explicitly set with duration")
	case cfg.concurrency <= 0:
		return cfg, errors.New("concurrency must be > 0")
	case cfg.connections <= 0:
		return cfg, errors.New("connections must be > 0")
	case cfg.timeout <= 0:
		return cfg, errors.New("timeout must be > 0")
	case cfg.cancelRate < 0 || cfg.cancelRate > 100:
		return cfg, errors.New("cancel-rate must be between 0 and 100")
	case cfg.customerID <= 0 || cfg.productID <= 0:
		return cfg, errors.New("customer-id and product-id must be > 0")
	case cfg.quantity <= 0:
		return cfg, errors.New("quantity must be > 0")
	case cfg.unitPrice.IsNegative():
		return cfg, errors.New("unit-price must be >= 0")
	}

	return cfg, nil
}

func parseMode(value string) (loadMode, error) {
	switch mode := loadMode(strings.TrimSpace(value)); mode {
	case modeCatalogRead, modeOrder, modeOrderLifecycle:
		return mode, nil
	default:
		return "", fmt.Errorf("unsupported mode: %s", value)
	}
}

func main() {
	cfg, err := parseConfig(os.Args[1:])
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	clients := make([]*grpc.ClientConn, 0, cfg.connections)
	conns := make([]grpc.ClientConnInterface, 0, cfg.connections)
	for i := 0; i < cfg.connections; i++ {
		conn, dialErr := grpc.NewClient(cfg.addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if dialErr != nil {
			_, _ = fmt.Fprintf(os.Stderr, "failed to create grpc client connection: %v\n", dialErr)
			os.Exit(1)
		}
		clients = append(clients, conn)
		conns = append(conns, conn)
	}

	result := execute(context.Background(), cfg, conns)
	for _, conn := range clients {
		_ = conn.Close()
	}

	printReport(os.Stdout, result, cfg)
	if cfg.outputPath != "" {
		if err := writeJSONReport(cfg.outputPath, result); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "failed to write report: %v\n", err)
			os.Exit(1)
		}
	}
	if result.FailedScenarios > 0 {
		os.Exit(1)
	}
}

// execute раздаёт сценарии воркерам; соединения делятся между ними по кругу.
func execute(ctx context.Context, cfg config, conns []grpc.ClientConnInterface) report {
	startedAt := time.Now()
	runID := fmt.Sprintf("%d-%d", startedAt.UnixNano(), os.Getpid())
	col := newCollector()

	jobs := make(chan int, cfg.concurrency*2)
	var wg sync.WaitGroup
	for workerID := 0; workerID < cfg.concurrency; workerID++ {
		s := &scenarioRunner{conn: conns[workerID%len(conns)], cfg: cfg, runID: runID, col: col}
		wg.Add(1)
		go func() {
			defer wg.Done()
			for index := range jobs {
				_ = s.run(ctx, index)
			}
		}()
	}

	dispatchJobs(jobs, cfg)
	wg.Wait()

	return col.buildReport(startedAt, time.Since(startedAt))
}

func dispatchJobs(jobs chan<- int, cfg config) {
	defer close(jobs)

	if cfg.duration <= 0 {
		for i := 0; i < cfg.total; i++ {
			jobs <- i
		}
		return
	}

	timer := time.NewTimer(cfg.duration)
	defer timer.Stop()

	for i := 0; !cfg.totalSet || i < cfg.total; i++ {
		select {
		case <-timer.C:
			return
		case jobs <- i:
		}
	}
}
