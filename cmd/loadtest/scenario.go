package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/vladislavdragonenkov/ecomstore/internal/domain"
	"github.com/vladislavdragonenkov/ecomstore/internal/manager"
	grpcsvc "github.com/vladislavdragonenkov/ecomstore/internal/service/grpc"
)

var errUnexpectedResult = errors.New("mutation reported success=false")

type scenarioRunner struct {
	conn  grpc.ClientConnInterface
	cfg   config
	runID string
	col   *collector
}

func (s *scenarioRunner) run(ctx context.Context, index int) (err error) {
	started := time.Now()
	defer func() { s.col.record(scenarioMethod, time.Since(started), resultCode(err)) }()

	switch s.cfg.mode {
	case modeCatalogRead:
		return s.catalogRead(ctx)
	case modeOrder:
		_, err = s.createOrder(ctx, index)
		return err
	case modeOrderLifecycle:
		return s.orderLifecycle(ctx, index)
	default:
		return fmt.Errorf("unsupported mode: %s", s.cfg.mode)
	}
}

func (s *scenarioRunner) catalogRead(ctx context.Context) error {
	var all grpcsvc.ProductList
	if err := s.call(ctx, "", grpcsvc.ProductServiceName, "GetAllProducts", &grpcsvc.Empty{}, &all); err != nil {
		return err
	}
	var found grpcsvc.ProductList
	return s.call(ctx, "", grpcsvc.ProductServiceName, "SearchProducts", &grpcsvc.SearchRequest{SearchTerm: s.cfg.searchTerm}, &found)
}

func (s *scenarioRunner) createOrder(ctx context.Context, index int) (int64, error) {
	order := &manager.OrderDTO{
		CustomerID:      s.cfg.customerID,
		TotalAmount:     s.cfg.unitPrice.Mul(decimal.NewFromInt(int64(s.cfg.quantity))),
		ShippingAddress: fmt.Sprintf("load %s #%d", s.runID, index),
		OrderItems: []manager.OrderItemDTO{{
			ProductID: s.cfg.productID,
			Quantity:  s.cfg.quantity,
			UnitPrice: s.cfg.unitPrice,
		}},
	}

	var created grpcsvc.CreateResponse
	key := fmt.Sprintf("lt-create-%s-%d", s.runID, index)
	if err := s.call(ctx, key, grpcsvc.OrderServiceName, "CreateOrder", order, &created); err != nil {
		return 0, err
	}
	if created.ID <= 0 {
		return 0, errors.New("create response returned empty order id")
	}
	return created.ID, nil
}

func (s *scenarioRunner) orderLifecycle(ctx context.Context, index int) error {
	orderID, err := s.createOrder(ctx, index)
	if err != nil {
		return err
	}

	var updated grpcsvc.ResultResponse
	req := &grpcsvc.UpdateOrderStatusRequest{OrderID: orderID, Status: domain.OrderStatusProcessing}
	if err := s.call(ctx, "", grpcsvc.OrderServiceName, "UpdateOrderStatus", req, &updated); err != nil {
		return err
	}
	if !updated.Success {
		return errUnexpectedResult
	}

	if !shouldCancelScenario(index, s.cfg.cancelRate) {
		return nil
	}
	var cancelled grpcsvc.ResultResponse
	if err := s.call(ctx, "", grpcsvc.OrderServiceName, "CancelOrder", &grpcsvc.IDRequest{ID: orderID}, &cancelled); err != nil {
		return err
	}
	if !cancelled.Success {
		return errUnexpectedResult
	}
	return nil
}

// call выполняет unary-вызов с JSON-кодеком и учитывает его в collector.
// Непустой key уходит в метаданные idempotency-key.
func (s *scenarioRunner) call(ctx context.Context, key, service, method string, req, resp any) error {
	start := time.Now()
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.timeout)
	defer cancel()
	if key != "" {
		callCtx = metadata.AppendToOutgoingContext(callCtx, grpcsvc.IdempotencyKeyHeader, key)
	}

	err := s.conn.Invoke(callCtx, grpcsvc.FullMethod(service, method), req, resp, grpcsvc.CallOption())
	s.col.record(method, time.Since(start), resultCode(err))
	return err
}

func resultCode(err error) codes.Code {
	switch {
	case err == nil:
		return codes.OK
	case errors.Is(err, errUnexpectedResult):
		return codes.FailedPrecondition
	default:
		return status.Code(err)
	}
}

func shouldCancelScenario(index, cancelRate int) bool {
	if cancelRate <= 0 {
		return false
	}
	if cancelRate >= 100 {
		return true
	}
	return index%100 < cancelRate
}
