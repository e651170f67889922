package grpcsvc

import (
	"context"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vladislavdragonenkov/ecomstore/internal/manager"
)

// OrderService реализует ecomstore.v1.OrderService.
// CalculateOrderTotal не обращается к хранилищу и ошибок не возвращает.
type OrderService struct {
	orders manager.OrderManager
	idem   *idempotency
	logger *log.Entry
}

var _ OrderServiceServer = (*OrderService)(nil)

func NewOrderService(orders manager.OrderManager, opts ...Option) *OrderService {
	o := buildOptions("order-grpc", opts)
	return &OrderService{orders: orders, idem: o.idem(), logger: o.logger}
}

func (s *OrderService) GetAllOrders(_ context.Context, _ *Empty) (*OrderList, error) {
	orders, err := s.orders.GetAllOrders()
	if err != nil {
		return nil, toStatus(s.logger, "GetAllOrders", err, msgRetrieveOrders)
	}
	return &OrderList{Orders: orders}, nil
}

func (s *OrderService) GetOrderByID(_ context.Context, req *IDRequest) (*manager.OrderDTO, error) {
	order, err := s.orders.GetOrderByID(req.ID)
	if err != nil {
		return nil, toStatus(s.logger, "GetOrderById", err, msgRetrieveOrder)
	}
	if order == nil {
		return nil, status.Errorf(codes.NotFound, "order with ID %d not found", req.ID)
	}
	return order, nil
}

func (s *OrderService) GetOrdersByCustomerID(_ context.Context, req *IDRequest) (*OrderList, error) {
	orders, err := s.orders.GetOrdersByCustomerID(req.ID)
	if err != nil {
		return nil, toStatus(s.logger, "GetOrdersByCustomerId", err, msgRetrieveOrders)
	}
	return &OrderList{Orders: orders}, nil
}

func (s *OrderService) GetOrdersByStatus(_ context.Context, req *StatusRequest) (*OrderList, error) {
	orders, err := s.orders.GetOrdersByStatus(req.Status)
	if err != nil {
		return nil, toStatus(s.logger, "GetOrdersByStatus", err, msgRetrieveOrders)
	}
	return &OrderList{Orders: orders}, nil
}

func (s *OrderService) CreateOrder(ctx context.Context, req *manager.OrderDTO) (*CreateResponse, error) {
	return withIdempotency(ctx, s.idem, OrderServiceName+"/CreateOrder", req, func() (*CreateResponse, error) {
		id, err := s.orders.CreateOrder(req)
		if err != nil {
			return nil, toStatus(s.logger, "CreateOrder", err, msgCreateOrder)
		}
		return &CreateResponse{ID: id}, nil
	})
}

func (s *OrderService) UpdateOrder(_ context.Context, req *manager.OrderDTO) (*ResultResponse, error) {
	ok, err := s.orders.UpdateOrder(req)
	if err != nil {
		return nil, toStatus(s.logger, "UpdateOrder", err, msgUpdateOrder)
	}
	return &ResultResponse{Success: ok}, nil
}

func (s *OrderService) UpdateOrderStatus(_ context.Context, req *UpdateOrderStatusRequest) (*ResultResponse, error) {
	ok, err := s.orders.UpdateOrderStatus(req.OrderID, req.Status)
	if err != nil {
		return nil, toStatus(s.logger, "UpdateOrderStatus", err, msgUpdateOrderStatus)
	}
	return &ResultResponse{Success: ok}, nil
}

func (s *OrderService) CancelOrder(_ context.Context, req *IDRequest) (*ResultResponse, error) {
	ok, err := s.orders.CancelOrder(req.ID)
	if err != nil {
		return nil, toStatus(s.logger, "CancelOrder", err, msgCancelOrder)
	}
	return &ResultResponse{Success: ok}, nil
}

func (s *OrderService) CalculateOrderTotal(_ context.Context, req *CalculateOrderTotalRequest) (*TotalResponse, error) {
	return &TotalResponse{Total: s.orders.CalculateOrderTotal(req.OrderItems)}, nil
}
