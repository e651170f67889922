package grpcsvc

import (
	"context"

	"google.golang.org/grpc"

	"github.com/vladislavdragonenkov/ecomstore/internal/manager"
)

// Полные имена сервисов.
const (
	ProductServiceName  = "ecomstore.v1.ProductService"
	CustomerServiceName = "ecomstore.v1.CustomerService"
	OrderServiceName    = "ecomstore.v1.OrderService"
)

// ProductServiceServer - контракт ecomstore.v1.ProductService.
type ProductServiceServer interface {
	GetAllProducts(context.Context, *Empty) (*ProductList, error)
	GetProductByID(context.Context, *IDRequest) (*manager.ProductDTO, error)
	GetProductsByCategory(context.Context, *CategoryRequest) (*ProductList, error)
	SearchProducts(context.Context, *SearchRequest) (*ProductList, error)
	CreateProduct(context.Context, *manager.ProductDTO) (*CreateResponse, error)
	UpdateProduct(context.Context, *manager.ProductDTO) (*ResultResponse, error)
	DeleteProduct(context.Context, *IDRequest) (*ResultResponse, error)
	UpdateStock(context.Context, *UpdateStockRequest) (*ResultResponse, error)
}

// CustomerServiceServer - контракт ecomstore.v1.CustomerService.
type CustomerServiceServer interface {
	GetAllCustomers(context.Context, *Empty) (*CustomerList, error)
	GetCustomerByID(context.Context, *IDRequest) (*manager.CustomerDTO, error)
	GetCustomerByEmail(context.Context, *EmailRequest) (*manager.CustomerDTO, error)
	CreateCustomer(context.Context, *manager.CustomerDTO) (*CreateResponse, error)
	UpdateCustomer(context.Context, *manager.CustomerDTO) (*ResultResponse, error)
	DeleteCustomer(context.Context, *IDRequest) (*ResultResponse, error)
	DeactivateCustomer(context.Context, *IDRequest) (*ResultResponse, error)
}

// OrderServiceServer - контракт ecomstore.v1.OrderService.
type OrderServiceServer interface {
	GetAllOrders(context.Context, *Empty) (*OrderList, error)
	GetOrderByID(context.Context, *IDRequest) (*manager.OrderDTO, error)
	GetOrdersByCustomerID(context.Context, *IDRequest) (*OrderList, error)
	GetOrdersByStatus(context.Context, *StatusRequest) (*OrderList, error)
	CreateOrder(context.Context, *manager.OrderDTO) (*CreateResponse, error)
	UpdateOrder(context.Context, *manager.OrderDTO) (*ResultResponse, error)
	UpdateOrderStatus(context.Context, *UpdateOrderStatusRequest) (*ResultResponse, error)
	CancelOrder(context.Context, *IDRequest) (*ResultResponse, error)
	CalculateOrderTotal(context.Context, *CalculateOrderTotalRequest) (*TotalResponse, error)
}

// Имена методов сохраняют написание исходных контрактов (GetProductById, ...).
var productServiceDesc = grpc.ServiceDesc{
	ServiceName: ProductServiceName,
	HandlerType: (*ProductServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(ProductServiceName, "GetAllProducts", ProductServiceServer.GetAllProducts),
		unary(ProductServiceName, "GetProductById", ProductServiceServer.GetProductByID),
		unary(ProductServiceName, "GetProductsByCategory", ProductServiceServer.GetProductsByCategory),
		unary(ProductServiceName, "SearchProducts", ProductServiceServer.SearchProducts),
		unary(ProductServiceName, "CreateProduct", ProductServiceServer.CreateProduct),
		unary(ProductServiceName, "UpdateProduct", ProductServiceServer.UpdateProduct),
		unary(ProductServiceName, "DeleteProduct", ProductServiceServer.DeleteProduct),
		unary(ProductServiceName, "UpdateStock", ProductServiceServer.UpdateStock),
	},
	Metadata: "ecomstore/v1/catalog",
}

var customerServiceDesc = grpc.ServiceDesc{
	ServiceName: CustomerServiceName,
	HandlerType: (*CustomerServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(CustomerServiceName, "GetAllCustomers", CustomerServiceServer.GetAllCustomers),
		unary(CustomerServiceName, "GetCustomerById", CustomerServiceServer.GetCustomerByID),
		unary(CustomerServiceName, "GetCustomerByEmail", CustomerServiceServer.GetCustomerByEmail),
		unary(CustomerServiceName, "CreateCustomer", CustomerServiceServer.CreateCustomer),
		unary(CustomerServiceName, "UpdateCustomer", CustomerServiceServer.UpdateCustomer),
		unary(CustomerServiceName, "DeleteCustomer", CustomerServiceServer.DeleteCustomer),
		unary(CustomerServiceName, "DeactivateCustomer", CustomerServiceServer.DeactivateCustomer),
	},
	Metadata: "ecomstore/v1/catalog",
}

var orderServiceDesc = grpc.ServiceDesc{
	ServiceName: OrderServiceName,
	HandlerType: (*OrderServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(OrderServiceName, "GetAllOrders", OrderServiceServer.GetAllOrders),
		unary(OrderServiceName, "GetOrderById", OrderServiceServer.GetOrderByID),
		unary(OrderServiceName, "GetOrdersByCustomerId", OrderServiceServer.GetOrdersByCustomerID),
		unary(OrderServiceName, "GetOrdersByStatus", OrderServiceServer.GetOrdersByStatus),
		unary(OrderServiceName, "CreateOrder", OrderServiceServer.CreateOrder),
		unary(OrderServiceName, "UpdateOrder", OrderServiceServer.UpdateOrder),
		unary(OrderServiceName, "UpdateOrderStatus", OrderServiceServer.UpdateOrderStatus),
		unary(OrderServiceName, "CancelOrder", OrderServiceServer.CancelOrder),
		unary(OrderServiceName, "CalculateOrderTotal", OrderServiceServer.CalculateOrderTotal),
	},
	Metadata: "ecomstore/v1/catalog",
}

// RegisterProductServiceServer регистрирует ProductService на сервере.
func RegisterProductServiceServer(registrar grpc.ServiceRegistrar, srv ProductServiceServer) {
	registrar.RegisterService(&productServiceDesc, srv)
}

// RegisterCustomerServiceServer регистрирует CustomerService на сервере.
func RegisterCustomerServiceServer(registrar grpc.ServiceRegistrar, srv CustomerServiceServer) {
	registrar.RegisterService(&customerServiceDesc, srv)
}

// RegisterOrderServiceServer регистрирует OrderService на сервере.
func RegisterOrderServiceServer(registrar grpc.ServiceRegistrar, srv OrderServiceServer) {
	registrar.RegisterService(&orderServiceDesc, srv)
}

// FullMethod собирает полное имя метода для grpc.ClientConn.Invoke.
func FullMethod(service, method string) string {
	return "/" + service + "/" + method
}

// unary строит обработчик метода по method expression интерфейса сервиса.
func unary[S any, Req any, Resp any](service, method string, call func(S, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := FullMethod(service, method)

	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(S), ctx, in)
			}

			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(S), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}
