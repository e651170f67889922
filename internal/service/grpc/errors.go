package grpcsvc

import (
	"errors"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vladislavdragonenkov/ecomstore/internal/domain"
)

// Сообщения для codes.Internal. Подробности ошибки остаются в логе.
const (
	msgRetrieveProducts   = "An error occurred while retrieving products"
	msgRetrieveProduct    = "An error occurred while retrieving the product"
	msgRetrieveByCategory = "An error occurred while retrieving products by category"
	msgSearchProducts     = "An error occurred while searching products"
	msgCreateProduct      = "An error occurred while creating the product"
	msgUpdateProduct      = "An error occurred while updating the product"
	msgDeleteProduct      = "An error occurred while deleting the product"
	msgUpdateStock        = "An error occurred while updating product stock"
	msgRetrieveCustomers  = "An error occurred while retrieving customers"
	msgRetrieveCustomer   = "An error occurred while retrieving the customer"
	msgCreateCustomer     = "An error occurred while creating the customer"
	msgUpdateCustomer     = "An error occurred while updating the customer"
	msgDeleteCustomer     = "An error occurred while deleting the customer"
	msgDeactivateCustomer = "An error occurred while deactivating the customer"
	msgRetrieveOrders     = "An error occurred while retrieving orders"
	msgRetrieveOrder      = "An error occurred while retrieving the order"
	msgCreateOrder        = "An error occurred while creating the order"
	msgUpdateOrder        = "An error occurred while updating the order"
	msgUpdateOrderStatus  = "An error occurred while updating the order status"
	msgCancelOrder        = "An error occurred while cancelling the order"
)

// toStatus переводит ошибку менеджера в gRPC-статус.
// ValidationError уходит клиенту как InvalidArgument с картой полей в сообщении,
// остальные ошибки логируются и скрываются за internalMsg.
func toStatus(logger *log.Entry, operation string, err error, internalMsg string) error {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return status.Error(codes.InvalidArgument, verr.Error())
	}

	logger.WithError(err).WithField("operation", operation).Error(internalMsg)
	return status.Error(codes.Internal, internalMsg)
}
