package grpcsvc

import (
	"context"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vladislavdragonenkov/ecomstore/internal/manager"
)

// CustomerService реализует ecomstore.v1.CustomerService.
type CustomerService struct {
	customers manager.CustomerManager
	idem      *idempotency
	logger    *log.Entry
}

var _ CustomerServiceServer = (*CustomerService)(nil)

func NewCustomerService(customers manager.CustomerManager, opts ...Option) *CustomerService {
	o := buildOptions("customer-grpc", opts)
	return &CustomerService{customers: customers, idem: o.idem(), logger: o.logger}
}

func (s *CustomerService) GetAllCustomers(_ context.Context, _ *Empty) (*CustomerList, error) {
	customers, err := s.customers.GetAllCustomers()
	if err != nil {
		return nil, toStatus(s.logger, "GetAllCustomers", err, msgRetrieveCustomers)
	}
	return &CustomerList{Customers: customers}, nil
}

func (s *CustomerService) GetCustomerByID(_ context.Context, req *IDRequest) (*manager.CustomerDTO, error) {
	customer, err := s.customers.GetCustomerByID(req.ID)
	if err != nil {
		return nil, toStatus(s.logger, "GetCustomerById", err, msgRetrieveCustomer)
	}
	if customer == nil {
		return nil, status.Errorf(codes.NotFound, "customer with ID %d not found", req.ID)
	}
	return customer, nil
}

func (s *CustomerService) GetCustomerByEmail(_ context.Context, req *EmailRequest) (*manager.CustomerDTO, error) {
	customer, err := s.customers.GetCustomerByEmail(req.Email)
	if err != nil {
		return nil, toStatus(s.logger, "GetCustomerByEmail", err, msgRetrieveCustomer)
	}
	if customer == nil {
		return nil, status.Errorf(codes.NotFound, "customer with email %q not found", req.Email)
	}
	return customer, nil
}

func (s *CustomerService) CreateCustomer(ctx context.Context, req *manager.CustomerDTO) (*CreateResponse, error) {
	return withIdempotency(ctx, s.idem, CustomerServiceName+"/CreateCustomer", req, func() (*CreateResponse, error) {
		id, err := s.customers.CreateCustomer(req)
		if err != nil {
			return nil, toStatus(s.logger, "CreateCustomer", err, msgCreateCustomer)
		}
		return &CreateResponse{ID: id}, nil
	})
}

func (s *CustomerService) UpdateCustomer(_ context.Context, req *manager.CustomerDTO) (*ResultResponse, error) {
	ok, err := s.customers.UpdateCustomer(req)
	if err != nil {
		return nil, toStatus(s.logger, "UpdateCustomer", err, msgUpdateCustomer)
	}
	return &ResultResponse{Success: ok}, nil
}

func (s *CustomerService) DeleteCustomer(_ context.Context, req *IDRequest) (*ResultResponse, error) {
	ok, err := s.customers.DeleteCustomer(req.ID)
	if err != nil {
		return nil, toStatus(s.logger, "DeleteCustomer", err, msgDeleteCustomer)
	}
	return &ResultResponse{Success: ok}, nil
}

func (s *CustomerService) DeactivateCustomer(_ context.Context, req *IDRequest) (*ResultResponse, error) {
	ok, err := s.customers.DeactivateCustomer(req.ID)
	if err != nil {
		return nil, toStatus(s.logger, "DeactivateCustomer", err, msgDeactivateCustomer)
	}
	return &ResultResponse{Success: ok}, nil
}
