package grpcsvc

import (
	"context"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/vladislavdragonenkov/ecomstore/internal/domain"
	"github.com/vladislavdragonenkov/ecomstore/internal/manager"
)

// Option настраивает gRPC-сервис.
type Option func(*serviceOptions)

type serviceOptions struct {
	logger      *log.Entry
	idempotency domain.IdempotencyRepository
}

// WithLogger задаёт логгер сервиса.
func WithLogger(logger *log.Entry) Option {
	return func(o *serviceOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithIdempotency включает дедупликацию Create* запросов по metadata idempotency-key.
func WithIdempotency(repo domain.IdempotencyRepository) Option {
	return func(o *serviceOptions) {
		o.idempotency = repo
	}
}

func buildOptions(component string, opts []Option) serviceOptions {
	o := serviceOptions{
		logger: log.WithFields(log.Fields{"component": component, "layer": "grpc"}),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o serviceOptions) idem() *idempotency {
	if o.idempotency == nil {
		return nil
	}
	return &idempotency{repo: o.idempotency, logger: o.logger}
}

// ProductService реализует ecomstore.v1.ProductService поверх ProductManager.
type ProductService struct {
	products manager.ProductManager
	idem     *idempotency
	logger   *log.Entry
}

var _ ProductServiceServer = (*ProductService)(nil)

// NewProductService создаёт gRPC-обёртку менеджера товаров.
func NewProductService(products manager.ProductManager, opts ...Option) *ProductService {
	o := buildOptions("product-grpc", opts)
	return &ProductService{products: products, idem: o.idem(), logger: o.logger}
}

func (s *ProductService) GetAllProducts(_ context.Context, _ *Empty) (*ProductList, error) {
	products, err := s.products.GetAllProducts()
	if err != nil {
		return nil, toStatus(s.logger, "GetAllProducts", err, msgRetrieveProducts)
	}
	return &ProductList{Products: products}, nil
}

func (s *ProductService) GetProductByID(_ context.Context, req *IDRequest) (*manager.ProductDTO, error) {
	product, err := s.products.GetProductByID(req.ID)
	if err != nil {
		return nil, toStatus(s.logger, "GetProductById", err, msgRetrieveProduct)
	}
	if product == nil {
		return nil, status.Errorf(codes.NotFound, "product with ID %d not found", req.ID)
	}
	return product, nil
}

func (s *ProductService) GetProductsByCategory(_ context.Context, req *CategoryRequest) (*ProductList, error) {
	products, err := s.products.GetProductsByCategory(req.Category)
	if err != nil {
		return nil, toStatus(s.logger, "GetProductsByCategory", err, msgRetrieveByCategory)
	}
	return &ProductList{Products: products}, nil
}

func (s *ProductService) SearchProducts(_ context.Context, req *SearchRequest) (*ProductList, error) {
	products, err := s.products.SearchProducts(req.SearchTerm)
	if err != nil {
		return nil, toStatus(s.logger, "SearchProducts", err, msgSearchProducts)
	}
	return &ProductList{Products: products}, nil
}

// CreateProduct создаёт товар. С idempotency-key повтор возвращает сохранённый ответ.
func (s *ProductService) CreateProduct(ctx context.Context, req *manager.ProductDTO) (*CreateResponse, error) {
	return withIdempotency(ctx, s.idem, ProductServiceName+"/CreateProduct", req, func() (*CreateResponse, error) {
		id, err := s.products.CreateProduct(req)
		if err != nil {
			return nil, toStatus(s.logger, "CreateProduct", err, msgCreateProduct)
		}
		return &CreateResponse{ID: id}, nil
	})
}

func (s *ProductService) UpdateProduct(_ context.Context, req *manager.ProductDTO) (*ResultResponse, error) {
	ok, err := s.products.UpdateProduct(req)
	if err != nil {
		return nil, toStatus(s.logger, "UpdateProduct", err, msgUpdateProduct)
	}
	return &ResultResponse{Success: ok}, nil
}

func (s *ProductService) DeleteProduct(_ context.Context, req *IDRequest) (*ResultResponse, error) {
	ok, err := s.products.DeleteProduct(req.ID)
	if err != nil {
		return nil, toStatus(s.logger, "DeleteProduct", err, msgDeleteProduct)
	}
	return &ResultResponse{Success: ok}, nil
}

func (s *ProductService) UpdateStock(_ context.Context, req *UpdateStockRequest) (*ResultResponse, error) {
	ok, err := s.products.UpdateStock(req.ProductID, req.Quantity)
	if err != nil {
		return nil, toStatus(s.logger, "UpdateStock", err, msgUpdateStock)
	}
	return &ResultResponse{Success: ok}, nil
}
