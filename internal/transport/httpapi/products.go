package httpapi

import (
	"net/http"

	"github.com/vladislavdragonenkov/ecomstore/internal/manager"
)

const productNotFound = "product not found"

type stockRequest struct {
	Quantity *int `json:"quantity"`
}

// listProducts: ?category= и ?search= взаимоисключающие, category приоритетнее.
func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var (
		products []manager.ProductDTO
		err      error
		message  string
	)
	switch {
	case query.Has("category"):
		products, err = h.products.GetProductsByCategory(query.Get("category"))
		message = "An error occurred while retrieving products by category"
	case query.Has("search"):
		products, err = h.products.SearchProducts(query.Get("search"))
		message = "An error occurred while searching products"
	default:
		products, err = h.products.GetAllProducts()
		message = "An error occurred while retrieving products"
	}
	if err != nil {
		h.writeFailure(w, r, err, message)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	product, err := h.products.GetProductByID(id)
	if err != nil {
		h.writeFailure(w, r, err, "An error occurred while retrieving the product")
		return
	}
	if product == nil {
		writeError(w, http.StatusNotFound, productNotFound, nil)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var dto manager.ProductDTO
	if !decodeBody(w, r, &dto) {
		return
	}

	id, err := h.products.CreateProduct(&dto)
	if err != nil {
		h.writeFailure(w, r, err, "An error occurred while creating the product")
		return
	}
	writeJSON(w, http.StatusCreated, createdResponse{ID: id})
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var dto manager.ProductDTO
	if !decodeBody(w, r, &dto) {
		return
	}
	dto.ProductID = id

	updated, err := h.products.UpdateProduct(&dto)
	h.writeMutation(w, r, updated, err, "An error occurred while updating the product", productNotFound)
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	deleted, err := h.products.DeleteProduct(id)
	h.writeMutation(w, r, deleted, err, "An error occurred while deleting the product", productNotFound)
}

func (h *Handler) updateStock(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req stockRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Quantity == nil {
		writeError(w, http.StatusBadRequest, "validation failed", map[string]string{"quantity": "field is required"})
		return
	}

	updated, err := h.products.UpdateStock(id, *req.Quantity)
	h.writeMutation(w, r, updated, err, "An error occurred while updating product stock", productNotFound)
}
