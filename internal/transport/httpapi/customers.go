package httpapi

import (
	"net/http"

	"github.com/vladislavdragonenkov/ecomstore/internal/manager"
)

const customerNotFound = "customer not found"

// listCustomers с ?email= возвращает одного покупателя или 404.
func (h *Handler) listCustomers(w http.ResponseWriter, r *http.Request) {
	if query := r.URL.Query(); query.Has("email") {
		customer, err := h.customers.GetCustomerByEmail(query.Get("email"))
		if err != nil {
			h.writeFailure(w, r, err, "An error occurred while retrieving the customer")
			return
		}
		if customer == nil {
			writeError(w, http.StatusNotFound, customerNotFound, nil)
			return
		}
		writeJSON(w, http.StatusOK, customer)
		return
	}

	customers, err := h.customers.GetAllCustomers()
	if err != nil {
		h.writeFailure(w, r, err, "An error occurred while retrieving customers")
		return
	}
	writeJSON(w, http.StatusOK, customers)
}

func (h *Handler) getCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	customer, err := h.customers.GetCustomerByID(id)
	if err != nil {
		h.writeFailure(w, r, err, "An error occurred while retrieving the customer")
		return
	}
	if customer == nil {
		writeError(w, http.StatusNotFound, customerNotFound, nil)
		return
	}
	writeJSON(w, http.StatusOK, customer)
}

func (h *Handler) createCustomer(w http.ResponseWriter, r *http.Request) {
	var dto manager.CustomerDTO
	if !decodeBody(w, r, &dto) {
		return
	}

	id, err := h.customers.CreateCustomer(&dto)
	if err != nil {
		h.writeFailure(w, r, err, "An error occurred while creating the customer")
		return
	}
	writeJSON(w, http.StatusCreated, createdResponse{ID: id})
}

func (h *Handler) updateCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var dto manager.CustomerDTO
	if !decodeBody(w, r, &dto) {
		return
	}
	dto.CustomerID = id

	updated, err := h.customers.UpdateCustomer(&dto)
	h.writeMutation(w, r, updated, err, "An error occurred while updating the customer", customerNotFound)
}

func (h *Handler) deleteCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	deleted, err := h.customers.DeleteCustomer(id)
	h.writeMutation(w, r, deleted, err, "An error occurred while deleting the customer", customerNotFound)
}

func (h *Handler) deactivateCustomer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	deactivated, err := h.customers.DeactivateCustomer(id)
	h.writeMutation(w, r, deactivated, err, "An error occurred while deactivating the customer", customerNotFound)
}
