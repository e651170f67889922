package httpapi

import (
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/ecomstore/internal/manager"
)

const orderNotFound = "order not found"

type orderStatusRequest struct {
	Status string `json:"status"`
}

type orderTotalRequest struct {
	OrderItems []manager.OrderItemDTO `json:"orderItems"`
}

type orderTotalResponse struct {
	Total decimal.Decimal `json:"total"`
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var (
		orders []manager.OrderDTO
		err    error
	)
	switch {
	case query.Has("customerId"):
		customerID, parseErr := strconv.ParseInt(query.Get("customerId"), 10, 64)
		if parseErr != nil {
			writeError(w, http.StatusBadRequest, "invalid customerId", nil)
			return
		}
		orders, err = h.orders.GetOrdersByCustomerID(customerID)
	case query.Has("status"):
		orders, err = h.orders.GetOrdersByStatus(query.Get("status"))
	default:
		orders, err = h.orders.GetAllOrders()
	}
	if err != nil {
		h.writeFailure(w, r, err, "An error occurred while retrieving orders")
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	order, err := h.orders.GetOrderByID(id)
	if err != nil {
		h.writeFailure(w, r, err, "An error occurred while retrieving the order")
		return
	}
	if order == nil {
		writeError(w, http.StatusNotFound, orderNotFound, nil)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var dto manager.OrderDTO
	if !decodeBody(w, r, &dto) {
		return
	}

	id, err := h.orders.CreateOrder(&dto)
	if err != nil {
		h.writeFailure(w, r, err, "An error occurred while creating the order")
		return
	}
	writeJSON(w, http.StatusCreated, createdResponse{ID: id})
}

func (h *Handler) updateOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var dto manager.OrderDTO
	if !decodeBody(w, r, &dto) {
		return
	}
	dto.OrderID = id

	updated, err := h.orders.UpdateOrder(&dto)
	h.writeMutation(w, r, updated, err, "An error occurred while updating the order", orderNotFound)
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req orderStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}

	updated, err := h.orders.UpdateOrderStatus(id, req.Status)
	h.writeMutation(w, r, updated, err, "An error occurred while updating the order status", orderNotFound)
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	cancelled, err := h.orders.CancelOrder(id)
	h.writeMutation(w, r, cancelled, err, "An error occurred while cancelling the order", orderNotFound)
}

func (h *Handler) calculateOrderTotal(w http.ResponseWriter, r *http.Request) {
	var req orderTotalRequest
	if !decodeBody(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, orderTotalResponse{Total: h.orders.CalculateOrderTotal(req.OrderItems)})
}
