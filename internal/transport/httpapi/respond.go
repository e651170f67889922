package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ecomstore/internal/domain"
)

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

type createdResponse struct {
	ID int64 `json:"id"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string, fields map[string]string) {
	writeJSON(w, status, errorResponse{Error: message, Fields: fields})
}

// writeFailure отвечает 400 на ValidationError и 500 с фиксированным текстом на всё остальное.
func (h *Handler) writeFailure(w http.ResponseWriter, r *http.Request, err error, message string) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		writeError(w, http.StatusBadRequest, verr.Message, verr.Fields)
		return
	}

	h.logger.WithError(err).WithFields(log.Fields{"method": r.Method, "path": r.URL.Path}).Error(message)
	writeError(w, http.StatusInternalServerError, message, nil)
}

// writeMutation переводит результат мутации: false означает отсутствие записи.
func (h *Handler) writeMutation(w http.ResponseWriter, r *http.Request, ok bool, err error, message, notFound string) {
	if err != nil {
		h.writeFailure(w, r, err, message)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, notFound, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id", nil)
		return 0, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", nil)
		return false
	}
	return true
}
