package transport

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"storefront/pkg/domain/model"
)

type orderResponse struct {
	ID         string              `json:"id"`
	UserID     string              `json:"userId"`
	Status     string              `json:"status"`
	TotalCents int64               `json:"totalCents"`
	Lines      []orderLineResponse `json:"lines"`
	CreatedAt  string              `json:"createdAt"`
	UpdatedAt  string              `json:"updatedAt"`
}

type orderLineResponse struct {
	ID             string `json:"id"`
	ProductID      string `json:"productId"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unitPriceCents"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func toOrderResponse(order *model.Order) orderResponse {
	lines := make([]orderLineResponse, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, toOrderLineResponse(&line))
	}
	return orderResponse{
		ID:         order.ID.String(),
		UserID:     order.UserID.String(),
		Status:     string(order.Status),
		TotalCents: order.TotalCents,
		Lines:      lines,
		CreatedAt:  order.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:  order.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func toOrderLineResponse(line *model.OrderLine) orderLineResponse {
	return orderLineResponse{
		ID:             line.ID.String(),
		ProductID:      line.ProductID.String(),
		Quantity:       line.Quantity,
		UnitPriceCents: line.UnitPriceCents,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.WithError(err).Error("failed to write response")
	}
}

// writeError maps the domain error taxonomy onto HTTP status codes: bad input
// is 400, unknown ids are 404, operations the order's state forbids are 409.
func writeError(w http.ResponseWriter, err error) {
	var validationErr model.ValidationError
	var stockErr model.InsufficientStockError
	var transitionErr model.InvalidTransitionError
	var terminalErr model.TerminalStateError

	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: "validation_failed", Message: err.Error()})
	case errors.Is(err, model.ErrOrderNotFound),
		errors.Is(err, model.ErrOrderLineNotFound),
		errors.Is(err, model.ErrProductNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Code: "not_found", Message: err.Error()})
	case errors.As(err, &stockErr):
		writeJSON(w, http.StatusConflict, errorResponse{Code: "insufficient_stock", Message: err.Error()})
	case errors.As(err, &transitionErr):
		writeJSON(w, http.StatusConflict, errorResponse{Code: "invalid_transition", Message: err.Error()})
	case errors.As(err, &terminalErr):
		writeJSON(w, http.StatusConflict, errorResponse{Code: "terminal_state", Message: err.Error()})
	default:
		log.WithError(err).Error("request failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Code: "internal", Message: "internal server error"})
	}
}
