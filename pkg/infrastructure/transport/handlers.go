package transport

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"storefront/pkg/common/metrics"
	"storefront/pkg/domain/model"
	"storefront/pkg/domain/service"
)

func NewRouter(orders service.OrderService, lines service.OrderLineService, states service.OrderStateMachine, serverMetrics *metrics.ServerMetrics) http.Handler {
	h := &handlers{orders: orders, lines: lines, states: states}

	r := mux.NewRouter()
	r.Use(metricsMiddleware(serverMetrics))
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	s := r.PathPrefix("/api/v1").Subrouter()
	s.HandleFunc("/orders", h.createOrder).Methods(http.MethodPost)
	s.HandleFunc("/orders/{orderID}", h.getOrder).Methods(http.MethodGet)
	s.HandleFunc("/orders/{orderID}/lines/{lineID}", h.updateOrderLine).Methods(http.MethodPut)
	s.HandleFunc("/orders/{orderID}/lines/{lineID}", h.deleteOrderLine).Methods(http.MethodDelete)
	s.HandleFunc("/orders/{orderID}/status", h.transitionOrder).Methods(http.MethodPost)

	return logMiddleware(r)
}

type handlers struct {
	orders service.OrderService
	lines  service.OrderLineService
	states service.OrderStateMachine
}

type createOrderRequest struct {
	UserID string `json:"userId"`
	Items  []struct {
		ProductID string `json:"productId"`
		Quantity  int    `json:"quantity"`
	} `json:"items"`
}

func (h *handlers) createOrder(w http.ResponseWriter, r *http.Request) {
	var request createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(w, model.ValidationError{Reason: "invalid request body"})
		return
	}
	userID, err := uuid.Parse(request.UserID)
	if err != nil {
		writeError(w, model.ValidationError{Reason: "invalid user id"})
		return
	}

	items := make([]service.NewOrderItem, 0, len(request.Items))
	for _, item := range request.Items {
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			writeError(w, model.ValidationError{Reason: "invalid product id"})
			return
		}
		items = append(items, service.NewOrderItem{ProductID: productID, Quantity: item.Quantity})
	}

	order, err := h.orders.Create(r.Context(), userID, items)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderResponse(order))
}

func (h *handlers) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(w, r, "orderID")
	if !ok {
		return
	}
	order, err := h.orders.Find(r.Context(), orderID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

type updateOrderLineRequest struct {
	Quantity int `json:"quantity"`
}

func (h *handlers) updateOrderLine(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(w, r, "orderID")
	if !ok {
		return
	}
	lineID, ok := pathID(w, r, "lineID")
	if !ok {
		return
	}

	var request updateOrderLineRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(w, model.ValidationError{Reason: "invalid request body"})
		return
	}

	line, err := h.lines.UpdateLineQuantity(r.Context(), orderID, lineID, request.Quantity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderLineResponse(line))
}

func (h *handlers) deleteOrderLine(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(w, r, "orderID")
	if !ok {
		return
	}
	lineID, ok := pathID(w, r, "lineID")
	if !ok {
		return
	}

	if err := h.lines.DeleteLine(r.Context(), orderID, lineID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

type transitionOrderRequest struct {
	Status string `json:"status"`
}

func (h *handlers) transitionOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(w, r, "orderID")
	if !ok {
		return
	}

	var request transitionOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(w, model.ValidationError{Reason: "invalid request body"})
		return
	}
	status, err := model.ParseOrderStatus(request.Status)
	if err != nil {
		writeError(w, err)
		return
	}

	order, err := h.states.Transition(r.Context(), orderID, status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		writeError(w, model.ValidationError{Reason: "invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}

func logMiddleware(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.WithFields(log.Fields{
			"method":     r.Method,
			"url":        r.URL,
			"remoteAddr": r.RemoteAddr,
			"userAgent":  r.UserAgent(),
		}).Info("got a new request")
		h.ServeHTTP(w, r)
	})
}

func metricsMiddleware(m *metrics.ServerMetrics) mux.MiddlewareFunc {
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			started := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			h.ServeHTTP(recorder, r)

			// Label by route template, not raw path, to keep cardinality low.
			handler := r.Method + " " + r.URL.Path
			if route := mux.CurrentRoute(r); route != nil {
				if template, err := route.GetPathTemplate(); err == nil {
					handler = r.Method + " " + template
				}
			}
			m.Requests.WithLabelValues(handler, strconv.Itoa(recorder.status)).Inc()
			m.LatencyMS.WithLabelValues(handler).Observe(float64(time.Since(started).Milliseconds()))
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
