package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/quickbite/orderflow/internal/adapter/logger"
	"github.com/quickbite/orderflow/internal/domain"
	"github.com/quickbite/orderflow/internal/interfaces"
)

type OrderHandler struct {
	orders   interfaces.OrderService
	tracking interfaces.TrackingService
	logger   logger.Logger
}

func NewOrderHandler(orders interfaces.OrderService, tracking interfaces.TrackingService, lgr logger.Logger) *OrderHandler {
	return &OrderHandler{
		orders:   orders,
		tracking: tracking,
		logger:   lgr,
	}
}

type CreateOrderRequest struct {
	MerchantID      string             `json:"merchant_id"`
	CustomerID      string             `json:"customer_id,omitempty"`
	OrderType       string             `json:"order_type"`
	DeliveryAddress *string            `json:"delivery_address,omitempty"`
	Items           []OrderItemRequest `json:"items"`
}

type OrderItemRequest struct {
	MenuItemID string  `json:"menu_item_id"`
	Name       string  `json:"name"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
}

type CreateOrderResponse struct {
	OrderNumber    string  `json:"order_number"`
	Status         string  `json:"status"`
	TotalAmount    float64 `json:"total_amount"`
	AcceptDeadline string  `json:"accept_deadline"`
	ReadyDeadline  string  `json:"ready_deadline"`
}

type TransitionRequest struct {
	Status       string `json:"status"`
	CancelReason string `json:"cancel_reason,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	cmd := interfaces.CreateOrderCommand{
		MerchantID:      req.MerchantID,
		CustomerID:      req.CustomerID,
		OrderType:       req.OrderType,
		DeliveryAddress: req.DeliveryAddress,
		Items:           convertItems(req.Items),
	}

	order, err := h.orders.CreateOrder(r.Context(), PrincipalFromContext(r.Context()), cmd)
	if err != nil {
		h.logger.Error("order_creation_failed", "Failed to create order", "", nil, err)
		h.respondDomainError(w, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, CreateOrderResponse{
		OrderNumber:    order.Number,
		Status:         string(order.Status),
		TotalAmount:    order.TotalAmount,
		AcceptDeadline: order.AcceptDeadline.Format(time.RFC3339),
		ReadyDeadline:  order.ReadyDeadline.Format(time.RFC3339),
	})
}

func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	cmd := interfaces.TransitionCommand{
		OrderNumber:  r.PathValue("number"),
		Target:       domain.Status(req.Status),
		CancelReason: req.CancelReason,
	}

	order, err := h.orders.Transition(r.Context(), PrincipalFromContext(r.Context()), cmd)
	if err != nil {
		h.logger.Error("transition_failed", "Failed to transition order", "", map[string]interface{}{
			"order_number": cmd.OrderNumber,
			"target":       req.Status,
		}, err)
		h.respondDomainError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]string{
		"order_number": order.Number,
		"status":       string(order.Status),
	})
}

// Snapshot returns the caller's full scoped order list, the same view a
// feed subscriber loads on (re)connect.
func (h *OrderHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	principal := PrincipalFromContext(r.Context())
	if principal == nil {
		h.respondError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	views, err := h.tracking.Snapshot(r.Context(), domain.ScopeFor(principal))
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, views)
}

func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	resp, err := h.tracking.GetOrderStatus(r.Context(), r.PathValue("number"))
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, resp)
}

func (h *OrderHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	logs, err := h.tracking.GetOrderHistory(r.Context(), r.PathValue("number"))
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, logs)
}

func (h *OrderHandler) GetSubscribersStatus(w http.ResponseWriter, r *http.Request) {
	resp, err := h.tracking.GetSubscribersStatus(r.Context())
	if err != nil {
		h.respondDomainError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, resp)
}

func convertItems(items []OrderItemRequest) []interfaces.CreateOrderItemCommand {
	out := make([]interfaces.CreateOrderItemCommand, len(items))
	for i, item := range items {
		out[i] = interfaces.CreateOrderItemCommand{
			MenuItemID: item.MenuItemID,
			Name:       item.Name,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
		}
	}
	return out
}

// respondDomainError maps the engine's error taxonomy onto HTTP codes.
func (h *OrderHandler) respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidOrder):
		h.respondError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrInvalidTransition):
		h.respondError(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, domain.ErrUnauthorized):
		h.respondError(w, "Unauthorized", http.StatusUnauthorized)
	case errors.Is(err, domain.ErrForbidden):
		h.respondError(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, domain.ErrConflict):
		h.respondError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrOrderNotFound):
		h.respondError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrChannelBackpressure):
		h.respondError(w, err.Error(), http.StatusServiceUnavailable)
	default:
		h.respondError(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *OrderHandler) respondError(w http.ResponseWriter, message string, code int) {
	h.respondJSON(w, code, ErrorResponse{Error: message})
}

func (h *OrderHandler) respondJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}
