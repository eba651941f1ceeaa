package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/shop-core/internal/customer"
	"github.com/vasiliy-maslov/shop-core/internal/order"
)

const idempotencyHeader = "Idempotency-Key"

type OrderItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1"`
}

type PlaceOrderRequest struct {
	Items    []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
	IsRandom bool               `json:"is_random"`
}

type UpdateTotalRequest struct {
	Total *decimal.Decimal `json:"total" validate:"required"`
}

type OrderHandler struct {
	service  order.Service
	validate *validator.Validate
}

func NewOrderHandler(service order.Service) *OrderHandler {
	return &OrderHandler{
		service:  service,
		validate: validator.New(),
	}
}

func (h *OrderHandler) RegisterRoutes(router chi.Router) {
	router.Post("/orders", h.handlePlaceOrder)
	router.Get("/orders", h.handleListAll)
	router.Get("/orders/mine", h.handleListMine)
	router.Get("/orders/{id}", h.handleGetOrder)
	router.Put("/orders/{id}/total", h.handleUpdateTotal)
}

func (h *OrderHandler) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	caller, ok := mustPrincipal(w, r)
	if !ok {
		return
	}

	var requestPayload PlaceOrderRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}

	req := order.PlaceOrderRequest{
		Items:          make([]order.Item, 0, len(requestPayload.Items)),
		IsRandom:       requestPayload.IsRandom,
		IdempotencyKey: r.Header.Get(idempotencyHeader),
	}
	for _, item := range requestPayload.Items {
		req.Items = append(req.Items, order.Item{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	placed, err := h.service.PlaceOrder(r.Context(), caller, req)
	if err != nil {
		respondWithServiceError(w, err, "Failed to place order")
		return
	}

	respondWithJSON(w, http.StatusCreated, placed)
}

func (h *OrderHandler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	caller, ok := mustPrincipal(w, r)
	if !ok {
		return
	}
	if err := customer.Authorize(caller.Role, customer.OpViewAnyOrder); err != nil {
		respondWithServiceError(w, err, "Failed to get order")
		return
	}

	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	result, err := h.service.GetOrderWithLines(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get order")
		return
	}
	if result.Order == nil {
		respondWithError(w, http.StatusNotFound, "Order not found")
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

func (h *OrderHandler) handleUpdateTotal(w http.ResponseWriter, r *http.Request) {
	caller, ok := mustPrincipal(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var requestPayload UpdateTotalRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}

	updated, err := h.service.UpdateTotal(r.Context(), caller, id, *requestPayload.Total)
	if err != nil {
		respondWithServiceError(w, err, "Failed to update order total")
		return
	}

	respondWithJSON(w, http.StatusOK, updated)
}

func (h *OrderHandler) handleListMine(w http.ResponseWriter, r *http.Request) {
	caller, ok := mustPrincipal(w, r)
	if !ok {
		return
	}

	orders, err := h.service.ListByCustomer(r.Context(), caller)
	if err != nil {
		respondWithServiceError(w, err, "Failed to list orders")
		return
	}

	respondWithJSON(w, http.StatusOK, orders)
}

func (h *OrderHandler) handleListAll(w http.ResponseWriter, r *http.Request) {
	caller, ok := mustPrincipal(w, r)
	if !ok {
		return
	}

	orders, err := h.service.ListAll(r.Context(), caller)
	if err != nil {
		respondWithServiceError(w, err, "Failed to list orders")
		return
	}

	respondWithJSON(w, http.StatusOK, orders)
}
