package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/vasiliy-maslov/shop-core/internal/customer"
	"github.com/vasiliy-maslov/shop-core/internal/inventory"
)

// Ledger is the part of inventory.Ledger served over HTTP.
type Ledger interface {
	Available(ctx context.Context, productID uuid.UUID) (int, error)
	List(ctx context.Context) ([]inventory.Record, error)
	SetStock(ctx context.Context, productID uuid.UUID, stock int) error
}

type SetStockRequest struct {
	Stock *int `json:"stock" validate:"required,min=0"`
}

type StockResponse struct {
	ProductID uuid.UUID `json:"product_id"`
	Stock     int       `json:"stock"`
}

type InventoryHandler struct {
	ledger   Ledger
	validate *validator.Validate
}

func NewInventoryHandler(ledger Ledger) *InventoryHandler {
	return &InventoryHandler{
		ledger:   ledger,
		validate: validator.New(),
	}
}

func (h *InventoryHandler) RegisterRoutes(router chi.Router) {
	router.Get("/inventory", h.handleListStock)
	router.Get("/inventory/{productID}", h.handleGetStock)
	router.Put("/inventory/{productID}", h.handleSetStock)
}

func (h *InventoryHandler) handleListStock(w http.ResponseWriter, r *http.Request) {
	caller, ok := mustPrincipal(w, r)
	if !ok {
		return
	}
	if err := customer.Authorize(caller.Role, customer.OpViewInventory); err != nil {
		respondWithServiceError(w, err, "Failed to list stock")
		return
	}

	records, err := h.ledger.List(r.Context())
	if err != nil {
		respondWithServiceError(w, err, "Failed to list stock")
		return
	}
	respondWithJSON(w, http.StatusOK, records)
}

func (h *InventoryHandler) handleGetStock(w http.ResponseWriter, r *http.Request) {
	caller, ok := mustPrincipal(w, r)
	if !ok {
		return
	}
	if err := customer.Authorize(caller.Role, customer.OpViewInventory); err != nil {
		respondWithServiceError(w, err, "Failed to get stock")
		return
	}
	productID, ok := uuidParam(w, r, "productID")
	if !ok {
		return
	}

	stock, err := h.ledger.Available(r.Context(), productID)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get stock")
		return
	}
	respondWithJSON(w, http.StatusOK, StockResponse{ProductID: productID, Stock: stock})
}

func (h *InventoryHandler) handleSetStock(w http.ResponseWriter, r *http.Request) {
	caller, ok := mustPrincipal(w, r)
	if !ok {
		return
	}
	if err := customer.Authorize(caller.Role, customer.OpManageInventory); err != nil {
		respondWithServiceError(w, err, "Failed to set stock")
		return
	}
	productID, ok := uuidParam(w, r, "productID")
	if !ok {
		return
	}

	var requestPayload SetStockRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}

	if err := h.ledger.SetStock(r.Context(), productID, *requestPayload.Stock); err != nil {
		respondWithServiceError(w, err, "Failed to set stock")
		return
	}
	respondWithJSON(w, http.StatusOK, StockResponse{ProductID: productID, Stock: *requestPayload.Stock})
}
