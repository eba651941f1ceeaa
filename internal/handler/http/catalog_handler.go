package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/shop-core/internal/catalog"
)

type CreateProductRequest struct {
	Name         string           `json:"name" validate:"required,min=2,max=255"`
	Description  string           `json:"description" validate:"max=2000"`
	Price        *decimal.Decimal `json:"price" validate:"required"`
	InitialStock int              `json:"initial_stock" validate:"min=0"`
}

type UpdateProductRequest struct {
	Name        string           `json:"name" validate:"required,min=2,max=255"`
	Description string           `json:"description" validate:"max=2000"`
	Price       *decimal.Decimal `json:"price" validate:"required"`
}

type CatalogHandler struct {
	service  catalog.Service
	validate *validator.Validate
}

func NewCatalogHandler(service catalog.Service) *CatalogHandler {
	return &CatalogHandler{
		service:  service,
		validate: validator.New(),
	}
}

func (h *CatalogHandler) RegisterRoutes(router chi.Router) {
	router.Get("/products", h.handleListProducts)
	router.Get("/products/search", h.handleSearchProducts)
	router.Get("/products/{id}", h.handleGetProduct)
	router.Post("/products", h.handleCreateProduct)
	router.Put("/products/{id}", h.handleUpdateProduct)
	router.Delete("/products/{id}", h.handleDeleteProduct)
}

func (h *CatalogHandler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListProducts(r.Context())
	if err != nil {
		respondWithServiceError(w, err, "Failed to list products")
		return
	}
	respondWithJSON(w, http.StatusOK, products)
}

// handleSearchProducts serves ?name= or ?min=&max=.
func (h *CatalogHandler) handleSearchProducts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if name := query.Get("name"); name != "" {
		products, err := h.service.SearchByName(r.Context(), name)
		if err != nil {
			respondWithServiceError(w, err, "Failed to search products")
			return
		}
		respondWithJSON(w, http.StatusOK, products)
		return
	}

	minRaw, maxRaw := query.Get("min"), query.Get("max")
	if minRaw == "" || maxRaw == "" {
		respondWithError(w, http.StatusBadRequest, "Either name or both min and max are required")
		return
	}
	minPrice, err := decimal.NewFromString(minRaw)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid min parameter")
		return
	}
	maxPrice, err := decimal.NewFromString(maxRaw)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid max parameter")
		return
	}

	products, err := h.service.SearchByPrice(r.Context(), minPrice, maxPrice)
	if err != nil {
		respondWithServiceError(w, err, "Failed to search products")
		return
	}
	respondWithJSON(w, http.StatusOK, products)
}

func (h *CatalogHandler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	p, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, err, "Failed to get product")
		return
	}
	respondWithJSON(w, http.StatusOK, p)
}

func (h *CatalogHandler) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	caller, ok := mustPrincipal(w, r)
	if !ok {
		return
	}

	var requestPayload CreateProductRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}

	created, err := h.service.CreateProduct(r.Context(), caller, &catalog.Product{
		Name:        requestPayload.Name,
		Description: requestPayload.Description,
		Price:       *requestPayload.Price,
	}, requestPayload.InitialStock)
	if err != nil {
		respondWithServiceError(w, err, "Failed to create product")
		return
	}
	respondWithJSON(w, http.StatusCreated, created)
}

func (h *CatalogHandler) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	caller, ok := mustPrincipal(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var requestPayload UpdateProductRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}

	updated, err := h.service.UpdateProduct(r.Context(), caller, &catalog.Product{
		ID:          id,
		Name:        requestPayload.Name,
		Description: requestPayload.Description,
		Price:       *requestPayload.Price,
	})
	if err != nil {
		respondWithServiceError(w, err, "Failed to update product")
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

func (h *CatalogHandler) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	caller, ok := mustPrincipal(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteProduct(r.Context(), caller, id); err != nil {
		respondWithServiceError(w, err, "Failed to delete product")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
