package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/vasiliy-maslov/shop-core/internal/customer"
)

type CreateCustomerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Role     string `json:"role" validate:"omitempty,oneof=USER ADMIN"`
}

type CustomerResponse struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

func toCustomerResponse(c *customer.Customer) CustomerResponse {
	return CustomerResponse{
		ID:        c.ID,
		Username:  c.Username,
		Email:     c.Email,
		Role:      c.Role.String(),
		Active:    c.Active,
		CreatedAt: c.CreatedAt,
	}
}

type CustomerHandler struct {
	service  customer.Service
	validate *validator.Validate
}

func NewCustomerHandler(service customer.Service) *CustomerHandler {
	return &CustomerHandler{
		service:  service,
		validate: validator.New(),
	}
}

func (h *CustomerHandler) RegisterRoutes(router chi.Router) {
	router.Route("/customers", func(r chi.Router) {
		r.Use(requireOperation(customer.OpManageCustomers))
		r.Post("/", h.handleCreateCustomer)
		r.Get("/", h.handleListCustomers)
		r.Delete("/{id}", h.handleDeactivateCustomer)
	})
}

func (h *CustomerHandler) handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var requestPayload CreateCustomerRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}

	created, err := h.service.Create(r.Context(), &customer.Customer{
		Username: requestPayload.Username,
		Email:    requestPayload.Email,
		Role:     customer.Role(requestPayload.Role),
	})
	if err != nil {
		respondWithServiceError(w, err, "Failed to create customer")
		return
	}
	respondWithJSON(w, http.StatusCreated, toCustomerResponse(created))
}

func (h *CustomerHandler) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	caller, ok := mustPrincipal(w, r)
	if !ok {
		return
	}
	customers, err := h.service.ListActive(r.Context(), caller)
	if err != nil {
		respondWithServiceError(w, err, "Failed to list customers")
		return
	}

	response := make([]CustomerResponse, 0, len(customers))
	for i := range customers {
		response = append(response, toCustomerResponse(&customers[i]))
	}
	respondWithJSON(w, http.StatusOK, response)
}

func (h *CustomerHandler) handleDeactivateCustomer(w http.ResponseWriter, r *http.Request) {
	caller, ok := mustPrincipal(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.service.Deactivate(r.Context(), caller, id); err != nil {
		respondWithServiceError(w, err, "Failed to deactivate customer")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
