package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vasiliy-maslov/shop-core/internal/customer"
	"github.com/vasiliy-maslov/shop-core/internal/report"
)

type ReportHandler struct {
	service report.Service
}

func NewReportHandler(service report.Service) *ReportHandler {
	return &ReportHandler{service: service}
}

func (h *ReportHandler) RegisterRoutes(router chi.Router) {
	router.Route("/reports", func(r chi.Router) {
		r.Use(requireOperation(customer.OpViewReports))
		r.Get("/active-products", h.handleActiveProducts)
		r.Get("/top-products", h.handleTopProducts)
		r.Get("/top-customers", h.handleTopCustomers)
		r.Get("/summary", h.handleSummary)
	})
}

func (h *ReportHandler) handleActiveProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ActiveProducts(r.Context())
	if err != nil {
		respondWithServiceError(w, err, "Failed to list active products")
		return
	}
	respondWithJSON(w, http.StatusOK, products)
}

func (h *ReportHandler) handleTopProducts(w http.ResponseWriter, r *http.Request) {
	n, ok := topNParam(w, r)
	if !ok {
		return
	}
	sales, err := h.service.TopSoldProducts(r.Context(), n)
	if err != nil {
		respondWithServiceError(w, err, "Failed to rank products")
		return
	}
	respondWithJSON(w, http.StatusOK, sales)
}

func (h *ReportHandler) handleTopCustomers(w http.ResponseWriter, r *http.Request) {
	n, ok := topNParam(w, r)
	if !ok {
		return
	}
	customers, err := h.service.TopCustomers(r.Context(), n)
	if err != nil {
		respondWithServiceError(w, err, "Failed to rank customers")
		return
	}
	respondWithJSON(w, http.StatusOK, customers)
}

func (h *ReportHandler) handleSummary(w http.ResponseWriter, r *http.Request) {
	n, ok := topNParam(w, r)
	if !ok {
		return
	}
	summary, err := h.service.Summary(r.Context(), n)
	if err != nil {
		respondWithServiceError(w, err, "Failed to build report summary")
		return
	}
	respondWithJSON(w, http.StatusOK, summary)
}
