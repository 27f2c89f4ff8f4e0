// handler.go — APIHandler реализует ServerInterface, делегируя вызовы
// в отдельные handler'ы по доменам.
package handlers

import (
	"encoding/json"
	"net/http"

	openapi_types "github.com/oapi-codegen/runtime/types"
)

// ServerInterface — все endpoints, описанные в openapi.yaml,
// плюс /metrics.
type ServerInterface interface {
	// POST /api/unlock-pdf
	UnlockPDF(w http.ResponseWriter, r *http.Request)
	// GET /api/download/{token}
	DownloadPDF(w http.ResponseWriter, r *http.Request, token openapi_types.UUID)
	// GET /api/health
	APIHealth(w http.ResponseWriter, r *http.Request)
	// GET /api/donation-link
	DonationLink(w http.ResponseWriter, r *http.Request)
	// GET /api/donation-button
	DonationButton(w http.ResponseWriter, r *http.Request)
	// GET /api/openapi.json
	GetOpenAPI(w http.ResponseWriter, r *http.Request)
	// GET /health/live
	HealthLive(w http.ResponseWriter, r *http.Request)
	// GET /health/ready
	HealthReady(w http.ResponseWriter, r *http.Request)
	// GET /metrics
	GetMetrics(w http.ResponseWriter, r *http.Request)
}

// APIHandler — единая реализация ServerInterface, собирающая
// все доменные handlers в один объект.
type APIHandler struct {
	pdf      *PDFHandler
	donation *DonationHandler
	health   *HealthHandler
	openapi  *OpenAPIHandler
	metrics  *MetricsHandler
}

// NewAPIHandler создаёт единый handler для всех endpoints.
func NewAPIHandler(
	pdf *PDFHandler,
	donation *DonationHandler,
	health *HealthHandler,
	openapi *OpenAPIHandler,
	metrics *MetricsHandler,
) *APIHandler {
	return &APIHandler{
		pdf:      pdf,
		donation: donation,
		health:   health,
		openapi:  openapi,
		metrics:  metrics,
	}
}

// --- PDF ---

func (h *APIHandler) UnlockPDF(w http.ResponseWriter, r *http.Request) {
	h.pdf.UnlockPDF(w, r)
}

func (h *APIHandler) DownloadPDF(w http.ResponseWriter, r *http.Request, token openapi_types.UUID) {
	h.pdf.DownloadPDF(w, r, token)
}

// --- Donation ---

func (h *APIHandler) DonationLink(w http.ResponseWriter, r *http.Request) {
	h.donation.DonationLink(w, r)
}

func (h *APIHandler) DonationButton(w http.ResponseWriter, r *http.Request) {
	h.donation.DonationButton(w, r)
}

// --- Health ---

func (h *APIHandler) APIHealth(w http.ResponseWriter, r *http.Request) {
	h.health.APIHealth(w, r)
}

func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// --- OpenAPI ---

func (h *APIHandler) GetOpenAPI(w http.ResponseWriter, r *http.Request) {
	h.openapi.GetOpenAPI(w, r)
}

// --- Metrics ---

func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.metrics.GetMetrics(w, r)
}

// Проверка соответствия интерфейсу на этапе компиляции.
var _ ServerInterface = (*APIHandler)(nil)

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
