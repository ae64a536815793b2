// handler.go — основной обработчик API Artifact Delivery Module.
// Тонкий слой над сервисами: разбор запроса, маппинг ошибок, JSON-ответ.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/artdelivery/internal/config"
	"github.com/bigkaa/artdelivery/internal/hostenv"
	"github.com/bigkaa/artdelivery/internal/service"
)

// APIHandler — основной обработчик API.
type APIHandler struct {
	cfg      *config.Config
	health   *HealthHandler
	uploads  *service.UploadService
	download *service.DownloadService
	fetcher  *hostenv.Fetcher
	logger   *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	cfg *config.Config,
	health *HealthHandler,
	uploads *service.UploadService,
	download *service.DownloadService,
	fetcher *hostenv.Fetcher,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		cfg:      cfg,
		health:   health,
		uploads:  uploads,
		download: download,
		fetcher:  fetcher,
		logger:   logger.With(slog.String("component", "api_handler")),
	}
}

// Routes регистрирует маршруты API на роутере chi.
func (h *APIHandler) Routes(r chi.Router) {
	r.Get("/health/live", h.health.HealthLive)
	r.Get("/health/ready", h.health.HealthReady)
	r.Get("/metrics", h.health.GetMetrics)

	r.Post("/api/v1/artifacts", h.handleUpload)
	r.Post("/api/v1/artifacts/resolve", h.handleResolve)
	r.Delete("/api/v1/artifacts/*", h.handleDelete)
}

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
