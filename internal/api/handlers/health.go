// health.go — обработчики health endpoints.
// /health/live — liveness probe (процесс жив)
// /health/ready — readiness probe (удалённое хранилище доступно)
// /metrics — Prometheus метрики
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bigkaa/artdelivery/internal/config"
)

// DependencyHealth — источник состояния зависимостей.
// Реализуется service.DephealthService; nil-источник — readiness "fail".
type DependencyHealth interface {
	// Health возвращает состояние зависимостей: имя → ok.
	Health() map[string]bool
}

// HealthHandler — обработчик health endpoints.
type HealthHandler struct {
	deps        DependencyHealth
	promHandler http.Handler
}

// NewHealthHandler создаёт обработчик health endpoints.
func NewHealthHandler(deps DependencyHealth) *HealthHandler {
	return &HealthHandler{
		deps:        deps,
		promHandler: promhttp.Handler(),
	}
}

// healthCheckResult — результат проверки одной зависимости.
type healthCheckResult struct {
	Status string `json:"status"`
}

// healthResponse — общий ответ health probe.
type healthResponse struct {
	Status    string                       `json:"status"`
	Timestamp string                       `json:"timestamp"`
	Version   string                       `json:"version"`
	Service   string                       `json:"service"`
	Checks    map[string]healthCheckResult `json:"checks,omitempty"`
}

// HealthLive — liveness probe: процесс жив, всегда 200.
func (h *HealthHandler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	writeHealth(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   config.Version,
		Service:   "artdelivery",
	})
}

// HealthReady — readiness probe: критичная зависимость remote-store доступна.
func (h *HealthHandler) HealthReady(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   config.Version,
		Service:   "artdelivery",
		Checks:    map[string]healthCheckResult{},
	}

	status := http.StatusOK
	if h.deps == nil {
		resp.Status = "fail"
		status = http.StatusServiceUnavailable
	} else {
		for name, ok := range h.deps.Health() {
			check := healthCheckResult{Status: "ok"}
			if !ok {
				check.Status = "fail"
				// Только remote-store критичен для readiness
				if name == "remote-store" {
					resp.Status = "fail"
					status = http.StatusServiceUnavailable
				}
			}
			resp.Checks[name] = check
		}
	}

	writeHealth(w, status, resp)
}

// GetMetrics — Prometheus метрики.
func (h *HealthHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.promHandler.ServeHTTP(w, r)
}

// writeHealth записывает ответ health probe.
func writeHealth(w http.ResponseWriter, status int, resp healthResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
