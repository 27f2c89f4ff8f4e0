// health.go — обработчики health endpoints: статус API и Kubernetes probes.
package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/VigneshMurugan/pdf-utils/internal/config"
	"github.com/VigneshMurugan/pdf-utils/internal/domain/model"
)

const (
	statusOK       = "ok"
	statusFail     = "fail"
	statusDegraded = "degraded"
)

// IndexReadinessChecker — индекс стадий.
type IndexReadinessChecker interface {
	IsReady() bool
	Count() int
	CountByStage(stage model.Stage) int
}

// DependencyHealth — состояние внешних зависимостей (topologymetrics).
type DependencyHealth interface {
	Health() map[string]bool
}

// HealthHandler реализует /api/health, /health/live, /health/ready.
type HealthHandler struct {
	version string
	// dataDir — директория временного хранения (проверка записи)
	dataDir string
	idx     IndexReadinessChecker
	// deps — мониторинг зависимостей; nil, если отключён
	deps DependencyHealth
}

// NewHealthHandler создаёт обработчик health endpoints.
// deps может быть nil.
func NewHealthHandler(dataDir string, idx IndexReadinessChecker, deps DependencyHealth) *HealthHandler {
	return &HealthHandler{
		version: config.Version,
		dataDir: dataDir,
		idx:     idx,
		deps:    deps,
	}
}

// APIHealth обрабатывает GET /api/health.
func (h *HealthHandler) APIHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "OK",
		"message": "PDF Utils API is running",
	})
}

// HealthLive обрабатывает GET /health/live.
// Возвращает 200, если процесс жив. Не проверяет зависимости.
func (h *HealthHandler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    statusOK,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   h.version,
		"service":   "pdf-utils",
	})
}

// HealthReady обрабатывает GET /health/ready.
// Проверяет: запись в директорию хранения, готовность индекса,
// состояние внешних зависимостей (не критично, только degraded).
func (h *HealthHandler) HealthReady(w http.ResponseWriter, _ *http.Request) {
	overallStatus := statusOK
	httpStatus := http.StatusOK

	fsCheck := h.checkFilesystem()
	if fsCheck["status"] != statusOK {
		overallStatus = statusFail
		httpStatus = http.StatusServiceUnavailable
	}

	indexCheck := h.checkIndex()
	if indexCheck["status"] != statusOK {
		overallStatus = statusFail
		httpStatus = http.StatusServiceUnavailable
	}

	checks := map[string]any{
		"filesystem": fsCheck,
		"index":      indexCheck,
	}

	if h.deps != nil {
		depCheck := h.checkDependencies()
		checks["dependencies"] = depCheck
		if depCheck["status"] != statusOK && overallStatus != statusFail {
			overallStatus = statusDegraded
		}
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   h.version,
		"service":   "pdf-utils",
		"checks":    checks,
	})
}

// checkFilesystem проверяет доступность директории хранения на запись.
func (h *HealthHandler) checkFilesystem() map[string]any {
	testFile := filepath.Join(h.dataDir, ".health_check")
	if err := os.WriteFile(testFile, []byte("ok"), 0o600); err != nil {
		return map[string]any{
			"status":  statusFail,
			"message": "Директория хранения недоступна для записи: " + err.Error(),
		}
	}
	_ = os.Remove(testFile)

	return map[string]any{"status": statusOK}
}

// checkIndex проверяет, что индекс стадий построен.
func (h *HealthHandler) checkIndex() map[string]any {
	if !h.idx.IsReady() {
		return map[string]any{
			"status":  statusFail,
			"message": "Индекс стадий не построен",
		}
	}
	return map[string]any{
		"status":   statusOK,
		"total":    h.idx.Count(),
		"uploaded": h.idx.CountByStage(model.StageUploaded),
		"unlocked": h.idx.CountByStage(model.StageUnlocked),
	}
}

// checkDependencies сводит состояние зависимостей topologymetrics.
func (h *HealthHandler) checkDependencies() map[string]any {
	health := h.deps.Health()

	var failed []string
	for name, ok := range health {
		if !ok {
			failed = append(failed, name)
		}
	}
	if len(failed) > 0 {
		sort.Strings(failed)
		return map[string]any{
			"status": statusFail,
			"failed": failed,
		}
	}
	return map[string]any{"status": statusOK}
}
