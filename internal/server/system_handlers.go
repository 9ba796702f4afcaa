package server

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aristath/fundscore/internal/database"
	"github.com/aristath/fundscore/internal/reliability"
)

// SystemHandlers serves health and host/database status endpoints.
type SystemHandlers struct {
	scoresDB    *database.DB
	backups     *reliability.BackupService
	dataDir     string
	startupTime time.Time
	log         zerolog.Logger
}

// NewSystemHandlers creates the system handlers.
func NewSystemHandlers(scoresDB *database.DB, backups *reliability.BackupService, dataDir string, log zerolog.Logger) *SystemHandlers {
	return &SystemHandlers{
		scoresDB:    scoresDB,
		backups:     backups,
		dataDir:     dataDir,
		startupTime: time.Now(),
		log:         log.With().Str("component", "system_handlers").Logger(),
	}
}

// HandleHealth runs a database integrity check.
// GET /health
func (h *SystemHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.scoresDB.HealthCheck(r.Context()); err != nil {
		h.log.Error().Err(err).Msg("Health check failed")
		h.writeJSONStatus(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}
	h.writeJSONStatus(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleSystemStatus reports host and database figures.
// GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"uptime_seconds": int64(time.Since(h.startupTime).Seconds()),
		"goroutines":     runtime.NumGoroutine(),
	}

	// 100ms sample keeps the endpoint responsive for pollers.
	if cpuPercent, err := cpu.Percent(100*time.Millisecond, false); err == nil && len(cpuPercent) > 0 {
		status["cpu_percent"] = cpuPercent[0]
	} else if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
	}

	if memStat, err := mem.VirtualMemory(); err == nil {
		status["memory_percent"] = memStat.UsedPercent
		status["memory_used_mb"] = memStat.Used / 1024 / 1024
	} else {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
	}

	if diskStat, err := disk.Usage(h.dataDir); err == nil {
		status["disk_percent"] = diskStat.UsedPercent
		status["disk_free_mb"] = diskStat.Free / 1024 / 1024
	} else {
		h.log.Warn().Err(err).Msg("Failed to get disk statistics")
	}

	if stats, err := h.scoresDB.GetStats(); err == nil {
		status["scores_db"] = map[string]interface{}{
			"size_bytes":     stats.SizeBytes,
			"wal_size_bytes": stats.WALSizeBytes,
			"page_count":     stats.PageCount,
			"page_size":      stats.PageSize,
		}
	} else {
		h.log.Warn().Err(err).Msg("Failed to get scores database stats")
	}

	h.writeJSONStatus(w, http.StatusOK, status)
}

// HandleListBackups lists remote backup archives.
// GET /api/system/backups
func (h *SystemHandlers) HandleListBackups(w http.ResponseWriter, r *http.Request) {
	if h.backups == nil {
		h.writeJSONStatus(w, http.StatusServiceUnavailable, map[string]string{
			"error": "backups are not configured",
		})
		return
	}

	backups, err := h.backups.ListBackups(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list backups")
		h.writeJSONStatus(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list backups",
		})
		return
	}

	h.writeJSONStatus(w, http.StatusOK, map[string]interface{}{
		"count":   len(backups),
		"backups": backups,
	})
}

func (h *SystemHandlers) writeJSONStatus(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
