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

	"github.com/gridmate/gridmate/internal/database"
)

// StoreInfo exposes the snapshot store's counters for status reporting.
// *market.Store satisfies it.
type StoreInfo interface {
	Version() (int64, error)
	ArchiveCount() (int, error)
}

// SystemHandlers contains HTTP handlers for system monitoring.
type SystemHandlers struct {
	db        *database.DB
	store     StoreInfo
	dataDir   string
	startTime time.Time
	log       zerolog.Logger
}

// NewSystemHandlers creates a new system handlers instance.
func NewSystemHandlers(db *database.DB, store StoreInfo, dataDir string, log zerolog.Logger) *SystemHandlers {
	return &SystemHandlers{
		db:        db,
		store:     store,
		dataDir:   dataDir,
		startTime: time.Now(),
		log:       log.With().Str("handler", "system").Logger(),
	}
}

// HandleSystemStatus returns process and host health metrics along with
// snapshot store counters.
// GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"uptime_seconds": int64(time.Since(h.startTime).Seconds()),
		"goroutines":     runtime.NumGoroutine(),
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	}

	if cpuPercent, err := cpu.Percent(100*time.Millisecond, false); err == nil && len(cpuPercent) > 0 {
		response["cpu_percent"] = cpuPercent[0]
	}

	if memStat, err := mem.VirtualMemory(); err == nil {
		response["memory_percent"] = memStat.UsedPercent
		response["memory_used_mb"] = memStat.Used / 1024 / 1024
	}

	if diskStat, err := disk.Usage(h.dataDir); err == nil {
		response["disk_percent"] = diskStat.UsedPercent
		response["disk_free_gb"] = float64(diskStat.Free) / 1024 / 1024 / 1024
	}

	snapshot := map[string]interface{}{}
	if version, err := h.store.Version(); err == nil {
		snapshot["version"] = version
	}
	if count, err := h.store.ArchiveCount(); err == nil {
		snapshot["archived"] = count
	}
	response["snapshot"] = snapshot

	h.writeJSON(w, response)
}

// HandleDatabaseStats returns storage-level statistics for the market
// database.
// GET /api/system/database/stats
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.db.GetStats()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get database stats")
		http.Error(w, "Failed to get database stats", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, map[string]interface{}{
		"name":           h.db.Name(),
		"size_bytes":     stats.SizeBytes,
		"wal_size_bytes": stats.WALSizeBytes,
		"page_count":     stats.PageCount,
		"page_size":      stats.PageSize,
	})
}

func (h *SystemHandlers) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}
