package web

import (
	"log/slog"
	"net/http"
	"syscall"

	"github.com/PauloHFS/goth-blog/internal/db"
	"github.com/PauloHFS/goth-blog/internal/logging"
)

const minFreeDiskBytes = 100 * 1024 * 1024

// @Summary Health check
// @Tags ops
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 503 {object} map[string]any
// @Router /health [get]
func handleHealth(deps HandlerDeps, w http.ResponseWriter, r *http.Request) error {
	logger := logging.Get()

	// 1. Ping DB
	if err := deps.Store.Ping(r.Context()); err != nil {
		logger.Error("health check failed: db unreachable", "error", err)
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "database": "down"})
		return nil
	}

	// 2. Job queue
	failedJobs, _ := deps.Store.CountJobsByStatus(r.Context(), db.JobStatusFailed)
	pendingJobs, _ := deps.Store.CountJobsByStatus(r.Context(), db.JobStatusPending)
	if failedJobs > 50 || pendingJobs > 1000 {
		logger.Warn("health check warning: job queue issues",
			slog.Int64("failed", failedJobs),
			slog.Int64("pending", pendingJobs),
		)
	}

	// 3. Disk space where uploads live
	var stat syscall.Statfs_t
	if err := syscall.Statfs(deps.Config.UploadDir, &stat); err == nil {
		freeSpace := stat.Bavail * uint64(stat.Bsize)
		if freeSpace < minFreeDiskBytes {
			logger.Error("health check failed: low disk space", "free_bytes", freeSpace)
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "disk": "low"})
			return nil
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"database":     "ok",
		"pending_jobs": pendingJobs,
		"failed_jobs":  failedJobs,
	})
	return nil
}
