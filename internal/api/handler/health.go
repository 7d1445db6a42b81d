package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/iconidentify/ytgrabba/internal/repository"
	"github.com/iconidentify/ytgrabba/internal/service"
)

var startTime = time.Now()

// InFlightCounter reports how many engine invocations are running.
type InFlightCounter interface {
	InFlight() int
	Workers() int
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	jobRepo    repository.JobRepository
	prober     service.DependencyProber
	pool       InFlightCounter
	scratchDir string
	logger     *slog.Logger
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(
	jobRepo repository.JobRepository,
	prober service.DependencyProber,
	pool InFlightCounter,
	scratchDir string,
	logger *slog.Logger,
) *HealthHandler {
	return &HealthHandler{
		jobRepo:    jobRepo,
		prober:     prober,
		pool:       pool,
		scratchDir: scratchDir,
		logger:     logger,
	}
}

// HealthResponse is the JSON response for health checks.
type HealthResponse struct {
	Status    string               `json:"status"`
	Timestamp string               `json:"timestamp"`
	Error     string               `json:"error,omitempty"`
	Jobs      *repository.JobStats `json:"jobs,omitempty"`
}

// Live handles GET /api/health - liveness probe.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Ready handles GET /api/ready - readiness probe. The service is ready when
// the remux binary can be invoked.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.prober.Probe(ctx); err != nil {
		h.logger.Warn("readiness probe failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status:    "error",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Error:     msgMissingDependency,
		})
		return
	}

	stats, err := h.jobRepo.Stats(ctx)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status:    "error",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Error:     err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Jobs:      stats,
	})
}

// SystemStats contains system resource statistics.
type SystemStats struct {
	Uptime        int64                `json:"uptime_seconds"`
	UptimeHuman   string               `json:"uptime_human"`
	MemAlloc      string               `json:"mem_alloc"`
	MemSys        string               `json:"mem_sys"`
	NumGoroutines int                  `json:"num_goroutines"`
	NumCPU        int                  `json:"num_cpu"`
	CPUPercent    float64              `json:"cpu_percent"`
	Workers       int                  `json:"workers"`
	InFlight      int                  `json:"in_flight"`
	Jobs          *repository.JobStats `json:"jobs,omitempty"`
	ActiveJobs    []ActiveJob          `json:"active_jobs"`
	Scratch       *ScratchStats        `json:"scratch,omitempty"`
}

// ActiveJob summarizes a download that is still running.
type ActiveJob struct {
	ID      string `json:"id"`
	State   string `json:"state"`
	Format  string `json:"format"`
	Age     string `json:"age"`
	Started string `json:"started_at"`
}

// ScratchStats describes the filesystem holding the scratch directory.
type ScratchStats struct {
	service.DiskUsage
	TotalHuman string `json:"total_human"`
	FreeHuman  string `json:"free_human"`
}

// Stats handles GET /api/stats - system statistics.
func (h *HealthHandler) Stats(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	uptime := time.Since(startTime)

	stats := SystemStats{
		Uptime:        int64(uptime.Seconds()),
		UptimeHuman:   formatUptime(uptime),
		MemAlloc:      humanize.Bytes(m.Alloc),
		MemSys:        humanize.Bytes(m.Sys),
		NumGoroutines: runtime.NumGoroutine(),
		NumCPU:        runtime.NumCPU(),
		CPUPercent:    getCPUUsage(),
		Workers:       h.pool.Workers(),
		InFlight:      h.pool.InFlight(),
	}

	if jobs, err := h.jobRepo.Stats(r.Context()); err == nil {
		stats.Jobs = jobs
	}

	stats.ActiveJobs = []ActiveJob{}
	if active, err := h.jobRepo.ListActive(r.Context()); err != nil {
		h.logger.Warn("active job listing unavailable", "error", err)
	} else {
		for _, job := range active {
			stats.ActiveJobs = append(stats.ActiveJobs, ActiveJob{
				ID:      job.ID.String(),
				State:   string(job.State),
				Format:  job.FormatSpec,
				Age:     humanize.Time(job.CreatedAt),
				Started: job.CreatedAt.UTC().Format(time.RFC3339),
			})
		}
	}

	if usage, err := service.ScratchUsage(h.scratchDir); err != nil {
		h.logger.Warn("scratch disk stats unavailable", "path", h.scratchDir, "error", err)
	} else {
		stats.Scratch = &ScratchStats{
			DiskUsage:  *usage,
			TotalHuman: humanize.Bytes(usage.TotalBytes),
			FreeHuman:  humanize.Bytes(usage.FreeBytes),
		}
	}

	writeJSON(w, http.StatusOK, stats)
}

func formatUptime(d time.Duration) string {
	days := int(d.Hours() / 24)
	hours := int(d.Hours()) % 24
	mins := int(d.Minutes()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, mins)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, mins)
	}
	return fmt.Sprintf("%dm", mins)
}
