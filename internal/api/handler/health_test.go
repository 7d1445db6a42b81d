package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/iconidentify/ytgrabba/internal/domain"
	"github.com/iconidentify/ytgrabba/internal/repository"
)

func newTestHealthHandler(t *testing.T, repo *mockJobRepository, prober *mockProber) *HealthHandler {
	t.Helper()
	return NewHealthHandler(repo, prober, &mockPool{workers: 4, inFlight: 1}, t.TempDir(), testLogger())
}

func TestHealthHandler_Live(t *testing.T) {
	handler := newTestHealthHandler(t, newMockJobRepository(), &mockProber{})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()

	handler.Live(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	contentType := w.Header().Get("Content-Type")
	if contentType != "application/json" {
		t.Errorf("Content-Type = %q, want %q", contentType, "application/json")
	}

	var resp HealthResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.Status != "ok" {
		t.Errorf("status = %q, want %q", resp.Status, "ok")
	}
	if resp.Timestamp == "" {
		t.Error("timestamp should not be empty")
	}
}

func TestHealthHandler_Ready_Success(t *testing.T) {
	repo := newMockJobRepository()
	repo.stats = &repository.JobStats{
		Active:     2,
		Extracting: 1,
		Streaming:  1,
		Delivered:  100,
		Failed:     3,
	}
	handler := newTestHealthHandler(t, repo, &mockProber{})

	req := httptest.NewRequest(http.MethodGet, "/api/ready", nil)
	w := httptest.NewRecorder()

	handler.Ready(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var resp HealthResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.Status != "ok" {
		t.Errorf("status = %q, want %q", resp.Status, "ok")
	}
	if resp.Jobs == nil {
		t.Fatal("job stats should not be nil")
	}
	if resp.Jobs.Active != 2 {
		t.Errorf("active = %d, want %d", resp.Jobs.Active, 2)
	}
	if resp.Jobs.Delivered != 100 {
		t.Errorf("delivered = %d, want %d", resp.Jobs.Delivered, 100)
	}
	if resp.Jobs.Failed != 3 {
		t.Errorf("failed = %d, want %d", resp.Jobs.Failed, 3)
	}
}

func TestHealthHandler_Ready_ProbeFailure(t *testing.T) {
	handler := newTestHealthHandler(t, newMockJobRepository(), &mockProber{err: errors.New("exec: \"ffmpeg\": executable file not found")})

	req := httptest.NewRequest(http.MethodGet, "/api/ready", nil)
	w := httptest.NewRecorder()

	handler.Ready(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}

	var resp HealthResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.Status != "error" {
		t.Errorf("status = %q, want %q", resp.Status, "error")
	}
	if resp.Error != msgMissingDependency {
		t.Errorf("error = %q, want %q", resp.Error, msgMissingDependency)
	}
}

func TestHealthHandler_Ready_StatsError(t *testing.T) {
	repo := newMockJobRepository()
	repo.statsErr = errors.New("registry unavailable")
	handler := newTestHealthHandler(t, repo, &mockProber{})

	req := httptest.NewRequest(http.MethodGet, "/api/ready", nil)
	w := httptest.NewRecorder()

	handler.Ready(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}

func TestHealthHandler_Stats(t *testing.T) {
	repo := newMockJobRepository()
	repo.stats = &repository.JobStats{Active: 1, Extracting: 1}
	repo.jobs["0123456789abcdef0123456789abcdef"] = &domain.DownloadJob{
		ID:         "0123456789abcdef0123456789abcdef",
		State:      domain.JobStateExtracting,
		FormatSpec: "bestvideo+bestaudio/best",
		CreatedAt:  time.Now().Add(-time.Minute),
	}
	handler := newTestHealthHandler(t, repo, &mockProber{})

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	w := httptest.NewRecorder()

	handler.Stats(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	contentType := w.Header().Get("Content-Type")
	if contentType != "application/json" {
		t.Errorf("Content-Type = %q, want %q", contentType, "application/json")
	}

	var stats SystemStats
	if err := json.NewDecoder(w.Body).Decode(&stats); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if stats.NumCPU == 0 {
		t.Error("num_cpu should be reported")
	}
	if stats.Workers != 4 || stats.InFlight != 1 {
		t.Errorf("workers/in_flight = %d/%d, want 4/1", stats.Workers, stats.InFlight)
	}
	if stats.Jobs == nil || stats.Jobs.Extracting != 1 {
		t.Errorf("jobs = %+v, want one extracting", stats.Jobs)
	}
	if len(stats.ActiveJobs) != 1 {
		t.Fatalf("active_jobs = %+v, want one entry", stats.ActiveJobs)
	}
	if job := stats.ActiveJobs[0]; job.State != "extracting" || job.Format != "bestvideo+bestaudio/best" {
		t.Errorf("active job = %+v", job)
	}
	if stats.ActiveJobs[0].Age == "" {
		t.Error("active job age should not be empty")
	}
	if stats.Scratch == nil {
		t.Fatal("scratch stats should be reported for an existing directory")
	}
	if stats.Scratch.Path != handler.scratchDir {
		t.Errorf("scratch path = %q, want %q", stats.Scratch.Path, handler.scratchDir)
	}
	if stats.Scratch.TotalHuman == "" {
		t.Error("total_human should not be empty")
	}
}

func TestHealthHandler_Stats_MissingScratchDir(t *testing.T) {
	handler := NewHealthHandler(newMockJobRepository(), &mockProber{}, &mockPool{workers: 1},
		filepath.Join(t.TempDir(), "missing"), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	w := httptest.NewRecorder()

	handler.Stats(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var stats SystemStats
	if err := json.NewDecoder(w.Body).Decode(&stats); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if stats.Scratch != nil {
		t.Errorf("scratch = %+v, want omitted", stats.Scratch)
	}
}

func TestFormatUptime(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{5 * time.Minute, "5m"},
		{2*time.Hour + 3*time.Minute, "2h 3m"},
		{50*time.Hour + 10*time.Minute, "2d 2h 10m"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := formatUptime(tt.d); got != tt.want {
				t.Errorf("formatUptime(%v) = %q, want %q", tt.d, got, tt.want)
			}
		})
	}
}
