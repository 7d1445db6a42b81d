package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/iconidentify/ytgrabba/internal/domain"
	"github.com/iconidentify/ytgrabba/internal/service"
)

// Client-facing error messages.
const (
	msgNoURL             = "No URL provided"
	msgInvalidURL        = "Invalid YouTube URL"
	msgMissingDependency = "ffmpeg is not installed or not in PATH. Please install ffmpeg."
	msgArtifactMissing   = "File not found after download"
	msgFetchFailed       = "Failed to fetch video info: "
	msgDownloadFailed    = "Download failed: "
)

// MetadataFetcher resolves video metadata.
type MetadataFetcher interface {
	Fetch(ctx context.Context, url string) (*domain.VideoMetadata, error)
}

// DownloadExecutor runs a download job and delivers its artifact.
type DownloadExecutor interface {
	Execute(ctx context.Context, req service.DownloadRequest, deliver service.DeliverFunc) error
}

// VideoHandler handles video info and download requests.
type VideoHandler struct {
	metadata  MetadataFetcher
	downloads DownloadExecutor
	logger    *slog.Logger
}

// NewVideoHandler creates a new video handler.
func NewVideoHandler(metadata MetadataFetcher, downloads DownloadExecutor, logger *slog.Logger) *VideoHandler {
	return &VideoHandler{
		metadata:  metadata,
		downloads: downloads,
		logger:    logger,
	}
}

// VideoInfo handles GET /api/videoinfo?url=
func (h *VideoHandler) VideoInfo(w http.ResponseWriter, r *http.Request) {
	meta, err := h.metadata.Fetch(r.Context(), r.URL.Query().Get("url"))
	if err != nil {
		if h.writeInputError(w, err) {
			return
		}
		h.logger.Error("video info failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, msgFetchFailed+domain.Reason(err))
		return
	}

	h.writeJSON(w, http.StatusOK, meta)
}

// Download handles GET /api/download?url=&format_id=
// The artifact is streamed as an attachment; once headers are sent a
// transfer error can only be logged.
func (h *VideoHandler) Download(w http.ResponseWriter, r *http.Request) {
	req := service.DownloadRequest{
		URL:      r.URL.Query().Get("url"),
		FormatID: r.URL.Query().Get("format_id"),
	}

	err := h.downloads.Execute(r.Context(), req, func(ctx context.Context, a *service.Artifact) error {
		w.Header().Set("Content-Type", a.ContentType)
		w.Header().Set("Content-Disposition", attachmentDisposition(a.Filename))
		w.Header().Set("Content-Length", strconv.FormatInt(a.Size, 10))
		w.WriteHeader(http.StatusOK)

		n, err := io.Copy(w, a.Reader)
		if err != nil {
			return fmt.Errorf("sent %d of %d bytes: %w", n, a.Size, err)
		}
		return nil
	})
	if err == nil {
		return
	}

	if h.writeInputError(w, err) {
		return
	}

	switch {
	case errors.Is(err, domain.ErrStreamFailed):
		h.logger.Warn("download stream aborted", "error", err)
	case errors.Is(err, domain.ErrMissingDependency):
		h.logger.Error("download refused", "error", err)
		h.writeError(w, http.StatusInternalServerError, msgMissingDependency)
	case errors.Is(err, domain.ErrArtifactMissing):
		h.logger.Error("download produced no file", "error", err)
		h.writeError(w, http.StatusInternalServerError, msgArtifactMissing)
	default:
		h.logger.Error("download failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, msgDownloadFailed+domain.Reason(err))
	}
}

// writeInputError answers 400 for invalid input and reports whether it did.
func (h *VideoHandler) writeInputError(w http.ResponseWriter, err error) bool {
	switch {
	case errors.Is(err, domain.ErrNoURL):
		h.writeError(w, http.StatusBadRequest, msgNoURL)
	case errors.Is(err, domain.ErrInvalidURL):
		h.writeError(w, http.StatusBadRequest, msgInvalidURL)
	default:
		return false
	}
	return true
}

// attachmentDisposition formats the Content-Disposition header, switching to
// the RFC 2231 form for names that need it.
func attachmentDisposition(filename string) string {
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": filename}); v != "" {
		return v
	}
	return "attachment"
}

func (h *VideoHandler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, data)
}

func (h *VideoHandler) writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
