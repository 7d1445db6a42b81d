package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/iconidentify/ytgrabba/internal/domain"
	"github.com/iconidentify/ytgrabba/internal/repository"
	"github.com/iconidentify/ytgrabba/pkg/ytdlp"
)

// DefaultFormatSpec selects the best video and audio streams, merged, or the
// best single file when no separate streams exist.
const DefaultFormatSpec = "bestvideo+bestaudio/best"

// DependencyProber checks that the remux binary can be invoked.
type DependencyProber interface {
	Probe(ctx context.Context) error
}

// DownloadRequest is a single download request.
type DownloadRequest struct {
	URL      string
	FormatID string
}

// Artifact is a finished download ready to be sent to the client. Reader is
// only valid until the DeliverFunc returns.
type Artifact struct {
	Job         domain.DownloadJob
	Reader      io.Reader
	Size        int64
	Filename    string
	ContentType string
}

// DeliverFunc transfers an artifact to the client.
type DeliverFunc func(ctx context.Context, artifact *Artifact) error

// DownloadConfig holds job controller configuration.
type DownloadConfig struct {
	ScratchDir      string
	DefaultFormat   string
	MergeFormat     string
	Retries         int
	FragmentRetries int
}

// DownloadService runs download jobs end to end: extraction into the
// scratch directory, delivery, and removal of every file the job produced.
type DownloadService struct {
	extractor Extractor
	prober    DependencyProber
	runner    Runner
	jobs      repository.JobRepository
	cfg       DownloadConfig
	logger    *slog.Logger
}

// NewDownloadService creates a new download service.
func NewDownloadService(
	extractor Extractor,
	prober DependencyProber,
	runner Runner,
	jobs repository.JobRepository,
	cfg DownloadConfig,
	logger *slog.Logger,
) *DownloadService {
	if cfg.DefaultFormat == "" {
		cfg.DefaultFormat = DefaultFormatSpec
	}
	if cfg.MergeFormat == "" {
		cfg.MergeFormat = "mp4"
	}
	return &DownloadService{
		extractor: extractor,
		prober:    prober,
		runner:    runner,
		jobs:      jobs,
		cfg:       cfg,
		logger:    logger,
	}
}

// Execute runs one download job and hands the artifact to deliver. All
// scratch files of the job are removed before Execute returns, whatever the
// outcome.
func (s *DownloadService) Execute(ctx context.Context, req DownloadRequest, deliver DeliverFunc) error {
	job := domain.NewDownloadJob(strings.TrimSpace(req.URL))
	if err := job.Advance(domain.JobStateValidating); err != nil {
		return err
	}

	url, err := domain.RequireVideoURL(req.URL)
	if err != nil {
		_ = job.Fail(domain.JobStateRejected, err)
		return err
	}
	job.URL = url

	// No job ID or file exists until the remux binary is known to work
	if err := s.prober.Probe(ctx); err != nil {
		_ = job.Fail(domain.JobStateRejected, err)
		s.logger.Error("remux binary unavailable", "error", err)
		return domain.NewJobError("", domain.ErrMissingDependency, err)
	}

	job.FormatSpec = s.formatSpec(req.FormatID)
	job.ID = domain.NewJobID()
	job.OutputTemplate = filepath.Join(s.cfg.ScratchDir, job.ScratchPrefix()+"%(ext)s")
	if err := job.Advance(domain.JobStateExtracting); err != nil {
		return err
	}

	logger := s.logger.With("job_id", job.ID)
	if err := s.jobs.Add(ctx, job); err != nil {
		return fmt.Errorf("register job: %w", err)
	}

	var file *os.File
	defer func() {
		s.cleanup(context.WithoutCancel(ctx), logger, job, file)
	}()

	logger.Info("starting download", "url", url, "format", job.FormatSpec)
	start := time.Now()

	var info *ytdlp.Info
	err = s.runner.Do(ctx, func(ctx context.Context) error {
		var extractErr error
		info, extractErr = s.extractor.Extract(ctx, url, s.downloadOptions(job))
		if extractErr == nil && info == nil {
			extractErr = ytdlp.ErrNoInfo
		}
		return extractErr
	})
	if err != nil {
		s.fail(ctx, logger, job, domain.JobStateExtractFailed, err)
		return domain.NewJobError(job.ID, domain.ErrExtractFailed, err)
	}
	logger.Info("extraction finished", "duration", time.Since(start).Round(time.Millisecond))

	s.advance(ctx, logger, job, domain.JobStateArtifactResolving)

	path, err := s.resolveArtifact(job, info.PreparedFilename())
	if err != nil {
		s.fail(ctx, logger, job, domain.JobStateArtifactMissing, err)
		return domain.NewJobError(job.ID, domain.ErrArtifactMissing, err)
	}
	job.FilePath = path

	file, err = os.Open(path)
	if err != nil {
		s.fail(ctx, logger, job, domain.JobStateArtifactMissing, err)
		return domain.NewJobError(job.ID, domain.ErrArtifactMissing, err)
	}
	stat, err := file.Stat()
	if err != nil {
		s.fail(ctx, logger, job, domain.JobStateArtifactMissing, err)
		return domain.NewJobError(job.ID, domain.ErrArtifactMissing, err)
	}

	var title string
	if info.Title != nil {
		title = *info.Title
	}
	job.Filename = domain.SafeFilename(title, path)
	job.Size = stat.Size()

	s.advance(ctx, logger, job, domain.JobStateStreaming)

	artifact := &Artifact{
		Job:         *job,
		Reader:      file,
		Size:        job.Size,
		Filename:    job.Filename,
		ContentType: ContentTypeFor(path),
	}
	if err := deliver(ctx, artifact); err != nil {
		s.fail(ctx, logger, job, domain.JobStateStreamError, err)
		return domain.NewJobError(job.ID, domain.ErrStreamFailed, err)
	}

	s.advance(ctx, logger, job, domain.JobStateDelivered)
	logger.Info("download delivered",
		"filename", job.Filename,
		"size", humanize.Bytes(uint64(job.Size)),
		"duration", time.Since(start).Round(time.Millisecond),
	)

	return nil
}

func (s *DownloadService) formatSpec(formatID string) string {
	if spec := strings.TrimSpace(formatID); spec != "" {
		return spec
	}
	return s.cfg.DefaultFormat
}

func (s *DownloadService) downloadOptions(job *domain.DownloadJob) ytdlp.Options {
	return ytdlp.Options{
		Quiet:              true,
		NoWarnings:         true,
		GeoBypass:          true,
		NoCheckCertificate: true,
		NoPlaylist:         true,
		OutputTemplate:     job.OutputTemplate,
		Format:             job.FormatSpec,
		MergeOutputFormat:  s.cfg.MergeFormat,
		Retries:            s.cfg.Retries,
		FragmentRetries:    s.cfg.FragmentRetries,
	}
}

// resolveArtifact locates the file the engine produced. The reported path
// wins when it exists; otherwise the same base name is tried with .mp4 and
// then with the configured merge container. Paths outside the job's scratch namespace are refused.
func (s *DownloadService) resolveArtifact(job *domain.DownloadJob, reported string) (string, error) {
	scratch, err := filepath.Abs(s.cfg.ScratchDir)
	if err != nil {
		return "", fmt.Errorf("resolve scratch dir: %w", err)
	}

	base := filepath.Join(scratch, job.ID.String())
	if reported != "" {
		abs, err := filepath.Abs(reported)
		if err != nil {
			return "", fmt.Errorf("resolve reported path: %w", err)
		}
		if filepath.Dir(abs) != scratch || !strings.HasPrefix(filepath.Base(abs), job.ScratchPrefix()) {
			return "", fmt.Errorf("reported path %q is outside the job scratch files", reported)
		}
		if isRegularFile(abs) {
			return abs, nil
		}
		base = strings.TrimSuffix(abs, filepath.Ext(abs))
	}

	candidates := []string{base + ".mp4"}
	if s.cfg.MergeFormat != "mp4" {
		candidates = append(candidates, base+"."+s.cfg.MergeFormat)
	}
	for _, candidate := range candidates {
		if isRegularFile(candidate) {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("no file at %q or %s", reported, strings.Join(candidates, ", "))
}

func (s *DownloadService) advance(ctx context.Context, logger *slog.Logger, job *domain.DownloadJob, next domain.JobState) {
	if err := job.Advance(next); err != nil {
		logger.Error("job state change rejected", "error", err)
		return
	}
	if err := s.jobs.Update(ctx, job); err != nil {
		logger.Warn("failed to record job state", "state", next, "error", err)
	}
}

func (s *DownloadService) fail(ctx context.Context, logger *slog.Logger, job *domain.DownloadJob, state domain.JobState, cause error) {
	if err := job.Fail(state, cause); err != nil {
		logger.Error("job state change rejected", "error", err)
	}
	if err := s.jobs.Update(context.WithoutCancel(ctx), job); err != nil {
		logger.Warn("failed to record job state", "state", state, "error", err)
	}
	logger.Warn("download job failed", "state", state, "error", cause)
}

// cleanup closes the artifact and removes every scratch file of the job.
// Errors are logged and never returned.
func (s *DownloadService) cleanup(ctx context.Context, logger *slog.Logger, job *domain.DownloadJob, file *os.File) {
	if file != nil {
		if err := file.Close(); err != nil {
			logger.Warn("failed to close artifact", "error", err)
		}
	}

	removed := s.removeScratchFiles(logger, job)

	if err := s.jobs.Remove(ctx, job.ID); err != nil && !errors.Is(err, domain.ErrJobNotFound) {
		logger.Warn("failed to unregister job", "error", err)
	}

	outcome := job.State
	if err := job.Advance(domain.JobStateCleanup); err != nil {
		logger.Debug("cleanup from unexpected state", "state", outcome, "error", err)
	}

	logger.Debug("job cleaned up", "outcome", outcome, "files_removed", removed)
}

func (s *DownloadService) removeScratchFiles(logger *slog.Logger, job *domain.DownloadJob) int {
	paths := make(map[string]struct{})
	if job.FilePath != "" {
		paths[job.FilePath] = struct{}{}
	}

	matches, err := filepath.Glob(filepath.Join(s.cfg.ScratchDir, job.ScratchPrefix()+"*"))
	if err != nil {
		logger.Warn("failed to list scratch files", "error", err)
	}
	for _, m := range matches {
		abs, err := filepath.Abs(m)
		if err != nil {
			abs = m
		}
		paths[abs] = struct{}{}
	}

	removed := 0
	for path := range paths {
		if err := os.Remove(path); err != nil {
			if !os.IsNotExist(err) {
				logger.Warn("failed to remove scratch file", "path", path, "error", err)
			}
			continue
		}
		removed++
	}
	return removed
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

var contentTypes = map[string]string{
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".m4a":  "audio/mp4",
	".mp3":  "audio/mpeg",
	".opus": "audio/ogg",
}

// ContentTypeFor returns the media type for the file extension of path.
func ContentTypeFor(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
