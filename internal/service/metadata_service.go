package service

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/iconidentify/ytgrabba/internal/domain"
	"github.com/iconidentify/ytgrabba/pkg/ytdlp"
)

// Extractor runs the extraction engine.
type Extractor interface {
	Extract(ctx context.Context, url string, opts ytdlp.Options) (*ytdlp.Info, error)
}

// Runner bounds concurrent engine invocations.
type Runner interface {
	Do(ctx context.Context, fn func(context.Context) error) error
}

// MetadataService resolves video metadata and the formats it is offered in.
type MetadataService struct {
	extractor Extractor
	runner    Runner
	logger    *slog.Logger
}

// NewMetadataService creates a new metadata service.
func NewMetadataService(extractor Extractor, runner Runner, logger *slog.Logger) *MetadataService {
	return &MetadataService{
		extractor: extractor,
		runner:    runner,
		logger:    logger,
	}
}

// metadataOptions are the engine options for a metadata-only lookup.
func metadataOptions() ytdlp.Options {
	return ytdlp.Options{
		Quiet:              true,
		NoWarnings:         true,
		SkipDownload:       true,
		GeoBypass:          true,
		NoCheckCertificate: true,
		NoPlaylist:         true,
	}
}

// Fetch validates rawURL and returns its metadata. Engine failures are
// reported as ErrFetchFailed and never retried.
func (s *MetadataService) Fetch(ctx context.Context, rawURL string) (*domain.VideoMetadata, error) {
	url, err := domain.RequireVideoURL(rawURL)
	if err != nil {
		return nil, err
	}

	logger := s.logger.With("url", url)
	logger.Debug("fetching video info")

	var info *ytdlp.Info
	err = s.runner.Do(ctx, func(ctx context.Context) error {
		var extractErr error
		info, extractErr = s.extractor.Extract(ctx, url, metadataOptions())
		if extractErr == nil && info == nil {
			extractErr = ytdlp.ErrNoInfo
		}
		return extractErr
	})
	if err != nil {
		logger.Warn("video info lookup failed", "error", err)
		return nil, domain.NewJobError("", domain.ErrFetchFailed, err)
	}

	meta := NormalizeInfo(info, url)
	logger.Info("video info fetched",
		"video_id", deref(meta.ID),
		"formats", len(meta.Formats),
		"raw_formats", len(info.Formats),
	)

	return meta, nil
}

// NormalizeInfo converts an engine info document into VideoMetadata. Formats
// with a disallowed container or without any track are dropped and the rest
// are sorted.
func NormalizeInfo(info *ytdlp.Info, originalURL string) *domain.VideoMetadata {
	meta := &domain.VideoMetadata{
		ID:          info.ID,
		Title:       info.Title,
		Duration:    info.Duration,
		Uploader:    info.Uploader,
		Thumbnail:   pickThumbnail(info),
		Formats:     make([]domain.FormatDescriptor, 0, len(info.Formats)),
		OriginalURL: originalURL,
	}

	for _, raw := range info.Formats {
		desc, ok := normalizeFormat(raw)
		if !ok {
			continue
		}
		meta.Formats = append(meta.Formats, desc)
	}

	domain.SortFormats(meta.Formats)
	return meta
}

func normalizeFormat(raw ytdlp.Format) (domain.FormatDescriptor, bool) {
	ext := deref(raw.Ext)
	if !domain.AllowedExtension(ext) {
		return domain.FormatDescriptor{}, false
	}

	desc := domain.FormatDescriptor{
		FormatID:     deref(raw.FormatID),
		Ext:          ext,
		Filesize:     pickFilesize(raw),
		Height:       raw.Height,
		Width:        raw.Width,
		FPS:          raw.FPS,
		VCodec:       raw.VCodec,
		ACodec:       raw.ACodec,
		FormatNote:   raw.FormatNote,
		ABR:          raw.ABR,
		TBR:          raw.TBR,
		ASR:          raw.ASR,
		Protocol:     raw.Protocol,
		Container:    raw.Container,
		QualityLabel: pickQualityLabel(raw),
	}

	if !desc.Classify() {
		return domain.FormatDescriptor{}, false
	}
	return desc, true
}

func pickThumbnail(info *ytdlp.Info) *string {
	if info.Thumbnail != nil && *info.Thumbnail != "" {
		return info.Thumbnail
	}
	if n := len(info.Thumbnails); n > 0 {
		if url := info.Thumbnails[n-1].URL; url != nil && *url != "" {
			return url
		}
	}
	return nil
}

// pickFilesize prefers the exact size and falls back to the approximate one.
// A reported size of zero counts as unknown.
func pickFilesize(raw ytdlp.Format) *int64 {
	for _, size := range []*float64{raw.Filesize, raw.FilesizeApprox} {
		if size != nil && *size > 0 {
			n := int64(*size)
			return &n
		}
	}
	return nil
}

func pickQualityLabel(raw ytdlp.Format) *string {
	switch {
	case raw.Format != nil && *raw.Format != "":
		return raw.Format
	case raw.FormatNote != nil && *raw.FormatNote != "":
		return raw.FormatNote
	case raw.Quality != nil:
		label := strconv.FormatFloat(*raw.Quality, 'f', -1, 64)
		return &label
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
