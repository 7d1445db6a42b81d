package service

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/iconidentify/ytgrabba/internal/domain"
)

// SweepScratch removes job artifacts a previous process left in the scratch
// directory. Only regular files named with a job ID prefix are touched. It
// returns the number of files removed.
func SweepScratch(dir string, logger *slog.Logger) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read scratch dir: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !domain.IsScratchName(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil {
			if !os.IsNotExist(err) {
				logger.Warn("failed to remove stale scratch file", "path", path, "error", err)
			}
			continue
		}
		removed++
	}

	if removed > 0 {
		logger.Info("removed stale scratch files", "dir", dir, "count", removed)
	}
	return removed, nil
}

// DiskUsage describes the filesystem holding the scratch directory.
type DiskUsage struct {
	Path       string  `json:"path"`
	TotalBytes uint64  `json:"total_bytes"`
	FreeBytes  uint64  `json:"free_bytes"`
	UsedBytes  uint64  `json:"used_bytes"`
	UsedPct    float64 `json:"used_pct"`
}

// ScratchUsage returns disk usage for the filesystem holding dir.
func ScratchUsage(dir string) (*DiskUsage, error) {
	stat, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !stat.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	total, free, err := diskSpace(dir)
	if err != nil {
		return nil, fmt.Errorf("stat filesystem: %w", err)
	}

	usage := &DiskUsage{
		Path:       dir,
		TotalBytes: total,
		FreeBytes:  free,
	}
	if total >= free {
		usage.UsedBytes = total - free
	}
	if total > 0 {
		usage.UsedPct = float64(usage.UsedBytes) / float64(total) * 100
	}
	return usage, nil
}
