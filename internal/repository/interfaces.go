package repository

import (
	"context"

	"github.com/iconidentify/ytgrabba/internal/domain"
)

// JobRepository tracks download jobs while they are in flight. Jobs are not
// persisted; a job leaves the repository when its request finishes.
type JobRepository interface {
	// Add registers a new job.
	Add(ctx context.Context, job *domain.DownloadJob) error

	// Update records the current state of a job.
	Update(ctx context.Context, job *domain.DownloadJob) error

	// Remove drops a finished job and counts its outcome.
	Remove(ctx context.Context, id domain.JobID) error

	// ListActive returns snapshots of all in-flight jobs, oldest first.
	ListActive(ctx context.Context) ([]*domain.DownloadJob, error)

	// Stats returns job statistics.
	Stats(ctx context.Context) (*JobStats, error)
}

// JobStats contains job statistics.
type JobStats struct {
	Active     int `json:"active"`
	Extracting int `json:"extracting"`
	Streaming  int `json:"streaming"`
	Delivered  int `json:"delivered"`
	Failed     int `json:"failed"`
}
