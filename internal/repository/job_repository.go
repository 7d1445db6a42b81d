package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/iconidentify/ytgrabba/internal/domain"
)

// InMemoryJobRepository implements JobRepository using in-memory storage.
// It stores copies so callers can keep mutating their own job values.
type InMemoryJobRepository struct {
	mu        sync.RWMutex
	jobs      map[domain.JobID]domain.DownloadJob
	delivered int
	failed    int
}

// NewInMemoryJobRepository creates a new in-memory job repository.
func NewInMemoryJobRepository() *InMemoryJobRepository {
	return &InMemoryJobRepository{
		jobs: make(map[domain.JobID]domain.DownloadJob),
	}
}

// Add registers a new job.
func (r *InMemoryJobRepository) Add(ctx context.Context, job *domain.DownloadJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.jobs[job.ID] = *job
	return nil
}

// Update records the current state of a job.
func (r *InMemoryJobRepository) Update(ctx context.Context, job *domain.DownloadJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[job.ID]; !ok {
		return domain.ErrJobNotFound
	}

	r.jobs[job.ID] = *job
	return nil
}

// Remove drops a finished job. A job whose last recorded state is
// delivered counts as delivered; anything else counts as failed.
func (r *InMemoryJobRepository) Remove(ctx context.Context, id domain.JobID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok {
		return domain.ErrJobNotFound
	}

	if job.State == domain.JobStateDelivered {
		r.delivered++
	} else {
		r.failed++
	}
	delete(r.jobs, id)

	return nil
}

// ListActive returns snapshots of all in-flight jobs, oldest first.
func (r *InMemoryJobRepository) ListActive(ctx context.Context) ([]*domain.DownloadJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*domain.DownloadJob, 0, len(r.jobs))
	for _, job := range r.jobs {
		job := job
		result = append(result, &job)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}

// Stats returns job statistics.
func (r *InMemoryJobRepository) Stats(ctx context.Context) (*JobStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &JobStats{
		Active:    len(r.jobs),
		Delivered: r.delivered,
		Failed:    r.failed,
	}
	for _, job := range r.jobs {
		switch job.State {
		case domain.JobStateExtracting:
			stats.Extracting++
		case domain.JobStateStreaming:
			stats.Streaming++
		}
	}

	return stats, nil
}
