package handler

import (
	"context"
	"io"
	"log/slog"

	"github.com/iconidentify/ytgrabba/internal/domain"
	"github.com/iconidentify/ytgrabba/internal/repository"
	"github.com/iconidentify/ytgrabba/internal/service"
)

// testLogger returns a silent logger for tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockJobRepository is a test implementation of repository.JobRepository.
type mockJobRepository struct {
	stats    *repository.JobStats
	statsErr error
	jobs     map[domain.JobID]*domain.DownloadJob
}

func newMockJobRepository() *mockJobRepository {
	return &mockJobRepository{
		stats: &repository.JobStats{},
		jobs:  make(map[domain.JobID]*domain.DownloadJob),
	}
}

func (m *mockJobRepository) Add(ctx context.Context, job *domain.DownloadJob) error {
	m.jobs[job.ID] = job
	return nil
}

func (m *mockJobRepository) Update(ctx context.Context, job *domain.DownloadJob) error {
	if _, ok := m.jobs[job.ID]; !ok {
		return domain.ErrJobNotFound
	}
	m.jobs[job.ID] = job
	return nil
}

func (m *mockJobRepository) Remove(ctx context.Context, id domain.JobID) error {
	if _, ok := m.jobs[id]; !ok {
		return domain.ErrJobNotFound
	}
	delete(m.jobs, id)
	return nil
}

func (m *mockJobRepository) ListActive(ctx context.Context) ([]*domain.DownloadJob, error) {
	result := make([]*domain.DownloadJob, 0, len(m.jobs))
	for _, job := range m.jobs {
		result = append(result, job)
	}
	return result, nil
}

func (m *mockJobRepository) Stats(ctx context.Context) (*repository.JobStats, error) {
	if m.statsErr != nil {
		return nil, m.statsErr
	}
	return m.stats, nil
}

// mockProber is a test implementation of service.DependencyProber.
type mockProber struct {
	err error
}

func (m *mockProber) Probe(ctx context.Context) error {
	return m.err
}

// mockPool is a test implementation of InFlightCounter.
type mockPool struct {
	workers  int
	inFlight int
}

func (m *mockPool) Workers() int  { return m.workers }
func (m *mockPool) InFlight() int { return m.inFlight }

// mockMetadataFetcher is a test implementation of MetadataFetcher.
type mockMetadataFetcher struct {
	meta  *domain.VideoMetadata
	err   error
	calls []string
}

func (m *mockMetadataFetcher) Fetch(ctx context.Context, url string) (*domain.VideoMetadata, error) {
	m.calls = append(m.calls, url)
	if m.err != nil {
		return nil, m.err
	}
	return m.meta, nil
}

// mockDownloadExecutor is a test implementation of DownloadExecutor. When
// err is nil it delivers artifact.
type mockDownloadExecutor struct {
	artifact   *service.Artifact
	err        error
	deliverErr error
	requests   []service.DownloadRequest
}

func (m *mockDownloadExecutor) Execute(ctx context.Context, req service.DownloadRequest, deliver service.DeliverFunc) error {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return m.err
	}
	if err := deliver(ctx, m.artifact); err != nil {
		m.deliverErr = err
		return domain.NewJobError(m.artifact.Job.ID, domain.ErrStreamFailed, err)
	}
	return nil
}
