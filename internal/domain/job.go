package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// JobID is a unique identifier for a download job.
type JobID string

// String returns the string representation of the JobID.
func (id JobID) String() string {
	return string(id)
}

// NewJobID returns a fresh random job identifier. It is the hex form of a
// version 4 UUID, so it is safe to use as a file name.
func NewJobID() JobID {
	return JobID(strings.ReplaceAll(uuid.NewString(), "-", ""))
}

var scratchNamePattern = regexp.MustCompile(`^[0-9a-f]{32}\.`)

// IsScratchName reports whether name has the prefix of a job artifact.
func IsScratchName(name string) bool {
	return scratchNamePattern.MatchString(name)
}

// JobState represents where a download job is in its lifecycle.
type JobState string

const (
	JobStateCreated           JobState = "created"
	JobStateValidating        JobState = "validating"
	JobStateRejected          JobState = "rejected"
	JobStateExtracting        JobState = "extracting"
	JobStateExtractFailed     JobState = "extract_failed"
	JobStateArtifactResolving JobState = "artifact_resolving"
	JobStateArtifactMissing   JobState = "artifact_missing"
	JobStateStreaming         JobState = "streaming"
	JobStateStreamError       JobState = "stream_error"
	JobStateDelivered         JobState = "delivered"
	JobStateCleanup           JobState = "cleanup"
)

var jobTransitions = map[JobState][]JobState{
	JobStateCreated:           {JobStateValidating},
	JobStateValidating:        {JobStateRejected, JobStateExtracting},
	JobStateExtracting:        {JobStateExtractFailed, JobStateArtifactResolving, JobStateCleanup},
	JobStateExtractFailed:     {JobStateCleanup},
	JobStateArtifactResolving: {JobStateArtifactMissing, JobStateStreaming, JobStateCleanup},
	JobStateArtifactMissing:   {JobStateCleanup},
	JobStateStreaming:         {JobStateStreamError, JobStateDelivered, JobStateCleanup},
	JobStateStreamError:       {JobStateCleanup},
	JobStateDelivered:         {JobStateCleanup},
}

// IsTerminal returns true if no further transition is possible.
func (s JobState) IsTerminal() bool {
	return s == JobStateRejected || s == JobStateCleanup
}

// IsFailure returns true for states that end a job without delivery.
func (s JobState) IsFailure() bool {
	switch s {
	case JobStateRejected, JobStateExtractFailed, JobStateArtifactMissing, JobStateStreamError:
		return true
	}
	return false
}

// CanTransition reports whether a job in state s may move to next.
func (s JobState) CanTransition(next JobState) bool {
	for _, allowed := range jobTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// DownloadJob is one download request handled end to end.
type DownloadJob struct {
	ID             JobID
	URL            string
	FormatSpec     string
	OutputTemplate string
	FilePath       string
	Filename       string
	Size           int64
	State          JobState
	LastError      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewDownloadJob creates a job for url in the created state. The ID is
// assigned once the job passes its preconditions.
func NewDownloadJob(url string) *DownloadJob {
	now := time.Now()
	return &DownloadJob{
		URL:       url,
		State:     JobStateCreated,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Advance moves the job to next, rejecting transitions the lifecycle does
// not allow.
func (j *DownloadJob) Advance(next JobState) error {
	if !j.State.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.State, next)
	}
	j.State = next
	j.UpdatedAt = time.Now()
	return nil
}

// Fail moves the job to a failure state and records the error.
func (j *DownloadJob) Fail(state JobState, err error) error {
	if err != nil {
		j.LastError = err.Error()
	}
	return j.Advance(state)
}

// ScratchPrefix is the file name prefix every artifact of the job shares.
func (j *DownloadJob) ScratchPrefix() string {
	return j.ID.String() + "."
}
