package domain

import "errors"

// Domain errors.
var (
	// ErrNoURL is returned when the request carries no video URL.
	ErrNoURL = errors.New("no URL provided")

	// ErrInvalidURL is returned when the URL is not a recognised video URL.
	ErrInvalidURL = errors.New("invalid YouTube URL")

	// ErrMissingDependency is returned when the remux binary cannot be invoked.
	ErrMissingDependency = errors.New("remux binary not available")

	// ErrFetchFailed is returned when the engine fails in metadata mode.
	ErrFetchFailed = errors.New("failed to fetch video info")

	// ErrExtractFailed is returned when the engine fails in download mode.
	ErrExtractFailed = errors.New("download failed")

	// ErrArtifactMissing is returned when no file exists after extraction,
	// even after probing the fallback extension.
	ErrArtifactMissing = errors.New("file not found after download")

	// ErrStreamFailed is returned when transferring the artifact to the
	// client fails. The response is already committed at that point.
	ErrStreamFailed = errors.New("stream to client failed")

	// ErrJobNotFound is returned when a job cannot be found.
	ErrJobNotFound = errors.New("job not found")

	// ErrInvalidTransition is returned when a job is moved to a state that
	// does not follow its current one.
	ErrInvalidTransition = errors.New("invalid job state transition")
)

// JobError pairs a taxonomy error with the underlying cause.
type JobError struct {
	JobID JobID
	Kind  error
	Err   error
}

func (e *JobError) Error() string {
	msg := e.Kind.Error()
	if e.JobID != "" {
		msg += " [" + e.JobID.String() + "]"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *JobError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Reason returns the underlying cause message, or the kind when there is none.
func (e *JobError) Reason() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Kind.Error()
}

// NewJobError creates a new JobError.
func NewJobError(jobID JobID, kind, err error) *JobError {
	return &JobError{
		JobID: jobID,
		Kind:  kind,
		Err:   err,
	}
}

// Reason extracts the user-facing cause from err.
func Reason(err error) string {
	var jobErr *JobError
	if errors.As(err, &jobErr) {
		return jobErr.Reason()
	}
	return err.Error()
}
