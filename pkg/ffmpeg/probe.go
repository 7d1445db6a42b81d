package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ErrNotInstalled is returned when the ffmpeg binary cannot be invoked.
var ErrNotInstalled = errors.New("ffmpeg is not installed or not in PATH")

// DefaultProbeTimeout bounds a single version query.
const DefaultProbeTimeout = 10 * time.Second

// Prober checks whether the ffmpeg binary is invocable.
type Prober struct {
	path    string
	timeout time.Duration
}

// NewProber creates a prober for the binary at path. An empty path means
// "ffmpeg" resolved through PATH.
func NewProber(path string, timeout time.Duration) *Prober {
	if path == "" {
		path = "ffmpeg"
	}
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &Prober{
		path:    path,
		timeout: timeout,
	}
}

// Path returns the configured binary path.
func (p *Prober) Path() string {
	return p.path
}

// Probe runs a version query and reports success or failure only.
func (p *Prober) Probe(ctx context.Context) error {
	_, err := p.Version(ctx)
	return err
}

// Version returns the first line of `ffmpeg -version`.
func (p *Prober) Version(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.path, "-version")
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrNotInstalled, p.path, err)
	}

	line, _, _ := strings.Cut(string(output), "\n")
	line = strings.TrimSpace(line)
	if line == "" {
		return "unknown", nil
	}
	return line, nil
}
