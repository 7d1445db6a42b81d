// Package ytdlp drives the yt-dlp extraction engine and decodes the info
// documents it prints.
package ytdlp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	goytdlp "github.com/lrstanley/go-ytdlp"
)

// ErrNoInfo is returned when yt-dlp exits cleanly without printing an info
// document.
var ErrNoInfo = errors.New("yt-dlp printed no info document")

// Options enumerates every yt-dlp option the service sets.
type Options struct {
	Quiet              bool   // --quiet
	NoWarnings         bool   // --no-warnings
	SkipDownload       bool   // metadata only, nothing is written to disk
	GeoBypass          bool   // --geo-bypass
	NoCheckCertificate bool   // --no-check-certificates
	NoPlaylist         bool   // --no-playlist
	OutputTemplate     string // -o, e.g. /scratch/<id>.%(ext)s
	Format             string // -f format selector
	MergeOutputFormat  string // container used when merging separate streams
	Retries            int    // whole-operation retries, 0 leaves the engine default
	FragmentRetries    int    // per-fragment retries, 0 leaves the engine default
}

// Config holds client configuration.
type Config struct {
	// Executable is the yt-dlp binary. Empty resolves it through PATH.
	Executable string
	// Timeout bounds a single engine invocation.
	Timeout time.Duration
}

// Client runs yt-dlp.
type Client struct {
	executable string
	timeout    time.Duration
}

// NewClient creates a new yt-dlp client.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Minute
	}
	return &Client{
		executable: cfg.Executable,
		timeout:    cfg.Timeout,
	}
}

// EngineError is returned when yt-dlp fails.
type EngineError struct {
	Message string
	Err     error
}

func (e *EngineError) Error() string {
	return e.Message
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

// Extract runs yt-dlp against url and returns the info document it printed.
// With SkipDownload the engine only resolves metadata; otherwise it writes
// the media file according to OutputTemplate and reports its prepared
// filename in the returned Info.
func (c *Client) Extract(ctx context.Context, url string, opts Options) (*Info, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := c.command(opts)

	var args []string
	if opts.GeoBypass {
		// Deprecated alias in yt-dlp with no builder method.
		args = append(args, "--geo-bypass")
	}
	args = append(args, url)

	result, err := cmd.Run(ctx, args...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, &EngineError{Message: "yt-dlp: " + ctxErr.Error(), Err: ctxErr}
		}
		var stderr string
		if result != nil {
			stderr = result.Stderr
		}
		return nil, &EngineError{Message: engineMessage(stderr, err), Err: err}
	}

	return DecodeInfo(result.Stdout)
}

func (c *Client) command(opts Options) *goytdlp.Command {
	cmd := goytdlp.New()
	if c.executable != "" {
		cmd = cmd.SetExecutable(c.executable)
	}

	if opts.Quiet {
		cmd = cmd.Quiet()
	}
	if opts.NoWarnings {
		cmd = cmd.NoWarnings()
	}
	if opts.NoCheckCertificate {
		cmd = cmd.NoCheckCertificates()
	}
	if opts.NoPlaylist {
		cmd = cmd.NoPlaylist()
	}

	if opts.SkipDownload {
		cmd = cmd.SkipDownload().DumpSingleJSON()
	} else {
		// -j implies simulate; --no-simulate keeps the download while still
		// printing the info document with the prepared filename.
		cmd = cmd.DumpJSON().NoSimulate().NoProgress()
	}

	if opts.OutputTemplate != "" {
		cmd = cmd.Output(opts.OutputTemplate)
	}
	if opts.Format != "" {
		cmd = cmd.Format(opts.Format)
	}
	if opts.MergeOutputFormat != "" {
		cmd = cmd.MergeOutputFormat(opts.MergeOutputFormat)
	}
	if opts.Retries > 0 {
		cmd = cmd.Retries(strconv.Itoa(opts.Retries))
	}
	if opts.FragmentRetries > 0 {
		cmd = cmd.FragmentRetries(strconv.Itoa(opts.FragmentRetries))
	}

	return cmd
}

// DecodeInfo parses the last JSON document in yt-dlp's stdout.
func DecodeInfo(stdout string) (*Info, error) {
	var doc string
	scanner := bufio.NewScanner(strings.NewReader(stdout))
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "{") {
			doc = line
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read yt-dlp output: %w", err)
	}
	if doc == "" {
		return nil, ErrNoInfo
	}

	var info Info
	if err := json.Unmarshal([]byte(doc), &info); err != nil {
		return nil, fmt.Errorf("decode yt-dlp info: %w", err)
	}
	return &info, nil
}

// engineMessage picks the most useful line from yt-dlp's stderr: the last
// ERROR line, else the last non-empty line, else the process error.
func engineMessage(stderr string, err error) string {
	var lastError, lastLine string
	for _, line := range strings.Split(stderr, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lastLine = line
		if strings.HasPrefix(line, "ERROR:") {
			lastError = line
		}
	}

	switch {
	case lastError != "":
		return lastError
	case lastLine != "":
		return lastLine
	case err != nil:
		return "yt-dlp: " + err.Error()
	default:
		return "yt-dlp failed"
	}
}
