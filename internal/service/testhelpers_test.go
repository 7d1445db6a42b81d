package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/iconidentify/ytgrabba/pkg/ytdlp"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strPtr(s string) *string { return &s }

func intPtr(n int) *int { return &n }

func floatPtr(f float64) *float64 { return &f }

// extractCall records one invocation of the fake extractor.
type extractCall struct {
	URL  string
	Opts ytdlp.Options
}

// fakeExtractor implements Extractor for testing.
type fakeExtractor struct {
	mu      sync.Mutex
	calls   []extractCall
	extract func(ctx context.Context, url string, opts ytdlp.Options) (*ytdlp.Info, error)
}

func (f *fakeExtractor) Extract(ctx context.Context, url string, opts ytdlp.Options) (*ytdlp.Info, error) {
	f.mu.Lock()
	f.calls = append(f.calls, extractCall{URL: url, Opts: opts})
	f.mu.Unlock()

	if f.extract == nil {
		return nil, errors.New("no extract behaviour configured")
	}
	return f.extract(ctx, url, opts)
}

func (f *fakeExtractor) Calls() []extractCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]extractCall(nil), f.calls...)
}

// fakeProber implements DependencyProber for testing.
type fakeProber struct {
	err   error
	calls int
}

func (p *fakeProber) Probe(ctx context.Context) error {
	p.calls++
	return p.err
}

// inlineRunner runs tasks on the calling goroutine.
type inlineRunner struct{}

func (inlineRunner) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}

// outputPath expands the engine output template for ext.
func outputPath(opts ytdlp.Options, ext string) string {
	return strings.Replace(opts.OutputTemplate, "%(ext)s", ext, 1)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// assertEmptyDir fails when dir holds any entry.
func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read %s: %v", dir, err)
	}
	for _, e := range entries {
		t.Errorf("unexpected residue in scratch dir: %s", e.Name())
	}
}
