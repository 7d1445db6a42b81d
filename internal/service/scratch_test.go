package service

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/iconidentify/ytgrabba/internal/domain"
)

func TestSweepScratch(t *testing.T) {
	dir := t.TempDir()
	id := domain.NewJobID().String()
	writeFile(t, filepath.Join(dir, id+".mp4"), "stale")
	writeFile(t, filepath.Join(dir, id+".f137.mp4.part"), "stale")
	writeFile(t, filepath.Join(dir, "notes.txt"), "keep")
	writeFile(t, filepath.Join(dir, "abc.mp4"), "keep")
	if err := os.Mkdir(filepath.Join(dir, "keep"), 0755); err != nil {
		t.Fatalf("Mkdir failed: %v", err)
	}

	removed, err := SweepScratch(dir, testLogger())
	if err != nil {
		t.Fatalf("SweepScratch failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}

	for _, name := range []string{"notes.txt", "abc.mp4", "keep"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s should survive the sweep: %v", name, err)
		}
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 3 {
		t.Errorf("entries = %d, want 3", len(entries))
	}
}

func TestSweepScratch_Empty(t *testing.T) {
	removed, err := SweepScratch(t.TempDir(), testLogger())
	if err != nil {
		t.Fatalf("SweepScratch failed: %v", err)
	}
	if removed != 0 {
		t.Errorf("removed = %d, want 0", removed)
	}
}

func TestSweepScratch_MissingDir(t *testing.T) {
	if _, err := SweepScratch(filepath.Join(t.TempDir(), "missing"), testLogger()); err == nil {
		t.Error("SweepScratch should fail for a missing directory")
	}
}

func TestScratchUsage(t *testing.T) {
	dir := t.TempDir()

	usage, err := ScratchUsage(dir)
	if err != nil {
		t.Fatalf("ScratchUsage failed: %v", err)
	}
	if usage.Path != dir {
		t.Errorf("Path = %q, want %q", usage.Path, dir)
	}
	if usage.TotalBytes == 0 {
		t.Error("TotalBytes should be reported")
	}
	if usage.FreeBytes > usage.TotalBytes {
		t.Errorf("FreeBytes %d exceeds TotalBytes %d", usage.FreeBytes, usage.TotalBytes)
	}
}

func TestScratchUsage_NotADirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	writeFile(t, file, "x")

	if _, err := ScratchUsage(file); err == nil {
		t.Error("ScratchUsage should fail for a regular file")
	}
}
