package sweep

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func writeAged(t *testing.T, dir, name string, age time.Duration) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	stamp := time.Now().Add(-age)
	if err := os.Chtimes(path, stamp, stamp); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSweep_RemovesOnlyStaleFiles(t *testing.T) {
	uploads := t.TempDir()
	outputs := t.TempDir()

	old1 := writeAged(t, uploads, "old.js", 8*24*time.Hour)
	old2 := writeAged(t, outputs, "old_artifact.js", 30*24*time.Hour)
	fresh := writeAged(t, uploads, "fresh.js", time.Hour)

	s := New(Config{
		Dirs:          []string{uploads, outputs},
		RetentionDays: 7,
		Logger:        testLogger(),
	})

	if removed := s.Sweep(); removed != 2 {
		t.Errorf("removed %d files, want 2", removed)
	}
	for _, path := range []string{old1, old2} {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("%s still exists", path)
		}
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Errorf("fresh file removed: %v", err)
	}
}

func TestSweep_SkipsDirectories(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	stamp := time.Now().Add(-30 * 24 * time.Hour)
	os.Chtimes(sub, stamp, stamp)

	s := New(Config{Dirs: []string{dir}, Logger: testLogger()})
	if removed := s.Sweep(); removed != 0 {
		t.Errorf("removed %d, want 0", removed)
	}
	if _, err := os.Stat(sub); err != nil {
		t.Errorf("subdirectory removed: %v", err)
	}
}

func TestSweep_MissingDirectoryTolerated(t *testing.T) {
	dir := t.TempDir()
	writeAged(t, dir, "old.js", 8*24*time.Hour)

	s := New(Config{
		Dirs:   []string{filepath.Join(dir, "nope"), dir},
		Logger: testLogger(),
	})
	// The broken directory is logged and skipped; the good one still sweeps.
	if removed := s.Sweep(); removed != 1 {
		t.Errorf("removed %d, want 1", removed)
	}
}

func TestStart_RunsInitialSweepAndStopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	old := writeAged(t, dir, "old.js", 8*24*time.Hour)

	s := New(Config{
		Dirs:     []string{dir},
		Interval: time.Hour,
		Logger:   testLogger(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	deadline := time.After(5 * time.Second)
	for {
		if _, err := os.Stat(old); os.IsNotExist(err) {
			break
		}
		select {
		case <-deadline:
			t.Fatal("initial sweep never removed the stale file")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}

func TestNew_Defaults(t *testing.T) {
	s := New(Config{})
	if s.maxAge != 7*24*time.Hour {
		t.Errorf("maxAge = %v", s.maxAge)
	}
	if s.interval != 24*time.Hour {
		t.Errorf("interval = %v", s.interval)
	}
}
