// Package sweep removes stale files from the working directories on an
// interval.
package sweep

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"obfuscator/internal/metrics"
)

const restartDelay = 5 * time.Second

// Sweeper deletes files older than the retention cutoff from its
// directories. It runs once at start and then on every interval tick.
// Per-file errors are logged and skipped; they never stop the sweep.
type Sweeper struct {
	dirs     []string
	maxAge   time.Duration
	interval time.Duration
	logger   *slog.Logger
}

type Config struct {
	Dirs          []string
	RetentionDays int
	Interval      time.Duration
	Logger        *slog.Logger
}

func New(cfg Config) *Sweeper {
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = 7
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 24 * time.Hour
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Sweeper{
		dirs:     cfg.Dirs,
		maxAge:   time.Duration(cfg.RetentionDays) * 24 * time.Hour,
		interval: cfg.Interval,
		logger:   cfg.Logger,
	}
}

// Start blocks until ctx is done. The sweep loop is supervised: a panic is
// recovered, logged, and the loop restarted, so cleanup never silently
// stops for the life of the process.
func (s *Sweeper) Start(ctx context.Context) {
	for {
		s.loop(ctx)
		if ctx.Err() != nil {
			return
		}
		s.logger.Error("sweep loop exited unexpectedly, restarting")
		select {
		case <-ctx.Done():
			return
		case <-time.After(restartDelay):
		}
	}
}

func (s *Sweeper) loop(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("sweep panic", "panic", r)
		}
	}()

	s.Sweep()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Sweep runs one pass over all directories and returns the number of files
// removed.
func (s *Sweeper) Sweep() int {
	cutoff := time.Now().Add(-s.maxAge)
	removed := 0
	for _, dir := range s.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			s.logger.Warn("sweep: cannot read directory", "dir", dir, "err", err)
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				s.logger.Warn("sweep: cannot stat file", "file", entry.Name(), "err", err)
				continue
			}
			if info.ModTime().After(cutoff) {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			if err := os.Remove(path); err != nil {
				s.logger.Warn("sweep: cannot remove file", "file", path, "err", err)
				continue
			}
			removed++
			metrics.SweepDeletes.Inc()
			s.logger.Info("sweep: removed stale file", "file", path, "age", time.Since(info.ModTime()).Round(time.Hour))
		}
	}
	return removed
}
