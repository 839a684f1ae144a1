package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"obfuscator/internal/engine"
	"obfuscator/internal/metrics"
	"obfuscator/internal/preset"
	"obfuscator/internal/wrap"
)

// ErrNotFound marks a job request referencing a staged upload that does
// not exist.
var ErrNotFound = errors.New("source file not found")

// Runner executes jobs. Concurrent jobs on different files are fully
// independent; there is no coordination between jobs targeting the same
// file beyond the filesystem itself.
type Runner struct {
	uploads  string
	outputs  string
	engine   engine.Engine
	store    *Store   // optional
	notifier Notifier // optional
	logger   *slog.Logger
}

type RunnerConfig struct {
	UploadDir string
	OutputDir string
	Engine    engine.Engine
	Store     *Store
	Notifier  Notifier
	Logger    *slog.Logger
}

func NewRunner(cfg RunnerConfig) *Runner {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Runner{
		uploads:  cfg.UploadDir,
		outputs:  cfg.OutputDir,
		engine:   cfg.Engine,
		store:    cfg.Store,
		notifier: cfg.Notifier,
		logger:   cfg.Logger,
	}
}

// Run executes one job: Received → Reading → ConfiguringPreset →
// Wrapping (optional) → Transforming → Persisting → Completed/Failed.
// Steps are strictly sequential; the first failure emits exactly one
// Failed event and no artifact is persisted. The returned error mirrors
// the Failed event for programmatic callers.
func (r *Runner) Run(ctx context.Context, req Request, sink Sink) error {
	metrics.JobsStarted.Inc()
	id := r.recordStart(ctx, req)

	path := filepath.Join(r.uploads, filepath.Base(req.File))
	if _, err := os.Stat(path); err != nil {
		return r.fail(ctx, id, sink, fmt.Errorf("%w: %s", ErrNotFound, req.File))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return r.fail(ctx, id, sink, fmt.Errorf("read %s: %w", req.File, err))
	}
	sink.Progress("Reading file", 10)

	cfg := preset.Resolve(req.Preset)
	if req.Preset != "" && !preset.Known(req.Preset) {
		r.logger.Debug("unknown preset, using default", "requested", req.Preset, "default", cfg.Name)
	}
	sink.Progress("Selecting preset", 25)

	source := string(data)
	if req.AntiBypass || req.Password != "" {
		source = wrap.Wrap(source, wrap.Options{
			AntiBypass: req.AntiBypass,
			Password:   req.Password,
		})
	}

	sink.Progress("Obfuscating", 50)
	start := time.Now()
	result, err := r.engine.Transform(ctx, source, cfg)
	metrics.EngineLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		// Engine failure messages pass through verbatim.
		return r.fail(ctx, id, sink, err)
	}

	text := result.Text()
	sink.Progress("Saving output", 90)

	name := ArtifactName(req.Prefix, time.Now())
	out := filepath.Join(r.outputs, name)
	if err := os.WriteFile(out, []byte(text), 0o644); err != nil {
		return r.fail(ctx, id, sink, fmt.Errorf("write artifact: %w", err))
	}
	metrics.ArtifactBytes.Add(int64(len(text)))
	metrics.JobsCompleted.Inc()

	r.recordFinish(ctx, id, StatusCompleted, name, "")
	r.logger.Info("job completed",
		"file", req.File,
		"preset", cfg.Name,
		"artifact", name,
		"bytes", len(text),
	)

	sink.Progress("Done", 100)
	sink.Done(name, "/download/"+name)
	r.notify(ctx, fmt.Sprintf("obfuscation finished: %s -> %s", req.File, name))
	return nil
}

func (r *Runner) fail(ctx context.Context, id string, sink Sink, err error) error {
	metrics.JobsFailed.Inc()
	r.logger.Error("job failed", "err", err)
	r.recordFinish(ctx, id, StatusFailed, "", err.Error())
	sink.Failed(err.Error())
	r.notify(ctx, "obfuscation failed: "+err.Error())
	return err
}

func (r *Runner) recordStart(ctx context.Context, req Request) string {
	if r.store == nil {
		return ""
	}
	id, err := r.store.Create(ctx, req)
	if err != nil {
		r.logger.Warn("cannot record job start", "err", err)
		return ""
	}
	return id
}

func (r *Runner) recordFinish(ctx context.Context, id, status, artifact, errMsg string) {
	if r.store == nil || id == "" {
		return
	}
	if err := r.store.Finish(ctx, id, status, artifact, errMsg); err != nil {
		r.logger.Warn("cannot record job finish", "id", id, "err", err)
	}
}

func (r *Runner) notify(ctx context.Context, text string) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.Notify(ctx, text); err != nil {
		r.logger.Warn("notification failed", "err", err)
	}
}
