package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"obfuscator/internal/preset"
)

const defaultMaxOutputBytes = 16 << 20

// ExecEngine invokes an external obfuscation command. The option record is
// passed JSON-encoded via --options, source text on stdin; the transformed
// output is read from stdout. Engine failure messages (stderr) are surfaced
// verbatim.
type ExecEngine struct {
	command   string
	args      []string
	timeout   time.Duration // 0 = no timeout, a hung engine blocks its job
	maxOutput int
	logger    *slog.Logger
}

type ExecConfig struct {
	Command        string
	Args           []string
	Timeout        time.Duration
	MaxOutputBytes int
	Logger         *slog.Logger
}

func NewExec(cfg ExecConfig) *ExecEngine {
	if cfg.MaxOutputBytes <= 0 {
		cfg.MaxOutputBytes = defaultMaxOutputBytes
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &ExecEngine{
		command:   cfg.Command,
		args:      cfg.Args,
		timeout:   cfg.Timeout,
		maxOutput: cfg.MaxOutputBytes,
		logger:    cfg.Logger,
	}
}

func (e *ExecEngine) Transform(ctx context.Context, source string, cfg preset.Config) (Result, error) {
	if e.command == "" {
		return Result{}, errors.New("engine command not configured")
	}

	options, err := json.Marshal(OptionRecord(cfg))
	if err != nil {
		return Result{}, fmt.Errorf("encode engine options: %w", err)
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	args := append(append([]string{}, e.args...), "--options", string(options))
	cmd := exec.CommandContext(ctx, e.command, args...)
	cmd.Stdin = strings.NewReader(source)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	e.logger.Debug("engine invoked",
		"command", e.command,
		"preset", cfg.Name,
		"duration", time.Since(start),
		"err", runErr,
	)

	if runErr != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = runErr.Error()
		}
		return Result{}, errors.New(msg)
	}

	out := stdout.Bytes()
	if len(out) > e.maxOutput {
		return Result{}, fmt.Errorf("engine output exceeds %d bytes", e.maxOutput)
	}
	return Parse(bytes.TrimSpace(out)), nil
}

// OptionRecord flattens a preset configuration into the single JSON record
// the engine consumes: the raw options, the lock policy under "lock", and
// the identifier policy descriptor under "identifierNames". An in-process
// engine would call cfg.Names.Generate directly instead.
func OptionRecord(cfg preset.Config) map[string]any {
	record := make(map[string]any, len(cfg.Options)+2)
	for k, v := range cfg.Options {
		record[k] = v
	}
	if cfg.Lock != nil {
		record["lock"] = cfg.Lock
	}
	if cfg.Names != nil {
		record["identifierNames"] = cfg.Names.Describe()
	}
	return record
}
