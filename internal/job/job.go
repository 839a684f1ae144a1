// Package job runs one obfuscation job end to end: read the staged upload,
// resolve the preset, apply the optional code wrapping, call the external
// engine, and persist the artifact, reporting progress at fixed milestones.
package job

import (
	"context"
	"fmt"
	"regexp"
	"time"
)

// Request describes one job start. It is consumed synchronously by a single
// Runner.Run call and never persisted.
type Request struct {
	File       string `json:"file"`                 // staged upload name
	Preset     string `json:"preset,omitempty"`     // empty = baseline
	Password   string `json:"password,omitempty"`   // empty = no gate
	AntiBypass bool   `json:"antibypass,omitempty"`
	Prefix     string `json:"prefix,omitempty"`     // artifact name prefix
}

// Sink receives the progress sequence for one job. Percent values are
// non-decreasing; exactly one of Done or Failed terminates the sequence.
type Sink interface {
	Progress(status string, percent int)
	Done(filename, download string)
	Failed(message string)
}

// Notifier delivers out-of-band terminal-event notices. Failures are the
// notifier's problem; they never affect the job.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

const defaultPrefix = "obfuscated"

var prefixClean = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// ArtifactName builds the output filename from a prefix and the current
// time. Uniqueness relies on millisecond granularity plus the prefix: two
// jobs with the same prefix in the same millisecond collide and the later
// write wins. Known limitation, kept deliberately.
func ArtifactName(prefix string, now time.Time) string {
	prefix = prefixClean.ReplaceAllString(prefix, "")
	if prefix == "" {
		prefix = defaultPrefix
	}
	return fmt.Sprintf("%s_%d.js", prefix, now.UnixMilli())
}
