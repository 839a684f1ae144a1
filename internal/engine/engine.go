// Package engine is the boundary to the external code-transformation
// engine. The engine itself is opaque: code plus an option record in,
// transformed code (in one of a few shapes) or an error out.
package engine

import (
	"context"
	"encoding/json"

	"obfuscator/internal/preset"
)

// Engine transforms source code according to a resolved preset
// configuration.
type Engine interface {
	Transform(ctx context.Context, source string, cfg preset.Config) (Result, error)
}

// Func adapts a plain function to the Engine interface.
type Func func(ctx context.Context, source string, cfg preset.Config) (Result, error)

func (f Func) Transform(ctx context.Context, source string, cfg preset.Config) (Result, error) {
	return f(ctx, source, cfg)
}

// ResultKind tags the shape an engine returned its output in.
type ResultKind int

const (
	// PlainText: the engine returned the transformed code directly.
	PlainText ResultKind = iota
	// StructuredWithCode: the engine returned a structure exposing a
	// "code" text field.
	StructuredWithCode
	// Opaque: the engine returned a structure with no recognizable code
	// field; the whole structure is kept as serialized text.
	Opaque
)

// Result is the engine's output, normalized into a tagged variant instead
// of duck-typed probing at the call site.
type Result struct {
	Kind ResultKind
	Code string          // PlainText and StructuredWithCode
	Raw  json.RawMessage // original structure for StructuredWithCode and Opaque
}

// Text returns the result as plain text: the code for the text-bearing
// kinds, or the serialized structure as a last resort.
func (r Result) Text() string {
	switch r.Kind {
	case PlainText, StructuredWithCode:
		return r.Code
	default:
		if len(r.Raw) > 0 {
			return string(r.Raw)
		}
		return r.Code
	}
}

// Parse classifies raw engine output into a Result. A JSON object with a
// string "code" field is StructuredWithCode; any other JSON object is
// Opaque; everything else is PlainText.
func Parse(output []byte) Result {
	trimmed := json.RawMessage(nil)
	s := string(output)
	if len(output) > 0 && output[0] == '{' {
		var obj map[string]any
		if err := json.Unmarshal(output, &obj); err == nil {
			trimmed = append(trimmed, output...)
			if code, ok := obj["code"].(string); ok {
				return Result{Kind: StructuredWithCode, Code: code, Raw: trimmed}
			}
			return Result{Kind: Opaque, Raw: trimmed}
		}
	}
	return Result{Kind: PlainText, Code: s}
}
