// Package preset holds the fixed catalog of named engine configurations.
// Presets are defined at process start and never mutated; Resolve hands out
// copies so callers cannot corrupt the registry.
package preset

// LockPolicy bundles the four runtime guards a preset can request from the
// engine. The toggles are independent; there is no ordering between them.
type LockPolicy struct {
	SelfDefending    bool `json:"selfDefending"`
	AntiDebug        bool `json:"antiDebug"`
	IntegrityCheck   bool `json:"integrityCheck"`
	TamperProtection bool `json:"tamperProtection"`
}

// Config is one resolved engine configuration: the raw option record plus
// the optional lock policy and identifier naming capability. Options always
// carry a "target" entry; unknown keys are the engine's problem, not ours.
type Config struct {
	Name    string
	Options map[string]any
	Lock    *LockPolicy
	Names   NameGenerator
}

// DefaultName is the baseline preset applied when a request names no
// preset, or names one the registry does not know.
const DefaultName = "ultra-safe"

var registry = map[string]func() Config{
	"ultra-safe": ultraSafe,
	"nova":       nova,
	"nebula":     nebula,
	"arab":       arab,
	"japan":      japan,
	"japan-arab": japanArab,
}

// Resolve returns the configuration for name. Unknown or empty names fall
// back to the ultra-safe baseline; resolution never fails a job. Note that
// this swallows typos ("novva" silently becomes ultra-safe) — kept on
// purpose to match the upload protocol's behavior.
func Resolve(name string) Config {
	if build, ok := registry[name]; ok {
		return build()
	}
	return registry[DefaultName]()
}

// Known reports whether name is a registered preset.
func Known(name string) bool {
	_, ok := registry[name]
	return ok
}

// Names lists all registered preset names, unordered.
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	return out
}

func fullLock() *LockPolicy {
	return &LockPolicy{
		SelfDefending:    true,
		AntiDebug:        true,
		IntegrityCheck:   true,
		TamperProtection: true,
	}
}

// baseOptions is the shared option record: a maximal safe feature set
// favoring compactness and output correctness, with the aggressive
// transforms off.
func baseOptions() map[string]any {
	return map[string]any{
		"target":                  "node",
		"compact":                 true,
		"simplify":                true,
		"renameGlobals":           false,
		"stringArray":             true,
		"stringArrayThreshold":    0.75,
		"splitStrings":            true,
		"splitStringsChunkLength": 10,
		"numbersToExpressions":    true,
		"transformObjectKeys":     true,
		"deadCodeInjection":       false,
		"controlFlowFlattening":   false,
		"unicodeEscapeSequence":   false,
	}
}

func ultraSafe() Config {
	return Config{
		Name:    "ultra-safe",
		Options: baseOptions(),
	}
}

func nova() Config {
	opts := baseOptions()
	opts["controlFlowFlattening"] = true
	opts["controlFlowFlatteningThreshold"] = 0.75
	opts["deadCodeInjection"] = true
	opts["deadCodeInjectionThreshold"] = 0.4
	return Config{
		Name:    "nova",
		Options: opts,
		Lock:    fullLock(),
		Names:   VarNames(),
	}
}

func nebula() Config {
	opts := baseOptions()
	opts["controlFlowFlattening"] = true
	opts["controlFlowFlatteningThreshold"] = 0.75
	// Riskier: may hurt performance or even correctness of the output.
	// Advisory only; the engine decides what to do with it.
	opts["recursiveFunctions"] = true
	return Config{
		Name:    "nebula",
		Options: opts,
		Lock:    fullLock(),
		Names:   LetterPairNames(),
	}
}

func arab() Config {
	return Config{
		Name:    "arab",
		Options: baseOptions(),
		Lock:    fullLock(),
		Names:   ArabicNames(),
	}
}

func japan() Config {
	return Config{
		Name:    "japan",
		Options: baseOptions(),
		Lock:    fullLock(),
		Names:   KanaNames(),
	}
}

func japanArab() Config {
	return Config{
		Name:    "japan-arab",
		Options: baseOptions(),
		Lock:    fullLock(),
		Names:   MixedNames(),
	}
}
