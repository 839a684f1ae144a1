// Package wrap applies the deterministic pre-engine source transformations:
// the anti-bypass guard and the password gate. Both are cosmetic code
// wrapping, not a security boundary — the password in particular is only
// base64-encoded, and anyone reading the wrapped source before the engine
// runs can trivially recover it.
package wrap

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// Options selects which wrapping steps to apply.
type Options struct {
	AntiBypass bool
	Password   string // empty = no password gate
}

// Wrap composes the requested steps around source. The password gate wraps
// the payload so nothing guarded executes before verification; the
// anti-bypass guard is a separate top-level block placed before the gate so
// it runs unconditionally from process start, whatever the prompt outcome.
// The original source appears verbatim inside the result.
func Wrap(source string, opts Options) string {
	out := source
	if opts.Password != "" {
		out = PasswordGate(out, opts.Password)
	}
	if opts.AntiBypass {
		out = AntiBypassGuard("") + "\n" + out
	}
	return out
}

// AntiBypassGuard returns the guard block: it snapshots the entry file's
// bytes at startup, re-reads the file every 5 seconds and aborts on any
// difference, and aborts immediately if axios interceptors are already
// registered, then freezes axios against further registration. entryPath
// overrides the file to watch; empty means the running script resolves
// itself. The block is emitted as plain code — the engine may still
// transform it, this layer does not.
func AntiBypassGuard(entryPath string) string {
	entry := "process.argv[1] || __filename"
	if entryPath != "" {
		entry = fmt.Sprintf("%q", entryPath)
	}
	return strings.ReplaceAll(guardTemplate, "__ENTRY__", entry)
}

const guardTemplate = `(function () {
  var fs = require('fs');
  var path = require('path');
  var entry = path.resolve(__ENTRY__);
  var snapshot;
  try {
    snapshot = fs.readFileSync(entry, 'utf8');
  } catch (err) {
    process.exit(1);
  }
  setInterval(function () {
    try {
      if (fs.readFileSync(entry, 'utf8') !== snapshot) {
        process.exit(1);
      }
    } catch (err) {
      process.exit(1);
    }
  }, 5000);
  try {
    var axios = require('axios');
    if (axios.interceptors.request.handlers.length > 0 ||
        axios.interceptors.response.handlers.length > 0) {
      process.exit(1);
    }
    Object.freeze(axios.interceptors);
    Object.freeze(axios);
  } catch (err) {
    // axios not installed, nothing to inspect
  }
})();`

// PasswordGate wraps payload in an interactive stdin prompt. The plaintext
// is stored base64-encoded in the emitted code, decoded at runtime, and
// compared exactly against the entered value; a mismatch exits with a
// non-zero status without executing the payload.
func PasswordGate(payload, password string) string {
	encoded := base64.StdEncoding.EncodeToString([]byte(password))
	var b strings.Builder
	b.WriteString("var __gate_rl = require('readline').createInterface({ input: process.stdin, output: process.stdout });\n")
	b.WriteString("var __gate_expected = Buffer.from('" + encoded + "', 'base64').toString('utf8');\n")
	b.WriteString("__gate_rl.question('Password: ', function (__gate_answer) {\n")
	b.WriteString("  __gate_rl.close();\n")
	b.WriteString("  if (__gate_answer !== __gate_expected) {\n")
	b.WriteString("    console.error('Access denied');\n")
	b.WriteString("    process.exit(1);\n")
	b.WriteString("  }\n")
	b.WriteString("  (function () {\n")
	b.WriteString(payload)
	b.WriteString("\n  })();\n")
	b.WriteString("});")
	return b.String()
}
