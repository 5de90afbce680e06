package script

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// pythonEnv executes Python in a fresh subprocess per call. The host
// enforces the timeout by killing the process; there is no in-process
// parser, so static validation can only warn
type pythonEnv struct {
	bin string
}

const (
	defaultPythonBin = "python3"

	pyConsoleMarker = "@@vellum:console@@"
	pyEmitMarker    = "@@vellum:emit@@"
)

var (
	ErrPythonStart  = errors.New("python interpreter failed to start")
	ErrPythonOutput = errors.New("malformed python output record")

	pyMissingEmitWarning = "Script does not appear to call emit(); " +
		"finishing without emitting is a runtime error"
)

// pythonBootstrap runs ahead of the user code in the same module scope,
// binding input, context, helpers, console, and emit. User code follows
// at top level, so indentation is preserved exactly as authored
const pythonBootstrap = `import json as _json
import sys as _sys
import math as _math
import datetime as _dt
from types import SimpleNamespace as _SimpleNamespace

_payload = _json.loads(_sys.stdin.read())
input = _payload["input"]
context = _payload["context"]

def _h_upper(s):
    return str(s).upper()

def _h_lower(s):
    return str(s).lower()

def _h_trim(s):
    return str(s).strip()

def _h_title_case(s):
    return " ".join(w[:1].upper() + w[1:] for w in str(s).lower().split())

def _h_round(n, places):
    factor = 10 ** places
    return _math.floor(n * factor + 0.5) / factor

def _h_to_fixed(n, places):
    return ("%." + str(places) + "f") % n

def _h_today_iso():
    return _dt.datetime.utcnow().strftime("%Y-%m-%d")

_helpers = {
    "upper": _h_upper,
    "lower": _h_lower,
    "trim": _h_trim,
    "titleCase": _h_title_case,
    "round": _h_round,
    "toFixed": _h_to_fixed,
    "todayISO": _h_today_iso,
}
_helpers.update(_payload.get("helpers") or {})
helpers = _SimpleNamespace(**_helpers)

def _write_record(tag, value):
    _sys.stdout.write(tag + _json.dumps(value, default=str) + "\n")
    _sys.stdout.flush()

class _Console(object):
    def log(self, *args):
        _write_record("` + pyConsoleMarker + `", list(args))
    warn = log
    error = log

console = _Console()

def emit(value):
    _write_record("` + pyEmitMarker + `", value)
`

func newPythonEnv() *pythonEnv {
	return newPythonEnvWithBin(defaultPythonBin)
}

func newPythonEnvWithBin(bin string) *pythonEnv {
	return &pythonEnv{bin: bin}
}

func (e *pythonEnv) Run(
	ctx context.Context, inv *invocation,
) (*outcome, error) {
	payload, err := json.Marshal(map[string]any{
		"input":   inv.input,
		"context": inv.context,
		"helpers": inv.helpers,
	})
	if err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp("", "vellum-py-")
	if err != nil {
		return nil, err
	}
	defer func() { _ = os.RemoveAll(dir) }()

	path := filepath.Join(dir, "script.py")
	source := pythonBootstrap + "\n" + inv.code + "\n"
	if err := os.WriteFile(path, []byte(source), 0o600); err != nil {
		return nil, err
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.bin, path)
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = interruptGrace

	runErr := cmd.Run()
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if runErr != nil {
		if errors.Is(runErr, exec.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrPythonStart, e.bin)
		}
		return nil, errors.New(pythonFailure(stderr.String(), runErr))
	}

	return e.collect(stdout.String(), inv)
}

// Check cannot parse Python in-process; it warns when no textual emit
// call is present rather than rejecting
func (e *pythonEnv) Check(code string) ([]string, error) {
	if !strings.Contains(code, "emit(") {
		return []string{pyMissingEmitWarning}, nil
	}
	return nil, nil
}

// collect parses the marker records the bootstrap wrote to stdout. Plain
// prints from user code carry no marker and are ignored
func (e *pythonEnv) collect(
	stdout string, inv *invocation,
) (*outcome, error) {
	out := &outcome{}
	for _, line := range strings.Split(stdout, "\n") {
		if rest, ok := strings.CutPrefix(line, pyEmitMarker); ok {
			var value any
			if err := json.Unmarshal([]byte(rest), &value); err != nil {
				return nil, fmt.Errorf("%w: %s", ErrPythonOutput, err)
			}
			out.value = value
			out.emitCount++
			continue
		}
		if rest, ok := strings.CutPrefix(line, pyConsoleMarker); ok {
			if inv.console == nil {
				continue
			}
			var args []any
			if err := json.Unmarshal([]byte(rest), &args); err != nil {
				return nil, fmt.Errorf("%w: %s", ErrPythonOutput, err)
			}
			inv.console.record(args)
		}
	}
	return out, nil
}

// pythonFailure extracts the "<kind>: <message>" line that ends a Python
// traceback, falling back to the process error
func pythonFailure(stderr string, runErr error) string {
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line != "" {
			return line
		}
	}
	return fmt.Sprintf("python execution failed: %s", runErr)
}
