package api

type (
	// ScriptParams describes one sandboxed script invocation
	ScriptParams struct {
		Data           map[string]any `json:"data,omitempty"`
		Helpers        map[string]any `json:"helpers,omitempty"`
		Context        ScriptContext  `json:"context"`
		Language       string         `json:"language"`
		Code           string         `json:"code"`
		InputKeys      []string       `json:"input_keys,omitempty"`
		TimeoutMs      int64          `json:"timeout_ms,omitempty"`
		ConsoleEnabled bool           `json:"console_enabled,omitempty"`
	}

	// ScriptContext is the read-only execution context exposed to scripts
	ScriptContext struct {
		WorkflowID string `json:"workflow_id"`
		RunID      string `json:"run_id"`
		Phase      string `json:"phase"`
	}

	// ScriptResult is the in-band outcome of a script invocation. Script
	// execution never raises; every failure is reported here
	ScriptResult struct {
		Output      any     `json:"output,omitempty"`
		Error       string  `json:"error,omitempty"`
		ConsoleLogs [][]any `json:"console_logs,omitempty"`
		DurationMs  int64   `json:"duration_ms"`
		OK          bool    `json:"ok"`
	}

	// ScriptValidation is the static-only authoring-time check result
	ScriptValidation struct {
		Errors   []string `json:"errors,omitempty"`
		Warnings []string `json:"warnings,omitempty"`
		Valid    bool     `json:"valid"`
	}
)

const (
	ScriptLangJS     = "javascript"
	ScriptLangPython = "python"
)
