package api

type (
	// RunStatus is the terminal status of one graph execution
	RunStatus string

	// StepStatus records whether a node executed or was skipped
	StepStatus string

	// LineageSource identifies the kind of node that produced a variable
	LineageSource string

	// StepTrace records the outcome of one node during a debug run
	StepTrace struct {
		ConditionResult *bool      `json:"condition_result,omitempty"`
		OutputsDelta    Vars       `json:"outputs_delta,omitempty"`
		NodeID          NodeID     `json:"node_id"`
		Status          StepStatus `json:"status"`
		SkippedReason   string     `json:"skipped_reason,omitempty"`
	}

	// LineageEntry records which node produced a variable and how.
	// Written exactly once, at first assignment
	LineageEntry struct {
		SourceType      LineageSource `json:"source_type"`
		CreatedByNodeID NodeID        `json:"created_by_node_id"`
	}

	// VariableLineage maps each variable to its producing node
	VariableLineage map[Name]*LineageEntry

	// RunResult is the outcome of one graph execution. It is owned by the
	// run invocation and never shared across runs
	RunResult struct {
		Vars    Vars            `json:"vars"`
		Lineage VariableLineage `json:"lineage,omitempty"`
		Status  RunStatus       `json:"status"`
		Error   string          `json:"error,omitempty"`
		Trace   []*StepTrace    `json:"trace,omitempty"`
		Logs    []string        `json:"logs"`
	}

	// BoundTemplate is a template node's resolved binding map, handed to
	// the external document-rendering collaborator
	BoundTemplate struct {
		Values     map[Name]any `json:"values"`
		TemplateID string       `json:"template_id"`
		NodeID     NodeID       `json:"node_id"`
	}
)

const (
	RunSuccess RunStatus = "success"
	RunError   RunStatus = "error"

	StepExecuted StepStatus = "executed"
	StepSkipped  StepStatus = "skipped"

	LineageQuestion LineageSource = "question"
	LineageCompute  LineageSource = "compute"
	LineageScript   LineageSource = "script"
	LineageWrite    LineageSource = "write"
	LineageQuery    LineageSource = "query"
)
