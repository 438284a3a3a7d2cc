// Package schema defines the artifact contracts shared by the run,
// summarize, and repair phases. Every struct here serializes to the
// on-disk JSON artifacts under .gatewright/; field order matches the
// artifact layout.
package schema

// PayloadVersion is the schema version stamped into FailuresPayload.
const PayloadVersion = "1.0.0"

// CommandTrace records one external command invocation. Immutable once
// created.
type CommandTrace struct {
	Command    string `json:"command"`
	Cwd        string `json:"cwd"`
	StartedAt  string `json:"started_at"`
	DurationMs int    `json:"duration_ms"`
	ExitCode   int    `json:"exit_code"`
	TimedOut   bool   `json:"timed_out"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
}

// GateResult is the outcome of a single gate within a run.
type GateResult struct {
	Name       GateName   `json:"name"`
	Status     GateStatus `json:"status"`
	DurationMs int        `json:"duration_ms"`
}

// Finding is one normalized defect instance. The id is deterministic
// across re-runs of the same underlying diagnostic. Actual and Threshold
// hold either a number or a string depending on the gate.
type Finding struct {
	ID        string         `json:"id"`
	Gate      GateName       `json:"gate"`
	Severity  Severity       `json:"severity"`
	Summary   string         `json:"summary"`
	Files     []string       `json:"files"`
	Rule      *string        `json:"rule"`
	Line      *int           `json:"line"`
	Column    *int           `json:"column"`
	Actual    any            `json:"actual"`
	Threshold any            `json:"threshold"`
	Status    string         `json:"status"`
	Raw       map[string]any `json:"raw"`
}

// InferredHint is a low-confidence remediation pointer attached to a
// finding.
type InferredHint struct {
	FindingID  string     `json:"finding_id"`
	Hint       string     `json:"hint"`
	Confidence Confidence `json:"confidence"`
}

// FailuresPayload is the run snapshot: the interchange contract between
// the run, repair, and summarize phases. It is replaced wholesale by
// each re-measurement, never merged.
type FailuresPayload struct {
	Version       string         `json:"version"`
	RunID         string         `json:"run_id"`
	Mode          RunMode        `json:"mode"`
	Status        RunStatus      `json:"status"`
	Timestamp     string         `json:"timestamp"`
	Repo          *string        `json:"repo"`
	Branch        *string        `json:"branch"`
	ChangedFiles  []string       `json:"changed_files"`
	Gates         []GateResult   `json:"gates"`
	Findings      []Finding      `json:"findings"`
	InferredHints []InferredHint `json:"inferred_hints"`
}

// EnvironmentInfo is the environment fingerprint captured per run.
type EnvironmentInfo struct {
	PythonVersion     string            `json:"python_version"`
	Platform          string            `json:"platform"`
	Virtualenv        *string           `json:"virtualenv"`
	Resolver          *string           `json:"resolver"`
	InstalledPackages map[string]string `json:"installed_packages"`
}

// RunMetadata records run identity, timing, and the full command-trace
// list for one gate run.
type RunMetadata struct {
	RunID         string          `json:"run_id"`
	Mode          RunMode         `json:"mode"`
	StartedAt     string          `json:"started_at"`
	CompletedAt   string          `json:"completed_at"`
	DurationMs    int             `json:"duration_ms"`
	ConfigSource  string          `json:"config_source"`
	Environment   EnvironmentInfo `json:"environment"`
	CommandTraces []CommandTrace  `json:"command_traces"`
}

// PriorityAction is one remediation step in the agent brief.
type PriorityAction struct {
	FindingID   string      `json:"finding_id"`
	Action      string      `json:"action"`
	Scope       ActionScope `json:"scope"`
	TargetFiles []string    `json:"target_files"`
	Rationale   string      `json:"rationale"`
}

// RetryPolicy echoes the repair budgets into the agent brief.
type RetryPolicy struct {
	MaxAttempts          int `json:"max_attempts"`
	MaxPatchLines        int `json:"max_patch_lines"`
	AbortOnNoImprovement int `json:"abort_on_no_improvement"`
}

// EscalationInfo flags whether the brief's findings require escalation.
type EscalationInfo struct {
	Required   bool    `json:"required"`
	ReasonCode *string `json:"reason_code"`
	Message    *string `json:"message"`
}

// AgentBrief is the Summarizer's structured output.
type AgentBrief struct {
	RunID           string           `json:"run_id"`
	Mode            RunMode          `json:"mode"`
	Status          RunStatus        `json:"status"`
	Summary         string           `json:"summary"`
	PriorityActions []PriorityAction `json:"priority_actions"`
	RetryPolicy     RetryPolicy      `json:"retry_policy"`
	Escalation      *EscalationInfo  `json:"escalation"`
}

// FixAction records one deterministic remediation command.
type FixAction struct {
	RuleID    string   `json:"rule_id"`
	Strategy  string   `json:"strategy"`
	Accepted  bool     `json:"accepted"`
	Command   string   `json:"command"`
	ExitCode  int      `json:"exit_code"`
	Files     []string `json:"files"`
	Rationale string   `json:"rationale"`
}

// RepairAttempt is one checkpoint → fix → re-measure cycle. The ordered
// attempt list is the definitive audit trail of a repair session.
type RepairAttempt struct {
	Attempt        int         `json:"attempt"`
	PatchLines     int         `json:"patch_lines"`
	BeforeFindings int         `json:"before_findings"`
	AfterFindings  int         `json:"after_findings"`
	Improved       bool        `json:"improved"`
	Worsened       bool        `json:"worsened"`
	Status         string      `json:"status"`
	Actions        []FixAction `json:"actions"`
}

// RepairReport is written only on convergence.
type RepairReport struct {
	Status   string          `json:"status"`
	Attempts []RepairAttempt `json:"attempts"`
}

// Escalation is the terminal failure-to-converge record, written once
// per repair session that cannot clear its findings within policy.
type Escalation struct {
	Status     string         `json:"status"`
	ReasonCode string         `json:"reason_code"`
	Message    string         `json:"message"`
	Evidence   map[string]any `json:"evidence"`
}

// NewEscalation builds an escalation with the fixed terminal status.
func NewEscalation(reasonCode, message string, evidence map[string]any) *Escalation {
	if evidence == nil {
		evidence = map[string]any{}
	}
	return &Escalation{
		Status:     "escalated",
		ReasonCode: reasonCode,
		Message:    message,
		Evidence:   evidence,
	}
}

// StringPtr returns a pointer to s, or nil when s is empty. Artifact
// fields that distinguish absent from empty use pointer types.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// IntPtr returns a pointer to n.
func IntPtr(n int) *int {
	return &n
}
