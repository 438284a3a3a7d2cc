package schema

import "fmt"

// GateName identifies one of the fixed deterministic gates.
type GateName string

const (
	GateLint      GateName = "lint"
	GateTypecheck GateName = "typecheck"
	GateTest      GateName = "test"
)

func (g GateName) Valid() bool {
	switch g {
	case GateLint, GateTypecheck, GateTest:
		return true
	}
	return false
}

// GateStatus is the outcome of a single gate.
type GateStatus string

const (
	GatePass    GateStatus = "pass"
	GateFail    GateStatus = "fail"
	GateSkipped GateStatus = "skipped"
)

func (s GateStatus) Valid() bool {
	switch s {
	case GatePass, GateFail, GateSkipped:
		return true
	}
	return false
}

// RunMode selects the gate-enablement profile.
type RunMode string

const (
	ModeReduced RunMode = "reduced"
	ModeFull    RunMode = "full"
)

// modeAliasCanary is the legacy spelling of the reduced mode, still
// accepted on input and normalized everywhere downstream.
const modeAliasCanary = "canary"

func (m RunMode) Valid() bool {
	switch m {
	case ModeReduced, ModeFull:
		return true
	}
	return false
}

// ParseRunMode parses a mode string, accepting the canary alias.
func ParseRunMode(s string) (RunMode, error) {
	if s == modeAliasCanary {
		return ModeReduced, nil
	}
	m := RunMode(s)
	if !m.Valid() {
		return "", fmt.Errorf("invalid mode %q (expected reduced or full)", s)
	}
	return m, nil
}

// NormalizeMode maps alias spellings onto canonical mode values.
func NormalizeMode(m RunMode) RunMode {
	if string(m) == modeAliasCanary {
		return ModeReduced
	}
	return m
}

// RunStatus is the overall outcome of a gate run.
type RunStatus string

const (
	RunPass RunStatus = "pass"
	RunFail RunStatus = "fail"
)

func (s RunStatus) Valid() bool {
	switch s {
	case RunPass, RunFail:
		return true
	}
	return false
}

// Severity ranks a finding's impact.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// Confidence qualifies an inferred hint.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

func (c Confidence) Valid() bool {
	switch c {
	case ConfidenceLow, ConfidenceMedium, ConfidenceHigh:
		return true
	}
	return false
}

// ActionScope classifies the blast radius of a remediation action.
type ActionScope string

const (
	ScopeSingleFile  ActionScope = "single_file"
	ScopeMultiFile   ActionScope = "multi_file"
	ScopeCrossModule ActionScope = "cross_module"
)

func (s ActionScope) Valid() bool {
	switch s {
	case ScopeSingleFile, ScopeMultiFile, ScopeCrossModule:
		return true
	}
	return false
}

// Escalation reason codes. The first four are produced today; the rest
// are reserved for model-assisted repair strategies.
const (
	CodeNoImprovement           = "NO_IMPROVEMENT"
	CodePatchBudgetExceeded     = "PATCH_BUDGET_EXCEEDED"
	CodeUnknownBlocker          = "UNKNOWN_BLOCKER"
	CodeUnresolvedDeterministic = "UNRESOLVED_DETERMINISTIC_FAILURES"

	CodeArchitecturalChangeRequired = "ARCHITECTURAL_CHANGE_REQUIRED"
	CodeFlakyEvaluator              = "FLAKY_EVALUATOR"
	CodeEnvironmentDrift            = "ENVIRONMENT_DRIFT"
	CodeTestFixtureOrExternalDep    = "TEST_FIXTURE_OR_EXTERNAL_DEP"
)
