package config

// Policy holds the repair-loop budgets. Immutable per run.
type Policy struct {
	MaxAttempts          int `yaml:"max_attempts" toml:"max_attempts" json:"max_attempts"`
	MaxPatchLines        int `yaml:"max_patch_lines" toml:"max_patch_lines" json:"max_patch_lines"`
	AbortOnNoImprovement int `yaml:"abort_on_no_improvement" toml:"abort_on_no_improvement" json:"abort_on_no_improvement"`
	TimeCapSeconds       int `yaml:"time_cap_seconds" toml:"time_cap_seconds" json:"time_cap_seconds"`
}

// Gates holds gate-enablement flags.
type Gates struct {
	TestInReduced bool `yaml:"test_in_reduced" toml:"test_in_reduced" json:"test_in_reduced"`
}

// Config is the merged configuration: explicit gatewright.yaml over the
// pyproject [tool.gatewright] section over built-in defaults.
type Config struct {
	Policy   Policy
	Commands map[string]string // per-gate command overrides, keyed by gate name
	Gates    Gates
	Source   string // path of the winning config file, or "defaults"
}

// DefaultPolicy returns the built-in repair budgets.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:          3,
		MaxPatchLines:        150,
		AbortOnNoImprovement: 2,
		TimeCapSeconds:       1200,
	}
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Policy:   DefaultPolicy(),
		Commands: map[string]string{},
		Gates:    Gates{},
		Source:   "defaults",
	}
}

// fileConfig is the on-disk shape. Pointer fields distinguish "not set"
// from explicit zeros so partial files merge onto defaults correctly.
type fileConfig struct {
	Policy   filePolicy        `yaml:"policy" toml:"policy"`
	Commands map[string]string `yaml:"commands" toml:"commands"`
	Gates    fileGates         `yaml:"gates" toml:"gates"`
}

type filePolicy struct {
	MaxAttempts          *int `yaml:"max_attempts" toml:"max_attempts"`
	MaxPatchLines        *int `yaml:"max_patch_lines" toml:"max_patch_lines"`
	AbortOnNoImprovement *int `yaml:"abort_on_no_improvement" toml:"abort_on_no_improvement"`
	TimeCapSeconds       *int `yaml:"time_cap_seconds" toml:"time_cap_seconds"`
}

type fileGates struct {
	TestInReduced *bool `yaml:"test_in_reduced" toml:"test_in_reduced"`
}

// empty reports whether the file sets no recognized option at all. An
// empty [tool.gatewright] table falls through to defaults.
func (f *fileConfig) empty() bool {
	return f.Policy.MaxAttempts == nil &&
		f.Policy.MaxPatchLines == nil &&
		f.Policy.AbortOnNoImprovement == nil &&
		f.Policy.TimeCapSeconds == nil &&
		len(f.Commands) == 0 &&
		f.Gates.TestInReduced == nil
}
