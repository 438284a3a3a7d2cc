package config

import "fmt"

// ValidationError represents a single validation issue with a config.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// recognizedGates is the set of gate names a command override may target.
var recognizedGates = map[string]bool{
	"lint":      true,
	"typecheck": true,
	"test":      true,
}

// Validate checks a merged Config for semantic errors. It returns a
// slice of all validation errors found (empty if valid).
func Validate(cfg *Config) []ValidationError {
	var errs []ValidationError

	if cfg.Policy.MaxAttempts < 1 {
		errs = append(errs, ValidationError{
			Field:   "policy.max_attempts",
			Message: "must be at least 1",
		})
	}
	if cfg.Policy.MaxPatchLines < 0 {
		errs = append(errs, ValidationError{
			Field:   "policy.max_patch_lines",
			Message: "must not be negative",
		})
	}
	if cfg.Policy.AbortOnNoImprovement < 1 {
		errs = append(errs, ValidationError{
			Field:   "policy.abort_on_no_improvement",
			Message: "must be at least 1",
		})
	}
	if cfg.Policy.TimeCapSeconds < 0 {
		errs = append(errs, ValidationError{
			Field:   "policy.time_cap_seconds",
			Message: "must not be negative",
		})
	}

	for gate, command := range cfg.Commands {
		if !recognizedGates[gate] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("commands.%s", gate),
				Message: fmt.Sprintf("unrecognized gate %q", gate),
			})
		} else if command == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("commands.%s", gate),
				Message: "command must not be empty",
			})
		}
	}

	return errs
}
