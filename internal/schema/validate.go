package schema

import "fmt"

// ValidationError describes a single structural problem with a payload.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks a FailuresPayload read back from disk for structural
// errors. It returns every violation found (empty if valid) so callers
// can fail fast with the full list.
func (p *FailuresPayload) Validate() []ValidationError {
	var errs []ValidationError

	if p.RunID == "" {
		errs = append(errs, ValidationError{Field: "run_id", Message: "is required"})
	}
	if !p.Mode.Valid() {
		errs = append(errs, ValidationError{Field: "mode", Message: fmt.Sprintf("invalid value %q", p.Mode)})
	}
	if !p.Status.Valid() {
		errs = append(errs, ValidationError{Field: "status", Message: fmt.Sprintf("invalid value %q", p.Status)})
	}

	for i, g := range p.Gates {
		if !g.Name.Valid() {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("gates[%d].name", i),
				Message: fmt.Sprintf("invalid gate %q", g.Name),
			})
		}
		if !g.Status.Valid() {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("gates[%d].status", i),
				Message: fmt.Sprintf("invalid status %q", g.Status),
			})
		}
	}

	for i, f := range p.Findings {
		prefix := fmt.Sprintf("findings[%d]", i)
		if f.ID == "" {
			errs = append(errs, ValidationError{Field: prefix + ".id", Message: "is required"})
		}
		if !f.Gate.Valid() {
			errs = append(errs, ValidationError{
				Field:   prefix + ".gate",
				Message: fmt.Sprintf("invalid gate %q", f.Gate),
			})
		}
		if !f.Severity.Valid() {
			errs = append(errs, ValidationError{
				Field:   prefix + ".severity",
				Message: fmt.Sprintf("invalid severity %q", f.Severity),
			})
		}
	}

	for i, h := range p.InferredHints {
		if h.FindingID == "" {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("inferred_hints[%d].finding_id", i),
				Message: "is required",
			})
		}
		if !h.Confidence.Valid() {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("inferred_hints[%d].confidence", i),
				Message: fmt.Sprintf("invalid confidence %q", h.Confidence),
			})
		}
	}

	return errs
}
