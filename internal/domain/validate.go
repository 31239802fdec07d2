package domain

import (
	"fmt"
	"strings"
)

// ValidationResult is the outcome of checking an asset before a write.
type ValidationResult struct {
	Reasons []string
}

// OK reports whether no rule was violated.
func (r ValidationResult) OK() bool {
	return len(r.Reasons) == 0
}

// Err returns a *ValidationError when the result is invalid, nil otherwise.
func (r ValidationResult) Err() error {
	if r.OK() {
		return nil
	}
	return &ValidationError{Reasons: append([]string(nil), r.Reasons...)}
}

func (r *ValidationResult) add(format string, args ...any) {
	r.Reasons = append(r.Reasons, fmt.Sprintf(format, args...))
}

// ValidationError reports rejected input.
type ValidationError struct {
	Reasons []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Reasons, "; ")
}

// ValidateAsset checks required fields and enum membership. Name is expected
// to be trimmed already.
func ValidateAsset(a Asset) ValidationResult {
	var res ValidationResult
	if strings.TrimSpace(a.Name) == "" {
		res.add("name is required")
	}
	if a.Type == "" {
		res.add("type is required")
	} else if !a.Type.Valid() {
		res.add("type %q must be one of %s", a.Type, joinTypes())
	}
	if !a.Status.Valid() {
		res.add("status %q must be one of %s", a.Status, joinStatuses())
	}
	if strings.TrimSpace(a.Specifications) == "" {
		res.add("specifications are required")
	}
	return res
}

func joinTypes() string {
	parts := make([]string, len(AssetTypes))
	for i, t := range AssetTypes {
		parts[i] = string(t)
	}
	return strings.Join(parts, ", ")
}

func joinStatuses() string {
	parts := make([]string, len(AssetStatuses))
	for i, s := range AssetStatuses {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}
