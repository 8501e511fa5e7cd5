package rules

import (
	"fmt"
	"strings"
)

// FieldError is a single violated constraint on one field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports every violated field on an entity, not just the
// first one found.
type ValidationError struct {
	Entity string       `json:"entity"`
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return fmt.Sprintf("invalid %s: %s", e.Entity, strings.Join(parts, "; "))
}

// ReferentialIntegrityError is raised when an entity would reference a parent
// that does not exist in the supplied collection.
type ReferentialIntegrityError struct {
	Kind    string `json:"kind"`
	RefID   string `json:"ref_id"`
	Message string `json:"message"`
}

func (e *ReferentialIntegrityError) Error() string {
	return fmt.Sprintf("%s (%s=%s)", e.Message, e.Kind, e.RefID)
}

// StateTransitionError carries both states plus the legal next states so
// callers can render an actionable message.
type StateTransitionError struct {
	From  string   `json:"from"`
	To    string   `json:"to"`
	Valid []string `json:"valid"`
}

func (e *StateTransitionError) Error() string {
	if len(e.Valid) == 0 {
		return fmt.Sprintf("cannot move action from %s to %s; %s is terminal", e.From, e.To, e.From)
	}
	return fmt.Sprintf("cannot move action from %s to %s; valid: %s", e.From, e.To, strings.Join(e.Valid, ", "))
}

// RecurrencePatternError reports which recurrence invariant failed.
type RecurrencePatternError struct {
	Reason string `json:"reason"`
}

func (e *RecurrencePatternError) Error() string {
	return "invalid recurrence pattern: " + e.Reason
}
