package rules

import (
	"time"

	"stride/internal/domain"
)

// Entity validation accumulates every violated field rather than stopping at
// the first; these errors feed interactive input, where a complete list beats
// a fast one. Ownership-vs-caller checks live a layer up: only shape is
// checked here.

func ValidateDriver(d domain.Driver) error {
	var fields []FieldError
	fields = requireID(fields, d.ID, d.UserID)
	if d.Title == "" {
		fields = append(fields, FieldError{Field: "title", Message: "must not be empty"})
	}
	if len(fields) > 0 {
		return &ValidationError{Entity: "driver", Fields: fields}
	}
	return nil
}

func ValidateMilestone(m domain.Milestone) error {
	var fields []FieldError
	fields = requireID(fields, m.ID, m.UserID)
	if m.Title == "" {
		fields = append(fields, FieldError{Field: "title", Message: "must not be empty"})
	}
	if m.DriverID == "" {
		fields = append(fields, FieldError{Field: "driver_id", Message: "is required"})
	}
	if m.TargetDate != nil {
		if _, err := ParseDate(*m.TargetDate); err != nil {
			fields = append(fields, FieldError{Field: "target_date", Message: "must be an ISO date (YYYY-MM-DD)"})
		}
	}
	if len(fields) > 0 {
		return &ValidationError{Entity: "milestone", Fields: fields}
	}
	return nil
}

func ValidateAction(a domain.Action, now time.Time) error {
	var fields []FieldError
	fields = requireID(fields, a.ID, a.UserID)
	if a.Title == "" {
		fields = append(fields, FieldError{Field: "title", Message: "must not be empty"})
	}
	if a.MilestoneID == "" {
		fields = append(fields, FieldError{Field: "milestone_id", Message: "is required"})
	}
	if !IsValidStatus(a.Status) {
		fields = append(fields, FieldError{Field: "status", Message: "must be one of planned, in-progress, completed, deferred, rolled-over"})
	}
	if a.EstimatedMinutes != nil && *a.EstimatedMinutes <= 0 {
		fields = append(fields, FieldError{Field: "estimated_minutes", Message: "must be positive"})
	}
	if a.Recurrence != nil {
		if err := ValidatePattern(a.Recurrence, now); err != nil {
			fields = append(fields, FieldError{Field: "recurrence", Message: err.Error()})
		}
	}
	if len(fields) > 0 {
		return &ValidationError{Entity: "action", Fields: fields}
	}
	return nil
}

func requireID(fields []FieldError, id, userID string) []FieldError {
	if id == "" {
		fields = append(fields, FieldError{Field: "id", Message: "is required"})
	}
	if userID == "" {
		fields = append(fields, FieldError{Field: "user_id", Message: "is required"})
	}
	return fields
}
