package rules_test

import (
	"errors"
	"testing"
	"time"

	"stride/internal/domain"
	"stride/internal/rules"
)

func TestValidateDriverAccumulatesFields(t *testing.T) {
	err := rules.ValidateDriver(domain.Driver{})
	var ve *rules.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if ve.Entity != "driver" {
		t.Fatalf("unexpected entity %q", ve.Entity)
	}
	got := map[string]bool{}
	for _, f := range ve.Fields {
		got[f.Field] = true
	}
	for _, want := range []string{"id", "user_id", "title"} {
		if !got[want] {
			t.Errorf("expected violation on %s, got %+v", want, ve.Fields)
		}
	}
}

func TestValidateDriverOK(t *testing.T) {
	d := domain.Driver{ID: "d1", UserID: "u1", Title: "Health", Active: true}
	if err := rules.ValidateDriver(d); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateMilestone(t *testing.T) {
	m := domain.Milestone{ID: "m1", UserID: "u1", DriverID: "d1", Title: "Run 5k"}
	if err := rules.ValidateMilestone(m); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	m.DriverID = ""
	m.TargetDate = strPtr("next tuesday")
	err := rules.ValidateMilestone(m)
	var ve *rules.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(ve.Fields) != 2 {
		t.Fatalf("expected both driver_id and target_date violations, got %+v", ve.Fields)
	}
}

func TestValidateAction(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	a := domain.Action{ID: "a1", UserID: "u1", MilestoneID: "m1", Title: "Jog", Status: domain.StatusPlanned}
	if err := rules.ValidateAction(a, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	a.Status = "done"
	if err := rules.ValidateAction(a, now); err == nil {
		t.Fatalf("expected invalid status error")
	}

	a.Status = domain.StatusPlanned
	a.EstimatedMinutes = intPtr(-5)
	if err := rules.ValidateAction(a, now); err == nil {
		t.Fatalf("expected estimate error")
	}

	a.EstimatedMinutes = intPtr(30)
	a.Recurrence = &domain.RecurrencePattern{Frequency: "fortnightly"}
	err := rules.ValidateAction(a, now)
	var ve *rules.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(ve.Fields) != 1 || ve.Fields[0].Field != "recurrence" {
		t.Fatalf("expected recurrence violation, got %+v", ve.Fields)
	}
}
