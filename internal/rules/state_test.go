package rules_test

import (
	"errors"
	"testing"

	"stride/internal/domain"
	"stride/internal/rules"
)

var allStatuses = []string{
	domain.StatusPlanned,
	domain.StatusInProgress,
	domain.StatusCompleted,
	domain.StatusDeferred,
	domain.StatusRolledOver,
}

func TestTransitionTable(t *testing.T) {
	valid := map[[2]string]bool{
		{domain.StatusPlanned, domain.StatusInProgress}: true,
		{domain.StatusPlanned, domain.StatusDeferred}: true,
		{domain.StatusInProgress, domain.StatusCompleted}: true,
		{domain.StatusInProgress, domain.StatusDeferred}: true,
		{domain.StatusInProgress, domain.StatusPlanned}: true,
		{domain.StatusCompleted, domain.StatusRolledOver}: true,
		{domain.StatusDeferred, domain.StatusPlanned}: true,
	}
	for _, from := range allStatuses {
		for _, to := range allStatuses {
			want := valid[[2]string{from, to}]
			if got := rules.IsValidTransition(from, to); got != want {
				t.Errorf("IsValidTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
			err := rules.RequireTransition(from, to)
			if want && err != nil {
				t.Errorf("RequireTransition(%s, %s): unexpected error %v", from, to, err)
			}
			if !want && err == nil {
				t.Errorf("RequireTransition(%s, %s): expected error", from, to)
			}
		}
	}
}

func TestNoSelfLoops(t *testing.T) {
	for _, s := range allStatuses {
		if rules.IsValidTransition(s, s) {
			t.Errorf("unexpected self-loop on %s", s)
		}
	}
}

func TestTransitionErrorCarriesValidStates(t *testing.T) {
	err := rules.RequireTransition(domain.StatusCompleted, domain.StatusPlanned)
	var ste *rules.StateTransitionError
	if !errors.As(err, &ste) {
		t.Fatalf("expected StateTransitionError, got %v", err)
	}
	if ste.From != domain.StatusCompleted || ste.To != domain.StatusPlanned {
		t.Fatalf("unexpected states: %+v", ste)
	}
	if len(ste.Valid) != 1 || ste.Valid[0] != domain.StatusRolledOver {
		t.Fatalf("expected valid next states [rolled-over], got %v", ste.Valid)
	}
}

func TestTerminalState(t *testing.T) {
	if !rules.IsTerminal(domain.StatusRolledOver) {
		t.Fatalf("rolled-over should be terminal")
	}
	if next := rules.ValidNextStates(domain.StatusRolledOver); len(next) != 0 {
		t.Fatalf("expected no next states for rolled-over, got %v", next)
	}
	for _, s := range allStatuses {
		if s == domain.StatusRolledOver {
			continue
		}
		if rules.IsTerminal(s) {
			t.Errorf("%s should not be terminal", s)
		}
		if len(rules.ValidNextStates(s)) == 0 {
			t.Errorf("%s should have at least one next state", s)
		}
	}
}

func TestIsValidStatus(t *testing.T) {
	for _, s := range allStatuses {
		if !rules.IsValidStatus(s) {
			t.Errorf("%s should be a valid status", s)
		}
	}
	if rules.IsValidStatus("done") {
		t.Errorf("done is not a lifecycle state")
	}
	if rules.IsValidStatus("") {
		t.Errorf("empty string is not a lifecycle state")
	}
}
