package rules_test

import (
	"errors"
	"strings"
	"testing"

	"stride/internal/domain"
	"stride/internal/rules"
)

func TestDetectOrphans(t *testing.T) {
	drivers := []domain.Driver{
		{ID: "d1", UserID: "u1", Title: "Health"},
		{ID: "d2", UserID: "u1", Title: "Career"},
	}
	milestones := []domain.Milestone{
		{ID: "m1", UserID: "u1", DriverID: "d1", Title: "Run 5k"},
		{ID: "m2", UserID: "u1", DriverID: "ghost", Title: "Floating"},
	}
	actions := []domain.Action{
		{ID: "a1", UserID: "u1", MilestoneID: "m1", Title: "Jog", Status: domain.StatusPlanned},
		{ID: "a2", UserID: "u1", MilestoneID: "m2", Title: "Under orphan", Status: domain.StatusPlanned},
		{ID: "a3", UserID: "u1", MilestoneID: "gone", Title: "Dangling", Status: domain.StatusPlanned},
	}
	report := rules.DetectOrphans(drivers, milestones, actions)
	if len(report.OrphanedMilestones) != 1 || report.OrphanedMilestones[0].ID != "m2" {
		t.Fatalf("expected m2 orphaned, got %+v", report.OrphanedMilestones)
	}
	// a2 hangs off an orphaned milestone but m2 still exists, so only a3 dangles.
	if len(report.OrphanedActions) != 1 || report.OrphanedActions[0].ID != "a3" {
		t.Fatalf("expected a3 orphaned, got %+v", report.OrphanedActions)
	}
	if len(report.OrphanedDrivers) != 1 || report.OrphanedDrivers[0].ID != "d2" {
		t.Fatalf("expected d2 orphaned, got %+v", report.OrphanedDrivers)
	}
}

func TestDetectOrphansSingleDriver(t *testing.T) {
	drivers := []domain.Driver{{ID: "d1", UserID: "u1", Title: "Solo"}}
	report := rules.DetectOrphans(drivers, nil, nil)
	if len(report.OrphanedDrivers) != 1 || report.OrphanedDrivers[0].ID != "d1" {
		t.Fatalf("driver without milestones should be orphaned")
	}
	if len(report.OrphanedMilestones) != 0 || len(report.OrphanedActions) != 0 {
		t.Fatalf("expected empty milestone/action lists")
	}
	// adding a milestone referencing d1 clears it
	report = rules.DetectOrphans(drivers, []domain.Milestone{{ID: "m1", UserID: "u1", DriverID: "d1", Title: "First"}}, nil)
	if len(report.OrphanedDrivers) != 0 {
		t.Fatalf("expected no orphaned drivers, got %+v", report.OrphanedDrivers)
	}
}

func TestPreCreationGuards(t *testing.T) {
	drivers := []domain.Driver{{ID: "d1", UserID: "u1", Title: "Health"}}
	milestones := []domain.Milestone{{ID: "m1", UserID: "u1", DriverID: "d1", Title: "Run"}}

	if rules.WouldMilestoneBeOrphaned("d1", drivers) {
		t.Fatalf("d1 exists")
	}
	if !rules.WouldMilestoneBeOrphaned("nope", drivers) {
		t.Fatalf("nope does not exist")
	}
	if err := rules.ValidateMilestoneNotOrphaned("d1", drivers); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := rules.ValidateMilestoneNotOrphaned("nope", drivers)
	var rie *rules.ReferentialIntegrityError
	if !errors.As(err, &rie) {
		t.Fatalf("expected ReferentialIntegrityError, got %v", err)
	}
	if rie.RefID != "nope" || !strings.Contains(err.Error(), "linked to a driver") {
		t.Fatalf("unexpected error payload: %v", err)
	}

	if rules.WouldActionBeOrphaned("m1", milestones) {
		t.Fatalf("m1 exists")
	}
	if err := rules.ValidateActionNotOrphaned("gone", milestones); err == nil {
		t.Fatalf("expected error for missing milestone")
	}
}

func TestDeleteImpact(t *testing.T) {
	milestones := []domain.Milestone{
		{ID: "m1", DriverID: "d1"},
		{ID: "m2", DriverID: "d1"},
		{ID: "m3", DriverID: "d2"},
	}
	actions := []domain.Action{
		{ID: "a1", MilestoneID: "m1"},
		{ID: "a2", MilestoneID: "m2"},
		{ID: "a3", MilestoneID: "m2"},
		{ID: "a4", MilestoneID: "m3"},
	}
	impact := rules.DeleteImpact("d1", milestones, actions)
	if impact.Milestones != 2 || impact.Actions != 3 {
		t.Fatalf("expected 2 milestones / 3 actions, got %+v", impact)
	}
	empty := rules.DeleteImpact("d9", milestones, actions)
	if empty.Milestones != 0 || empty.Actions != 0 {
		t.Fatalf("expected zero impact, got %+v", empty)
	}
}
