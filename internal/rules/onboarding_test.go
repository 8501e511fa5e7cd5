package rules_test

import (
	"fmt"
	"testing"
	"time"

	"stride/internal/config"
	"stride/internal/rules"
)

func testGenerator() rules.Generator {
	n := 0
	return rules.Generator{
		NewID: func() string { n++; return fmt.Sprintf("id-%d", n) },
		Now:   func() time.Time { return time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC) },
	}
}

func TestDefaultEntitiesHierarchy(t *testing.T) {
	gen := testGenerator()
	batch, err := gen.DefaultEntities("u1", config.Default())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(batch.Drivers) == 0 || len(batch.Milestones) == 0 || len(batch.Actions) == 0 {
		t.Fatalf("expected a populated batch, got %d/%d/%d", len(batch.Drivers), len(batch.Milestones), len(batch.Actions))
	}
	driverIDs := map[string]bool{}
	for _, d := range batch.Drivers {
		if d.UserID != "u1" {
			t.Fatalf("driver %s has wrong user", d.ID)
		}
		if driverIDs[d.ID] {
			t.Fatalf("duplicate driver id %s", d.ID)
		}
		driverIDs[d.ID] = true
	}
	milestoneIDs := map[string]bool{}
	for _, m := range batch.Milestones {
		if !driverIDs[m.DriverID] {
			t.Fatalf("milestone %s references driver %s outside the batch", m.ID, m.DriverID)
		}
		milestoneIDs[m.ID] = true
	}
	for _, a := range batch.Actions {
		if !milestoneIDs[a.MilestoneID] {
			t.Fatalf("action %s references milestone %s outside the batch", a.ID, a.MilestoneID)
		}
	}
	report := rules.DetectOrphans(batch.Drivers, batch.Milestones, batch.Actions)
	if len(report.OrphanedDrivers)+len(report.OrphanedMilestones)+len(report.OrphanedActions) != 0 {
		t.Fatalf("generated batch must not contain orphans: %+v", report)
	}
}

func TestDefaultEntitiesSingleMoment(t *testing.T) {
	gen := testGenerator()
	batch, err := gen.DefaultEntities("u1", config.Default())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	want := "2024-03-15T09:00:00Z"
	for _, d := range batch.Drivers {
		if d.CreatedAt != want || d.UpdatedAt != want {
			t.Fatalf("driver timestamp %s != %s", d.CreatedAt, want)
		}
	}
	for _, a := range batch.Actions {
		if a.CreatedAt != want {
			t.Fatalf("action timestamp %s != %s", a.CreatedAt, want)
		}
	}
	if !batch.Status.Onboarded || batch.Status.CompletedAt != want {
		t.Fatalf("unexpected status %+v", batch.Status)
	}
	if batch.Status.Version != config.Default().Version {
		t.Fatalf("status version %q", batch.Status.Version)
	}
}

func TestDefaultEntitiesDeterministicShape(t *testing.T) {
	cfg := config.Default()
	first, err := testGenerator().DefaultEntities("u1", cfg)
	if err != nil {
		t.Fatal(err)
	}
	second, err := testGenerator().DefaultEntities("u1", cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(first.Drivers) != len(second.Drivers) ||
		len(first.Milestones) != len(second.Milestones) ||
		len(first.Actions) != len(second.Actions) {
		t.Fatalf("batch shape differs between runs")
	}
	for i := range first.Actions {
		if first.Actions[i].Title != second.Actions[i].Title {
			t.Fatalf("action order differs at %d", i)
		}
	}
}

func TestDefaultEntitiesRejectsBadConfig(t *testing.T) {
	active := true
	cfg := &config.Config{
		Version: "1.0",
		Drivers: []config.DriverDef{{Title: "Empty", Active: &active}},
	}
	gen := testGenerator()
	if _, err := gen.DefaultEntities("u1", cfg); err == nil {
		t.Fatalf("expected config validation failure")
	}
	if _, err := gen.DefaultEntities("", config.Default()); err == nil {
		t.Fatalf("expected missing user error")
	}
}
