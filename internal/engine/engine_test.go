package engine_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"stride/internal/config"
	"stride/internal/db"
	"stride/internal/domain"
	"stride/internal/engine"
	"stride/internal/migrate"
	"stride/internal/repo"
	"stride/internal/rules"
)

const testUser = "u1"

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	eng := engine.New(conn)
	eng.Now = func() time.Time { return time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC) }
	n := 0
	eng.NewID = func() string { n++; return fmt.Sprintf("id-%d", n) }
	return testEnv{Engine: eng, Ctx: context.Background()}
}

func (env testEnv) seedHierarchy(t *testing.T) (string, string) {
	t.Helper()
	d, err := env.Engine.CreateDriver(env.Ctx, engine.DriverCreateOptions{UserID: testUser, Title: "Health"})
	if err != nil {
		t.Fatalf("create driver: %v", err)
	}
	m, err := env.Engine.CreateMilestone(env.Ctx, engine.MilestoneCreateOptions{UserID: testUser, DriverID: d.ID, Title: "Run 5k"})
	if err != nil {
		t.Fatalf("create milestone: %v", err)
	}
	return d.ID, m.ID
}

func TestCreateMilestoneRequiresDriver(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.CreateMilestone(env.Ctx, engine.MilestoneCreateOptions{UserID: testUser, DriverID: "ghost", Title: "Floating"})
	var rie *rules.ReferentialIntegrityError
	if !errors.As(err, &rie) {
		t.Fatalf("expected ReferentialIntegrityError, got %v", err)
	}
}

func TestCreateActionRequiresMilestone(t *testing.T) {
	env := newTestEnv(t)
	env.seedHierarchy(t)
	_, err := env.Engine.CreateAction(env.Ctx, engine.ActionCreateOptions{UserID: testUser, MilestoneID: "ghost", Title: "Dangling"})
	var rie *rules.ReferentialIntegrityError
	if !errors.As(err, &rie) {
		t.Fatalf("expected ReferentialIntegrityError, got %v", err)
	}
}

func TestCrossUserReferencesRejected(t *testing.T) {
	env := newTestEnv(t)
	d, _ := env.seedHierarchy(t)
	_, err := env.Engine.CreateMilestone(env.Ctx, engine.MilestoneCreateOptions{UserID: "someone-else", DriverID: d, Title: "Stolen"})
	if err == nil {
		t.Fatalf("expected cross-user reference to be rejected")
	}
}

func TestActionLifecycle(t *testing.T) {
	env := newTestEnv(t)
	_, m := env.seedHierarchy(t)
	a, err := env.Engine.CreateAction(env.Ctx, engine.ActionCreateOptions{UserID: testUser, MilestoneID: m, Title: "Jog"})
	if err != nil {
		t.Fatalf("create action: %v", err)
	}
	if a.Status != "planned" {
		t.Fatalf("expected default planned, got %s", a.Status)
	}
	a, err = env.Engine.MoveAction(env.Ctx, testUser, a.ID, "in-progress")
	if err != nil || a.Status != "in-progress" {
		t.Fatalf("to in-progress: %v", err)
	}
	a, err = env.Engine.MoveAction(env.Ctx, testUser, a.ID, "completed")
	if err != nil || a.Status != "completed" {
		t.Fatalf("to completed: %v", err)
	}
	if a.CompletedAt == nil {
		t.Fatalf("expected completed_at stamp")
	}
	_, err = env.Engine.MoveAction(env.Ctx, testUser, a.ID, "planned")
	var ste *rules.StateTransitionError
	if !errors.As(err, &ste) {
		t.Fatalf("expected StateTransitionError, got %v", err)
	}
	if len(ste.Valid) != 1 || ste.Valid[0] != "rolled-over" {
		t.Fatalf("expected valid=[rolled-over], got %v", ste.Valid)
	}
}

func TestRunHabitsSpawnsAndRollsOver(t *testing.T) {
	env := newTestEnv(t)
	_, m := env.seedHierarchy(t)
	a, err := env.Engine.CreateAction(env.Ctx, engine.ActionCreateOptions{
		UserID:      testUser,
		MilestoneID: m,
		Title:       "Walk",
		Recurrence:  &domain.RecurrencePattern{Frequency: domain.FreqDaily},
	})
	if err != nil {
		t.Fatalf("create action: %v", err)
	}
	_, _ = env.Engine.MoveAction(env.Ctx, testUser, a.ID, "in-progress")
	_, _ = env.Engine.MoveAction(env.Ctx, testUser, a.ID, "completed")

	// Same day: nothing due.
	spawned, err := env.Engine.RunHabits(env.Ctx, testUser, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("run habits: %v", err)
	}
	if len(spawned) != 0 {
		t.Fatalf("expected nothing on creation day, got %d", len(spawned))
	}

	// Next day: one fresh planned instance, predecessor rolled over.
	spawned, err = env.Engine.RunHabits(env.Ctx, testUser, time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("run habits: %v", err)
	}
	if len(spawned) != 1 {
		t.Fatalf("expected one spawn, got %d", len(spawned))
	}
	if spawned[0].Status != "planned" || spawned[0].Recurrence == nil {
		t.Fatalf("spawned instance malformed: %+v", spawned[0])
	}
	old, err := env.Engine.Repo.GetAction(env.Ctx, testUser, a.ID)
	if err != nil {
		t.Fatalf("get predecessor: %v", err)
	}
	if old.Status != "rolled-over" {
		t.Fatalf("expected predecessor rolled-over, got %s", old.Status)
	}
	if old.CompletedAt == nil {
		t.Fatalf("history must keep the completion stamp")
	}

	// Running again the same day is idempotent.
	again, err := env.Engine.RunHabits(env.Ctx, testUser, time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("run habits again: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("expected no duplicate spawn, got %d", len(again))
	}
}

func TestRunHabitsUnfinishedPredecessorLosesPattern(t *testing.T) {
	env := newTestEnv(t)
	_, m := env.seedHierarchy(t)
	a, err := env.Engine.CreateAction(env.Ctx, engine.ActionCreateOptions{
		UserID:      testUser,
		MilestoneID: m,
		Title:       "Walk",
		Recurrence:  &domain.RecurrencePattern{Frequency: domain.FreqDaily},
	})
	if err != nil {
		t.Fatalf("create action: %v", err)
	}
	spawned, err := env.Engine.RunHabits(env.Ctx, testUser, time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC))
	if err != nil || len(spawned) != 1 {
		t.Fatalf("expected one spawn: %v (%d)", err, len(spawned))
	}
	old, _ := env.Engine.Repo.GetAction(env.Ctx, testUser, a.ID)
	if old.Status != "planned" {
		t.Fatalf("unfinished predecessor keeps its state, got %s", old.Status)
	}
	if old.Recurrence != nil {
		t.Fatalf("unfinished predecessor must stop recurring")
	}
}

func TestOnboardOnce(t *testing.T) {
	env := newTestEnv(t)
	batch, err := env.Engine.Onboard(env.Ctx, testUser, config.Default())
	if err != nil {
		t.Fatalf("onboard: %v", err)
	}
	if !batch.Status.Onboarded {
		t.Fatalf("expected onboarded status")
	}
	drivers, err := env.Engine.Repo.ListDrivers(env.Ctx, testUser)
	if err != nil || len(drivers) != len(batch.Drivers) {
		t.Fatalf("expected %d drivers persisted, got %d (%v)", len(batch.Drivers), len(drivers), err)
	}
	_, err = env.Engine.Onboard(env.Ctx, testUser, config.Default())
	if !errors.Is(err, engine.ErrAlreadyOnboarded) {
		t.Fatalf("expected ErrAlreadyOnboarded, got %v", err)
	}
	report, err := env.Engine.DetectOrphans(env.Ctx, testUser)
	if err != nil {
		t.Fatalf("detect orphans: %v", err)
	}
	if len(report.OrphanedDrivers)+len(report.OrphanedMilestones)+len(report.OrphanedActions) != 0 {
		t.Fatalf("onboarded hierarchy must be orphan-free: %+v", report)
	}
}

func TestDeleteDriverCascade(t *testing.T) {
	env := newTestEnv(t)
	d, m := env.seedHierarchy(t)
	if _, err := env.Engine.CreateAction(env.Ctx, engine.ActionCreateOptions{UserID: testUser, MilestoneID: m, Title: "Jog"}); err != nil {
		t.Fatalf("create action: %v", err)
	}
	impact, err := env.Engine.DriverImpact(env.Ctx, testUser, d)
	if err != nil {
		t.Fatalf("impact: %v", err)
	}
	if impact.Milestones != 1 || impact.Actions != 1 {
		t.Fatalf("unexpected impact %+v", impact)
	}
	deleted, err := env.Engine.DeleteDriver(env.Ctx, testUser, d)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted != impact {
		t.Fatalf("delete impact mismatch: %+v vs %+v", deleted, impact)
	}
	if _, err := env.Engine.Repo.GetDriver(env.Ctx, testUser, d); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("driver should be gone, got %v", err)
	}
	if _, err := env.Engine.Repo.GetMilestone(env.Ctx, testUser, m); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("milestone should be gone, got %v", err)
	}
	actions, err := env.Engine.Repo.ListActions(env.Ctx, testUser)
	if err != nil || len(actions) != 0 {
		t.Fatalf("actions should be gone, got %d (%v)", len(actions), err)
	}
}

func TestEventAppendOnMutations(t *testing.T) {
	env := newTestEnv(t)
	_, m := env.seedHierarchy(t)
	a, err := env.Engine.CreateAction(env.Ctx, engine.ActionCreateOptions{UserID: testUser, MilestoneID: m, Title: "Jog"})
	if err != nil {
		t.Fatalf("create action: %v", err)
	}
	_, _ = env.Engine.MoveAction(env.Ctx, testUser, a.ID, "in-progress")
	evts, err := env.Engine.Repo.LatestEvents(env.Ctx, 50, testUser, "", "", "")
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	types := map[string]bool{}
	for _, e := range evts {
		types[e.Type] = true
	}
	for _, want := range []string{"driver.created", "milestone.created", "action.created", "action.moved"} {
		if !types[want] {
			t.Errorf("expected event %s, got %v", want, types)
		}
	}
}
