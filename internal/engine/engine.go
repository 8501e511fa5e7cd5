package engine

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"stride/internal/config"
	"stride/internal/domain"
	"stride/internal/events"
	"stride/internal/repo"
	"stride/internal/rules"
)

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Now    func() time.Time
	NewID  func() string
}

func New(db *sql.DB) Engine {
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Now:    time.Now,
		NewID:  func() string { return uuid.New().String() },
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) newID() string {
	if e.NewID != nil {
		return e.NewID()
	}
	return uuid.New().String()
}

// DriverCreateOptions are parameters for creating a driver.
type DriverCreateOptions struct {
	UserID      string
	Title       string
	Description string
	Active      *bool
}

func (e Engine) CreateDriver(ctx context.Context, opts DriverCreateOptions) (domain.Driver, error) {
	now := e.now().UTC().Format(time.RFC3339)
	d := domain.Driver{
		ID:          e.newID(),
		UserID:      opts.UserID,
		Title:       opts.Title,
		Description: opts.Description,
		Active:      opts.Active == nil || *opts.Active,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := rules.ValidateDriver(d); err != nil {
		return domain.Driver{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Driver{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertDriverTx(ctx, tx, d); err != nil {
		return domain.Driver{}, err
	}
	if err := e.Events.Append(ctx, tx, "driver.created", d.UserID, "driver", d.ID, events.EventPayload{"title": d.Title}); err != nil {
		return domain.Driver{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Driver{}, err
	}
	return d, nil
}

// DriverUpdateOptions encapsulates allowed driver updates.
type DriverUpdateOptions struct {
	UserID      string
	ID          string
	Title       *string
	Description *string
	Active      *bool
	Archived    *bool
}

func (e Engine) UpdateDriver(ctx context.Context, opts DriverUpdateOptions) (domain.Driver, error) {
	d, err := e.Repo.GetDriver(ctx, opts.UserID, opts.ID)
	if err != nil {
		return d, err
	}
	if opts.Title != nil {
		d.Title = *opts.Title
	}
	if opts.Description != nil {
		d.Description = *opts.Description
	}
	if opts.Active != nil {
		d.Active = *opts.Active
	}
	if opts.Archived != nil {
		d.Archived = *opts.Archived
	}
	d.UpdatedAt = e.now().UTC().Format(time.RFC3339)
	if err := rules.ValidateDriver(d); err != nil {
		return d, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return d, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateDriverTx(ctx, tx, d); err != nil {
		return d, err
	}
	if err := e.Events.Append(ctx, tx, "driver.updated", d.UserID, "driver", d.ID, events.EventPayload{"title": d.Title, "archived": d.Archived}); err != nil {
		return d, err
	}
	if err := tx.Commit(); err != nil {
		return d, err
	}
	return d, nil
}

// DriverImpact previews what a cascading delete of the driver would remove.
func (e Engine) DriverImpact(ctx context.Context, userID, id string) (domain.DeleteDriverImpact, error) {
	if _, err := e.Repo.GetDriver(ctx, userID, id); err != nil {
		return domain.DeleteDriverImpact{}, err
	}
	milestones, err := e.Repo.ListMilestones(ctx, userID)
	if err != nil {
		return domain.DeleteDriverImpact{}, err
	}
	actions, err := e.Repo.ListActions(ctx, userID)
	if err != nil {
		return domain.DeleteDriverImpact{}, err
	}
	return rules.DeleteImpact(id, milestones, actions), nil
}

// DeleteDriver cascades over the driver's milestones and their actions.
func (e Engine) DeleteDriver(ctx context.Context, userID, id string) (domain.DeleteDriverImpact, error) {
	impact, err := e.DriverImpact(ctx, userID, id)
	if err != nil {
		return impact, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return impact, err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteDriverCascadeTx(ctx, tx, userID, id); err != nil {
		return impact, err
	}
	if err := e.Events.Append(ctx, tx, "driver.deleted", userID, "driver", id, events.EventPayload{
		"milestones": impact.Milestones,
		"actions":    impact.Actions,
	}); err != nil {
		return impact, err
	}
	return impact, tx.Commit()
}

// MilestoneCreateOptions are parameters for creating a milestone.
type MilestoneCreateOptions struct {
	UserID      string
	DriverID    string
	Title       string
	Description string
	TargetDate  string
}

func (e Engine) CreateMilestone(ctx context.Context, opts MilestoneCreateOptions) (domain.Milestone, error) {
	drivers, err := e.Repo.ListDrivers(ctx, opts.UserID)
	if err != nil {
		return domain.Milestone{}, err
	}
	if err := rules.ValidateMilestoneNotOrphaned(opts.DriverID, drivers); err != nil {
		return domain.Milestone{}, err
	}
	now := e.now().UTC().Format(time.RFC3339)
	m := domain.Milestone{
		ID:          e.newID(),
		UserID:      opts.UserID,
		DriverID:    opts.DriverID,
		Title:       opts.Title,
		Description: opts.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if opts.TargetDate != "" {
		target := opts.TargetDate
		m.TargetDate = &target
	}
	if err := rules.ValidateMilestone(m); err != nil {
		return domain.Milestone{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Milestone{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertMilestoneTx(ctx, tx, m); err != nil {
		return domain.Milestone{}, err
	}
	if err := e.Events.Append(ctx, tx, "milestone.created", m.UserID, "milestone", m.ID, events.EventPayload{"title": m.Title, "driver_id": m.DriverID}); err != nil {
		return domain.Milestone{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Milestone{}, err
	}
	return m, nil
}

// MilestoneUpdateOptions encapsulates allowed milestone updates.
type MilestoneUpdateOptions struct {
	UserID      string
	ID          string
	Title       *string
	Description *string
	TargetDate  *string
}

func (e Engine) UpdateMilestone(ctx context.Context, opts MilestoneUpdateOptions) (domain.Milestone, error) {
	m, err := e.Repo.GetMilestone(ctx, opts.UserID, opts.ID)
	if err != nil {
		return m, err
	}
	if opts.Title != nil {
		m.Title = *opts.Title
	}
	if opts.Description != nil {
		m.Description = *opts.Description
	}
	if opts.TargetDate != nil {
		if *opts.TargetDate == "" {
			m.TargetDate = nil
		} else {
			m.TargetDate = opts.TargetDate
		}
	}
	m.UpdatedAt = e.now().UTC().Format(time.RFC3339)
	if err := rules.ValidateMilestone(m); err != nil {
		return m, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return m, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateMilestoneTx(ctx, tx, m); err != nil {
		return m, err
	}
	if err := e.Events.Append(ctx, tx, "milestone.updated", m.UserID, "milestone", m.ID, events.EventPayload{"title": m.Title}); err != nil {
		return m, err
	}
	if err := tx.Commit(); err != nil {
		return m, err
	}
	return m, nil
}

func (e Engine) DeleteMilestone(ctx context.Context, userID, id string) error {
	if _, err := e.Repo.GetMilestone(ctx, userID, id); err != nil {
		return err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteMilestoneTx(ctx, tx, userID, id); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "milestone.deleted", userID, "milestone", id, events.EventPayload{}); err != nil {
		return err
	}
	return tx.Commit()
}

// ActionCreateOptions are parameters for creating an action.
type ActionCreateOptions struct {
	UserID           string
	MilestoneID      string
	Title            string
	Description      string
	Status           string
	EstimatedMinutes *int
	Trigger          string
	Recurrence       *domain.RecurrencePattern
}

func (e Engine) CreateAction(ctx context.Context, opts ActionCreateOptions) (domain.Action, error) {
	milestones, err := e.Repo.ListMilestones(ctx, opts.UserID)
	if err != nil {
		return domain.Action{}, err
	}
	if err := rules.ValidateActionNotOrphaned(opts.MilestoneID, milestones); err != nil {
		return domain.Action{}, err
	}
	if opts.Status == "" {
		opts.Status = domain.StatusPlanned
	}
	nowT := e.now()
	now := nowT.UTC().Format(time.RFC3339)
	a := domain.Action{
		ID:               e.newID(),
		UserID:           opts.UserID,
		MilestoneID:      opts.MilestoneID,
		Title:            opts.Title,
		Description:      opts.Description,
		Status:           opts.Status,
		EstimatedMinutes: opts.EstimatedMinutes,
		Trigger:          opts.Trigger,
		Recurrence:       opts.Recurrence,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if a.Recurrence != nil {
		day := nowT.UTC().Format(rules.DateLayout)
		a.LastOccurrence = &day
	}
	if err := rules.ValidateAction(a, nowT); err != nil {
		return domain.Action{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Action{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertActionTx(ctx, tx, a); err != nil {
		return domain.Action{}, err
	}
	if err := e.Events.Append(ctx, tx, "action.created", a.UserID, "action", a.ID, events.EventPayload{"title": a.Title, "status": a.Status}); err != nil {
		return domain.Action{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Action{}, err
	}
	return a, nil
}

// ActionUpdateOptions encapsulates allowed action updates. Status changes go
// through MoveAction so the transition table applies.
type ActionUpdateOptions struct {
	UserID           string
	ID               string
	Title            *string
	Description      *string
	EstimatedMinutes *int
	Trigger          *string
	Recurrence       *domain.RecurrencePattern
	ClearRecurrence  bool
}

func (e Engine) UpdateAction(ctx context.Context, opts ActionUpdateOptions) (domain.Action, error) {
	a, err := e.Repo.GetAction(ctx, opts.UserID, opts.ID)
	if err != nil {
		return a, err
	}
	if opts.Title != nil {
		a.Title = *opts.Title
	}
	if opts.Description != nil {
		a.Description = *opts.Description
	}
	if opts.EstimatedMinutes != nil {
		a.EstimatedMinutes = opts.EstimatedMinutes
	}
	if opts.Trigger != nil {
		a.Trigger = *opts.Trigger
	}
	if opts.ClearRecurrence {
		a.Recurrence = nil
	} else if opts.Recurrence != nil {
		a.Recurrence = opts.Recurrence
	}
	nowT := e.now()
	a.UpdatedAt = nowT.UTC().Format(time.RFC3339)
	if err := rules.ValidateAction(a, nowT); err != nil {
		return a, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return a, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateActionTx(ctx, tx, a); err != nil {
		return a, err
	}
	if err := e.Events.Append(ctx, tx, "action.updated", a.UserID, "action", a.ID, events.EventPayload{"title": a.Title}); err != nil {
		return a, err
	}
	if err := tx.Commit(); err != nil {
		return a, err
	}
	return a, nil
}

// MoveAction applies one lifecycle transition, enforcing the table.
func (e Engine) MoveAction(ctx context.Context, userID, id, to string) (domain.Action, error) {
	a, err := e.Repo.GetAction(ctx, userID, id)
	if err != nil {
		return a, err
	}
	if err := rules.RequireTransition(a.Status, to); err != nil {
		return a, err
	}
	from := a.Status
	a.Status = to
	now := e.now().UTC().Format(time.RFC3339)
	a.UpdatedAt = now
	if to == domain.StatusCompleted {
		a.CompletedAt = &now
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return a, err
	}
	defer tx.Rollback()
	if err := e.Repo.UpdateActionTx(ctx, tx, a); err != nil {
		return a, err
	}
	if err := e.Events.Append(ctx, tx, "action.moved", a.UserID, "action", a.ID, events.EventPayload{"from": from, "to": to}); err != nil {
		return a, err
	}
	if err := tx.Commit(); err != nil {
		return a, err
	}
	return a, nil
}

func (e Engine) DeleteAction(ctx context.Context, userID, id string) error {
	if _, err := e.Repo.GetAction(ctx, userID, id); err != nil {
		return err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteActionTx(ctx, tx, userID, id); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, "action.deleted", userID, "action", id, events.EventPayload{}); err != nil {
		return err
	}
	return tx.Commit()
}

// RunHabits materializes due instances of the user's recurring actions for
// the given day. A due action spawns a fresh planned copy carrying the same
// pattern, the spawn date becomes the copy's last occurrence, and a completed
// predecessor rolls over so history keeps the completed record.
func (e Engine) RunHabits(ctx context.Context, userID string, today time.Time) ([]domain.Action, error) {
	recurring, err := e.Repo.ListRecurringActions(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := e.now().UTC().Format(time.RFC3339)
	day := today.UTC().Format(rules.DateLayout)
	var spawned []domain.Action
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()
	for _, a := range recurring {
		last, err := lastOccurrenceOf(a)
		if err != nil {
			return nil, err
		}
		if !rules.ShouldCreateInstance(a.Recurrence, today, last) {
			continue
		}
		instance := domain.Action{
			ID:               e.newID(),
			UserID:           a.UserID,
			MilestoneID:      a.MilestoneID,
			Title:            a.Title,
			Description:      a.Description,
			Status:           domain.StatusPlanned,
			EstimatedMinutes: a.EstimatedMinutes,
			Trigger:          a.Trigger,
			Recurrence:       a.Recurrence,
			LastOccurrence:   &day,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := e.Repo.InsertActionTx(ctx, tx, instance); err != nil {
			return nil, err
		}
		if err := e.Events.Append(ctx, tx, "habit.spawned", a.UserID, "action", instance.ID, events.EventPayload{"source": a.ID, "day": day}); err != nil {
			return nil, err
		}
		// The copy is the live habit now. A completed predecessor rolls
		// over; an unfinished one stays behind as a one-off.
		if a.Status == domain.StatusCompleted {
			a.Status = domain.StatusRolledOver
		} else {
			a.Recurrence = nil
		}
		a.LastOccurrence = &day
		a.UpdatedAt = now
		if err := e.Repo.UpdateActionTx(ctx, tx, a); err != nil {
			return nil, err
		}
		spawned = append(spawned, instance)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return spawned, nil
}

func lastOccurrenceOf(a domain.Action) (time.Time, error) {
	if a.LastOccurrence != nil {
		return rules.ParseDate(*a.LastOccurrence)
	}
	return time.Parse(time.RFC3339, a.CreatedAt)
}

// ErrAlreadyOnboarded guards the at-most-once onboarding contract.
var ErrAlreadyOnboarded = errors.New("user already onboarded")

// Onboard generates the starter hierarchy for a new user and persists the
// whole batch plus the status record in one transaction.
func (e Engine) Onboard(ctx context.Context, userID string, cfg *config.Config) (rules.OnboardingBatch, error) {
	if _, err := e.Repo.GetOnboardingStatus(ctx, userID); err == nil {
		return rules.OnboardingBatch{}, ErrAlreadyOnboarded
	} else if !errors.Is(err, repo.ErrNotFound) {
		return rules.OnboardingBatch{}, err
	}
	gen := rules.Generator{NewID: e.newID, Now: e.now}
	batch, err := gen.DefaultEntities(userID, cfg)
	if err != nil {
		return rules.OnboardingBatch{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return rules.OnboardingBatch{}, err
	}
	defer tx.Rollback()
	for _, d := range batch.Drivers {
		if err := e.Repo.InsertDriverTx(ctx, tx, d); err != nil {
			return rules.OnboardingBatch{}, err
		}
	}
	for _, m := range batch.Milestones {
		if err := e.Repo.InsertMilestoneTx(ctx, tx, m); err != nil {
			return rules.OnboardingBatch{}, err
		}
	}
	for _, a := range batch.Actions {
		if err := e.Repo.InsertActionTx(ctx, tx, a); err != nil {
			return rules.OnboardingBatch{}, err
		}
	}
	if err := e.Repo.InsertOnboardingStatusTx(ctx, tx, batch.Status); err != nil {
		return rules.OnboardingBatch{}, err
	}
	if err := e.Events.Append(ctx, tx, "user.onboarded", userID, "onboarding", userID, events.EventPayload{
		"version":    batch.Status.Version,
		"drivers":    len(batch.Drivers),
		"milestones": len(batch.Milestones),
		"actions":    len(batch.Actions),
	}); err != nil {
		return rules.OnboardingBatch{}, err
	}
	if err := tx.Commit(); err != nil {
		return rules.OnboardingBatch{}, err
	}
	return batch, nil
}

// DetectOrphans loads the user's full collections and runs the detector.
func (e Engine) DetectOrphans(ctx context.Context, userID string) (domain.OrphanReport, error) {
	drivers, err := e.Repo.ListDrivers(ctx, userID)
	if err != nil {
		return domain.OrphanReport{}, err
	}
	milestones, err := e.Repo.ListMilestones(ctx, userID)
	if err != nil {
		return domain.OrphanReport{}, err
	}
	actions, err := e.Repo.ListActions(ctx, userID)
	if err != nil {
		return domain.OrphanReport{}, err
	}
	return rules.DetectOrphans(drivers, milestones, actions), nil
}
