package rules

import (
	"fmt"
	"time"

	"stride/internal/config"
	"stride/internal/domain"
)

// OnboardingBatch is the full entity graph generated for a new user, plus the
// status record marking onboarding complete.
type OnboardingBatch struct {
	Drivers    []domain.Driver
	Milestones []domain.Milestone
	Actions    []domain.Action
	Status     domain.OnboardingStatus
}

// Generator fabricates a user's starter hierarchy from an onboarding
// document. The clock and id source are injected so tests can pin both;
// production wiring supplies time.Now and uuid.
type Generator struct {
	NewID func() string
	Now   func() time.Time
}

// DefaultEntities walks the document depth-first and mints a schema-valid
// entity per definition. Every milestone references a driver from the same
// batch, every action a milestone from the same batch, and all entities carry
// the same timestamp: onboarding is one logical moment. No I/O happens here;
// the caller checks prior onboarding status and persists the batch
// transactionally.
func (g Generator) DefaultEntities(userID string, cfg *config.Config) (OnboardingBatch, error) {
	if userID == "" {
		return OnboardingBatch{}, fmt.Errorf("user id is required")
	}
	if err := cfg.Validate(); err != nil {
		return OnboardingBatch{}, err
	}
	now := g.Now()
	ts := now.UTC().Format(time.RFC3339)
	batch := OnboardingBatch{
		Drivers:    []domain.Driver{},
		Milestones: []domain.Milestone{},
		Actions:    []domain.Action{},
	}
	for _, dd := range cfg.Drivers {
		d := domain.Driver{
			ID:          g.NewID(),
			UserID:      userID,
			Title:       dd.Title,
			Description: dd.Description,
			Active:      dd.Active == nil || *dd.Active,
			CreatedAt:   ts,
			UpdatedAt:   ts,
		}
		if err := ValidateDriver(d); err != nil {
			return OnboardingBatch{}, err
		}
		batch.Drivers = append(batch.Drivers, d)
		for _, md := range dd.Milestones {
			m := domain.Milestone{
				ID:          g.NewID(),
				UserID:      userID,
				DriverID:    d.ID,
				Title:       md.Title,
				Description: md.Description,
				CreatedAt:   ts,
				UpdatedAt:   ts,
			}
			if md.TargetDate != "" {
				target := md.TargetDate
				m.TargetDate = &target
			}
			if err := ValidateMilestone(m); err != nil {
				return OnboardingBatch{}, err
			}
			batch.Milestones = append(batch.Milestones, m)
			for _, ad := range md.Actions {
				a := domain.Action{
					ID:          g.NewID(),
					UserID:      userID,
					MilestoneID: m.ID,
					Title:       ad.Title,
					Description: ad.Description,
					Status:      ad.Status,
					Trigger:     ad.Trigger,
					Recurrence:  ad.Recurrence.Pattern(),
					CreatedAt:   ts,
					UpdatedAt:   ts,
				}
				if ad.EstimatedMinutes > 0 {
					est := ad.EstimatedMinutes
					a.EstimatedMinutes = &est
				}
				if err := ValidateAction(a, now); err != nil {
					return OnboardingBatch{}, err
				}
				batch.Actions = append(batch.Actions, a)
			}
		}
	}
	batch.Status = domain.OnboardingStatus{
		UserID:      userID,
		Onboarded:   true,
		Version:     cfg.Version,
		CompletedAt: ts,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
	return batch, nil
}
