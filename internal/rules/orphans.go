package rules

import (
	"stride/internal/domain"
)

// DetectOrphans scans a user's full entity collections and reports broken
// references. The three checks are independent set operations: an orphaned
// milestone's actions are still checked against the full milestone set.
// Detection never errors; orphans existing is a reportable condition, not an
// exceptional one.
func DetectOrphans(drivers []domain.Driver, milestones []domain.Milestone, actions []domain.Action) domain.OrphanReport {
	report := domain.OrphanReport{
		OrphanedDrivers:    []domain.Driver{},
		OrphanedMilestones: []domain.Milestone{},
		OrphanedActions:    []domain.Action{},
	}
	driverIDs := make(map[string]bool, len(drivers))
	for _, d := range drivers {
		driverIDs[d.ID] = true
	}
	milestoneIDs := make(map[string]bool, len(milestones))
	referenced := make(map[string]bool, len(milestones))
	for _, m := range milestones {
		milestoneIDs[m.ID] = true
		referenced[m.DriverID] = true
		if !driverIDs[m.DriverID] {
			report.OrphanedMilestones = append(report.OrphanedMilestones, m)
		}
	}
	for _, a := range actions {
		if !milestoneIDs[a.MilestoneID] {
			report.OrphanedActions = append(report.OrphanedActions, a)
		}
	}
	for _, d := range drivers {
		if !referenced[d.ID] {
			report.OrphanedDrivers = append(report.OrphanedDrivers, d)
		}
	}
	return report
}

// WouldMilestoneBeOrphaned reports whether driverID is absent from drivers.
func WouldMilestoneBeOrphaned(driverID string, drivers []domain.Driver) bool {
	for _, d := range drivers {
		if d.ID == driverID {
			return false
		}
	}
	return true
}

// WouldActionBeOrphaned reports whether milestoneID is absent from milestones.
func WouldActionBeOrphaned(milestoneID string, milestones []domain.Milestone) bool {
	for _, m := range milestones {
		if m.ID == milestoneID {
			return false
		}
	}
	return true
}

// ValidateMilestoneNotOrphaned is the hard creation-time guard: a milestone
// must be linked to an existing driver.
func ValidateMilestoneNotOrphaned(driverID string, drivers []domain.Driver) error {
	if WouldMilestoneBeOrphaned(driverID, drivers) {
		return &ReferentialIntegrityError{
			Kind:    "driver",
			RefID:   driverID,
			Message: "milestones must be linked to a driver",
		}
	}
	return nil
}

// ValidateActionNotOrphaned is the hard creation-time guard: an action must
// be linked to an existing milestone.
func ValidateActionNotOrphaned(milestoneID string, milestones []domain.Milestone) error {
	if WouldActionBeOrphaned(milestoneID, milestones) {
		return &ReferentialIntegrityError{
			Kind:    "milestone",
			RefID:   milestoneID,
			Message: "actions must be linked to a milestone",
		}
	}
	return nil
}

// DeleteImpact counts the milestones directly under a driver and the actions
// transitively under those milestones. It only previews; executing the
// cascade belongs to the persistence layer.
func DeleteImpact(driverID string, milestones []domain.Milestone, actions []domain.Action) domain.DeleteDriverImpact {
	impact := domain.DeleteDriverImpact{DriverID: driverID}
	under := make(map[string]bool)
	for _, m := range milestones {
		if m.DriverID == driverID {
			impact.Milestones++
			under[m.ID] = true
		}
	}
	for _, a := range actions {
		if under[a.MilestoneID] {
			impact.Actions++
		}
	}
	return impact
}
