package domain

// Frequency values for recurring actions.
const (
	FreqDaily   = "daily"
	FreqWeekly  = "weekly"
	FreqMonthly = "monthly"
)

// Action lifecycle states.
const (
	StatusPlanned    = "planned"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
	StatusDeferred   = "deferred"
	StatusRolledOver = "rolled-over"
)

// KnownStatus reports whether s names a lifecycle state.
func KnownStatus(s string) bool {
	switch s {
	case StatusPlanned, StatusInProgress, StatusCompleted, StatusDeferred, StatusRolledOver:
		return true
	}
	return false
}

type Driver struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Active      bool   `json:"active"`
	Archived    bool   `json:"archived"`
	CreatedAt   string `json:"created_at" format:"date-time"`
	UpdatedAt   string `json:"updated_at" format:"date-time"`
}

type Milestone struct {
	ID          string  `json:"id"`
	UserID      string  `json:"user_id"`
	DriverID    string  `json:"driver_id"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	TargetDate  *string `json:"target_date,omitempty" format:"date"`
	CreatedAt   string  `json:"created_at" format:"date-time"`
	UpdatedAt   string  `json:"updated_at" format:"date-time"`
}

type Action struct {
	ID               string             `json:"id"`
	UserID           string             `json:"user_id"`
	MilestoneID      string             `json:"milestone_id"`
	Title            string             `json:"title"`
	Description      string             `json:"description,omitempty"`
	Status           string             `json:"status" enum:"planned,in-progress,completed,deferred,rolled-over"`
	EstimatedMinutes *int               `json:"estimated_minutes,omitempty"`
	Trigger          string             `json:"trigger,omitempty"`
	Recurrence       *RecurrencePattern `json:"recurrence,omitempty"`
	LastOccurrence   *string            `json:"last_occurrence,omitempty" format:"date"`
	CreatedAt        string             `json:"created_at" format:"date-time"`
	UpdatedAt        string             `json:"updated_at" format:"date-time"`
	CompletedAt      *string            `json:"completed_at,omitempty" format:"date-time"`
}

// RecurrencePattern describes habitual repetition. DaysOfWeek uses 0=Sunday
// through 6=Saturday and only applies to weekly patterns; DayOfMonth only to
// monthly ones. EndDate is an ISO date string.
type RecurrencePattern struct {
	Frequency  string  `json:"frequency" enum:"daily,weekly,monthly"`
	DaysOfWeek []int   `json:"days_of_week,omitempty"`
	DayOfMonth *int    `json:"day_of_month,omitempty"`
	EndDate    *string `json:"end_date,omitempty" format:"date"`
}

type OnboardingStatus struct {
	UserID      string `json:"user_id"`
	Onboarded   bool   `json:"onboarded"`
	Version     string `json:"version"`
	CompletedAt string `json:"completed_at" format:"date-time"`
	CreatedAt   string `json:"created_at" format:"date-time"`
	UpdatedAt   string `json:"updated_at" format:"date-time"`
}

// OrphanReport lists structurally broken pieces of a user's hierarchy:
// milestones whose driver is gone, actions whose milestone is gone, and
// drivers that no milestone points at. Empty lists mean a healthy tree.
type OrphanReport struct {
	OrphanedDrivers    []Driver    `json:"orphaned_drivers"`
	OrphanedMilestones []Milestone `json:"orphaned_milestones"`
	OrphanedActions    []Action    `json:"orphaned_actions"`
}

// DeleteDriverImpact counts what a cascading driver delete would remove.
type DeleteDriverImpact struct {
	DriverID   string `json:"driver_id"`
	Milestones int    `json:"milestones"`
	Actions    int    `json:"actions"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	UserID     string `json:"user_id,omitempty"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	Payload    string `json:"payload_json"`
}
