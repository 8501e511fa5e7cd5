package server

import (
	"stride/internal/domain"
)

// Request payloads

type CreateDriverRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	Active      *bool   `json:"active,omitempty"`
}

type UpdateDriverRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Active      *bool   `json:"active,omitempty"`
	Archived    *bool   `json:"archived,omitempty"`
}

type CreateMilestoneRequest struct {
	DriverID    string  `json:"driver_id"`
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	TargetDate  *string `json:"target_date,omitempty" format:"date"`
}

type UpdateMilestoneRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	TargetDate  *string `json:"target_date,omitempty" format:"date"`
}

type RecurrenceRequest struct {
	Frequency  string  `json:"frequency" enum:"daily,weekly,monthly"`
	DaysOfWeek []int   `json:"days_of_week,omitempty"`
	DayOfMonth *int    `json:"day_of_month,omitempty"`
	EndDate    *string `json:"end_date,omitempty" format:"date"`
}

type CreateActionRequest struct {
	MilestoneID      string             `json:"milestone_id"`
	Title            string             `json:"title"`
	Description      *string            `json:"description,omitempty"`
	Status           *string            `json:"status,omitempty" enum:"planned,in-progress,completed,deferred,rolled-over"`
	EstimatedMinutes *int               `json:"estimated_minutes,omitempty"`
	Trigger          *string            `json:"trigger,omitempty"`
	Recurrence       *RecurrenceRequest `json:"recurrence,omitempty"`
}

type UpdateActionRequest struct {
	Title            *string            `json:"title,omitempty"`
	Description      *string            `json:"description,omitempty"`
	EstimatedMinutes *int               `json:"estimated_minutes,omitempty"`
	Trigger          *string            `json:"trigger,omitempty"`
	Recurrence       *RecurrenceRequest `json:"recurrence,omitempty"`
}

type MoveActionRequest struct {
	Status string `json:"status" enum:"planned,in-progress,completed,deferred,rolled-over"`
}

type RunHabitsRequest struct {
	Date *string `json:"date,omitempty" format:"date"`
}

type DevLoginRequest struct {
	UserID string `json:"user_id"`
}

type DevLoginResponse struct {
	Token string `json:"token"`
}

// Response payloads

type DriverResponse struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Active      bool   `json:"active"`
	Archived    bool   `json:"archived"`
	CreatedAt   string `json:"created_at" format:"date-time"`
	UpdatedAt   string `json:"updated_at" format:"date-time"`
}

type MilestoneResponse struct {
	ID          string  `json:"id"`
	DriverID    string  `json:"driver_id"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	TargetDate  *string `json:"target_date,omitempty" format:"date"`
	CreatedAt   string  `json:"created_at" format:"date-time"`
	UpdatedAt   string  `json:"updated_at" format:"date-time"`
}

type ActionResponse struct {
	ID               string                    `json:"id"`
	MilestoneID      string                    `json:"milestone_id"`
	Title            string                    `json:"title"`
	Description      string                    `json:"description,omitempty"`
	Status           string                    `json:"status" enum:"planned,in-progress,completed,deferred,rolled-over"`
	EstimatedMinutes *int                      `json:"estimated_minutes,omitempty"`
	Trigger          string                    `json:"trigger,omitempty"`
	Recurrence       *domain.RecurrencePattern `json:"recurrence,omitempty"`
	LastOccurrence   *string                   `json:"last_occurrence,omitempty" format:"date"`
	CreatedAt        string                    `json:"created_at" format:"date-time"`
	UpdatedAt        string                    `json:"updated_at" format:"date-time"`
	CompletedAt      *string                   `json:"completed_at,omitempty" format:"date-time"`
}

type OnboardingResponse struct {
	Onboarded   bool                `json:"onboarded"`
	Version     string              `json:"version,omitempty"`
	CompletedAt string              `json:"completed_at,omitempty" format:"date-time"`
	Drivers     []DriverResponse    `json:"drivers,omitempty"`
	Milestones  []MilestoneResponse `json:"milestones,omitempty"`
	Actions     []ActionResponse    `json:"actions,omitempty"`
}

type OrphanReportResponse struct {
	OrphanedDrivers    []DriverResponse    `json:"orphaned_drivers"`
	OrphanedMilestones []MilestoneResponse `json:"orphaned_milestones"`
	OrphanedActions    []ActionResponse    `json:"orphaned_actions"`
}

type DriverImpactResponse struct {
	DriverID   string `json:"driver_id"`
	Milestones int    `json:"milestones"`
	Actions    int    `json:"actions"`
}

type EventResponse struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	Payload    string `json:"payload_json"`
}

// Mapping helpers

func driverResponse(d domain.Driver) DriverResponse {
	return DriverResponse{
		ID:          d.ID,
		Title:       d.Title,
		Description: d.Description,
		Active:      d.Active,
		Archived:    d.Archived,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func mapDrivers(items []domain.Driver) []DriverResponse {
	out := make([]DriverResponse, 0, len(items))
	for _, d := range items {
		out = append(out, driverResponse(d))
	}
	return out
}

func milestoneResponse(m domain.Milestone) MilestoneResponse {
	return MilestoneResponse{
		ID:          m.ID,
		DriverID:    m.DriverID,
		Title:       m.Title,
		Description: m.Description,
		TargetDate:  m.TargetDate,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func mapMilestones(items []domain.Milestone) []MilestoneResponse {
	out := make([]MilestoneResponse, 0, len(items))
	for _, m := range items {
		out = append(out, milestoneResponse(m))
	}
	return out
}

func actionResponse(a domain.Action) ActionResponse {
	return ActionResponse{
		ID:               a.ID,
		MilestoneID:      a.MilestoneID,
		Title:            a.Title,
		Description:      a.Description,
		Status:           a.Status,
		EstimatedMinutes: a.EstimatedMinutes,
		Trigger:          a.Trigger,
		Recurrence:       a.Recurrence,
		LastOccurrence:   a.LastOccurrence,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
		CompletedAt:      a.CompletedAt,
	}
}

func mapActions(items []domain.Action) []ActionResponse {
	out := make([]ActionResponse, 0, len(items))
	for _, a := range items {
		out = append(out, actionResponse(a))
	}
	return out
}

func eventResponse(evt domain.Event) EventResponse {
	return EventResponse{
		ID:         evt.ID,
		TS:         evt.TS,
		Type:       evt.Type,
		EntityKind: evt.EntityKind,
		EntityID:   evt.EntityID,
		Payload:    evt.Payload,
	}
}

func recurrenceFromRequest(r *RecurrenceRequest) *domain.RecurrencePattern {
	if r == nil {
		return nil
	}
	return &domain.RecurrencePattern{
		Frequency:  r.Frequency,
		DaysOfWeek: r.DaysOfWeek,
		DayOfMonth: r.DayOfMonth,
		EndDate:    r.EndDate,
	}
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
