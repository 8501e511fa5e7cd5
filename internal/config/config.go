package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"stride/internal/domain"
)

// Config models the versioned onboarding document: the nested
// driver -> milestone -> action definitions seeded into a new account.
type Config struct {
	Version string      `yaml:"version"`
	Drivers []DriverDef `yaml:"drivers"`
}

type DriverDef struct {
	Title       string         `yaml:"title"`
	Description string         `yaml:"description"`
	Active      *bool          `yaml:"active"`
	Milestones  []MilestoneDef `yaml:"milestones"`
}

type MilestoneDef struct {
	Title       string      `yaml:"title"`
	Description string      `yaml:"description"`
	TargetDate  string      `yaml:"target_date"`
	Actions     []ActionDef `yaml:"actions"`
}

type ActionDef struct {
	Title            string         `yaml:"title"`
	Description      string         `yaml:"description"`
	Status           string         `yaml:"status"`
	EstimatedMinutes int            `yaml:"estimated_minutes"`
	Trigger          string         `yaml:"trigger"`
	Recurrence       *RecurrenceDef `yaml:"recurrence"`
}

type RecurrenceDef struct {
	Frequency  string `yaml:"frequency"`
	DaysOfWeek []int  `yaml:"days_of_week"`
	DayOfMonth *int   `yaml:"day_of_month"`
	EndDate    string `yaml:"end_date"`
}

// Validate walks the document depth-first and fails on the first structural
// violation. This protects a build-time artifact, not interactive input, so a
// fast precise failure beats an exhaustive one.
func (c *Config) Validate() error {
	if c.Version == "" {
		return fmt.Errorf("config.version is required")
	}
	if len(c.Drivers) == 0 {
		return fmt.Errorf("config must have at least one driver")
	}
	for i, d := range c.Drivers {
		if d.Title == "" {
			return fmt.Errorf("driver %d must have a title", i)
		}
		if d.Active == nil {
			return fmt.Errorf("driver %q must set active", d.Title)
		}
		if len(d.Milestones) == 0 {
			return fmt.Errorf("driver %q must have at least one milestone", d.Title)
		}
		for _, m := range d.Milestones {
			if m.Title == "" {
				return fmt.Errorf("driver %q has a milestone without a title", d.Title)
			}
			if len(m.Actions) == 0 {
				return fmt.Errorf("milestone %q must have at least one action", m.Title)
			}
			for _, a := range m.Actions {
				if a.Title == "" {
					return fmt.Errorf("milestone %q has an action without a title", m.Title)
				}
				if !domain.KnownStatus(a.Status) {
					return fmt.Errorf("action %q has invalid status %q", a.Title, a.Status)
				}
			}
		}
	}
	return nil
}

// Pattern converts a recurrence definition to its domain form.
func (r *RecurrenceDef) Pattern() *domain.RecurrencePattern {
	if r == nil {
		return nil
	}
	p := &domain.RecurrencePattern{
		Frequency:  r.Frequency,
		DaysOfWeek: r.DaysOfWeek,
		DayOfMonth: r.DayOfMonth,
	}
	if r.EndDate != "" {
		end := r.EndDate
		p.EndDate = &end
	}
	return p
}

// FromYAML parses and validates an onboarding document from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid onboarding yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads an onboarding document from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

// Default returns the built-in onboarding document.
func Default() *Config {
	cfg, err := FromYAML([]byte(defaultTemplate))
	if err != nil {
		panic(fmt.Sprintf("built-in onboarding template invalid: %v", err))
	}
	return cfg
}

const defaultTemplate = `version: "1.0"

drivers:
  - title: "Health & Energy"
    description: "Stay physically capable of everything else"
    active: true
    milestones:
      - title: "Build a daily movement habit"
        actions:
          - title: "Take a 20 minute walk"
            status: planned
            estimated_minutes: 20
            trigger: "After morning coffee"
            recurrence:
              frequency: daily
          - title: "Strength session"
            status: planned
            estimated_minutes: 45
            recurrence:
              frequency: weekly
              days_of_week: [1, 3, 5]
  - title: "Learning"
    description: "Keep growing a durable skill"
    active: true
    milestones:
      - title: "Read one book this month"
        actions:
          - title: "Read 20 pages"
            status: planned
            estimated_minutes: 30
            trigger: "Before bed"
            recurrence:
              frequency: daily
          - title: "Write a short review"
            status: planned
            estimated_minutes: 25
`
