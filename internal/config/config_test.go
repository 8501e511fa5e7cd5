package config_test

import (
	"strings"
	"testing"

	"stride/internal/config"
)

func TestDefaultTemplateValid(t *testing.T) {
	cfg := config.Default()
	if cfg.Version == "" {
		t.Fatalf("default template must carry a version")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default template invalid: %v", err)
	}
}

func TestValidateFailFast(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{"missing version", func(c *config.Config) { c.Version = "" }, "version is required"},
		{"no drivers", func(c *config.Config) { c.Drivers = nil }, "at least one driver"},
		{"driver without title", func(c *config.Config) { c.Drivers[0].Title = "" }, "must have a title"},
		{"driver without active", func(c *config.Config) { c.Drivers[0].Active = nil }, "must set active"},
		{"driver without milestones", func(c *config.Config) { c.Drivers[0].Milestones = nil }, "at least one milestone"},
		{"milestone without title", func(c *config.Config) { c.Drivers[0].Milestones[0].Title = "" }, "without a title"},
		{"milestone without actions", func(c *config.Config) { c.Drivers[0].Milestones[0].Actions = nil }, "at least one action"},
		{"action without title", func(c *config.Config) { c.Drivers[0].Milestones[0].Actions[0].Title = "" }, "without a title"},
		{"action with bad status", func(c *config.Config) { c.Drivers[0].Milestones[0].Actions[0].Status = "done" }, "invalid status"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestFromYAMLRejectsGarbage(t *testing.T) {
	if _, err := config.FromYAML([]byte("::not yaml::")); err == nil {
		t.Fatalf("expected parse error")
	}
	if _, err := config.FromYAML([]byte("version: \"2.0\"\ndrivers: []\n")); err == nil {
		t.Fatalf("expected validation error")
	}
}
