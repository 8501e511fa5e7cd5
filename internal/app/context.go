package app

import (
	"errors"
	"io/fs"
	"path/filepath"

	"stride/internal/config"
)

// ResolveOnboardingConfig picks the onboarding template for a workspace. An
// explicit path wins, then .stride/onboarding.yaml in the workspace, then the
// embedded default.
func ResolveOnboardingConfig(workspace, override string) (*config.Config, error) {
	if override != "" {
		return config.FromFile(override)
	}
	candidate := filepath.Join(workspace, ".stride", "onboarding.yaml")
	cfg, err := config.FromFile(candidate)
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return config.Default(), nil
	}
	return nil, err
}
