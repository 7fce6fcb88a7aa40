package config

import (
	"fmt"
	"os"
	"path/filepath"

	"shielded-notes-go/internal/models"

	"gopkg.in/yaml.v2"
)

type syncOverrideEntry struct {
	Level  models.PrivacyLevel `yaml:"level"`
	Config models.SyncConfig   `yaml:"config"`
}

type syncOverridesFile struct {
	Levels []syncOverrideEntry `yaml:"levels"`
}

// LoadSyncOverrides reads per-level sync settings from a YAML file. Levels
// not listed keep their defaults.
func LoadSyncOverrides(configFile string) (map[models.PrivacyLevel]models.SyncConfig, error) {
	var configPath string
	if filepath.IsAbs(configFile) {
		configPath = configFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		configPath = filepath.Join(wd, configFile)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", configFile, err)
	}

	var parsed syncOverridesFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", configFile, err)
	}

	overrides := make(map[models.PrivacyLevel]models.SyncConfig, len(parsed.Levels))
	for i, entry := range parsed.Levels {
		if !entry.Level.Valid() {
			return nil, fmt.Errorf("entry at index %d has unknown privacy level %q", i, entry.Level)
		}
		overrides[entry.Level] = entry.Config
	}

	return overrides, nil
}
