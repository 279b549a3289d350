// Package config loads the optional YAML run configuration for
// anchorlint. The file is searched upward from the starting directory,
// so a repository root config applies to every program dump underneath it.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the configuration file anchorlint looks for.
const FileName = ".anchorlint.yaml"

// Config is the run configuration.
type Config struct {
	// Enable restricts the run to the named rules. Empty means all rules.
	Enable []string `yaml:"enable,omitempty"`
	// Disable removes rules from the run. Applied after Enable.
	Disable []string `yaml:"disable,omitempty"`
	// SeverityOverrides maps rule name to "note", "warning" or "error".
	SeverityOverrides map[string]string `yaml:"severity,omitempty"`
	// FailOn makes the driver exit nonzero when a diagnostic of this
	// severity or higher is produced. Empty means never fail.
	FailOn string `yaml:"fail-on,omitempty"`
}

// Default returns the configuration used when no file is found.
func Default() Config {
	return Config{FailOn: "warning"}
}

// Load searches startDir and its ancestors for FileName and decodes the
// first match. It returns the config, the path of the file it loaded
// (empty when none was found), and any read or decode error.
func Load(startDir string) (Config, string, error) {
	cfg := Default()
	dir := startDir
	for {
		candidate := filepath.Join(dir, FileName)
		if _, err := os.Stat(candidate); err == nil {
			b, err := os.ReadFile(candidate)
			if err != nil {
				return cfg, candidate, fmt.Errorf("config: reading %s: %w", candidate, err)
			}
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return cfg, candidate, fmt.Errorf("config: parsing %s: %w", candidate, err)
			}
			return cfg, candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return cfg, "", nil
}

// RuleEnabled reports whether the named rule should run.
func (c Config) RuleEnabled(name string) bool {
	if len(c.Enable) > 0 {
		found := false
		for _, n := range c.Enable {
			if n == name {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for _, n := range c.Disable {
		if n == name {
			return false
		}
	}
	return true
}
