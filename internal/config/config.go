// Package config loads pipeline configuration from a YAML file with
// environment-variable overrides (LOGSPLIT_*) and defaults.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds everything a pipeline run needs.
type Config struct {
	// SourcePath is the mixed-kind document store LOG records are extracted from.
	SourcePath string `yaml:"source_path"`

	// TargetPath is the dedicated log store. Created if absent.
	TargetPath string `yaml:"target_path"`

	// BackupDir receives the timestamped safety copy of the source store.
	BackupDir string `yaml:"backup_dir"`

	// ReportDir receives the per-run JSON report.
	ReportDir string `yaml:"report_dir"`

	// AccessArtifactPath is where the generated query façade is written.
	AccessArtifactPath string `yaml:"access_artifact_path"`

	// AllowPartial permits pruning after an integrity mismatch. Requires
	// OverrideReason; the reason is embedded in the report.
	AllowPartial bool `yaml:"allow_partial"`

	// OverrideReason documents why a partial migration was accepted.
	OverrideReason string `yaml:"override_reason"`
}

// Default returns the configuration used when no file or overrides are given.
func Default() Config {
	return Config{
		SourcePath:         "production.db",
		TargetPath:         "logs.db",
		BackupDir:          "backups",
		ReportDir:          "reports",
		AccessArtifactPath: "unifiedaccess/facade.go",
	}
}

// Load reads the YAML file at path (if path is non-empty) over the defaults,
// then applies LOGSPLIT_* environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	overrides := []struct {
		env string
		dst *string
	}{
		{"LOGSPLIT_SOURCE", &cfg.SourcePath},
		{"LOGSPLIT_TARGET", &cfg.TargetPath},
		{"LOGSPLIT_BACKUP_DIR", &cfg.BackupDir},
		{"LOGSPLIT_REPORT_DIR", &cfg.ReportDir},
		{"LOGSPLIT_ACCESS_ARTIFACT", &cfg.AccessArtifactPath},
		{"LOGSPLIT_OVERRIDE_REASON", &cfg.OverrideReason},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.dst = v
		}
	}
	if v := os.Getenv("LOGSPLIT_ALLOW_PARTIAL"); v == "1" || v == "true" {
		cfg.AllowPartial = true
	}
}

// Validate checks required fields and the override pairing.
func (c Config) Validate() error {
	if c.SourcePath == "" {
		return errors.New("config: source_path is required")
	}
	if c.TargetPath == "" {
		return errors.New("config: target_path is required")
	}
	if c.SourcePath == c.TargetPath {
		return errors.New("config: source_path and target_path must differ")
	}
	if c.AllowPartial && c.OverrideReason == "" {
		return errors.New("config: allow_partial requires override_reason")
	}
	return nil
}
