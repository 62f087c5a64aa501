package config

import (
	"fmt"
	"path/filepath"
	"runtime"
)

// ConfigDefaultApplier applies defaults for a specific configuration domain.
type ConfigDefaultApplier interface {
	ApplyDefaults(cfg *Config) error
	Domain() string
}

// CompositeDefaultApplier runs every domain applier in order.
type CompositeDefaultApplier struct {
	appliers []ConfigDefaultApplier
}

// NewDefaultApplier creates the applier chain. Paths come first since later
// domains derive their locations from the engine dir.
func NewDefaultApplier() *CompositeDefaultApplier {
	return &CompositeDefaultApplier{
		appliers: []ConfigDefaultApplier{
			&PathsDefaultApplier{},
			&LoggingDefaultApplier{},
			&CleanDefaultApplier{},
			&HistoryDefaultApplier{},
			&VersionDefaultApplier{},
		},
	}
}

// ApplyDefaults applies defaults for all configuration domains.
func (c *CompositeDefaultApplier) ApplyDefaults(cfg *Config) error {
	for _, applier := range c.appliers {
		if err := applier.ApplyDefaults(cfg); err != nil {
			return fmt.Errorf("applying defaults for %s: %w", applier.Domain(), err)
		}
	}
	return nil
}

// GetApplierByDomain returns a specific domain applier (useful for testing).
func (c *CompositeDefaultApplier) GetApplierByDomain(domain string) ConfigDefaultApplier {
	for _, applier := range c.appliers {
		if applier.Domain() == domain {
			return applier
		}
	}
	return nil
}

// PathsDefaultApplier cleans root directories and fills the host platform.
type PathsDefaultApplier struct{}

func (p *PathsDefaultApplier) Domain() string { return "paths" }

func (p *PathsDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.EngineDir != "" {
		cfg.EngineDir = filepath.Clean(cfg.EngineDir)
	}
	if cfg.ProjectFile != "" {
		cfg.ProjectFile = filepath.Clean(cfg.ProjectFile)
	}
	if cfg.HostPlatform == "" {
		cfg.HostPlatform = HostPlatformFor(runtime.GOOS)
	}
	return nil
}

// HostPlatformFor maps a GOOS value to the platform name used by declarations.
func HostPlatformFor(goos string) string {
	switch goos {
	case "windows":
		return "Win64"
	case "darwin":
		return "Mac"
	default:
		return "Linux"
	}
}

// LoggingDefaultApplier normalizes log level and format.
type LoggingDefaultApplier struct{}

func (l *LoggingDefaultApplier) Domain() string { return "logging" }

func (l *LoggingDefaultApplier) ApplyDefaults(cfg *Config) error {
	cfg.Logging.Level = NormalizeLogLevel(string(cfg.Logging.Level))
	cfg.Logging.Format = NormalizeLogFormat(string(cfg.Logging.Format))
	return nil
}

// CleanDefaultApplier sets the stale file deletion retry schedule: ten retries,
// starting at one second and growing by 200ms each time.
type CleanDefaultApplier struct{}

func (c *CleanDefaultApplier) Domain() string { return "clean" }

func (c *CleanDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Clean.RetryBackoff == "" {
		cfg.Clean.RetryBackoff = RetryBackoffStepped
	} else if mode := NormalizeRetryBackoff(string(cfg.Clean.RetryBackoff)); mode != "" {
		cfg.Clean.RetryBackoff = mode
	}
	if cfg.Clean.RetryInitialDelay == "" {
		cfg.Clean.RetryInitialDelay = "1s"
	}
	if cfg.Clean.RetryStep == "" {
		cfg.Clean.RetryStep = "200ms"
	}
	if cfg.Clean.RetryMaxDelay == "" {
		cfg.Clean.RetryMaxDelay = "30s"
	}
	if cfg.Clean.MaxRetries <= 0 {
		cfg.Clean.MaxRetries = 10
	}
	return nil
}

// HistoryDefaultApplier places the history database under the engine intermediate dir.
type HistoryDefaultApplier struct{}

func (h *HistoryDefaultApplier) Domain() string { return "history" }

func (h *HistoryDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.History.Path == "" && cfg.EngineDir != "" {
		cfg.History.Path = filepath.Join(cfg.EngineDir, "Intermediate", "Build", "history.db")
	}
	return nil
}

// VersionDefaultApplier points at the engine's Build.version file.
type VersionDefaultApplier struct{}

func (v *VersionDefaultApplier) Domain() string { return "version" }

func (v *VersionDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Version.File == "" && cfg.EngineDir != "" {
		cfg.Version.File = filepath.Join(cfg.EngineDir, "Build", "Build.version")
	}
	return nil
}
