package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is the configuration file looked up when --config is not given.
const DefaultFileName = "targetbuilder.yaml"

// Config represents the targetbuilder configuration file.
type Config struct {
	// EngineDir is the root of the engine tree (holds Source/, Plugins/, Build/).
	EngineDir string `yaml:"engine_dir"`
	// ProjectFile is the optional project descriptor; empty means an engine-only target.
	ProjectFile string `yaml:"project_file,omitempty"`

	EngineInstalled  bool   `yaml:"engine_installed,omitempty"`
	ProjectInstalled bool   `yaml:"project_installed,omitempty"`
	HostPlatform     string `yaml:"host_platform,omitempty"`

	Logging   LoggingConfig   `yaml:"logging,omitempty"`
	Clean     CleanConfig     `yaml:"clean,omitempty"`
	History   HistoryConfig   `yaml:"history,omitempty"`
	Metrics   MetricsConfig   `yaml:"metrics,omitempty"`
	Version   VersionConfig   `yaml:"version,omitempty"`
	Toolchain ToolchainConfig `yaml:"toolchain,omitempty"`
	Manifest  ManifestConfig  `yaml:"manifest,omitempty"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  LogLevel  `yaml:"level,omitempty"`
	Format LogFormat `yaml:"format,omitempty"`
}

// CleanConfig tunes the retry loop used when deleting stale artifacts.
type CleanConfig struct {
	RetryBackoff      RetryBackoffMode `yaml:"retry_backoff,omitempty"`
	RetryInitialDelay string           `yaml:"retry_initial_delay,omitempty"`
	RetryStep         string           `yaml:"retry_step,omitempty"`
	RetryMaxDelay     string           `yaml:"retry_max_delay,omitempty"`
	MaxRetries        int              `yaml:"max_retries,omitempty"`
}

// HistoryConfig controls the SQLite build history store.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path,omitempty"`
}

// MetricsConfig controls metrics export. An empty Textfile disables export.
type MetricsConfig struct {
	Textfile string `yaml:"textfile,omitempty"`
}

// VersionConfig controls where the build version marker comes from.
type VersionConfig struct {
	File    string `yaml:"file,omitempty"`
	FromGit bool   `yaml:"from_git,omitempty"`
}

// ToolchainConfig names the external compiler driver invoked per binary.
type ToolchainConfig struct {
	Command string   `yaml:"command,omitempty"`
	Args    []string `yaml:"args,omitempty"`
	DryRun  bool     `yaml:"dry_run,omitempty"`
}

// ManifestConfig controls publishing manifest generation.
type ManifestConfig struct {
	Generate bool `yaml:"generate,omitempty"`
}

// Load loads configuration from the specified file.
func Load(configPath string) (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes raw YAML, expanding environment variables first, then applies
// defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	expandedData := os.ExpandEnv(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expandedData), &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := applyDefaults(&config); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}

	if err := ValidateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// Init creates a new configuration file with example content.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	example := Config{
		EngineDir:   "/opt/engine",
		ProjectFile: "/work/MyGame/MyGame.project.yaml",
		Logging:     LoggingConfig{Level: LogLevelInfo, Format: LogFormatText},
		History:     HistoryConfig{Enabled: true},
		Version:     VersionConfig{FromGit: true},
		Toolchain:   ToolchainConfig{Command: "clang-driver", Args: []string{"--binary", "$(Binary)"}},
		Manifest:    ManifestConfig{Generate: true},
	}
	if err := applyDefaults(&example); err != nil {
		return err
	}

	data, err := yaml.Marshal(&example)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func applyDefaults(config *Config) error {
	return NewDefaultApplier().ApplyDefaults(config)
}
