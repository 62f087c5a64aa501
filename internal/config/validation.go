package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"
)

// ValidateConfig validates the complete configuration structure.
func ValidateConfig(cfg *Config) error {
	return newConfigurationValidator(cfg).validate()
}

type configurationValidator struct {
	config *Config
}

func newConfigurationValidator(config *Config) *configurationValidator {
	return &configurationValidator{config: config}
}

func (cv *configurationValidator) validate() error {
	if err := cv.validatePaths(); err != nil {
		return err
	}
	if err := cv.validateRetryBackoff(); err != nil {
		return err
	}
	if err := cv.validateRetryDelays(); err != nil {
		return err
	}
	return cv.validateToolchain()
}

func (cv *configurationValidator) validatePaths() error {
	if cv.config.EngineDir == "" {
		return errors.New("engine_dir must be set")
	}
	if cv.config.ProjectFile != "" && !filepath.IsAbs(cv.config.ProjectFile) && filepath.IsAbs(cv.config.EngineDir) {
		return fmt.Errorf("project_file must be absolute when engine_dir is absolute: %s", cv.config.ProjectFile)
	}
	if cv.config.ProjectInstalled && cv.config.ProjectFile == "" {
		return errors.New("project_installed requires project_file")
	}
	return nil
}

func (cv *configurationValidator) validateRetryBackoff() error {
	switch cv.config.Clean.RetryBackoff {
	case RetryBackoffFixed, RetryBackoffLinear, RetryBackoffExponential, RetryBackoffStepped:
		return nil
	default:
		return fmt.Errorf("invalid clean.retry_backoff: %s (allowed: fixed|linear|exponential|stepped)", cv.config.Clean.RetryBackoff)
	}
}

func (cv *configurationValidator) validateRetryDelays() error {
	clean := cv.config.Clean
	initDur, err := time.ParseDuration(clean.RetryInitialDelay)
	if err != nil {
		return fmt.Errorf("invalid clean.retry_initial_delay: %s: %w", clean.RetryInitialDelay, err)
	}
	if _, err := time.ParseDuration(clean.RetryStep); err != nil {
		return fmt.Errorf("invalid clean.retry_step: %s: %w", clean.RetryStep, err)
	}
	maxDur, err := time.ParseDuration(clean.RetryMaxDelay)
	if err != nil {
		return fmt.Errorf("invalid clean.retry_max_delay: %s: %w", clean.RetryMaxDelay, err)
	}
	if maxDur < initDur {
		return fmt.Errorf("clean.retry_max_delay (%s) must be >= clean.retry_initial_delay (%s)",
			clean.RetryMaxDelay, clean.RetryInitialDelay)
	}
	return nil
}

func (cv *configurationValidator) validateToolchain() error {
	if !cv.config.Toolchain.DryRun && cv.config.Toolchain.Command == "" {
		return errors.New("toolchain.command must be set unless toolchain.dry_run is enabled")
	}
	return nil
}

// Durations returns the parsed clean retry delays. Call after validation.
func (c CleanConfig) Durations() (initial, step, maxDelay time.Duration) {
	initial, _ = time.ParseDuration(c.RetryInitialDelay)
	step, _ = time.ParseDuration(c.RetryStep)
	maxDelay, _ = time.ParseDuration(c.RetryMaxDelay)
	return initial, step, maxDelay
}
