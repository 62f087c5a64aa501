package build

import (
	"context"
	"time"

	"git.home.luguber.info/inful/targetbuilder/internal/binaries"
	"git.home.luguber.info/inful/targetbuilder/internal/pch"
	"git.home.luguber.info/inful/targetbuilder/internal/receipt"
	"git.home.luguber.info/inful/targetbuilder/internal/rules"
)

// BuildService is the canonical interface for executing target builds.
type BuildService interface {
	// Run executes the build pipeline for one target invocation.
	// It returns a BuildResult even when the build fails.
	Run(ctx context.Context, req BuildRequest) (*BuildResult, error)
}

// BuildRequest contains all inputs required to execute a build.
type BuildRequest struct {
	// Target identifies the target, platform, configuration and filters.
	Target rules.TargetDescriptor

	// Options override target rules for this invocation.
	Options BuildOptions
}

// BuildOptions provides optional configuration for build behavior.
type BuildOptions struct {
	Precompile     bool
	UsePrecompiled bool
	DisableLinking bool
	// GenerateManifest writes Manifest.json after the receipt.
	GenerateManifest bool
}

// BuildResult contains the outcome of a build execution.
type BuildResult struct {
	Status  BuildStatus
	BuildID string

	// Receipt is the prepared receipt, nil when linking is disabled or the
	// build failed before compilation.
	Receipt    *receipt.Receipt
	Binaries   []*binaries.Binary
	SharedPCHs []pch.Template
	// Produced lists the files reported by the toolchain.
	Produced     []string
	ManifestFile string
	FilesCleaned int
	Warnings     []string

	// FailedStage names the stage that stopped the build.
	FailedStage    StageName
	StageDurations map[StageName]time.Duration

	Duration  time.Duration
	StartTime time.Time
	EndTime   time.Time
}

// BuildStatus represents the outcome of a build execution.
type BuildStatus string

const (
	BuildStatusSuccess   BuildStatus = "success"
	BuildStatusFailed    BuildStatus = "failed"
	BuildStatusCancelled BuildStatus = "cancelled"
)

// IsSuccess returns true if the build completed successfully.
func (s BuildStatus) IsSuccess() bool { return s == BuildStatusSuccess }
