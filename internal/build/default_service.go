package build

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/google/uuid"

	"git.home.luguber.info/inful/targetbuilder/internal/buildsteps"
	"git.home.luguber.info/inful/targetbuilder/internal/config"
	"git.home.luguber.info/inful/targetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/targetbuilder/internal/git"
	"git.home.luguber.info/inful/targetbuilder/internal/history"
	"git.home.luguber.info/inful/targetbuilder/internal/logfields"
	"git.home.luguber.info/inful/targetbuilder/internal/metrics"
	"git.home.luguber.info/inful/targetbuilder/internal/observability"
	"git.home.luguber.info/inful/targetbuilder/internal/retry"
	"git.home.luguber.info/inful/targetbuilder/internal/rules"
	"git.home.luguber.info/inful/targetbuilder/internal/toolchain"
)

// StepRunner executes custom build step scripts.
type StepRunner interface {
	Run(ctx context.Context, scripts []string) error
}

// ToolchainFactory returns the toolchain for a target platform.
type ToolchainFactory func(p rules.Platform) toolchain.Toolchain

// DefaultBuildService is the standard implementation of BuildService.
type DefaultBuildService struct {
	fs  billy.Filesystem
	cfg *config.Config

	toolchainFactory ToolchainFactory
	steps            StepRunner
	recorder         metrics.Recorder
	history          history.Store
	observers        []StageObserver
	newID            func() string
	disambiguator    func() string
	sleep            retry.Sleeper
	readGitVersion   func(path string) (git.Marker, error)
	logger           *slog.Logger
}

var _ BuildService = (*DefaultBuildService)(nil)

// NewBuildService creates a service reading declarations through fs.
func NewBuildService(fs billy.Filesystem, cfg *config.Config) *DefaultBuildService {
	s := &DefaultBuildService{
		fs:             fs,
		cfg:            cfg,
		recorder:       metrics.NoopRecorder{},
		newID:          uuid.NewString,
		disambiguator:  randomDisambiguator,
		readGitVersion: git.ReadVersion,
		logger:         slog.Default(),
	}
	s.toolchainFactory = func(p rules.Platform) toolchain.Toolchain {
		return toolchain.New(cfg.Toolchain, p, s.logger)
	}
	if cfg != nil {
		s.steps = buildsteps.NewRunner(rules.Platform(cfg.HostPlatform))
	}
	return s
}

// WithToolchainFactory replaces the toolchain selection.
func (s *DefaultBuildService) WithToolchainFactory(f ToolchainFactory) *DefaultBuildService {
	if f != nil {
		s.toolchainFactory = f
	}
	return s
}

// WithStepRunner replaces the custom build step runner.
func (s *DefaultBuildService) WithStepRunner(r StepRunner) *DefaultBuildService {
	if r != nil {
		s.steps = r
	}
	return s
}

// WithRecorder sets the metrics recorder.
func (s *DefaultBuildService) WithRecorder(r metrics.Recorder) *DefaultBuildService {
	if r != nil {
		s.recorder = r
	}
	return s
}

// WithHistory records build events in store.
func (s *DefaultBuildService) WithHistory(store history.Store) *DefaultBuildService {
	s.history = store
	return s
}

// WithObserver adds a stage observer.
func (s *DefaultBuildService) WithObserver(o StageObserver) *DefaultBuildService {
	s.observers = append(s.observers, o)
	return s
}

// WithIDGenerator replaces the build id source used for receipts and history.
func (s *DefaultBuildService) WithIDGenerator(fn func() string) *DefaultBuildService {
	if fn != nil {
		s.newID = fn
	}
	return s
}

// WithDisambiguator replaces the hot reload file name suffix source.
func (s *DefaultBuildService) WithDisambiguator(fn func() string) *DefaultBuildService {
	if fn != nil {
		s.disambiguator = fn
	}
	return s
}

// WithSleeper replaces the sleep used between cleanup retries.
func (s *DefaultBuildService) WithSleeper(fn retry.Sleeper) *DefaultBuildService {
	s.sleep = fn
	return s
}

// WithGitVersionReader replaces how the version marker is read from a git
// checkout when version.from_git is enabled.
func (s *DefaultBuildService) WithGitVersionReader(fn func(path string) (git.Marker, error)) *DefaultBuildService {
	if fn != nil {
		s.readGitVersion = fn
	}
	return s
}

// WithLogger replaces the service logger.
func (s *DefaultBuildService) WithLogger(l *slog.Logger) *DefaultBuildService {
	if l != nil {
		s.logger = l
	}
	return s
}

func randomDisambiguator() string {
	return fmt.Sprintf("%04d", rand.IntN(9999)+1)
}

// pipeline returns the stages for req in execution order.
func (s *DefaultBuildService) pipeline(req BuildRequest) *Pipeline {
	desc := req.Target
	filtering := len(desc.OnlyModules) > 0 || desc.HotReload || desc.SingleFile != "" ||
		(s.cfg != nil && s.cfg.ProjectInstalled)
	return NewPipeline().
		Add(StageSetup, s.stageSetup).
		AddIf(filtering, StageFilter, s.stageFilter).
		Add(StagePolicy, s.stagePolicy).
		Add(StagePreBuild, s.stagePreBuild).
		Add(StageLinkerFixups, s.stageLinkerFixups).
		Add(StageSharedPCH, s.stageSharedPCH).
		Add(StageCompile, s.stageCompile).
		Add(StageReceipt, s.stageReceipt).
		Add(StagePostBuild, s.stagePostBuild)
}

// Run executes the complete build pipeline.
func (s *DefaultBuildService) Run(ctx context.Context, req BuildRequest) (*BuildResult, error) {
	start := time.Now()
	buildID := s.newID()
	result := &BuildResult{BuildID: buildID, StartTime: start}

	ctx = observability.WithBuildID(ctx, buildID)
	ctx = observability.WithTarget(ctx, req.Target.Name)

	if s.cfg == nil {
		err := errors.ConfigError("config required").Build()
		s.finish(ctx, result, nil, BuildStatusFailed, err)
		return result, err
	}

	s.record(ctx, buildID, history.TypeBuildStarted, history.BuildStarted{
		Target:        req.Target.Name,
		Platform:      string(req.Target.Platform),
		Configuration: string(req.Target.Configuration),
		Architecture:  req.Target.Architecture,
	})
	observability.InfoContext(ctx, "Starting build",
		logfields.Platform(string(req.Target.Platform)),
		logfields.Configuration(string(req.Target.Configuration)))

	observers := append([]StageObserver{RecorderObserver{Recorder: s.recorder}}, s.observers...)
	if s.history != nil {
		observers = append(observers, HistoryObserver{Store: s.history, BuildID: buildID, Logger: s.logger})
	}

	st := newState(req, buildID)
	err := runStages(ctx, st, s.pipeline(req).Build(), observers)

	status := BuildStatusSuccess
	if err != nil {
		status = BuildStatusFailed
		var se *StageError
		if stderrors.As(err, &se) {
			result.FailedStage = se.Stage
			if se.Kind == StageErrorCanceled {
				status = BuildStatusCancelled
			}
		}
	}
	s.finish(ctx, result, st, status, err)
	if err != nil {
		observability.ErrorContext(ctx, "Build failed", logfields.Error(err))
		return result, err
	}
	observability.InfoContext(ctx, "Build succeeded",
		logfields.Count(len(result.Binaries)),
		logfields.DurationMS(float64(result.Duration.Milliseconds())))
	return result, nil
}

func (s *DefaultBuildService) finish(ctx context.Context, result *BuildResult, st *State, status BuildStatus, err error) {
	result.Status = status
	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)
	if st != nil {
		result.Receipt = st.Receipt
		result.Binaries = st.Binaries
		result.SharedPCHs = st.SharedPCHs
		result.Produced = st.Produced
		result.ManifestFile = st.ManifestFile
		result.FilesCleaned = st.FilesCleaned
		result.Warnings = st.Warnings
		result.StageDurations = st.StageDurations
	}

	s.recorder.ObserveBuildDuration(result.Duration)
	s.recorder.SetBinaryCount(len(result.Binaries))
	s.recorder.AddFilesProduced(len(result.Produced))
	s.recorder.AddFilesCleaned(result.FilesCleaned)
	switch status {
	case BuildStatusSuccess:
		s.recorder.IncBuildOutcome(metrics.BuildOutcomeSuccess)
	case BuildStatusCancelled:
		s.recorder.IncBuildOutcome(metrics.BuildOutcomeCanceled)
	default:
		s.recorder.IncBuildOutcome(metrics.BuildOutcomeFailed)
	}

	ev := history.BuildFinished{
		Status:       history.StatusSucceeded,
		DurationMS:   result.Duration.Milliseconds(),
		Binaries:     len(result.Binaries),
		FilesCleaned: result.FilesCleaned,
		ErrorStage:   string(result.FailedStage),
	}
	if status != BuildStatusSuccess {
		ev.Status = history.StatusFailed
	}
	if err != nil {
		ev.Error = err.Error()
	}
	s.record(ctx, result.BuildID, history.TypeBuildFinished, ev)
}

func (s *DefaultBuildService) record(ctx context.Context, buildID, eventType string, payload any) {
	if s.history == nil {
		return
	}
	if err := s.history.Append(context.WithoutCancel(ctx), buildID, eventType, payload, nil); err != nil {
		s.logger.Warn("Failed to record build event", slog.String("event", eventType), logfields.Error(err))
	}
}
