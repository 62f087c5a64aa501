package build

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/targetbuilder/internal/binaries"
	"git.home.luguber.info/inful/targetbuilder/internal/config"
	"git.home.luguber.info/inful/targetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/targetbuilder/internal/git"
	"git.home.luguber.info/inful/targetbuilder/internal/history"
	"git.home.luguber.info/inful/targetbuilder/internal/metrics"
	"git.home.luguber.info/inful/targetbuilder/internal/receipt"
	"git.home.luguber.info/inful/targetbuilder/internal/rules"
	"git.home.luguber.info/inful/targetbuilder/internal/toolchain"
	"git.home.luguber.info/inful/targetbuilder/internal/util/fsutil"
)

const (
	engineDir   = "/ue/Engine"
	projectFile = "/games/Shooter/Shooter.project.yaml"
	receiptFile = "/games/Shooter/Binaries/Linux/Shooter.target"
)

func baseTree() map[string]string {
	return map[string]string{
		projectFile: "modules:\n  - name: Shooter\n" +
			"pre_build_steps:\n  Linux: [\"echo pre\"]\n" +
			"post_build_steps:\n  Linux: [\"echo post\"]\n",
		"/games/Shooter/Source/Shooter.target.yaml":                 "type: Game\nlaunch_module: Launch\nextra_modules: [Shooter]\n",
		"/ue/Engine/Source/Runtime/Core/Core.build.yaml":            "",
		"/ue/Engine/Source/Runtime/Core/Private/Core.cpp":           "",
		"/ue/Engine/Source/Runtime/Engine/Engine.build.yaml":        "public_dependencies: [Core]\n",
		"/ue/Engine/Source/Runtime/Engine/Private/Engine.cpp":       "",
		"/ue/Engine/Source/Runtime/Launch/Launch.build.yaml":        "public_dependencies: [Engine]\n",
		"/ue/Engine/Source/Runtime/Launch/Private/Launch.cpp":       "",
		"/games/Shooter/Source/Shooter/Shooter.build.yaml":          "public_dependencies: [Engine]\n",
		"/games/Shooter/Source/Shooter/Private/Shooter.cpp":         "",
		"/ue/Engine/Source/Developer/DevTools/DevTools.build.yaml":  "",
		"/ue/Engine/Source/Developer/DevTools/Private/DevTools.cpp": "",
	}
}

func newFS(t *testing.T, files map[string]string) billy.Filesystem {
	t.Helper()
	fs := memfs.New()
	for path, content := range files {
		require.NoError(t, util.WriteFile(fs, path, []byte(content), 0o644))
	}
	return fs
}

func testConfig(project string) *config.Config {
	return &config.Config{
		EngineDir:    engineDir,
		ProjectFile:  project,
		HostPlatform: "Linux",
		Toolchain:    config.ToolchainConfig{DryRun: true},
	}
}

type fakeSteps struct {
	mu   sync.Mutex
	runs [][]string
	err  error
}

func (f *fakeSteps) Run(_ context.Context, scripts []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, scripts)
	if len(scripts) > 0 && f.err != nil {
		return f.err
	}
	return nil
}

// failingToolchain reports products like the dry run driver but fails to
// compile binaries containing the named module.
type failingToolchain struct {
	*toolchain.DryRun
	module string
}

func (f failingToolchain) Compile(ctx context.Context, b *binaries.Binary, env toolchain.Env) ([]string, error) {
	if b.HasModule(f.module) {
		return nil, errors.ExternalStepError("compiler exited").WithExitCode(2).Build()
	}
	return f.DryRun.Compile(ctx, b, env)
}

type fakeRecorder struct {
	mu       sync.Mutex
	stages   map[string]metrics.ResultLabel
	outcomes []metrics.BuildOutcomeLabel
	binaries int
	produced int
	cleaned  int
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{stages: map[string]metrics.ResultLabel{}}
}

func (r *fakeRecorder) ObserveStageDuration(string, time.Duration) {}
func (r *fakeRecorder) ObserveBuildDuration(time.Duration)         {}

func (r *fakeRecorder) IncStageResult(stage string, result metrics.ResultLabel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages[stage] = result
}

func (r *fakeRecorder) IncBuildOutcome(o metrics.BuildOutcomeLabel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, o)
}

func (r *fakeRecorder) SetBinaryCount(n int)   { r.binaries = n }
func (r *fakeRecorder) AddFilesProduced(n int) { r.produced += n }
func (r *fakeRecorder) AddFilesCleaned(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleaned += n
}

func newService(fs billy.Filesystem, cfg *config.Config, steps *fakeSteps) *DefaultBuildService {
	ids := 0
	return NewBuildService(fs, cfg).
		WithStepRunner(steps).
		WithSleeper(func(time.Duration) {}).
		WithIDGenerator(func() string {
			ids++
			return fmt.Sprintf("build-%d", ids)
		}).
		WithGitVersionReader(func(string) (git.Marker, error) {
			return git.Marker{}, stderrors.New("no repository")
		}).
		WithLogger(slog.New(slog.DiscardHandler))
}

func shooter(c rules.Configuration) BuildRequest {
	return BuildRequest{Target: rules.TargetDescriptor{
		Name:          "Shooter",
		Platform:      rules.PlatformLinux,
		Configuration: c,
	}}
}

func TestBuildStatus_IsSuccess(t *testing.T) {
	require.True(t, BuildStatusSuccess.IsSuccess())
	require.False(t, BuildStatusFailed.IsSuccess())
	require.False(t, BuildStatusCancelled.IsSuccess())
}

func TestRunBuildsMonolithicGame(t *testing.T) {
	fs := newFS(t, baseTree())
	steps := &fakeSteps{}
	rec := newFakeRecorder()
	svc := newService(fs, testConfig(projectFile), steps).WithRecorder(rec)

	result, err := svc.Run(context.Background(), shooter(rules.ConfigDevelopment))
	require.NoError(t, err)
	require.Equal(t, BuildStatusSuccess, result.Status)
	require.Equal(t, "build-1", result.BuildID)
	require.Empty(t, result.FailedStage)

	require.Len(t, result.Binaries, 1)
	exe := result.Binaries[0]
	require.Equal(t, "/games/Shooter/Binaries/Linux/Shooter", exe.PrimaryOutput())
	require.True(t, exe.HasModule(binaries.LinkerFixupsName))
	require.Equal(t, []string{"/games/Shooter/Binaries/Linux/Shooter"}, result.Produced)

	require.Len(t, steps.runs, 2)
	require.Len(t, steps.runs[0], 1)
	require.Len(t, steps.runs[1], 1)

	r, err := receipt.Read(fs, receiptFile)
	require.NoError(t, err)
	require.NotNil(t, r)
	require.Equal(t, "Shooter", r.TargetName)
	require.Contains(t, r.ProductPaths(), "$(ProjectDir)/Binaries/Linux/Shooter")

	for _, stage := range []StageName{StageSetup, StagePolicy, StagePreBuild, StageLinkerFixups, StageSharedPCH, StageCompile, StageReceipt, StagePostBuild} {
		require.Contains(t, result.StageDurations, stage)
		require.Equal(t, metrics.ResultSuccess, rec.stages[string(stage)], stage)
	}
	require.NotContains(t, result.StageDurations, StageFilter)
	require.Equal(t, []metrics.BuildOutcomeLabel{metrics.BuildOutcomeSuccess}, rec.outcomes)
	require.Equal(t, 1, rec.binaries)
}

func TestPipelineOrder(t *testing.T) {
	svc := newService(memfs.New(), testConfig(projectFile), &fakeSteps{})

	require.Equal(t, []StageName{
		StageSetup, StagePolicy, StagePreBuild, StageLinkerFixups,
		StageSharedPCH, StageCompile, StageReceipt, StagePostBuild,
	}, svc.pipeline(shooter(rules.ConfigDevelopment)).Names())

	req := shooter(rules.ConfigDevelopment)
	req.Target.HotReload = true
	require.Equal(t, StageFilter, svc.pipeline(req).Names()[1])
}

func TestCompileFailureSkipsReceiptAndPostBuild(t *testing.T) {
	fs := newFS(t, baseTree())
	steps := &fakeSteps{}
	rec := newFakeRecorder()
	svc := newService(fs, testConfig(projectFile), steps).
		WithRecorder(rec).
		WithToolchainFactory(func(p rules.Platform) toolchain.Toolchain {
			return failingToolchain{DryRun: toolchain.NewDryRun(p), module: "Shooter"}
		})

	result, err := svc.Run(context.Background(), shooter(rules.ConfigDevelopment))
	require.Error(t, err)
	require.Equal(t, BuildStatusFailed, result.Status)
	require.Equal(t, StageCompile, result.FailedStage)
	require.NotNil(t, result.Receipt)

	var se *StageError
	require.True(t, stderrors.As(err, &se))
	require.Equal(t, StageErrorFatal, se.Kind)
	require.Equal(t, 2, errors.NewCLIErrorAdapter(false, nil).ExitCodeFor(err))

	exists, err := fsutil.Exists(fs, receiptFile)
	require.NoError(t, err)
	require.False(t, exists)
	require.Len(t, steps.runs, 1, "post-build steps must not run")
	require.Equal(t, metrics.ResultFatal, rec.stages[string(StageCompile)])
	require.Equal(t, []metrics.BuildOutcomeLabel{metrics.BuildOutcomeFailed}, rec.outcomes)
}

func TestPreBuildFailureSurfacesExitCode(t *testing.T) {
	fs := newFS(t, baseTree())
	steps := &fakeSteps{err: errors.ExternalStepError("Custom build step terminated with exit code 3").
		WithExitCode(3).Build()}
	svc := newService(fs, testConfig(projectFile), steps)

	result, err := svc.Run(context.Background(), shooter(rules.ConfigDevelopment))
	require.Error(t, err)
	require.Equal(t, StagePreBuild, result.FailedStage)
	require.Equal(t, 3, errors.NewCLIErrorAdapter(false, nil).ExitCodeFor(err))
	require.NotContains(t, result.StageDurations, StageCompile)
}

func TestEULAViolation(t *testing.T) {
	tree := baseTree()
	tree["/games/Shooter/Source/Shooter/Shooter.build.yaml"] = "public_dependencies: [Engine, DevTools]\n"

	t.Run("fatal by default", func(t *testing.T) {
		svc := newService(newFS(t, tree), testConfig(projectFile), &fakeSteps{})
		result, err := svc.Run(context.Background(), shooter(rules.ConfigShipping))
		require.Error(t, err)
		require.Equal(t, StagePolicy, result.FailedStage)
		require.True(t, errors.HasCategory(err, errors.CategoryPolicy))
		require.Nil(t, result.Receipt)
	})

	t.Run("warning when permissive", func(t *testing.T) {
		permissive := maps.Clone(tree)
		permissive["/games/Shooter/Source/Shooter.target.yaml"] += "break_build_on_license_violation: false\n"
		svc := newService(newFS(t, permissive), testConfig(projectFile), &fakeSteps{})
		result, err := svc.Run(context.Background(), shooter(rules.ConfigShipping))
		require.NoError(t, err)
		require.Len(t, result.Warnings, 1)
		require.Contains(t, result.Warnings[0], "depends on 'DevTools'")
		require.Contains(t, result.Warnings[0], "Shooter")
	})

	t.Run("development is exempt", func(t *testing.T) {
		svc := newService(newFS(t, tree), testConfig(projectFile), &fakeSteps{})
		result, err := svc.Run(context.Background(), shooter(rules.ConfigDevelopment))
		require.NoError(t, err)
		require.Empty(t, result.Warnings)
	})
}

func TestEngineModuleMustNotDependOnGameModule(t *testing.T) {
	tree := baseTree()
	tree["/ue/Engine/Source/Runtime/Launch/Launch.build.yaml"] = "public_dependencies: [Engine]\ndynamically_loaded: [Shooter]\n"
	svc := newService(newFS(t, tree), testConfig(projectFile), &fakeSteps{})

	result, err := svc.Run(context.Background(), shooter(rules.ConfigDevelopment))
	require.Error(t, err)
	require.Equal(t, StagePolicy, result.FailedStage)
	require.ErrorContains(t, err, "Engine module 'Engine/Source/Runtime/Launch/Launch.build.yaml' should not depend on game module 'Shooter/Source/Shooter/Shooter.build.yaml'")
}

func TestRestrictedFolderCheck(t *testing.T) {
	tree := map[string]string{
		"/ue/Engine/Source/Programs/Restricted/NoRedist/Tool/Tool.target.yaml": "type: Program\nlaunch_module: Tool\n",
		"/ue/Engine/Source/Programs/Restricted/NoRedist/Tool/Tool.build.yaml":  "public_dependencies: [Core]\n",
		"/ue/Engine/Source/Programs/Restricted/NoRedist/Tool/Private/Tool.cpp": "",
		"/ue/Engine/Source/Runtime/Core/Core.build.yaml":                       "",
		"/ue/Engine/Source/Runtime/Core/Private/Core.cpp":                      "",
	}
	req := BuildRequest{Target: rules.TargetDescriptor{
		Name:          "Tool",
		Platform:      rules.PlatformLinux,
		Configuration: rules.ConfigDevelopment,
	}}

	svc := newService(newFS(t, tree), testConfig(""), &fakeSteps{})
	result, err := svc.Run(context.Background(), req)
	require.Error(t, err)
	require.Equal(t, StagePolicy, result.FailedStage)
	require.ErrorContains(t, err, "less restricted locations")

	tree["/ue/Engine/Source/Programs/Restricted/NoRedist/Tool/Tool.target.yaml"] += "output_publicly_distributable: true\n"
	svc = newService(newFS(t, tree), testConfig(""), &fakeSteps{})
	_, err = svc.Run(context.Background(), req)
	require.NoError(t, err)
}

func TestRestrictedTier(t *testing.T) {
	require.Equal(t, rules.TierPublic, restrictedTier("/ue/Engine/Binaries/Linux", "/ue"))
	require.Equal(t, rules.TierNoRedist, restrictedTier("/ue/Engine/Restricted/NoRedist/Source", "/ue"))
	require.Equal(t, rules.TierEpicInternal,
		restrictedTier("/ue/Engine/Restricted/NotForLicensees/Restricted/EpicInternal/X", "/ue"))
	require.Equal(t, rules.TierPublic, restrictedTier("/ue/Engine/NoRedist/Source", "/ue"))
}

func TestCancelledBeforeStart(t *testing.T) {
	svc := newService(newFS(t, baseTree()), testConfig(projectFile), &fakeSteps{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := svc.Run(ctx, shooter(rules.ConfigDevelopment))
	require.Error(t, err)
	require.Equal(t, BuildStatusCancelled, result.Status)
	require.Equal(t, StageSetup, result.FailedStage)
}

func TestNilConfig(t *testing.T) {
	svc := NewBuildService(memfs.New(), nil).WithLogger(slog.New(slog.DiscardHandler))
	result, err := svc.Run(context.Background(), shooter(rules.ConfigDevelopment))
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryConfig))
	require.Equal(t, BuildStatusFailed, result.Status)
}

func TestHistoryRecordsBuild(t *testing.T) {
	store, err := history.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	svc := newService(newFS(t, baseTree()), testConfig(projectFile), &fakeSteps{}).WithHistory(store)
	result, err := svc.Run(context.Background(), shooter(rules.ConfigDevelopment))
	require.NoError(t, err)

	events, err := store.GetByBuildID(context.Background(), result.BuildID)
	require.NoError(t, err)
	require.Equal(t, history.TypeBuildStarted, events[0].Type)
	require.Equal(t, history.TypeBuildFinished, events[len(events)-1].Type)

	var types []string
	for _, e := range events {
		types = append(types, e.Type)
	}
	require.Contains(t, types, history.TypeReceiptWritten)

	summaries, err := history.List(context.Background(), store, 5)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	require.Equal(t, history.StatusSucceeded, summaries[0].Status)
	require.Equal(t, "Shooter", summaries[0].Target)
}

func TestVersionPrefersVersionFile(t *testing.T) {
	fs := newFS(t, baseTree())
	require.NoError(t, util.WriteFile(fs, "/ue/Engine/Build/Build.version",
		[]byte(`{"MajorVersion":4,"MinorVersion":16,"Changelist":1234}`), 0o644))
	cfg := testConfig(projectFile)
	cfg.Version = config.VersionConfig{File: "/ue/Engine/Build/Build.version", FromGit: true}
	svc := newService(fs, cfg, &fakeSteps{}).
		WithGitVersionReader(func(string) (git.Marker, error) { return git.Marker{Changelist: 99}, nil })

	st := &State{Layout: &rules.Layout{EngineDir: engineDir}}
	v, err := svc.version(context.Background(), st)
	require.NoError(t, err)
	require.Equal(t, 1234, v.Changelist)

	cfg.Version.File = "/ue/Engine/Build/Missing.version"
	v, err = svc.version(context.Background(), st)
	require.NoError(t, err)
	require.Equal(t, 99, v.Changelist)
}

func TestCleanRemovesProductsAndReceipt(t *testing.T) {
	fs := newFS(t, baseTree())
	rec := newFakeRecorder()
	svc := newService(fs, testConfig(projectFile), &fakeSteps{}).WithRecorder(rec)
	_, err := svc.Run(context.Background(), shooter(rules.ConfigDevelopment))
	require.NoError(t, err)
	require.NoError(t, util.WriteFile(fs, "/games/Shooter/Binaries/Linux/Shooter", []byte("elf"), 0o755))

	n, err := svc.Clean(context.Background(), shooter(rules.ConfigDevelopment))
	require.NoError(t, err)
	require.GreaterOrEqual(t, n, 2)

	for _, path := range []string{receiptFile, "/games/Shooter/Binaries/Linux/Shooter"} {
		exists, err := fsutil.Exists(fs, path)
		require.NoError(t, err)
		require.False(t, exists, path)
	}
}

func TestExport(t *testing.T) {
	svc := newService(newFS(t, baseTree()), testConfig(projectFile), &fakeSteps{})
	var buf bytes.Buffer
	require.NoError(t, svc.Export(context.Background(), shooter(rules.ConfigDevelopment), &buf))

	var out binaries.Export
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	require.Equal(t, "Shooter", out.Name)
	require.Len(t, out.Binaries, 1)
	require.Contains(t, out.Modules, "Launch")
}

const (
	sharedManifest    = "/ue/Engine/Binaries/Linux/UE4Editor.modules"
	sharedBuildIDFile = "/ue/Engine/Intermediate/Build/Linux/UE4Editor/Development/BuildId.txt"
)

// sharedEditorTree turns the project into an editor target of a shared build
// environment whose last engine build "X" recorded the given modules.
func sharedEditorTree(modules string) map[string]string {
	tree := baseTree()
	tree["/games/Shooter/Source/Shooter.target.yaml"] = "type: Editor\nlaunch_module: Launch\n" +
		"extra_modules: [Shooter]\nshared_build_environment: true\n"
	tree[sharedBuildIDFile] = "X\n"
	tree[sharedManifest] = `{"Changelist":0,"CompatibleChangelist":0,"BuildId":"X","Modules":` + modules + "}\n"
	return tree
}

func failingOn(module string) ToolchainFactory {
	return func(p rules.Platform) toolchain.Toolchain {
		return failingToolchain{DryRun: toolchain.NewDryRun(p), module: module}
	}
}

func TestFailedCompileInvalidatesSharedManifests(t *testing.T) {
	fs := newFS(t, sharedEditorTree(`{"Core":"libUE4Editor-Core.so"}`))
	svc := newService(fs, testConfig(projectFile), &fakeSteps{}).WithToolchainFactory(failingOn("Shooter"))

	result, err := svc.Run(context.Background(), shooter(rules.ConfigDevelopment))
	require.Error(t, err)
	require.Equal(t, StageCompile, result.FailedStage)
	require.NotEqual(t, "X", result.Receipt.BuildID)

	exists, err := fsutil.Exists(fs, sharedManifest)
	require.NoError(t, err)
	require.False(t, exists, "a manifest naming rebuilt engine modules must not survive a failed compile")
}

func TestFailedCompileKeepsRecycledManifests(t *testing.T) {
	fs := newFS(t, sharedEditorTree(`{"Renderer":"libUE4Editor-Renderer.so"}`))
	svc := newService(fs, testConfig(projectFile), &fakeSteps{}).WithToolchainFactory(failingOn("Shooter"))

	result, err := svc.Run(context.Background(), shooter(rules.ConfigDevelopment))
	require.Error(t, err)
	require.Equal(t, StageCompile, result.FailedStage)
	require.Equal(t, "X", result.Receipt.BuildID)

	m, err := receipt.ReadVersionManifest(fs, sharedManifest)
	require.NoError(t, err)
	require.NotNil(t, m)
	require.Equal(t, "X", m.BuildID)
	require.Equal(t, map[string]string{"Renderer": "libUE4Editor-Renderer.so"}, m.Modules)
}

func TestSharedBuildRecyclesBuildID(t *testing.T) {
	fs := newFS(t, sharedEditorTree(`{"Renderer":"libUE4Editor-Renderer.so"}`))
	svc := newService(fs, testConfig(projectFile), &fakeSteps{})

	result, err := svc.Run(context.Background(), shooter(rules.ConfigDevelopment))
	require.NoError(t, err)
	require.Equal(t, "X", result.Receipt.BuildID)

	m, err := receipt.ReadVersionManifest(fs, sharedManifest)
	require.NoError(t, err)
	require.NotNil(t, m)
	require.Equal(t, "X", m.BuildID)
	require.Equal(t, "libUE4Editor-Renderer.so", m.Modules["Renderer"])
	require.Equal(t, "libUE4Editor-Core.so", m.Modules["Core"])

	r, err := receipt.Read(fs, receiptFile)
	require.NoError(t, err)
	require.Equal(t, "X", r.BuildID)
}

// cancellingToolchain cancels the build from inside the first compile and
// records whether any compile saw the cancellation.
type cancellingToolchain struct {
	*toolchain.DryRun
	cancel context.CancelFunc

	mu       *sync.Mutex
	canceled *bool
}

func (c cancellingToolchain) Compile(ctx context.Context, b *binaries.Binary, env toolchain.Env) ([]string, error) {
	c.cancel()
	c.mu.Lock()
	if ctx.Err() != nil {
		*c.canceled = true
	}
	c.mu.Unlock()
	return c.DryRun.Compile(ctx, b, env)
}

func TestCancellationDoesNotInterruptCompile(t *testing.T) {
	fs := newFS(t, baseTree())
	steps := &fakeSteps{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	canceled := false
	svc := newService(fs, testConfig(projectFile), steps).
		WithToolchainFactory(func(p rules.Platform) toolchain.Toolchain {
			return cancellingToolchain{DryRun: toolchain.NewDryRun(p), cancel: cancel, mu: &mu, canceled: &canceled}
		})

	result, err := svc.Run(ctx, shooter(rules.ConfigDevelopment))
	require.NoError(t, err)
	require.Equal(t, BuildStatusSuccess, result.Status)
	require.Error(t, ctx.Err())
	require.False(t, canceled, "compiles must not observe the caller's cancellation")

	exists, err := fsutil.Exists(fs, receiptFile)
	require.NoError(t, err)
	require.True(t, exists)
	require.Len(t, steps.runs, 2, "post-build steps still run")
}
