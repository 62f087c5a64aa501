// Package buildsteps writes the custom pre- and post-build step scripts of a
// project and its plugins, and runs them on the host shell.
package buildsteps

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"

	"github.com/go-git/go-billy/v5"

	"git.home.luguber.info/inful/targetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/targetbuilder/internal/logfields"
	"git.home.luguber.info/inful/targetbuilder/internal/plugins"
	"git.home.luguber.info/inful/targetbuilder/internal/rules"
	"git.home.luguber.info/inful/targetbuilder/internal/util/fsutil"
)

// Script prefixes.
const (
	PreBuildPrefix  = "PreBuild"
	PostBuildPrefix = "PostBuild"
)

// Source is one declared set of steps and the plugin declaring it, if any.
type Source struct {
	Steps  rules.CustomBuildSteps
	Plugin *plugins.Info
}

// Scripts are the written script files in execution order.
type Scripts struct {
	Pre  []string
	Post []string
}

// Sources collects the steps of the project descriptor followed by those of
// the plugins being built.
func Sources(project *rules.ProjectDescriptor, build []*plugins.Info) (pre, post []Source) {
	if project != nil {
		if project.PreBuildSteps != nil {
			pre = append(pre, Source{Steps: project.PreBuildSteps})
		}
		if project.PostBuildSteps != nil {
			post = append(post, Source{Steps: project.PostBuildSteps})
		}
	}
	for _, p := range build {
		if p.Descriptor.PreBuildSteps != nil {
			pre = append(pre, Source{Steps: p.Descriptor.PreBuildSteps, Plugin: p})
		}
		if p.Descriptor.PostBuildSteps != nil {
			post = append(post, Source{Steps: p.Descriptor.PostBuildSteps, Plugin: p})
		}
	}
	return pre, post
}

// Setup writes the pre- and post-build scripts for host into the project
// intermediate directory.
func Setup(fs billy.Filesystem, l *rules.Layout, host rules.Platform, project *rules.ProjectDescriptor, build []*plugins.Info) (Scripts, error) {
	pre, post := Sources(project, build)
	var s Scripts
	var err error
	if s.Pre, err = Write(fs, l, host, l.ProjectIntermediateDir, PreBuildPrefix, pre); err != nil {
		return Scripts{}, err
	}
	if s.Post, err = Write(fs, l, host, l.ProjectIntermediateDir, PostBuildPrefix, post); err != nil {
		return Scripts{}, err
	}
	return s, nil
}

// Variables returns the substitutions available to steps declared by plugin.
func Variables(l *rules.Layout, plugin *plugins.Info) map[string]string {
	vars := map[string]string{
		"EngineDir":           l.EngineDir,
		"ProjectDir":          l.ProjectDir,
		"TargetName":          l.TargetName,
		"TargetPlatform":      string(l.Platform),
		"TargetConfiguration": string(l.Configuration),
		"TargetType":          string(l.Type),
	}
	if l.HasProject() {
		vars["ProjectFile"] = l.ProjectFile
	}
	if plugin != nil {
		vars["PluginDir"] = plugin.Directory
	}
	return vars
}

// Write writes one script per source that declares commands for host, named
// <prefix>-<n>.bat on Windows hosts and <prefix>-<n>.sh elsewhere.
func Write(fs billy.Filesystem, l *rules.Layout, host rules.Platform, dir, prefix string, sources []Source) ([]string, error) {
	var files []string
	for _, src := range sources {
		cmds, ok := src.Steps.Commands(host, Variables(l, src.Plugin))
		if !ok {
			continue
		}
		ext := ".sh"
		if host.IsWindows() {
			ext = ".bat"
			cmds = append([]string{"@echo off"}, cmds...)
		}
		path := filepath.Join(dir, fmt.Sprintf("%s-%d%s", prefix, len(files)+1, ext))
		if _, err := fsutil.WriteLinesIfChanged(fs, path, cmds); err != nil {
			return nil, errors.WrapError(err, errors.CategoryFileSystem, "write build step script").
				AtPath(path).Build()
		}
		files = append(files, path)
	}
	return files, nil
}

// Runner executes scripts with the host shell.
type Runner struct {
	host   rules.Platform
	logger *slog.Logger
}

// NewRunner returns a Runner for host.
func NewRunner(host rules.Platform) *Runner {
	return &Runner{host: host, logger: slog.Default()}
}

// WithLogger replaces the runner's logger.
func (r *Runner) WithLogger(l *slog.Logger) *Runner {
	if l != nil {
		r.logger = l
	}
	return r
}

func (r *Runner) command(ctx context.Context, script string) *exec.Cmd {
	if r.host.IsWindows() {
		return exec.CommandContext(ctx, "cmd.exe", "/C", script)
	}
	return exec.CommandContext(ctx, "/bin/sh", script)
}

// Run executes scripts in order and stops at the first failure. A non-zero
// exit is an external step error carrying the exit code.
func (r *Runner) Run(ctx context.Context, scripts []string) error {
	for _, script := range scripts {
		cmd := r.command(ctx, script)
		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
		r.logger.Info("Running custom build step", logfields.Path(script))

		err := cmd.Run()
		if out := stdout.String(); out != "" {
			r.logger.Info("build step output", logfields.Path(script), "output", out)
		}
		if out := stderr.String(); out != "" {
			r.logger.Warn("build step stderr", logfields.Path(script), "error_output", out)
		}
		if err == nil {
			continue
		}

		var exitErr *exec.ExitError
		if stderrors.As(err, &exitErr) {
			code := exitErr.ExitCode()
			return errors.ExternalStepError(fmt.Sprintf("Custom build step terminated with exit code %d", code)).
				WithExitCode(code).
				AtPath(script).
				Build()
		}
		return errors.WrapError(err, errors.CategoryExternal, "run custom build step").
			AtPath(script).Build()
	}
	return nil
}
