package build

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/targetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/targetbuilder/internal/logfields"
	"git.home.luguber.info/inful/targetbuilder/internal/modulegraph"
	"git.home.luguber.info/inful/targetbuilder/internal/observability"
	"git.home.luguber.info/inful/targetbuilder/internal/rules"
	"git.home.luguber.info/inful/targetbuilder/internal/util/pathutil"
)

func (s *DefaultBuildService) stagePolicy(ctx context.Context, st *State) error {
	if !st.Layout.HasProject() && !st.Target.OutputPubliclyDistributable {
		if err := checkRestrictedFolders(ctx, st); err != nil {
			return err
		}
	}
	if err := checkEULA(ctx, st); err != nil {
		return err
	}
	return checkLayering(st)
}

// restrictedTier returns the most restricted Restricted/<Tier> folder on the
// path of dir below root.
func restrictedTier(dir, root string) rules.RestrictedTier {
	tier := rules.TierPublic
	parts := pathutil.Components(filepath.Join(dir, "_"), root)
	for i := 1; i < len(parts); i++ {
		if !pathutil.EqualFold(parts[i-1], "Restricted") {
			continue
		}
		for name, t := range rules.RestrictedFolderNames {
			if pathutil.EqualFold(parts[i], name) && t > tier {
				tier = t
			}
		}
	}
	return tier
}

func checkRestrictedFolders(ctx context.Context, st *State) error {
	root := filepath.Dir(st.Layout.EngineDir)
	cache := map[*modulegraph.Module]rules.RestrictedTier{}
	ok := true
	for _, b := range st.Binaries {
		out := restrictedTier(b.OutputDir(), root)
		for _, m := range b.Modules {
			in, seen := cache[m]
			if !seen {
				in = restrictedTier(m.Directory, root)
				cache[m] = in
			}
			if in > out {
				observability.ErrorContext(ctx, "Output is less restricted than its input",
					logfields.Binary(b.PrimaryOutput()),
					logfields.Module(m.Name),
					logfields.Path(fmt.Sprintf("%s < %s", out, in)))
				ok = false
			}
		}
	}
	if !ok {
		return errors.PolicyViolationError("Unable to create binaries in less restricted locations than their input files.").Build()
	}
	return nil
}

// checkEULA rejects non-redistributable modules in shipping game, client and
// server builds. Under the permissive flag violations are only warnings.
func checkEULA(ctx context.Context, st *State) error {
	tr := st.Target
	if tr.BuildEditor() || tr.Type == rules.TargetProgram ||
		st.Request.Target.Configuration != rules.ConfigShipping || !tr.LicenseChecks() {
		return nil
	}
	engineDir := st.Layout.EngineDir
	fatal := tr.BreakOnLicenseViolation()
	violations := 0
	for _, b := range st.Binaries {
		deps, err := st.Graph.AllDependencies(b.Modules, true, false)
		if err != nil {
			return err
		}
		var bad []string
		for _, m := range deps {
			if m.Name != st.Layout.AppName && !m.IsRedistributable(tr, engineDir) {
				bad = append(bad, m.Name)
			}
		}
		for _, name := range bad {
			msg := fmt.Sprintf("Non-editor build cannot depend on non-redistributable modules. %s depends on '%s'.",
				b.PrimaryOutput(), name)
			if dependants := dependantsOf(deps, name); len(dependants) > 0 {
				msg += fmt.Sprintf(" Dependant modules '%s'", strings.Join(dependants, ", "))
			}
			violations++
			if fatal {
				observability.ErrorContext(ctx, msg, logfields.Module(name))
				continue
			}
			observability.WarnContext(ctx, msg, logfields.Module(name))
			st.Warnings = append(st.Warnings, msg)
		}
	}
	if fatal && violations > 0 {
		return errors.PolicyViolationError(fmt.Sprintf("%d non-redistributable dependencies in a shipping build", violations)).Build()
	}
	return nil
}

// dependantsOf names the modules of deps that reference name directly.
func dependantsOf(deps []*modulegraph.Module, name string) []string {
	var out []string
	for _, m := range deps {
		for _, d := range append(m.DirectDependencies(), m.DynamicallyLoaded...) {
			if d == name {
				out = append(out, m.Name)
				break
			}
		}
	}
	return out
}

// checkLayering rejects bound engine modules that reference a module
// declared outside the engine, which happens when a project plugin overrides
// an engine plugin.
func checkLayering(st *State) error {
	engineDir := st.Layout.EngineDir
	for _, m := range st.Graph.Modules() {
		if m.Binary() == nil || !m.IsEngine(engineDir) {
			continue
		}
		for _, name := range append(m.DirectDependencies(), m.DynamicallyLoaded...) {
			ref, ok := st.Graph.Lookup(name)
			if !ok || ref.RulesFile == "" || ref.IsEngine(engineDir) {
				continue
			}
			return errors.PolicyViolationError(fmt.Sprintf("Engine module '%s' should not depend on game module '%s'",
				relativeTo(m.RulesFile, filepath.Dir(engineDir)), relativeTo(ref.RulesFile, filepath.Dir(st.Layout.ProjectDir)))).
				ForModule(m.Name).Build()
		}
	}
	return nil
}

func relativeTo(path, dir string) string {
	if dir == "" || !pathutil.IsUnder(path, dir) {
		return path
	}
	if rel, err := filepath.Rel(dir, path); err == nil {
		return filepath.ToSlash(rel)
	}
	return path
}
