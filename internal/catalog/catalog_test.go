package catalog

import (
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/targetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/targetbuilder/internal/rules"
)

func writeFiles(t *testing.T, fs billy.Filesystem, files map[string]string) {
	t.Helper()
	for path, content := range files {
		require.NoError(t, util.WriteFile(fs, path, []byte(content), 0o644))
	}
}

func newTestCatalog(t *testing.T) *FS {
	t.Helper()
	fs := memfs.New()
	writeFiles(t, fs, map[string]string{
		"/ue/Engine/Source/Runtime/Core/Core.build.yaml":   "public_dependencies: []\n",
		"/ue/Engine/Source/Runtime/Core/Private/Core.cpp":  "",
		"/ue/Engine/Source/ThirdParty/zlib/zlib.build.yaml": "kind: external\n",
		"/ue/Engine/Plugins/Paper/Paper.plugin.yaml":        "enabled_by_default: true\nmodules:\n  - name: Paper2D\n",
		"/ue/Engine/Plugins/Paper/Source/Paper2D/Paper2D.build.yaml": "private_dependencies: [Core]\n",
		"/games/Shooter/Shooter.project.yaml":                        "modules:\n  - name: Shooter\nplugins:\n  - name: Paper\n    enabled: true\n",
		"/games/Shooter/Source/Shooter.target.yaml":                  "type: Game\nlaunch_module: Shooter\n",
		"/games/Shooter/Source/Shooter/Shooter.build.yaml":           "public_dependencies: [Core]\n",
		"/games/Shooter/Plugins/Mod/Mod.plugin.yaml":                 "name: ShooterMod\nmod: true\n",
	})
	return New(fs, "/ue/Engine", "/games/Shooter/Shooter.project.yaml")
}

func TestCreateModuleRules(t *testing.T) {
	c := newTestCatalog(t)

	core, err := c.CreateModuleRules("Core")
	require.NoError(t, err)
	require.Equal(t, "Core", core.Name)
	require.Equal(t, rules.ModuleCPP, core.Kind)
	require.Equal(t, "/ue/Engine/Source/Runtime/Core", core.Directory())

	zlib, err := c.CreateModuleRules("zlib")
	require.NoError(t, err)
	require.Equal(t, rules.ModuleExternal, zlib.Kind)

	_, err = c.CreateModuleRules("Missing")
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryNotFound))

	names, err := c.ModuleNames()
	require.NoError(t, err)
	require.Equal(t, []string{"Core", "Paper2D", "Shooter", "zlib"}, names)
}

func TestLoadTargetAndProject(t *testing.T) {
	c := newTestCatalog(t)

	tr, err := c.LoadTarget("Shooter")
	require.NoError(t, err)
	require.Equal(t, "Shooter", tr.Name)
	require.Equal(t, rules.TargetGame, tr.Type)
	require.True(t, tr.Monolithic())

	_, err = c.LoadTarget("Nope")
	require.True(t, errors.HasCategory(err, errors.CategoryNotFound))

	p, err := c.LoadProject()
	require.NoError(t, err)
	require.NotNil(t, p.Module("Shooter"))
	require.Len(t, p.Plugins, 1)

	noProject := New(memfs.New(), "/ue/Engine", "")
	p, err = noProject.LoadProject()
	require.NoError(t, err)
	require.Nil(t, p)
}

func TestPlugins(t *testing.T) {
	c := newTestCatalog(t)

	all, err := c.EnumeratePlugins()
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "Paper", all[0].Name)
	require.Equal(t, rules.LoadedFromEngine, all[0].LoadedFrom)
	require.Equal(t, "ShooterMod", all[1].Name)
	require.Equal(t, rules.LoadedFromProject, all[1].LoadedFrom)
	require.True(t, all[1].Descriptor.IsMod)

	owner, err := c.PluginForModule("/ue/Engine/Plugins/Paper/Source/Paper2D/Paper2D.build.yaml")
	require.NoError(t, err)
	require.Equal(t, "Paper", owner.Name)

	owner, err = c.PluginForModule("/ue/Engine/Source/Runtime/Core/Core.build.yaml")
	require.NoError(t, err)
	require.Nil(t, owner)
}

func TestHasSource(t *testing.T) {
	c := newTestCatalog(t)

	ok, err := c.HasSource("Core")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = c.HasSource("Shooter")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDuplicateModuleIsConfigError(t *testing.T) {
	fs := memfs.New()
	writeFiles(t, fs, map[string]string{
		"/ue/Engine/Source/A/Core.build.yaml": "",
		"/ue/Engine/Source/B/Core.build.yaml": "",
	})
	_, err := New(fs, "/ue/Engine", "").CreateModuleRules("Core")
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryConfig))
}
