package buildsteps

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/targetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/targetbuilder/internal/plugins"
	"git.home.luguber.info/inful/targetbuilder/internal/rules"
	"git.home.luguber.info/inful/targetbuilder/internal/util/fsutil"
)

func layout(t *testing.T) *rules.Layout {
	t.Helper()
	l, err := rules.NewLayout(rules.TargetDescriptor{
		Name:          "Shooter",
		Platform:      rules.PlatformLinux,
		Configuration: rules.ConfigDevelopment,
	}, &rules.TargetRules{Type: rules.TargetGame}, "/ue/Engine", "/games/Shooter/Shooter.project.yaml")
	require.NoError(t, err)
	return l
}

func TestSetupWritesScripts(t *testing.T) {
	fs := memfs.New()
	l := layout(t)
	project := &rules.ProjectDescriptor{
		PreBuildSteps: rules.CustomBuildSteps{
			"Linux": {"echo $(TargetName) $(TargetConfiguration)", "cp $(ProjectFile) /tmp"},
			"Win64": {"echo windows"},
		},
	}
	weapons := &plugins.Info{Name: "Weapons", Directory: "/games/Shooter/Plugins/Weapons", Descriptor: &rules.PluginDescriptor{
		PreBuildSteps:  rules.CustomBuildSteps{"Linux": {"ls $(PluginDir)"}},
		PostBuildSteps: rules.CustomBuildSteps{"Mac": {"true"}},
	}}

	s, err := Setup(fs, l, rules.PlatformLinux, project, []*plugins.Info{weapons})
	require.NoError(t, err)
	dir := l.ProjectIntermediateDir
	require.Equal(t, []string{filepath.Join(dir, "PreBuild-1.sh"), filepath.Join(dir, "PreBuild-2.sh")}, s.Pre)
	require.Empty(t, s.Post)

	first, err := util.ReadFile(fs, s.Pre[0])
	require.NoError(t, err)
	require.Equal(t, "echo Shooter Development\ncp /games/Shooter/Shooter.project.yaml /tmp\n", string(first))
	second, err := util.ReadFile(fs, s.Pre[1])
	require.NoError(t, err)
	require.Equal(t, "ls /games/Shooter/Plugins/Weapons\n", string(second))
}

func TestWriteBatchScripts(t *testing.T) {
	fs := memfs.New()
	l := layout(t)
	files, err := Write(fs, l, rules.PlatformWin64, "/scripts", PostBuildPrefix, []Source{
		{Steps: rules.CustomBuildSteps{"Win64": {"echo $(TargetPlatform) $(TargetType)"}}},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"/scripts/PostBuild-1.bat"}, files)

	data, err := util.ReadFile(fs, files[0])
	require.NoError(t, err)
	require.Equal(t, "@echo off\necho Linux Game\n", string(data))
}

func TestRunnerSurfacesExitCode(t *testing.T) {
	fs := fsutil.NewOS()
	dir := t.TempDir()
	l := layout(t)

	files, err := Write(fs, l, rules.PlatformLinux, dir, PreBuildPrefix, []Source{
		{Steps: rules.CustomBuildSteps{"Linux": {"echo ok"}}},
		{Steps: rules.CustomBuildSteps{"Linux": {"exit 3"}}},
	})
	require.NoError(t, err)

	r := NewRunner(rules.PlatformLinux)
	require.NoError(t, r.Run(context.Background(), files[:1]))

	err = r.Run(context.Background(), files)
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryExternal))
	require.Equal(t, 3, errors.NewCLIErrorAdapter(false, nil).ExitCodeFor(err))
}
