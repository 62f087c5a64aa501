package binaries

import (
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/targetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/targetbuilder/internal/plugins"
	"git.home.luguber.info/inful/targetbuilder/internal/rules"
)

func TestFilterOnlyModulesAppliesSuffix(t *testing.T) {
	s := newSetup(t, editorTarget())

	kept, err := FilterOnlyModules(s.assigner.Binaries, []rules.OnlyModule{{Name: "engine", Suffix: "0001"}})
	require.NoError(t, err)
	require.Len(t, kept, 1)
	require.Equal(t, []string{"/games/Shooter/Binaries/Linux/libShooterEditor-Engine-0001.so"}, kept[0].OutputPaths)
	require.Equal(t, []string{"/games/Shooter/Binaries/Linux/libShooterEditor-Engine.so"}, kept[0].OriginalOutputPaths)
}

func TestFilterOnlyModulesSkipsExecutable(t *testing.T) {
	s := newSetup(t, editorTarget())

	_, err := FilterOnlyModules(s.assigner.Binaries, []rules.OnlyModule{{Name: "Launch"}})
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryFilter))

	_, err = FilterOnlyModules(s.assigner.Binaries, []rules.OnlyModule{{Name: "Nope"}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "could not be found")
}

func TestFilterHotReload(t *testing.T) {
	s := newSetup(t, editorTarget())

	kept, err := FilterHotReload(s.assigner.Binaries, engineDir, "4821", nil)
	require.NoError(t, err)
	require.Len(t, kept, 1)
	require.Equal(t, "/games/Shooter/Binaries/Linux/libShooterEditor-Shooter-4821.so", kept[0].PrimaryOutput())

	_, err = FilterHotReload(s.assigner.Binaries, engineDir, "4821", []string{"/games/Shooter/Plugins/Mod"})
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryFilter))
}

func TestFilterInstalledMods(t *testing.T) {
	s := newSetup(t, editorTarget())

	_, err := FilterInstalledMods(s.assigner.Binaries, []string{"/games/Shooter/Plugins/Mod"})
	require.Error(t, err)

	kept, err := FilterInstalledMods(s.assigner.Binaries, []string{"/games/Shooter/Binaries"})
	require.NoError(t, err)
	require.Len(t, kept, 4)
}

func TestFilterSingleFile(t *testing.T) {
	s := newSetup(t, editorTarget())
	file := "/games/Shooter/Source/Shooter/Private/ShooterPawn.cpp"

	kept, err := FilterSingleFile(s.assigner.Binaries, s.graph, file, "ShooterEditor")
	require.NoError(t, err)
	require.Len(t, kept, 1)
	require.Equal(t, "/games/Shooter/Binaries/Linux/libShooterEditor-Shooter.so", kept[0].PrimaryOutput())

	shooter, _ := s.graph.Lookup("Shooter")
	require.Equal(t, []string{file}, shooter.CPP.FilesToBuild)
	require.Len(t, shooter.CPP.SourceFiles, 2)

	_, err = FilterSingleFile(s.assigner.Binaries, s.graph, "/elsewhere/Other.cpp", "ShooterEditor")
	require.Error(t, err)
	require.Contains(t, err.Error(), "Couldn't find any module containing /elsewhere/Other.cpp in ShooterEditor.")
}

func TestModDirectories(t *testing.T) {
	enabled := []*plugins.Info{
		{Name: "Paper", Directory: "/ue/Engine/Plugins/Paper", Descriptor: &rules.PluginDescriptor{}},
		{Name: "Mod", Directory: "/games/Shooter/Plugins/Mod", Descriptor: &rules.PluginDescriptor{IsMod: true}},
	}
	require.Equal(t, []string{"/games/Shooter/Plugins/Mod"}, ModDirectories(enabled))
	require.Empty(t, ModDirectories(nil))
}
