package plugins

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/targetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/targetbuilder/internal/rules"
)

type staticEnumerator []*Info

func (s staticEnumerator) EnumeratePlugins() ([]*Info, error) { return s, nil }

func plugin(name, file string, desc rules.PluginDescriptor) *Info {
	file = filepath.FromSlash(file)
	return &Info{
		Name:       name,
		File:       file,
		Directory:  filepath.Dir(file),
		LoadedFrom: rules.LoadedFromEngine,
		Descriptor: &desc,
	}
}

func TestResolveEnabledAndBuildSets(t *testing.T) {
	online := plugin("Online", "/ue/Engine/Plugins/Online/Online.plugin.yaml", rules.PluginDescriptor{EnabledByDefault: true})
	paper := plugin("Paper", "/ue/Engine/Plugins/Paper/Paper.plugin.yaml", rules.PluginDescriptor{})
	macOnly := plugin("MacAudio", "/ue/Engine/Plugins/MacAudio/MacAudio.plugin.yaml", rules.PluginDescriptor{
		EnabledByDefault:   true,
		SupportedPlatforms: []rules.Platform{rules.PlatformMac},
	})

	req := Request{
		TargetName: "Shooter",
		Platform:   rules.PlatformWin64,
		TargetType: rules.TargetGame,
		EngineDir:  filepath.FromSlash("/ue/Engine"),
		Project: &rules.ProjectDescriptor{Plugins: []rules.PluginReference{
			{Name: "online", Enabled: false},
			{Name: "Paper", Enabled: true},
		}},
	}

	set, err := Resolve(staticEnumerator{online, paper, macOnly}, req)
	require.NoError(t, err)
	require.Len(t, set.Valid, 3)
	require.Equal(t, []*Info{paper}, set.Enabled)
	require.Equal(t, set.Enabled, set.Build)
	require.True(t, set.IsEnabled(paper))
	require.False(t, set.IsEnabled(online))

	req.BuildAllPlugins = true
	set, err = Resolve(staticEnumerator{online, paper, macOnly}, req)
	require.NoError(t, err)
	require.Len(t, set.Build, 3)
}

func TestResolveAdditionalAndForeignPlugins(t *testing.T) {
	a := plugin("A", "/ue/Engine/Plugins/A/A.plugin.yaml", rules.PluginDescriptor{})
	b := plugin("B", "/ue/Engine/Plugins/B/B.plugin.yaml", rules.PluginDescriptor{})

	set, err := Resolve(staticEnumerator{a, b}, Request{
		TargetName:        "Shooter",
		Platform:          rules.PlatformLinux,
		EngineDir:         filepath.FromSlash("/ue/Engine"),
		AdditionalPlugins: []string{"A"},
		ForeignPlugins:    []string{b.File},
	})
	require.NoError(t, err)
	require.Equal(t, []*Info{a}, set.Enabled)
	require.Equal(t, []*Info{a, b}, set.Build)

	_, err = Resolve(staticEnumerator{a}, Request{
		TargetName:        "Shooter",
		Platform:          rules.PlatformLinux,
		AdditionalPlugins: []string{"Missing"},
	})
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryConfig))
	require.Contains(t, err.Error(), "Plugin 'Missing' is in the list of additional plugins for Shooter, but was not found.")
}

func TestResolveDropsPluginsForUnavailablePlatforms(t *testing.T) {
	winOnly := plugin("WinSDK", "/ue/Engine/Plugins/Win64/WinSDK/WinSDK.plugin.yaml", rules.PluginDescriptor{
		EnabledByDefault:      true,
		RequiresBuildPlatform: true,
	})
	generic := plugin("Generic", "/ue/Engine/Plugins/Win64/Generic/Generic.plugin.yaml", rules.PluginDescriptor{
		EnabledByDefault: true,
	})

	set, err := Resolve(staticEnumerator{winOnly, generic}, Request{
		Platform:           rules.PlatformLinux,
		EngineDir:          filepath.FromSlash("/ue/Engine"),
		AvailablePlatforms: []rules.Platform{rules.PlatformLinux},
	})
	require.NoError(t, err)
	require.Equal(t, []*Info{generic}, set.Valid)
}

func TestResolveKeepsUnrestrictedProjectReference(t *testing.T) {
	macOnly := plugin("MacAudio", "/ue/Engine/Plugins/MacAudio/MacAudio.plugin.yaml", rules.PluginDescriptor{
		SupportedPlatforms: []rules.Platform{rules.PlatformMac},
	})
	set, err := Resolve(staticEnumerator{macOnly}, Request{
		Platform: rules.PlatformWin64,
		Project:  &rules.ProjectDescriptor{Plugins: []rules.PluginReference{{Name: "MacAudio", Enabled: true}}},
	})
	require.NoError(t, err)
	require.Equal(t, []*Info{macOnly}, set.Enabled)
}
