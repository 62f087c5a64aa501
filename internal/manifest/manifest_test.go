package manifest

import (
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/targetbuilder/internal/receipt"
	"git.home.luguber.info/inful/targetbuilder/internal/rules"
)

func gameLayout(t *testing.T) *rules.Layout {
	t.Helper()
	l, err := rules.NewLayout(rules.TargetDescriptor{
		Name:          "Shooter",
		Platform:      rules.PlatformWin64,
		Configuration: rules.ConfigDevelopment,
	}, &rules.TargetRules{Type: rules.TargetGame}, "/ue/Engine", "/games/Shooter/Shooter.project.yaml")
	require.NoError(t, err)
	return l
}

func testReceipt() *receipt.Receipt {
	return &receipt.Receipt{BuildProducts: []receipt.BuildProduct{
		{Path: "$(ProjectDir)/Binaries/Win64/Shooter.exe", Type: rules.ProductExecutable},
		{Path: "$(ProjectDir)/Binaries/Win64/Shooter.lib", Type: rules.ProductImportLibrary},
		{Path: "$(EngineDir)/Binaries/Win64/Core.lib", Type: rules.ProductStaticLibrary},
	}}
}

func TestBuildSeparatesLibraries(t *testing.T) {
	l := gameLayout(t)

	m := Build(testReceipt(), l, Options{})
	require.Equal(t, []string{
		"/games/Shooter/Binaries/Win64/Shooter.exe",
		"/games/Shooter/Binaries/Win64/Shooter.target",
	}, m.BuildProducts)
	require.Equal(t, []string{
		"/games/Shooter/Binaries/Win64/Shooter.lib",
		"/ue/Engine/Binaries/Win64/Core.lib",
	}, m.LibraryBuildProducts)

	m = Build(testReceipt(), l, Options{Precompile: true, OnlyModules: true})
	require.Len(t, m.BuildProducts, 3)
	require.Empty(t, m.LibraryBuildProducts)

	m = Build(testReceipt(), l, Options{DisableLinking: true})
	require.Empty(t, m.BuildProducts)
}

func TestGenerateLocation(t *testing.T) {
	l := gameLayout(t)
	fs := memfs.New()

	path, err := Generate(fs, testReceipt(), l, Options{})
	require.NoError(t, err)
	require.Equal(t, "/ue/Engine/Intermediate/Build/Manifest.json", path)

	path, err = Generate(fs, testReceipt(), l, Options{EngineInstalled: true})
	require.NoError(t, err)
	require.Equal(t, "/games/Shooter/Intermediate/Build/Manifest.json", path)

	data, err := util.ReadFile(fs, path)
	require.NoError(t, err)
	m, err := FromJSON(data)
	require.NoError(t, err)
	require.Contains(t, m.BuildProducts, "/games/Shooter/Binaries/Win64/Shooter.exe")
}
