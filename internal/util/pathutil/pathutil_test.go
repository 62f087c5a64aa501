package pathutil

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsUnder(t *testing.T) {
	engine := filepath.FromSlash("/work/Engine")
	require.True(t, IsUnder(filepath.FromSlash("/work/Engine/Source/Core"), engine))
	require.True(t, IsUnder(engine, engine))
	require.False(t, IsUnder(filepath.FromSlash("/work/EngineExtras/Core"), engine))
	require.False(t, IsUnder(filepath.FromSlash("/work/Game"), engine))
	require.False(t, IsUnder("", engine))
}

func TestContainsFolder(t *testing.T) {
	root := filepath.FromSlash("/e/Source/Core")
	names := FoldAll("Windows", "Apple")

	require.True(t, ContainsFolder(filepath.FromSlash("/e/Source/Core/Private/windows/File.cpp"), root, names))
	require.False(t, ContainsFolder(filepath.FromSlash("/e/Source/Core/Private/Linux/File.cpp"), root, names))
	// The file name itself is not a folder.
	require.False(t, ContainsFolder(filepath.FromSlash("/e/Source/Core/Windows"), root, names))
	// Folders above the root are ignored.
	require.False(t, ContainsFolder(filepath.FromSlash("/Windows/Source/Core/A.cpp"), filepath.FromSlash("/Windows/Source/Core"), names))
}

func TestFold(t *testing.T) {
	require.True(t, EqualFold("MyGame-Core.dll", "mygame-core.DLL"))
	require.Equal(t, filepath.FromSlash("a/b.lib"), ReplaceExtension(filepath.FromSlash("a/b.dll"), ".lib"))
}
