package binaries

import (
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/targetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/targetbuilder/internal/rules"
)

func TestMakeBinaryFileName(t *testing.T) {
	dev := rules.ConfigDevelopment
	tests := []struct {
		name string
		mod  string
		typ  rules.BinaryType
		opts NameOptions
		want string
	}{
		{"win64 decorated dll", "UE4Editor-Core", rules.BinaryDynamicLibrary,
			NameOptions{Platform: rules.PlatformWin64, Configuration: rules.ConfigDebug, UndecoratedConfiguration: dev},
			"UE4Editor-Core-Win64-Debug.dll"},
		{"linux undecorated static", "Core", rules.BinaryStaticLibrary,
			NameOptions{Platform: rules.PlatformLinux, Configuration: dev, UndecoratedConfiguration: dev},
			"libCore.a"},
		{"linux executable", "Shooter", rules.BinaryExecutable,
			NameOptions{Platform: rules.PlatformLinux, Configuration: rules.ConfigShipping, UndecoratedConfiguration: dev},
			"Shooter-Linux-Shipping"},
		{"arch suffix", "Shooter", rules.BinaryExecutable,
			NameOptions{Platform: rules.PlatformLinuxArm64, Configuration: dev, UndecoratedConfiguration: dev, Architecture: "-aarch64"},
			"Shooter-aarch64"},
		{"override extension", "Shooter", rules.BinaryExecutable,
			NameOptions{Platform: rules.PlatformWin64, Configuration: dev, UndecoratedConfiguration: dev, OverrideExtension: ".bin"},
			"Shooter.bin"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, MakeBinaryFileName(tt.mod, tt.typ, tt.opts))
		})
	}
}

func TestMakeBinaryPathsDebugGameWithoutGameModules(t *testing.T) {
	opts := NameOptions{Platform: rules.PlatformWin64, Configuration: rules.ConfigDebugGame, UndecoratedConfiguration: rules.ConfigDevelopment}

	require.Equal(t, []string{"/ue/Engine/Binaries/Win64/UE4Editor-Core.dll"},
		MakeBinaryPaths("/ue/Engine", "UE4Editor-Core", rules.BinaryDynamicLibrary, false, "", opts))
	require.Equal(t, []string{"/games/Shooter/Binaries/Win64/Tools/Shooter-Win64-DebugGame.exe"},
		MakeBinaryPaths("/games/Shooter", "Shooter", rules.BinaryExecutable, true, "Tools", opts))
}

func TestAddModuleFilenameSuffix(t *testing.T) {
	got, err := AddModuleFilenameSuffix("Engine", "/ue/Engine/Binaries/Linux/libUE4Editor-engine.so", "7")
	require.NoError(t, err)
	require.Equal(t, "/ue/Engine/Binaries/Linux/libUE4Editor-engine-7.so", got)

	_, err = AddModuleFilenameSuffix("Renderer", "/ue/Engine/Binaries/Linux/libUE4Editor-Core.so", "7")
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryInternal))
}
