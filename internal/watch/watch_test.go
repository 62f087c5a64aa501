package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTriggerCoalescesDuringBuild(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 4)
	var builds atomic.Int32
	w := New(nil, nil, func(context.Context) error {
		builds.Add(1)
		started <- struct{}{}
		<-release
		return nil
	})

	ctx := t.Context()
	w.trigger(ctx)
	<-started
	w.trigger(ctx)
	w.trigger(ctx)
	w.trigger(ctx)
	close(release)
	w.wg.Wait()

	require.Equal(t, int32(2), builds.Load())
	require.False(t, w.running)
	require.False(t, w.pending)
}

func TestRunRebuildsOnDeclarationChange(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "Source", "Core")
	require.NoError(t, os.MkdirAll(src, 0o750))
	project := filepath.Join(root, "Shooter.project.yaml")
	require.NoError(t, os.WriteFile(project, []byte("modules: []\n"), 0o600))

	built := make(chan struct{}, 8)
	w := New([]string{filepath.Join(root, "Source")}, []string{project}, func(context.Context) error {
		built <- struct{}{}
		return nil
	}).WithDebounce(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher time to register its directories.
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(src, "notes.txt"), []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(src, "Core.build.yaml"), []byte("name: Core\n"), 0o600))
	select {
	case <-built:
	case <-time.After(5 * time.Second):
		t.Fatal("no build after declaration change")
	}

	require.NoError(t, os.WriteFile(project, []byte("modules: [Shooter]\n"), 0o600))
	select {
	case <-built:
	case <-time.After(5 * time.Second):
		t.Fatal("no build after project change")
	}

	cancel()
	require.NoError(t, <-done)
}

func TestRelevant(t *testing.T) {
	w := New(nil, []string{"/games/Shooter/Shooter.project.yaml"}, nil)
	require.True(t, w.relevant("/ue/Engine/Source/Core/Core.build.yaml"))
	require.True(t, w.relevant("/ue/Engine/Plugins/Paper/Paper.plugin.yaml"))
	require.True(t, w.relevant("/games/Shooter/Source/Shooter.target.yaml"))
	require.True(t, w.relevant("/games/Shooter/Shooter.project.yaml"))
	require.False(t, w.relevant("/games/Shooter/Source/Shooter/Private/Shooter.cpp"))
}
