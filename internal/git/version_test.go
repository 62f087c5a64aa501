package git

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/targetbuilder/internal/foundation/errors"
)

func commitFile(t *testing.T, wt *git.Worktree, dir, name string) plumbing.Hash {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(name), 0o600))
	_, err := wt.Add(name)
	require.NoError(t, err)
	hash, err := wt.Commit("add "+name, &git.CommitOptions{
		Author: &object.Signature{Name: "Build Bot", Email: "bot@example.com", When: time.Unix(1_700_000_000, 0)},
	})
	require.NoError(t, err)
	return hash
}

func TestReadVersion(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	commitFile(t, wt, dir, "a.txt")
	commitFile(t, wt, dir, "b.txt")
	last := commitFile(t, wt, dir, "c.txt")

	sub := filepath.Join(dir, "Engine", "Build")
	require.NoError(t, os.MkdirAll(sub, 0o750))

	m, err := ReadVersion(sub)
	require.NoError(t, err)
	require.Equal(t, 3, m.Changelist)
	require.Equal(t, "master", m.Branch)
	require.Equal(t, last.String(), m.Commit)

	v := m.BuildVersion()
	require.Equal(t, 3, v.EffectiveCompatibleChangelist())
	require.Equal(t, "master", v.BranchName)
}

func TestReadVersionDetachedHead(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	first := commitFile(t, wt, dir, "a.txt")
	commitFile(t, wt, dir, "b.txt")

	require.NoError(t, wt.Checkout(&git.CheckoutOptions{Hash: first}))
	m, err := ReadVersion(dir)
	require.NoError(t, err)
	require.Equal(t, 1, m.Changelist)
	require.Empty(t, m.Branch)
}

func TestReadVersionNotARepository(t *testing.T) {
	_, err := ReadVersion(t.TempDir())
	require.Error(t, err)
	require.True(t, errors.HasCategory(err, errors.CategoryConfig))
}
