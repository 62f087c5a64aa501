package git

import (
	"log/slog"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"git.home.luguber.info/inful/targetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/targetbuilder/internal/logfields"
	"git.home.luguber.info/inful/targetbuilder/internal/receipt"
)

// Marker is the version information read from a repository.
type Marker struct {
	// Changelist is the number of commits reachable from HEAD.
	Changelist int
	Branch     string
	Commit     string
}

// BuildVersion converts the marker into a receipt version.
func (m Marker) BuildVersion() receipt.BuildVersion {
	return receipt.BuildVersion{Changelist: m.Changelist, BranchName: m.Branch}
}

// ReadVersion opens the repository containing path and returns its marker.
func ReadVersion(path string) (Marker, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return Marker{}, errors.WrapError(err, errors.CategoryConfig, "open git repository").
			AtPath(path).Build()
	}
	head, err := repo.Head()
	if err != nil {
		return Marker{}, errors.WrapError(err, errors.CategoryConfig, "resolve HEAD").
			AtPath(path).Build()
	}

	iter, err := repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return Marker{}, errors.WrapError(err, errors.CategoryConfig, "read commit log").
			AtPath(path).Build()
	}
	count := 0
	if err := iter.ForEach(func(*object.Commit) error {
		count++
		return nil
	}); err != nil {
		return Marker{}, errors.WrapError(err, errors.CategoryConfig, "walk commit log").
			AtPath(path).Build()
	}

	m := Marker{Changelist: count, Commit: head.Hash().String()}
	if head.Name().IsBranch() {
		m.Branch = head.Name().Short()
	}
	slog.Debug("Read git version marker", logfields.Path(path),
		slog.Int("changelist", m.Changelist), slog.String("branch", m.Branch))
	return m, nil
}
