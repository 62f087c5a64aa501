// Package version reports the targetbuilder release, stamped at link time:
//
//	go build -ldflags "-X git.home.luguber.info/inful/targetbuilder/internal/version.Version=v0.3.0"
package version

import (
	"fmt"
	"runtime/debug"
)

const unknown = "unknown"

var (
	Version   = unknown
	BuildTime = unknown
	GitCommit = unknown
)

// String renders the one-line form printed by --version. Fields not stamped
// at link time are taken from the VCS data the Go toolchain embeds.
func String() string {
	commit, built := GitCommit, BuildTime
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			switch {
			case s.Key == "vcs.revision" && commit == unknown:
				commit = shortRevision(s.Value)
			case s.Key == "vcs.time" && built == unknown:
				built = s.Value
			}
		}
	}
	return fmt.Sprintf("targetbuilder %s (commit %s, built %s)", Version, commit, built)
}

func shortRevision(rev string) string {
	if len(rev) > 12 {
		return rev[:12]
	}
	return rev
}
