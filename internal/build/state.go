package build

import (
	"time"

	"git.home.luguber.info/inful/targetbuilder/internal/binaries"
	"git.home.luguber.info/inful/targetbuilder/internal/buildsteps"
	"git.home.luguber.info/inful/targetbuilder/internal/catalog"
	"git.home.luguber.info/inful/targetbuilder/internal/modulegraph"
	"git.home.luguber.info/inful/targetbuilder/internal/pch"
	"git.home.luguber.info/inful/targetbuilder/internal/plugins"
	"git.home.luguber.info/inful/targetbuilder/internal/receipt"
	"git.home.luguber.info/inful/targetbuilder/internal/rules"
	"git.home.luguber.info/inful/targetbuilder/internal/toolchain"
)

// State is the mutable state of one build, threaded through every stage.
type State struct {
	Request BuildRequest
	BuildID string

	Catalog  *catalog.FS
	Target   *rules.TargetRules
	Project  *rules.ProjectDescriptor
	Layout   *rules.Layout
	Plugins  *plugins.Set
	Graph    *modulegraph.Builder
	Assigner *binaries.Assigner
	// Binaries is the binary list after filtering.
	Binaries []*binaries.Binary
	// ModDirs restricts outputs to mod plugins when the project is installed.
	ModDirs []string

	Scripts    buildsteps.Scripts
	SharedPCHs []pch.Template
	Toolchain  toolchain.Toolchain
	Receipts   *receipt.Manager
	Receipt    *receipt.Receipt

	Produced     []string
	ManifestFile string
	FilesCleaned int
	Warnings     []string

	Completed      []StageName
	StageDurations map[StageName]time.Duration
}

func newState(req BuildRequest, buildID string) *State {
	return &State{
		Request:        req,
		BuildID:        buildID,
		StageDurations: map[StageName]time.Duration{},
	}
}

// allModules returns the modules of every binary, in binary then module order.
func (st *State) allModules() []*modulegraph.Module {
	var out []*modulegraph.Module
	for _, b := range st.Binaries {
		out = append(out, b.Modules...)
	}
	return out
}
