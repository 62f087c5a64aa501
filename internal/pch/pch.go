// Package pch orders shared precompiled-header anchor modules.
package pch

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"git.home.luguber.info/inful/targetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/targetbuilder/internal/modulegraph"
	"git.home.luguber.info/inful/targetbuilder/internal/util/pathutil"
)

// Template is a shared PCH anchor module and its header.
type Template struct {
	Module *modulegraph.Module
	Header string
}

// Graph is the subset of the module graph the selector needs.
type Graph interface {
	DependenciesOf(m *modulegraph.Module, includeDynamic, forceCircular bool) ([]*modulegraph.Module, error)
}

// Select returns the anchors of modules, given in binary then module order,
// sorted by how many other anchors each one depends on. Ties keep their order.
func Select(modules []*modulegraph.Module, graph Graph, engineDir string) ([]Template, error) {
	var anchors []*modulegraph.Module
	seen := map[*modulegraph.Module]bool{}
	for _, m := range modules {
		if seen[m] || m.Rules == nil || m.Rules.SharedPCHHeader == "" {
			continue
		}
		seen[m] = true
		anchors = append(anchors, m)
	}

	var outside []string
	for _, m := range anchors {
		if !pathutil.IsUnder(m.RulesFile, engineDir) {
			outside = append(outside, m.Name)
		}
	}
	if len(outside) > 0 {
		return nil, errors.ConfigError(fmt.Sprintf(
			"Shared PCHs are only supported for engine modules (found %s).", strings.Join(outside, ", "))).
			Build()
	}

	priority := make(map[*modulegraph.Module]int, len(anchors))
	for _, m := range anchors {
		deps, err := graph.DependenciesOf(m, false, false)
		if err != nil {
			return nil, err
		}
		for _, d := range deps {
			if seen[d] {
				priority[m]++
			}
		}
	}

	sort.SliceStable(anchors, func(i, j int) bool {
		return priority[anchors[i]] > priority[anchors[j]]
	})

	out := make([]Template, len(anchors))
	for i, m := range anchors {
		header := m.Rules.SharedPCHHeader
		if !filepath.IsAbs(header) {
			header = filepath.Join(m.Directory, header)
		}
		out[i] = Template{Module: m, Header: header}
	}
	return out, nil
}
