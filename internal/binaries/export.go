package binaries

import (
	"encoding/json"
	"fmt"
	"io"

	"git.home.luguber.info/inful/targetbuilder/internal/modulegraph"
)

// Export is the JSON description of an assigned target.
type Export struct {
	Name          string                  `json:"name"`
	Configuration string                  `json:"configuration"`
	Platform      string                  `json:"platform"`
	ProjectFile   string                  `json:"project_file,omitempty"`
	Binaries      []ExportBinary          `json:"binaries"`
	Modules       map[string]ExportModule `json:"modules"`
}

// ExportBinary describes one binary.
type ExportBinary struct {
	File    string   `json:"file"`
	Type    string   `json:"type"`
	Modules []string `json:"modules"`
}

// ExportModule describes one module.
type ExportModule struct {
	Category            string   `json:"category"`
	Directory           string   `json:"directory"`
	Rules               string   `json:"rules,omitempty"`
	PublicDependencies  []string `json:"public_dependencies,omitempty"`
	PrivateDependencies []string `json:"private_dependencies,omitempty"`
	DynamicallyLoaded   []string `json:"dynamically_loaded,omitempty"`
	Binary              string   `json:"binary,omitempty"`
}

// BuildExport collects the assignment into an Export.
func (a *Assigner) BuildExport() Export {
	l := a.layout
	out := Export{
		Name:          l.TargetName,
		Configuration: string(l.Configuration),
		Platform:      string(l.Platform),
		ProjectFile:   l.ProjectFile,
		Modules:       map[string]ExportModule{},
	}
	for _, b := range a.Binaries {
		eb := ExportBinary{File: b.PrimaryOutput(), Type: string(b.Type)}
		for _, m := range b.Modules {
			eb.Modules = append(eb.Modules, m.Name)
		}
		out.Binaries = append(out.Binaries, eb)
	}
	for _, m := range a.graph.Modules() {
		out.Modules[m.Name] = exportModule(m)
	}
	return out
}

func exportModule(m *modulegraph.Module) ExportModule {
	em := ExportModule{
		Category:            string(m.Category),
		Directory:           m.Directory,
		Rules:               m.RulesFile,
		PublicDependencies:  m.PublicDependencies,
		PrivateDependencies: m.PrivateDependencies,
		DynamicallyLoaded:   m.DynamicallyLoaded,
	}
	if b := m.Binary(); b != nil {
		em.Binary = b.PrimaryOutput()
	}
	return em
}

// ExportJSON writes the assignment as indented JSON.
func (a *Assigner) ExportJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(a.BuildExport()); err != nil {
		return fmt.Errorf("export target: %w", err)
	}
	return nil
}
