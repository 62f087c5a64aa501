package build

import (
	"context"
	"fmt"
)

// Stage is a discrete unit of work in the target build.
type Stage func(ctx context.Context, st *State) error

// StageName is a strongly-typed identifier for a build stage.
type StageName string

// Canonical stage names, in execution order.
const (
	StageSetup        StageName = "setup"
	StageFilter       StageName = "filter"
	StagePolicy       StageName = "policy"
	StagePreBuild     StageName = "prebuild"
	StageLinkerFixups StageName = "linker_fixups"
	StageSharedPCH    StageName = "shared_pch"
	StageCompile      StageName = "compile"
	StageReceipt      StageName = "receipt"
	StagePostBuild    StageName = "postbuild"
)

// StageErrorKind classifies the outcome of a failed stage.
type StageErrorKind string

const (
	StageErrorFatal    StageErrorKind = "fatal"
	StageErrorCanceled StageErrorKind = "canceled"
)

// StageError is a structured error carrying the failing stage and cause.
type StageError struct {
	Kind  StageErrorKind
	Stage StageName
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s stage %s: %v", e.Kind, e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

// StageDef pairs a stage name with its executing function.
type StageDef struct {
	Name StageName
	Fn   Stage
}

// Pipeline is a fluent builder for ordered stage definitions.
type Pipeline struct{ Defs []StageDef }

// NewPipeline creates an empty pipeline.
func NewPipeline() *Pipeline { return &Pipeline{Defs: make([]StageDef, 0, 9)} }

// Add appends a stage unconditionally.
func (p *Pipeline) Add(name StageName, fn Stage) *Pipeline {
	p.Defs = append(p.Defs, StageDef{Name: name, Fn: fn})
	return p
}

// AddIf appends a stage only if cond is true.
func (p *Pipeline) AddIf(cond bool, name StageName, fn Stage) *Pipeline {
	if cond {
		p.Add(name, fn)
	}
	return p
}

// Build returns a copy of the stage definitions.
func (p *Pipeline) Build() []StageDef {
	out := make([]StageDef, len(p.Defs))
	copy(out, p.Defs)
	return out
}

// Names returns the stage names in order.
func (p *Pipeline) Names() []StageName {
	out := make([]StageName, len(p.Defs))
	for i, d := range p.Defs {
		out[i] = d.Name
	}
	return out
}
