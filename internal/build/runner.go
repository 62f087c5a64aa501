package build

import (
	"context"
	stderrors "errors"
	"time"

	"git.home.luguber.info/inful/targetbuilder/internal/metrics"
	"git.home.luguber.info/inful/targetbuilder/internal/observability"
)

// runStages executes stages in order, recording timing and stopping on the
// first error. Cancellation is honoured until the compile stage starts; from
// then on the remaining stages run detached from ctx so the receipt always
// describes what the toolchain actually produced.
func runStages(ctx context.Context, st *State, defs []StageDef, observers []StageObserver) error {
	for _, def := range defs {
		if err := ctx.Err(); err != nil {
			se := &StageError{Kind: StageErrorCanceled, Stage: def.Name, Err: err}
			for _, o := range observers {
				o.OnStageComplete(ctx, def.Name, 0, metrics.ResultCanceled, se)
			}
			return se
		}
		if def.Name == StageCompile {
			ctx = context.WithoutCancel(ctx)
		}

		sctx := observability.WithStage(ctx, string(def.Name))
		for _, o := range observers {
			o.OnStageStart(sctx, def.Name)
		}
		warnings := len(st.Warnings)

		t0 := time.Now()
		err := def.Fn(sctx, st)
		d := time.Since(t0)
		st.StageDurations[def.Name] = d

		result := metrics.ResultSuccess
		var se *StageError
		switch {
		case err != nil && isCancellation(err):
			se = &StageError{Kind: StageErrorCanceled, Stage: def.Name, Err: err}
			result = metrics.ResultCanceled
		case err != nil:
			se = &StageError{Kind: StageErrorFatal, Stage: def.Name, Err: err}
			result = metrics.ResultFatal
		case len(st.Warnings) > warnings:
			result = metrics.ResultWarning
		}

		var stageErr error
		if se != nil {
			stageErr = se
		}
		for _, o := range observers {
			o.OnStageComplete(sctx, def.Name, d, result, stageErr)
		}
		if stageErr != nil {
			return stageErr
		}
		st.Completed = append(st.Completed, def.Name)
	}
	return nil
}

func isCancellation(err error) bool {
	return stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded)
}
