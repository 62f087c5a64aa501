package build

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/targetbuilder/internal/history"
	"git.home.luguber.info/inful/targetbuilder/internal/logfields"
	"git.home.luguber.info/inful/targetbuilder/internal/metrics"
)

// StageObserver receives callbacks around stage execution.
type StageObserver interface {
	OnStageStart(ctx context.Context, stage StageName)
	OnStageComplete(ctx context.Context, stage StageName, d time.Duration, result metrics.ResultLabel, err error)
}

// RecorderObserver adapts metrics.Recorder into a StageObserver.
type RecorderObserver struct{ Recorder metrics.Recorder }

func (RecorderObserver) OnStageStart(context.Context, StageName) {}

func (r RecorderObserver) OnStageComplete(_ context.Context, stage StageName, d time.Duration, result metrics.ResultLabel, _ error) {
	if r.Recorder == nil {
		return
	}
	r.Recorder.ObserveStageDuration(string(stage), d)
	r.Recorder.IncStageResult(string(stage), result)
}

// HistoryObserver records a StageCompleted event per stage.
type HistoryObserver struct {
	Store   history.Store
	BuildID string
	Logger  *slog.Logger
}

func (HistoryObserver) OnStageStart(context.Context, StageName) {}

func (h HistoryObserver) OnStageComplete(ctx context.Context, stage StageName, d time.Duration, _ metrics.ResultLabel, err error) {
	if h.Store == nil {
		return
	}
	ev := history.StageCompleted{Stage: string(stage), DurationMS: d.Milliseconds()}
	if err != nil {
		ev.Error = err.Error()
	}
	if appendErr := h.Store.Append(ctx, h.BuildID, history.TypeStageCompleted, ev, nil); appendErr != nil && h.Logger != nil {
		h.Logger.Warn("Failed to record stage", logfields.Stage(string(stage)), logfields.Error(appendErr))
	}
}
