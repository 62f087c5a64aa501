package history

import (
	"context"
	"time"
)

const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// BuildSummary is the read model of one build.
type BuildSummary struct {
	BuildID       string
	Target        string
	Platform      string
	Configuration string
	Status        string
	StartedAt     time.Time
	Duration      time.Duration
	Stages        []string
	Receipt       string
	Binaries      int
	FilesCleaned  int
	ErrorStage    string
	Error         string
}

// Summaries folds events into one summary per build, newest first.
func Summaries(events []Event) ([]BuildSummary, error) {
	byID := map[string]*BuildSummary{}
	var order []string
	for _, e := range events {
		s, ok := byID[e.BuildID]
		if !ok {
			s = &BuildSummary{BuildID: e.BuildID, Status: StatusRunning, StartedAt: e.Timestamp}
			byID[e.BuildID] = s
			order = append(order, e.BuildID)
		}
		if err := apply(s, e); err != nil {
			return nil, err
		}
	}
	out := make([]BuildSummary, 0, len(order))
	for i := len(order) - 1; i >= 0; i-- {
		out = append(out, *byID[order[i]])
	}
	return out, nil
}

func apply(s *BuildSummary, e Event) error {
	switch e.Type {
	case TypeBuildStarted:
		var p BuildStarted
		if err := e.Decode(&p); err != nil {
			return err
		}
		s.Target, s.Platform, s.Configuration = p.Target, p.Platform, p.Configuration
		s.StartedAt = e.Timestamp
	case TypeStageCompleted:
		var p StageCompleted
		if err := e.Decode(&p); err != nil {
			return err
		}
		s.Stages = append(s.Stages, p.Stage)
	case TypeReceiptWritten:
		var p ReceiptWritten
		if err := e.Decode(&p); err != nil {
			return err
		}
		s.Receipt = p.Path
	case TypeBuildFinished:
		var p BuildFinished
		if err := e.Decode(&p); err != nil {
			return err
		}
		s.Status = p.Status
		s.Duration = time.Duration(p.DurationMS) * time.Millisecond
		s.Binaries = p.Binaries
		s.FilesCleaned = p.FilesCleaned
		s.ErrorStage = p.ErrorStage
		s.Error = p.Error
	}
	return nil
}

// List returns the summaries of the newest limit builds.
func List(ctx context.Context, store Store, limit int) ([]BuildSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	events, err := store.Recent(ctx, limit)
	if err != nil {
		return nil, err
	}
	return Summaries(events)
}
