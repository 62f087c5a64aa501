package metrics

import "time"

// ResultLabel is the outcome of one pipeline stage.
type ResultLabel string

const (
	ResultSuccess  ResultLabel = "success"
	ResultWarning  ResultLabel = "warning"
	ResultFatal    ResultLabel = "fatal"
	ResultCanceled ResultLabel = "canceled"
	ResultSkipped  ResultLabel = "skipped"
)

// BuildOutcomeLabel is the final status of a target build.
type BuildOutcomeLabel string

const (
	BuildOutcomeSuccess  BuildOutcomeLabel = "success"
	BuildOutcomeFailed   BuildOutcomeLabel = "failed"
	BuildOutcomeCanceled BuildOutcomeLabel = "canceled"
)

// Recorder receives stage and build measurements from the build service.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration)
	IncStageResult(stage string, result ResultLabel)
	ObserveBuildDuration(d time.Duration)
	IncBuildOutcome(outcome BuildOutcomeLabel)
	// SetBinaryCount reports how many binaries survived filtering.
	SetBinaryCount(n int)
	AddFilesProduced(n int)
	AddFilesCleaned(n int)
}

// NoopRecorder discards everything. It is the build service's default.
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) IncStageResult(string, ResultLabel)         {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)         {}
func (NoopRecorder) IncBuildOutcome(BuildOutcomeLabel)          {}
func (NoopRecorder) SetBinaryCount(int)                         {}
func (NoopRecorder) AddFilesProduced(int)                       {}
func (NoopRecorder) AddFilesCleaned(int)                        {}
