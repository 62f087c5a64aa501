package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// Namespace prefixes every exported metric.
const Namespace = "targetbuilder"

// PrometheusRecorder implements Recorder on a Prometheus registry. A nil
// *PrometheusRecorder records nothing.
type PrometheusRecorder struct {
	registry *prom.Registry

	stageDuration *prom.HistogramVec
	stageResults  *prom.CounterVec
	buildDuration prom.Histogram
	buildOutcome  *prom.CounterVec
	binaries      prom.Gauge
	produced      prom.Counter
	cleaned       prom.Counter
}

func counterOpts(name, help string) prom.CounterOpts {
	return prom.CounterOpts{Namespace: Namespace, Name: name, Help: help}
}

func histogramOpts(name, help string) prom.HistogramOpts {
	return prom.HistogramOpts{Namespace: Namespace, Name: name, Help: help, Buckets: prom.DefBuckets}
}

// NewPrometheusRecorder registers the build metrics on reg, or on a fresh
// registry when reg is nil.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	p := &PrometheusRecorder{
		registry:      reg,
		stageDuration: prom.NewHistogramVec(histogramOpts("stage_duration_seconds", "Duration of each pipeline stage"), []string{"stage"}),
		stageResults:  prom.NewCounterVec(counterOpts("stage_results_total", "Pipeline stage results by outcome"), []string{"stage", "result"}),
		buildDuration: prom.NewHistogram(histogramOpts("build_duration_seconds", "Wall time of a target build")),
		buildOutcome:  prom.NewCounterVec(counterOpts("build_outcomes_total", "Target builds by final status"), []string{"outcome"}),
		binaries: prom.NewGauge(prom.GaugeOpts{
			Namespace: Namespace,
			Name:      "binaries",
			Help:      "Binaries left in the last build after filtering",
		}),
		produced: prom.NewCounter(counterOpts("files_produced_total", "Files reported by the toolchain")),
		cleaned:  prom.NewCounter(counterOpts("files_cleaned_total", "Stale files and directories deleted")),
	}
	reg.MustRegister(p.stageDuration, p.stageResults, p.buildDuration, p.buildOutcome, p.binaries, p.produced, p.cleaned)
	return p
}

// Registry returns the registry the metrics were registered with.
func (p *PrometheusRecorder) Registry() *prom.Registry {
	if p == nil {
		return nil
	}
	return p.registry
}

func (p *PrometheusRecorder) ObserveStageDuration(stage string, d time.Duration) {
	if p != nil {
		p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
	}
}

func (p *PrometheusRecorder) IncStageResult(stage string, result ResultLabel) {
	if p != nil {
		p.stageResults.WithLabelValues(stage, string(result)).Inc()
	}
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p != nil {
		p.buildDuration.Observe(d.Seconds())
	}
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome BuildOutcomeLabel) {
	if p != nil {
		p.buildOutcome.WithLabelValues(string(outcome)).Inc()
	}
}

func (p *PrometheusRecorder) SetBinaryCount(n int) {
	if p != nil {
		p.binaries.Set(float64(n))
	}
}

func (p *PrometheusRecorder) AddFilesProduced(n int) {
	if p != nil && n > 0 {
		p.produced.Add(float64(n))
	}
}

func (p *PrometheusRecorder) AddFilesCleaned(n int) {
	if p != nil && n > 0 {
		p.cleaned.Add(float64(n))
	}
}
