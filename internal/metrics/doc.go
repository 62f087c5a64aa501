// Package metrics records build and stage metrics for targetbuilder.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so no call site needs a nil check:
//
//	svc := build.NewBuildService(cat, tc).WithRecorder(metrics.NewPrometheusRecorder(reg))
//
// A CLI run is short lived, so metrics are not scraped over HTTP. Instead
// WriteTextfile dumps the registry for the node exporter textfile collector
// when metrics.textfile is configured.
package metrics
