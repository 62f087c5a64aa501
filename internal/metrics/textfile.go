package metrics

import (
	"fmt"

	prom "github.com/prometheus/client_golang/prometheus"
)

// WriteTextfile writes every metric of the recorder's registry in the text
// exposition format, for pickup by the node exporter textfile collector.
func WriteTextfile(path string, p *PrometheusRecorder) error {
	if p == nil || p.Registry() == nil {
		return nil
	}
	if err := prom.WriteToTextfile(path, p.Registry()); err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", path, err)
	}
	return nil
}
