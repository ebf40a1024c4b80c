package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestStatusLabel(t *testing.T) {
	tests := map[int]string{
		0:   "error",
		200: "200",
		502: "502",
	}
	for code, expected := range tests {
		if got := StatusLabel(code); got != expected {
			t.Errorf("StatusLabel(%d) = %q, expected %q", code, got, expected)
		}
	}
}

func counterValue(t *testing.T, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
	metrics:
		for _, metric := range family.GetMetric() {
			for _, pair := range metric.GetLabel() {
				if labels[pair.GetName()] != pair.GetValue() {
					continue metrics
				}
			}
			return metric.GetCounter().GetValue()
		}
	}
	return 0
}

func TestProjectionsCounter(t *testing.T) {
	labels := map[string]string{"source": "test", "status": "ok"}
	before := counterValue(t, "taxsim_projections_total", labels)

	Projections.WithLabelValues("test", "ok").Inc()

	if got := counterValue(t, "taxsim_projections_total", labels); got != before+1 {
		t.Errorf("expected counter %v, got %v", before+1, got)
	}
}
