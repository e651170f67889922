package manager_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

// counterValue достаёт значение ecomstore_manager_operations_total по меткам.
func counterValue(t *testing.T, reg *prometheus.Registry, entity, operation, result string) float64 {
	t.Helper()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	for _, family := range families {
		if family.GetName() != "ecomstore_manager_operations_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			labels := make(map[string]string, len(metric.GetLabel()))
			for _, pair := range metric.GetLabel() {
				labels[pair.GetName()] = pair.GetValue()
			}
			if labels["entity"] == entity && labels["operation"] == operation && labels["result"] == result {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}
