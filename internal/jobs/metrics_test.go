package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func gathered(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		total := 0.0
		for _, m := range f.GetMetric() {
			total += m.GetCounter().GetValue() + m.GetGauge().GetValue()
		}
		return total
	}
	return 0
}

func TestTrackerRecordsOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	require.NoError(t, m.Track("stock:low_scan").End(nil))
	boom := errors.New("boom")
	require.ErrorIs(t, m.Track("stock:low_scan").End(boom), boom)

	require.Equal(t, 2.0, gathered(t, reg, "feedmill_jobs_total"))
	require.Equal(t, 1.0, gathered(t, reg, "feedmill_jobs_failures_total"))

	m.SetLowStock(3)
	require.Equal(t, 3.0, gathered(t, reg, "feedmill_low_stock_feeds"))

	m.AddPruned(4)
	m.AddPruned(0)
	require.Equal(t, 4.0, gathered(t, reg, "feedmill_idempotency_keys_pruned_total"))

	var nilMetrics *Metrics
	require.NoError(t, nilMetrics.Track("x").End(nil))
	nilMetrics.SetLowStock(1)
	nilMetrics.AddPruned(1)
}
