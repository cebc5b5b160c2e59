package metrics

import (
	"os"
	"path/filepath"
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func family(t *testing.T, reg *Registry, name string) *dto.MetricFamily {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()
	require.NotNil(t, reg)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, mfs, "go runtime metrics should be registered")
}

func TestRegistry_ObserveSolve(t *testing.T) {
	reg := NewRegistry()

	reg.ObserveSolve("frontier", "converged", 0.002)
	reg.ObserveSolve("frontier", "converged", 0.003)
	reg.ObserveSolve("frontier", "infeasible", 0)

	mf := family(t, reg, "allocate_solves_total")
	require.NotNil(t, mf)
	counts := map[string]float64{}
	for _, m := range mf.GetMetric() {
		for _, l := range m.GetLabel() {
			if l.GetName() == "status" {
				counts[l.GetValue()] = m.GetCounter().GetValue()
			}
		}
	}
	assert.Equal(t, map[string]float64{"converged": 2, "infeasible": 1}, counts)

	hist := family(t, reg, "allocate_solve_duration_seconds")
	require.NotNil(t, hist)
	assert.Equal(t, uint64(3), hist.GetMetric()[0].GetHistogram().GetSampleCount())
}

func TestRegistry_ObserveFrontier(t *testing.T) {
	reg := NewRegistry()
	reg.ObserveFrontier(100, 87)

	assert.Equal(t, 100.0, family(t, reg, "allocate_frontier_points_requested").GetMetric()[0].GetGauge().GetValue())
	assert.Equal(t, 87.0, family(t, reg, "allocate_frontier_points_solved").GetMetric()[0].GetGauge().GetValue())
}

func TestRegistry_RecordRun(t *testing.T) {
	reg := NewRegistry()
	reg.RecordRun("black-litterman", "ok", 1.5)
	reg.SetUniverseSize(6)

	require.NotNil(t, family(t, reg, "allocate_runs_total"))
	assert.Equal(t, 6.0, family(t, reg, "allocate_universe_assets").GetMetric()[0].GetGauge().GetValue())
}

func TestRegistry_WriteTextfile(t *testing.T) {
	reg := NewRegistry()
	reg.ObserveSolve("max_sharpe", "converged", 0.01)

	path := filepath.Join(t.TempDir(), "allocate.prom")
	require.NoError(t, reg.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `allocate_solves_total{kind="max_sharpe",status="converged"} 1`)
}

func TestStatusToString(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{0, "error"},
		{101, "1xx"},
		{200, "2xx"},
		{304, "3xx"},
		{404, "4xx"},
		{503, "5xx"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusToString(tt.status))
	}
}
