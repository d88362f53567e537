package observability_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/aretw0/sceneweaver"
	"github.com/aretw0/sceneweaver/pkg/adapters/memory"
	"github.com/aretw0/sceneweaver/pkg/domain"
	"github.com/aretw0/sceneweaver/pkg/observability"
	"github.com/aretw0/sceneweaver/pkg/rules"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestMetrics_EditorHooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	ed := sceneweaver.New(
		sceneweaver.WithStore(memory.NewScenarioStore()),
		sceneweaver.WithHooks(metrics.Hooks(logger)),
	)
	start := ed.Snapshot().Steps[0]
	child, _, err := ed.AddLinkedStep(start.ID)
	require.NoError(t, err)

	_, err = ed.Connect(rules.Proposal{SourceStepID: start.ID, SourceSlot: 0, TargetStepID: child.ID, TargetSlot: 1}, "Again")
	require.ErrorIs(t, err, domain.ErrOutputPortOccupied)
	ed.AutoLayout()
	_, err = ed.Save(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1.0, counterValue(t, metrics.Rejections.WithLabelValues("output_port_occupied")))
	assert.Equal(t, 1.0, counterValue(t, metrics.Saves.WithLabelValues("created")))
	assert.Contains(t, logs.String(), "choice_rejected")
	assert.Contains(t, logs.String(), "scenario_save")

	families, err := reg.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["sceneweaver_layout_duration_seconds"])
}

func TestMetrics_LoadOutcome(t *testing.T) {
	metrics := observability.NewMetrics(nil)
	_, err := sceneweaver.Open(context.Background(), "missing",
		sceneweaver.WithStore(memory.NewScenarioStore()),
		sceneweaver.WithHooks(metrics.Hooks(nil)),
	)
	require.Error(t, err)
	assert.Equal(t, 1.0, counterValue(t, metrics.Loads.WithLabelValues("failed")))
}

func TestReasonLabel(t *testing.T) {
	assert.Equal(t, "fan_out_limit", observability.ReasonLabel(domain.ErrFanOutLimit))
	assert.Equal(t, "invalid_label", observability.ReasonLabel(domain.ErrLabelTooLong))
	assert.Equal(t, "other", observability.ReasonLabel(nil))
}
