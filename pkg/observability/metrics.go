package observability

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aretw0/sceneweaver/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the editor collectors.
type Metrics struct {
	Rejections *prometheus.CounterVec
	Saves      *prometheus.CounterVec
	SaveTime   prometheus.Histogram
	Layouts    prometheus.Histogram
	Loads      *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Rejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sceneweaver_choices_rejected_total",
				Help: "Connections refused by the rule engine, by reason",
			},
			[]string{"reason"},
		),
		Saves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sceneweaver_saves_total",
				Help: "Save attempts by outcome",
			},
			[]string{"outcome"},
		),
		SaveTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sceneweaver_save_duration_seconds",
			Help:    "Duration of save round trips",
			Buckets: prometheus.DefBuckets,
		}),
		Layouts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sceneweaver_layout_duration_seconds",
			Help:    "Duration of auto-layout runs",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
		Loads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sceneweaver_loads_total",
				Help: "Scenario loads by outcome",
			},
			[]string{"outcome"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Rejections, m.Saves, m.SaveTime, m.Layouts, m.Loads)
	}
	return m
}

// Hooks returns editor hooks that record into m and log each event.
// A nil logger disables logging.
func (m *Metrics) Hooks(logger *slog.Logger) domain.EditorHooks {
	return domain.EditorHooks{
		OnChoiceRejected: func(ctx context.Context, e *domain.RejectionEvent) {
			m.Rejections.WithLabelValues(ReasonLabel(e.Reason)).Inc()
			if logger != nil {
				logger.InfoContext(ctx, "choice_rejected", "source", e.SourceStepID, "target", e.TargetStepID, "reason", e.Reason)
			}
		},
		OnSave: func(ctx context.Context, e *domain.SaveEvent) {
			m.Saves.WithLabelValues(string(e.Outcome)).Inc()
			m.SaveTime.Observe(e.Duration.Seconds())
			if logger != nil {
				logger.InfoContext(ctx, "scenario_save", "scenario", e.ScenarioID, "outcome", e.Outcome, "duration", e.Duration)
			}
		},
		OnLayout: func(ctx context.Context, e *domain.LayoutEvent) {
			m.Layouts.Observe(e.Duration.Seconds())
			if logger != nil {
				logger.DebugContext(ctx, "layout", "nodes", e.Nodes, "edges", e.Edges, "ranks", e.Ranks, "duration", e.Duration)
			}
		},
		OnLoad: func(ctx context.Context, e *domain.LoadEvent) {
			outcome := "ok"
			if e.Err != nil {
				outcome = "failed"
			}
			m.Loads.WithLabelValues(outcome).Inc()
			if logger != nil {
				logger.InfoContext(ctx, "scenario_load", "scenario", e.ScenarioID, "outcome", outcome)
			}
		},
	}
}

// ReasonLabel maps a rejection to a low-cardinality label value.
func ReasonLabel(err error) string {
	switch {
	case errors.Is(err, domain.ErrFanOutLimit):
		return "fan_out_limit"
	case errors.Is(err, domain.ErrOutputPortOccupied):
		return "output_port_occupied"
	case errors.Is(err, domain.ErrInputPortOccupied):
		return "input_port_occupied"
	case errors.Is(err, domain.ErrSlotOutOfRange):
		return "slot_out_of_range"
	case errors.Is(err, domain.ErrLabelEmpty), errors.Is(err, domain.ErrLabelTooLong):
		return "invalid_label"
	case errors.Is(err, domain.ErrStepNotFound):
		return "step_not_found"
	}
	return "other"
}
