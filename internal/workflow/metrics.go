package workflow

import (
	"context"
	"errors"

	"github.com/ormvat/dossierflow/internal/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName is the instrumentation scope of the workflow counters.
const MeterName = "github.com/ormvat/dossierflow/internal/workflow"

type metrics struct {
	transitions metric.Int64Counter
	failures    metric.Int64Counter
}

func defaultMeter() metric.Meter {
	return otel.Meter(MeterName)
}

func newMetrics(m metric.Meter) (*metrics, error) {
	transitions, err := m.Int64Counter("dossierflow.workflow.transitions",
		metric.WithDescription("Phase transitions applied"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, err
	}
	failures, err := m.Int64Counter("dossierflow.workflow.transition_failures",
		metric.WithDescription("Phase transitions rejected or aborted"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, err
	}
	return &metrics{transitions: transitions, failures: failures}, nil
}

func (m *metrics) record(ctx context.Context, kind string, err error) {
	if err == nil {
		m.transitions.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
		return
	}
	m.failures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("reason", reason(err)),
	))
}

func reason(err error) string {
	switch {
	case errors.Is(err, common.ErrConflict):
		return "conflict"
	case errors.Is(err, common.ErrForbidden):
		return "forbidden"
	case errors.Is(err, common.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, common.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, common.ErrDataIntegrity):
		return "data_integrity"
	default:
		return "storage"
	}
}
