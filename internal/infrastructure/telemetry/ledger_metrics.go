package telemetry

import (
	"context"
	"fmt"

	appledger "github.com/backoffice/backend/internal/application/ledger"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
)

// LedgerMetrics records ledger operation measurements: consumption
// volume, layer fan-out per consumption, conflicts, and restores.
type LedgerMetrics struct {
	consumptions         *Counter
	conflicts            *Counter
	restores             *Counter
	layersPerConsumption *Histogram
	quantityConsumed     *Histogram
	quantityRestored     *Histogram
}

// NewLedgerMetrics creates the ledger instrument set on the given meter.
func NewLedgerMetrics(meter metric.Meter) (*LedgerMetrics, error) {
	consumptions, err := NewCounter(meter,
		"ledger.consumptions.total",
		"Total number of successful FIFO consumptions",
		"{consumption}")
	if err != nil {
		return nil, err
	}

	conflicts, err := NewCounter(meter,
		"ledger.conflicts.total",
		"Total number of conflict outcomes (insufficient stock, active consumption)",
		"{conflict}")
	if err != nil {
		return nil, err
	}

	restores, err := NewCounter(meter,
		"ledger.restores.total",
		"Total number of consumption reversals",
		"{restore}")
	if err != nil {
		return nil, err
	}

	layersPerConsumption, err := NewHistogram(meter, HistogramOpts{
		Name:        "ledger.consumption.layers",
		Description: "Number of layers drawn from per consumption",
		Unit:        "{layer}",
		Boundaries:  []float64{1, 2, 3, 5, 8, 13, 21},
	})
	if err != nil {
		return nil, err
	}

	quantityConsumed, err := NewHistogram(meter, HistogramOpts{
		Name:        "ledger.consumption.quantity",
		Description: "Quantity consumed per consumption",
		Unit:        "{unit}",
	})
	if err != nil {
		return nil, err
	}

	quantityRestored, err := NewHistogram(meter, HistogramOpts{
		Name:        "ledger.restore.quantity",
		Description: "Quantity credited back per restore",
		Unit:        "{unit}",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ledger metrics: %w", err)
	}

	return &LedgerMetrics{
		consumptions:         consumptions,
		conflicts:            conflicts,
		restores:             restores,
		layersPerConsumption: layersPerConsumption,
		quantityConsumed:     quantityConsumed,
		quantityRestored:     quantityRestored,
	}, nil
}

// RecordConsumption records one successful consumption.
func (m *LedgerMetrics) RecordConsumption(ctx context.Context, layersUsed int, qty decimal.Decimal) {
	m.consumptions.Inc(ctx)
	m.layersPerConsumption.Record(ctx, float64(layersUsed))
	m.quantityConsumed.Record(ctx, qty.InexactFloat64())
}

// RecordConflict records one conflict outcome for the named operation.
func (m *LedgerMetrics) RecordConflict(ctx context.Context, operation string) {
	m.conflicts.Inc(ctx, AttrOperation.String(operation))
}

// RecordRestore records one reversal.
func (m *LedgerMetrics) RecordRestore(ctx context.Context, qty decimal.Decimal) {
	m.restores.Inc(ctx)
	m.quantityRestored.Record(ctx, qty.InexactFloat64())
}

// Ensure LedgerMetrics implements MetricsRecorder
var _ appledger.MetricsRecorder = (*LedgerMetrics)(nil)
