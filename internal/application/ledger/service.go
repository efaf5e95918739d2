package ledger

import (
	"context"

	"github.com/backoffice/backend/internal/domain/ledger"
	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func invalidInput(message string) *shared.DomainError {
	return shared.NewDomainError("INVALID_INPUT", message)
}

// MetricsRecorder receives ledger operation measurements. Implemented by
// the telemetry package; a nil recorder disables instrumentation.
type MetricsRecorder interface {
	RecordConsumption(ctx context.Context, layersUsed int, qty decimal.Decimal)
	RecordConflict(ctx context.Context, operation string)
	RecordRestore(ctx context.Context, qty decimal.Decimal)
}

// LedgerService exposes the FIFO stock layer and allocation ledger
// operations. Every public method opens exactly one transaction through
// the scope; the matching *InTx methods carry the actual engine logic
// and are what in-process callers (order/transfer/purchase-return flows)
// compose inside their own ambient transaction.
type LedgerService struct {
	scope   TransactionScope
	logger  *zap.Logger
	metrics MetricsRecorder
}

// NewLedgerService creates a new LedgerService.
func NewLedgerService(scope TransactionScope, logger *zap.Logger) *LedgerService {
	return &LedgerService{
		scope:  scope,
		logger: logger,
	}
}

// SetMetricsRecorder sets the metrics recorder (optional).
func (s *LedgerService) SetMetricsRecorder(m MetricsRecorder) {
	s.metrics = m
}

// FifoEnabled reports whether both ledger tables exist in the current
// deployment. Checked per call, never cached, so a migration applied
// while the process runs is picked up immediately.
func (s *LedgerService) FifoEnabled(ctx context.Context) (bool, error) {
	var enabled bool
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		enabled = repos.Capability().FifoEnabled(ctx)
		return nil
	})
	return enabled, err
}

// CreateLayer registers one new stock layer.
func (s *LedgerService) CreateLayer(ctx context.Context, req CreateLayerRequest) (*LayerResponse, error) {
	var resp *LayerResponse
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		resp, err = s.CreateLayerInTx(ctx, repos, req)
		return err
	})
	return resp, err
}

// CreateLayerInTx registers one new stock layer inside the caller's
// transaction. Every purchasing event becomes its own layer; layers are
// never merged even when cost and date coincide.
func (s *LedgerService) CreateLayerInTx(ctx context.Context, repos TransactionalRepositories, req CreateLayerRequest) (*LayerResponse, error) {
	layer, err := ledger.NewStockLayer(req.spec())
	if err != nil {
		return nil, err
	}
	if err := repos.Layers().Create(ctx, layer); err != nil {
		return nil, err
	}

	s.logger.Debug("stock layer created",
		zap.Int64("layer_id", layer.ID),
		zap.String("key", layer.Key().String()),
		zap.String("source_table", layer.SourceTable),
		zap.String("qty", layer.OriginalQty.String()),
	)
	return toLayerResponse(layer), nil
}

// Consume satisfies a demand from the oldest available layers.
func (s *LedgerService) Consume(ctx context.Context, req ConsumeRequest) (*ConsumptionResult, error) {
	var result *ConsumptionResult
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		result, err = s.ConsumeInTx(ctx, repos, req)
		return err
	})
	return result, err
}

// ConsumeInTx runs the FIFO consumption engine inside the caller's
// transaction: it locks the eligible layers in (layer_date, id) order,
// walks them greedily, persists one allocation plus the paired layer
// decrement per draw, and returns the blended cost summary. On
// insufficient stock nothing is persisted and a conflict error is
// returned; the caller's transaction must roll back.
func (s *LedgerService) ConsumeInTx(ctx context.Context, repos TransactionalRepositories, req ConsumeRequest) (*ConsumptionResult, error) {
	demand := req.demand()
	if err := demand.Validate(); err != nil {
		return nil, err
	}

	if !repos.Capability().FifoEnabled(ctx) {
		return &ConsumptionResult{Disabled: true}, nil
	}

	correlationID := uuid.New()

	candidates, err := repos.Layers().FindCandidatesForUpdate(ctx, demand.Key, demand.LotID)
	if err != nil {
		return nil, err
	}

	plan, err := ledger.PlanConsumption(candidates, demand.Quantity)
	if err != nil {
		if err == ledger.ErrInsufficientStock {
			if s.metrics != nil {
				s.metrics.RecordConflict(ctx, "consume")
			}
			s.logger.Info("insufficient stock for consumption",
				zap.String("correlation_id", correlationID.String()),
				zap.String("key", demand.Key.String()),
				zap.String("requested", demand.Quantity.String()),
				zap.Int("candidates", len(candidates)),
			)
		}
		return nil, err
	}

	// Paired writes, in draw order: one allocation row plus the matching
	// layer decrement per layer drawn from.
	for _, draw := range plan.Draws {
		alloc := &ledger.LayerAllocation{
			LayerID:      draw.Layer.ID,
			TargetTable:  demand.Target.Table,
			TargetItemID: demand.Target.ItemID,
			Quantity:     draw.Quantity,
		}
		if err := repos.Allocations().Create(ctx, alloc); err != nil {
			return nil, err
		}
		if err := repos.Layers().ApplyDraw(ctx, draw.Layer.ID, draw.Quantity); err != nil {
			return nil, err
		}
	}

	result := &ConsumptionResult{
		TotalQuantity:   plan.TotalQuantity,
		AverageUnitCost: plan.AverageUnitCost(),
		LotID:           plan.SingleLotID(),
		LayersUsed:      plan.LayersUsed(),
	}

	if s.metrics != nil {
		s.metrics.RecordConsumption(ctx, result.LayersUsed, result.TotalQuantity)
	}
	s.logger.Debug("stock consumed",
		zap.String("correlation_id", correlationID.String()),
		zap.String("key", demand.Key.String()),
		zap.String("target", demand.Target.String()),
		zap.String("qty", result.TotalQuantity.String()),
		zap.String("avg_unit_cost", result.AverageUnitCost.String()),
		zap.Int("layers_used", result.LayersUsed),
	)
	return result, nil
}

// RestoreForTarget reverses every consumption recorded for one target.
func (s *LedgerService) RestoreForTarget(ctx context.Context, target ledger.TargetRef) (*RestoreResult, error) {
	var result *RestoreResult
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		result, err = s.RestoreForTargetInTx(ctx, repos, target)
		return err
	})
	return result, err
}

// RestoreForTargetInTx credits every allocation of the target back onto
// its originating layer and deletes the allocation rows. Safe to call
// speculatively: an invalid target, a disabled ledger or a target with no
// allocations all yield a zero-effect result, not an error. A target may
// carry allocations from several historical consumption calls; all of
// them are restored.
func (s *LedgerService) RestoreForTargetInTx(ctx context.Context, repos TransactionalRepositories, target ledger.TargetRef) (*RestoreResult, error) {
	result := &RestoreResult{RestoredQty: decimal.Zero}

	if target.Validate() != nil {
		return result, nil
	}
	if !repos.Capability().FifoEnabled(ctx) {
		return result, nil
	}

	allocs, err := repos.Allocations().FindByTargetForUpdate(ctx, target)
	if err != nil {
		return nil, err
	}

	for _, alloc := range allocs {
		if err := repos.Layers().Credit(ctx, alloc.LayerID, alloc.Quantity); err != nil {
			return nil, err
		}
		if err := repos.Allocations().Delete(ctx, alloc.ID); err != nil {
			return nil, err
		}
		result.RestoredQty = result.RestoredQty.Add(alloc.Quantity)
		result.AllocationsRemoved++
	}

	if result.AllocationsRemoved > 0 {
		if s.metrics != nil {
			s.metrics.RecordRestore(ctx, result.RestoredQty)
		}
		s.logger.Debug("allocations restored",
			zap.String("target", target.String()),
			zap.String("restored_qty", result.RestoredQty.String()),
			zap.Int("allocations_removed", result.AllocationsRemoved),
		)
	}
	return result, nil
}

// EnsureNoConsumptionForLot fails with a conflict error if any layer of
// the lot still has active consumption.
func (s *LedgerService) EnsureNoConsumptionForLot(ctx context.Context, lotID int64) error {
	return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		return s.EnsureNoConsumptionForLotInTx(ctx, repos, lotID)
	})
}

// EnsureNoConsumptionForLotInTx is the in-transaction guard check.
func (s *LedgerService) EnsureNoConsumptionForLotInTx(ctx context.Context, repos TransactionalRepositories, lotID int64) error {
	if lotID <= 0 {
		return invalidInput("Lot id must be a positive integer")
	}
	if !repos.Capability().FifoEnabled(ctx) {
		return nil
	}
	count, err := repos.Allocations().CountActiveForLot(ctx, lotID)
	if err != nil {
		return err
	}
	if count > 0 {
		return ledger.ErrConsumptionActive
	}
	return nil
}

// EnsureNoConsumptionForSource fails with a conflict error if any layer
// created by the source document still has active consumption.
func (s *LedgerService) EnsureNoConsumptionForSource(ctx context.Context, source ledger.SourceScope) error {
	return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		return s.EnsureNoConsumptionForSourceInTx(ctx, repos, source)
	})
}

// EnsureNoConsumptionForSourceInTx is the in-transaction guard check.
func (s *LedgerService) EnsureNoConsumptionForSourceInTx(ctx context.Context, repos TransactionalRepositories, source ledger.SourceScope) error {
	if err := source.Validate(); err != nil {
		return err
	}
	if !repos.Capability().FifoEnabled(ctx) {
		return nil
	}
	count, err := repos.Allocations().CountActiveForSource(ctx, source)
	if err != nil {
		return err
	}
	if count > 0 {
		return ledger.ErrConsumptionActive
	}
	return nil
}

// DeleteLayersForSource hard-deletes every layer created by one document.
// Deliberately unguarded: call paths where deletion safety matters run
// EnsureNoConsumptionForSource themselves first.
func (s *LedgerService) DeleteLayersForSource(ctx context.Context, source ledger.SourceScope) (*LotMutationResult, error) {
	var result *LotMutationResult
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		result, err = s.DeleteLayersForSourceInTx(ctx, repos, source)
		return err
	})
	return result, err
}

// DeleteLayersForSourceInTx is the in-transaction delete.
func (s *LedgerService) DeleteLayersForSourceInTx(ctx context.Context, repos TransactionalRepositories, source ledger.SourceScope) (*LotMutationResult, error) {
	if err := source.Validate(); err != nil {
		return nil, err
	}
	if !repos.Capability().FifoEnabled(ctx) {
		return &LotMutationResult{Disabled: true}, nil
	}
	deleted, err := repos.Layers().DeleteBySource(ctx, source)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("layers deleted for source",
		zap.String("source", source.String()),
		zap.Int64("deleted", deleted),
	)
	return &LotMutationResult{Affected: deleted}, nil
}

// DeleteLayersForSourceGuarded runs the consumption guard and the delete
// in one transaction.
func (s *LedgerService) DeleteLayersForSourceGuarded(ctx context.Context, source ledger.SourceScope) (*LotMutationResult, error) {
	var result *LotMutationResult
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		result, err = s.DeleteLayersForSourceGuardedInTx(ctx, repos, source)
		return err
	})
	return result, err
}

// DeleteLayersForSourceGuardedInTx locks the source's layers, proves no
// active consumption references them, then hard-deletes them. Running
// the guard and the delete in separate transactions would let a
// consumption land in between, and the delete would cascade away its
// fresh allocations; the locks keep the guard count accurate until the
// delete commits.
func (s *LedgerService) DeleteLayersForSourceGuardedInTx(ctx context.Context, repos TransactionalRepositories, source ledger.SourceScope) (*LotMutationResult, error) {
	if err := source.Validate(); err != nil {
		return nil, err
	}
	if !repos.Capability().FifoEnabled(ctx) {
		return &LotMutationResult{Disabled: true}, nil
	}
	if err := repos.Layers().LockBySource(ctx, source); err != nil {
		return nil, err
	}
	if err := s.EnsureNoConsumptionForSourceInTx(ctx, repos, source); err != nil {
		return nil, err
	}
	return s.DeleteLayersForSourceInTx(ctx, repos, source)
}

// SetLotLayersCancelled toggles the cancelled state of all layers of a
// lot. Cancelling zeroes every layer's remaining quantity while keeping
// the rows for audit; restoring resets remaining to original. Both
// directions are guarded: the full restore assumes no partial
// consumption happened, which the guard proves.
func (s *LedgerService) SetLotLayersCancelled(ctx context.Context, lotID int64, cancelled bool) (*LotMutationResult, error) {
	var result *LotMutationResult
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		result, err = s.SetLotLayersCancelledInTx(ctx, repos, lotID, cancelled)
		return err
	})
	return result, err
}

// SetLotLayersCancelledInTx is the in-transaction toggle.
func (s *LedgerService) SetLotLayersCancelledInTx(ctx context.Context, repos TransactionalRepositories, lotID int64, cancelled bool) (*LotMutationResult, error) {
	if lotID <= 0 {
		return nil, invalidInput("Lot id must be a positive integer")
	}
	if !repos.Capability().FifoEnabled(ctx) {
		return &LotMutationResult{Disabled: true}, nil
	}
	if err := repos.Layers().LockByLot(ctx, lotID); err != nil {
		return nil, err
	}
	if err := s.EnsureNoConsumptionForLotInTx(ctx, repos, lotID); err != nil {
		return nil, err
	}
	affected, err := repos.Layers().SetCancelledByLot(ctx, lotID, cancelled)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("lot layers cancellation toggled",
		zap.Int64("lot_id", lotID),
		zap.Bool("cancelled", cancelled),
		zap.Int64("affected", affected),
	)
	return &LotMutationResult{Affected: affected}, nil
}

// SetLayersCancelledForSource is SetLotLayersCancelled scoped by
// provenance pair instead of lot id.
func (s *LedgerService) SetLayersCancelledForSource(ctx context.Context, source ledger.SourceScope, cancelled bool) (*LotMutationResult, error) {
	var result *LotMutationResult
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		result, err = s.SetLayersCancelledForSourceInTx(ctx, repos, source, cancelled)
		return err
	})
	return result, err
}

// SetLayersCancelledForSourceInTx is the in-transaction toggle.
func (s *LedgerService) SetLayersCancelledForSourceInTx(ctx context.Context, repos TransactionalRepositories, source ledger.SourceScope, cancelled bool) (*LotMutationResult, error) {
	if err := source.Validate(); err != nil {
		return nil, err
	}
	if !repos.Capability().FifoEnabled(ctx) {
		return &LotMutationResult{Disabled: true}, nil
	}
	if err := repos.Layers().LockBySource(ctx, source); err != nil {
		return nil, err
	}
	if err := s.EnsureNoConsumptionForSourceInTx(ctx, repos, source); err != nil {
		return nil, err
	}
	affected, err := repos.Layers().SetCancelledBySource(ctx, source, cancelled)
	if err != nil {
		return nil, err
	}
	return &LotMutationResult{Affected: affected}, nil
}

// ReplaceLotLayers regenerates a lot's cost layers from scratch: it
// deletes the existing set and creates one fresh layer per valid item.
// This is how editing a purchase order's line items rebuilds its layers,
// and it is safe precisely because the guard has proven no layer of the
// old set carries active consumption.
func (s *LedgerService) ReplaceLotLayers(ctx context.Context, req ReplaceLotLayersRequest) (*ReplaceLotResult, error) {
	var result *ReplaceLotResult
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		result, err = s.ReplaceLotLayersInTx(ctx, repos, req)
		return err
	})
	return result, err
}

// ReplaceLotLayersInTx is the in-transaction replacement. Items with an
// invalid product id, variant id, cost or quantity are skipped, not
// fatal; the lot simply ends up without a layer for them.
func (s *LedgerService) ReplaceLotLayersInTx(ctx context.Context, repos TransactionalRepositories, req ReplaceLotLayersRequest) (*ReplaceLotResult, error) {
	if req.LotID <= 0 {
		return nil, invalidInput("Lot id must be a positive integer")
	}
	if req.SourceTable == "" {
		return nil, invalidInput("Source table is required")
	}
	if !repos.Capability().FifoEnabled(ctx) {
		return &ReplaceLotResult{Disabled: true}, nil
	}
	if err := repos.Layers().LockByLot(ctx, req.LotID); err != nil {
		return nil, err
	}
	if err := s.EnsureNoConsumptionForLotInTx(ctx, repos, req.LotID); err != nil {
		return nil, err
	}

	deleted, err := repos.Layers().DeleteByLot(ctx, req.LotID)
	if err != nil {
		return nil, err
	}

	result := &ReplaceLotResult{Deleted: deleted}
	lotID := req.LotID
	for i, item := range req.Items {
		spec := ledger.LayerSpec{
			Key:   ledger.KeyFor(item.ProductID, item.VariantID),
			LotID: &lotID,
			Source: ledger.SourceRef{
				Table:  req.SourceTable,
				ID:     &lotID,
				ItemID: item.SourceItemID,
			},
			LayerDate:     req.LayerDate,
			UnitCost:      item.UnitCost,
			UnitSalePrice: item.UnitSalePrice,
			Qty:           item.Qty,
		}
		layer, err := ledger.NewStockLayer(spec)
		if err != nil {
			s.logger.Warn("skipping invalid lot item",
				zap.Int64("lot_id", req.LotID),
				zap.Int("item_index", i),
				zap.Error(err),
			)
			result.Skipped++
			continue
		}
		if err := repos.Layers().Create(ctx, layer); err != nil {
			return nil, err
		}
		result.Created++
	}

	s.logger.Debug("lot layers replaced",
		zap.Int64("lot_id", req.LotID),
		zap.Int64("deleted", result.Deleted),
		zap.Int("created", result.Created),
		zap.Int("skipped", result.Skipped),
	)
	return result, nil
}

// ListLayers returns all layers of a bucket in FIFO order.
func (s *LedgerService) ListLayers(ctx context.Context, productID int64, variantID *int64) ([]*LayerResponse, error) {
	key := ledger.KeyFor(productID, variantID)
	if err := key.Validate(); err != nil {
		return nil, err
	}
	var out []*LayerResponse
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		layers, err := repos.Layers().ListByKey(ctx, key)
		if err != nil {
			return err
		}
		out = make([]*LayerResponse, 0, len(layers))
		for _, l := range layers {
			out = append(out, toLayerResponse(l))
		}
		return nil
	})
	return out, err
}

// ListLotLayers returns all layers of one lot in FIFO order.
func (s *LedgerService) ListLotLayers(ctx context.Context, lotID int64) ([]*LayerResponse, error) {
	if lotID <= 0 {
		return nil, invalidInput("Lot id must be a positive integer")
	}
	var out []*LayerResponse
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		layers, err := repos.Layers().ListByLot(ctx, lotID)
		if err != nil {
			return err
		}
		out = make([]*LayerResponse, 0, len(layers))
		for _, l := range layers {
			out = append(out, toLayerResponse(l))
		}
		return nil
	})
	return out, err
}

// Valuation returns the remaining quantity and inventory cost of a bucket.
func (s *LedgerService) Valuation(ctx context.Context, productID int64, variantID *int64) (*ValuationResponse, error) {
	key := ledger.KeyFor(productID, variantID)
	if err := key.Validate(); err != nil {
		return nil, err
	}
	var resp *ValuationResponse
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		summary, err := repos.Layers().ValuationByKey(ctx, key)
		if err != nil {
			return err
		}
		resp = &ValuationResponse{
			ProductID:     productID,
			VariantID:     variantID,
			RemainingQty:  summary.RemainingQty,
			InventoryCost: summary.InventoryCost.Round(2),
			LayerCount:    summary.LayerCount,
		}
		return nil
	})
	return resp, err
}
