package ledger

import (
	"context"
	"sort"

	"github.com/backoffice/backend/internal/domain/ledger"
	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// fakeStore is an in-memory implementation of the ledger repositories.
// It mirrors the SQL repositories' filtering and ordering semantics so
// service tests exercise the engine against realistic store behavior.
type fakeStore struct {
	enabled       bool
	nextLayerID   int64
	nextAllocID   int64
	layers        map[int64]*ledger.StockLayer
	allocs        map[int64]*ledger.LayerAllocation
	lockedLots    []int64
	lockedSources []ledger.SourceScope
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		enabled: true,
		layers:  make(map[int64]*ledger.StockLayer),
		allocs:  make(map[int64]*ledger.LayerAllocation),
	}
}

func (s *fakeStore) FifoEnabled(_ context.Context) bool {
	return s.enabled
}

func (s *fakeStore) Create(_ context.Context, layer *ledger.StockLayer) error {
	s.nextLayerID++
	layer.ID = s.nextLayerID
	clone := *layer
	s.layers[layer.ID] = &clone
	return nil
}

func (s *fakeStore) FindByID(_ context.Context, id int64) (*ledger.StockLayer, error) {
	layer, ok := s.layers[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	clone := *layer
	return &clone, nil
}

func matchesKey(layer *ledger.StockLayer, key ledger.ProductKey) bool {
	if layer.ProductID != key.ProductID() {
		return false
	}
	if variantID, ok := key.Variant(); ok {
		return layer.VariantID != nil && *layer.VariantID == variantID
	}
	return layer.VariantID == nil
}

func fifoSort(layers []*ledger.StockLayer) {
	sort.Slice(layers, func(i, j int) bool {
		if !layers[i].LayerDate.Equal(layers[j].LayerDate) {
			return layers[i].LayerDate.Before(layers[j].LayerDate)
		}
		return layers[i].ID < layers[j].ID
	})
}

func (s *fakeStore) FindCandidatesForUpdate(_ context.Context, key ledger.ProductKey, lotID *int64) ([]*ledger.StockLayer, error) {
	var out []*ledger.StockLayer
	for _, layer := range s.layers {
		if !matchesKey(layer, key) || !layer.Usable() {
			continue
		}
		if lotID != nil && (layer.LotID == nil || *layer.LotID != *lotID) {
			continue
		}
		clone := *layer
		out = append(out, &clone)
	}
	fifoSort(out)
	return out, nil
}

func (s *fakeStore) LockByLot(_ context.Context, lotID int64) error {
	s.lockedLots = append(s.lockedLots, lotID)
	return nil
}

func (s *fakeStore) LockBySource(_ context.Context, source ledger.SourceScope) error {
	s.lockedSources = append(s.lockedSources, source)
	return nil
}

func (s *fakeStore) ApplyDraw(_ context.Context, layerID int64, qty decimal.Decimal) error {
	layer, ok := s.layers[layerID]
	if !ok {
		return shared.ErrNotFound
	}
	layer.RemainingQty = layer.RemainingQty.Sub(qty)
	return nil
}

func (s *fakeStore) Credit(_ context.Context, layerID int64, qty decimal.Decimal) error {
	layer, ok := s.layers[layerID]
	if !ok {
		return shared.ErrNotFound
	}
	layer.RemainingQty = layer.RemainingQty.Add(qty)
	return nil
}

func (s *fakeStore) DeleteBySource(_ context.Context, source ledger.SourceScope) (int64, error) {
	var deleted int64
	for id, layer := range s.layers {
		if layer.SourceTable == source.Table && layer.SourceID != nil && *layer.SourceID == source.ID {
			delete(s.layers, id)
			deleted++
		}
	}
	return deleted, nil
}

func (s *fakeStore) DeleteByLot(_ context.Context, lotID int64) (int64, error) {
	var deleted int64
	for id, layer := range s.layers {
		if layer.LotID != nil && *layer.LotID == lotID {
			delete(s.layers, id)
			deleted++
		}
	}
	return deleted, nil
}

func (s *fakeStore) SetCancelledByLot(_ context.Context, lotID int64, cancelled bool) (int64, error) {
	var affected int64
	for _, layer := range s.layers {
		if layer.LotID != nil && *layer.LotID == lotID {
			s.toggleCancelled(layer, cancelled)
			affected++
		}
	}
	return affected, nil
}

func (s *fakeStore) SetCancelledBySource(_ context.Context, source ledger.SourceScope, cancelled bool) (int64, error) {
	var affected int64
	for _, layer := range s.layers {
		if layer.SourceTable == source.Table && layer.SourceID != nil && *layer.SourceID == source.ID {
			s.toggleCancelled(layer, cancelled)
			affected++
		}
	}
	return affected, nil
}

func (s *fakeStore) toggleCancelled(layer *ledger.StockLayer, cancelled bool) {
	layer.Cancelled = cancelled
	if cancelled {
		layer.RemainingQty = decimal.Zero
	} else {
		layer.RemainingQty = layer.OriginalQty
	}
}

func (s *fakeStore) ListByKey(_ context.Context, key ledger.ProductKey) ([]*ledger.StockLayer, error) {
	var out []*ledger.StockLayer
	for _, layer := range s.layers {
		if matchesKey(layer, key) {
			clone := *layer
			out = append(out, &clone)
		}
	}
	fifoSort(out)
	return out, nil
}

func (s *fakeStore) ListByLot(_ context.Context, lotID int64) ([]*ledger.StockLayer, error) {
	var out []*ledger.StockLayer
	for _, layer := range s.layers {
		if layer.LotID != nil && *layer.LotID == lotID {
			clone := *layer
			out = append(out, &clone)
		}
	}
	fifoSort(out)
	return out, nil
}

func (s *fakeStore) ValuationByKey(_ context.Context, key ledger.ProductKey) (ledger.ValuationSummary, error) {
	summary := ledger.ValuationSummary{
		Key:           key,
		RemainingQty:  decimal.Zero,
		InventoryCost: decimal.Zero,
	}
	for _, layer := range s.layers {
		if !matchesKey(layer, key) || layer.Cancelled || !layer.RemainingQty.GreaterThan(decimal.Zero) {
			continue
		}
		summary.RemainingQty = summary.RemainingQty.Add(layer.RemainingQty)
		summary.InventoryCost = summary.InventoryCost.Add(layer.RemainingValue())
		summary.LayerCount++
	}
	return summary, nil
}

// allocations exposes the store as an AllocationRepository. The fake
// implements both repositories on distinct method sets via this adapter
// because Create collides between the two interfaces.
func (s *fakeStore) allocations() ledger.AllocationRepository {
	return (*fakeAllocations)(s)
}

type fakeAllocations fakeStore

func (s *fakeAllocations) Create(_ context.Context, alloc *ledger.LayerAllocation) error {
	s.nextAllocID++
	alloc.ID = s.nextAllocID
	clone := *alloc
	s.allocs[alloc.ID] = &clone
	return nil
}

func (s *fakeAllocations) FindByTargetForUpdate(_ context.Context, target ledger.TargetRef) ([]*ledger.LayerAllocation, error) {
	var out []*ledger.LayerAllocation
	for _, alloc := range s.allocs {
		if alloc.TargetTable == target.Table && alloc.TargetItemID == target.ItemID && alloc.Quantity.GreaterThan(decimal.Zero) {
			clone := *alloc
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *fakeAllocations) Delete(_ context.Context, id int64) error {
	if _, ok := s.allocs[id]; !ok {
		return shared.ErrNotFound
	}
	delete(s.allocs, id)
	return nil
}

func (s *fakeAllocations) CountActiveForLot(_ context.Context, lotID int64) (int64, error) {
	var count int64
	for _, alloc := range s.allocs {
		if !alloc.Quantity.GreaterThan(decimal.Zero) {
			continue
		}
		layer, ok := s.layers[alloc.LayerID]
		if ok && layer.LotID != nil && *layer.LotID == lotID {
			count++
		}
	}
	return count, nil
}

func (s *fakeAllocations) CountActiveForSource(_ context.Context, source ledger.SourceScope) (int64, error) {
	var count int64
	for _, alloc := range s.allocs {
		if !alloc.Quantity.GreaterThan(decimal.Zero) {
			continue
		}
		layer, ok := s.layers[alloc.LayerID]
		if ok && layer.SourceTable == source.Table && layer.SourceID != nil && *layer.SourceID == source.ID {
			count++
		}
	}
	return count, nil
}

var _ ledger.LayerRepository = (*fakeStore)(nil)
var _ ledger.AllocationRepository = (*fakeAllocations)(nil)
var _ ledger.CapabilityDetector = (*fakeStore)(nil)
