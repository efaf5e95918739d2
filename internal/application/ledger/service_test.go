package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/backoffice/backend/internal/domain/ledger"
	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(store *fakeStore) *LedgerService {
	scope := NewNoOpTransactionScope(store, store.allocations(), store)
	return NewLedgerService(scope, zap.NewNop())
}

func ptr[T any](v T) *T { return &v }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func seedLayer(t *testing.T, svc *LedgerService, req CreateLayerRequest) *LayerResponse {
	t.Helper()
	resp, err := svc.CreateLayer(context.Background(), req)
	require.NoError(t, err)
	return resp
}

func baseLayerReq() CreateLayerRequest {
	return CreateLayerRequest{
		ProductID:   7,
		LotID:       ptr(int64(1)),
		SourceTable: "purchase_orders",
		SourceID:    ptr(int64(1)),
		LayerDate:   date(2025, 3, 1),
		UnitCost:    decimal.NewFromInt(10),
		Qty:         decimal.NewFromInt(20),
	}
}

func TestCreateLayer(t *testing.T) {
	t.Run("registers a layer with remaining equal to original", func(t *testing.T) {
		svc := newTestService(newFakeStore())

		resp := seedLayer(t, svc, baseLayerReq())
		assert.NotZero(t, resp.ID)
		assert.Equal(t, int64(7), resp.ProductID)
		assert.Equal(t, "2025-03-01", resp.LayerDate)
		assert.True(t, resp.RemainingQty.Equal(resp.OriginalQty))
		assert.False(t, resp.Cancelled)
	})

	t.Run("never merges layers with identical cost and date", func(t *testing.T) {
		store := newFakeStore()
		svc := newTestService(store)

		seedLayer(t, svc, baseLayerReq())
		seedLayer(t, svc, baseLayerReq())

		layers, err := svc.ListLayers(context.Background(), 7, nil)
		require.NoError(t, err)
		assert.Len(t, layers, 2)
	})

	t.Run("rejects invalid input before touching the store", func(t *testing.T) {
		store := newFakeStore()
		svc := newTestService(store)

		req := baseLayerReq()
		req.UnitCost = decimal.Zero
		_, err := svc.CreateLayer(context.Background(), req)
		require.Error(t, err)
		assert.True(t, shared.IsValidation(err))
		assert.Empty(t, store.layers)
	})
}

func TestConsume(t *testing.T) {
	ctx := context.Background()

	consumeReq := func(qty int64) ConsumeRequest {
		return ConsumeRequest{
			ProductID:    7,
			Quantity:     decimal.NewFromInt(qty),
			TargetTable:  "order_items",
			TargetItemID: 31,
		}
	}

	t.Run("consumes oldest layers first", func(t *testing.T) {
		store := newFakeStore()
		svc := newTestService(store)

		newer := baseLayerReq()
		newer.LayerDate = date(2025, 3, 5)
		newer.UnitCost = decimal.NewFromInt(12)
		seedLayer(t, svc, newer)

		older := baseLayerReq()
		older.LayerDate = date(2025, 3, 1)
		seedLayer(t, svc, older)

		result, err := svc.Consume(ctx, consumeReq(25))
		require.NoError(t, err)

		assert.False(t, result.Disabled)
		assert.True(t, result.TotalQuantity.Equal(decimal.NewFromInt(25)))
		assert.Equal(t, 2, result.LayersUsed)
		// 20 at 10 plus 5 at 12 -> 260 / 25 = 10.40
		assert.True(t, result.AverageUnitCost.Equal(decimal.NewFromFloat(10.4)))

		layers, err := svc.ListLayers(ctx, 7, nil)
		require.NoError(t, err)
		// Oldest layer fully drained, newest partially.
		assert.True(t, layers[0].RemainingQty.IsZero())
		assert.True(t, layers[1].RemainingQty.Equal(decimal.NewFromInt(15)))
	})

	t.Run("records one allocation per layer drawn", func(t *testing.T) {
		store := newFakeStore()
		svc := newTestService(store)

		seedLayer(t, svc, baseLayerReq())
		second := baseLayerReq()
		second.LayerDate = date(2025, 3, 2)
		seedLayer(t, svc, second)

		_, err := svc.Consume(ctx, consumeReq(30))
		require.NoError(t, err)

		allocs, err := store.allocations().FindByTargetForUpdate(ctx, ledger.TargetRef{Table: "order_items", ItemID: 31})
		require.NoError(t, err)
		require.Len(t, allocs, 2)

		total := decimal.Zero
		for _, a := range allocs {
			total = total.Add(a.Quantity)
		}
		assert.True(t, total.Equal(decimal.NewFromInt(30)))
	})

	t.Run("insufficient stock persists nothing", func(t *testing.T) {
		store := newFakeStore()
		svc := newTestService(store)
		seedLayer(t, svc, baseLayerReq())

		_, err := svc.Consume(ctx, consumeReq(100))
		require.Error(t, err)
		assert.True(t, shared.IsConflict(err))
		require.ErrorIs(t, err, ledger.ErrInsufficientStock)

		assert.Empty(t, store.allocs)
		layers, err := svc.ListLayers(ctx, 7, nil)
		require.NoError(t, err)
		assert.True(t, layers[0].RemainingQty.Equal(decimal.NewFromInt(20)))
	})

	t.Run("product demand never touches variant layers", func(t *testing.T) {
		store := newFakeStore()
		svc := newTestService(store)

		variantLayer := baseLayerReq()
		variantLayer.VariantID = ptr(int64(21))
		seedLayer(t, svc, variantLayer)

		_, err := svc.Consume(ctx, consumeReq(5))
		require.ErrorIs(t, err, ledger.ErrInsufficientStock)
	})

	t.Run("variant demand draws only its variant bucket", func(t *testing.T) {
		store := newFakeStore()
		svc := newTestService(store)

		seedLayer(t, svc, baseLayerReq())
		variantLayer := baseLayerReq()
		variantLayer.VariantID = ptr(int64(21))
		seedLayer(t, svc, variantLayer)

		req := consumeReq(5)
		req.VariantID = ptr(int64(21))
		result, err := svc.Consume(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, 1, result.LayersUsed)

		layers, err := svc.ListLayers(ctx, 7, nil)
		require.NoError(t, err)
		assert.True(t, layers[0].RemainingQty.Equal(decimal.NewFromInt(20)))
	})

	t.Run("lot constraint skips other lots", func(t *testing.T) {
		store := newFakeStore()
		svc := newTestService(store)

		lotOne := baseLayerReq()
		lotOne.LotID = ptr(int64(1))
		seedLayer(t, svc, lotOne)

		lotTwo := baseLayerReq()
		lotTwo.LotID = ptr(int64(2))
		lotTwo.LayerDate = date(2025, 2, 1)
		seedLayer(t, svc, lotTwo)

		req := consumeReq(5)
		req.LotID = ptr(int64(1))
		result, err := svc.Consume(ctx, req)
		require.NoError(t, err)

		require.NotNil(t, result.LotID)
		assert.Equal(t, int64(1), *result.LotID)
	})

	t.Run("single layer draw attributes its lot", func(t *testing.T) {
		store := newFakeStore()
		svc := newTestService(store)
		seedLayer(t, svc, baseLayerReq())

		result, err := svc.Consume(ctx, consumeReq(5))
		require.NoError(t, err)
		require.NotNil(t, result.LotID)
		assert.Equal(t, int64(1), *result.LotID)
	})

	t.Run("blended draw has no lot attribution", func(t *testing.T) {
		store := newFakeStore()
		svc := newTestService(store)

		seedLayer(t, svc, baseLayerReq())
		second := baseLayerReq()
		second.LotID = ptr(int64(2))
		second.LayerDate = date(2025, 3, 2)
		seedLayer(t, svc, second)

		result, err := svc.Consume(ctx, consumeReq(30))
		require.NoError(t, err)
		assert.Nil(t, result.LotID)
	})

	t.Run("skips cancelled layers", func(t *testing.T) {
		store := newFakeStore()
		svc := newTestService(store)

		seedLayer(t, svc, baseLayerReq())
		_, err := svc.SetLotLayersCancelled(ctx, 1, true)
		require.NoError(t, err)

		_, err = svc.Consume(ctx, consumeReq(5))
		require.ErrorIs(t, err, ledger.ErrInsufficientStock)
	})

	t.Run("disabled ledger yields the disabled marker", func(t *testing.T) {
		store := newFakeStore()
		store.enabled = false
		svc := newTestService(store)

		result, err := svc.Consume(ctx, consumeReq(5))
		require.NoError(t, err)
		assert.True(t, result.Disabled)
		assert.True(t, result.TotalQuantity.IsZero())
	})

	t.Run("validation precedes the capability check", func(t *testing.T) {
		store := newFakeStore()
		store.enabled = false
		svc := newTestService(store)

		req := consumeReq(5)
		req.ProductID = 0
		_, err := svc.Consume(ctx, req)
		require.Error(t, err)
		assert.True(t, shared.IsValidation(err))
	})
}

func TestRestoreForTarget(t *testing.T) {
	ctx := context.Background()
	target := ledger.TargetRef{Table: "order_items", ItemID: 31}

	consumeSome := func(t *testing.T, svc *LedgerService, qty int64) {
		t.Helper()
		_, err := svc.Consume(ctx, ConsumeRequest{
			ProductID:    7,
			Quantity:     decimal.NewFromInt(qty),
			TargetTable:  target.Table,
			TargetItemID: target.ItemID,
		})
		require.NoError(t, err)
	}

	t.Run("round-trips a consumption", func(t *testing.T) {
		store := newFakeStore()
		svc := newTestService(store)

		seedLayer(t, svc, baseLayerReq())
		second := baseLayerReq()
		second.LayerDate = date(2025, 3, 2)
		seedLayer(t, svc, second)

		consumeSome(t, svc, 30)

		result, err := svc.RestoreForTarget(ctx, target)
		require.NoError(t, err)
		assert.True(t, result.RestoredQty.Equal(decimal.NewFromInt(30)))
		assert.Equal(t, 2, result.AllocationsRemoved)

		layers, err := svc.ListLayers(ctx, 7, nil)
		require.NoError(t, err)
		for _, l := range layers {
			assert.True(t, l.RemainingQty.Equal(l.OriginalQty))
		}
		assert.Empty(t, store.allocs)
	})

	t.Run("restores accumulated allocations from several consumptions", func(t *testing.T) {
		store := newFakeStore()
		svc := newTestService(store)
		seedLayer(t, svc, baseLayerReq())

		consumeSome(t, svc, 5)
		consumeSome(t, svc, 3)

		result, err := svc.RestoreForTarget(ctx, target)
		require.NoError(t, err)
		assert.True(t, result.RestoredQty.Equal(decimal.NewFromInt(8)))
		assert.Equal(t, 2, result.AllocationsRemoved)
	})

	t.Run("second restore is a no-op", func(t *testing.T) {
		store := newFakeStore()
		svc := newTestService(store)
		seedLayer(t, svc, baseLayerReq())
		consumeSome(t, svc, 5)

		_, err := svc.RestoreForTarget(ctx, target)
		require.NoError(t, err)

		result, err := svc.RestoreForTarget(ctx, target)
		require.NoError(t, err)
		assert.True(t, result.RestoredQty.IsZero())
		assert.Zero(t, result.AllocationsRemoved)
	})

	t.Run("invalid target yields zero result, not an error", func(t *testing.T) {
		svc := newTestService(newFakeStore())

		result, err := svc.RestoreForTarget(ctx, ledger.TargetRef{})
		require.NoError(t, err)
		assert.True(t, result.RestoredQty.IsZero())
	})

	t.Run("disabled ledger yields zero result", func(t *testing.T) {
		store := newFakeStore()
		store.enabled = false
		svc := newTestService(store)

		result, err := svc.RestoreForTarget(ctx, target)
		require.NoError(t, err)
		assert.True(t, result.RestoredQty.IsZero())
	})
}

func TestConsumptionGuards(t *testing.T) {
	ctx := context.Background()
	target := ledger.TargetRef{Table: "order_items", ItemID: 31}
	source := ledger.SourceScope{Table: "purchase_orders", ID: 1}

	setup := func(t *testing.T) (*fakeStore, *LedgerService) {
		t.Helper()
		store := newFakeStore()
		svc := newTestService(store)
		seedLayer(t, svc, baseLayerReq())
		return store, svc
	}

	consume := func(t *testing.T, svc *LedgerService) {
		t.Helper()
		_, err := svc.Consume(ctx, ConsumeRequest{
			ProductID:    7,
			Quantity:     decimal.NewFromInt(5),
			TargetTable:  target.Table,
			TargetItemID: target.ItemID,
		})
		require.NoError(t, err)
	}

	t.Run("lot guard passes with no consumption", func(t *testing.T) {
		_, svc := setup(t)
		require.NoError(t, svc.EnsureNoConsumptionForLot(ctx, 1))
	})

	t.Run("lot guard conflicts while allocations exist", func(t *testing.T) {
		_, svc := setup(t)
		consume(t, svc)

		err := svc.EnsureNoConsumptionForLot(ctx, 1)
		require.ErrorIs(t, err, ledger.ErrConsumptionActive)
		assert.True(t, shared.IsConflict(err))
	})

	t.Run("lot guard passes again after restore", func(t *testing.T) {
		_, svc := setup(t)
		consume(t, svc)

		_, err := svc.RestoreForTarget(ctx, target)
		require.NoError(t, err)
		require.NoError(t, svc.EnsureNoConsumptionForLot(ctx, 1))
	})

	t.Run("source guard mirrors the lot guard", func(t *testing.T) {
		_, svc := setup(t)
		consume(t, svc)

		err := svc.EnsureNoConsumptionForSource(ctx, source)
		require.ErrorIs(t, err, ledger.ErrConsumptionActive)
	})

	t.Run("guards pass when the ledger is disabled", func(t *testing.T) {
		store, svc := setup(t)
		consume(t, svc)

		store.enabled = false
		require.NoError(t, svc.EnsureNoConsumptionForLot(ctx, 1))
		require.NoError(t, svc.EnsureNoConsumptionForSource(ctx, source))
	})

	t.Run("lot guard rejects non-positive lot id", func(t *testing.T) {
		_, svc := setup(t)
		err := svc.EnsureNoConsumptionForLot(ctx, 0)
		require.Error(t, err)
		assert.True(t, shared.IsValidation(err))
	})
}

func TestLotLifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("cancel zeroes remaining and keeps rows", func(t *testing.T) {
		store := newFakeStore()
		svc := newTestService(store)
		seedLayer(t, svc, baseLayerReq())

		result, err := svc.SetLotLayersCancelled(ctx, 1, true)
		require.NoError(t, err)
		assert.Equal(t, int64(1), result.Affected)
		assert.Equal(t, []int64{1}, store.lockedLots)

		layers, err := svc.ListLotLayers(ctx, 1)
		require.NoError(t, err)
		require.Len(t, layers, 1)
		assert.True(t, layers[0].Cancelled)
		assert.True(t, layers[0].RemainingQty.IsZero())
		assert.True(t, layers[0].OriginalQty.Equal(decimal.NewFromInt(20)))
	})

	t.Run("restore resets remaining to original", func(t *testing.T) {
		store := newFakeStore()
		svc := newTestService(store)
		seedLayer(t, svc, baseLayerReq())

		_, err := svc.SetLotLayersCancelled(ctx, 1, true)
		require.NoError(t, err)
		_, err = svc.SetLotLayersCancelled(ctx, 1, false)
		require.NoError(t, err)

		layers, err := svc.ListLotLayers(ctx, 1)
		require.NoError(t, err)
		assert.False(t, layers[0].Cancelled)
		assert.True(t, layers[0].RemainingQty.Equal(layers[0].OriginalQty))
	})

	t.Run("cancel refuses while consumption is active", func(t *testing.T) {
		store := newFakeStore()
		svc := newTestService(store)
		seedLayer(t, svc, baseLayerReq())

		_, err := svc.Consume(ctx, ConsumeRequest{
			ProductID:    7,
			Quantity:     decimal.NewFromInt(5),
			TargetTable:  "order_items",
			TargetItemID: 31,
		})
		require.NoError(t, err)

		_, err = svc.SetLotLayersCancelled(ctx, 1, true)
		require.ErrorIs(t, err, ledger.ErrConsumptionActive)
	})

	t.Run("source scoped toggle behaves like lot toggle", func(t *testing.T) {
		store := newFakeStore()
		svc := newTestService(store)
		seedLayer(t, svc, baseLayerReq())

		result, err := svc.SetLayersCancelledForSource(ctx, ledger.SourceScope{Table: "purchase_orders", ID: 1}, true)
		require.NoError(t, err)
		assert.Equal(t, int64(1), result.Affected)
	})

	t.Run("disabled ledger reports the marker", func(t *testing.T) {
		store := newFakeStore()
		store.enabled = false
		svc := newTestService(store)

		result, err := svc.SetLotLayersCancelled(ctx, 1, true)
		require.NoError(t, err)
		assert.True(t, result.Disabled)
	})

	t.Run("delete by source is unguarded", func(t *testing.T) {
		store := newFakeStore()
		svc := newTestService(store)
		seedLayer(t, svc, baseLayerReq())

		_, err := svc.Consume(ctx, ConsumeRequest{
			ProductID:    7,
			Quantity:     decimal.NewFromInt(5),
			TargetTable:  "order_items",
			TargetItemID: 31,
		})
		require.NoError(t, err)

		result, err := svc.DeleteLayersForSource(ctx, ledger.SourceScope{Table: "purchase_orders", ID: 1})
		require.NoError(t, err)
		assert.Equal(t, int64(1), result.Affected)
	})
}

// countingScope wraps a scope and counts Execute calls, so a test can
// prove that a compound operation opens exactly one transaction.
type countingScope struct {
	inner    TransactionScope
	executes int
}

func (s *countingScope) Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error {
	s.executes++
	return s.inner.Execute(ctx, fn)
}

func TestDeleteLayersForSourceGuarded(t *testing.T) {
	ctx := context.Background()
	source := ledger.SourceScope{Table: "purchase_orders", ID: 1}

	t.Run("runs guard and delete in one transaction", func(t *testing.T) {
		store := newFakeStore()
		scope := &countingScope{inner: NewNoOpTransactionScope(store, store.allocations(), store)}
		svc := NewLedgerService(scope, zap.NewNop())
		seedLayer(t, svc, baseLayerReq())
		scope.executes = 0

		result, err := svc.DeleteLayersForSourceGuarded(ctx, source)
		require.NoError(t, err)
		assert.Equal(t, int64(1), result.Affected)
		assert.Equal(t, 1, scope.executes)
	})

	t.Run("locks the source layers before counting", func(t *testing.T) {
		store := newFakeStore()
		svc := newTestService(store)
		seedLayer(t, svc, baseLayerReq())

		_, err := svc.DeleteLayersForSourceGuarded(ctx, source)
		require.NoError(t, err)
		assert.Equal(t, []ledger.SourceScope{source}, store.lockedSources)
	})

	t.Run("refuses while consumption is active and keeps the layers", func(t *testing.T) {
		store := newFakeStore()
		svc := newTestService(store)
		seedLayer(t, svc, baseLayerReq())

		_, err := svc.Consume(ctx, ConsumeRequest{
			ProductID:    7,
			Quantity:     decimal.NewFromInt(5),
			TargetTable:  "order_items",
			TargetItemID: 31,
		})
		require.NoError(t, err)

		_, err = svc.DeleteLayersForSourceGuarded(ctx, source)
		require.ErrorIs(t, err, ledger.ErrConsumptionActive)

		layers, err := svc.ListLotLayers(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, layers, 1)
		assert.Len(t, store.allocs, 1)
	})

	t.Run("disabled ledger reports the marker", func(t *testing.T) {
		store := newFakeStore()
		store.enabled = false
		svc := newTestService(store)

		result, err := svc.DeleteLayersForSourceGuarded(ctx, source)
		require.NoError(t, err)
		assert.True(t, result.Disabled)
	})

	t.Run("rejects an invalid scope", func(t *testing.T) {
		svc := newTestService(newFakeStore())
		_, err := svc.DeleteLayersForSourceGuarded(ctx, ledger.SourceScope{Table: "", ID: 1})
		require.Error(t, err)
		assert.True(t, shared.IsValidation(err))
	})
}

func TestReplaceLotLayers(t *testing.T) {
	ctx := context.Background()

	replaceReq := func() ReplaceLotLayersRequest {
		return ReplaceLotLayersRequest{
			LotID:       1,
			SourceTable: "purchase_orders",
			LayerDate:   date(2025, 4, 1),
			Items: []ReplaceLotItem{
				{ProductID: 7, UnitCost: decimal.NewFromInt(11), Qty: decimal.NewFromInt(15)},
				{ProductID: 8, UnitCost: decimal.NewFromInt(9), Qty: decimal.NewFromInt(6)},
			},
		}
	}

	t.Run("deletes the old set and creates the new one", func(t *testing.T) {
		store := newFakeStore()
		svc := newTestService(store)
		seedLayer(t, svc, baseLayerReq())

		result, err := svc.ReplaceLotLayers(ctx, replaceReq())
		require.NoError(t, err)
		assert.Equal(t, int64(1), result.Deleted)
		assert.Equal(t, 2, result.Created)
		assert.Zero(t, result.Skipped)

		layers, err := svc.ListLotLayers(ctx, 1)
		require.NoError(t, err)
		require.Len(t, layers, 2)
		for _, l := range layers {
			assert.Equal(t, "2025-04-01", l.LayerDate)
			require.NotNil(t, l.LotID)
			assert.Equal(t, int64(1), *l.LotID)
		}
	})

	t.Run("skips invalid items without failing", func(t *testing.T) {
		store := newFakeStore()
		svc := newTestService(store)

		req := replaceReq()
		req.Items = append(req.Items, ReplaceLotItem{ProductID: 9, UnitCost: decimal.Zero, Qty: decimal.NewFromInt(4)})

		result, err := svc.ReplaceLotLayers(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, 2, result.Created)
		assert.Equal(t, 1, result.Skipped)
	})

	t.Run("refuses while consumption is active", func(t *testing.T) {
		store := newFakeStore()
		svc := newTestService(store)
		seedLayer(t, svc, baseLayerReq())

		_, err := svc.Consume(ctx, ConsumeRequest{
			ProductID:    7,
			Quantity:     decimal.NewFromInt(5),
			TargetTable:  "order_items",
			TargetItemID: 31,
		})
		require.NoError(t, err)

		_, err = svc.ReplaceLotLayers(ctx, replaceReq())
		require.ErrorIs(t, err, ledger.ErrConsumptionActive)
	})

	t.Run("disabled ledger reports the marker", func(t *testing.T) {
		store := newFakeStore()
		store.enabled = false
		svc := newTestService(store)

		result, err := svc.ReplaceLotLayers(ctx, replaceReq())
		require.NoError(t, err)
		assert.True(t, result.Disabled)
	})

	t.Run("rejects missing lot id or source table", func(t *testing.T) {
		svc := newTestService(newFakeStore())

		req := replaceReq()
		req.LotID = 0
		_, err := svc.ReplaceLotLayers(ctx, req)
		require.Error(t, err)

		req = replaceReq()
		req.SourceTable = ""
		_, err = svc.ReplaceLotLayers(ctx, req)
		require.Error(t, err)
	})
}

func TestValuation(t *testing.T) {
	ctx := context.Background()

	t.Run("sums usable layers and rounds cost to cents", func(t *testing.T) {
		store := newFakeStore()
		svc := newTestService(store)

		first := baseLayerReq()
		first.UnitCost = decimal.NewFromFloat(10.333)
		first.Qty = decimal.NewFromInt(3)
		seedLayer(t, svc, first)

		second := baseLayerReq()
		second.LayerDate = date(2025, 3, 2)
		second.UnitCost = decimal.NewFromInt(5)
		second.Qty = decimal.NewFromInt(2)
		seedLayer(t, svc, second)

		resp, err := svc.Valuation(ctx, 7, nil)
		require.NoError(t, err)

		assert.True(t, resp.RemainingQty.Equal(decimal.NewFromInt(5)))
		// 3 * 10.333 + 2 * 5 = 40.999 -> 41.00
		assert.True(t, resp.InventoryCost.Equal(decimal.NewFromInt(41)))
		assert.Equal(t, int64(2), resp.LayerCount)
	})

	t.Run("cancelled layers do not count", func(t *testing.T) {
		store := newFakeStore()
		svc := newTestService(store)
		seedLayer(t, svc, baseLayerReq())

		_, err := svc.SetLotLayersCancelled(ctx, 1, true)
		require.NoError(t, err)

		resp, err := svc.Valuation(ctx, 7, nil)
		require.NoError(t, err)
		assert.True(t, resp.RemainingQty.IsZero())
		assert.Zero(t, resp.LayerCount)
	})

	t.Run("rejects invalid bucket", func(t *testing.T) {
		svc := newTestService(newFakeStore())
		_, err := svc.Valuation(ctx, 0, nil)
		require.Error(t, err)
	})
}

func TestFifoEnabled(t *testing.T) {
	ctx := context.Background()

	store := newFakeStore()
	svc := newTestService(store)

	enabled, err := svc.FifoEnabled(ctx)
	require.NoError(t, err)
	assert.True(t, enabled)

	store.enabled = false
	enabled, err = svc.FifoEnabled(ctx)
	require.NoError(t, err)
	assert.False(t, enabled)
}
