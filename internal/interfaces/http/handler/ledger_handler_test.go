package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	appledger "github.com/backoffice/backend/internal/application/ledger"
	"github.com/backoffice/backend/internal/domain/ledger"
	"github.com/backoffice/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/backoffice/backend/internal/infrastructure/persistence"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// newLedgerTestServer builds an engine over an in-memory database. The
// locking consumption paths need PostgreSQL and are covered by the
// integration suite; everything else runs here.
func newLedgerTestServer(t *testing.T, migrated bool) *gin.Engine {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	if migrated {
		require.NoError(t, db.Migrator().CreateTable(&ledger.StockLayer{}))
		require.NoError(t, db.Migrator().CreateTable(&ledger.LayerAllocation{}))
	}

	scope := persistence.NewGormLedgerTransactionScope(db)
	svc := appledger.NewLedgerService(scope, zap.NewNop())

	engine := gin.New()
	NewLedgerHandler(svc).RegisterRoutes(engine.Group("/api/v1"))
	return engine
}

func doJSON(engine *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

const validLayerBody = `{
	"product_id": 7,
	"lot_id": 1,
	"source_table": "purchase_orders",
	"source_id": 1,
	"layer_date": "2025-03-01",
	"unit_cost": 10,
	"qty": 20
}`

func TestLedgerHandler_Capability(t *testing.T) {
	t.Run("enabled when tables exist", func(t *testing.T) {
		engine := newLedgerTestServer(t, true)

		w := doJSON(engine, "GET", "/api/v1/ledger/capability", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"fifo_enabled":true`)
	})

	t.Run("disabled without tables", func(t *testing.T) {
		engine := newLedgerTestServer(t, false)

		w := doJSON(engine, "GET", "/api/v1/ledger/capability", "")

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"fifo_enabled":false`)
	})
}

func TestLedgerHandler_CreateLayer(t *testing.T) {
	t.Run("creates a layer", func(t *testing.T) {
		engine := newLedgerTestServer(t, true)

		w := doJSON(engine, "POST", "/api/v1/ledger/layers", validLayerBody)

		assert.Equal(t, http.StatusCreated, w.Code)
		resp := decodeResponse(t, w)
		assert.True(t, resp.Success)

		data, ok := resp.Data.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "2025-03-01", data["layer_date"])
		assert.Equal(t, data["original_qty"], data["remaining_qty"])
	})

	t.Run("rejects missing fields", func(t *testing.T) {
		engine := newLedgerTestServer(t, true)

		w := doJSON(engine, "POST", "/api/v1/ledger/layers", `{"product_id": 7}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects malformed layer date", func(t *testing.T) {
		engine := newLedgerTestServer(t, true)

		body := strings.Replace(validLayerBody, "2025-03-01", "03/01/2025", 1)
		w := doJSON(engine, "POST", "/api/v1/ledger/layers", body)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "layer_date")
	})

	t.Run("conflict when the ledger is disabled", func(t *testing.T) {
		engine := newLedgerTestServer(t, false)

		w := doJSON(engine, "POST", "/api/v1/ledger/layers", validLayerBody)

		assert.Equal(t, http.StatusConflict, w.Code)
		resp := decodeResponse(t, w)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeFifoDisabled, resp.Error.Code)
	})

	t.Run("maps domain validation to 400", func(t *testing.T) {
		engine := newLedgerTestServer(t, true)

		// Binding accepts a negative cost; the domain does not.
		body := strings.Replace(validLayerBody, `"unit_cost": 10`, `"unit_cost": -1`, 1)
		w := doJSON(engine, "POST", "/api/v1/ledger/layers", body)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeResponse(t, w)
		require.NotNil(t, resp.Error)
		assert.Equal(t, "INVALID_INPUT", resp.Error.Code)
	})
}

func TestLedgerHandler_ListAndValuation(t *testing.T) {
	engine := newLedgerTestServer(t, true)

	w := doJSON(engine, "POST", "/api/v1/ledger/layers", validLayerBody)
	require.Equal(t, http.StatusCreated, w.Code)

	t.Run("lists layers of a bucket", func(t *testing.T) {
		w := doJSON(engine, "GET", "/api/v1/ledger/layers?product_id=7", "")

		assert.Equal(t, http.StatusOK, w.Code)
		resp := decodeResponse(t, w)
		layers, ok := resp.Data.([]interface{})
		require.True(t, ok)
		assert.Len(t, layers, 1)
	})

	t.Run("empty bucket lists nothing", func(t *testing.T) {
		w := doJSON(engine, "GET", "/api/v1/ledger/layers?product_id=999", "")

		assert.Equal(t, http.StatusOK, w.Code)
		resp := decodeResponse(t, w)
		assert.True(t, resp.Success)
		// An empty list serializes as absent data
		layers, _ := resp.Data.([]interface{})
		assert.Empty(t, layers)
	})

	t.Run("rejects missing product_id", func(t *testing.T) {
		w := doJSON(engine, "GET", "/api/v1/ledger/layers", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("valuation sums the bucket", func(t *testing.T) {
		w := doJSON(engine, "GET", "/api/v1/ledger/layers/valuation?product_id=7", "")

		assert.Equal(t, http.StatusOK, w.Code)
		resp := decodeResponse(t, w)
		data, ok := resp.Data.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, float64(1), data["layer_count"])
	})

	t.Run("lists layers of a lot", func(t *testing.T) {
		w := doJSON(engine, "GET", "/api/v1/ledger/lots/1/layers", "")

		assert.Equal(t, http.StatusOK, w.Code)
		resp := decodeResponse(t, w)
		layers, ok := resp.Data.([]interface{})
		require.True(t, ok)
		assert.Len(t, layers, 1)
	})
}

func TestLedgerHandler_LotLifecycle(t *testing.T) {
	engine := newLedgerTestServer(t, true)

	w := doJSON(engine, "POST", "/api/v1/ledger/layers", validLayerBody)
	require.Equal(t, http.StatusCreated, w.Code)

	t.Run("guard passes with no consumption", func(t *testing.T) {
		w := doJSON(engine, "POST", "/api/v1/ledger/lots/1/guard", "")
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("cancel and restore round-trip", func(t *testing.T) {
		w := doJSON(engine, "POST", "/api/v1/ledger/lots/1/cancel", "")
		assert.Equal(t, http.StatusOK, w.Code)
		resp := decodeResponse(t, w)
		data := resp.Data.(map[string]interface{})
		assert.Equal(t, float64(1), data["affected"])

		w = doJSON(engine, "POST", "/api/v1/ledger/lots/1/restore", "")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("replace rebuilds the lot's layers", func(t *testing.T) {
		body := `{
			"source_table": "purchase_orders",
			"layer_date": "2025-03-02",
			"items": [
				{"product_id": 7, "unit_cost": 11, "qty": 5},
				{"product_id": 0, "unit_cost": 1, "qty": 1}
			]
		}`
		w := doJSON(engine, "PUT", "/api/v1/ledger/lots/1/layers", body)

		assert.Equal(t, http.StatusOK, w.Code)
		resp := decodeResponse(t, w)
		data := resp.Data.(map[string]interface{})
		assert.Equal(t, float64(1), data["created"])
		assert.Equal(t, float64(1), data["skipped"])
	})

	t.Run("rejects non-numeric lot id", func(t *testing.T) {
		w := doJSON(engine, "POST", "/api/v1/ledger/lots/abc/cancel", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestLedgerHandler_SourceLifecycle(t *testing.T) {
	engine := newLedgerTestServer(t, true)

	w := doJSON(engine, "POST", "/api/v1/ledger/layers", validLayerBody)
	require.Equal(t, http.StatusCreated, w.Code)

	t.Run("guard passes with no consumption", func(t *testing.T) {
		w := doJSON(engine, "POST", "/api/v1/ledger/sources/purchase_orders/1/guard", "")
		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("delete removes the document's layers", func(t *testing.T) {
		w := doJSON(engine, "DELETE", "/api/v1/ledger/sources/purchase_orders/1/layers", "")

		assert.Equal(t, http.StatusOK, w.Code)
		resp := decodeResponse(t, w)
		data := resp.Data.(map[string]interface{})
		assert.Equal(t, float64(1), data["affected"])

		list := doJSON(engine, "GET", "/api/v1/ledger/lots/1/layers", "")
		listResp := decodeResponse(t, list)
		layers, _ := listResp.Data.([]interface{})
		assert.Empty(t, layers)
	})

	t.Run("rejects non-numeric source id", func(t *testing.T) {
		w := doJSON(engine, "DELETE", "/api/v1/ledger/sources/purchase_orders/abc/layers", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
