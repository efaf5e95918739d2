package handler

import (
	"net/http"
	"strconv"

	appledger "github.com/backoffice/backend/internal/application/ledger"
	"github.com/backoffice/backend/internal/domain/ledger"
	"github.com/backoffice/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// LedgerHandler exposes the FIFO stock layer and allocation ledger over HTTP
type LedgerHandler struct {
	BaseHandler
	service *appledger.LedgerService
}

// NewLedgerHandler creates a new LedgerHandler
func NewLedgerHandler(service *appledger.LedgerService) *LedgerHandler {
	return &LedgerHandler{service: service}
}

// RegisterRoutes registers ledger routes
func (h *LedgerHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/ledger")
	{
		g.GET("/capability", h.Capability)

		g.POST("/layers", h.CreateLayer)
		g.GET("/layers", h.ListLayers)
		g.GET("/layers/valuation", h.Valuation)

		g.POST("/consume", h.Consume)
		g.POST("/restore", h.Restore)

		g.GET("/lots/:id/layers", h.ListLotLayers)
		g.POST("/lots/:id/guard", h.GuardLot)
		g.POST("/lots/:id/cancel", h.CancelLot)
		g.POST("/lots/:id/restore", h.RestoreLot)
		g.PUT("/lots/:id/layers", h.ReplaceLotLayers)

		g.DELETE("/sources/:table/:id/layers", h.DeleteSourceLayers)
		g.POST("/sources/:table/:id/guard", h.GuardSource)
		g.POST("/sources/:table/:id/cancel", h.CancelSource)
		g.POST("/sources/:table/:id/restore", h.RestoreSource)
	}
}

// capabilityResponse reports whether FIFO costing is active
type capabilityResponse struct {
	FifoEnabled bool `json:"fifo_enabled"`
}

// Capability reports whether the ledger tables exist in this deployment
func (h *LedgerHandler) Capability(c *gin.Context) {
	enabled, err := h.service.FifoEnabled(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, capabilityResponse{FifoEnabled: enabled})
}

// createLayerRequest is the JSON body for layer registration
type createLayerRequest struct {
	ProductID     int64            `json:"product_id" binding:"required,gt=0"`
	VariantID     *int64           `json:"variant_id" binding:"omitempty,gt=0"`
	LotID         *int64           `json:"lot_id" binding:"omitempty,gt=0"`
	SourceTable   string           `json:"source_table" binding:"required"`
	SourceID      *int64           `json:"source_id"`
	SourceItemID  *int64           `json:"source_item_id"`
	LayerDate     string           `json:"layer_date"` // YYYY-MM-DD, defaults to today
	UnitCost      decimal.Decimal  `json:"unit_cost" binding:"required"`
	UnitSalePrice *decimal.Decimal `json:"unit_sale_price"`
	Qty           decimal.Decimal  `json:"qty" binding:"required"`
}

// CreateLayer registers one new stock layer
func (h *LedgerHandler) CreateLayer(c *gin.Context) {
	var req createLayerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	layerDate, err := parseLayerDate(req.LayerDate)
	if err != nil {
		h.BadRequest(c, "layer_date must be in YYYY-MM-DD format")
		return
	}

	enabled, err := h.service.FifoEnabled(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if !enabled {
		h.Error(c, http.StatusConflict, dto.ErrCodeFifoDisabled, "FIFO ledger tables are not present in this deployment")
		return
	}

	resp, err := h.service.CreateLayer(c.Request.Context(), appledger.CreateLayerRequest{
		ProductID:     req.ProductID,
		VariantID:     req.VariantID,
		LotID:         req.LotID,
		SourceTable:   req.SourceTable,
		SourceID:      req.SourceID,
		SourceItemID:  req.SourceItemID,
		LayerDate:     layerDate,
		UnitCost:      req.UnitCost,
		UnitSalePrice: req.UnitSalePrice,
		Qty:           req.Qty,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// ListLayers returns all layers of one bucket in FIFO order
func (h *LedgerHandler) ListLayers(c *gin.Context) {
	productID, variantID, ok := h.bindBucketQuery(c)
	if !ok {
		return
	}
	layers, err := h.service.ListLayers(c.Request.Context(), productID, variantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, layers)
}

// Valuation returns remaining quantity and inventory cost of one bucket
func (h *LedgerHandler) Valuation(c *gin.Context) {
	productID, variantID, ok := h.bindBucketQuery(c)
	if !ok {
		return
	}
	resp, err := h.service.Valuation(c.Request.Context(), productID, variantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// consumeRequest is the JSON body for FIFO consumption
type consumeRequest struct {
	ProductID    int64           `json:"product_id" binding:"required,gt=0"`
	VariantID    *int64          `json:"variant_id" binding:"omitempty,gt=0"`
	Quantity     decimal.Decimal `json:"quantity" binding:"required"`
	TargetTable  string          `json:"target_table" binding:"required"`
	TargetItemID int64           `json:"target_item_id" binding:"required,gt=0"`
	LotID        *int64          `json:"lot_id" binding:"omitempty,gt=0"`
}

// Consume satisfies a demand from the oldest available layers
func (h *LedgerHandler) Consume(c *gin.Context) {
	var req consumeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.Consume(c.Request.Context(), appledger.ConsumeRequest{
		ProductID:    req.ProductID,
		VariantID:    req.VariantID,
		Quantity:     req.Quantity,
		TargetTable:  req.TargetTable,
		TargetItemID: req.TargetItemID,
		LotID:        req.LotID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// restoreRequest is the JSON body for consumption reversal
type restoreRequest struct {
	TargetTable  string `json:"target_table" binding:"required"`
	TargetItemID int64  `json:"target_item_id" binding:"required,gt=0"`
}

// Restore reverses every consumption recorded for one target
func (h *LedgerHandler) Restore(c *gin.Context) {
	var req restoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.RestoreForTarget(c.Request.Context(), ledger.TargetRef{
		Table:  req.TargetTable,
		ItemID: req.TargetItemID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// ListLotLayers returns all layers of one lot in FIFO order
func (h *LedgerHandler) ListLotLayers(c *gin.Context) {
	lotID, ok := h.bindLotID(c)
	if !ok {
		return
	}
	layers, err := h.service.ListLotLayers(c.Request.Context(), lotID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, layers)
}

// GuardLot returns 204 when no layer of the lot has active consumption,
// 409 otherwise
func (h *LedgerHandler) GuardLot(c *gin.Context) {
	lotID, ok := h.bindLotID(c)
	if !ok {
		return
	}
	if err := h.service.EnsureNoConsumptionForLot(c.Request.Context(), lotID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// CancelLot cancels all layers of one lot
func (h *LedgerHandler) CancelLot(c *gin.Context) {
	lotID, ok := h.bindLotID(c)
	if !ok {
		return
	}
	result, err := h.service.SetLotLayersCancelled(c.Request.Context(), lotID, true)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// RestoreLot un-cancels all layers of one lot
func (h *LedgerHandler) RestoreLot(c *gin.Context) {
	lotID, ok := h.bindLotID(c)
	if !ok {
		return
	}
	result, err := h.service.SetLotLayersCancelled(c.Request.Context(), lotID, false)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// replaceLotItemRequest is one line of a lot's regenerated layer set
type replaceLotItemRequest struct {
	ProductID     int64            `json:"product_id"`
	VariantID     *int64           `json:"variant_id"`
	SourceItemID  *int64           `json:"source_item_id"`
	UnitCost      decimal.Decimal  `json:"unit_cost"`
	UnitSalePrice *decimal.Decimal `json:"unit_sale_price"`
	Qty           decimal.Decimal  `json:"qty"`
}

// replaceLotLayersRequest is the JSON body for lot layer regeneration
type replaceLotLayersRequest struct {
	SourceTable string                  `json:"source_table" binding:"required"`
	LayerDate   string                  `json:"layer_date"` // YYYY-MM-DD, defaults to today
	Items       []replaceLotItemRequest `json:"items"`
}

// ReplaceLotLayers regenerates a lot's cost layers from scratch
func (h *LedgerHandler) ReplaceLotLayers(c *gin.Context) {
	lotID, ok := h.bindLotID(c)
	if !ok {
		return
	}

	var req replaceLotLayersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	layerDate, err := parseLayerDate(req.LayerDate)
	if err != nil {
		h.BadRequest(c, "layer_date must be in YYYY-MM-DD format")
		return
	}

	items := make([]appledger.ReplaceLotItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, appledger.ReplaceLotItem{
			ProductID:     item.ProductID,
			VariantID:     item.VariantID,
			SourceItemID:  item.SourceItemID,
			UnitCost:      item.UnitCost,
			UnitSalePrice: item.UnitSalePrice,
			Qty:           item.Qty,
		})
	}

	result, err := h.service.ReplaceLotLayers(c.Request.Context(), appledger.ReplaceLotLayersRequest{
		LotID:       lotID,
		SourceTable: req.SourceTable,
		LayerDate:   layerDate,
		Items:       items,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// DeleteSourceLayers hard-deletes every layer created by one document.
// Guard and delete run in one transaction so no consumption can land in
// between; in-process callers that already hold their own guard result
// compose the unguarded delete inside their own scope instead.
func (h *LedgerHandler) DeleteSourceLayers(c *gin.Context) {
	source, ok := h.bindSourceScope(c)
	if !ok {
		return
	}
	result, err := h.service.DeleteLayersForSourceGuarded(c.Request.Context(), source)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// GuardSource returns 204 when no layer of the source has active
// consumption, 409 otherwise
func (h *LedgerHandler) GuardSource(c *gin.Context) {
	source, ok := h.bindSourceScope(c)
	if !ok {
		return
	}
	if err := h.service.EnsureNoConsumptionForSource(c.Request.Context(), source); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// CancelSource cancels all layers created by one document
func (h *LedgerHandler) CancelSource(c *gin.Context) {
	source, ok := h.bindSourceScope(c)
	if !ok {
		return
	}
	result, err := h.service.SetLayersCancelledForSource(c.Request.Context(), source, true)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// RestoreSource un-cancels all layers created by one document
func (h *LedgerHandler) RestoreSource(c *gin.Context) {
	source, ok := h.bindSourceScope(c)
	if !ok {
		return
	}
	result, err := h.service.SetLayersCancelledForSource(c.Request.Context(), source, false)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// bindLotID parses the lot id path parameter
func (h *LedgerHandler) bindLotID(c *gin.Context) (int64, bool) {
	lotID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || lotID <= 0 {
		h.BadRequest(c, "lot id must be a positive integer")
		return 0, false
	}
	return lotID, true
}

// bindSourceScope parses the source table and id path parameters
func (h *LedgerHandler) bindSourceScope(c *gin.Context) (ledger.SourceScope, bool) {
	table := c.Param("table")
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if table == "" || err != nil || id <= 0 {
		h.BadRequest(c, "source table and a positive source id are required")
		return ledger.SourceScope{}, false
	}
	return ledger.SourceScope{Table: table, ID: id}, true
}

// bindBucketQuery parses product_id and optional variant_id query parameters
func (h *LedgerHandler) bindBucketQuery(c *gin.Context) (int64, *int64, bool) {
	productID, err := strconv.ParseInt(c.Query("product_id"), 10, 64)
	if err != nil || productID <= 0 {
		h.BadRequest(c, "product_id must be a positive integer")
		return 0, nil, false
	}

	var variantID *int64
	if raw := c.Query("variant_id"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v <= 0 {
			h.BadRequest(c, "variant_id must be a positive integer")
			return 0, nil, false
		}
		variantID = &v
	}
	return productID, variantID, true
}
