package handler

import (
	"strconv"

	appstock "github.com/backoffice/backend/internal/application/stock"
	"github.com/backoffice/backend/internal/domain/stock"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// StockHandler exposes the denormalized stock counters over HTTP
type StockHandler struct {
	BaseHandler
	service *appstock.StockService
}

// NewStockHandler creates a new StockHandler
func NewStockHandler(service *appstock.StockService) *StockHandler {
	return &StockHandler{service: service}
}

// RegisterRoutes registers stock counter routes
func (h *StockHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/stock")
	{
		g.POST("/deltas", h.ApplyDeltas)
		g.GET("/products/:id", h.ProductQuantity)
		g.GET("/variants/:id", h.VariantQuantity)
	}
}

// applyDeltasRequest batches signed quantity deltas keyed by id
type applyDeltasRequest struct {
	Products map[int64]decimal.Decimal `json:"products"`
	Variants map[int64]decimal.Decimal `json:"variants"`
}

// ApplyDeltas applies one delta set atomically
func (h *StockHandler) ApplyDeltas(c *gin.Context) {
	var req applyDeltasRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	err := h.service.ApplyDeltas(c.Request.Context(), stock.DeltaSet{
		Products: req.Products,
		Variants: req.Variants,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// quantityResponse is the read model of one stock counter
type quantityResponse struct {
	ID       int64           `json:"id"`
	Quantity decimal.Decimal `json:"quantity"`
}

// ProductQuantity returns the running quantity of one product
func (h *StockHandler) ProductQuantity(c *gin.Context) {
	id, ok := h.bindID(c)
	if !ok {
		return
	}
	qty, err := h.service.ProductQuantity(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, quantityResponse{ID: id, Quantity: qty})
}

// VariantQuantity returns the running quantity of one variant
func (h *StockHandler) VariantQuantity(c *gin.Context) {
	id, ok := h.bindID(c)
	if !ok {
		return
	}
	qty, err := h.service.VariantQuantity(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, quantityResponse{ID: id, Quantity: qty})
}

// bindID parses the id path parameter
func (h *StockHandler) bindID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		h.BadRequest(c, "id must be a positive integer")
		return 0, false
	}
	return id, true
}
