package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"ecobazar-system/internal/gateway/middleware"
	stockhandler "ecobazar-system/internal/services/stock/handler"
)

type StockHTTPHandler struct {
	stock *stockhandler.StockHandler
}

func NewStockHTTPHandler(stock *stockhandler.StockHandler) *StockHTTPHandler {
	return &StockHTTPHandler{stock: stock}
}

func (h *StockHTTPHandler) RecordMovement(c *gin.Context) {
	var req stockhandler.RecordMovementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request format")
		return
	}

	movement, err := h.stock.RecordMovement(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, movement)
}

func (h *StockHTTPHandler) GetStock(c *gin.Context) {
	productID, ok := idParam(c, "id")
	if !ok {
		return
	}

	level, err := h.stock.GetStock(c.Request.Context(), productID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, level)
}

func (h *StockHTTPHandler) ListMovements(c *gin.Context) {
	page := bindPage(c)

	movements, total, err := h.stock.ListMovements(
		c.Request.Context(), queryUint(c, "product_id"), page.Offset(), page.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, movements, page.Meta(total))
}

func (h *StockHTTPHandler) ListLowStock(c *gin.Context) {
	threshold, err := strconv.Atoi(c.DefaultQuery("threshold", "10"))
	if err != nil || threshold < 0 {
		respondBadRequest(c, "invalid threshold")
		return
	}

	rows, err := h.stock.ListLowStock(c.Request.Context(), threshold)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, rows)
}
