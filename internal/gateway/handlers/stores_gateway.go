package handlers

import (
	"github.com/gin-gonic/gin"

	"ecobazar-system/internal/gateway/middleware"
	storeshandler "ecobazar-system/internal/services/stores/handler"
)

type StoreHTTPHandler struct {
	stores *storeshandler.StoreHandler
}

func NewStoreHTTPHandler(stores *storeshandler.StoreHandler) *StoreHTTPHandler {
	return &StoreHTTPHandler{stores: stores}
}

func (h *StoreHTTPHandler) ListStores(c *gin.Context) {
	page := bindPage(c)

	stores, total, err := h.stores.ListStores(c.Request.Context(), page.Offset(), page.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, stores, page.Meta(total))
}

func (h *StoreHTTPHandler) GetStore(c *gin.Context) {
	storeID, ok := idParam(c, "id")
	if !ok {
		return
	}

	store, err := h.stores.GetStore(c.Request.Context(), storeID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, store)
}

func (h *StoreHTTPHandler) CreateStore(c *gin.Context) {
	var req storeshandler.CreateStoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request format")
		return
	}

	store, err := h.stores.CreateStore(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, store)
}

func (h *StoreHTTPHandler) UpdateStore(c *gin.Context) {
	storeID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req storeshandler.UpdateStoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request format")
		return
	}

	store, err := h.stores.UpdateStore(c.Request.Context(), storeID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, store)
}

type setOwnerRequest struct {
	OwnerID uint `json:"owner_id" binding:"required"`
}

func (h *StoreHTTPHandler) SetOwner(c *gin.Context) {
	storeID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req setOwnerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request format")
		return
	}

	store, err := h.stores.SetOwner(c.Request.Context(), storeID, req.OwnerID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, store)
}

func (h *StoreHTTPHandler) MyStore(c *gin.Context) {
	store, err := h.stores.MyStore(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, store)
}

func (h *StoreHTTPHandler) MyConfirmations(c *gin.Context) {
	page := bindPage(c)

	confirmations, total, err := h.stores.ListStoreConfirmations(
		c.Request.Context(), middleware.UserID(c), page.Offset(), page.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, confirmations, page.Meta(total))
}
