package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	cataloghandler "ecobazar-system/internal/services/catalog/handler"
)

type CatalogHTTPHandler struct {
	catalog *cataloghandler.CatalogHandler
}

func NewCatalogHTTPHandler(catalog *cataloghandler.CatalogHandler) *CatalogHTTPHandler {
	return &CatalogHTTPHandler{catalog: catalog}
}

func queryUint(c *gin.Context, name string) uint {
	v, _ := strconv.ParseUint(c.Query(name), 10, 32)
	return uint(v)
}

func (h *CatalogHTTPHandler) ListProducts(c *gin.Context) {
	page := bindPage(c)

	result, err := h.catalog.ListProducts(c.Request.Context(), cataloghandler.ListProductsRequest{
		CategoryID: queryUint(c, "category_id"),
		StoreID:    queryUint(c, "store_id"),
		Search:     c.Query("search"),
		Offset:     page.Offset(),
		Limit:      page.Limit,
		SortBy:     page.SortBy,
		SortOrder:  page.SortOrder,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, result.Products, page.Meta(result.Total))
}

func (h *CatalogHTTPHandler) GetProduct(c *gin.Context) {
	productID, ok := idParam(c, "id")
	if !ok {
		return
	}

	product, err := h.catalog.GetProduct(c.Request.Context(), productID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, product)
}

func (h *CatalogHTTPHandler) CreateProduct(c *gin.Context) {
	var req cataloghandler.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request format")
		return
	}

	product, err := h.catalog.CreateProduct(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, product)
}

func (h *CatalogHTTPHandler) UpdateProduct(c *gin.Context) {
	productID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req cataloghandler.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request format")
		return
	}

	product, err := h.catalog.UpdateProduct(c.Request.Context(), productID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, product)
}

func (h *CatalogHTTPHandler) DeleteProduct(c *gin.Context) {
	productID, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := h.catalog.DeleteProduct(c.Request.Context(), productID); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, nil)
}

func (h *CatalogHTTPHandler) ListCategories(c *gin.Context) {
	categories, err := h.catalog.ListCategories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, categories)
}

func (h *CatalogHTTPHandler) CreateCategory(c *gin.Context) {
	var req cataloghandler.CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request format")
		return
	}

	category, err := h.catalog.CreateCategory(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, category)
}

func (h *CatalogHTTPHandler) UpdateCategory(c *gin.Context) {
	categoryID, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req cataloghandler.UpdateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request format")
		return
	}

	category, err := h.catalog.UpdateCategory(c.Request.Context(), categoryID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, category)
}
