package handler

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"ecobazar-system/internal/apperr"
	"ecobazar-system/internal/cache"
	"ecobazar-system/internal/database/models"
)

const (
	PRODUCTS_CACHE_PREFIX   = "catalog:products:"
	PRODUCT_CACHE_PREFIX    = "catalog:product:"
	CATEGORIES_CACHE_KEY    = "catalog:categories"
	PRODUCTS_CACHE_PATTERN  = "catalog:products:*"
)

type CatalogHandler struct {
	db    *gorm.DB
	cache *cache.Cache
	log   *zap.Logger
}

func NewCatalogHandler(db *gorm.DB, c *cache.Cache, log *zap.Logger) *CatalogHandler {
	return &CatalogHandler{db: db, cache: c, log: log}
}

func (h *CatalogHandler) invalidateProductCaches(ctx context.Context, productIDs ...uint) {
	h.cache.InvalidatePattern(ctx, PRODUCTS_CACHE_PATTERN)
	for _, id := range productIDs {
		h.cache.Delete(ctx, fmt.Sprintf("%s%d", PRODUCT_CACHE_PREFIX, id))
	}
}

// -- Products --

type ListProductsRequest struct {
	CategoryID uint
	StoreID    uint
	Search     string
	Offset     int
	Limit      int
	SortBy     string
	SortOrder  string
}

type ProductPage struct {
	Products []models.Product `json:"products"`
	Total    int64            `json:"total"`
}

func (h *CatalogHandler) ListProducts(ctx context.Context, req ListProductsRequest) (*ProductPage, error) {
	key := fmt.Sprintf("%s%d:%d:%s:%d:%d:%s:%s", PRODUCTS_CACHE_PREFIX,
		req.CategoryID, req.StoreID, req.Search, req.Offset, req.Limit, req.SortBy, req.SortOrder)

	var cached ProductPage
	if h.cache.GetJSON(ctx, key, &cached) {
		return &cached, nil
	}

	query := h.db.WithContext(ctx).Model(&models.Product{}).Where("is_active = ?", true)
	if req.CategoryID != 0 {
		query = query.Where("category_id = ?", req.CategoryID)
	}
	if req.StoreID != 0 {
		query = query.Where("store_id = ?", req.StoreID)
	}
	if req.Search != "" {
		query = query.Where("name LIKE ?", "%"+req.Search+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	order := "id"
	switch req.SortBy {
	case "name", "price", "created_at":
		order = req.SortBy
	}
	if req.SortOrder == "desc" {
		order += " DESC"
	}

	var products []models.Product
	err := query.Preload("Category").Preload("Store").
		Order(order).Offset(req.Offset).Limit(req.Limit).
		Find(&products).Error
	if err != nil {
		return nil, err
	}

	page := ProductPage{Products: products, Total: total}
	h.cache.SetJSON(ctx, key, page, cache.TTLShort)
	return &page, nil
}

func (h *CatalogHandler) GetProduct(ctx context.Context, productID uint) (*models.Product, error) {
	key := fmt.Sprintf("%s%d", PRODUCT_CACHE_PREFIX, productID)
	var cached models.Product
	if h.cache.GetJSON(ctx, key, &cached) {
		return &cached, nil
	}

	var product models.Product
	err := h.db.WithContext(ctx).
		Preload("Category").Preload("Store").
		First(&product, productID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFoundf("product %d not found", productID)
		}
		return nil, err
	}

	h.cache.SetJSON(ctx, key, product, cache.TTLShort)
	return &product, nil
}

type CreateProductRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description *string `json:"description"`
	Price       string  `json:"price" binding:"required"`
	ImageURL    *string `json:"image_url"`
	CategoryID  uint    `json:"category_id" binding:"required"`
	StoreID     uint    `json:"store_id" binding:"required"`
}

func (h *CatalogHandler) CreateProduct(ctx context.Context, req CreateProductRequest) (*models.Product, error) {
	price, err := decimal.NewFromString(req.Price)
	if err != nil || price.IsNegative() {
		return nil, apperr.Validation("price must be a non-negative decimal")
	}

	if err := h.db.WithContext(ctx).First(&models.Category{}, req.CategoryID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFoundf("category %d not found", req.CategoryID)
		}
		return nil, err
	}
	if err := h.db.WithContext(ctx).First(&models.Store{}, req.StoreID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFoundf("store %d not found", req.StoreID)
		}
		return nil, err
	}

	product := models.Product{
		Name:        req.Name,
		Description: req.Description,
		Price:       price.StringFixed(2),
		ImageURL:    req.ImageURL,
		CategoryID:  req.CategoryID,
		StoreID:     req.StoreID,
		IsActive:    true,
	}
	if err := h.db.WithContext(ctx).Create(&product).Error; err != nil {
		return nil, err
	}

	h.invalidateProductCaches(ctx, product.ID)
	return &product, nil
}

type UpdateProductRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Price       *string `json:"price"`
	ImageURL    *string `json:"image_url"`
	CategoryID  *uint   `json:"category_id"`
	IsActive    *bool   `json:"is_active"`
}

func (h *CatalogHandler) UpdateProduct(ctx context.Context, productID uint, req UpdateProductRequest) (*models.Product, error) {
	var product models.Product
	if err := h.db.WithContext(ctx).First(&product, productID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFoundf("product %d not found", productID)
		}
		return nil, err
	}

	if req.Name != nil {
		product.Name = *req.Name
	}
	if req.Description != nil {
		product.Description = req.Description
	}
	if req.Price != nil {
		price, err := decimal.NewFromString(*req.Price)
		if err != nil || price.IsNegative() {
			return nil, apperr.Validation("price must be a non-negative decimal")
		}
		// Live price only; existing order lines keep their frozen copy.
		product.Price = price.StringFixed(2)
	}
	if req.ImageURL != nil {
		product.ImageURL = req.ImageURL
	}
	if req.CategoryID != nil {
		if err := h.db.WithContext(ctx).First(&models.Category{}, *req.CategoryID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil, apperr.NotFoundf("category %d not found", *req.CategoryID)
			}
			return nil, err
		}
		product.CategoryID = *req.CategoryID
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}

	if err := h.db.WithContext(ctx).Save(&product).Error; err != nil {
		return nil, err
	}

	h.invalidateProductCaches(ctx, product.ID)
	return &product, nil
}

func (h *CatalogHandler) DeleteProduct(ctx context.Context, productID uint) error {
	res := h.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", productID).
		Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NotFoundf("product %d not found", productID)
	}
	h.invalidateProductCaches(ctx, productID)
	return nil
}

// -- Categories --

func (h *CatalogHandler) ListCategories(ctx context.Context) ([]models.Category, error) {
	var cached []models.Category
	if h.cache.GetJSON(ctx, CATEGORIES_CACHE_KEY, &cached) {
		return cached, nil
	}

	var categories []models.Category
	err := h.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("name").
		Find(&categories).Error
	if err != nil {
		return nil, err
	}

	h.cache.SetJSON(ctx, CATEGORIES_CACHE_KEY, categories, cache.TTLMedium)
	return categories, nil
}

type CreateCategoryRequest struct {
	Name     string  `json:"name" binding:"required"`
	ImageURL *string `json:"image_url"`
}

func (h *CatalogHandler) CreateCategory(ctx context.Context, req CreateCategoryRequest) (*models.Category, error) {
	var existing models.Category
	err := h.db.WithContext(ctx).Where("name = ?", req.Name).First(&existing).Error
	if err == nil {
		return nil, apperr.Conflict("category already exists")
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	category := models.Category{Name: req.Name, ImageURL: req.ImageURL, IsActive: true}
	if err := h.db.WithContext(ctx).Create(&category).Error; err != nil {
		return nil, err
	}

	h.cache.Delete(ctx, CATEGORIES_CACHE_KEY)
	return &category, nil
}

type UpdateCategoryRequest struct {
	Name     *string `json:"name"`
	ImageURL *string `json:"image_url"`
	IsActive *bool   `json:"is_active"`
}

func (h *CatalogHandler) UpdateCategory(ctx context.Context, categoryID uint, req UpdateCategoryRequest) (*models.Category, error) {
	var category models.Category
	if err := h.db.WithContext(ctx).First(&category, categoryID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFoundf("category %d not found", categoryID)
		}
		return nil, err
	}

	if req.Name != nil {
		category.Name = *req.Name
	}
	if req.ImageURL != nil {
		category.ImageURL = req.ImageURL
	}
	if req.IsActive != nil {
		category.IsActive = *req.IsActive
	}

	if err := h.db.WithContext(ctx).Save(&category).Error; err != nil {
		return nil, err
	}

	h.cache.Delete(ctx, CATEGORIES_CACHE_KEY)
	return &category, nil
}
