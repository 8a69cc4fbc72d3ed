package handler

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"ecobazar-system/internal/apperr"
	"ecobazar-system/internal/cache"
	"ecobazar-system/internal/database/models"
)

const (
	STOCK_CACHE_PREFIX = "stock:"
)

type StockHandler struct {
	db    *gorm.DB
	cache *cache.Cache
	log   *zap.Logger
}

func NewStockHandler(db *gorm.DB, c *cache.Cache, log *zap.Logger) *StockHandler {
	return &StockHandler{db: db, cache: c, log: log}
}

// Available folds the movement ledger into the current stock of a product:
// INCOME adds, OUTCOME subtracts, CORRECTION adds its signed quantity.
// Stock is always derived, never stored.
func Available(db *gorm.DB, productID uint) (int, error) {
	var total int64
	err := db.Model(&models.StockMovement{}).
		Select("COALESCE(SUM(CASE WHEN type = ? THEN -quantity ELSE quantity END), 0)", models.MovementOutcome).
		Where("product_id = ?", productID).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return int(total), nil
}

type RecordMovementRequest struct {
	ProductID uint    `json:"product_id" binding:"required"`
	Quantity  int     `json:"quantity" binding:"required"`
	Type      string  `json:"type" binding:"required"`
	Comment   *string `json:"comment"`
}

func (h *StockHandler) RecordMovement(ctx context.Context, adminID uint, req RecordMovementRequest) (*models.StockMovement, error) {
	if !models.ValidMovementType(req.Type) {
		return nil, apperr.Validationf("unknown movement type %q", req.Type)
	}

	var product models.Product
	if err := h.db.WithContext(ctx).First(&product, req.ProductID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFoundf("product %d not found", req.ProductID)
		}
		return nil, err
	}

	switch req.Type {
	case models.MovementIncome, models.MovementOutcome:
		if req.Quantity <= 0 {
			return nil, apperr.Validation("quantity must be positive")
		}
	case models.MovementCorrection:
		// Signed delta; zero would be a no-op row in an append-only ledger.
		if req.Quantity == 0 {
			return nil, apperr.Validation("correction quantity must be non-zero")
		}
	}

	if req.Type == models.MovementOutcome {
		available, err := Available(h.db.WithContext(ctx), req.ProductID)
		if err != nil {
			return nil, err
		}
		if available < req.Quantity {
			return nil, apperr.Validationf("insufficient stock for product %q: available %d, requested %d",
				product.Name, available, req.Quantity)
		}
	}

	movement := models.StockMovement{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
		Type:      req.Type,
		AdminID:   adminID,
		Comment:   req.Comment,
	}
	if err := h.db.WithContext(ctx).Create(&movement).Error; err != nil {
		return nil, err
	}

	h.cache.Delete(ctx, fmt.Sprintf("%s%d", STOCK_CACHE_PREFIX, req.ProductID))

	return &movement, nil
}

type StockLevel struct {
	ProductID uint `json:"product_id"`
	Stock     int  `json:"stock"`
}

func (h *StockHandler) GetStock(ctx context.Context, productID uint) (*StockLevel, error) {
	var product models.Product
	if err := h.db.WithContext(ctx).First(&product, productID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFoundf("product %d not found", productID)
		}
		return nil, err
	}

	key := fmt.Sprintf("%s%d", STOCK_CACHE_PREFIX, productID)
	var cached StockLevel
	if h.cache.GetJSON(ctx, key, &cached) {
		return &cached, nil
	}

	available, err := Available(h.db.WithContext(ctx), productID)
	if err != nil {
		return nil, err
	}

	level := StockLevel{ProductID: productID, Stock: available}
	h.cache.SetJSON(ctx, key, level, cache.TTLShort)
	return &level, nil
}

func (h *StockHandler) ListMovements(ctx context.Context, productID uint, offset, limit int) ([]models.StockMovement, int64, error) {
	query := h.db.WithContext(ctx).Model(&models.StockMovement{})
	if productID != 0 {
		query = query.Where("product_id = ?", productID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var movements []models.StockMovement
	err := query.Preload("Product").
		Order("created_at DESC, id DESC").
		Offset(offset).Limit(limit).
		Find(&movements).Error
	if err != nil {
		return nil, 0, err
	}
	return movements, total, nil
}

type LowStockProduct struct {
	ProductID uint   `json:"product_id"`
	Name      string `json:"name"`
	Stock     int    `json:"stock"`
}

// ListLowStock returns active products whose derived stock is below the
// threshold.
func (h *StockHandler) ListLowStock(ctx context.Context, threshold int) ([]LowStockProduct, error) {
	var rows []LowStockProduct
	err := h.db.WithContext(ctx).Raw(`
		SELECT p.id AS product_id, p.name AS name,
		       COALESCE(SUM(CASE WHEN m.type = ? THEN -m.quantity ELSE m.quantity END), 0) AS stock
		FROM products p
		LEFT JOIN stock_movements m ON m.product_id = p.id
		WHERE p.is_active = ?
		GROUP BY p.id, p.name
		HAVING COALESCE(SUM(CASE WHEN m.type = ? THEN -m.quantity ELSE m.quantity END), 0) < ?
		ORDER BY stock ASC`,
		models.MovementOutcome, true, models.MovementOutcome, threshold).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
