package handler

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"ecobazar-system/internal/apperr"
	"ecobazar-system/internal/database"
	"ecobazar-system/internal/database/models"
)

var testDBSeq int64

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:stock_test_%d?mode=memory&cache=shared", atomic.AddInt64(&testDBSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func seedProduct(t *testing.T, db *gorm.DB, name string) *models.Product {
	t.Helper()
	category := models.Category{Name: "cat-" + name, IsActive: true}
	require.NoError(t, db.Create(&category).Error)
	store := models.Store{Name: "store-" + name, IsActive: true}
	require.NoError(t, db.Create(&store).Error)
	product := models.Product{
		Name:       name,
		Price:      "10.00",
		CategoryID: category.ID,
		StoreID:    store.ID,
		IsActive:   true,
	}
	require.NoError(t, db.Create(&product).Error)
	return &product
}

func record(t *testing.T, h *StockHandler, productID uint, quantity int, movementType string) {
	t.Helper()
	_, err := h.RecordMovement(context.Background(), 1, RecordMovementRequest{
		ProductID: productID,
		Quantity:  quantity,
		Type:      movementType,
	})
	require.NoError(t, err)
}

func TestAvailableFoldsMovements(t *testing.T) {
	db := newTestDB(t)
	h := NewStockHandler(db, nil, zap.NewNop())
	product := seedProduct(t, db, "Молоко")

	record(t, h, product.ID, 10, models.MovementIncome)
	record(t, h, product.ID, 3, models.MovementOutcome)
	record(t, h, product.ID, -2, models.MovementCorrection)
	record(t, h, product.ID, 1, models.MovementCorrection)

	available, err := Available(db, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, available)

	level, err := h.GetStock(context.Background(), product.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, level.Stock)
}

func TestRecordMovementValidation(t *testing.T) {
	db := newTestDB(t)
	h := NewStockHandler(db, nil, zap.NewNop())
	product := seedProduct(t, db, "Хлеб")
	ctx := context.Background()

	tests := []struct {
		name     string
		req      RecordMovementRequest
		wantCode string
	}{
		{
			name:     "unknown type",
			req:      RecordMovementRequest{ProductID: product.ID, Quantity: 1, Type: "TRANSFER"},
			wantCode: apperr.CodeValidation,
		},
		{
			name:     "missing product",
			req:      RecordMovementRequest{ProductID: 9999, Quantity: 1, Type: models.MovementIncome},
			wantCode: apperr.CodeNotFound,
		},
		{
			name:     "negative income",
			req:      RecordMovementRequest{ProductID: product.ID, Quantity: -1, Type: models.MovementIncome},
			wantCode: apperr.CodeValidation,
		},
		{
			name:     "zero correction",
			req:      RecordMovementRequest{ProductID: product.ID, Quantity: 0, Type: models.MovementCorrection},
			wantCode: apperr.CodeValidation,
		},
		{
			name:     "outcome over available",
			req:      RecordMovementRequest{ProductID: product.ID, Quantity: 1, Type: models.MovementOutcome},
			wantCode: apperr.CodeValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.RecordMovement(ctx, 1, tt.req)
			require.Error(t, err)
			assert.True(t, apperr.Is(err, tt.wantCode))
		})
	}
}

func TestRecordMovementOutcomeBoundary(t *testing.T) {
	db := newTestDB(t)
	h := NewStockHandler(db, nil, zap.NewNop())
	product := seedProduct(t, db, "Сыр")
	ctx := context.Background()

	record(t, h, product.ID, 5, models.MovementIncome)

	// Draining to exactly zero is allowed, one more unit is not.
	_, err := h.RecordMovement(ctx, 1, RecordMovementRequest{
		ProductID: product.ID, Quantity: 5, Type: models.MovementOutcome,
	})
	require.NoError(t, err)

	_, err = h.RecordMovement(ctx, 1, RecordMovementRequest{
		ProductID: product.ID, Quantity: 1, Type: models.MovementOutcome,
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeValidation))
}

func TestListMovements(t *testing.T) {
	db := newTestDB(t)
	h := NewStockHandler(db, nil, zap.NewNop())
	first := seedProduct(t, db, "Молоко")
	second := seedProduct(t, db, "Хлеб")
	ctx := context.Background()

	record(t, h, first.ID, 10, models.MovementIncome)
	record(t, h, first.ID, 2, models.MovementOutcome)
	record(t, h, second.ID, 4, models.MovementIncome)

	_, total, err := h.ListMovements(ctx, 0, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)

	movements, total, err := h.ListMovements(ctx, first.ID, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	for _, m := range movements {
		assert.Equal(t, first.ID, m.ProductID)
	}
}

func TestListLowStock(t *testing.T) {
	db := newTestDB(t)
	h := NewStockHandler(db, nil, zap.NewNop())
	ctx := context.Background()

	low := seedProduct(t, db, "Молоко")
	full := seedProduct(t, db, "Хлеб")
	empty := seedProduct(t, db, "Сыр")
	inactive := seedProduct(t, db, "Масло")
	require.NoError(t, db.Model(&models.Product{}).
		Where("id = ?", inactive.ID).Update("is_active", false).Error)

	record(t, h, low.ID, 10, models.MovementIncome)
	record(t, h, low.ID, 7, models.MovementOutcome)
	record(t, h, full.ID, 50, models.MovementIncome)

	rows, err := h.ListLowStock(ctx, 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	// Ordered emptiest first; products with no movements count as zero.
	assert.Equal(t, empty.ID, rows[0].ProductID)
	assert.Equal(t, 0, rows[0].Stock)
	assert.Equal(t, low.ID, rows[1].ProductID)
	assert.Equal(t, 3, rows[1].Stock)
}
