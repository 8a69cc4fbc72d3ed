package handler

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"ecobazar-system/internal/apperr"
	"ecobazar-system/internal/database/models"
)

type StoreHandler struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewStoreHandler(db *gorm.DB, log *zap.Logger) *StoreHandler {
	return &StoreHandler{db: db, log: log}
}

func (h *StoreHandler) ListStores(ctx context.Context, offset, limit int) ([]models.Store, int64, error) {
	query := h.db.WithContext(ctx).Model(&models.Store{}).Where("is_active = ?", true)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var stores []models.Store
	if err := query.Order("id").Offset(offset).Limit(limit).Find(&stores).Error; err != nil {
		return nil, 0, err
	}
	return stores, total, nil
}

func (h *StoreHandler) GetStore(ctx context.Context, storeID uint) (*models.Store, error) {
	var store models.Store
	err := h.db.WithContext(ctx).Preload("Owner").First(&store, storeID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFoundf("store %d not found", storeID)
		}
		return nil, err
	}
	return &store, nil
}

type CreateStoreRequest struct {
	Name    string `json:"name" binding:"required"`
	Address string `json:"address"`
}

func (h *StoreHandler) CreateStore(ctx context.Context, req CreateStoreRequest) (*models.Store, error) {
	store := models.Store{Name: req.Name, Address: req.Address, IsActive: true}
	if err := h.db.WithContext(ctx).Create(&store).Error; err != nil {
		return nil, err
	}
	return &store, nil
}

type UpdateStoreRequest struct {
	Name     *string `json:"name"`
	Address  *string `json:"address"`
	IsActive *bool   `json:"is_active"`
}

func (h *StoreHandler) UpdateStore(ctx context.Context, storeID uint, req UpdateStoreRequest) (*models.Store, error) {
	store, err := h.GetStore(ctx, storeID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		store.Name = *req.Name
	}
	if req.Address != nil {
		store.Address = *req.Address
	}
	if req.IsActive != nil {
		store.IsActive = *req.IsActive
	}

	if err := h.db.WithContext(ctx).Save(store).Error; err != nil {
		return nil, err
	}
	return store, nil
}

// SetOwner binds a SELLER to a store. One store per owner: the unique index
// on owner_id rejects a second binding at the database level, an existing
// binding to another store is rejected here first.
func (h *StoreHandler) SetOwner(ctx context.Context, storeID, ownerID uint) (*models.Store, error) {
	store, err := h.GetStore(ctx, storeID)
	if err != nil {
		return nil, err
	}

	var owner models.User
	if err := h.db.WithContext(ctx).First(&owner, ownerID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFoundf("user %d not found", ownerID)
		}
		return nil, err
	}
	if owner.Role != models.RoleSeller {
		return nil, apperr.Validationf("user %d is not a seller", ownerID)
	}

	var owned models.Store
	err = h.db.WithContext(ctx).Where("owner_id = ? AND id <> ?", ownerID, storeID).First(&owned).Error
	if err == nil {
		return nil, apperr.Conflict("seller already owns another store")
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	store.OwnerID = &ownerID
	if err := h.db.WithContext(ctx).Save(store).Error; err != nil {
		return nil, err
	}
	store.Owner = &owner
	return store, nil
}

// MyStore returns the store owned by the seller.
func (h *StoreHandler) MyStore(ctx context.Context, ownerID uint) (*models.Store, error) {
	var store models.Store
	err := h.db.WithContext(ctx).Where("owner_id = ?", ownerID).First(&store).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFound("no store is bound to this seller")
		}
		return nil, err
	}
	return &store, nil
}

// ListStoreConfirmations returns the confirmation queue for the seller's
// store, pending first.
func (h *StoreHandler) ListStoreConfirmations(ctx context.Context, ownerID uint, offset, limit int) ([]models.StoreOrderConfirmation, int64, error) {
	store, err := h.MyStore(ctx, ownerID)
	if err != nil {
		return nil, 0, err
	}

	query := h.db.WithContext(ctx).Model(&models.StoreOrderConfirmation{}).
		Where("store_id = ?", store.ID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var confirmations []models.StoreOrderConfirmation
	err = query.
		Order("CASE WHEN status = 'PENDING' THEN 0 ELSE 1 END, id DESC").
		Offset(offset).Limit(limit).
		Find(&confirmations).Error
	if err != nil {
		return nil, 0, err
	}
	return confirmations, total, nil
}
