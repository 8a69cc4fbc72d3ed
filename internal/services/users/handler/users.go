package handler

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"ecobazar-system/internal/apperr"
	"ecobazar-system/internal/database/models"
	"ecobazar-system/internal/utils"
)

type UserHandler struct {
	db     *gorm.DB
	tokens *utils.TokenManager
	log    *zap.Logger
}

func NewUserHandler(db *gorm.DB, tokens *utils.TokenManager, log *zap.Logger) *UserHandler {
	return &UserHandler{db: db, tokens: tokens, log: log}
}

type RegisterOrLoginRequest struct {
	TelegramID int64  `json:"telegram_id" binding:"required"`
	FirstName  string `json:"first_name" binding:"required"`
	LastName   string `json:"last_name"`
	Phone      string `json:"phone"`
}

type AuthResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// RegisterOrLogin resolves a user by telegram id, creating a CUSTOMER on
// first contact, and issues a JWT.
func (h *UserHandler) RegisterOrLogin(ctx context.Context, req RegisterOrLoginRequest) (*AuthResult, error) {
	var user models.User
	err := h.db.WithContext(ctx).Where("telegram_id = ?", req.TelegramID).First(&user).Error
	if err == gorm.ErrRecordNotFound {
		user = models.User{
			TelegramID: req.TelegramID,
			FirstName:  req.FirstName,
			LastName:   req.LastName,
			Phone:      req.Phone,
			Role:       models.RoleCustomer,
			IsActive:   true,
		}
		if err := h.db.WithContext(ctx).Create(&user).Error; err != nil {
			return nil, err
		}
		h.log.Info("user registered",
			zap.Uint("user_id", user.ID),
			zap.Int64("telegram_id", user.TelegramID))
	} else if err != nil {
		return nil, err
	}

	if !user.IsActive {
		return nil, apperr.Forbidden("user is deactivated")
	}

	token, exp, err := h.tokens.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, err
	}

	return &AuthResult{Token: token, ExpiresAt: exp, User: &user}, nil
}

func (h *UserHandler) GetUser(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	if err := h.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFoundf("user %d not found", userID)
		}
		return nil, err
	}
	return &user, nil
}

func (h *UserHandler) ListUsers(ctx context.Context, role string, offset, limit int) ([]models.User, int64, error) {
	query := h.db.WithContext(ctx).Model(&models.User{})
	if role != "" {
		query = query.Where("role = ?", role)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []models.User
	if err := query.Order("id").Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

type UpdateUserRequest struct {
	Role     *string `json:"role"`
	IsActive *bool   `json:"is_active"`
	Phone    *string `json:"phone"`
}

func (h *UserHandler) UpdateUser(ctx context.Context, userID uint, req UpdateUserRequest) (*models.User, error) {
	user, err := h.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.Role != nil {
		if !models.ValidRole(*req.Role) {
			return nil, apperr.Validationf("unknown role %q", *req.Role)
		}
		user.Role = *req.Role
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	if req.Phone != nil {
		user.Phone = *req.Phone
	}

	if err := h.db.WithContext(ctx).Save(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func (h *UserHandler) ListCouriers(ctx context.Context) ([]models.User, error) {
	var couriers []models.User
	err := h.db.WithContext(ctx).
		Where("role = ? AND is_active = ?", models.RoleCourier, true).
		Order("id").
		Find(&couriers).Error
	if err != nil {
		return nil, err
	}
	return couriers, nil
}
