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
	"ecobazar-system/internal/utils"
)

var testDBSeq int64

func newTestHandler(t *testing.T) (*UserHandler, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:users_test_%d?mode=memory&cache=shared", atomic.AddInt64(&testDBSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	tokens := utils.NewTokenManager("test-secret", "ecobazar-api", "ecobazar-clients")
	return NewUserHandler(db, tokens, zap.NewNop()), db
}

func TestRegisterOrLogin(t *testing.T) {
	h, db := newTestHandler(t)
	ctx := context.Background()

	// First contact registers a customer.
	result, err := h.RegisterOrLogin(ctx, RegisterOrLoginRequest{
		TelegramID: 42, FirstName: "Иван", LastName: "Петров",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, models.RoleCustomer, result.User.Role)
	assert.True(t, result.User.IsActive)

	// Second contact logs the same user in.
	again, err := h.RegisterOrLogin(ctx, RegisterOrLoginRequest{
		TelegramID: 42, FirstName: "Иван",
	})
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, again.User.ID)

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestRegisterOrLoginDeactivated(t *testing.T) {
	h, db := newTestHandler(t)
	ctx := context.Background()

	result, err := h.RegisterOrLogin(ctx, RegisterOrLoginRequest{TelegramID: 42, FirstName: "Иван"})
	require.NoError(t, err)

	require.NoError(t, db.Model(&models.User{}).
		Where("id = ?", result.User.ID).Update("is_active", false).Error)

	_, err = h.RegisterOrLogin(ctx, RegisterOrLoginRequest{TelegramID: 42, FirstName: "Иван"})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.CodeForbidden))
}

func TestTokenCarriesRole(t *testing.T) {
	h, _ := newTestHandler(t)
	ctx := context.Background()

	result, err := h.RegisterOrLogin(ctx, RegisterOrLoginRequest{TelegramID: 42, FirstName: "Иван"})
	require.NoError(t, err)

	claims, err := h.tokens.ParseToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, claims.UserID)
	assert.Equal(t, models.RoleCustomer, claims.Role)
}

func TestUpdateUser(t *testing.T) {
	h, _ := newTestHandler(t)
	ctx := context.Background()

	result, err := h.RegisterOrLogin(ctx, RegisterOrLoginRequest{TelegramID: 42, FirstName: "Иван"})
	require.NoError(t, err)

	courier := models.RoleCourier
	updated, err := h.UpdateUser(ctx, result.User.ID, UpdateUserRequest{Role: &courier})
	require.NoError(t, err)
	assert.Equal(t, models.RoleCourier, updated.Role)

	bogus := "SUPERVISOR"
	_, err = h.UpdateUser(ctx, result.User.ID, UpdateUserRequest{Role: &bogus})
	assert.True(t, apperr.Is(err, apperr.CodeValidation))

	_, err = h.UpdateUser(ctx, 9999, UpdateUserRequest{Role: &courier})
	assert.True(t, apperr.Is(err, apperr.CodeNotFound))
}

func TestListUsersAndCouriers(t *testing.T) {
	h, db := newTestHandler(t)
	ctx := context.Background()

	for i, role := range []string{models.RoleCustomer, models.RoleCourier, models.RoleCourier, models.RoleSeller} {
		require.NoError(t, db.Create(&models.User{
			TelegramID: int64(100 + i), FirstName: "u", Role: role, IsActive: true,
		}).Error)
	}
	// The model defaults is_active to true, so a zero-value create would
	// silently persist an active row. Deactivate with an explicit update.
	offDuty := models.User{TelegramID: 200, FirstName: "off-duty", Role: models.RoleCourier, IsActive: true}
	require.NoError(t, db.Create(&offDuty).Error)
	require.NoError(t, db.Model(&offDuty).Update("is_active", false).Error)

	var persisted models.User
	require.NoError(t, db.First(&persisted, offDuty.ID).Error)
	require.False(t, persisted.IsActive)

	_, total, err := h.ListUsers(ctx, "", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 5, total)

	_, total, err = h.ListUsers(ctx, models.RoleCourier, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)

	couriers, err := h.ListCouriers(ctx)
	require.NoError(t, err)
	assert.Len(t, couriers, 2)
}
