package telegram

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"ecobazar-system/internal/database"
	"ecobazar-system/internal/database/models"
	ordershandler "ecobazar-system/internal/services/orders/handler"
)

type fakeSender struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeSender) messages() []tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.MessageConfig
	for _, c := range f.sent {
		if msg, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, msg)
		}
	}
	return out
}

func (f *fakeSender) lastMessage(t *testing.T) tgbotapi.MessageConfig {
	t.Helper()
	msgs := f.messages()
	require.NotEmpty(t, msgs, "expected at least one outgoing message")
	return msgs[len(msgs)-1]
}

func (f *fakeSender) lastCallback(t *testing.T) tgbotapi.CallbackConfig {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.requests) - 1; i >= 0; i-- {
		if cb, ok := f.requests[i].(tgbotapi.CallbackConfig); ok {
			return cb
		}
	}
	t.Fatal("expected a callback answer")
	return tgbotapi.CallbackConfig{}
}

func (f *fakeSender) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = nil
	f.requests = nil
}

var testDBSeq int64

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:telegram_test_%d?mode=memory&cache=shared", atomic.AddInt64(&testDBSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

type botFixture struct {
	db       *gorm.DB
	bot      *Bot
	sender   *fakeSender
	orders   *ordershandler.OrderHandler
	admin    *models.User
	customer *models.User
	seller   *models.User
	courier  *models.User
	order    *models.Order
}

const (
	tgAdmin    int64 = 1000
	tgCustomer int64 = 2000
	tgSeller   int64 = 3000
	tgCourier  int64 = 4000
)

func newBotFixture(t *testing.T) *botFixture {
	t.Helper()
	db := newTestDB(t)

	admin := &models.User{TelegramID: tgAdmin, FirstName: "Admin", Role: models.RoleAdmin, IsActive: true}
	customer := &models.User{TelegramID: tgCustomer, FirstName: "Customer", Role: models.RoleCustomer, IsActive: true}
	seller := &models.User{TelegramID: tgSeller, FirstName: "Seller", Role: models.RoleSeller, IsActive: true}
	courier := &models.User{TelegramID: tgCourier, FirstName: "Courier", Role: models.RoleCourier, IsActive: true}
	for _, u := range []*models.User{admin, customer, seller, courier} {
		require.NoError(t, db.Create(u).Error)
	}

	store := models.Store{Name: "Магазин", OwnerID: &seller.ID, IsActive: true}
	require.NoError(t, db.Create(&store).Error)
	category := models.Category{Name: "Молочное", IsActive: true}
	require.NoError(t, db.Create(&category).Error)
	product := models.Product{
		Name: "Молоко", Price: "100.00",
		CategoryID: category.ID, StoreID: store.ID, IsActive: true,
	}
	require.NoError(t, db.Create(&product).Error)
	require.NoError(t, db.Create(&models.StockMovement{
		ProductID: product.ID, Quantity: 10, Type: models.MovementIncome, AdminID: admin.ID,
	}).Error)

	orders := ordershandler.NewOrderHandler(db, nil, zap.NewNop())
	order, err := orders.CreateOrder(context.Background(), customer.ID, ordershandler.CreateOrderRequest{
		Items:        []ordershandler.OrderItemRequest{{ProductID: product.ID, Quantity: 3}},
		Address:      "ул. Пушкина, 10",
		DeliveryType: models.DeliveryTypeASAP,
	})
	require.NoError(t, err)

	sender := &fakeSender{}
	bot := NewWithSender(sender, db, orders, zap.NewNop())

	return &botFixture{
		db:       db,
		bot:      bot,
		sender:   sender,
		orders:   orders,
		admin:    admin,
		customer: customer,
		seller:   seller,
		courier:  courier,
		order:    order,
	}
}

func (f *botFixture) confirmationID() uint {
	return f.order.Items[0].Confirmation.ID
}

func callbackFrom(telegramID int64, data string) *tgbotapi.CallbackQuery {
	return &tgbotapi.CallbackQuery{
		ID:      "cb-1",
		From:    &tgbotapi.User{ID: telegramID},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: telegramID}},
		Data:    data,
	}
}

func messageFrom(telegramID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		From: &tgbotapi.User{ID: telegramID},
		Chat: &tgbotapi.Chat{ID: telegramID},
		Text: text,
	}
}
