package telegram

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"ecobazar-system/internal/apperr"
	"ecobazar-system/internal/database/models"
	ordershandler "ecobazar-system/internal/services/orders/handler"
)

const quantityInputTTL = 10 * time.Minute

// Sender is the outbound slice of the telegram client; *tgbotapi.BotAPI
// satisfies it, tests substitute a fake.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Bot multiplexes callback-query and message events from many concurrent
// users into the order workflow engine, holding only transient
// conversational state.
type Bot struct {
	api    Sender
	poller *tgbotapi.BotAPI
	db     *gorm.DB
	orders *ordershandler.OrderHandler
	states *StateStore
	log    *zap.Logger
}

func New(api *tgbotapi.BotAPI, db *gorm.DB, orders *ordershandler.OrderHandler, log *zap.Logger) *Bot {
	return &Bot{
		api:    api,
		poller: api,
		db:     db,
		orders: orders,
		states: NewStateStore(db, log),
		log:    log,
	}
}

// NewWithSender builds a bot without a polling session, for tests and for
// notification-only deployments.
func NewWithSender(api Sender, db *gorm.DB, orders *ordershandler.OrderHandler, log *zap.Logger) *Bot {
	return &Bot{
		api:    api,
		db:     db,
		orders: orders,
		states: NewStateStore(db, log),
		log:    log,
	}
}

// Run long-polls until ctx is cancelled. Each update is handled in its own
// goroutine so one slow conversation never blocks the loop.
func (b *Bot) Run(ctx context.Context) {
	b.states.StartSweeper(ctx)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.poller.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.poller.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			go b.dispatch(update)
		}
	}
}

func (b *Bot) dispatch(update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("panic in telegram update handler", zap.Any("panic", r))
		}
	}()

	switch {
	case update.CallbackQuery != nil:
		b.HandleCallback(update.CallbackQuery)
	case update.Message != nil:
		b.HandleMessage(update.Message)
	}
}

func (b *Bot) userByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	var user models.User
	err := b.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&user).Error
	if err == gorm.ErrRecordNotFound {
		return nil, apperr.NotFound("пользователь не зарегистрирован")
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (b *Bot) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Warn("telegram send failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) sendWithKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboard
	if _, err := b.api.Send(msg); err != nil {
		b.log.Warn("telegram send failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) answer(callbackID, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		b.log.Warn("callback answer failed", zap.Error(err))
	}
}

func (b *Bot) alert(callbackID, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallbackWithAlert(callbackID, text)); err != nil {
		b.log.Warn("callback alert failed", zap.Error(err))
	}
}
