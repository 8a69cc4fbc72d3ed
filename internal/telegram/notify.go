package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"ecobazar-system/internal/database/models"
)

// The Bot is the workflow engine's Notifier. Every method here is called
// from a detached goroutine after the triggering transaction committed:
// failures are logged per recipient and dropped, never propagated.

// NotifySellersNewOrder fans a new order out to the owner of every store
// involved, each seeing only their own line items, with a confirm /
// partial / reject keyboard per item.
func (b *Bot) NotifySellersNewOrder(order *models.Order) {
	ctx := context.Background()

	byStore := make(map[uint][]models.OrderItem)
	for _, item := range order.Items {
		if item.Confirmation == nil {
			continue
		}
		byStore[item.Confirmation.StoreID] = append(byStore[item.Confirmation.StoreID], item)
	}

	for storeID, items := range byStore {
		var store models.Store
		if err := b.db.WithContext(ctx).Preload("Owner").First(&store, storeID).Error; err != nil {
			b.log.Warn("seller notification skipped: store load failed",
				zap.Uint("store_id", storeID), zap.Error(err))
			continue
		}
		if store.Owner == nil {
			b.log.Warn("seller notification skipped: store has no owner",
				zap.Uint("store_id", storeID))
			continue
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "🛒 Новый заказ %s\n\n", order.Number)
		rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(items)*2)
		for _, item := range items {
			name := fmt.Sprintf("товар %d", item.ProductID)
			if item.Product != nil {
				name = item.Product.Name
			}
			fmt.Fprintf(&sb, "• %s — %d шт. × %s\n", name, item.Quantity, item.Price)

			confID := item.Confirmation.ID
			rows = append(rows,
				tgbotapi.NewInlineKeyboardRow(
					tgbotapi.NewInlineKeyboardButtonData(
						fmt.Sprintf("✅ %s: подтвердить", name),
						fmt.Sprintf("confirm_item:%d:%s", confID, models.ConfirmationConfirmed)),
				),
				tgbotapi.NewInlineKeyboardRow(
					tgbotapi.NewInlineKeyboardButtonData("⚠️ Частично",
						fmt.Sprintf("partial_item:%d", confID)),
					tgbotapi.NewInlineKeyboardButtonData("❌ Отклонить",
						fmt.Sprintf("confirm_item:%d:%s", confID, models.ConfirmationRejected)),
				),
			)
		}
		sb.WriteString("\nПодтвердите наличие товаров:")

		b.sendWithKeyboard(store.Owner.TelegramID, sb.String(), tgbotapi.NewInlineKeyboardMarkup(rows...))
	}
}

// NotifyCourierAssigned hands the courier a single "mark delivered" action.
func (b *Bot) NotifyCourierAssigned(order *models.Order, courier *models.User) {
	text := fmt.Sprintf("🚚 Вам назначен заказ %s\nАдрес: %s\nСумма: %s",
		order.Number, order.Address, order.TotalAmount)
	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📦 Доставлено",
				fmt.Sprintf("courier_delivered:%d:%d", order.ID, courier.ID)),
		),
	)
	b.sendWithKeyboard(courier.TelegramID, text, keyboard)
}

func (b *Bot) NotifyOrderStatusChanged(order *models.Order, status string) {
	user := order.User
	if user == nil {
		var loaded models.User
		if err := b.db.First(&loaded, order.UserID).Error; err != nil {
			b.log.Warn("status notification skipped: user load failed",
				zap.Uint("order_id", order.ID), zap.Error(err))
			return
		}
		user = &loaded
	}
	b.send(user.TelegramID, fmt.Sprintf("📦 Заказ %s: статус изменён на %s", order.Number, status))
}

// NotifyRatingRequest starts the three-step rating wizard.
func (b *Bot) NotifyRatingRequest(order *models.Order) {
	user := order.User
	if user == nil {
		var loaded models.User
		if err := b.db.First(&loaded, order.UserID).Error; err != nil {
			b.log.Warn("rating prompt skipped: user load failed",
				zap.Uint("order_id", order.ID), zap.Error(err))
			return
		}
		user = &loaded
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⭐ Оценить доставку",
				fmt.Sprintf("rate_delivery:%d", order.ID)),
		),
	)
	b.sendWithKeyboard(user.TelegramID,
		fmt.Sprintf("Заказ %s доставлен! Оцените доставку:", order.Number), keyboard)
}
