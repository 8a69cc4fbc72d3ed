package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"ecobazar-system/internal/apperr"
	"ecobazar-system/internal/database/models"
	ordershandler "ecobazar-system/internal/services/orders/handler"
)

// Callback data is colon-delimited and must stay under telegram's 64-byte
// limit: action, then numeric arguments. The rating wizard carries the
// answers collected so far in the payload, so it needs no stored state.

// HandleCallback routes one inline-button press.
func (b *Bot) HandleCallback(cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil || cb.From == nil {
		return
	}
	ctx := context.Background()
	parts := strings.Split(cb.Data, ":")

	var err error
	switch parts[0] {
	case "confirm_item":
		err = b.handleConfirmItem(ctx, cb, parts)
	case "partial_item":
		err = b.handlePartialItem(ctx, cb, parts)
	case "courier_delivered":
		err = b.handleCourierDelivered(ctx, cb, parts)
	case "rate_delivery":
		err = b.handleRateDelivery(cb, parts)
	case "quality_rating":
		err = b.handleQualityRating(cb, parts)
	case "speed_rating":
		err = b.handleSpeedRating(cb, parts)
	case "impression_rating":
		err = b.handleImpressionRating(ctx, cb, parts)
	default:
		b.log.Debug("unknown callback action", zap.String("data", cb.Data))
		b.answer(cb.ID, "")
		return
	}

	if err != nil {
		b.alert(cb.ID, apperr.From(err).Message)
	}
}

func (b *Bot) handleConfirmItem(ctx context.Context, cb *tgbotapi.CallbackQuery, parts []string) error {
	if len(parts) != 3 {
		return apperr.Validation("malformed callback")
	}
	confirmationID, err := parseID(parts[1])
	if err != nil {
		return err
	}
	status := parts[2]

	user, err := b.userByTelegramID(ctx, cb.From.ID)
	if err != nil {
		return err
	}

	_, item, err := b.orders.GetConfirmation(ctx, confirmationID)
	if err != nil {
		return err
	}

	req := ordershandler.ConfirmItemRequest{Status: status}
	if status == models.ConfirmationConfirmed {
		req.ConfirmedQuantity = item.Quantity
	}
	if _, err := b.orders.ConfirmOrderItem(ctx, user.ID, confirmationID, req, true); err != nil {
		return err
	}

	name := productName(item)
	if status == models.ConfirmationConfirmed {
		b.answer(cb.ID, "Подтверждено")
		b.send(cb.Message.Chat.ID, fmt.Sprintf("✅ %s: наличие подтверждено (%d шт.)", name, item.Quantity))
	} else {
		b.answer(cb.ID, "Отклонено")
		b.send(cb.Message.Chat.ID, fmt.Sprintf("❌ %s: нет в наличии", name))
	}
	return nil
}

// handlePartialItem does not touch the confirmation yet; it parks the
// conversation until the seller replies with a number.
func (b *Bot) handlePartialItem(ctx context.Context, cb *tgbotapi.CallbackQuery, parts []string) error {
	if len(parts) != 2 {
		return apperr.Validation("malformed callback")
	}
	confirmationID, err := parseID(parts[1])
	if err != nil {
		return err
	}

	if _, err := b.userByTelegramID(ctx, cb.From.ID); err != nil {
		return err
	}

	confirmation, item, err := b.orders.GetConfirmation(ctx, confirmationID)
	if err != nil {
		return err
	}
	if confirmation.Status != models.ConfirmationPending {
		return apperr.Conflict("item is already confirmed")
	}
	if item.Quantity <= 1 {
		return apperr.Validation("частичное подтверждение недоступно для одной единицы")
	}

	payload := QuantityInputPayload{
		ConfirmationID: confirmationID,
		ProductName:    productName(item),
		MaxQuantity:    item.Quantity,
	}
	if err := b.states.Set(ctx, cb.From.ID, models.StateWaitingQuantityInput, payload, quantityInputTTL); err != nil {
		return err
	}

	b.answer(cb.ID, "")
	b.send(cb.Message.Chat.ID,
		fmt.Sprintf("Введите доступное количество для «%s» (от 1 до %d):",
			payload.ProductName, item.Quantity-1))
	return nil
}

func (b *Bot) handleCourierDelivered(ctx context.Context, cb *tgbotapi.CallbackQuery, parts []string) error {
	if len(parts) != 3 {
		return apperr.Validation("malformed callback")
	}
	orderID, err := parseID(parts[1])
	if err != nil {
		return err
	}
	courierID, err := parseID(parts[2])
	if err != nil {
		return err
	}

	user, err := b.userByTelegramID(ctx, cb.From.ID)
	if err != nil {
		return err
	}
	if user.ID != courierID {
		return apperr.Forbidden("кнопка предназначена другому курьеру")
	}

	order, err := b.orders.CourierUpdateStatus(ctx, courierID, orderID, models.OrderStatusDelivered)
	if err != nil {
		return err
	}

	b.answer(cb.ID, "Статус обновлён")
	b.send(cb.Message.Chat.ID, fmt.Sprintf("📦 Заказ %s отмечен как доставленный", order.Number))
	return nil
}

func (b *Bot) handleRateDelivery(cb *tgbotapi.CallbackQuery, parts []string) error {
	if len(parts) != 2 {
		return apperr.Validation("malformed callback")
	}
	orderID, err := parseID(parts[1])
	if err != nil {
		return err
	}

	b.answer(cb.ID, "")
	b.sendWithKeyboard(cb.Message.Chat.ID, "Оцените качество товаров:",
		scoreKeyboard(func(score int) string {
			return fmt.Sprintf("quality_rating:%d:%d", orderID, score)
		}))
	return nil
}

func (b *Bot) handleQualityRating(cb *tgbotapi.CallbackQuery, parts []string) error {
	if len(parts) != 3 {
		return apperr.Validation("malformed callback")
	}
	orderID, err := parseID(parts[1])
	if err != nil {
		return err
	}
	quality, err := parseScore(parts[2])
	if err != nil {
		return err
	}

	b.answer(cb.ID, "")
	b.sendWithKeyboard(cb.Message.Chat.ID, "Оцените скорость доставки:",
		scoreKeyboard(func(score int) string {
			return fmt.Sprintf("speed_rating:%d:%d:%d", orderID, quality, score)
		}))
	return nil
}

func (b *Bot) handleSpeedRating(cb *tgbotapi.CallbackQuery, parts []string) error {
	if len(parts) != 4 {
		return apperr.Validation("malformed callback")
	}
	orderID, err := parseID(parts[1])
	if err != nil {
		return err
	}
	quality, err := parseScore(parts[2])
	if err != nil {
		return err
	}
	speed, err := parseScore(parts[3])
	if err != nil {
		return err
	}

	b.answer(cb.ID, "")
	b.sendWithKeyboard(cb.Message.Chat.ID, "Оцените общее впечатление:",
		scoreKeyboard(func(score int) string {
			return fmt.Sprintf("impression_rating:%d:%d:%d:%d", orderID, quality, speed, score)
		}))
	return nil
}

func (b *Bot) handleImpressionRating(ctx context.Context, cb *tgbotapi.CallbackQuery, parts []string) error {
	if len(parts) != 5 {
		return apperr.Validation("malformed callback")
	}
	orderID, err := parseID(parts[1])
	if err != nil {
		return err
	}
	quality, err := parseScore(parts[2])
	if err != nil {
		return err
	}
	speed, err := parseScore(parts[3])
	if err != nil {
		return err
	}
	impression, err := parseScore(parts[4])
	if err != nil {
		return err
	}

	user, err := b.userByTelegramID(ctx, cb.From.ID)
	if err != nil {
		return err
	}

	rating, err := b.orders.CreateDeliveryRating(ctx, user.ID, orderID, ordershandler.CreateRatingRequest{
		Quality:    quality,
		Speed:      speed,
		Impression: impression,
	})
	if err != nil {
		return err
	}

	b.answer(cb.ID, "Спасибо за оценку!")
	b.send(cb.Message.Chat.ID, fmt.Sprintf(
		"⭐ Спасибо за отзыв!\nКачество: %d/5\nСкорость: %d/5\nВпечатление: %d/5",
		rating.Quality, rating.Speed, rating.Impression))
	return nil
}

// HandleMessage consumes plain-text replies. Anything outside a live
// quantity prompt is ignored.
func (b *Bot) HandleMessage(msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	ctx := context.Background()

	state, err := b.states.Get(ctx, msg.From.ID)
	if err != nil {
		b.log.Warn("telegram state lookup failed", zap.Int64("telegram_id", msg.From.ID), zap.Error(err))
		return
	}
	if state == nil || state.State != models.StateWaitingQuantityInput {
		return
	}

	var payload QuantityInputPayload
	if err := json.Unmarshal([]byte(state.Payload), &payload); err != nil {
		b.log.Warn("corrupt quantity payload", zap.Int64("telegram_id", msg.From.ID), zap.Error(err))
		_ = b.states.Delete(ctx, msg.From.ID)
		return
	}

	quantity, err := strconv.Atoi(strings.TrimSpace(msg.Text))
	if err != nil || quantity < 1 || quantity >= payload.MaxQuantity {
		b.send(msg.Chat.ID, fmt.Sprintf("Введите число от 1 до %d:", payload.MaxQuantity-1))
		return
	}

	user, err := b.userByTelegramID(ctx, msg.From.ID)
	if err != nil {
		b.send(msg.Chat.ID, apperr.From(err).Message)
		return
	}

	_, err = b.orders.ConfirmOrderItem(ctx, user.ID, payload.ConfirmationID, ordershandler.ConfirmItemRequest{
		Status:            models.ConfirmationPartial,
		ConfirmedQuantity: quantity,
	}, true)
	if err != nil {
		b.send(msg.Chat.ID, apperr.From(err).Message)
		_ = b.states.Delete(ctx, msg.From.ID)
		return
	}

	if err := b.states.Delete(ctx, msg.From.ID); err != nil {
		b.log.Warn("failed to clear telegram state", zap.Int64("telegram_id", msg.From.ID), zap.Error(err))
	}
	b.send(msg.Chat.ID, fmt.Sprintf("⚠️ «%s»: подтверждено частично, %d шт.", payload.ProductName, quantity))
}

func productName(item *models.OrderItem) string {
	if item.Product != nil {
		return item.Product.Name
	}
	return fmt.Sprintf("товар %d", item.ProductID)
}

func scoreKeyboard(data func(score int) string) tgbotapi.InlineKeyboardMarkup {
	buttons := make([]tgbotapi.InlineKeyboardButton, 0, 5)
	for score := 1; score <= 5; score++ {
		buttons = append(buttons,
			tgbotapi.NewInlineKeyboardButtonData(strconv.Itoa(score), data(score)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(buttons...))
}

func parseID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, apperr.Validation("malformed callback")
	}
	return uint(id), nil
}

func parseScore(raw string) (int, error) {
	score, err := strconv.Atoi(raw)
	if err != nil || score < 1 || score > 5 {
		return 0, apperr.Validation("оценка должна быть от 1 до 5")
	}
	return score, nil
}
