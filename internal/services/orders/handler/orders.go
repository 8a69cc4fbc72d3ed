package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"ecobazar-system/internal/apperr"
	"ecobazar-system/internal/database/models"
	stockhandler "ecobazar-system/internal/services/stock/handler"
)

// createOrderTimeout bounds the multi-row creation transaction; the per-item
// fan-out (item, confirmation, stock debit per line) needs more headroom
// than a single-row write.
const createOrderTimeout = 30 * time.Second

// Notifier is the outbound side channel. Implementations must be safe to
// call from detached goroutines and must never propagate failures back.
type Notifier interface {
	NotifySellersNewOrder(order *models.Order)
	NotifyCourierAssigned(order *models.Order, courier *models.User)
	NotifyOrderStatusChanged(order *models.Order, status string)
	NotifyRatingRequest(order *models.Order)
}

type Requester struct {
	ID   uint
	Role string
}

type OrderHandler struct {
	db       *gorm.DB
	notifier Notifier
	log      *zap.Logger
}

func NewOrderHandler(db *gorm.DB, notifier Notifier, log *zap.Logger) *OrderHandler {
	return &OrderHandler{db: db, notifier: notifier, log: log}
}

// SetNotifier attaches the outbound channel after both sides are built.
func (h *OrderHandler) SetNotifier(n Notifier) {
	h.notifier = n
}

func newOrderNumber() string {
	return "ORD-" + strings.ToUpper(uuid.NewString()[:8])
}

// CurrentStatus derives an order's status from its append-only history:
// latest row by (created_at, id).
func CurrentStatus(db *gorm.DB, orderID uint) (string, error) {
	var st models.OrderStatus
	err := db.Where("order_id = ?", orderID).
		Order("created_at DESC, id DESC").
		First(&st).Error
	if err != nil {
		return "", err
	}
	return st.Status, nil
}

// preloadsForRole is the capability-scoped projection: admins and sellers
// see confirmation state, admins additionally see the people involved.
func preloadsForRole(role string) []string {
	base := []string{"Items", "Items.Product", "Rating"}
	switch role {
	case models.RoleAdmin:
		return append(base, "Items.Confirmation", "User", "Courier")
	case models.RoleSeller:
		return append(base, "Items.Confirmation")
	default:
		return base
	}
}

func (h *OrderHandler) loadOrder(ctx context.Context, orderID uint, role string) (*models.Order, error) {
	query := h.db.WithContext(ctx)
	for _, preload := range preloadsForRole(role) {
		query = query.Preload(preload)
	}
	query = query.Preload("Statuses", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at, id")
	})

	var order models.Order
	if err := query.First(&order, orderID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFoundf("order %d not found", orderID)
		}
		return nil, err
	}
	return &order, nil
}

func (h *OrderHandler) checkOrderAccess(order *models.Order, req Requester) error {
	switch req.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleCustomer:
		if order.UserID == req.ID {
			return nil
		}
	case models.RoleCourier:
		if order.CourierID != nil && *order.CourierID == req.ID {
			return nil
		}
	}
	return apperr.Forbidden("no access to this order")
}

// -- Order creation --

type OrderItemRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required,min=1"`
}

type CreateOrderRequest struct {
	Items        []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
	Address      string             `json:"address" binding:"required"`
	DeliveryType string             `json:"delivery_type" binding:"required,oneof=ASAP SCHEDULED"`
	ScheduledAt  *time.Time         `json:"scheduled_at"`
}

// CreateOrder runs the whole creation workflow in one transaction: order,
// items with frozen prices, initial NEW status, one PENDING confirmation
// per item, one OUTCOME stock movement per item. Either all rows commit or
// none do. Seller notifications go out after commit, detached.
func (h *OrderHandler) CreateOrder(ctx context.Context, userID uint, req CreateOrderRequest) (*models.Order, error) {
	if req.DeliveryType == models.DeliveryTypeScheduled && req.ScheduledAt == nil {
		return nil, apperr.Validation("scheduled_at is required for SCHEDULED delivery")
	}
	if len(req.Items) == 0 {
		return nil, apperr.Validation("order must contain at least one item")
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, apperr.Validationf("quantity must be positive for product %d", item.ProductID)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, createOrderTimeout)
	defer cancel()

	var orderID uint
	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		type line struct {
			product  models.Product
			quantity int
		}
		lines := make([]line, 0, len(req.Items))
		total := decimal.Zero

		for _, item := range req.Items {
			var product models.Product
			err := tx.Where("id = ? AND is_active = ?", item.ProductID, true).First(&product).Error
			if err != nil {
				if err == gorm.ErrRecordNotFound {
					return apperr.NotFoundf("product %d not found", item.ProductID)
				}
				return err
			}

			available, err := stockhandler.Available(tx, product.ID)
			if err != nil {
				return err
			}
			if available < item.Quantity {
				return apperr.Validationf("Недостаточно товара \"%s\". Доступно: %d", product.Name, available)
			}

			price, err := decimal.NewFromString(product.Price)
			if err != nil {
				return fmt.Errorf("product %d has malformed price %q: %w", product.ID, product.Price, err)
			}
			total = total.Add(price.Mul(decimal.NewFromInt(int64(item.Quantity))))
			lines = append(lines, line{product: product, quantity: item.Quantity})
		}

		order := models.Order{
			Number:       newOrderNumber(),
			UserID:       userID,
			Address:      req.Address,
			DeliveryType: req.DeliveryType,
			ScheduledAt:  req.ScheduledAt,
			TotalAmount:  total.StringFixed(2),
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}
		if err := tx.Create(&models.OrderStatus{OrderID: order.ID, Status: models.OrderStatusNew}).Error; err != nil {
			return err
		}

		for _, ln := range lines {
			item := models.OrderItem{
				OrderID:   order.ID,
				ProductID: ln.product.ID,
				Quantity:  ln.quantity,
				Price:     ln.product.Price,
			}
			if err := tx.Create(&item).Error; err != nil {
				return err
			}

			confirmation := models.StoreOrderConfirmation{
				OrderItemID: item.ID,
				StoreID:     ln.product.StoreID,
				Status:      models.ConfirmationPending,
			}
			if err := tx.Create(&confirmation).Error; err != nil {
				return err
			}

			comment := "order " + order.Number
			movement := models.StockMovement{
				ProductID: ln.product.ID,
				Quantity:  ln.quantity,
				Type:      models.MovementOutcome,
				AdminID:   userID,
				Comment:   &comment,
			}
			if err := tx.Create(&movement).Error; err != nil {
				return err
			}
		}

		orderID = order.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	order, err := h.loadOrder(ctx, orderID, models.RoleAdmin)
	if err != nil {
		return nil, err
	}

	h.log.Info("order created",
		zap.Uint("order_id", order.ID),
		zap.String("number", order.Number),
		zap.Uint("user_id", userID))

	if h.notifier != nil {
		go h.notifier.NotifySellersNewOrder(order)
	}
	return order, nil
}

// -- Reads --

func (h *OrderHandler) GetOrder(ctx context.Context, req Requester, orderID uint) (*models.Order, error) {
	order, err := h.loadOrder(ctx, orderID, req.Role)
	if err != nil {
		return nil, err
	}
	if err := h.checkOrderAccess(order, req); err != nil {
		return nil, err
	}
	return order, nil
}

func (h *OrderHandler) ListOrders(ctx context.Context, req Requester, offset, limit int) ([]models.Order, int64, error) {
	query := h.db.WithContext(ctx).Model(&models.Order{})
	switch req.Role {
	case models.RoleAdmin:
	case models.RoleCustomer:
		query = query.Where("user_id = ?", req.ID)
	case models.RoleCourier:
		query = query.Where("courier_id = ?", req.ID)
	default:
		return nil, 0, apperr.Forbidden("no access to order listing")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []models.Order
	err := query.
		Preload("Items").Preload("Items.Product").
		Preload("Statuses", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at, id")
		}).
		Order("created_at DESC, id DESC").
		Offset(offset).Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// ListOrderStatuses returns the full append-only history, oldest first.
func (h *OrderHandler) ListOrderStatuses(ctx context.Context, req Requester, orderID uint) ([]models.OrderStatus, error) {
	order, err := h.loadOrder(ctx, orderID, req.Role)
	if err != nil {
		return nil, err
	}
	if err := h.checkOrderAccess(order, req); err != nil {
		return nil, err
	}
	return order.Statuses, nil
}

// -- Status transitions --

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateOrderStatus appends a status row (never mutates one). Admin only;
// courier transitions go through CourierUpdateStatus.
func (h *OrderHandler) UpdateOrderStatus(ctx context.Context, orderID uint, req UpdateStatusRequest) (*models.Order, error) {
	if !models.ValidOrderStatus(req.Status) {
		return nil, apperr.Validationf("unknown order status %q", req.Status)
	}

	order, err := h.loadOrder(ctx, orderID, models.RoleAdmin)
	if err != nil {
		return nil, err
	}

	current, err := CurrentStatus(h.db.WithContext(ctx), orderID)
	if err != nil {
		return nil, err
	}
	if models.TerminalOrderStatus(current) {
		return nil, apperr.Conflict(fmt.Sprintf("order is already %s", current))
	}

	if err := h.db.WithContext(ctx).Create(&models.OrderStatus{OrderID: orderID, Status: req.Status}).Error; err != nil {
		return nil, err
	}

	order, err = h.loadOrder(ctx, orderID, models.RoleAdmin)
	if err != nil {
		return nil, err
	}

	if h.notifier != nil {
		go h.notifier.NotifyOrderStatusChanged(order, req.Status)
		if req.Status == models.OrderStatusDelivered {
			go h.notifier.NotifyRatingRequest(order)
		}
	}
	return order, nil
}

// CourierUpdateStatus is the single transition a courier may trigger:
// DELIVERING -> DELIVERED on an order assigned to them.
func (h *OrderHandler) CourierUpdateStatus(ctx context.Context, courierID, orderID uint, status string) (*models.Order, error) {
	order, err := h.loadOrder(ctx, orderID, models.RoleCourier)
	if err != nil {
		return nil, err
	}
	if order.CourierID == nil || *order.CourierID != courierID {
		return nil, apperr.Forbidden("order is not assigned to this courier")
	}

	if status != models.OrderStatusDelivered {
		return nil, apperr.Validation("order status can only be changed to DELIVERED")
	}

	current, err := CurrentStatus(h.db.WithContext(ctx), orderID)
	if err != nil {
		return nil, err
	}
	if current != models.OrderStatusDelivering {
		return nil, apperr.Validation("order can only be marked DELIVERED from DELIVERING")
	}

	if err := h.db.WithContext(ctx).Create(&models.OrderStatus{OrderID: orderID, Status: models.OrderStatusDelivered}).Error; err != nil {
		return nil, err
	}

	order, err = h.loadOrder(ctx, orderID, models.RoleCourier)
	if err != nil {
		return nil, err
	}

	if h.notifier != nil {
		go h.notifier.NotifyOrderStatusChanged(order, models.OrderStatusDelivered)
		go h.notifier.NotifyRatingRequest(order)
	}
	return order, nil
}

// -- Courier assignment --

// AssignCourier sets the courier and appends a DELIVERING status in one
// transaction. Re-assigning the same courier is a no-op; a different
// courier is rejected.
func (h *OrderHandler) AssignCourier(ctx context.Context, orderID, courierID uint) (*models.Order, error) {
	order, err := h.loadOrder(ctx, orderID, models.RoleAdmin)
	if err != nil {
		return nil, err
	}

	var courier models.User
	if err := h.db.WithContext(ctx).First(&courier, courierID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFoundf("user %d not found", courierID)
		}
		return nil, err
	}
	if courier.Role != models.RoleCourier {
		return nil, apperr.Validationf("user %d is not a courier", courierID)
	}

	if order.CourierID != nil {
		if *order.CourierID == courierID {
			return order, nil
		}
		return nil, apperr.Conflict("order is already assigned to another courier")
	}

	current, err := CurrentStatus(h.db.WithContext(ctx), orderID)
	if err != nil {
		return nil, err
	}
	if models.TerminalOrderStatus(current) {
		return nil, apperr.Conflict(fmt.Sprintf("order is already %s", current))
	}

	err = h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Order{}).Where("id = ?", orderID).Update("courier_id", courierID)
		if res.Error != nil {
			return res.Error
		}
		return tx.Create(&models.OrderStatus{OrderID: orderID, Status: models.OrderStatusDelivering}).Error
	})
	if err != nil {
		return nil, err
	}

	order, err = h.loadOrder(ctx, orderID, models.RoleAdmin)
	if err != nil {
		return nil, err
	}

	if h.notifier != nil {
		go h.notifier.NotifyCourierAssigned(order, &courier)
	}
	return order, nil
}

// -- Store confirmation --

type ConfirmItemRequest struct {
	Status            string  `json:"status" binding:"required,oneof=CONFIRMED PARTIAL REJECTED"`
	ConfirmedQuantity int     `json:"confirmed_quantity"`
	Notes             *string `json:"notes"`
}

// GetConfirmation loads a confirmation with its order item and product.
func (h *OrderHandler) GetConfirmation(ctx context.Context, confirmationID uint) (*models.StoreOrderConfirmation, *models.OrderItem, error) {
	var confirmation models.StoreOrderConfirmation
	if err := h.db.WithContext(ctx).First(&confirmation, confirmationID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil, apperr.NotFoundf("confirmation %d not found", confirmationID)
		}
		return nil, nil, err
	}

	var item models.OrderItem
	if err := h.db.WithContext(ctx).Preload("Product").First(&item, confirmation.OrderItemID).Error; err != nil {
		return nil, nil, err
	}
	return &confirmation, &item, nil
}

// ConfirmOrderItem resolves one order line on behalf of the store that owns
// the product. Upsert semantics: the PENDING row created with the order is
// overwritten; onlyIfPending guards bot double-taps.
func (h *OrderHandler) ConfirmOrderItem(ctx context.Context, confirmerID, confirmationID uint, req ConfirmItemRequest, onlyIfPending bool) (*models.StoreOrderConfirmation, error) {
	confirmation, item, err := h.GetConfirmation(ctx, confirmationID)
	if err != nil {
		return nil, err
	}

	var confirmer models.User
	if err := h.db.WithContext(ctx).First(&confirmer, confirmerID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFoundf("user %d not found", confirmerID)
		}
		return nil, err
	}
	if confirmer.Role != models.RoleAdmin {
		var store models.Store
		if err := h.db.WithContext(ctx).First(&store, confirmation.StoreID).Error; err != nil {
			return nil, err
		}
		if store.OwnerID == nil || *store.OwnerID != confirmerID {
			return nil, apperr.Forbidden("only the store owner can confirm this item")
		}
	}

	current, err := CurrentStatus(h.db.WithContext(ctx), item.OrderID)
	if err != nil {
		return nil, err
	}
	if models.TerminalOrderStatus(current) {
		return nil, apperr.Conflict(fmt.Sprintf("cannot confirm items on a %s order", current))
	}

	if onlyIfPending && confirmation.Status != models.ConfirmationPending {
		return nil, apperr.Conflict("item is already confirmed")
	}

	quantity := req.ConfirmedQuantity
	switch req.Status {
	case models.ConfirmationConfirmed:
		if quantity != 0 && quantity != item.Quantity {
			return nil, apperr.Validationf("confirmed quantity must equal ordered quantity %d", item.Quantity)
		}
		quantity = item.Quantity
	case models.ConfirmationPartial:
		if quantity <= 0 || quantity >= item.Quantity {
			return nil, apperr.Validationf("partial quantity must be between 1 and %d", item.Quantity-1)
		}
	case models.ConfirmationRejected:
		if quantity != 0 {
			return nil, apperr.Validation("rejected items must have zero confirmed quantity")
		}
	default:
		return nil, apperr.Validationf("unknown confirmation status %q", req.Status)
	}

	now := time.Now()
	confirmation.Status = req.Status
	confirmation.ConfirmedQuantity = quantity
	confirmation.Notes = req.Notes
	confirmation.ConfirmedAt = &now
	confirmation.ConfirmedByID = &confirmerID

	if err := h.db.WithContext(ctx).Save(confirmation).Error; err != nil {
		return nil, err
	}

	h.log.Info("order item confirmed",
		zap.Uint("confirmation_id", confirmation.ID),
		zap.String("status", confirmation.Status),
		zap.Int("quantity", confirmation.ConfirmedQuantity))

	return confirmation, nil
}

// -- Rating --

type CreateRatingRequest struct {
	Quality    int     `json:"quality" binding:"required,min=1,max=5"`
	Speed      int     `json:"speed" binding:"required,min=1,max=5"`
	Impression int     `json:"impression" binding:"required,min=1,max=5"`
	Comment    *string `json:"comment"`
}

// CreateDeliveryRating records the one-time, three-dimensional feedback for
// a delivered order.
func (h *OrderHandler) CreateDeliveryRating(ctx context.Context, userID, orderID uint, req CreateRatingRequest) (*models.DeliveryRating, error) {
	var order models.Order
	if err := h.db.WithContext(ctx).First(&order, orderID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFoundf("order %d not found", orderID)
		}
		return nil, err
	}
	if order.UserID != userID {
		return nil, apperr.Forbidden("only the order's customer can rate the delivery")
	}

	for _, score := range []int{req.Quality, req.Speed, req.Impression} {
		if score < 1 || score > 5 {
			return nil, apperr.Validation("rating scores must be between 1 and 5")
		}
	}

	current, err := CurrentStatus(h.db.WithContext(ctx), orderID)
	if err != nil {
		return nil, err
	}
	if current != models.OrderStatusDelivered {
		return nil, apperr.Conflict("order is not delivered yet")
	}

	var existing models.DeliveryRating
	err = h.db.WithContext(ctx).Where("order_id = ?", orderID).First(&existing).Error
	if err == nil {
		return nil, apperr.Conflict("order is already rated")
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	rating := models.DeliveryRating{
		OrderID:    orderID,
		UserID:     userID,
		Quality:    req.Quality,
		Speed:      req.Speed,
		Impression: req.Impression,
		Comment:    req.Comment,
	}
	if err := h.db.WithContext(ctx).Create(&rating).Error; err != nil {
		return nil, err
	}
	return &rating, nil
}
