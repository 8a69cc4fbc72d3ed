package telegram

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ecobazar-system/internal/database/models"
)

const sweepInterval = 5 * time.Minute

// QuantityInputPayload is the conversational context of a pending
// partial-quantity prompt.
type QuantityInputPayload struct {
	ConfirmationID uint   `json:"confirmation_id"`
	ProductName    string `json:"product_name"`
	MaxQuantity    int    `json:"max_quantity"`
}

// StateStore keeps one pending conversation per telegram user. Rows expire:
// lazily on read and via the periodic sweep.
type StateStore struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewStateStore(db *gorm.DB, log *zap.Logger) *StateStore {
	return &StateStore{db: db, log: log}
}

func (s *StateStore) Set(ctx context.Context, telegramID int64, state string, payload interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	row := models.TelegramUserState{
		TelegramID: telegramID,
		State:      state,
		Payload:    string(raw),
		ExpiresAt:  time.Now().Add(ttl),
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&row).Error
}

// Get returns nil when there is no live state for the user; an expired row
// is dropped on the way out.
func (s *StateStore) Get(ctx context.Context, telegramID int64) (*models.TelegramUserState, error) {
	var row models.TelegramUserState
	err := s.db.WithContext(ctx).First(&row, "telegram_id = ?", telegramID).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if row.Expired(time.Now()) {
		if err := s.Delete(ctx, telegramID); err != nil {
			s.log.Warn("failed to drop expired telegram state", zap.Int64("telegram_id", telegramID), zap.Error(err))
		}
		return nil, nil
	}
	return &row, nil
}

func (s *StateStore) Delete(ctx context.Context, telegramID int64) error {
	return s.db.WithContext(ctx).
		Delete(&models.TelegramUserState{}, "telegram_id = ?", telegramID).Error
}

// Sweep removes every expired state row and returns how many were dropped.
func (s *StateStore) Sweep(ctx context.Context) int64 {
	res := s.db.WithContext(ctx).
		Delete(&models.TelegramUserState{}, "expires_at < ?", time.Now())
	if res.Error != nil {
		s.log.Warn("telegram state sweep failed", zap.Error(res.Error))
		return 0
	}
	return res.RowsAffected
}

// StartSweeper guards against abandoned conversations piling up.
func (s *StateStore) StartSweeper(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if dropped := s.Sweep(ctx); dropped > 0 {
					s.log.Debug("swept expired telegram states", zap.Int64("dropped", dropped))
				}
			}
		}
	}()
}
