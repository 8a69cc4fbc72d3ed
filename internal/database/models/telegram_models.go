package models

import "time"

const StateWaitingQuantityInput = "waiting_quantity_input"

// TelegramUserState keeps one pending multi-step bot conversation per
// telegram user. Disposable session state: expired rows are dropped on read
// and by a periodic sweep.
type TelegramUserState struct {
	TelegramID int64  `gorm:"primaryKey" json:"telegram_id"`
	State      string `gorm:"type:varchar(48);not null" json:"state"`
	Payload    string `gorm:"type:text;not null" json:"payload"`

	ExpiresAt time.Time `gorm:"index;not null" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *TelegramUserState) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
