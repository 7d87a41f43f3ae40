package models

import "time"

type Player struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	TelegramID    int64     `gorm:"not null;uniqueIndex" json:"telegram_id"`
	Name          string    `gorm:"size:100;not null" json:"name"`
	Level         int       `gorm:"not null;default:0" json:"level"`
	Preference    string    `gorm:"size:20" json:"preference"`
	UpwardMarks   int       `gorm:"not null;default:0" json:"upward_marks"`
	DownwardMarks int       `gorm:"not null;default:0" json:"downward_marks"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

const (
	PreferenceDrive     = "Drive"
	PreferenceBackhand  = "Revés"
	PreferenceImpartial = "Indiferente"
)
