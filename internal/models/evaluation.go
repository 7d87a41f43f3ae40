package models

import "time"

// Evaluation rows are append-only: they are never updated or deleted.
type Evaluation struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	MatchID   uint      `gorm:"not null;index" json:"match_id"`
	RaterID   int64     `gorm:"not null" json:"rater_id"`
	RatedID   int64     `gorm:"default:0;index" json:"rated_id,omitempty"`
	Verdict   string    `gorm:"size:20;not null" json:"verdict"`
	CreatedAt time.Time `json:"created_at"`
}

const (
	VerdictConforms = "conforms"
	VerdictTooLow   = "too_low"
	VerdictTooHigh  = "too_high"
)
