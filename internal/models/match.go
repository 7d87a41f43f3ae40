package models

import "time"

type Match struct {
	ID                   uint          `gorm:"primaryKey" json:"id"`
	CreatorID            int64         `gorm:"not null;index" json:"creator_id"`
	Level                int           `gorm:"not null" json:"level"`
	StartTime            time.Time     `gorm:"not null;index" json:"start_time"`
	EndTime              time.Time     `gorm:"not null" json:"end_time"`
	Location             string        `gorm:"size:200;not null" json:"location"`
	PricePerPerson       float64       `gorm:"not null" json:"price_per_person"`
	ReservationConfirmed bool          `gorm:"not null;default:false" json:"reservation_confirmed"`
	Cancelled            bool          `gorm:"not null;default:false" json:"cancelled"`
	Roster               []RosterEntry `gorm:"foreignKey:MatchID" json:"roster,omitempty"`
	CreatedAt            time.Time     `json:"created_at"`
}

type RosterEntry struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	MatchID  uint      `gorm:"not null;uniqueIndex:idx_match_player" json:"match_id"`
	PlayerID int64     `gorm:"not null;uniqueIndex:idx_match_player" json:"player_id"`
	Position int       `gorm:"not null" json:"position"`
	JoinedAt time.Time `json:"joined_at"`
}
