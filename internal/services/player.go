package services

import (
	"errors"
	"fmt"
	"log"

	"github.com/xivitoo/XiPadelGranada/internal/levels"
	"github.com/xivitoo/XiPadelGranada/internal/models"

	"gorm.io/gorm"
)

// adjustmentStreak is how many consecutive same-direction marks move a
// player's level by one tier.
const adjustmentStreak = 3

type PlayerService struct {
	db *gorm.DB
}

func NewPlayerService(db *gorm.DB) *PlayerService {
	return &PlayerService{db: db}
}

// Register creates the player if absent. Re-registering is a no-op and
// returns the existing record with created=false.
func (s *PlayerService) Register(telegramID int64, name string, level int, preference string) (*models.Player, bool, error) {
	var existing models.Player
	if err := s.db.Where("telegram_id = ?", telegramID).First(&existing).Error; err == nil {
		return &existing, false, nil
	}

	player := models.Player{
		TelegramID: telegramID,
		Name:       name,
		Level:      level,
		Preference: preference,
	}
	if err := s.db.Create(&player).Error; err != nil {
		return nil, false, fmt.Errorf("create player: %w", err)
	}
	return &player, true, nil
}

func (s *PlayerService) Get(telegramID int64) (*models.Player, error) {
	var player models.Player
	if err := s.db.Where("telegram_id = ?", telegramID).First(&player).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlayerNotRegistered
		}
		return nil, err
	}
	return &player, nil
}

func (s *PlayerService) List() ([]models.Player, error) {
	var players []models.Player
	if err := s.db.Order("name ASC").Find(&players).Error; err != nil {
		return nil, err
	}
	return players, nil
}

func (s *PlayerService) Evaluations(telegramID int64) ([]models.Evaluation, error) {
	var evals []models.Evaluation
	if err := s.db.Where("rated_id = ?", telegramID).
		Order("created_at DESC").
		Find(&evals).Error; err != nil {
		return nil, err
	}
	return evals, nil
}

// RecordEvaluation appends an evaluation and, for directional verdicts,
// updates the rated player's mark streaks. Three consecutive marks in the
// same direction move the level one tier (clamped) and reset the streak, so
// a fourth consecutive mark starts a new window. A mark in one direction
// zeroes the opposite streak. Conforming verdicts name no player and touch
// no streak.
func (s *PlayerService) RecordEvaluation(matchID uint, raterID, ratedID int64, verdict string) error {
	switch verdict {
	case models.VerdictConforms, models.VerdictTooLow, models.VerdictTooHigh:
	default:
		return ErrInvalidVerdict
	}

	eval := models.Evaluation{
		MatchID: matchID,
		RaterID: raterID,
		RatedID: ratedID,
		Verdict: verdict,
	}
	if err := s.db.Create(&eval).Error; err != nil {
		return fmt.Errorf("create evaluation: %w", err)
	}

	if verdict == models.VerdictConforms || ratedID == 0 {
		return nil
	}

	var player models.Player
	if err := s.db.Where("telegram_id = ?", ratedID).First(&player).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPlayerNotRegistered
		}
		return err
	}

	switch verdict {
	case models.VerdictTooLow:
		player.DownwardMarks++
		player.UpwardMarks = 0
		if player.DownwardMarks >= adjustmentStreak {
			player.Level = levels.Adjust(player.Level, -1)
			player.DownwardMarks = 0
			log.Printf("player %d demoted to %s", ratedID, levels.TierName(player.Level))
		}
	case models.VerdictTooHigh:
		player.UpwardMarks++
		player.DownwardMarks = 0
		if player.UpwardMarks >= adjustmentStreak {
			player.Level = levels.Adjust(player.Level, +1)
			player.UpwardMarks = 0
			log.Printf("player %d promoted to %s", ratedID, levels.TierName(player.Level))
		}
	}

	if err := s.db.Save(&player).Error; err != nil {
		return fmt.Errorf("save player: %w", err)
	}
	return nil
}
