package services

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/xivitoo/XiPadelGranada/internal/levels"
	"github.com/xivitoo/XiPadelGranada/internal/models"

	"gorm.io/gorm"
)

// evaluationDelay is how long after a match ends the evaluation prompts go out.
const evaluationDelay = time.Hour

// EvaluationScheduler is the one-shot timer the service drives: a trigger is
// armed on create and revoked on cancel.
type EvaluationScheduler interface {
	Schedule(matchID uint, at time.Time)
	Cancel(matchID uint)
}

type MatchService struct {
	db    *gorm.DB
	sched EvaluationScheduler

	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

func NewMatchService(db *gorm.DB, sched EvaluationScheduler) *MatchService {
	return &MatchService{
		db:    db,
		sched: sched,
		locks: make(map[uint]*sync.Mutex),
	}
}

// lock returns the mutex serializing operations on one match. Cross-match
// operations proceed concurrently.
func (s *MatchService) lock(matchID uint) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[matchID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[matchID] = l
	}
	return l
}

// Create validates the schedule and price, stores the match with the creator
// as the first roster entry, and arms the post-match evaluation trigger.
func (s *MatchService) Create(creatorID int64, level int, start, end time.Time, location string, price float64) (*models.Match, error) {
	if !end.After(start) {
		return nil, ErrInvalidSchedule
	}
	if price <= 0 {
		return nil, ErrInvalidPrice
	}

	match := models.Match{
		CreatorID:      creatorID,
		Level:          level,
		StartTime:      start,
		EndTime:        end,
		Location:       location,
		PricePerPerson: price,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&match).Error; err != nil {
			return err
		}
		entry := models.RosterEntry{
			MatchID:  match.ID,
			PlayerID: creatorID,
			Position: 0,
			JoinedAt: time.Now(),
		}
		return tx.Create(&entry).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create match: %w", err)
	}

	if s.sched != nil {
		s.sched.Schedule(match.ID, match.EndTime.Add(evaluationDelay))
	}
	return &match, nil
}

func (s *MatchService) Get(matchID uint) (*models.Match, error) {
	var match models.Match
	err := s.db.Preload("Roster", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).First(&match, matchID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	return &match, nil
}

func (s *MatchService) List() ([]models.Match, error) {
	var matches []models.Match
	err := s.db.Preload("Roster", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).Order("start_time DESC").Find(&matches).Error
	if err != nil {
		return nil, err
	}
	return matches, nil
}

// Roster returns the current members in join order.
func (s *MatchService) Roster(matchID uint) ([]models.RosterEntry, error) {
	var entries []models.RosterEntry
	if err := s.db.Where("match_id = ?", matchID).
		Order("position ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *MatchService) Join(matchID uint, playerID int64) error {
	l := s.lock(matchID)
	l.Lock()
	defer l.Unlock()

	match, err := s.Get(matchID)
	if err != nil {
		return err
	}
	if match.Cancelled {
		return ErrAlreadyCancelled
	}
	for _, e := range match.Roster {
		if e.PlayerID == playerID {
			return ErrAlreadyJoined
		}
	}

	var player models.Player
	if err := s.db.Where("telegram_id = ?", playerID).First(&player).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPlayerNotRegistered
		}
		return err
	}
	if !levels.Compatible(player.Level, match.Level) {
		return ErrLevelIncompatible
	}

	entry := models.RosterEntry{
		MatchID:  matchID,
		PlayerID: playerID,
		Position: len(match.Roster),
		JoinedAt: time.Now(),
	}
	if err := s.db.Create(&entry).Error; err != nil {
		return fmt.Errorf("join match: %w", err)
	}
	return nil
}

func (s *MatchService) Leave(matchID uint, playerID int64) error {
	l := s.lock(matchID)
	l.Lock()
	defer l.Unlock()

	match, err := s.Get(matchID)
	if err != nil {
		return err
	}

	inRoster := false
	for _, e := range match.Roster {
		if e.PlayerID == playerID {
			inRoster = true
			break
		}
	}
	if !inRoster {
		return ErrNotInRoster
	}
	if playerID == match.CreatorID {
		return ErrCreatorCannotLeave
	}

	if err := s.db.Where("match_id = ? AND player_id = ?", matchID, playerID).
		Delete(&models.RosterEntry{}).Error; err != nil {
		return fmt.Errorf("leave match: %w", err)
	}
	return nil
}

// Cancel marks the match terminal and revokes its evaluation trigger.
func (s *MatchService) Cancel(matchID uint, requesterID int64) error {
	l := s.lock(matchID)
	l.Lock()
	defer l.Unlock()

	match, err := s.Get(matchID)
	if err != nil {
		return err
	}
	if requesterID != match.CreatorID {
		return ErrNotAuthorized
	}
	if match.Cancelled {
		return ErrAlreadyCancelled
	}

	if err := s.db.Model(&models.Match{}).
		Where("id = ?", matchID).
		Update("cancelled", true).Error; err != nil {
		return fmt.Errorf("cancel match: %w", err)
	}

	if s.sched != nil {
		s.sched.Cancel(matchID)
	}
	return nil
}

func (s *MatchService) ConfirmReservation(matchID uint, requesterID int64) error {
	l := s.lock(matchID)
	l.Lock()
	defer l.Unlock()

	match, err := s.Get(matchID)
	if err != nil {
		return err
	}
	if requesterID != match.CreatorID {
		return ErrNotAuthorized
	}
	if match.Cancelled {
		return ErrAlreadyCancelled
	}

	if err := s.db.Model(&models.Match{}).
		Where("id = ?", matchID).
		Update("reservation_confirmed", true).Error; err != nil {
		return fmt.Errorf("confirm reservation: %w", err)
	}
	return nil
}

// ListCompatibleToday returns the non-cancelled matches starting on the given
// day whose level is compatible with the player's, ordered by start time.
func (s *MatchService) ListCompatibleToday(playerID int64, day time.Time) ([]models.Match, error) {
	var player models.Player
	if err := s.db.Where("telegram_id = ?", playerID).First(&player).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlayerNotRegistered
		}
		return nil, err
	}

	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	var matches []models.Match
	if err := s.db.Where("start_time >= ? AND start_time < ? AND cancelled = ?", dayStart, dayEnd, false).
		Order("start_time ASC").
		Find(&matches).Error; err != nil {
		return nil, err
	}

	compatible := make([]models.Match, 0, len(matches))
	for _, m := range matches {
		if levels.Compatible(player.Level, m.Level) {
			compatible = append(compatible, m)
		}
	}
	return compatible, nil
}

// RearmEvaluations re-schedules evaluation triggers for matches whose trigger
// time is still in the future. Called once on startup: in-memory timers do not
// survive a restart.
func (s *MatchService) RearmEvaluations(now time.Time) error {
	if s.sched == nil {
		return nil
	}
	var matches []models.Match
	if err := s.db.Where("cancelled = ? AND end_time > ?", false, now.Add(-evaluationDelay)).
		Find(&matches).Error; err != nil {
		return err
	}
	for _, m := range matches {
		s.sched.Schedule(m.ID, m.EndTime.Add(evaluationDelay))
	}
	return nil
}
