package services

import (
	"sync"
	"testing"
	"time"

	"github.com/xivitoo/XiPadelGranada/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeScheduler struct {
	mu        sync.Mutex
	scheduled map[uint]time.Time
	cancelled []uint
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{scheduled: make(map[uint]time.Time)}
}

func (f *fakeScheduler) Schedule(matchID uint, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scheduled[matchID] = at
}

func (f *fakeScheduler) Cancel(matchID uint) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, matchID)
}

func matchFixture(t *testing.T) (*MatchService, *PlayerService, *fakeScheduler, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	sched := newFakeScheduler()
	return NewMatchService(db, sched), NewPlayerService(db), sched, db
}

func mustRegister(t *testing.T, players *PlayerService, id int64, name string, level int) {
	t.Helper()
	_, _, err := players.Register(id, name, level, models.PreferenceImpartial)
	require.NoError(t, err)
}

func TestCreateRejectsInvalidSchedule(t *testing.T) {
	matches, _, _, _ := matchFixture(t)

	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	_, err := matches.Create(1, 5, start, start.Add(-time.Hour), "Court 1", 10)
	assert.ErrorIs(t, err, ErrInvalidSchedule)

	_, err = matches.Create(1, 5, start, start, "Court 1", 10)
	assert.ErrorIs(t, err, ErrInvalidSchedule)
}

func TestCreateRejectsInvalidPrice(t *testing.T) {
	matches, _, _, _ := matchFixture(t)

	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	_, err := matches.Create(1, 5, start, end, "Court 1", 0)
	assert.ErrorIs(t, err, ErrInvalidPrice)

	_, err = matches.Create(1, 5, start, end, "Court 1", -4)
	assert.ErrorIs(t, err, ErrInvalidPrice)
}

func TestCreateSeedsRosterAndArmsTrigger(t *testing.T) {
	matches, players, sched, _ := matchFixture(t)
	mustRegister(t, players, 1, "P1", 5)

	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	match, err := matches.Create(1, 5, start, end, "Court 1", 10)
	require.NoError(t, err)

	got, err := matches.Get(match.ID)
	require.NoError(t, err)
	require.Len(t, got.Roster, 1)
	assert.Equal(t, int64(1), got.Roster[0].PlayerID)

	at, ok := sched.scheduled[match.ID]
	require.True(t, ok)
	assert.Equal(t, end.Add(time.Hour), at)
}

func TestJoinLevelScenario(t *testing.T) {
	matches, players, _, _ := matchFixture(t)
	mustRegister(t, players, 1, "P1", 5)
	mustRegister(t, players, 2, "P2", 5)
	mustRegister(t, players, 3, "P3", 3)

	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	match, err := matches.Create(1, 5, start, start.Add(time.Hour), "Court 1", 10)
	require.NoError(t, err)

	require.NoError(t, matches.Join(match.ID, 2))

	got, err := matches.Get(match.ID)
	require.NoError(t, err)
	require.Len(t, got.Roster, 2)
	assert.Equal(t, int64(1), got.Roster[0].PlayerID)
	assert.Equal(t, int64(2), got.Roster[1].PlayerID)

	assert.ErrorIs(t, matches.Join(match.ID, 3), ErrLevelIncompatible)
}

func TestJoinFailures(t *testing.T) {
	matches, players, _, _ := matchFixture(t)
	mustRegister(t, players, 1, "P1", 5)
	mustRegister(t, players, 2, "P2", 5)

	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	match, err := matches.Create(1, 5, start, start.Add(time.Hour), "Court 1", 10)
	require.NoError(t, err)

	assert.ErrorIs(t, matches.Join(999, 2), ErrMatchNotFound)
	assert.ErrorIs(t, matches.Join(match.ID, 42), ErrPlayerNotRegistered)
	assert.ErrorIs(t, matches.Join(match.ID, 1), ErrAlreadyJoined)

	require.NoError(t, matches.Join(match.ID, 2))
	assert.ErrorIs(t, matches.Join(match.ID, 2), ErrAlreadyJoined)
}

func TestJoinAfterCancelFails(t *testing.T) {
	matches, players, _, _ := matchFixture(t)
	mustRegister(t, players, 1, "P1", 5)
	mustRegister(t, players, 4, "P4", 5)

	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	match, err := matches.Create(1, 5, start, start.Add(time.Hour), "Court 1", 10)
	require.NoError(t, err)

	require.NoError(t, matches.Cancel(match.ID, 1))
	assert.ErrorIs(t, matches.Join(match.ID, 4), ErrAlreadyCancelled)
}

func TestJoinThenLeaveRestoresRoster(t *testing.T) {
	matches, players, _, _ := matchFixture(t)
	mustRegister(t, players, 1, "P1", 5)
	mustRegister(t, players, 2, "P2", 5)

	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	match, err := matches.Create(1, 5, start, start.Add(time.Hour), "Court 1", 10)
	require.NoError(t, err)

	require.NoError(t, matches.Join(match.ID, 2))
	require.NoError(t, matches.Leave(match.ID, 2))

	got, err := matches.Get(match.ID)
	require.NoError(t, err)
	require.Len(t, got.Roster, 1)
	assert.Equal(t, int64(1), got.Roster[0].PlayerID)
}

func TestLeaveFailures(t *testing.T) {
	matches, players, _, _ := matchFixture(t)
	mustRegister(t, players, 1, "P1", 5)
	mustRegister(t, players, 2, "P2", 5)

	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	match, err := matches.Create(1, 5, start, start.Add(time.Hour), "Court 1", 10)
	require.NoError(t, err)

	assert.ErrorIs(t, matches.Leave(match.ID, 2), ErrNotInRoster)
	assert.ErrorIs(t, matches.Leave(match.ID, 1), ErrCreatorCannotLeave)
}

func TestCancelAuthorizationAndIdempotence(t *testing.T) {
	matches, players, sched, _ := matchFixture(t)
	mustRegister(t, players, 1, "P1", 5)

	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	match, err := matches.Create(1, 5, start, start.Add(time.Hour), "Court 1", 10)
	require.NoError(t, err)

	assert.ErrorIs(t, matches.Cancel(match.ID, 2), ErrNotAuthorized)

	require.NoError(t, matches.Cancel(match.ID, 1))
	assert.Contains(t, sched.cancelled, match.ID)

	// Second cancel reports the terminal state, nothing changes.
	assert.ErrorIs(t, matches.Cancel(match.ID, 1), ErrAlreadyCancelled)

	got, err := matches.Get(match.ID)
	require.NoError(t, err)
	assert.True(t, got.Cancelled)
}

func TestConfirmReservation(t *testing.T) {
	matches, players, _, _ := matchFixture(t)
	mustRegister(t, players, 1, "P1", 5)

	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	match, err := matches.Create(1, 5, start, start.Add(time.Hour), "Court 1", 10)
	require.NoError(t, err)

	assert.ErrorIs(t, matches.ConfirmReservation(match.ID, 2), ErrNotAuthorized)

	require.NoError(t, matches.ConfirmReservation(match.ID, 1))
	got, err := matches.Get(match.ID)
	require.NoError(t, err)
	assert.True(t, got.ReservationConfirmed)
}

func TestCancellationBlocksConfirmation(t *testing.T) {
	matches, players, _, _ := matchFixture(t)
	mustRegister(t, players, 1, "P1", 5)

	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	match, err := matches.Create(1, 5, start, start.Add(time.Hour), "Court 1", 10)
	require.NoError(t, err)

	require.NoError(t, matches.Cancel(match.ID, 1))
	assert.ErrorIs(t, matches.ConfirmReservation(match.ID, 1), ErrAlreadyCancelled)
}

func TestListCompatibleToday(t *testing.T) {
	matches, players, _, _ := matchFixture(t)
	mustRegister(t, players, 1, "P1", 5)

	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	later, err := matches.Create(1, 5, day.Add(18*time.Hour), day.Add(19*time.Hour), "Court 2", 8)
	require.NoError(t, err)
	morning, err := matches.Create(1, 6, day.Add(10*time.Hour), day.Add(11*time.Hour), "Court 1", 10)
	require.NoError(t, err)

	// Incompatible level, other day and cancelled matches are filtered out.
	_, err = matches.Create(1, 3, day.Add(12*time.Hour), day.Add(13*time.Hour), "Court 3", 10)
	require.NoError(t, err)
	_, err = matches.Create(1, 5, day.AddDate(0, 0, 1).Add(10*time.Hour), day.AddDate(0, 0, 1).Add(11*time.Hour), "Court 4", 10)
	require.NoError(t, err)
	cancelled, err := matches.Create(1, 5, day.Add(20*time.Hour), day.Add(21*time.Hour), "Court 5", 10)
	require.NoError(t, err)
	require.NoError(t, matches.Cancel(cancelled.ID, 1))

	got, err := matches.ListCompatibleToday(1, day)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, morning.ID, got[0].ID)
	assert.Equal(t, later.ID, got[1].ID)
}

func TestListCompatibleTodayRequiresRegistration(t *testing.T) {
	matches, _, _, _ := matchFixture(t)

	_, err := matches.ListCompatibleToday(77, time.Now())
	assert.ErrorIs(t, err, ErrPlayerNotRegistered)
}

func TestConcurrentJoinsAreSerialized(t *testing.T) {
	matches, players, _, _ := matchFixture(t)
	mustRegister(t, players, 1, "P1", 5)
	mustRegister(t, players, 2, "P2", 5)

	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	match, err := matches.Create(1, 5, start, start.Add(time.Hour), "Court 1", 10)
	require.NoError(t, err)

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = matches.Join(match.ID, 2)
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
		} else {
			assert.ErrorIs(t, err, ErrAlreadyJoined)
		}
	}
	assert.Equal(t, 1, successes)

	got, err := matches.Get(match.ID)
	require.NoError(t, err)
	assert.Len(t, got.Roster, 2)
}

func TestRearmEvaluations(t *testing.T) {
	matches, players, sched, _ := matchFixture(t)
	mustRegister(t, players, 1, "P1", 5)

	now := time.Now()
	upcoming, err := matches.Create(1, 5, now.Add(time.Hour), now.Add(2*time.Hour), "Court 1", 10)
	require.NoError(t, err)
	stale, err := matches.Create(1, 5, now.Add(-5*time.Hour), now.Add(-4*time.Hour), "Court 2", 10)
	require.NoError(t, err)

	sched.mu.Lock()
	sched.scheduled = make(map[uint]time.Time)
	sched.mu.Unlock()

	require.NoError(t, matches.RearmEvaluations(now))

	sched.mu.Lock()
	defer sched.mu.Unlock()
	_, ok := sched.scheduled[upcoming.ID]
	assert.True(t, ok)
	_, ok = sched.scheduled[stale.ID]
	assert.False(t, ok, "trigger time already past")
}
