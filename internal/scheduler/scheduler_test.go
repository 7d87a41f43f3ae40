package scheduler

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestScheduleFires(t *testing.T) {
	s := New()
	defer s.Stop()

	fired := make(chan uint, 1)
	s.SetHandler(func(matchID uint) { fired <- matchID })

	s.Schedule(7, time.Now().Add(20*time.Millisecond))

	select {
	case id := <-fired:
		assert.Equal(t, uint(7), id)
	case <-time.After(2 * time.Second):
		t.Fatal("trigger did not fire")
	}
	assert.False(t, s.Pending(7))
}

func TestCancelRevokesTrigger(t *testing.T) {
	s := New()
	defer s.Stop()

	var mu sync.Mutex
	firedCount := 0
	s.SetHandler(func(uint) {
		mu.Lock()
		firedCount++
		mu.Unlock()
	})

	s.Schedule(3, time.Now().Add(50*time.Millisecond))
	assert.True(t, s.Pending(3))
	s.Cancel(3)
	assert.False(t, s.Pending(3))

	time.Sleep(150 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, 0, firedCount)
	mu.Unlock()
}

func TestRescheduleReplacesTrigger(t *testing.T) {
	s := New()
	defer s.Stop()

	fired := make(chan uint, 2)
	s.SetHandler(func(matchID uint) { fired <- matchID })

	s.Schedule(5, time.Now().Add(time.Hour))
	s.Schedule(5, time.Now().Add(20*time.Millisecond))

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("replacement trigger did not fire")
	}

	// The first trigger was replaced, nothing else should arrive.
	select {
	case <-fired:
		t.Fatal("replaced trigger fired")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestCancelUnknownMatchIsNoop(t *testing.T) {
	s := New()
	defer s.Stop()
	s.Cancel(42)
}
