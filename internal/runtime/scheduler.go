package runtime

import (
	"sync"
	"time"
)

// Delays holds the presentation timings for the three transition classes.
// They are not correctness-bearing, but the in-flight window they open is
// observable: navigation intents arriving inside it are dropped.
type Delays struct {
	// QuestionFade is the fade between two question cards.
	QuestionFade time.Duration
	// InterstitialEnter covers the heavier interstitial card entrance.
	InterstitialEnter time.Duration
	// InterstitialExit covers leaving an interstitial in either direction.
	InterstitialExit time.Duration
}

// DefaultDelays returns the stock funnel timings.
func DefaultDelays() Delays {
	return Delays{
		QuestionFade:      50 * time.Millisecond,
		InterstitialEnter: 300 * time.Millisecond,
		InterstitialExit:  500 * time.Millisecond,
	}
}

// Scheduler runs transition settlement callbacks after a delay.
// Implementations must guarantee that callbacks scheduled before Stop
// never fire after it, so a torn-down machine is never mutated.
type Scheduler interface {
	Schedule(d time.Duration, fn func())
	Stop()
}

// TimerScheduler schedules callbacks on real timers via time.AfterFunc.
type TimerScheduler struct {
	mu      sync.Mutex
	stopped bool
	timers  map[*time.Timer]struct{}
}

// NewTimerScheduler creates a timer-backed scheduler.
func NewTimerScheduler() *TimerScheduler {
	return &TimerScheduler{timers: make(map[*time.Timer]struct{})}
}

// Schedule runs fn after d. Callbacks are discarded if Stop was called,
// even when the underlying timer already expired.
func (s *TimerScheduler) Schedule(d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}

	var timer *time.Timer
	timer = time.AfterFunc(d, func() {
		s.mu.Lock()
		if s.stopped {
			s.mu.Unlock()
			return
		}
		delete(s.timers, timer)
		s.mu.Unlock()

		fn()
	})
	s.timers[timer] = struct{}{}
}

// Stop cancels all pending callbacks and rejects new ones.
func (s *TimerScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for t := range s.timers {
		t.Stop()
	}
	s.timers = nil
}

// SyncScheduler runs callbacks inline, ignoring delays. It keeps the
// transition logic fully synchronous for tests and terminal hosts where
// the visual fade has no meaning.
type SyncScheduler struct {
	mu      sync.Mutex
	stopped bool
}

// NewSyncScheduler creates an inline scheduler.
func NewSyncScheduler() *SyncScheduler {
	return &SyncScheduler{}
}

// Schedule invokes fn immediately.
func (s *SyncScheduler) Schedule(_ time.Duration, fn func()) {
	s.mu.Lock()
	stopped := s.stopped
	s.mu.Unlock()
	if stopped {
		return
	}
	fn()
}

// Stop rejects further callbacks.
func (s *SyncScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
}
