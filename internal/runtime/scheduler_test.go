package runtime

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTimerScheduler_RunsCallback(t *testing.T) {
	s := NewTimerScheduler()
	defer s.Stop()

	done := make(chan struct{})
	s.Schedule(time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("callback never ran")
	}
}

func TestTimerScheduler_StopDiscardsPending(t *testing.T) {
	s := NewTimerScheduler()

	var fired atomic.Int32
	s.Schedule(20*time.Millisecond, func() { fired.Add(1) })
	s.Stop()

	// After stop, new callbacks are rejected too.
	s.Schedule(time.Millisecond, func() { fired.Add(1) })

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
}

func TestSyncScheduler_RunsInline(t *testing.T) {
	s := NewSyncScheduler()

	ran := false
	s.Schedule(time.Hour, func() { ran = true })
	assert.True(t, ran, "delay is ignored, callback runs immediately")

	s.Stop()
	s.Schedule(0, func() { t.Fatal("callback after stop") })
}

func TestDefaultDelays(t *testing.T) {
	d := DefaultDelays()
	assert.Equal(t, 50*time.Millisecond, d.QuestionFade)
	assert.Equal(t, 300*time.Millisecond, d.InterstitialEnter)
	assert.Equal(t, 500*time.Millisecond, d.InterstitialExit)
}
