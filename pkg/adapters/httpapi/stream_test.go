package httpapi

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funnelworks/funnel/internal/logging"
	"github.com/funnelworks/funnel/pkg/domain"
)

func TestStreamManager_SubscribeAndBroadcast(t *testing.T) {
	sm := NewStreamManager(logging.NewNop())

	ch, cancel := sm.Subscribe("s1")
	defer cancel()

	n := sm.Broadcast("s1", "hello")
	assert.Equal(t, 1, n)
	assert.Equal(t, "hello", <-ch)

	assert.Equal(t, 0, sm.Broadcast("other", "nope"), "sessions are isolated")
}

func TestStreamManager_CancelUnsubscribes(t *testing.T) {
	sm := NewStreamManager(logging.NewNop())

	_, cancel := sm.Subscribe("s1")
	cancel()

	assert.Equal(t, 0, sm.Broadcast("s1", "gone"))
}

func TestStreamManager_BroadcastRedirect(t *testing.T) {
	sm := NewStreamManager(logging.NewNop())

	err := sm.BroadcastRedirect(context.Background(), "s1", "https://example.test/done")
	assert.ErrorIs(t, err, ErrNoSubscribers)

	ch, cancel := sm.Subscribe("s1")
	defer cancel()

	require.NoError(t, sm.BroadcastRedirect(context.Background(), "s1", "https://example.test/done"))

	var signal redirectSignal
	require.NoError(t, json.Unmarshal([]byte(<-ch), &signal))
	assert.Equal(t, "redirect", signal.Action)
	assert.Equal(t, "https://example.test/done", signal.URL)
}

func TestStreamManager_BroadcastView(t *testing.T) {
	sm := NewStreamManager(logging.NewNop())

	ch, cancel := sm.Subscribe("s1")
	defer cancel()

	sm.BroadcastView(domain.View{SessionID: "s1", Stage: domain.StageQuestions, Progress: 17})

	var ev viewEvent
	require.NoError(t, json.Unmarshal([]byte(<-ch), &ev))
	assert.Equal(t, "view", ev.Action)
	assert.Equal(t, "s1", ev.View.SessionID)
	assert.Equal(t, 17, ev.View.Progress)
}

func TestStreamManager_SlowClientDoesNotBlock(t *testing.T) {
	sm := NewStreamManager(logging.NewNop())

	_, cancel := sm.Subscribe("s1")
	defer cancel()

	// Channel buffer is 10; overflow must drop, not deadlock.
	for i := 0; i < 25; i++ {
		sm.Broadcast("s1", "msg")
	}
}
