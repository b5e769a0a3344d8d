package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/funnelworks/funnel/pkg/domain"
)

// ErrNoSubscribers is returned by BroadcastRedirect when no embedding
// context is listening on the session's stream. The engine treats it as
// the signal to fall back to direct navigation.
var ErrNoSubscribers = errors.New("no stream subscribers for session")

// redirectSignal is the structured message broadcast on completion.
type redirectSignal struct {
	Action string `json:"action"`
	URL    string `json:"url"`
}

// viewEvent wraps view updates on the stream so clients can tell them
// apart from redirect signals.
type viewEvent struct {
	Action string      `json:"action"`
	View   domain.View `json:"view"`
}

// StreamManager handles active SSE connections, fanning session events
// out to every subscriber. It implements ports.RedirectBroker.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{} // SessionID -> set of channels
	logger      *slog.Logger
}

// NewStreamManager creates an empty manager.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a listener for a session. The returned cancel
// function must be called to release the channel.
func (sm *StreamManager) Subscribe(sessionID string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[sessionID]; !ok {
		sm.subscribers[sessionID] = make(map[chan<- string]struct{})
	}
	sm.subscribers[sessionID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[sessionID]; ok {
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, sessionID)
			}
		}
	}
}

// Broadcast sends a raw message to every subscriber of a session.
// Returns the number of subscribers reached.
func (sm *StreamManager) Broadcast(sessionID string, msg string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	subs, ok := sm.subscribers[sessionID]
	if !ok {
		return 0
	}
	for ch := range subs {
		select {
		case ch <- msg:
		default:
			// Drop message if channel is full (slow client).
			sm.logger.Warn("SSE: client buffer full, dropping message", "session_id", sessionID)
		}
	}
	return len(subs)
}

// BroadcastView pushes a fresh view to the session's subscribers.
func (sm *StreamManager) BroadcastView(v domain.View) {
	data, err := json.Marshal(viewEvent{Action: "view", View: v})
	if err != nil {
		return
	}
	sm.Broadcast(v.SessionID, string(data))
}

// BroadcastRedirect sends the completion redirect signal. Implements
// ports.RedirectBroker: an error means no embedding context received
// the signal and the caller should navigate directly.
func (sm *StreamManager) BroadcastRedirect(ctx context.Context, sessionID, url string) error {
	data, err := json.Marshal(redirectSignal{Action: "redirect", URL: url})
	if err != nil {
		return err
	}
	if sm.Broadcast(sessionID, string(data)) == 0 {
		return ErrNoSubscribers
	}
	return nil
}
