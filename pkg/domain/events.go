package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventQuestionEnter     EventType = "question_enter"
	EventInterstitialEnter EventType = "interstitial_enter"
	EventIntentDropped     EventType = "intent_dropped"
	EventCompleted         EventType = "completed"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
}

// QuestionEvent signals the session settling on a question screen.
type QuestionEvent struct {
	EventBase
	QuestionID string `json:"question_id"`
	Progress   int    `json:"progress"`
}

// InterstitialEvent signals the session settling on an interstitial screen.
type InterstitialEvent struct {
	EventBase
	Kind Kind `json:"kind"`
}

// IntentEvent signals a navigation intent that was rejected, typically
// because a transition was already in flight.
type IntentEvent struct {
	EventBase
	Intent string `json:"intent"`
}

// CompletionEvent signals the one-shot completion trigger firing.
type CompletionEvent struct {
	EventBase
	Summary map[string]string `json:"summary"`
}

// LifecycleHooks defines callbacks for engine observability. All hooks
// are optional and invoked synchronously on the intent path.
type LifecycleHooks struct {
	OnQuestionEnter     func(context.Context, *QuestionEvent)
	OnInterstitialEnter func(context.Context, *InterstitialEvent)
	OnIntentDropped     func(context.Context, *IntentEvent)
	OnCompleted         func(context.Context, *CompletionEvent)
}
