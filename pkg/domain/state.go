package domain

// Stage defines which screen class the session is currently showing.
type Stage string

const (
	// StageQuestions shows a question card.
	StageQuestions Stage = "questions"
	// StageInterstitial shows a fixed informational card between questions.
	StageInterstitial Stage = "interstitial"
	// StageCompleting is terminal for navigation; the completion trigger
	// fires once when this stage is reached with a non-empty ledger.
	StageCompleting Stage = "completing"
)

// Kind tags an interstitial screen. The canonical funnel uses "A", "B"
// and "C", but the binding table accepts arbitrary tags.
type Kind string

// State represents the current snapshot of a funnel session.
type State struct {
	// SessionID identifies the session across stores and streams.
	SessionID string `json:"session_id"`

	// Stage indicates which screen class is active.
	Stage Stage `json:"stage"`

	// CurrentQuestionID is valid only while Stage == StageQuestions.
	CurrentQuestionID string `json:"current_question_id,omitempty"`

	// History is the back-navigable trail of visited question IDs.
	// Append-only except for the pop performed by backward navigation.
	// Interstitials never push an entry.
	History []string `json:"history"`

	// ActiveInterstitial is valid only while Stage == StageInterstitial.
	ActiveInterstitial Kind `json:"active_interstitial,omitempty"`

	// TransitionInFlight is true during a timed visual transition.
	// New navigation intents are dropped (not queued) while set;
	// answer recording is still permitted.
	TransitionInFlight bool `json:"transition_in_flight"`

	// CompletionFired is a one-way latch: once true it never resets,
	// guaranteeing the completion side effects run at most once.
	CompletionFired bool `json:"completion_fired"`

	// Answers is the session's answer ledger.
	Answers Ledger `json:"answers"`
}

// NewState creates a fresh session positioned at the first question.
// An empty firstQuestionID (empty catalog) starts the session directly
// in StageCompleting; the completion trigger still requires a non-empty
// ledger, so no notification fires for an empty catalog.
func NewState(sessionID, firstQuestionID string) *State {
	if firstQuestionID == "" {
		return &State{
			SessionID: sessionID,
			Stage:     StageCompleting,
			History:   []string{},
		}
	}
	return &State{
		SessionID:         sessionID,
		Stage:             StageQuestions,
		CurrentQuestionID: firstQuestionID,
		History:           []string{firstQuestionID},
	}
}

// Clone returns a deep copy safe for independent mutation.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	next := *s
	next.History = make([]string, len(s.History))
	copy(next.History, s.History)
	next.Answers = s.Answers.Clone()
	return &next
}

// CanGoBack reports whether backward navigation is available.
// The first question can never be navigated away from backwards.
func (s *State) CanGoBack() bool {
	return len(s.History) > 1
}
