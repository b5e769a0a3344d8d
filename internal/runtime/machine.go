package runtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/funnelworks/funnel/internal/logging"
	"github.com/funnelworks/funnel/pkg/domain"
)

// Machine is the navigation state machine for a single funnel session.
// It owns the session's State and mutates it exclusively through intent
// methods. Invalid intents (wrong stage, no history, transition already
// in flight) are silent no-ops: the worst-case outcome of any operation
// is a skipped side effect, never a corrupted state.
type Machine struct {
	mu     sync.Mutex
	funnel *domain.Funnel
	state  *domain.State

	sched      Scheduler
	delays     Delays
	hooks      domain.LifecycleHooks
	logger     *slog.Logger
	completion *Trigger

	// onSettle is invoked with a state snapshot after every settled
	// mutation, outside the machine lock.
	onSettle func(*domain.State)
}

// MachineOption configures a Machine.
type MachineOption func(*Machine)

// WithScheduler replaces the default timer scheduler.
func WithScheduler(s Scheduler) MachineOption {
	return func(m *Machine) { m.sched = s }
}

// WithDelays overrides the transition timings.
func WithDelays(d Delays) MachineOption {
	return func(m *Machine) { m.delays = d }
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(h domain.LifecycleHooks) MachineOption {
	return func(m *Machine) { m.hooks = h }
}

// WithLogger sets a structured logger.
func WithLogger(l *slog.Logger) MachineOption {
	return func(m *Machine) { m.logger = l }
}

// WithTrigger attaches the completion trigger.
func WithTrigger(t *Trigger) MachineOption {
	return func(m *Machine) { m.completion = t }
}

// WithSettleFunc registers the settled-state listener.
func WithSettleFunc(fn func(*domain.State)) MachineOption {
	return func(m *Machine) { m.onSettle = fn }
}

// NewMachine creates a machine around an existing session state.
func NewMachine(f *domain.Funnel, state *domain.State, opts ...MachineOption) *Machine {
	m := &Machine{
		funnel: f,
		state:  state,
		delays: DefaultDelays(),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.sched == nil {
		m.sched = NewTimerScheduler()
	}
	return m
}

// Snapshot returns a deep copy of the current state.
func (m *Machine) Snapshot() *domain.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Clone()
}

// Stop tears the machine down, discarding any pending transition effect.
func (m *Machine) Stop() {
	m.sched.Stop()
}

// RecordAnswer stores an answer in the ledger. It is permitted at any
// time, including while a transition is in flight, and never navigates.
func (m *Machine) RecordAnswer(ctx context.Context, a domain.Answer) {
	m.mu.Lock()
	if _, ok := m.funnel.Catalog.Question(a.QuestionID); !ok {
		m.logger.Debug("answer for unknown question ignored", "question_id", a.QuestionID)
		m.mu.Unlock()
		return
	}
	m.state.Answers.Record(a)

	// The completion condition is re-evaluated after every ledger
	// mutation; the latch makes a duplicate dispatch impossible.
	fired := m.latchCompletionLocked()
	snap := m.state.Clone()
	m.mu.Unlock()

	m.dispatchCompletion(ctx, snap, fired)
	m.emitCompletion(ctx, snap, fired)
	if m.onSettle != nil {
		m.onSettle(snap)
	}
}

// Advance moves the session forward: to the next question, into a bound
// interstitial, or into the terminal completing stage when the catalog
// is exhausted.
func (m *Machine) Advance(ctx context.Context) {
	m.mu.Lock()
	st := m.state

	if st.TransitionInFlight {
		m.dropIntentLocked(ctx, "advance")
		m.mu.Unlock()
		return
	}
	if st.Stage != domain.StageQuestions || st.CurrentQuestionID == "" {
		m.mu.Unlock()
		return
	}

	nextID := m.funnel.Catalog.Next(st.CurrentQuestionID, &st.Answers)
	if nextID == "" {
		// Sequence exhausted: terminal for navigation. No visual
		// transition is involved, so this settles synchronously.
		st.Stage = domain.StageCompleting
		st.CurrentQuestionID = ""
		fired := m.latchCompletionLocked()
		snap := st.Clone()
		m.mu.Unlock()

		m.dispatchCompletion(ctx, snap, fired)
		m.emit(ctx, snap, fired)
		return
	}

	if kind, bound := m.funnel.Bindings.Lookup(st.CurrentQuestionID, nextID); bound {
		// Current question and history update only on the forward
		// exit from the interstitial, not on entry.
		m.beginTransitionLocked(ctx, m.delays.InterstitialEnter, func(st *domain.State) {
			st.Stage = domain.StageInterstitial
			st.ActiveInterstitial = kind
		})
		return
	}

	m.beginTransitionLocked(ctx, m.delays.QuestionFade, func(st *domain.State) {
		st.CurrentQuestionID = nextID
		st.History = append(st.History, nextID)
	})
}

// Retreat moves the session backward. From an interstitial it returns
// to the question the user was on before entering it (history is left
// untouched; the interstitial never pushed an entry). From a question
// it pops history; retreating past the first question is a no-op.
func (m *Machine) Retreat(ctx context.Context) {
	m.mu.Lock()
	st := m.state

	if st.TransitionInFlight {
		m.dropIntentLocked(ctx, "retreat")
		m.mu.Unlock()
		return
	}

	switch st.Stage {
	case domain.StageInterstitial:
		b, ok := m.funnel.Bindings.ByKind(st.ActiveInterstitial)
		if !ok {
			m.mu.Unlock()
			return
		}
		m.beginTransitionLocked(ctx, m.delays.InterstitialExit, func(st *domain.State) {
			st.Stage = domain.StageQuestions
			st.CurrentQuestionID = b.From
			st.ActiveInterstitial = ""
		})
	case domain.StageQuestions:
		if !st.CanGoBack() {
			m.mu.Unlock()
			return
		}
		m.beginTransitionLocked(ctx, m.delays.QuestionFade, func(st *domain.State) {
			st.History = st.History[:len(st.History)-1]
			st.CurrentQuestionID = st.History[len(st.History)-1]
		})
	default:
		m.mu.Unlock()
	}
}

// ExitInterstitialForward leaves the active interstitial towards its
// bound destination question, appending exactly one history entry.
func (m *Machine) ExitInterstitialForward(ctx context.Context) {
	m.mu.Lock()
	st := m.state

	if st.TransitionInFlight {
		m.dropIntentLocked(ctx, "continue")
		m.mu.Unlock()
		return
	}
	if st.Stage != domain.StageInterstitial {
		m.mu.Unlock()
		return
	}
	b, ok := m.funnel.Bindings.ByKind(st.ActiveInterstitial)
	if !ok {
		m.mu.Unlock()
		return
	}

	m.beginTransitionLocked(ctx, m.delays.InterstitialExit, func(st *domain.State) {
		st.Stage = domain.StageQuestions
		st.CurrentQuestionID = b.To
		st.History = append(st.History, b.To)
		st.ActiveInterstitial = ""
	})
}

// beginTransitionLocked opens the in-flight window and schedules the
// mutation. The caller must hold m.mu; it is released here so that an
// inline scheduler can settle without deadlocking.
func (m *Machine) beginTransitionLocked(ctx context.Context, delay time.Duration, apply func(*domain.State)) {
	m.state.TransitionInFlight = true
	m.mu.Unlock()

	m.sched.Schedule(delay, func() {
		m.settle(ctx, apply)
	})
}

// settle applies a scheduled mutation and closes the in-flight window.
func (m *Machine) settle(ctx context.Context, apply func(*domain.State)) {
	m.mu.Lock()
	if !m.state.TransitionInFlight {
		// Torn down or already settled; discard.
		m.mu.Unlock()
		return
	}
	apply(m.state)
	m.state.TransitionInFlight = false
	fired := m.latchCompletionLocked()
	snap := m.state.Clone()
	m.mu.Unlock()

	m.dispatchCompletion(ctx, snap, fired)
	m.emit(ctx, snap, fired)
}

// latchCompletionLocked runs the one-shot completion check. The caller
// must hold m.mu so the latch write is race-free.
func (m *Machine) latchCompletionLocked() bool {
	if m.completion == nil {
		return false
	}
	return m.completion.Latch(m.state)
}

// dispatchCompletion runs the completion side effects for a freshly
// latched state. Called outside the machine lock so the webhook POST
// never blocks concurrent answer recording or snapshots.
func (m *Machine) dispatchCompletion(ctx context.Context, snap *domain.State, fired bool) {
	if !fired {
		return
	}
	m.completion.Dispatch(ctx, m.funnel, snap)
}

// dropIntentLocked records a navigation intent rejected by the in-flight gate.
func (m *Machine) dropIntentLocked(ctx context.Context, intent string) {
	m.logger.Debug("navigation intent dropped while transition in flight", "intent", intent)
	if m.hooks.OnIntentDropped != nil {
		m.hooks.OnIntentDropped(ctx, &domain.IntentEvent{
			EventBase: eventBase(domain.EventIntentDropped, m.state.SessionID),
			Intent:    intent,
		})
	}
}

// emit publishes hooks and the settle listener for a state snapshot.
// Called outside the machine lock.
func (m *Machine) emit(ctx context.Context, snap *domain.State, completed bool) {
	switch snap.Stage {
	case domain.StageQuestions:
		if m.hooks.OnQuestionEnter != nil {
			m.hooks.OnQuestionEnter(ctx, &domain.QuestionEvent{
				EventBase:  eventBase(domain.EventQuestionEnter, snap.SessionID),
				QuestionID: snap.CurrentQuestionID,
				Progress:   m.funnel.Catalog.Progress(snap.CurrentQuestionID),
			})
		}
	case domain.StageInterstitial:
		if m.hooks.OnInterstitialEnter != nil {
			m.hooks.OnInterstitialEnter(ctx, &domain.InterstitialEvent{
				EventBase: eventBase(domain.EventInterstitialEnter, snap.SessionID),
				Kind:      snap.ActiveInterstitial,
			})
		}
	}

	m.emitCompletion(ctx, snap, completed)

	if m.onSettle != nil {
		m.onSettle(snap)
	}
}

func (m *Machine) emitCompletion(ctx context.Context, snap *domain.State, completed bool) {
	if completed && m.hooks.OnCompleted != nil {
		m.hooks.OnCompleted(ctx, &domain.CompletionEvent{
			EventBase: eventBase(domain.EventCompleted, snap.SessionID),
			Summary:   m.funnel.Catalog.Summary(&snap.Answers),
		})
	}
}

func eventBase(t domain.EventType, sessionID string) domain.EventBase {
	return domain.EventBase{
		Timestamp: time.Now(),
		Type:      t,
		SessionID: sessionID,
	}
}
