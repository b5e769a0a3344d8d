package funnel

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/funnelworks/funnel/internal/logging"
	"github.com/funnelworks/funnel/internal/metrics"
	"github.com/funnelworks/funnel/internal/runtime"
	"github.com/funnelworks/funnel/pkg/domain"
	"github.com/funnelworks/funnel/pkg/ports"
	"github.com/funnelworks/funnel/pkg/session"
)

// Engine is the high-level entry point for the funnel library. It wraps
// the per-session navigation machines and provides a simplified API for
// hosts: create a session, feed it intents, observe views.
type Engine struct {
	funnel   *domain.Funnel
	sessions *session.Manager
	metrics  *metrics.Metrics

	logger           *slog.Logger
	hooks            domain.LifecycleHooks
	delays           runtime.Delays
	notifier         ports.Notifier
	broker           ports.RedirectBroker
	redirectFallback func(url string)
	newScheduler     func() runtime.Scheduler
	onChange         func(domain.View)
	locker           ports.DistributedLocker

	mu       sync.Mutex
	machines map[string]*runtime.Machine
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) { e.hooks = hooks }
}

// WithDelays overrides the visual transition timings.
func WithDelays(d runtime.Delays) Option {
	return func(e *Engine) { e.delays = d }
}

// WithNotifier sets the completion notification transport.
func WithNotifier(n ports.Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithRedirectBroker sets the cross-context redirect transport.
func WithRedirectBroker(b ports.RedirectBroker) Option {
	return func(e *Engine) { e.broker = b }
}

// WithRedirectFallback sets the direct-navigation fallback used when no
// embedding context is listening or the broadcast fails.
func WithRedirectFallback(fn func(url string)) Option {
	return func(e *Engine) { e.redirectFallback = fn }
}

// WithSchedulerFactory controls how each session's transition scheduler
// is built. The default is a real timer scheduler.
func WithSchedulerFactory(fn func() runtime.Scheduler) Option {
	return func(e *Engine) { e.newScheduler = fn }
}

// WithSynchronousTransitions makes all transitions settle inline,
// ignoring delays. Used by tests and terminal hosts.
func WithSynchronousTransitions() Option {
	return WithSchedulerFactory(func() runtime.Scheduler {
		return runtime.NewSyncScheduler()
	})
}

// WithChangeListener registers a callback invoked with the fresh view
// after every settled state change (e.g. an SSE broadcaster).
func WithChangeListener(fn func(domain.View)) Option {
	return func(e *Engine) { e.onChange = fn }
}

// WithSessionLocker enables distributed session locking.
func WithSessionLocker(locker ports.DistributedLocker) Option {
	return func(e *Engine) { e.locker = locker }
}

// New initializes an Engine: loads the funnel definition through the
// catalog loader, validates it, and wires session management on the
// given store.
func New(ctx context.Context, loader ports.CatalogLoader, store ports.StateStore, opts ...Option) (*Engine, error) {
	e := &Engine{
		delays:   runtime.DefaultDelays(),
		metrics:  metrics.New(),
		machines: make(map[string]*runtime.Machine),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = logging.NewNop()
	}
	if e.newScheduler == nil {
		e.newScheduler = func() runtime.Scheduler {
			return runtime.NewTimerScheduler()
		}
	}

	f, err := loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load funnel definition: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("invalid funnel definition: %w", err)
	}
	e.funnel = f

	sessionOpts := []session.Option{session.WithLogger(e.logger)}
	if e.locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(e.locker))
	}
	e.sessions = session.NewManager(store, sessionOpts...)

	return e, nil
}

// Funnel returns the loaded definition.
func (e *Engine) Funnel() *domain.Funnel {
	return e.funnel
}

// Metrics returns the engine's prometheus collectors.
func (e *Engine) Metrics() *metrics.Metrics {
	return e.metrics
}

// StartSession loads or creates a session and returns its view.
func (e *Engine) StartSession(ctx context.Context, sessionID string) (domain.View, error) {
	m, created, err := e.machineFor(ctx, sessionID)
	if err != nil {
		return domain.View{}, err
	}
	if created {
		e.metrics.SessionsStarted.Inc()
	}
	return domain.NewView(e.funnel, m.Snapshot()), nil
}

// View returns the current display state for a session.
func (e *Engine) View(ctx context.Context, sessionID string) (domain.View, error) {
	m, _, err := e.machineFor(ctx, sessionID)
	if err != nil {
		return domain.View{}, err
	}
	return domain.NewView(e.funnel, m.Snapshot()), nil
}

// RecordAnswer stores an answer for a question. Permitted at any time,
// including mid-transition; it never navigates.
func (e *Engine) RecordAnswer(ctx context.Context, sessionID, questionID, value string) (domain.View, error) {
	if _, ok := e.funnel.Catalog.Question(questionID); !ok {
		return domain.View{}, fmt.Errorf("%w: %s", domain.ErrQuestionNotFound, questionID)
	}
	m, _, err := e.machineFor(ctx, sessionID)
	if err != nil {
		return domain.View{}, err
	}
	m.RecordAnswer(ctx, domain.Answer{QuestionID: questionID, Value: value})
	return domain.NewView(e.funnel, m.Snapshot()), nil
}

// Advance moves the session forward (next question, interstitial entry,
// or completion).
func (e *Engine) Advance(ctx context.Context, sessionID string) (domain.View, error) {
	m, _, err := e.machineFor(ctx, sessionID)
	if err != nil {
		return domain.View{}, err
	}
	e.metrics.IntentsTotal.WithLabelValues("advance").Inc()
	m.Advance(ctx)
	return domain.NewView(e.funnel, m.Snapshot()), nil
}

// Retreat moves the session backward.
func (e *Engine) Retreat(ctx context.Context, sessionID string) (domain.View, error) {
	m, _, err := e.machineFor(ctx, sessionID)
	if err != nil {
		return domain.View{}, err
	}
	e.metrics.IntentsTotal.WithLabelValues("retreat").Inc()
	m.Retreat(ctx)
	return domain.NewView(e.funnel, m.Snapshot()), nil
}

// ExitInterstitialForward leaves the active interstitial towards its
// bound destination question.
func (e *Engine) ExitInterstitialForward(ctx context.Context, sessionID string) (domain.View, error) {
	m, _, err := e.machineFor(ctx, sessionID)
	if err != nil {
		return domain.View{}, err
	}
	e.metrics.IntentsTotal.WithLabelValues("continue").Inc()
	m.ExitInterstitialForward(ctx)
	return domain.NewView(e.funnel, m.Snapshot()), nil
}

// EndSession tears the session down and removes its persisted state.
func (e *Engine) EndSession(ctx context.Context, sessionID string) error {
	e.mu.Lock()
	if m, ok := e.machines[sessionID]; ok {
		m.Stop()
		delete(e.machines, sessionID)
		e.metrics.ActiveSessions.Dec()
	}
	e.mu.Unlock()

	return e.sessions.Delete(ctx, sessionID)
}

// Close stops all in-memory machines, discarding pending transitions.
// Persisted state is left intact.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for id, m := range e.machines {
		m.Stop()
		delete(e.machines, id)
		e.metrics.ActiveSessions.Dec()
	}
}

// machineFor returns the session's machine, materializing it from the
// store on first access. The second return is true when the session was
// newly created rather than resumed.
func (e *Engine) machineFor(ctx context.Context, sessionID string) (*runtime.Machine, bool, error) {
	e.mu.Lock()
	if m, ok := e.machines[sessionID]; ok {
		e.mu.Unlock()
		return m, false, nil
	}
	e.mu.Unlock()

	// Load outside the map lock: the session manager serializes per ID.
	state, err := e.sessions.Load(ctx, sessionID)
	created := false
	if err != nil {
		state, err = e.sessions.LoadOrStart(ctx, sessionID, e.funnel)
		if err != nil {
			return nil, false, err
		}
		created = true
	}

	trigger := runtime.NewTrigger(
		runtime.WithNotifier(e.countingNotifier()),
		runtime.WithRedirectBroker(e.broker),
		runtime.WithRedirectFallback(e.redirectFallback),
		runtime.WithTriggerLogger(e.logger),
		runtime.WithFiredCallback(e.metrics.CompletionsFired.Inc),
	)

	m := runtime.NewMachine(e.funnel, state,
		runtime.WithScheduler(e.newScheduler()),
		runtime.WithDelays(e.delays),
		runtime.WithLogger(e.logger.With("session_id", sessionID)),
		runtime.WithTrigger(trigger),
		runtime.WithLifecycleHooks(e.instrumentedHooks()),
		runtime.WithSettleFunc(e.persistAndPublish),
	)

	e.mu.Lock()
	defer e.mu.Unlock()
	if existing, ok := e.machines[sessionID]; ok {
		// Lost the race; discard ours.
		m.Stop()
		return existing, false, nil
	}
	e.machines[sessionID] = m
	e.metrics.ActiveSessions.Inc()
	return m, created, nil
}

// persistAndPublish saves every settled state and fans the fresh view
// out to the change listener. Persistence failures are logged, not
// surfaced: the in-memory machine remains authoritative for the session.
func (e *Engine) persistAndPublish(state *domain.State) {
	ctx := context.Background()
	if err := e.sessions.Save(ctx, state.SessionID, state); err != nil {
		e.logger.Warn("failed to persist session state", "session_id", state.SessionID, "err", err)
	}
	if e.onChange != nil {
		e.onChange(domain.NewView(e.funnel, state))
	}
}

// instrumentedHooks layers metrics on top of the host-provided hooks.
func (e *Engine) instrumentedHooks() domain.LifecycleHooks {
	user := e.hooks
	hooks := user
	hooks.OnIntentDropped = func(ctx context.Context, ev *domain.IntentEvent) {
		e.metrics.IntentsDropped.Inc()
		if user.OnIntentDropped != nil {
			user.OnIntentDropped(ctx, ev)
		}
	}
	return hooks
}

// countingNotifier wraps the configured notifier with a failure counter.
func (e *Engine) countingNotifier() ports.Notifier {
	if e.notifier == nil {
		return nil
	}
	return &countingNotifier{inner: e.notifier, failures: e.metrics.NotifyFailures}
}

type countingNotifier struct {
	inner    ports.Notifier
	failures interface{ Inc() }
}

func (n *countingNotifier) Notify(ctx context.Context, payload map[string]string) error {
	err := n.inner.Notify(ctx, payload)
	if err != nil {
		n.failures.Inc()
	}
	return err
}
