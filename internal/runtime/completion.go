package runtime

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/funnelworks/funnel/internal/logging"
	"github.com/funnelworks/funnel/pkg/ports"

	"github.com/funnelworks/funnel/pkg/domain"
)

// Trigger is the one-shot completion gate. It observes the session state
// and, the first time the questionnaire is exhausted with at least one
// recorded answer, dispatches the notification and the redirect signal.
type Trigger struct {
	notifier ports.Notifier
	broker   ports.RedirectBroker

	// fallback performs direct navigation when no embedding context is
	// listening or the broadcast fails.
	fallback func(url string)

	logger  *slog.Logger
	onFired func()
}

// TriggerOption configures a Trigger.
type TriggerOption func(*Trigger)

// WithNotifier sets the outbound notification transport.
func WithNotifier(n ports.Notifier) TriggerOption {
	return func(t *Trigger) { t.notifier = n }
}

// WithRedirectBroker sets the cross-context redirect transport.
func WithRedirectBroker(b ports.RedirectBroker) TriggerOption {
	return func(t *Trigger) { t.broker = b }
}

// WithRedirectFallback sets the direct-navigation fallback.
func WithRedirectFallback(fn func(url string)) TriggerOption {
	return func(t *Trigger) { t.fallback = fn }
}

// WithTriggerLogger sets a structured logger.
func WithTriggerLogger(l *slog.Logger) TriggerOption {
	return func(t *Trigger) { t.logger = l }
}

// WithFiredCallback registers a callback invoked once per firing,
// typically a metrics counter.
func WithFiredCallback(fn func()) TriggerOption {
	return func(t *Trigger) { t.onFired = fn }
}

// NewTrigger creates a completion trigger.
func NewTrigger(opts ...TriggerOption) *Trigger {
	t := &Trigger{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Latch evaluates the firing condition and closes the one-way latch.
// The caller must hold the session's lock so the latch write is
// race-free; a true return obligates the caller to run Dispatch once,
// after releasing the lock. Splitting latch from dispatch keeps slow
// transports (the webhook POST) off the session's critical section.
func (t *Trigger) Latch(st *domain.State) bool {
	if st.Stage != domain.StageCompleting || st.CurrentQuestionID != "" {
		return false
	}
	if st.Answers.IsEmpty() || st.CompletionFired {
		return false
	}

	st.CompletionFired = true
	return true
}

// Dispatch runs the completion side effects for a latched session state.
// Called without the session lock, with a state snapshot.
//
// Failure of any side effect is logged and swallowed; nothing here is
// fatal or retried, and a notification failure never blocks the redirect.
func (t *Trigger) Dispatch(ctx context.Context, f *domain.Funnel, st *domain.State) {
	summary := f.Catalog.Summary(&st.Answers)
	t.notify(ctx, f, summary)
	t.redirect(ctx, st.SessionID, f.Completion.RedirectURL)

	if t.onFired != nil {
		t.onFired()
	}
}

func (t *Trigger) notify(ctx context.Context, f *domain.Funnel, summary map[string]string) {
	if t.notifier == nil || f.Completion.WebhookURL == "" {
		t.logger.Debug("no notification endpoint configured, skipping")
		return
	}

	payload := make(map[string]string, len(f.Completion.Identity)+1)
	for k, v := range f.Completion.Identity {
		payload[k] = v
	}
	if data, err := json.Marshal(summary); err == nil {
		payload["summary"] = string(data)
	}

	if err := t.notifier.Notify(ctx, payload); err != nil {
		t.logger.Warn("completion notification failed", "err", err)
	}
}

func (t *Trigger) redirect(ctx context.Context, sessionID, url string) {
	if url == "" {
		t.logger.Debug("no redirect url configured, skipping")
		return
	}

	if t.broker != nil {
		err := t.broker.BroadcastRedirect(ctx, sessionID, url)
		if err == nil {
			return
		}
		t.logger.Warn("redirect broadcast failed, falling back to direct navigation", "err", err)
	}

	if t.fallback != nil {
		t.fallback(url)
	}
}
