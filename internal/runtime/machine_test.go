package runtime

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/funnelworks/funnel/pkg/domain"
)

// manualScheduler holds callbacks until released, keeping the in-flight
// window open for as long as the test needs it.
type manualScheduler struct {
	mu      sync.Mutex
	pending []func()
}

func (s *manualScheduler) Schedule(_ time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, fn)
}

func (s *manualScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
}

func (s *manualScheduler) release() {
	s.mu.Lock()
	fns := s.pending
	s.pending = nil
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

type captureNotifier struct {
	mu       sync.Mutex
	payloads []map[string]string
}

func (n *captureNotifier) Notify(_ context.Context, payload map[string]string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.payloads = append(n.payloads, payload)
	return nil
}

func (n *captureNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.payloads)
}

func yesNo() []domain.Option {
	return []domain.Option{
		{Value: "yes", Label: "Yes"},
		{Value: "no", Label: "No"},
	}
}

// sixQuestionFunnel is the canonical shape: six questions with an
// interstitial bound between the first, third and fifth question pairs.
func sixQuestionFunnel(t *testing.T) *domain.Funnel {
	t.Helper()
	catalog, err := domain.NewCatalog(
		domain.Question{ID: "q1", Prompt: "P1", Options: yesNo()},
		domain.Question{ID: "q2", Prompt: "P2", Options: yesNo()},
		domain.Question{ID: "q3", Prompt: "P3", Options: yesNo()},
		domain.Question{ID: "q4", Prompt: "P4", Options: yesNo()},
		domain.Question{ID: "q5", Prompt: "P5", Options: yesNo()},
		domain.Question{ID: "q6", Prompt: "P6", Options: yesNo()},
	)
	require.NoError(t, err)

	bindings, err := domain.NewBindingTable(
		domain.Binding{From: "q1", To: "q2", Kind: "A"},
		domain.Binding{From: "q3", To: "q4", Kind: "B"},
		domain.Binding{From: "q5", To: "q6", Kind: "C"},
	)
	require.NoError(t, err)

	f := &domain.Funnel{
		Catalog:  catalog,
		Bindings: bindings,
		Completion: domain.CompletionConfig{
			WebhookURL:  "https://hooks.example.test/funnel",
			Identity:    map[string]string{"form_id": "funnel-main"},
			RedirectURL: "https://example.test/done",
		},
	}
	require.NoError(t, f.Validate())
	return f
}

func newSyncMachine(t *testing.T, f *domain.Funnel, opts ...MachineOption) *Machine {
	t.Helper()
	st := domain.NewState("sess-1", f.Catalog.First())
	opts = append([]MachineOption{WithScheduler(NewSyncScheduler())}, opts...)
	m := NewMachine(f, st, opts...)
	t.Cleanup(m.Stop)
	return m
}

func answer(m *Machine, questionID, value string) {
	m.RecordAnswer(context.Background(), domain.Answer{QuestionID: questionID, Value: value})
}

func TestMachine_AdvanceIntoInterstitial(t *testing.T) {
	f := sixQuestionFunnel(t)
	m := newSyncMachine(t, f)
	ctx := context.Background()

	answer(m, "q1", "yes")
	m.Advance(ctx)

	st := m.Snapshot()
	assert.Equal(t, domain.StageInterstitial, st.Stage)
	assert.Equal(t, domain.Kind("A"), st.ActiveInterstitial)
	assert.Equal(t, "q1", st.CurrentQuestionID, "current question changes only on the forward exit")
	assert.Equal(t, []string{"q1"}, st.History, "interstitial entry pushes nothing onto history")
	assert.False(t, st.TransitionInFlight)
}

func TestMachine_ExitInterstitialForward(t *testing.T) {
	f := sixQuestionFunnel(t)
	m := newSyncMachine(t, f)
	ctx := context.Background()

	answer(m, "q1", "yes")
	m.Advance(ctx)
	m.ExitInterstitialForward(ctx)

	st := m.Snapshot()
	assert.Equal(t, domain.StageQuestions, st.Stage)
	assert.Equal(t, "q2", st.CurrentQuestionID)
	assert.Equal(t, []string{"q1", "q2"}, st.History)
	assert.Equal(t, domain.Kind(""), st.ActiveInterstitial)
}

func TestMachine_RetreatFromInterstitial(t *testing.T) {
	f := sixQuestionFunnel(t)
	m := newSyncMachine(t, f)
	ctx := context.Background()

	answer(m, "q1", "yes")
	m.Advance(ctx)
	m.Retreat(ctx)

	st := m.Snapshot()
	assert.Equal(t, domain.StageQuestions, st.Stage)
	assert.Equal(t, "q1", st.CurrentQuestionID)
	assert.Equal(t, []string{"q1"}, st.History)
	assert.Equal(t, domain.Kind(""), st.ActiveInterstitial)
}

func TestMachine_InterstitialRoundTripIsIdempotent(t *testing.T) {
	f := sixQuestionFunnel(t)
	m := newSyncMachine(t, f)
	ctx := context.Background()

	answer(m, "q1", "yes")
	m.Advance(ctx)
	before := m.Snapshot()

	// Back to q1 and forward again lands on the same interstitial with
	// identical history.
	m.Retreat(ctx)
	m.Advance(ctx)

	after := m.Snapshot()
	assert.Equal(t, before.Stage, after.Stage)
	assert.Equal(t, before.ActiveInterstitial, after.ActiveInterstitial)
	assert.Equal(t, before.History, after.History)
}

func TestMachine_RetreatAtFirstQuestionIsNoOp(t *testing.T) {
	f := sixQuestionFunnel(t)
	m := newSyncMachine(t, f)

	m.Retreat(context.Background())

	st := m.Snapshot()
	assert.Equal(t, domain.StageQuestions, st.Stage)
	assert.Equal(t, "q1", st.CurrentQuestionID)
	assert.Equal(t, []string{"q1"}, st.History)
}

func TestMachine_RetreatPopsHistory(t *testing.T) {
	f := sixQuestionFunnel(t)
	m := newSyncMachine(t, f)
	ctx := context.Background()

	answer(m, "q1", "yes")
	m.Advance(ctx)
	m.ExitInterstitialForward(ctx)
	answer(m, "q2", "no")
	m.Advance(ctx) // q2 -> q3, plain fade

	require.Equal(t, "q3", m.Snapshot().CurrentQuestionID)

	m.Retreat(ctx)
	st := m.Snapshot()
	assert.Equal(t, "q2", st.CurrentQuestionID)
	assert.Equal(t, []string{"q1", "q2"}, st.History)

	// The previous answer stays in the ledger for pre-filling.
	a, ok := st.Answers.Get("q2")
	assert.True(t, ok)
	assert.Equal(t, "no", a.Value)
}

func TestMachine_AdvanceIgnoredOnInterstitial(t *testing.T) {
	f := sixQuestionFunnel(t)
	m := newSyncMachine(t, f)
	ctx := context.Background()

	answer(m, "q1", "yes")
	m.Advance(ctx)
	before := m.Snapshot()

	m.Advance(ctx)

	after := m.Snapshot()
	assert.Equal(t, before.Stage, after.Stage)
	assert.Equal(t, before.History, after.History)
}

func TestMachine_FullWalkCompletesExactlyOnce(t *testing.T) {
	f := sixQuestionFunnel(t)
	notifier := &captureNotifier{}
	var redirects []string
	trigger := NewTrigger(
		WithNotifier(notifier),
		WithRedirectFallback(func(url string) { redirects = append(redirects, url) }),
	)

	var completions int
	m := newSyncMachine(t, f,
		WithTrigger(trigger),
		WithLifecycleHooks(domain.LifecycleHooks{
			OnCompleted: func(_ context.Context, e *domain.CompletionEvent) {
				completions++
				assert.Len(t, e.Summary, 6)
			},
		}),
	)
	ctx := context.Background()

	for _, id := range []string{"q1", "q2", "q3", "q4", "q5", "q6"} {
		answer(m, id, "yes")
		st := m.Snapshot()
		require.Equal(t, id, st.CurrentQuestionID)
		m.Advance(ctx)
		if m.Snapshot().Stage == domain.StageInterstitial {
			m.ExitInterstitialForward(ctx)
		}
	}

	st := m.Snapshot()
	assert.Equal(t, domain.StageCompleting, st.Stage)
	assert.Empty(t, st.CurrentQuestionID)
	assert.True(t, st.CompletionFired)
	assert.Equal(t, []string{"q1", "q2", "q3", "q4", "q5", "q6"}, st.History)

	require.Equal(t, 1, notifier.count())
	payload := notifier.payloads[0]
	assert.Equal(t, "funnel-main", payload["form_id"])
	assert.Contains(t, payload["summary"], "P1")

	assert.Equal(t, []string{"https://example.test/done"}, redirects)
	assert.Equal(t, 1, completions)

	// Terminal for navigation: further intents change nothing and never
	// re-fire the trigger.
	m.Advance(ctx)
	m.Retreat(ctx)
	answer(m, "q6", "no")
	assert.Equal(t, 1, notifier.count())
	assert.Equal(t, domain.StageCompleting, m.Snapshot().Stage)
}

func TestMachine_SingleQuestionCompletion(t *testing.T) {
	catalog, err := domain.NewCatalog(
		domain.Question{ID: "only", Prompt: "The one question", Options: yesNo()},
	)
	require.NoError(t, err)
	bindings, err := domain.NewBindingTable()
	require.NoError(t, err)

	f := &domain.Funnel{
		Catalog:    catalog,
		Bindings:   bindings,
		Completion: domain.CompletionConfig{WebhookURL: "https://hooks.example.test/funnel"},
	}

	notifier := &captureNotifier{}
	m := newSyncMachine(t, f, WithTrigger(NewTrigger(WithNotifier(notifier))))
	ctx := context.Background()

	answer(m, "only", "yes")
	m.Advance(ctx)

	st := m.Snapshot()
	assert.Equal(t, domain.StageCompleting, st.Stage)
	require.Equal(t, 1, notifier.count())
	assert.JSONEq(t, `{"The one question":"Yes"}`, notifier.payloads[0]["summary"])
}

// snoopingNotifier reads the machine's state from inside Notify, the way
// a slow webhook overlaps concurrent session reads. It deadlocks if the
// dispatch still holds the machine lock.
type snoopingNotifier struct {
	machine *Machine
	seen    *domain.State
}

func (n *snoopingNotifier) Notify(context.Context, map[string]string) error {
	n.seen = n.machine.Snapshot()
	return nil
}

func TestMachine_NotifierRunsOffCriticalSection(t *testing.T) {
	catalog, err := domain.NewCatalog(
		domain.Question{ID: "only", Prompt: "The one question", Options: yesNo()},
	)
	require.NoError(t, err)
	bindings, err := domain.NewBindingTable()
	require.NoError(t, err)
	f := &domain.Funnel{
		Catalog:    catalog,
		Bindings:   bindings,
		Completion: domain.CompletionConfig{WebhookURL: "https://hooks.example.test/funnel"},
	}

	notifier := &snoopingNotifier{}
	st := domain.NewState("sess-1", f.Catalog.First())
	m := NewMachine(f, st,
		WithScheduler(NewSyncScheduler()),
		WithTrigger(NewTrigger(WithNotifier(notifier))),
	)
	notifier.machine = m
	t.Cleanup(m.Stop)
	ctx := context.Background()

	answer(m, "only", "yes")
	m.Advance(ctx)

	// The latch is already closed when the notifier observes the state.
	require.NotNil(t, notifier.seen)
	assert.True(t, notifier.seen.CompletionFired)
	assert.Equal(t, domain.StageCompleting, notifier.seen.Stage)
}

func TestMachine_CompletionRequiresAnswers(t *testing.T) {
	catalog, err := domain.NewCatalog(
		domain.Question{ID: "only", Prompt: "P", Options: yesNo()},
	)
	require.NoError(t, err)
	bindings, err := domain.NewBindingTable()
	require.NoError(t, err)

	f := &domain.Funnel{Catalog: catalog, Bindings: bindings,
		Completion: domain.CompletionConfig{WebhookURL: "https://hooks.example.test/funnel"}}

	notifier := &captureNotifier{}
	m := newSyncMachine(t, f, WithTrigger(NewTrigger(WithNotifier(notifier))))

	// Advancing past the last question without any recorded answer
	// reaches the terminal stage but must not notify.
	m.Advance(context.Background())

	assert.Equal(t, domain.StageCompleting, m.Snapshot().Stage)
	assert.False(t, m.Snapshot().CompletionFired)
	assert.Equal(t, 0, notifier.count())
}

func TestMachine_RapidAdvanceDroppedWhileInFlight(t *testing.T) {
	f := sixQuestionFunnel(t)
	sched := &manualScheduler{}
	var dropped []string

	st := domain.NewState("sess-1", f.Catalog.First())
	m := NewMachine(f, st,
		WithScheduler(sched),
		WithLifecycleHooks(domain.LifecycleHooks{
			OnIntentDropped: func(_ context.Context, e *domain.IntentEvent) {
				dropped = append(dropped, e.Intent)
			},
		}),
	)
	ctx := context.Background()

	answer(m, "q1", "yes")
	m.Advance(ctx)
	require.True(t, m.Snapshot().TransitionInFlight)

	// Second and third intents arrive before the first settles.
	m.Advance(ctx)
	m.Retreat(ctx)

	assert.Equal(t, []string{"advance", "retreat"}, dropped)

	sched.release()

	st2 := m.Snapshot()
	assert.False(t, st2.TransitionInFlight)
	assert.Equal(t, domain.StageInterstitial, st2.Stage, "only the first intent took effect")
	assert.Equal(t, []string{"q1"}, st2.History)
	assert.Empty(t, sched.pending, "dropped intents are not queued")
}

func TestMachine_AnswerAllowedWhileInFlight(t *testing.T) {
	f := sixQuestionFunnel(t)
	sched := &manualScheduler{}
	st := domain.NewState("sess-1", f.Catalog.First())
	m := NewMachine(f, st, WithScheduler(sched))
	ctx := context.Background()

	answer(m, "q1", "yes")
	m.Advance(ctx)
	require.True(t, m.Snapshot().TransitionInFlight)

	answer(m, "q1", "no")

	sched.release()
	a, ok := m.Snapshot().Answers.Get("q1")
	require.True(t, ok)
	assert.Equal(t, "no", a.Value)
}

func TestMachine_StopDiscardsPendingTransition(t *testing.T) {
	f := sixQuestionFunnel(t)
	sched := &manualScheduler{}
	st := domain.NewState("sess-1", f.Catalog.First())
	m := NewMachine(f, st, WithScheduler(sched))

	answer(m, "q1", "yes")
	m.Advance(context.Background())
	m.Stop()
	sched.release()

	assert.Equal(t, domain.StageQuestions, m.Snapshot().Stage)
}

func TestMachine_HistoryHasNoAdjacentDuplicates(t *testing.T) {
	f := sixQuestionFunnel(t)
	m := newSyncMachine(t, f)
	ctx := context.Background()

	// A noisy walk: forward, back, forward again, through interstitials.
	answer(m, "q1", "yes")
	m.Advance(ctx)
	m.Retreat(ctx)
	m.Advance(ctx)
	m.ExitInterstitialForward(ctx)
	answer(m, "q2", "no")
	m.Advance(ctx)
	m.Retreat(ctx)
	m.Advance(ctx)

	st := m.Snapshot()
	for i := 1; i < len(st.History); i++ {
		assert.NotEqual(t, st.History[i-1], st.History[i],
			"history must never contain the same question twice in a row")
	}
	assert.Equal(t, st.CurrentQuestionID, st.History[len(st.History)-1])
}

func TestMachine_ReAnswerRedirectsBranch(t *testing.T) {
	catalog, err := domain.NewCatalog(
		domain.Question{ID: "q1", Prompt: "P1", Options: yesNo(), Branches: []domain.Branch{
			{WhenValue: "no", NextID: "q3"},
		}},
		domain.Question{ID: "q2", Prompt: "P2", Options: yesNo()},
		domain.Question{ID: "q3", Prompt: "P3", Options: yesNo()},
	)
	require.NoError(t, err)
	bindings, err := domain.NewBindingTable()
	require.NoError(t, err)
	f := &domain.Funnel{Catalog: catalog, Bindings: bindings}

	m := newSyncMachine(t, f)
	ctx := context.Background()

	answer(m, "q1", "yes")
	m.Advance(ctx)
	require.Equal(t, "q2", m.Snapshot().CurrentQuestionID)

	// Go back, change the answer, and take the other branch.
	m.Retreat(ctx)
	answer(m, "q1", "no")
	m.Advance(ctx)

	st := m.Snapshot()
	assert.Equal(t, "q3", st.CurrentQuestionID)
	assert.Equal(t, []string{"q1", "q3"}, st.History)
	assert.Equal(t, 1, st.Answers.Len(), "re-answering replaced the entry in place")
	a, _ := st.Answers.Get("q1")
	assert.Equal(t, "no", a.Value)
}
