package ports

import (
	"context"
	"testing"
	"time"

	"github.com/funnelworks/funnel/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStateStoreContract runs a suite of tests to verify that a StateStore
// implementation adheres to the defined interface contract.
func RunStateStoreContract(t *testing.T, store StateStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		state := domain.NewState(sessionID, "q1")
		state.Answers.Record(domain.Answer{QuestionID: "q1", Value: "growth"})
		state.History = append(state.History, "q2")
		state.CurrentQuestionID = "q2"

		err := store.Save(ctx, sessionID, state)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, state.CurrentQuestionID, loaded.CurrentQuestionID)
		assert.Equal(t, state.History, loaded.History)

		a, ok := loaded.Answers.Get("q1")
		require.True(t, ok, "recorded answer should survive the round trip")
		assert.Equal(t, "growth", a.Value)
	})

	t.Run("Save Isolation", func(t *testing.T) {
		state := domain.NewState(sessionID, "q1")
		require.NoError(t, store.Save(ctx, sessionID, state))

		// Mutating the caller's copy must not leak into the store.
		state.Answers.Record(domain.Answer{QuestionID: "q1", Value: "late"})

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.True(t, loaded.Answers.IsEmpty(), "stored state should be isolated from caller mutation")
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, sessionID, domain.NewState(sessionID, "q1"))
		require.NoError(t, err)

		err = store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, id1, domain.NewState(id1, "q1"))
		_ = store.Save(ctx, id2, domain.NewState(id2, "q1"))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
