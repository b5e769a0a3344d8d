package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCatalog_RejectsBadIDs(t *testing.T) {
	_, err := NewCatalog(
		Question{ID: "q1", Prompt: "P1"},
		Question{ID: "q1", Prompt: "P1 again"},
	)
	assert.Error(t, err)

	_, err = NewCatalog(Question{Prompt: "no id"})
	assert.Error(t, err)
}

func TestCatalog_NextLinear(t *testing.T) {
	c := testCatalog(t)
	var l Ledger

	assert.Equal(t, "q2", c.Next("q1", &l))
	assert.Equal(t, "q3", c.Next("q2", &l))
	assert.Equal(t, "", c.Next("q3", &l), "last question exhausts the sequence")
	assert.Equal(t, "", c.Next("unknown", &l))
}

func TestCatalog_NextBranchesOnAnswer(t *testing.T) {
	c, err := NewCatalog(
		Question{ID: "q1", Prompt: "P1", Options: []Option{
			{Value: "yes", Label: "Yes"},
			{Value: "no", Label: "No"},
		}, Branches: []Branch{
			{WhenValue: "no", NextID: "q3"},
		}},
		Question{ID: "q2", Prompt: "P2"},
		Question{ID: "q3", Prompt: "P3"},
	)
	require.NoError(t, err)

	var l Ledger
	l.Record(Answer{QuestionID: "q1", Value: "no"})
	assert.Equal(t, "q3", c.Next("q1", &l))

	l.Record(Answer{QuestionID: "q1", Value: "yes"})
	assert.Equal(t, "q2", c.Next("q1", &l), "unmatched branch falls back to linear order")
}

func TestCatalog_Progress(t *testing.T) {
	c, err := NewCatalog(
		Question{ID: "q1"}, Question{ID: "q2"}, Question{ID: "q3"},
		Question{ID: "q4"}, Question{ID: "q5"}, Question{ID: "q6"},
	)
	require.NoError(t, err)

	assert.Equal(t, 17, c.Progress("q1"))
	assert.Equal(t, 50, c.Progress("q3"))
	assert.Equal(t, 100, c.Progress("q6"))
	assert.Equal(t, 0, c.Progress("unknown"))
}

func TestCatalog_Summary(t *testing.T) {
	c, err := NewCatalog(
		Question{ID: "q1", Prompt: "Favorite color?", Options: []Option{
			{Value: "b", Label: "Blue"},
		}},
		Question{ID: "q2", Prompt: "Team size?", Options: []Option{
			{Value: "s", Label: "Small"},
		}},
	)
	require.NoError(t, err)

	var l Ledger
	l.Record(Answer{QuestionID: "q1", Value: "b"})
	l.Record(Answer{QuestionID: "q2", Value: "custom"})

	sum := c.Summary(&l)
	assert.Len(t, sum, 2)
	assert.Equal(t, "Blue", sum["Favorite color?"])
	assert.Equal(t, "custom", sum["Team size?"], "unknown option value passes through raw")
}
