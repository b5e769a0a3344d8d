package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLedger_RecordAppendsInOrder(t *testing.T) {
	var l Ledger
	assert.True(t, l.IsEmpty())

	l.Record(Answer{QuestionID: "q1", Value: "a"})
	l.Record(Answer{QuestionID: "q2", Value: "b"})
	l.Record(Answer{QuestionID: "q3", Value: "c"})

	assert.Equal(t, 3, l.Len())
	assert.False(t, l.IsEmpty())
	assert.Equal(t, "q1", l.Entries[0].QuestionID)
	assert.Equal(t, "q3", l.Entries[2].QuestionID)
}

func TestLedger_ReRecordReplacesInPlace(t *testing.T) {
	var l Ledger
	l.Record(Answer{QuestionID: "q1", Value: "a"})
	l.Record(Answer{QuestionID: "q2", Value: "b"})

	// Re-answering must not change order or length.
	l.Record(Answer{QuestionID: "q1", Value: "changed"})

	assert.Equal(t, 2, l.Len())
	assert.Equal(t, "q1", l.Entries[0].QuestionID)

	a, ok := l.Get("q1")
	assert.True(t, ok)
	assert.Equal(t, "changed", a.Value)
}

func TestLedger_GetMissing(t *testing.T) {
	var l Ledger
	_, ok := l.Get("nope")
	assert.False(t, ok)
}

func TestLedger_CloneIsolation(t *testing.T) {
	var l Ledger
	l.Record(Answer{QuestionID: "q1", Value: "a"})

	clone := l.Clone()
	clone.Record(Answer{QuestionID: "q1", Value: "mutated"})
	clone.Record(Answer{QuestionID: "q2", Value: "extra"})

	a, _ := l.Get("q1")
	assert.Equal(t, "a", a.Value)
	assert.Equal(t, 1, l.Len())
}
