package domain

// Answer records the selected value for a single question.
type Answer struct {
	QuestionID string `json:"question_id"`
	Value      string `json:"value"`
}

// Ledger is the ordered-by-insertion, unique-by-question record of answers.
// Re-answering a question replaces the stored value without moving the
// entry, so insertion order is stable for the completion summary.
type Ledger struct {
	Entries []Answer `json:"entries"`
}

// Record stores an answer. If the question was already answered, the
// value is replaced in place; otherwise the answer is appended.
// Record never fails.
func (l *Ledger) Record(a Answer) {
	for i := range l.Entries {
		if l.Entries[i].QuestionID == a.QuestionID {
			l.Entries[i].Value = a.Value
			return
		}
	}
	l.Entries = append(l.Entries, a)
}

// Get returns the recorded answer for a question, if any.
func (l *Ledger) Get(questionID string) (Answer, bool) {
	for _, a := range l.Entries {
		if a.QuestionID == questionID {
			return a, true
		}
	}
	return Answer{}, false
}

// Len returns the number of distinct answered questions.
func (l *Ledger) Len() int {
	return len(l.Entries)
}

// IsEmpty reports whether no answer has ever been recorded. The
// completion trigger uses this to avoid firing on an empty catalog.
func (l *Ledger) IsEmpty() bool {
	return len(l.Entries) == 0
}

// Clone returns an independent copy of the ledger.
func (l *Ledger) Clone() Ledger {
	entries := make([]Answer, len(l.Entries))
	copy(entries, l.Entries)
	return Ledger{Entries: entries}
}
