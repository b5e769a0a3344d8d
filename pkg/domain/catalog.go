package domain

import (
	"fmt"
	"math"
)

// Catalog is the ordered sequence of question definitions supplied at
// startup. It owns next-question resolution: linear order by default,
// overridden per question by answer-value branches.
type Catalog struct {
	questions []Question
	index     map[string]int
}

// NewCatalog builds a catalog, rejecting duplicate or empty IDs.
func NewCatalog(questions ...Question) (*Catalog, error) {
	idx := make(map[string]int, len(questions))
	for i, q := range questions {
		if q.ID == "" {
			return nil, fmt.Errorf("question at position %d has empty id", i)
		}
		if _, dup := idx[q.ID]; dup {
			return nil, fmt.Errorf("duplicate question id: %s", q.ID)
		}
		idx[q.ID] = i
	}
	return &Catalog{questions: questions, index: idx}, nil
}

// Len returns the number of questions.
func (c *Catalog) Len() int {
	return len(c.questions)
}

// First returns the ID of the first question, or "" for an empty catalog.
func (c *Catalog) First() string {
	if len(c.questions) == 0 {
		return ""
	}
	return c.questions[0].ID
}

// Question looks up a definition by ID.
func (c *Catalog) Question(id string) (Question, bool) {
	i, ok := c.index[id]
	if !ok {
		return Question{}, false
	}
	return c.questions[i], true
}

// Questions returns the definitions in catalog order.
func (c *Catalog) Questions() []Question {
	out := make([]Question, len(c.questions))
	copy(out, c.questions)
	return out
}

// Index returns the zero-based position of a question, or -1 if unknown.
func (c *Catalog) Index(id string) int {
	i, ok := c.index[id]
	if !ok {
		return -1
	}
	return i
}

// Next resolves the question following currentID given the recorded
// answers. Branch rules on the current question are checked against its
// recorded answer value first; otherwise linear order applies. Returns
// "" when the sequence is exhausted or currentID is unknown.
func (c *Catalog) Next(currentID string, ledger *Ledger) string {
	i, ok := c.index[currentID]
	if !ok {
		return ""
	}

	q := c.questions[i]
	if len(q.Branches) > 0 && ledger != nil {
		if a, answered := ledger.Get(currentID); answered {
			for _, b := range q.Branches {
				if b.WhenValue == a.Value {
					return b.NextID
				}
			}
		}
	}

	if i+1 < len(c.questions) {
		return c.questions[i+1].ID
	}
	return ""
}

// Progress returns the display progress percentage for a question:
// round(100 * (index+1) / total).
func (c *Catalog) Progress(id string) int {
	i, ok := c.index[id]
	if !ok || len(c.questions) == 0 {
		return 0
	}
	return int(math.Round(100 * float64(i+1) / float64(len(c.questions))))
}

// Summary maps each answered question's prompt text to the label of the
// selected option, one entry per distinct question, in ledger order.
// Used as the completion notification payload artifact.
func (c *Catalog) Summary(ledger *Ledger) map[string]string {
	out := make(map[string]string, ledger.Len())
	for _, a := range ledger.Entries {
		q, ok := c.Question(a.QuestionID)
		if !ok {
			continue
		}
		out[q.Prompt] = q.OptionLabel(a.Value)
	}
	return out
}
