package domain

// Option is a single selectable choice for a question.
type Option struct {
	// Value is the machine-readable value recorded in the ledger.
	Value string `json:"value" yaml:"value"`

	// Label is the human-readable text shown to the user and used in
	// the completion summary.
	Label string `json:"label" yaml:"label"`
}

// Branch routes to a specific question when the current question was
// answered with a matching value. Branches take priority over the
// catalog's linear order.
type Branch struct {
	WhenValue string `json:"when_value" yaml:"when_value"`
	NextID    string `json:"next_id" yaml:"next_id"`
}

// Question represents a single screen in the questionnaire.
// Definitions are immutable and supplied at startup.
type Question struct {
	ID     string `json:"id" yaml:"id"`
	Prompt string `json:"prompt" yaml:"prompt"`

	// Options are the selectable answers, in display order.
	Options []Option `json:"options" yaml:"options"`

	// Branches optionally override the linear order based on the
	// recorded answer value. If none match, linear order applies.
	Branches []Branch `json:"branches,omitempty" yaml:"branches,omitempty"`
}

// OptionLabel returns the display label for a recorded value.
// Falls back to the raw value when no option matches, so summaries
// never silently drop an answer.
func (q Question) OptionLabel(value string) string {
	for _, o := range q.Options {
		if o.Value == value {
			return o.Label
		}
	}
	return value
}
