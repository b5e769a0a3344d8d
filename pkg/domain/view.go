package domain

// View is the display state emitted to hosts: everything a stateless
// renderer needs to draw the current screen.
type View struct {
	SessionID string `json:"session_id"`
	Stage     Stage  `json:"stage"`

	// Question is set while Stage == StageQuestions.
	Question *Question `json:"question,omitempty"`

	// Answer pre-fills the previously selected value, if any.
	Answer string `json:"answer,omitempty"`

	// Interstitial is set while Stage == StageInterstitial.
	Interstitial Kind `json:"interstitial,omitempty"`

	CanGoBack bool `json:"can_go_back"`

	// Progress is the percentage through the catalog (0-100).
	Progress int `json:"progress"`

	Completed bool `json:"completed"`
}

// NewView derives the display state for a session snapshot.
func NewView(f *Funnel, s *State) View {
	v := View{
		SessionID: s.SessionID,
		Stage:     s.Stage,
		CanGoBack: s.CanGoBack(),
		Completed: s.Stage == StageCompleting,
	}

	switch s.Stage {
	case StageQuestions:
		if q, ok := f.Catalog.Question(s.CurrentQuestionID); ok {
			v.Question = &q
			v.Progress = f.Catalog.Progress(q.ID)
			if a, answered := s.Answers.Get(q.ID); answered {
				v.Answer = a.Value
			}
		}
	case StageInterstitial:
		v.Interstitial = s.ActiveInterstitial
		// Progress sticks to the question the user came from.
		if b, ok := f.Bindings.ByKind(s.ActiveInterstitial); ok {
			v.Progress = f.Catalog.Progress(b.From)
		}
	case StageCompleting:
		v.Progress = 100
	}

	return v
}
