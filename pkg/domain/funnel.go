package domain

// CompletionConfig carries the operator-supplied settings for the one-shot
// completion side effects. The identity fields are fixed per deployment
// and independent of participant-entered data.
type CompletionConfig struct {
	// WebhookURL is the notification endpoint. Empty means the
	// notification is skipped silently; absence is not an error.
	WebhookURL string `json:"webhook_url,omitempty" yaml:"webhook_url,omitempty"`

	// Identity holds fixed sender tags (e.g. recipient, name) included
	// verbatim in every notification payload.
	Identity map[string]string `json:"identity,omitempty" yaml:"identity,omitempty"`

	// RedirectURL is where the participant is sent after completion.
	RedirectURL string `json:"redirect_url,omitempty" yaml:"redirect_url,omitempty"`
}

// Funnel bundles a complete funnel definition: the question catalog, the
// interstitial binding table, and the completion settings.
type Funnel struct {
	Catalog    *Catalog
	Bindings   *BindingTable
	Completion CompletionConfig
}

// Validate checks internal consistency of the definition.
func (f *Funnel) Validate() error {
	return f.Bindings.Validate(f.Catalog)
}
