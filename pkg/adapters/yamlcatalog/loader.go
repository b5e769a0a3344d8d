// Package yamlcatalog loads a funnel definition from a YAML file.
package yamlcatalog

import (
	"context"
	"fmt"
	"os"
	"reflect"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/funnelworks/funnel/pkg/domain"
)

// document mirrors the on-disk layout of a funnel definition file.
type document struct {
	Questions     []rawQuestion           `yaml:"questions"`
	Interstitials []domain.Binding        `yaml:"interstitials"`
	Completion    domain.CompletionConfig `yaml:"completion"`
}

// rawQuestion keeps options loosely typed so the file may use either
// the full {value, label} form or a bare string shorthand.
type rawQuestion struct {
	ID       string          `yaml:"id"`
	Prompt   string          `yaml:"prompt"`
	Options  []any           `yaml:"options"`
	Branches []domain.Branch `yaml:"branches"`
}

// Loader implements ports.CatalogLoader from a YAML file on disk.
type Loader struct {
	path string
}

// New creates a loader for the given definition file.
func New(path string) *Loader {
	return &Loader{path: path}
}

// Load parses and validates the definition.
func (l *Loader) Load(ctx context.Context) (*domain.Funnel, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read funnel definition: %w", err)
	}
	return Parse(data)
}

// Parse builds a validated funnel definition from raw YAML bytes.
func Parse(data []byte) (*domain.Funnel, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid funnel definition: %w", err)
	}

	questions := make([]domain.Question, 0, len(doc.Questions))
	for _, raw := range doc.Questions {
		opts, err := decodeOptions(raw.Options)
		if err != nil {
			return nil, fmt.Errorf("question %q: %w", raw.ID, err)
		}
		if len(opts) == 0 {
			return nil, fmt.Errorf("question %q has no options", raw.ID)
		}
		questions = append(questions, domain.Question{
			ID:       raw.ID,
			Prompt:   raw.Prompt,
			Options:  opts,
			Branches: raw.Branches,
		})
	}

	catalog, err := domain.NewCatalog(questions...)
	if err != nil {
		return nil, err
	}

	table, err := domain.NewBindingTable(doc.Interstitials...)
	if err != nil {
		return nil, err
	}

	f := &domain.Funnel{
		Catalog:    catalog,
		Bindings:   table,
		Completion: doc.Completion,
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}

	// Branch targets are resolved lazily at navigation time; reject
	// unknown ones here instead so broken files fail at startup.
	for _, q := range questions {
		for _, b := range q.Branches {
			if catalog.Index(b.NextID) < 0 {
				return nil, fmt.Errorf("question %q: branch targets unknown question %q", q.ID, b.NextID)
			}
		}
	}

	return f, nil
}

// decodeOptions converts the loosely typed option list. A bare string
// is shorthand for an option whose value and label are identical.
func decodeOptions(raw []any) ([]domain.Option, error) {
	var opts []domain.Option
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: optionShorthandHook,
		Result:     &opts,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	return opts, nil
}

func optionShorthandHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf(domain.Option{}) {
		return data, nil
	}
	s := data.(string)
	return map[string]any{"value": s, "label": s}, nil
}
