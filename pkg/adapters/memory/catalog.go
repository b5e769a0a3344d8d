package memory

import (
	"context"

	"github.com/funnelworks/funnel/pkg/domain"
)

// CatalogLoader implements ports.CatalogLoader from an in-memory funnel
// definition. Intended for tests and embedded hosts that build their
// definition in code.
type CatalogLoader struct {
	funnel *domain.Funnel
}

// NewCatalogLoader wraps a pre-built definition.
func NewCatalogLoader(f *domain.Funnel) *CatalogLoader {
	return &CatalogLoader{funnel: f}
}

// NewFunnel assembles a definition from parts, validating binding
// consistency against the catalog. This improves DX for tests.
func NewFunnel(questions []domain.Question, bindings []domain.Binding, completion domain.CompletionConfig) (*domain.Funnel, error) {
	catalog, err := domain.NewCatalog(questions...)
	if err != nil {
		return nil, err
	}
	table, err := domain.NewBindingTable(bindings...)
	if err != nil {
		return nil, err
	}
	f := &domain.Funnel{
		Catalog:    catalog,
		Bindings:   table,
		Completion: completion,
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// Load returns the wrapped definition.
func (l *CatalogLoader) Load(ctx context.Context) (*domain.Funnel, error) {
	return l.funnel, nil
}
