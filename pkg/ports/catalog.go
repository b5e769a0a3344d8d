package ports

import (
	"context"

	"github.com/funnelworks/funnel/pkg/domain"
)

// CatalogLoader defines how the engine retrieves the funnel definition:
// question catalog, interstitial bindings, and completion settings.
// This decouples the definition source (YAML file, memory, remote).
type CatalogLoader interface {
	Load(ctx context.Context) (*domain.Funnel, error)
}
