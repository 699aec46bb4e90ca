package catalog

import (
	"context"
	"errors"

	"go.uber.org/fx"

	cfgpkg "github.com/dailybrew/replenish/pkg/config"
	"github.com/dailybrew/replenish/pkg/types"
)

// ErrNotOrderable means the product cannot currently be turned into an order.
// The materializer treats it as a recoverable per-cycle failure.
var ErrNotOrderable = errors.New("product not orderable")

// Catalog is the read-only product collaborator. The engine never owns
// pricing or availability; it only snapshots them.
type Catalog interface {
	GetOrderableSnapshot(ctx context.Context, productID string) (*types.Product, error)
}

// configCatalog serves catalog lookups from the product entries in config.
type configCatalog struct {
	cfg *cfgpkg.Config
}

func New(cfg *cfgpkg.Config) Catalog {
	return &configCatalog{cfg: cfg}
}

func (c *configCatalog) GetOrderableSnapshot(_ context.Context, productID string) (*types.Product, error) {
	p := c.cfg.GetProductByID(productID)
	if !p.Orderable() {
		return nil, ErrNotOrderable
	}
	// copy so callers cannot mutate config-owned entries
	snap := *p
	return &snap, nil
}

var Module = fx.Options(
	fx.Provide(New),
)
