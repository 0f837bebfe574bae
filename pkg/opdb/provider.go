package opdb

import (
	"context"
	"fmt"
	"strings"
)

// Provider restores the state a component checkpoints into its namespaces.
type Provider interface {
	Namespaces() []string
	Restore(ctx context.Context, store Store) error
}

// ProviderRegistry restores providers in registration order at daemon
// start, before any component begins processing.
type ProviderRegistry struct {
	providers []Provider
}

func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{}
}

func (r *ProviderRegistry) Register(p Provider) {
	r.providers = append(r.providers, p)
}

// RestoreAll stops at the first provider that fails.
func (r *ProviderRegistry) RestoreAll(ctx context.Context, store Store) error {
	for _, p := range r.providers {
		if err := p.Restore(ctx, store); err != nil {
			return fmt.Errorf("restore [%s]: %w", strings.Join(p.Namespaces(), ","), err)
		}
	}
	return nil
}
