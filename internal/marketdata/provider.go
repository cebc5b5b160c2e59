// Package marketdata fetches closing-price histories and aligns them into a
// core.PriceSeries the risk model can consume.
package marketdata

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/nikhiljakhar-004/Portfolio-Allocation/internal/core"
)

// Provider fetches daily closing prices for one symbol.
type Provider interface {
	Name() string
	// FetchHistory returns bars in [start, end) ordered by time.
	FetchHistory(ctx context.Context, symbol string, start, end time.Time, interval string) ([]core.Bar, error)
}

// Registry manages price providers by name
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
	}
}

// Register adds a provider, replacing any with the same name
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// Get retrieves a provider by name
func (r *Registry) Get(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// Names returns registered provider names in sorted order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
