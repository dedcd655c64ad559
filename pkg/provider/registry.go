// SPDX-License-Identifier: MPL-2.0

package provider

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds the set of configured provider clients, keyed by name.
// It is safe for concurrent use; the fetch orchestrator looks clients up
// from multiple workers.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]Client
}

// NewRegistry creates a Registry with the given clients.
func NewRegistry(clients ...Client) *Registry {
	r := &Registry{clients: make(map[string]Client)}
	for _, c := range clients {
		r.clients[c.Name()] = c
	}
	return r
}

// Register adds a client, replacing any existing client with the same name.
func (r *Registry) Register(c Client) error {
	if c == nil {
		return fmt.Errorf("cannot register nil provider client")
	}
	if c.Name() == "" {
		return fmt.Errorf("provider client has empty name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c.Name()] = c
	return nil
}

// Lookup returns the client for a provider name.
func (r *Registry) Lookup(name string) (Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.clients[name]
	if !ok {
		return nil, &UnknownProviderError{Provider: name}
	}
	return c, nil
}

// For returns the client responsible for a mod reference.
func (r *Registry) For(ref ModRef) (Client, error) {
	return r.Lookup(ref.Provider)
}

// Names returns the registered provider names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
