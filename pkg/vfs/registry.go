package vfs

import "sync"

// Registry maps provider names to providers and tracks the process default.
// It is an explicit object rather than ambient package state so wiring stays
// visible and testable; callers that want a shared instance hold one
// themselves.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	def       string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider under its own name. Registering a name twice
// returns ErrProviderExists.
func (r *Registry) Register(p Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := p.Name()
	if _, ok := r.providers[name]; ok {
		return &Error{Op: "Register", Name: name, Cause: ErrProviderExists}
	}
	r.providers[name] = p
	if r.def == "" {
		r.def = name
	}
	return nil
}

// Find looks up a provider by name.
func (r *Registry) Find(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// SetDefault marks a registered provider as the default.
func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.providers[name]; !ok {
		return &Error{Op: "SetDefault", Name: name, Cause: ErrProviderNotFound}
	}
	r.def = name
	return nil
}

// Default returns the default provider, or nil if none is registered.
func (r *Registry) Default() Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.def == "" {
		return nil
	}
	return r.providers[r.def]
}

// RegisterOverlay installs an overlay provider wrapping the named underlying
// provider and makes it the registry default. If the overlay is already
// registered the call is a no-op apart from re-asserting the default, so
// repeated registration is safe. It fails with ErrProviderNotFound when the
// underlying provider does not exist.
func RegisterOverlay(reg *Registry, underlyingName string, opts Options) error {
	if _, ok := reg.Find(OverlayName); ok {
		return reg.SetDefault(OverlayName)
	}

	base, ok := reg.Find(underlyingName)
	if !ok {
		return &Error{Op: "RegisterOverlay", Name: underlyingName, Cause: ErrProviderNotFound}
	}

	if err := reg.Register(NewOverlayProvider(base, opts)); err != nil {
		return err
	}
	return reg.SetDefault(OverlayName)
}
