// Package embedding implements the EmbeddingProvider collaborator:
// swappable text-embedding backends behind a small registry, the way
// the host registers its embedding models.
package embedding

import (
	"context"
	"fmt"
	"sync"

	"github.com/NaggiDev/practical-rag-sub000/internal/models"
)

// Provider is the EmbeddingProvider collaborator interface from the
// spec: embed a single text, embed a batch, and report health.
type Provider interface {
	Name() string
	Dimensions() int
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Health(ctx context.Context) models.HealthStatus
}

// ModelMetadata describes a registered provider for introspection.
type ModelMetadata struct {
	Name       string
	Version    string
	Dimensions int
	Default    bool
}

// ProviderFactory builds a new Provider instance, failing if required
// configuration (an API key, a reachable endpoint) is missing.
type ProviderFactory func() (Provider, error)

// Registry looks up provider factories by version, mirroring the host's
// ModelRegistry.
type Registry struct {
	mu           sync.RWMutex
	factories    map[string]ProviderFactory
	metadata     map[string]ModelMetadata
	defaultModel string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]ProviderFactory),
		metadata:  make(map[string]ModelMetadata),
	}
}

// Register adds a provider factory under meta.Version.
func (r *Registry) Register(meta ModelMetadata, factory ProviderFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[meta.Version] = factory
	r.metadata[meta.Version] = meta
	if meta.Default {
		r.defaultModel = meta.Version
	}
}

// Get instantiates the provider registered under version.
func (r *Registry) Get(version string) (Provider, error) {
	r.mu.RLock()
	factory, ok := r.factories[version]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("embedding: unknown provider %q", version)
	}
	return factory()
}

// Default returns the version marked Default at registration.
func (r *Registry) Default() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultModel
}

// List returns metadata for every registered provider.
func (r *Registry) List() []ModelMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ModelMetadata, 0, len(r.metadata))
	for _, m := range r.metadata {
		out = append(out, m)
	}
	return out
}

// DefaultRegistry is the process-wide provider registry populated by
// each adapter's init().
var DefaultRegistry = NewRegistry()

// RegisterModel adds a provider to the default registry.
func RegisterModel(meta ModelMetadata, factory ProviderFactory) {
	DefaultRegistry.Register(meta, factory)
}

// GetProvider instantiates a provider from the default registry.
func GetProvider(version string) (Provider, error) {
	return DefaultRegistry.Get(version)
}
