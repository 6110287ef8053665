package embedding

import (
	"context"
	"hash/fnv"

	"github.com/NaggiDev/practical-rag-sub000/internal/models"
)

// MemoryProviderVersion is the registry key for the deterministic
// test/dev provider.
const MemoryProviderVersion = "deterministic"

// MemoryProvider is a dependency-free Provider that derives a
// deterministic pseudo-embedding from a text's hash, for tests and
// local development without a real embedding backend.
type MemoryProvider struct {
	dims int
}

// NewMemoryProvider builds a MemoryProvider with the given dimensions.
func NewMemoryProvider(dims int) *MemoryProvider {
	if dims <= 0 {
		dims = 64
	}
	return &MemoryProvider{dims: dims}
}

func init() {
	RegisterModel(ModelMetadata{
		Name:       "Deterministic (test)",
		Version:    MemoryProviderVersion,
		Dimensions: 64,
	}, func() (Provider, error) { return NewMemoryProvider(64), nil })
}

func (p *MemoryProvider) Name() string    { return "Deterministic (test)" }
func (p *MemoryProvider) Dimensions() int { return p.dims }

func (p *MemoryProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	return deterministicVector(text, p.dims), nil
}

func (p *MemoryProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = deterministicVector(t, p.dims)
	}
	return out, nil
}

func (p *MemoryProvider) Health(ctx context.Context) models.HealthStatus {
	return models.HealthHealthy
}

// deterministicVector derives a unit-ish pseudo-embedding from text by
// feeding one running FNV-1a hash the dimension index and the whole
// text before reading each component, so repeated
// calls with the same text always produce the same vector without
// needing a real model.
func deterministicVector(text string, dims int) []float32 {
	vec := make([]float32, dims)
	if text == "" {
		return vec
	}
	h := fnv.New32a()
	for i := 0; i < dims; i++ {
		h.Write([]byte{byte(i)})
		h.Write([]byte(text))
		sum := h.Sum32()
		vec[i] = float32(sum%2000)/1000.0 - 1.0 // roughly [-1, 1)
	}
	return vec
}

var _ Provider = (*MemoryProvider)(nil)
