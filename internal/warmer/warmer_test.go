package warmer

import (
	"context"
	"testing"
	"time"

	"github.com/NaggiDev/practical-rag-sub000/internal/cache"
	"github.com/NaggiDev/practical-rag-sub000/internal/models"
)

type fakeMaterializer struct {
	calls []string
}

func (f *fakeMaterializer) Materialize(ctx context.Context, fingerprint string) error {
	f.calls = append(f.calls, fingerprint)
	return nil
}

func newTestWarmer() (*Warmer, *fakeMaterializer, *cache.Store) {
	store := cache.New(cache.NewMemoryBackend())
	mat := &fakeMaterializer{}
	w := New(store, mat, Config{PreloadBatchSize: 5, PopularityThreshold: 2, MaxAge: time.Hour})
	return w, mat, store
}

// GOOD: track accumulates count and rolling-average processing time.
func TestWarmer_Track(t *testing.T) {
	w, _, _ := newTestWarmer()
	w.Track("fp-1", 100, []string{"source-a"})
	w.Track("fp-1", 200, []string{"source-b"})

	stat := w.usageStats["fp-1"]
	if stat.Count != 2 {
		t.Fatalf("expected count 2, got %d", stat.Count)
	}
	if stat.AvgProcessingMs != 150 {
		t.Fatalf("expected rolling avg 150, got %v", stat.AvgProcessingMs)
	}
	if len(stat.Sources) != 2 {
		t.Fatalf("expected union of 2 sources, got %v", stat.Sources)
	}
}

// GOOD: popular ranks by count, filtering out anything below the
// popularity threshold.
func TestWarmer_Popular(t *testing.T) {
	w, _, _ := newTestWarmer()
	for i := 0; i < 3; i++ {
		w.Track("hot", 10, nil)
	}
	w.Track("cold", 10, nil) // count 1, below threshold of 2

	popular := w.Popular(5)
	if len(popular) != 1 || popular[0] != "hot" {
		t.Fatalf("expected only hot fingerprint, got %v", popular)
	}
}

// EDGE CASE: preloadHot skips fingerprints already present in cache
// and materializes the rest.
func TestWarmer_PreloadHot_SkipsCached(t *testing.T) {
	w, mat, store := newTestWarmer()
	ctx := context.Background()

	w.Track("cached-fp", 10, nil)
	w.Track("cached-fp", 10, nil)
	w.Track("missing-fp", 10, nil)
	w.Track("missing-fp", 10, nil)

	_ = store.SetQueryResult(ctx, "cached-fp", models.QueryResult{}, 0)

	w.PreloadHot(ctx)

	for _, fp := range mat.calls {
		if fp == "cached-fp" {
			t.Fatalf("expected cached fingerprint not to be materialized")
		}
	}
	found := false
	for _, fp := range mat.calls {
		if fp == "missing-fp" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected missing fingerprint to be materialized, calls=%v", mat.calls)
	}
}

// GOOD: invalidateForSource drops stats referencing the source and
// clears its cached entries.
func TestWarmer_InvalidateForSource(t *testing.T) {
	w, _, _ := newTestWarmer()
	ctx := context.Background()

	w.Track("fp-src", 10, []string{"source-x"})
	w.Track("fp-src", 10, []string{"source-x"})

	w.InvalidateForSource(ctx, "source-x")

	if _, ok := w.usageStats["fp-src"]; ok {
		t.Fatalf("expected stat removed after source invalidation")
	}
}

// EDGE CASE: a second concurrent PreloadHot call while one is running
// bails immediately rather than double-processing.
func TestWarmer_PreloadHot_PreventsReentrancy(t *testing.T) {
	w, _, _ := newTestWarmer()
	w.isWarming = true
	w.PreloadHot(context.Background())
	if !w.isWarming {
		t.Fatalf("expected isWarming to remain true when bailing out")
	}
}
