package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NaggiDev/practical-rag-sub000/internal/cache"
	"github.com/NaggiDev/practical-rag-sub000/internal/datasource"
	"github.com/NaggiDev/practical-rag-sub000/internal/embedding"
	"github.com/NaggiDev/practical-rag-sub000/internal/query"
	"github.com/NaggiDev/practical-rag-sub000/internal/search"
	"github.com/NaggiDev/practical-rag-sub000/internal/vectorstore/memory"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cacheStore := cache.New(cache.NewMemoryBackend())
	embedder := embedding.NewMemoryProvider(16)
	store := memory.New()
	engine := search.NewEngine(embedder, store)
	registry := datasource.NewRegistry()

	processor := query.NewProcessor(query.Deps{
		Cache:    cacheStore,
		Engine:   engine,
		Embedder: embedder,
		Sources:  registry,
	}, query.Config{MaxConcurrentQueries: 4, DefaultTimeoutMs: 2000, MaxResultsPerSource: 10})

	return NewServer(Deps{Processor: processor, Cache: cacheStore}, ":0")
}

// ===== GOOD CASES =====

func TestHandleHealth_AlwaysServesBeforeReady(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleQuery_ReturnsResultOnceReady(t *testing.T) {
	s := newTestServer(t)
	s.MarkReady()

	body := strings.NewReader(`{"query": "what is caching"}`)
	req := httptest.NewRequest(http.MethodPost, "/query", body)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "queryId")
}

// ===== EDGE CASES =====

func TestHandleQuery_GatedUntilReady(t *testing.T) {
	s := newTestServer(t)

	body := strings.NewReader(`{"query": "hello"}`)
	req := httptest.NewRequest(http.MethodPost, "/query", body)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandleQuery_RejectsEmptyQuery(t *testing.T) {
	s := newTestServer(t)
	s.MarkReady()

	body := strings.NewReader(`{"query": "   "}`)
	req := httptest.NewRequest(http.MethodPost, "/query", body)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleCancelQuery_UnknownIDReturns404(t *testing.T) {
	s := newTestServer(t)
	s.MarkReady()

	req := httptest.NewRequest(http.MethodDelete, "/query/does-not-exist", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleIndex_WithoutIndexerReturns503(t *testing.T) {
	s := newTestServer(t)
	s.MarkReady()

	body := strings.NewReader(`{"content": {"id": "c1", "text": "hello world"}}`)
	req := httptest.NewRequest(http.MethodPost, "/index", body)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
