package httpapi

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/NaggiDev/practical-rag-sub000/internal/models"
	"github.com/NaggiDev/practical-rag-sub000/internal/query"
)

// queryRequest is the POST /query body: the query text plus optional
// free-form context hints (e.g. domain, recency) the optimize stage
// consults for boosts.
type queryRequest struct {
	Query   string            `json:"query"`
	Context map[string]string `json:"context,omitempty"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var req queryRequest
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, http.StatusBadRequest, "malformed JSON body")
			return
		}
	}

	result, err := s.deps.Processor.Process(r.Context(), req.Query, req.Context)
	if err != nil {
		if qerr, ok := err.(*query.Error); ok {
			switch qerr.Code {
			case query.ErrValidation:
				writeError(w, http.StatusBadRequest, qerr.Message)
			case query.ErrCapacityExceeded:
				writeError(w, http.StatusTooManyRequests, qerr.Message)
			default:
				writeError(w, http.StatusInternalServerError, qerr.Message)
			}
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCancelQuery(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if ok := s.deps.Processor.Cancel(id); !ok {
		writeError(w, http.StatusNotFound, "no active query with that id")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// indexRequest is the POST /index body: one piece of content plus the
// chunking strategy to index it under.
type indexRequest struct {
	Content  models.Content       `json:"content"`
	Strategy models.ChunkStrategy `json:"strategy,omitempty"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.deps.Indexer == nil {
		writeError(w, http.StatusServiceUnavailable, "indexer not configured")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 10<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var req indexRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	if req.Content.ID == "" || req.Content.Text == "" {
		writeError(w, http.StatusBadRequest, "content.id and content.text are required")
		return
	}
	if req.Strategy == "" {
		req.Strategy = models.StrategySlidingWindow
	}

	result, err := s.deps.Indexer.IndexContent(r.Context(), req.Content, req.Strategy)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}
