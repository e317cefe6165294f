package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/parley-ai/parley/internal/agent"
	"github.com/parley-ai/parley/internal/ingest"
	"github.com/parley-ai/parley/internal/llm"
	"github.com/parley-ai/parley/internal/rag"
	"github.com/parley-ai/parley/internal/storage"
	"github.com/parley-ai/parley/internal/validate"
)

const maxRequestBodySize = 1 << 20 // 1MB
const maxUploadSize = 10 << 20     // 10MB

// Completer produces plain chat completions. *llm.Client satisfies it.
type Completer interface {
	Complete(ctx context.Context, model string, messages []llm.Message, temperature float64) (string, error)
}

// AgentRunner runs the tool-calling loop. *agent.Agent satisfies it.
type AgentRunner interface {
	Run(ctx context.Context, messages []llm.Message) (agent.Result, error)
}

// ValidatedRunner runs the generate-validate-retry loop.
// *validate.Controller satisfies it.
type ValidatedRunner interface {
	Run(ctx context.Context, prompt string, history []llm.Message) (validate.Outcome, error)
}

// AnswerPipeline runs the retrieve-then-generate flow. *rag.Pipeline
// satisfies it.
type AnswerPipeline interface {
	Run(ctx context.Context, question string) (rag.Result, error)
}

// DocumentIndex is the write side of the vector index. *index.Index
// satisfies it.
type DocumentIndex interface {
	Add(ctx context.Context, documentID string, chunks []ingest.Chunk) (int, error)
}

// Deps wires the answer strategies and storage into the HTTP layer.
type Deps struct {
	Store     *storage.Store
	Chat      Completer
	ChatModel string
	Agent     AgentRunner
	Validated ValidatedRunner
	RAG       AnswerPipeline
	Index     DocumentIndex

	// Token guards the management routes when non-empty. The ask and upload
	// routes stay open either way.
	Token string
}

// NewHandler builds the HTTP API: the four ask strategies, document upload,
// and the management routes.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.AllowAll().Handler)

	r.Get("/health", handleHealth)

	r.Post("/ask", handleAsk(deps))
	r.Post("/ask-agent", handleAskAgent(deps))
	r.Post("/ask-validated", handleAskValidated(deps))
	r.Post("/ask-rag", handleAskRAG(deps))
	r.Post("/upload-document", handleUpload(deps))

	r.Group(func(g chi.Router) {
		if deps.Token != "" {
			g.Use(BearerAuth(deps.Token))
		}
		g.Get("/documents", handleListDocuments(deps))
		g.Get("/interactions", handleListInteractions(deps))
		g.Get("/interactions/{id}", handleGetInteraction(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// httpError writes a flat {"error": "..."} payload. Clients dispatch on the
// error text, so the payload stays a single field.
func httpError(w http.ResponseWriter, status int, format string, args ...interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error": fmt.Sprintf(format, args...),
	})
}

// upstreamStatus maps a strategy error to an HTTP status: provider failures
// surface as 502, everything else as 500.
func upstreamStatus(err error) int {
	var ue *llm.UpstreamError
	if errors.As(err, &ue) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding response", "error", err)
	}
}
