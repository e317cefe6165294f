package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/parley-ai/parley/internal/chat"
	"github.com/parley-ai/parley/internal/storage"
	"github.com/parley-ai/parley/internal/validate"
)

// chatTemperature for the direct strategy.
const chatTemperature = 0.7

// Strategy names reported in responses and the audit log.
const (
	methodDirect    = "direct"
	methodAgent     = "agent"
	methodValidated = "validated-agent"
	methodRAG       = "rag"
)

type askRequest struct {
	Prompt              string      `json:"prompt"`
	ConversationHistory []chat.Turn `json:"conversation_history"`
}

// decodeAsk parses and validates the shared ask request shape. A handled
// error has already been written when ok is false.
func decodeAsk(w http.ResponseWriter, r *http.Request) (askRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body: %v", err)
		return askRequest{}, false
	}
	if strings.TrimSpace(req.Prompt) == "" {
		httpError(w, http.StatusBadRequest, "prompt is required")
		return askRequest{}, false
	}
	return req, true
}

// record saves the interaction audit row. Failures are logged, not surfaced:
// the answer already exists and belongs to the caller.
func record(r *http.Request, deps Deps, i storage.Interaction) {
	if deps.Store == nil {
		return
	}
	i.ID = uuid.NewString()
	if err := deps.Store.SaveInteraction(r.Context(), i); err != nil {
		slog.Error("saving interaction", "method", i.Method, "error", err)
	}
}

func handleAsk(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeAsk(w, r)
		if !ok {
			return
		}

		answer, err := deps.Chat.Complete(r.Context(), deps.ChatModel,
			chat.Messages(req.ConversationHistory, req.Prompt), chatTemperature)
		if err != nil {
			httpError(w, upstreamStatus(err), "%v", err)
			return
		}

		record(r, deps, storage.Interaction{
			Method:   methodDirect,
			Prompt:   req.Prompt,
			Response: answer,
		})

		writeJSON(w, struct {
			Prompt              string      `json:"prompt"`
			Response            string      `json:"response"`
			ConversationHistory []chat.Turn `json:"conversation_history"`
		}{
			Prompt:              req.Prompt,
			Response:            answer,
			ConversationHistory: chat.Extend(req.ConversationHistory, req.Prompt, answer),
		})
	}
}

func handleAskAgent(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeAsk(w, r)
		if !ok {
			return
		}

		res, err := deps.Agent.Run(r.Context(), chat.Messages(req.ConversationHistory, req.Prompt))
		if err != nil {
			httpError(w, upstreamStatus(err), "%v", err)
			return
		}

		record(r, deps, storage.Interaction{
			Method:   methodAgent,
			Prompt:   req.Prompt,
			Response: res.Answer,
			ToolUsed: res.ToolUsed,
		})

		writeJSON(w, struct {
			Prompt              string      `json:"prompt"`
			Response            string      `json:"response"`
			Method              string      `json:"method"`
			ToolUsed            bool        `json:"tool_used"`
			ConversationHistory []chat.Turn `json:"conversation_history"`
		}{
			Prompt:              req.Prompt,
			Response:            res.Answer,
			Method:              methodAgent,
			ToolUsed:            res.ToolUsed,
			ConversationHistory: chat.Extend(req.ConversationHistory, req.Prompt, res.Answer),
		})
	}
}

func handleAskValidated(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeAsk(w, r)
		if !ok {
			return
		}

		outcome, err := deps.Validated.Run(r.Context(), req.Prompt,
			chat.HistoryMessages(req.ConversationHistory))
		if err != nil {
			httpError(w, upstreamStatus(err), "%v", err)
			return
		}

		record(r, deps, storage.Interaction{
			Method:           methodValidated,
			Prompt:           req.Prompt,
			Response:         outcome.Response,
			ValidationStatus: outcome.Status,
			TotalAttempts:    len(outcome.Attempts),
		})

		writeJSON(w, struct {
			Prompt              string             `json:"prompt"`
			Response            string             `json:"response"`
			Method              string             `json:"method"`
			ValidationStatus    string             `json:"validation_status"`
			Attempts            []validate.Attempt `json:"attempts"`
			TotalAttempts       int                `json:"total_attempts"`
			ConversationHistory []chat.Turn        `json:"conversation_history"`
		}{
			Prompt:              req.Prompt,
			Response:            outcome.Response,
			Method:              methodValidated,
			ValidationStatus:    outcome.Status,
			Attempts:            outcome.Attempts,
			TotalAttempts:       len(outcome.Attempts),
			ConversationHistory: chat.Extend(req.ConversationHistory, req.Prompt, outcome.Response),
		})
	}
}

func handleAskRAG(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeAsk(w, r)
		if !ok {
			return
		}

		res, err := deps.RAG.Run(r.Context(), req.Prompt)
		if err != nil {
			httpError(w, upstreamStatus(err), "%v", err)
			return
		}

		record(r, deps, storage.Interaction{
			Method:      methodRAG,
			Prompt:      req.Prompt,
			Response:    res.Answer,
			ContextDocs: len(res.Context),
		})

		writeJSON(w, struct {
			Prompt                string      `json:"prompt"`
			Response              string      `json:"response"`
			Method                string      `json:"method"`
			ContextUsed           []string    `json:"context_used"`
			NumDocumentsRetrieved int         `json:"num_documents_retrieved"`
			ConversationHistory   []chat.Turn `json:"conversation_history"`
		}{
			Prompt:                req.Prompt,
			Response:              res.Answer,
			Method:                methodRAG,
			ContextUsed:           res.Context,
			NumDocumentsRetrieved: len(res.Context),
			ConversationHistory:   chat.Extend(req.ConversationHistory, req.Prompt, res.Answer),
		})
	}
}
